package core

import (
	"errors"
	"fmt"
	"strings"
)

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型（或内嵌此类型）
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX），对 fmt.Errorf("%w") 包装后的错误同样有效
//
// 使用场景：
//   - Catalog 构建：DATA_INTEGRITY（重复/负数 ID、特征维度不一致）
//   - 查找：NOT_FOUND（名称/年份/ID 无匹配）、AMBIGUOUS（多条匹配）
//   - Store 错误：NOT_FOUND, NOT_SUPPORTED
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND", "DATA_INTEGRITY"）
	Message string // 错误消息
	Module  string // 模块名称（如 "catalog", "user", "store"）
}

func (e *DomainError) Error() string {
	return e.Message
}

// IsDomainError 检查错误链中是否包含 DomainError
func IsDomainError(err error) bool {
	return GetDomainError(err) != nil
}

// GetDomainError 获取错误链中的 DomainError，如果没有则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	var ambiguous *AmbiguousMatchError
	if errors.As(err, &ambiguous) {
		return &ambiguous.DomainError
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// Errorf 创建带格式化消息的领域错误
func Errorf(module, code, format string, args ...any) *DomainError {
	return NewDomainError(module, code, fmt.Sprintf(format, args...))
}

// 错误代码常量
const (
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在
	ErrorCodeNotSupported  = "NOT_SUPPORTED"  // 操作不支持
	ErrorCodeInvalidInput  = "INVALID_INPUT"  // 输入无效
	ErrorCodeDataIntegrity = "DATA_INTEGRITY" // 构建数据不完整/不一致
	ErrorCodeAmbiguous     = "AMBIGUOUS"      // 查找命中多条记录
)

// 模块名称常量
const (
	ModuleCatalog  = "catalog"  // 电影目录
	ModuleRating   = "rating"   // 评分数据
	ModuleUser     = "user"     // 用户画像/用户目录
	ModuleEngine   = "engine"   // 推荐引擎
	ModuleStore    = "store"    // 存储模块
	ModulePipeline = "pipeline" // Pipeline 编排
)

// AmbiguousMatchError 表示按名称（和年份）查找时命中多条记录。
// Matches 携带全部候选，调用方可据此追加年份等条件消歧。
type AmbiguousMatchError struct {
	DomainError
	Matches []Movie
}

// NewAmbiguousMatchError 创建歧义错误。
func NewAmbiguousMatchError(module, query string, matches []Movie) *AmbiguousMatchError {
	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		parts = append(parts, fmt.Sprintf("%d:%s(%d)", m.ID, m.Name, m.Year))
	}
	return &AmbiguousMatchError{
		DomainError: DomainError{
			Module:  module,
			Code:    ErrorCodeAmbiguous,
			Message: fmt.Sprintf("%s: ambiguous match for %q: %s", module, query, strings.Join(parts, ", ")),
		},
		Matches: matches,
	}
}

func (e *AmbiguousMatchError) Error() string {
	return e.Message
}

// 通用错误检查函数

func hasCode(err error, code string) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool {
	return hasCode(err, ErrorCodeNotFound)
}

// IsNotSupported 检查错误是否为 NOT_SUPPORTED
func IsNotSupported(err error) bool {
	return hasCode(err, ErrorCodeNotSupported)
}

// IsDataIntegrity 检查错误是否为 DATA_INTEGRITY
func IsDataIntegrity(err error) bool {
	return hasCode(err, ErrorCodeDataIntegrity)
}

// IsInvalidInput 检查错误是否为 INVALID_INPUT
func IsInvalidInput(err error) bool {
	return hasCode(err, ErrorCodeInvalidInput)
}

// IsAmbiguous 检查错误是否为 AMBIGUOUS，并返回候选列表。
func IsAmbiguous(err error) ([]Movie, bool) {
	var ambiguous *AmbiguousMatchError
	if errors.As(err, &ambiguous) {
		return ambiguous.Matches, true
	}
	return nil, false
}
