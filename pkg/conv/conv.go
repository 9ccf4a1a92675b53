// Package conv 提供类型转换、map/slice 转换等泛型工具，主要用于解析 YAML/JSON 配置。
package conv

// ToInt 将 any 转为 int。YAML 解析出 int，JSON 解析出 float64，此处统一处理。
func ToInt(v any) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case int32:
		return int(val), true
	case float64:
		return int(val), true
	case float32:
		return int(val), true
	default:
		return 0, false
	}
}

// ConvertSlice 将 []T 按 convert 转为 []U，convert 返回 false 的元素被跳过。
func ConvertSlice[T, U any](s []T, convert func(T) (U, bool)) []U {
	if s == nil {
		return nil
	}
	out := make([]U, 0, len(s))
	for _, v := range s {
		if u, ok := convert(v); ok {
			out = append(out, u)
		}
	}
	return out
}

// SliceAnyToInt 将 []any 转为 []int，无法转换的元素被跳过。
func SliceAnyToInt(v any) []int {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	return ConvertSlice(raw, ToInt)
}

// ConfigGet 从 map[string]any（如 YAML/JSON 解析结果）按 key 取 T，取不到或类型不符时返回 defaultVal。
func ConfigGet[T any](m map[string]any, key string, defaultVal T) T {
	if m == nil {
		return defaultVal
	}
	v, ok := m[key]
	if !ok {
		return defaultVal
	}
	t, ok := v.(T)
	if !ok {
		return defaultVal
	}
	return t
}

// ConfigGetInt 从 config 取 int，兼容 int / int64 / float64。
func ConfigGetInt(m map[string]any, key string, defaultVal int) int {
	if m == nil {
		return defaultVal
	}
	if n, ok := ToInt(m[key]); ok {
		return n
	}
	return defaultVal
}
