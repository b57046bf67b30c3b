package readthrough

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// DeriveKey 返回 "<kind>-<16 位十六进制>" 形式的缓存 key。
// fields 会先按键名排序（每一层 map 都排序）再编码为 JSON，因此插入顺序不影响结果。
func DeriveKey(kind string, fields map[string]any) (string, error) {
	if kind == "" {
		return "", errors.New("readthrough: key kind is required")
	}
	canonical, err := canonicalize(fields)
	if err != nil {
		return "", fmt.Errorf("readthrough: canonicalize %s context: %w", kind, err)
	}
	return fmt.Sprintf("%s-%016x", kind, xxhash.Sum64(canonical)), nil
}

func canonicalize(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return []byte("null"), nil
	case map[string]any:
		return canonicalizeMap(val)
	case map[string]string:
		m := make(map[string]any, len(val))
		for k, s := range val {
			m[k] = s
		}
		return canonicalizeMap(m)
	case []any:
		return canonicalizeSlice(val)
	case []string:
		s := make([]any, len(val))
		for i, item := range val {
			s[i] = item
		}
		return canonicalizeSlice(s)
	default:
		return json.Marshal(v)
	}
}

func canonicalizeMap(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := []byte("{")
	for i, k := range keys {
		if i > 0 {
			out = append(out, ',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		out = append(out, keyBytes...)
		out = append(out, ':')

		valBytes, err := canonicalize(m[k])
		if err != nil {
			return nil, err
		}
		out = append(out, valBytes...)
	}
	return append(out, '}'), nil
}

func canonicalizeSlice(s []any) ([]byte, error) {
	out := []byte("[")
	for i, v := range s {
		if i > 0 {
			out = append(out, ',')
		}
		valBytes, err := canonicalize(v)
		if err != nil {
			return nil, err
		}
		out = append(out, valBytes...)
	}
	return append(out, ']'), nil
}
