package cache

import (
	"bytes"
	"errors"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// ManifestSuffix 标记结构化清单条目（例如资源列表）。
const ManifestSuffix = ".manifest"

// manifestPreamble 位于 msgpack 正文之前，用于识别清单格式版本。
var manifestPreamble = []byte("VPM1")

// IsManifestKey 判断 key 是否遵循清单命名约定。
func IsManifestKey(key string) bool {
	return strings.HasSuffix(key, ManifestSuffix) && len(key) > len(ManifestSuffix)
}

func mustManifestKey(key string) {
	mustKey(key)
	if !IsManifestKey(key) {
		panic(ErrManifestKey)
	}
}

// SetManifest 将结构化值编码为 preamble + msgpack 后写入，语义与 Set 相同。
func (s *Store) SetManifest(namespace, key string, v any) bool {
	mustManifestKey(key)

	payload, err := msgpack.Marshal(v)
	if err != nil {
		s.warn("cache_manifest_encode_failed", namespace, key, err)
		return false
	}
	buf := make([]byte, 0, len(manifestPreamble)+len(payload))
	buf = append(buf, manifestPreamble...)
	buf = append(buf, payload...)
	return s.Set(namespace, key, buf)
}

// GetManifest 读取清单条目并直接解码到 v。未命中、格式不符或解码失败都返回 false。
func (s *Store) GetManifest(namespace, key string, v any) bool {
	mustManifestKey(key)

	raw, ok := s.Get(namespace, key)
	if !ok {
		return false
	}
	if !bytes.HasPrefix(raw, manifestPreamble) {
		s.warn("cache_manifest_decode_failed", namespace, key, errors.New("missing manifest preamble"))
		return false
	}
	if err := msgpack.Unmarshal(raw[len(manifestPreamble):], v); err != nil {
		s.warn("cache_manifest_decode_failed", namespace, key, err)
		return false
	}
	return true
}
