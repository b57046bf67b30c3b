// Package namespace keeps the static catalogue of cache namespaces: which
// typed buckets exist, who writes them and how they are described in stat
// output.
package namespace

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Metadata 描述一个缓存命名空间。
type Metadata struct {
	Key         string `json:"key"`
	Description string `json:"description"`
	// Producer 是写入该命名空间的组件，仅用于诊断输出。
	Producer string `json:"producer,omitempty"`
}

var globalRegistry = newRegistry()

type registry struct {
	mu    sync.RWMutex
	items map[string]Metadata
}

func newRegistry() *registry {
	return &registry{items: make(map[string]Metadata)}
}

// Register 将命名空间加入全局注册表，重复键会返回错误。
func Register(meta Metadata) error {
	return globalRegistry.register(meta)
}

// MustRegister 在注册失败时 panic，适合 init() 中调用。
func MustRegister(meta Metadata) {
	if err := Register(meta); err != nil {
		panic(err)
	}
}

// Resolve 返回指定键的元数据。
func Resolve(key string) (Metadata, bool) {
	return globalRegistry.resolve(key)
}

// List 返回按键排序的元数据列表。
func List() []Metadata {
	return globalRegistry.list()
}

// Keys 返回所有已注册命名空间的键。
func Keys() []string {
	items := List()
	result := make([]string, len(items))
	for i, meta := range items {
		result[i] = meta.Key
	}
	return result
}

// Describe 返回 stat 输出中该命名空间的说明，未注册的命名空间使用通用描述。
func Describe(key string) string {
	if meta, ok := Resolve(key); ok && meta.Description != "" {
		return meta.Description
	}
	return fmt.Sprintf("Number of %s typed cache entries", key)
}

func normalizeKey(key string) string {
	key = strings.ToLower(strings.Trim(strings.TrimSpace(key), "/"))
	return strings.ReplaceAll(key, "/", "-")
}

func (r *registry) register(meta Metadata) error {
	key := normalizeKey(meta.Key)
	if key == "" {
		return fmt.Errorf("namespace key is required")
	}
	meta.Key = key

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[key]; exists {
		return fmt.Errorf("namespace %s already registered", key)
	}
	r.items[key] = meta
	return nil
}

func (r *registry) resolve(key string) (Metadata, bool) {
	normalized := normalizeKey(key)
	if normalized == "" {
		return Metadata{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	meta, ok := r.items[normalized]
	return meta, ok
}

func (r *registry) list() []Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.items) == 0 {
		return nil
	}

	keys := make([]string, 0, len(r.items))
	for key := range r.items {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	result := make([]Metadata, 0, len(keys))
	for _, key := range keys {
		result = append(result, r.items[key])
	}
	return result
}
