// Package assets builds and caches the manifests of static asset classes
// (styles, scripts, blocks).
//
// Each class is cached as a root entry named "<class>.manifest", so content
// invalidation via cache.Store.Clear("") keeps it and only Flush or a disabled
// cache removes it.
package assets

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/gobwas/glob"
	"github.com/sirupsen/logrus"
	"github.com/zeebo/blake3"
	"golang.org/x/sync/errgroup"

	"github.com/vupar/vp-cache/internal/cache"
	"github.com/vupar/vp-cache/internal/config"
	"github.com/vupar/vp-cache/internal/filemap"
	"github.com/vupar/vp-cache/internal/logging"
)

const (
	// hashLen 是内容哈希保留的十六进制位数。
	hashLen = 16
	// blockMetadata 是目录型资源用于计算哈希的描述文件。
	blockMetadata = "block.json"
	// autoloadName 是脚本类别中依赖其余全部模块的入口。
	autoloadName = "autoload"
)

// Item 描述一个已登记的资源。
type Item struct {
	ID   string   `json:"id" msgpack:"id"`
	URL  string   `json:"url" msgpack:"url"`
	Hash string   `json:"hash" msgpack:"hash"`
	Deps []string `json:"deps,omitempty" msgpack:"deps,omitempty"`
}

// Class 描述一类资源的扫描方式。
type Class struct {
	Name     string
	Dir      string
	URL      string
	Pattern  string
	IDPrefix string
	// Dirs 为 true 时登记 Dir 的直接子目录而不是文件。
	Dirs bool
}

// Key 返回该类别在缓存根目录下的清单条目名称。
func (c Class) Key() string {
	return c.Name + cache.ManifestSuffix
}

// Classes 将配置转换为资源类别列表。
func Classes(assets []config.AssetConfig) []Class {
	out := make([]Class, 0, len(assets))
	for _, a := range assets {
		out = append(out, Class{
			Name:     a.Name,
			Dir:      a.Dir,
			URL:      a.URL,
			Pattern:  a.Pattern,
			IDPrefix: a.IDPrefix,
			Dirs:     a.Directories,
		})
	}
	return out
}

// Build 扫描类别目录生成清单。目录不存在时返回空清单。
// 哈希基于文件内容而非修改时间，内容不变则清单不变。
func Build(ctx context.Context, class Class) ([]Item, error) {
	if class.Dirs {
		return buildDirs(ctx, class)
	}

	var match glob.Glob
	if class.Pattern != "" {
		g, err := glob.Compile(class.Pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("assets: compile pattern %q for %s: %w", class.Pattern, class.Name, err)
		}
		match = g
	}

	paths, ok := filemap.Map(class.Dir)
	if !ok {
		return []Item{}, nil
	}

	items := make([]Item, 0, len(paths))
	rels := make([]string, 0, len(paths))
	for _, p := range paths {
		if match != nil && !match.Match(p) {
			continue
		}
		rels = append(rels, p)
		items = append(items, Item{
			ID:  class.IDPrefix + strings.TrimSuffix(p, path.Ext(p)),
			URL: joinURL(class.URL, p),
		})
	}

	if err := hashAll(ctx, items, func(i int) string {
		return filepath.Join(class.Dir, filepath.FromSlash(rels[i]))
	}); err != nil {
		return nil, fmt.Errorf("assets: hash %s: %w", class.Name, err)
	}

	autoload := class.IDPrefix + autoloadName
	for i := range items {
		if items[i].ID != autoload {
			continue
		}
		for _, other := range items {
			if other.ID != autoload {
				items[i].Deps = append(items[i].Deps, other.ID)
			}
		}
	}
	return items, nil
}

func buildDirs(ctx context.Context, class Class) ([]Item, error) {
	dirs, ok := filemap.Dirs(class.Dir)
	if !ok {
		return []Item{}, nil
	}
	items := make([]Item, len(dirs))
	for i, dir := range dirs {
		items[i] = Item{ID: class.IDPrefix + dir, URL: joinURL(class.URL, dir)}
	}
	err := hashAll(ctx, items, func(i int) string {
		return filepath.Join(class.Dir, dirs[i], blockMetadata)
	})
	if err != nil {
		return nil, fmt.Errorf("assets: hash %s: %w", class.Name, err)
	}
	return items, nil
}

// hashAll 并行计算内容哈希；不存在的文件留空哈希。
func hashAll(ctx context.Context, items []Item, pathOf func(int) string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i := range items {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			sum, err := hashFile(pathOf(i))
			if err != nil {
				if os.IsNotExist(err) {
					return nil
				}
				return err
			}
			items[i].Hash = sum
			return nil
		})
	}
	return g.Wait()
}

func hashFile(name string) (string, error) {
	f, err := os.Open(name)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil))[:hashLen], nil
}

func joinURL(base, rel string) string {
	if base == "" {
		return rel
	}
	return strings.TrimRight(base, "/") + "/" + rel
}

// Registry 以根条目缓存各类别的清单。
type Registry struct {
	store   *cache.Store
	enabled bool
	logger  *logrus.Logger
}

// NewRegistry 构造 Registry；enabled 对应全局缓存开关。
func NewRegistry(store *cache.Store, enabled bool, logger *logrus.Logger) *Registry {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Registry{store: store, enabled: enabled, logger: logger}
}

// Manifest 返回类别清单：命中缓存时直接解码，否则扫描目录并写回。
// 缓存关闭时先删除已有条目再重建，且不写回。
func (r *Registry) Manifest(ctx context.Context, class Class) ([]Item, error) {
	key := class.Key()
	if !r.enabled {
		r.store.Unset("", key)
		return Build(ctx, class)
	}

	var items []Item
	if r.store.GetManifest("", key, &items) {
		return items, nil
	}

	items, err := Build(ctx, class)
	if err != nil {
		return nil, err
	}
	if !r.store.SetManifest("", key, items) {
		r.logger.WithFields(logging.CacheFields("asset_manifest", "", key)).Warn("asset_manifest_store_failed")
	} else {
		r.logger.WithFields(logging.CacheFields("asset_manifest", "", key)).
			WithField("items", len(items)).Debug("asset_manifest_built")
	}
	return items, nil
}

// Forget 删除类别的清单条目，下次读取时重建。
func (r *Registry) Forget(class Class) bool {
	return r.store.Unset("", class.Key())
}
