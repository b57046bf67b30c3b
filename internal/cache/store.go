package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/sirupsen/logrus"
)

// 磁盘布局：
//
//	<root>/<key>              # 根条目（无类型），只有 Flush 会删除
//	<root>/<namespace>/<key>  # 类型条目，Clear 以目录为粒度删除
var (
	// ErrEmptyKey 表示调用方传入了空 key，属于编程错误，会以 panic 形式抛出。
	ErrEmptyKey = errors.New("cache: key must not be empty")
	// ErrManifestKey 表示结构化清单条目的 key 缺少 ManifestSuffix 后缀。
	ErrManifestKey = errors.New("cache: manifest key must end with " + ManifestSuffix)
)

const (
	defaultDirMode  fs.FileMode = 0o777
	defaultFileMode fs.FileMode = 0o664

	// tempPrefix 标记写入中的临时文件，Stat 不会计入。
	tempPrefix = ".vp-"
)

// Stat 汇总缓存目录的条目数量，供 CLI 与管理端展示。
type Stat struct {
	Namespaces map[string]int `json:"type" yaml:"type"`
	Typed      int            `json:"typed" yaml:"typed"`
	Root       int            `json:"root" yaml:"root"`
	Total      int            `json:"total" yaml:"total"`
	Bytes      int64          `json:"bytes" yaml:"bytes"`
}

// Names 返回按名称排序的命名空间列表。
func (s Stat) Names() []string {
	names := make([]string, 0, len(s.Namespaces))
	for name := range s.Namespaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Option 调整 Store 的可选行为。
type Option func(*Store)

// WithLogger 注入 logrus 实例，用于记录被吞掉的 I/O 错误。
func WithLogger(logger *logrus.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDirMode 覆盖命名空间目录的创建权限（仍受 umask 影响）。
func WithDirMode(mode fs.FileMode) Option {
	return func(s *Store) {
		s.dirMode = mode
	}
}

// WithFileMode 覆盖条目文件的权限，默认 0664 以便同组的 web 进程读取。
func WithFileMode(mode fs.FileMode) Option {
	return func(s *Store) {
		s.fileMode = mode
	}
}

// RootFor 基于部署相关的种子（通常是站点 URL）计算系统临时目录下的缓存根目录，
// 保证同一主机上的多个站点互不冲突。
func RootFor(seed string) string {
	return filepath.Join(os.TempDir(), fmt.Sprintf("vp-cache-%016x", xxhash.Sum64String(seed)))
}

// Path 计算命名空间（或根目录）对应的磁盘路径。命名空间两端的 "/" 会被去掉，
// 中间的 "/" 替换为 "-"，保证只有一级子目录。
func (s *Store) Path(subpath string) string {
	name := NormalizeNamespace(subpath)
	if name == "" {
		return s.root
	}
	return filepath.Join(s.root, name)
}

// Root 返回缓存根目录。
func (s *Store) Root() string {
	return s.root
}

// NormalizeNamespace 返回命名空间在磁盘上的目录名：去掉首尾空白与 "/"，
// 中间的 "/" 替换为 "-"。根命名空间返回空串。
func NormalizeNamespace(namespace string) string {
	name := strings.Trim(strings.TrimSpace(namespace), "/")
	return strings.ReplaceAll(name, "/", "-")
}

// namespaceDir 返回命名空间目录，并拒绝 "." / ".." 之类逃出根目录的名称。
func (s *Store) namespaceDir(namespace string) (string, bool) {
	dir := s.Path(namespace)
	if dir == s.root {
		return dir, true
	}
	if filepath.Dir(dir) != s.root {
		return "", false
	}
	return dir, true
}

func mustKey(key string) {
	if key == "" {
		panic(ErrEmptyKey)
	}
}

func isTempName(name string) bool {
	return strings.HasPrefix(name, tempPrefix)
}
