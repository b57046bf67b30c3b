package cache

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/vupar/vp-cache/internal/logging"
)

// Store 是显式构造的缓存句柄，持有根目录与权限配置，所有调用方共享同一实例。
// 不同实例之间互不影响，测试中可以各自指向独立的临时目录。
type Store struct {
	root     string
	dirMode  fs.FileMode
	fileMode fs.FileMode
	logger   *logrus.Logger
}

// NewStore 以 root 为根目录构建磁盘缓存。根目录在首次写入时才会创建。
func NewStore(root string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("cache root required")
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	discard := logrus.New()
	discard.SetOutput(io.Discard)

	s := &Store{
		root:     filepath.Clean(abs),
		dirMode:  defaultDirMode,
		fileMode: defaultFileMode,
		logger:   discard,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Set 写入条目。先写同目录下的临时文件再 rename 覆盖目标，读者不会看到半写入的值；
// 写入失败返回 false 而不是 error。空 key 会 panic。
func (s *Store) Set(namespace, key string, value []byte) bool {
	mustKey(key)

	dir, ok := s.namespaceDir(namespace)
	if !ok {
		s.warn("cache_set_rejected", namespace, key, errors.New("invalid namespace"))
		return false
	}
	if err := os.MkdirAll(dir, s.dirMode); err != nil {
		s.warn("cache_set_failed", namespace, key, err)
		return false
	}
	if err := s.writeAtomic(dir, key, value); err != nil {
		s.warn("cache_set_failed", namespace, key, err)
		return false
	}
	return true
}

func (s *Store) writeAtomic(dir, key string, value []byte) error {
	tempFile, err := os.CreateTemp(dir, tempPrefix+"*.tmp")
	if err != nil {
		return err
	}
	tempName := tempFile.Name()

	_, err = tempFile.Write(value)
	closeErr := tempFile.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Chmod(tempName, s.fileMode)
	}
	if err != nil {
		os.Remove(tempName)
		return err
	}

	if err := os.Rename(tempName, filepath.Join(dir, key)); err != nil {
		os.Remove(tempName)
		return err
	}
	return nil
}

// Get 读取条目。第二个返回值为 false 即“未命中”，与合法的空值区分开；
// 文件不存在、是目录或读取失败都视为未命中。空 key 会 panic。
func (s *Store) Get(namespace, key string) ([]byte, bool) {
	mustKey(key)

	dir, ok := s.namespaceDir(namespace)
	if !ok {
		return nil, false
	}
	filePath := filepath.Join(dir, key)

	info, err := os.Stat(filePath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.warn("cache_get_failed", namespace, key, err)
		}
		return nil, false
	}
	if info.IsDir() {
		return nil, false
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.warn("cache_get_failed", namespace, key, err)
		}
		return nil, false
	}
	if data == nil {
		data = []byte{}
	}
	return data, true
}

// Unset 删除单个条目，条目不存在同样视为成功。
func (s *Store) Unset(namespace, key string) bool {
	mustKey(key)

	dir, ok := s.namespaceDir(namespace)
	if !ok {
		return false
	}
	filePath := filepath.Join(dir, key)

	info, err := os.Lstat(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return true
		}
		s.warn("cache_unset_failed", namespace, key, err)
		return false
	}
	if info.IsDir() {
		return false
	}
	if err := os.Remove(filePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.warn("cache_unset_failed", namespace, key, err)
		return false
	}
	return true
}

// Clear 删除类型条目。namespace 为空时清空所有命名空间目录，但保留根条目
// （例如资源清单），只有 Flush 才会删除它们；否则只删除该命名空间目录。
func (s *Store) Clear(namespace string) bool {
	if NormalizeNamespace(namespace) == "" {
		entries, err := os.ReadDir(s.root)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return true
			}
			s.warn("cache_clear_failed", "", "", err)
			return false
		}
		cleared := true
		for _, entry := range entries {
			if entry.IsDir() && !s.Clear(entry.Name()) {
				cleared = false
			}
		}
		return cleared
	}

	dir, ok := s.namespaceDir(namespace)
	if !ok || dir == s.root {
		return false
	}
	if err := os.RemoveAll(dir); err != nil {
		s.warn("cache_clear_failed", namespace, "", err)
		return false
	}
	return true
}

// Flush 删除整个缓存根目录，包括根条目。
func (s *Store) Flush() bool {
	if err := os.RemoveAll(s.root); err != nil {
		s.warn("cache_flush_failed", "", "", err)
		return false
	}
	return true
}

// Stat 统计根目录：每个子目录是一个命名空间，计数为其直接包含的文件数（不递归）；
// 根目录下的文件计为根条目。根目录不存在时返回全零。
func (s *Store) Stat() Stat {
	stat := Stat{Namespaces: map[string]int{}}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.warn("cache_stat_failed", "", "", err)
		}
		return stat
	}

	for _, entry := range entries {
		name := entry.Name()
		switch {
		case entry.IsDir():
			count, size := s.countFiles(filepath.Join(s.root, name))
			stat.Namespaces[name] = count
			stat.Typed += count
			stat.Total += count
			stat.Bytes += size
		case entry.Type().IsRegular() && !isTempName(name):
			stat.Root++
			stat.Total++
			if info, err := entry.Info(); err == nil {
				stat.Bytes += info.Size()
			}
		}
	}
	return stat
}

func (s *Store) countFiles(dir string) (int, int64) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0
	}
	var (
		count int
		size  int64
	)
	for _, entry := range entries {
		if entry.IsDir() || isTempName(entry.Name()) {
			continue
		}
		count++
		if info, err := entry.Info(); err == nil {
			size += info.Size()
		}
	}
	return count, size
}

func (s *Store) warn(action, namespace, key string, err error) {
	s.logger.WithError(err).
		WithFields(logging.CacheFields(action, namespace, key)).
		Warn(action)
}
