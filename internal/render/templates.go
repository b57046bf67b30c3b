// Package render produces template parts and menus from a template
// directory. It is the producer side of readthrough: parts live under
// part/<name>.html (html/template) or part/<name>.md (Markdown), menus under
// menu/<location>.html.
package render

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"html/template"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/yuin/goldmark"

	"github.com/vupar/vp-cache/internal/readthrough"
)

const (
	partDir = "part"
	menuDir = "menu"
)

type compiledKey struct {
	path    string
	modTime time.Time
}

// Templates 从 TemplateDir 读取模板；编译结果按路径与修改时间缓存在进程内，
// 模板文件变更后自动重新编译。
type Templates struct {
	dir      string
	markdown goldmark.Markdown

	mu       sync.RWMutex
	compiled map[compiledKey]*template.Template
}

// New 创建模板渲染器。
func New(dir string) *Templates {
	return &Templates{
		dir:      dir,
		markdown: goldmark.New(),
		compiled: make(map[compiledKey]*template.Template),
	}
}

// Produce 渲染 part/<name>。文件不存在时返回 readthrough.ErrNotFound；
// 模板执行失败时错误以内联文本随已输出部分一同返回。
func (t *Templates) Produce(ctx context.Context, name string, args map[string]any) (string, error) {
	base, ok := t.resolve(partDir, name)
	if !ok {
		return "", readthrough.ErrNotFound
	}

	if info, err := os.Stat(base + ".html"); err == nil && info.Mode().IsRegular() {
		return t.execute(base+".html", info.ModTime(), partData(name, args))
	}
	if source, err := os.ReadFile(base + ".md"); err == nil {
		var buf bytes.Buffer
		if err := t.markdown.Convert(source, &buf); err != nil {
			return inlineError(name, err), fmt.Errorf("render: markdown %s: %w", name, err)
		}
		return buf.String(), nil
	}
	return "", readthrough.ErrNotFound
}

// Menus 返回菜单渲染器。未定义的菜单位置渲染为空内容，而不是"未找到"。
func (t *Templates) Menus() readthrough.Producer {
	return readthrough.ProducerFunc(func(ctx context.Context, location string, args map[string]any) (string, error) {
		base, ok := t.resolve(menuDir, location)
		if !ok {
			return "", nil
		}
		info, err := os.Stat(base + ".html")
		if err != nil || !info.Mode().IsRegular() {
			return "", nil
		}
		data := partData(location, args)
		data["Location"] = location
		return t.execute(base+".html", info.ModTime(), data)
	})
}

// resolve 拒绝逃逸出模板子目录的名称。
func (t *Templates) resolve(kind, name string) (string, bool) {
	name = strings.Trim(name, "/")
	if name == "" || strings.ContainsRune(name, 0) || slices.Contains(strings.Split(name, "/"), "..") {
		return "", false
	}
	root := filepath.Join(t.dir, kind)
	full := filepath.Join(root, filepath.FromSlash(name))
	if !strings.HasPrefix(full, root+string(filepath.Separator)) {
		return "", false
	}
	return full, true
}

func (t *Templates) execute(path string, modTime time.Time, data map[string]any) (string, error) {
	tmpl, err := t.load(path, modTime)
	if err != nil {
		return inlineError(filepath.Base(path), err), fmt.Errorf("render: parse %s: %w", path, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		buf.WriteString(inlineError(filepath.Base(path), err))
		return buf.String(), fmt.Errorf("render: execute %s: %w", path, err)
	}
	return buf.String(), nil
}

func (t *Templates) load(path string, modTime time.Time) (*template.Template, error) {
	key := compiledKey{path: path, modTime: modTime}

	t.mu.RLock()
	tmpl := t.compiled[key]
	t.mu.RUnlock()
	if tmpl != nil {
		return tmpl, nil
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	tmpl, err = template.New(filepath.Base(path)).Option("missingkey=zero").Parse(string(source))
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	for k := range t.compiled {
		if k.path == path {
			delete(t.compiled, k)
		}
	}
	t.compiled[key] = tmpl
	t.mu.Unlock()
	return tmpl, nil
}

func partData(name string, args map[string]any) map[string]any {
	data := make(map[string]any, len(args)+2)
	data["Name"] = name
	data["Args"] = args
	return data
}

func inlineError(name string, err error) string {
	return fmt.Sprintf(`<div class="error notice notice-error"><p>%s: %s</p></div>`,
		html.EscapeString(name), html.EscapeString(err.Error()))
}

var _ readthrough.Producer = (*Templates)(nil)
