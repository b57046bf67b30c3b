package readthrough

import (
	"context"
	"errors"
	"fmt"
	"html"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"

	"github.com/vupar/vp-cache/internal/cache"
	"github.com/vupar/vp-cache/internal/logging"
)

const (
	NamespacePart = "part"
	NamespaceMenu = "menu"
)

// ErrNotFound 由 Producer 返回，表示请求的片段不存在（区别于渲染出空内容）。
var ErrNotFound = errors.New("readthrough: fragment not found")

// Producer 渲染指定名称的片段。模板执行错误应已被捕获为文本随 content 返回，
// err 仅用于 ErrNotFound 之类的结果分类。
type Producer interface {
	Produce(ctx context.Context, name string, args map[string]any) (string, error)
}

// ProducerFunc 将普通函数适配为 Producer。
type ProducerFunc func(ctx context.Context, name string, args map[string]any) (string, error)

func (f ProducerFunc) Produce(ctx context.Context, name string, args map[string]any) (string, error) {
	return f(ctx, name, args)
}

// ProduceFunc 是 Fetch 使用的无参生成函数。
type ProduceFunc func(ctx context.Context) (string, error)

// Options 显式传入全局开关，替代隐式的全局状态。
type Options struct {
	// Enabled 为 false 时所有请求都绕过缓存。
	Enabled bool
	// Local 为 true 时在输出外包裹 HTML 注释，标记片段来源。
	Local bool
	// MeterProvider 为空时使用 otel 全局 provider。
	MeterProvider metric.MeterProvider
}

// State 描述一次读取的缓存结果，同时用作日志字段与 X-VP-Cache 响应头。
type State string

const (
	StateHit      State = "hit"
	StateMiss     State = "miss"
	StateBypass   State = "bypass"
	StateNotFound State = "not_found"
)

// Request 描述一次读穿请求。Fields 是完整的缓存上下文，Namespace 同时作为 key 前缀。
type Request struct {
	Namespace string
	Name      string
	Fields    map[string]any
	// Annotate 允许在本地环境输出调试注释。
	Annotate bool
	// Bypass 强制重新渲染且不读写缓存。
	Bypass bool
}

// Result 是 Fetch 的返回值。
type Result struct {
	Content string
	State   State
	Key     string
}

// Cache 组合存储、环境状态与开关，实现读穿协议。
type Cache struct {
	store   *cache.Store
	opts    Options
	ambient Ambient
	logger  *logrus.Logger
	metrics *counters
	group   singleflight.Group
}

// New 构造 Cache；ambient 为空时使用 ContextAmbient。
func New(store *cache.Store, opts Options, ambient Ambient, logger *logrus.Logger) (*Cache, error) {
	if store == nil {
		return nil, errors.New("readthrough: store is required")
	}
	if ambient == nil {
		ambient = ContextAmbient{}
	}
	if logger == nil {
		logger = logging.Discard()
	}
	metrics, err := newCounters(opts.MeterProvider)
	if err != nil {
		return nil, fmt.Errorf("readthrough: init metrics: %w", err)
	}
	return &Cache{
		store:   store,
		opts:    opts,
		ambient: ambient,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// Enabled 报告全局缓存开关。
func (c *Cache) Enabled() bool {
	return c.opts.Enabled
}

// CallOption 调整单次调用。
type CallOption func(*Request)

// NoCache 让本次调用跳过缓存读写。
func NoCache() CallOption {
	return func(r *Request) {
		r.Bypass = true
	}
}

// PartContext 构造片段的缓存上下文：part、lang、可选的 post_id，最后叠加调用参数。
func (c *Cache) PartContext(ctx context.Context, name string, args map[string]any) map[string]any {
	fields := map[string]any{
		"part": name,
		"lang": c.ambient.Locale(ctx),
	}
	if id, ok := c.ambient.ContentID(ctx); ok {
		fields["post_id"] = id
	}
	for k, v := range args {
		fields[k] = v
	}
	return fields
}

// MenuContext 构造菜单的缓存上下文。菜单与当前内容条目无关，因此不含 post_id。
func (c *Cache) MenuContext(ctx context.Context, location string, args map[string]any) map[string]any {
	fields := map[string]any{
		"location": location,
		"lang":     c.ambient.Locale(ctx),
	}
	for k, v := range args {
		fields[k] = v
	}
	return fields
}

// Part 通过缓存渲染模板片段，出错时退化为直接渲染，总是返回可输出的文本。
func (c *Cache) Part(ctx context.Context, name string, args map[string]any, p Producer, opts ...CallOption) string {
	req := Request{
		Namespace: NamespacePart,
		Name:      name,
		Fields:    c.PartContext(ctx, name, args),
		Annotate:  true,
	}
	return c.render(ctx, req, args, p, opts)
}

// Menu 通过缓存渲染导航菜单。
func (c *Cache) Menu(ctx context.Context, location string, args map[string]any, p Producer, opts ...CallOption) string {
	req := Request{
		Namespace: NamespaceMenu,
		Name:      location,
		Fields:    c.MenuContext(ctx, location, args),
	}
	return c.render(ctx, req, args, p, opts)
}

func (c *Cache) render(ctx context.Context, req Request, args map[string]any, p Producer, opts []CallOption) string {
	for _, opt := range opts {
		opt(&req)
	}
	res, err := c.Fetch(ctx, req, func(ctx context.Context) (string, error) {
		return p.Produce(ctx, req.Name, args)
	})
	if err != nil {
		c.logger.WithFields(logging.RenderFields(req.Namespace, req.Name, "", string(StateBypass))).
			WithError(err).Warn("readthrough_key_failed")
		req.Bypass = true
		res, _ = c.Fetch(ctx, req, func(ctx context.Context) (string, error) {
			return p.Produce(ctx, req.Name, args)
		})
	}
	return res.Content
}

// Fetch 执行读穿协议。只有缓存 key 无法计算时才返回错误（参数无法编码属于调用方缺陷）；
// 绕过缓存的请求不计算 key。
func (c *Cache) Fetch(ctx context.Context, req Request, produce ProduceFunc) (Result, error) {
	if req.Namespace == "" {
		return Result{}, errors.New("readthrough: namespace is required")
	}

	if req.Bypass || !c.opts.Enabled || IsAdmin(ctx) {
		c.metrics.record(ctx, c.metrics.bypass, req.Namespace)
		content, state := c.produce(ctx, req, "", produce)
		if state != StateNotFound {
			state = StateBypass
		}
		return Result{Content: c.annotate(req, content, false), State: state}, nil
	}

	key, err := DeriveKey(req.Namespace, req.Fields)
	if err != nil {
		return Result{}, err
	}

	if cached, ok := c.lookup(ctx, req, key); ok {
		return Result{Content: c.annotate(req, cached, true), State: StateHit, Key: key}, nil
	}

	// 同一进程内相同 key 的并发未命中只渲染一次；跨进程仍依赖原子 rename。
	v, _, _ := c.group.Do(req.Namespace+"/"+key, func() (any, error) {
		if cached, ok := c.lookup(ctx, req, key); ok {
			return Result{Content: cached, State: StateHit, Key: key}, nil
		}
		c.metrics.record(ctx, c.metrics.misses, req.Namespace)
		content, state := c.produce(ctx, req, key, produce)
		if state == StateMiss && content != "" {
			if !c.store.Set(req.Namespace, key, []byte(content)) {
				c.metrics.record(ctx, c.metrics.storeFailures, req.Namespace)
			}
		}
		return Result{Content: content, State: state, Key: key}, nil
	})
	res := v.(Result)
	res.Content = c.annotate(req, res.Content, res.State == StateHit)
	return res, nil
}

// lookup 读取缓存条目，命中时计数。
func (c *Cache) lookup(ctx context.Context, req Request, key string) (string, bool) {
	cached, ok := c.store.Get(req.Namespace, key)
	if !ok {
		return "", false
	}
	c.metrics.record(ctx, c.metrics.hits, req.Namespace)
	c.logger.WithFields(logging.RenderFields(req.Namespace, req.Name, key, string(StateHit))).Debug("readthrough_hit")
	return string(cached), true
}

// produce 调用生成函数并分类结果：ErrNotFound 转为内联提示，其它错误的输出照常返回但不缓存。
func (c *Cache) produce(ctx context.Context, req Request, key string, produce ProduceFunc) (string, State) {
	content, err := produce(ctx)
	switch {
	case err == nil:
		c.logger.WithFields(logging.RenderFields(req.Namespace, req.Name, key, string(StateMiss))).Debug("readthrough_render")
		return content, StateMiss
	case errors.Is(err, ErrNotFound):
		c.logger.WithFields(logging.RenderFields(req.Namespace, req.Name, key, string(StateNotFound))).Warn("readthrough_not_found")
		return NotFoundNotice(req.Namespace, req.Name), StateNotFound
	default:
		c.logger.WithFields(logging.RenderFields(req.Namespace, req.Name, key, "error")).WithError(err).Warn("readthrough_render_failed")
		return content, StateBypass
	}
}

// annotate 仅作用于返回给调用方的内容，存入缓存的始终是原始输出。
func (c *Cache) annotate(req Request, content string, fromCache bool) string {
	if !c.opts.Local || !req.Annotate {
		return content
	}
	label := req.Namespace + " " + req.Name
	if fromCache {
		return "<!--" + label + " (from cache)-->" + content + "<!--" + req.Namespace + " /" + req.Name + " (from cache)-->"
	}
	return "<!--" + label + "-->" + content + "<!--" + req.Namespace + " /" + req.Name + "-->"
}

// NotFoundNotice 返回片段缺失时的内联提示，名称经过 HTML 转义。
func NotFoundNotice(namespace, name string) string {
	return fmt.Sprintf(`<div class="error notice notice-error"><p>%s "%s" not found.</p></div>`,
		html.EscapeString(namespace), html.EscapeString(name))
}
