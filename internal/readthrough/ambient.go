package readthrough

import "context"

// Ambient 提供参与缓存 key 的环境状态：当前语言与当前内容条目。
type Ambient interface {
	Locale(ctx context.Context) string
	// ContentID 在没有当前内容条目时返回 false，此时上下文中完全省略 post_id。
	ContentID(ctx context.Context) (string, bool)
}

type ctxKey int

const (
	adminKey ctxKey = iota
	localeKey
	contentKey
)

// WithAdmin 标记管理/预览上下文，此类请求总是重新渲染且不写缓存。
func WithAdmin(ctx context.Context) context.Context {
	return context.WithValue(ctx, adminKey, true)
}

// IsAdmin 报告 ctx 是否处于管理/预览上下文。
func IsAdmin(ctx context.Context) bool {
	v, _ := ctx.Value(adminKey).(bool)
	return v
}

func WithLocale(ctx context.Context, locale string) context.Context {
	return context.WithValue(ctx, localeKey, locale)
}

func WithContentID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, contentKey, id)
}

// ContextAmbient 从 WithLocale/WithContentID 写入的值读取环境状态，
// 未设置语言时回退到 DefaultLocale。
type ContextAmbient struct {
	DefaultLocale string
}

func (a ContextAmbient) Locale(ctx context.Context) string {
	if locale, ok := ctx.Value(localeKey).(string); ok {
		return locale
	}
	return a.DefaultLocale
}

func (a ContextAmbient) ContentID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contentKey).(string)
	return id, ok && id != ""
}

var _ Ambient = ContextAmbient{}
