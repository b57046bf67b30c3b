package server

import (
	"context"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gofiber/fiber/v3"

	"github.com/vupar/vp-cache/internal/readthrough"
)

// 这些查询参数描述请求环境，不进入模板参数。
const (
	queryLocale  = "lang"
	queryContent = "post_id"
	queryPreview = "preview"
	queryNoCache = "nocache"

	headerPreview    = "X-VP-Preview"
	headerCacheState = "X-VP-Cache"
	headerCacheKey   = "X-VP-Cache-Key"
)

func registerRenderRoutes(app *fiber.App, opts AppOptions) {
	app.Get("/part/*", func(c fiber.Ctx) error {
		name := strings.Trim(c.Params("*"), "/")
		if name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "part name required")
		}
		ctx, args, bypass := renderContext(c)
		req := readthrough.Request{
			Namespace: readthrough.NamespacePart,
			Name:      name,
			Fields:    opts.Cache.PartContext(ctx, name, args),
			Annotate:  true,
			Bypass:    bypass,
		}
		return serveFragment(c, ctx, opts, req, opts.Parts, args)
	})

	app.Get("/menu/:location", func(c fiber.Ctx) error {
		location := strings.TrimSpace(c.Params("location"))
		ctx, args, bypass := renderContext(c)
		req := readthrough.Request{
			Namespace: readthrough.NamespaceMenu,
			Name:      location,
			Fields:    opts.Cache.MenuContext(ctx, location, args),
			Bypass:    bypass,
		}
		return serveFragment(c, ctx, opts, req, opts.Menus, args)
	})
}

// renderContext 将请求头与查询参数转换为环境上下文与模板参数。
func renderContext(c fiber.Ctx) (context.Context, map[string]any, bool) {
	ctx := c.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	args := make(map[string]any)
	for k, v := range c.Queries() {
		args[k] = v
	}
	if locale, ok := args[queryLocale].(string); ok {
		ctx = readthrough.WithLocale(ctx, locale)
	}
	if id, ok := args[queryContent].(string); ok {
		ctx = readthrough.WithContentID(ctx, id)
	}
	if isTruthy(args[queryPreview]) || isTruthy(c.Get(headerPreview)) {
		ctx = readthrough.WithAdmin(ctx)
	}
	bypass := isTruthy(args[queryNoCache])

	for _, reserved := range []string{queryLocale, queryContent, queryPreview, queryNoCache} {
		delete(args, reserved)
	}
	return ctx, args, bypass
}

func serveFragment(c fiber.Ctx, ctx context.Context, opts AppOptions, req readthrough.Request, p readthrough.Producer, args map[string]any) error {
	res, err := opts.Cache.Fetch(ctx, req, func(ctx context.Context) (string, error) {
		return p.Produce(ctx, req.Name, args)
	})
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	c.Set(headerCacheState, string(res.State))
	if res.Key != "" {
		c.Set(headerCacheKey, res.Key)
	}
	status := fiber.StatusOK
	if res.State == readthrough.StateNotFound {
		status = fiber.StatusNotFound
	}
	body := []byte(res.Content)
	c.Set(fiber.HeaderContentType, contentType(body))
	return c.Status(status).Send(body)
}

// contentType 对片段内容做类型探测，空内容按 HTML 处理。
func contentType(body []byte) string {
	if len(body) == 0 {
		return fiber.MIMETextHTMLCharsetUTF8
	}
	mt := mimetype.Detect(body)
	if mt.Is("text/plain") && strings.Contains(string(body), "<") {
		return fiber.MIMETextHTMLCharsetUTF8
	}
	return mt.String()
}

func isTruthy(v any) bool {
	s, _ := v.(string)
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
