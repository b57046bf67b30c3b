package server

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vupar/vp-cache/internal/readthrough"
)

// AppOptions 描述 HTTP 服务依赖。
type AppOptions struct {
	Logger *logrus.Logger
	Cache  *readthrough.Cache
	// Parts 渲染 /part/*，Menus 渲染 /menu/:location。
	Parts readthrough.Producer
	Menus readthrough.Producer
	// AdminSecret 非空时 /-/ 接口需要 HS256 签名的 Bearer JWT。
	AdminSecret string
}

const contextKeyRequestID = "_vpcache_request_id"

// NewApp 构建 Fiber 应用：recover、请求 ID、管理端鉴权与渲染路由。
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Cache == nil {
		return nil, errors.New("readthrough cache is required")
	}
	if opts.Parts == nil || opts.Menus == nil {
		return nil, errors.New("part and menu producers are required")
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
		ErrorHandler:  errorHandler(opts.Logger),
	})

	app.Use(recover.New())
	app.Use(requestContextMiddleware())
	app.Use(adminGuard(opts.AdminSecret, opts.Logger))

	registerRenderRoutes(app, opts)
	return app, nil
}

// requestContextMiddleware 生成请求 ID 并写入响应头。
func requestContextMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := strings.TrimSpace(c.Get("X-Request-ID"))
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)
		return c.Next()
	}
}

func errorHandler(logger *logrus.Logger) fiber.ErrorHandler {
	return func(c fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}
		if code >= fiber.StatusInternalServerError {
			logger.WithError(err).WithFields(logrus.Fields{
				"action":     "http",
				"path":       c.Path(),
				"request_id": RequestID(c),
			}).Error("request_failed")
		}
		return c.Status(code).JSON(fiber.Map{"error": err.Error()})
	}
}

// RequestID returns the request identifier stored by the router middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}

func isAdminPath(path string) bool {
	return strings.HasPrefix(path, "/-/")
}
