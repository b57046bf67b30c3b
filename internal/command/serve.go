package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/vupar/vp-cache/internal/assets"
	"github.com/vupar/vp-cache/internal/cache"
	"github.com/vupar/vp-cache/internal/config"
	"github.com/vupar/vp-cache/internal/events"
	"github.com/vupar/vp-cache/internal/logging"
	"github.com/vupar/vp-cache/internal/readthrough"
	"github.com/vupar/vp-cache/internal/render"
	"github.com/vupar/vp-cache/internal/server"
	"github.com/vupar/vp-cache/internal/server/routes"
	"github.com/vupar/vp-cache/internal/version"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "启动 HTTP 服务（渲染片段与缓存管理接口）",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := logging.InitLogger(cfg.Global)
			if err != nil {
				return exitf(1, "初始化日志失败: %w", err)
			}

			app, err := BuildApp(cfg, logger)
			if err != nil {
				return exitf(1, "构建 HTTP 服务失败: %w", err)
			}

			fields := logging.BaseFields("startup", cmd.String("config"))
			fields["listen_port"] = cfg.Global.ListenPort
			fields["cache_root"] = CacheRoot(cfg)
			fields["cache_enabled"] = cfg.Global.CacheEnabled
			fields["environment"] = cfg.Global.Environment
			fields["admin_protected"] = cfg.Global.AdminProtected()
			fields["version"] = version.Full()
			logger.WithFields(fields).Info("配置加载完成")

			if err := listen(ctx, app, cfg.Global.ListenPort, logger); err != nil {
				return exitf(1, "HTTP 服务启动失败: %w", err)
			}
			return nil
		},
	}
}

// BuildApp 按"配置 → 缓存 → 读穿缓存 → 事件总线 → Fiber"顺序组装服务，
// 所有请求共享同一个 Store 实例。
func BuildApp(cfg *config.Config, logger *logrus.Logger) (*fiber.App, error) {
	store, err := cache.NewStore(CacheRoot(cfg), cache.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("初始化缓存目录失败: %w", err)
	}

	rt, err := readthrough.New(store, readthrough.Options{
		Enabled: cfg.Global.CacheEnabled,
		Local:   cfg.Global.Environment.IsLocal(),
	}, readthrough.ContextAmbient{DefaultLocale: cfg.Global.Locale}, logger)
	if err != nil {
		return nil, err
	}

	bus := events.NewBus()
	if err := events.WireInvalidation(bus, store, logger); err != nil {
		return nil, err
	}

	templates := render.New(cfg.Global.TemplateDir)
	app, err := server.NewApp(server.AppOptions{
		Logger:      logger,
		Cache:       rt,
		Parts:       templates,
		Menus:       templates.Menus(),
		AdminSecret: cfg.Global.AdminSecret,
	})
	if err != nil {
		return nil, err
	}

	routes.RegisterCacheRoutes(app, routes.CacheDeps{
		Store:   store,
		Cache:   rt,
		Assets:  assets.NewRegistry(store, rt.Enabled(), logger),
		Classes: assets.Classes(cfg.Assets),
		Bus:     bus,
		Logger:  logger,
	})
	return app, nil
}

// listen 阻塞直到服务退出；ctx 取消时优雅关闭。
func listen(ctx context.Context, app *fiber.App, port int, logger *logrus.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{
			"action": "listen",
			"port":   port,
		}).Info("Fiber 服务启动")
		errCh <- app.Listen(fmt.Sprintf(":%d", port), fiber.ListenConfig{DisableStartupMessage: true})
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		if err := app.Shutdown(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return <-errCh
	}
}
