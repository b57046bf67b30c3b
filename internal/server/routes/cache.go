package routes

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/vupar/vp-cache/internal/assets"
	"github.com/vupar/vp-cache/internal/cache"
	"github.com/vupar/vp-cache/internal/events"
	"github.com/vupar/vp-cache/internal/logging"
	"github.com/vupar/vp-cache/internal/namespace"
	"github.com/vupar/vp-cache/internal/readthrough"
)

// CacheDeps 聚合管理端接口依赖。
type CacheDeps struct {
	Store   *cache.Store
	Cache   *readthrough.Cache
	Assets  *assets.Registry
	Classes []assets.Class
	Bus     *events.Bus
	Logger  *logrus.Logger
}

// RegisterCacheRoutes 暴露缓存统计、清理、事件与资源清单接口。
// /-/ 前缀的接口由 server.NewApp 中的管理端鉴权保护。
func RegisterCacheRoutes(app *fiber.App, deps CacheDeps) {
	if app == nil || deps.Store == nil {
		return
	}
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}

	app.Get("/-/cache", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"enabled": deps.Cache != nil && deps.Cache.Enabled(),
			"root":    deps.Store.Root(),
			"stat":    deps.Store.Stat(),
		})
	})

	app.Post("/-/cache/clear", func(c fiber.Ctx) error {
		return clearHandler(c, deps, "")
	})

	app.Post("/-/cache/clear/:type", func(c fiber.Ctx) error {
		typ := strings.TrimSpace(c.Params("type"))
		if typ == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "type_required"})
		}
		return clearHandler(c, deps, typ)
	})

	app.Post("/-/cache/flush", func(c fiber.Ctx) error {
		total := deps.Store.Stat().Total
		if !deps.Store.Flush() {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "flush_failed"})
		}
		deps.Logger.WithFields(logging.CacheFields("flush", "", "")).WithField("entries", total).Info("cache_flushed")
		return c.JSON(fiber.Map{"cleared": total, "message": namespace.FlushMessage(total)})
	})

	app.Post("/-/events/:event", func(c fiber.Ctx) error {
		if deps.Bus == nil {
			return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{"error": "event_bus_disabled"})
		}
		ev, err := events.Parse(c.Params("event"))
		if err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown_event"})
		}
		var payload events.Payload
		if len(c.Body()) > 0 {
			if err := c.Bind().JSON(&payload); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
			}
		}
		if err := deps.Bus.Fire(c.Context(), ev, payload); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"event": ev, "handlers": deps.Bus.Handlers(ev)})
	})

	app.Get("/-/namespaces", func(c fiber.Ctx) error {
		stat := deps.Store.Stat()
		var handlers map[string]string
		if deps.Bus != nil {
			handlers = deps.Bus.Snapshot(events.ContentEvents())
		}
		return c.JSON(fiber.Map{
			"namespaces": encodeNamespaces(namespace.List(), stat),
			"events":     handlers,
		})
	})

	app.Get("/assets/:class", func(c fiber.Ctx) error {
		if deps.Assets == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "asset_class_not_found"})
		}
		class, ok := findClass(deps.Classes, c.Params("class"))
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "asset_class_not_found"})
		}
		items, err := deps.Assets.Manifest(c.Context(), class)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"class": class.Name, "items": items})
	})

	app.Post("/-/assets/:class/rebuild", func(c fiber.Ctx) error {
		if deps.Assets == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "asset_class_not_found"})
		}
		class, ok := findClass(deps.Classes, c.Params("class"))
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "asset_class_not_found"})
		}
		forgotten := deps.Assets.Forget(class)
		items, err := deps.Assets.Manifest(c.Context(), class)
		if err != nil {
			return err
		}
		deps.Logger.WithFields(logging.CacheFields("rebuild", "", class.Key())).
			WithField("items", len(items)).Info("asset_manifest_rebuilt")
		return c.JSON(fiber.Map{"class": class.Name, "forgotten": forgotten, "items": items})
	})
}

func clearHandler(c fiber.Ctx, deps CacheDeps, typ string) error {
	typ = cache.NormalizeNamespace(typ)
	stat := deps.Store.Stat()
	count := stat.Typed
	if typ != "" {
		count = stat.Namespaces[typ]
	}
	if !deps.Store.Clear(typ) {
		err := errors.New("clear_failed")
		deps.Logger.WithFields(logging.CacheFields("clear", typ, "")).WithError(err).Warn("cache_clear_failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	deps.Logger.WithFields(logging.CacheFields("clear", typ, "")).WithField("entries", count).Info("cache_cleared")
	return c.JSON(fiber.Map{"cleared": count, "message": namespace.ClearMessage(typ, count)})
}

type namespacePayload struct {
	Key         string `json:"key"`
	Description string `json:"description"`
	Producer    string `json:"producer,omitempty"`
	Entries     int    `json:"entries"`
	Registered  bool   `json:"registered"`
}

// encodeNamespaces 合并已注册的命名空间与磁盘上实际存在的命名空间。
func encodeNamespaces(metas []namespace.Metadata, stat cache.Stat) []namespacePayload {
	seen := make(map[string]bool, len(metas))
	result := make([]namespacePayload, 0, len(metas)+len(stat.Namespaces))
	for _, meta := range metas {
		seen[meta.Key] = true
		result = append(result, namespacePayload{
			Key:         meta.Key,
			Description: meta.Description,
			Producer:    meta.Producer,
			Entries:     stat.Namespaces[meta.Key],
			Registered:  true,
		})
	}
	for _, name := range stat.Names() {
		if seen[name] {
			continue
		}
		result = append(result, namespacePayload{
			Key:         name,
			Description: namespace.Describe(name),
			Entries:     stat.Namespaces[name],
		})
	}
	return result
}

func findClass(classes []assets.Class, name string) (assets.Class, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, class := range classes {
		if class.Name == name {
			return class, true
		}
	}
	return assets.Class{}, false
}
