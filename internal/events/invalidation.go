package events

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/vupar/vp-cache/internal/cache"
	"github.com/vupar/vp-cache/internal/logging"
)

// InvalidationHandler 是缓存失效处理器在 Bus 上的名称。
const InvalidationHandler = "cache-clear"

// errClearFailed 只用于让 Fire 的调用方得知清理未完成，缓存本身仍按最佳努力处理。
var errClearFailed = errors.New("typed cache entries could not be cleared")

// WireInvalidation 在所有内容变更事件上注册 store.Clear("")。
// 根条目（资源清单）不受内容变更影响，因此不使用 Flush。
func WireInvalidation(bus *Bus, store *cache.Store, logger *logrus.Logger) error {
	if logger == nil {
		logger = logging.Discard()
	}
	handler := func(ctx context.Context, ev Event, payload Payload) error {
		fields := logging.CacheFields("invalidate", "", "")
		fields["event"] = string(ev)
		if payload.ID != "" {
			fields["content_id"] = payload.ID
		}
		if !store.Clear("") {
			logger.WithFields(fields).Warn("cache_invalidate_failed")
			return errClearFailed
		}
		logger.WithFields(fields).Info("cache_invalidated")
		return nil
	}
	for _, ev := range ContentEvents() {
		if err := bus.Register(ev, InvalidationHandler, handler); err != nil {
			return err
		}
	}
	return nil
}
