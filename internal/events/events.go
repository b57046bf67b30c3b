// Package events is the content-change event source. The surrounding CMS (or
// the HTTP webhook in internal/server/routes) fires events; handlers such as
// cache invalidation subscribe to them.
package events

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Event 是内容变更事件名称。
type Event string

const (
	PostSaved   Event = "post.saved"
	PostDeleted Event = "post.deleted"
	TermEdited  Event = "term.edited"
	TermDeleted Event = "term.deleted"
	MenuCreated Event = "menu.created"
	MenuUpdated Event = "menu.updated"
	MenuDeleted Event = "menu.deleted"
)

// ContentEvents 返回全部会触发缓存失效的事件。
func ContentEvents() []Event {
	return []Event{PostSaved, PostDeleted, TermEdited, TermDeleted, MenuCreated, MenuUpdated, MenuDeleted}
}

// Parse 归一化事件名称，未知事件返回 ErrUnknownEvent。
func Parse(raw string) (Event, error) {
	ev := Event(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range ContentEvents() {
		if ev == known {
			return ev, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownEvent, raw)
}

var (
	// ErrDuplicateHandler 表示同一事件上已存在同名处理器。
	ErrDuplicateHandler = errors.New("handler already registered")
	// ErrUnknownEvent 表示事件名称不在 ContentEvents 中。
	ErrUnknownEvent = errors.New("unknown event")
)

// Payload 携带触发事件的内容标识，处理器可以忽略。
type Payload struct {
	ID   string `json:"id,omitempty"`
	Kind string `json:"kind,omitempty"`
}

// Handler 处理一次事件。
type Handler func(ctx context.Context, ev Event, payload Payload) error

type named struct {
	name    string
	handler Handler
}

// Bus 按事件保存有序的处理器列表，可安全并发使用。
type Bus struct {
	mu       sync.RWMutex
	handlers map[Event][]named
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[Event][]named)}
}

// Register 为事件追加一个具名处理器，同名重复注册返回 ErrDuplicateHandler。
func (b *Bus) Register(ev Event, name string, h Handler) error {
	name = normalizeName(name)
	if name == "" {
		return errors.New("handler name required")
	}
	if h == nil {
		return errors.New("handler required")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, existing := range b.handlers[ev] {
		if existing.name == name {
			return ErrDuplicateHandler
		}
	}
	b.handlers[ev] = append(b.handlers[ev], named{name: name, handler: h})
	return nil
}

// MustRegister 在注册失败时 panic。
func (b *Bus) MustRegister(ev Event, name string, h Handler) {
	if err := b.Register(ev, name, h); err != nil {
		panic(err)
	}
}

// Fire 依次调用事件的全部处理器，单个处理器失败不影响其余处理器，错误合并返回。
func (b *Bus) Fire(ctx context.Context, ev Event, payload Payload) error {
	b.mu.RLock()
	handlers := append([]named(nil), b.handlers[ev]...)
	b.mu.RUnlock()

	var errs []error
	for _, h := range handlers {
		if err := h.handler(ctx, ev, payload); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", h.name, err))
		}
	}
	return errors.Join(errs...)
}

// Handlers 返回事件上已注册的处理器名称。
func (b *Bus) Handlers(ev Event) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.handlers[ev]))
	for _, h := range b.handlers[ev] {
		out = append(out, h.name)
	}
	return out
}

// Status 返回事件是否已有处理器：registered 或 missing。
func (b *Bus) Status(ev Event) string {
	if len(b.Handlers(ev)) > 0 {
		return "registered"
	}
	return "missing"
}

// Snapshot 返回一组事件的注册状态，供诊断接口输出。
func (b *Bus) Snapshot(evs []Event) map[string]string {
	out := make(map[string]string, len(evs))
	for _, ev := range evs {
		out[string(ev)] = b.Status(ev)
	}
	return out
}

// Events 返回已注册处理器的事件，按名称排序。
func (b *Bus) Events() []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Event, 0, len(b.handlers))
	for ev := range b.handlers {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
