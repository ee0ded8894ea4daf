package gorouter

import (
	"context"

	router "github.com/goliatone/go-router"
)

// Request is the part of router.Context the dashboard handlers rely on.
type Request interface {
	Context() context.Context
	Body() []byte
	Param(name string, defaultValue ...string) string
	Query(name string, defaultValue ...string) string
	Locals(key any, value ...any) any
	SetHeader(key, value string) router.Context
	Send(body []byte) error
	JSON(code int, v any) error
}

// Stream is a push channel to one client.
type Stream interface {
	Context() context.Context
	WriteJSON(v any) error
	Close() error
}

// Handler serves one dashboard endpoint.
type Handler func(Request) error

// Registrar receives dashboard routes. FromRouter adapts a go-router router.
type Registrar interface {
	Get(path string, handler Handler)
	Post(path string, handler Handler)
	Delete(path string, handler Handler)
	Stream(path string, handler func(Stream) error)
}

// FromRouter adapts a go-router router (typically a group) into a Registrar.
func FromRouter[T any](r router.Router[T]) Registrar {
	return routerRegistrar[T]{r: r}
}

type routerRegistrar[T any] struct {
	r router.Router[T]
}

func wrap(h Handler) router.HandlerFunc {
	return router.WrapHandler(func(ctx router.Context) error { return h(ctx) })
}

func (a routerRegistrar[T]) Get(path string, h Handler)    { a.r.Get(path, wrap(h)) }
func (a routerRegistrar[T]) Post(path string, h Handler)   { a.r.Post(path, wrap(h)) }
func (a routerRegistrar[T]) Delete(path string, h Handler) { a.r.Delete(path, wrap(h)) }

func (a routerRegistrar[T]) Stream(path string, h func(Stream) error) {
	a.r.WebSocket(path, router.DefaultWebSocketConfig(), func(ws router.WebSocketContext) error {
		return h(ws)
	})
}
