package router

import (
	"context"
	"net/http"

	"github.com/boxraffle/backend/pkg/logger"
	"github.com/boxraffle/backend/pkg/xcontext"
)

// Context is what closers receive after the response is written.
type Context interface {
	context.Context

	Request() *http.Request
	Writer() http.ResponseWriter
	Logger() logger.Logger

	// Error returns the error the handler (or a middleware) finished with,
	// or nil on success.
	Error() error
}

type closerContext struct {
	context.Context

	r   *http.Request
	w   http.ResponseWriter
	err error
}

func (ctx *closerContext) Request() *http.Request {
	return ctx.r
}

func (ctx *closerContext) Writer() http.ResponseWriter {
	return ctx.w
}

func (ctx *closerContext) Logger() logger.Logger {
	return xcontext.Logger(ctx.Context)
}

func (ctx *closerContext) Error() error {
	return ctx.err
}
