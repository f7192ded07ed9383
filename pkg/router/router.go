package router

import (
	"context"
	"net/http"

	"github.com/boxraffle/backend/config"
	"github.com/boxraffle/backend/pkg/logger"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// HandlerFunc is the shape of every domain endpoint: a typed request in, a
// typed response out.
type HandlerFunc[Request, Response any] func(ctx context.Context, req *Request) (*Response, error)

// MiddlewareFunc runs before (or after) the handler and may extend the
// context. Returning an error aborts the request.
type MiddlewareFunc func(ctx context.Context) (context.Context, error)

// CloserFunc runs after the response has been written, regardless of the
// handler outcome.
type CloserFunc func(ctx Context)

type Router struct {
	mux *http.ServeMux

	cfg       config.Configs
	db        *gorm.DB
	logger    logger.Logger
	snowflake *snowflake.Node

	befores []MiddlewareFunc
	afters  []MiddlewareFunc
	closers []CloserFunc
}

func New(db *gorm.DB, cfg config.Configs, logger logger.Logger, snowflake *snowflake.Node) *Router {
	return &Router{
		mux:       http.NewServeMux(),
		cfg:       cfg,
		db:        db,
		logger:    logger,
		snowflake: snowflake,
	}
}

// Branch creates a router sharing the same mux but with an independent
// middleware chain, seeded with the current one.
func (r *Router) Branch() *Router {
	return &Router{
		mux:       r.mux,
		cfg:       r.cfg,
		db:        r.db,
		logger:    r.logger,
		snowflake: r.snowflake,
		befores:   append([]MiddlewareFunc{}, r.befores...),
		afters:    append([]MiddlewareFunc{}, r.afters...),
		closers:   append([]CloserFunc{}, r.closers...),
	}
}

func (r *Router) Before(m MiddlewareFunc) {
	r.befores = append(r.befores, m)
}

func (r *Router) After(m MiddlewareFunc) {
	r.afters = append(r.afters, m)
}

func (r *Router) AddCloser(c CloserFunc) {
	r.closers = append(r.closers, c)
}

func (r *Router) Handler() http.Handler {
	return r.mux
}

func GET[Request, Response any](r *Router, pattern string, handler HandlerFunc[Request, Response]) {
	r.mux.HandleFunc(pattern, wrapHandler(r, http.MethodGet, handler))
}

func POST[Request, Response any](r *Router, pattern string, handler HandlerFunc[Request, Response]) {
	r.mux.HandleFunc(pattern, wrapHandler(r, http.MethodPost, handler))
}
