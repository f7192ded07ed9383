package router

import (
	"encoding/json"
	"net/http"

	"github.com/boxraffle/backend/pkg/errorx"
	"github.com/boxraffle/backend/pkg/xcontext"
	"github.com/mitchellh/mapstructure"
)

func wrapHandler[Request, Response any](
	router *Router,
	method string,
	handler HandlerFunc[Request, Response],
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = xcontext.WithConfigs(ctx, router.cfg)
		ctx = xcontext.WithLogger(ctx, router.logger)
		ctx = xcontext.WithDB(ctx, router.db)
		ctx = xcontext.WithSnowFlake(ctx, router.snowflake)
		ctx = xcontext.WithHTTPRequest(ctx, r)

		var handlerErr error
		defer func() {
			closerCtx := &closerContext{Context: ctx, r: r, w: w, err: handlerErr}
			for _, closer := range router.closers {
				closer(closerCtx)
			}
		}()

		if r.Method != method {
			handlerErr = errorx.New(errorx.BadRequest, "Not supported method %s", r.Method)
			writeJSON(w, newErrorResponse(handlerErr))
			return
		}

		for _, m := range router.befores {
			newCtx, err := m(ctx)
			if err != nil {
				handlerErr = err
				writeJSON(w, newErrorResponse(err))
				return
			}
			ctx = newCtx
		}

		req := new(Request)
		if err := decodeRequest(r, method, req); err != nil {
			handlerErr = errorx.New(errorx.BadRequest, "Cannot decode request")
			writeJSON(w, newErrorResponse(handlerErr))
			return
		}

		resp, err := handler(ctx, req)
		if err != nil {
			handlerErr = err
			writeJSON(w, newErrorResponse(err))
			return
		}

		for _, m := range router.afters {
			newCtx, err := m(ctx)
			if err != nil {
				handlerErr = err
				writeJSON(w, newErrorResponse(err))
				return
			}
			ctx = newCtx
		}

		writeJSON(w, newSuccessResponse(resp))
	}
}

// decodeRequest binds the query string for GET requests and the JSON body
// for POST requests onto the typed request struct.
func decodeRequest(r *http.Request, method string, req any) error {
	if method == http.MethodGet {
		values := map[string]string{}
		for key := range r.URL.Query() {
			values[key] = r.URL.Query().Get(key)
		}

		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           req,
			TagName:          "json",
			WeaklyTypedInput: true,
		})
		if err != nil {
			return err
		}

		return decoder.Decode(values)
	}

	return json.NewDecoder(r.Body).Decode(req)
}

func writeJSON(w http.ResponseWriter, resp response) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
