package router

import (
	"errors"

	"github.com/boxraffle/backend/pkg/errorx"
)

type response struct {
	Code  uint64 `json:"code"`
	Error string `json:"error,omitempty"`
	Data  any    `json:"data,omitempty"`
}

func newSuccessResponse(data any) response {
	return response{Code: 0, Data: data}
}

func newErrorResponse(err error) response {
	var errx errorx.Error
	if !errors.As(err, &errx) {
		errx = errorx.Unknown
	}

	return response{Code: errx.Code, Error: errx.Message}
}
