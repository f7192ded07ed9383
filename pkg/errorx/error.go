package errorx

import "fmt"

type Error struct {
	Code    uint64
	Message string
}

func (e Error) Error() string {
	return e.Message
}

func New(code Code, format string, a ...any) Error {
	return Error{Code: uint64(code), Message: fmt.Sprintf(format, a...)}
}
