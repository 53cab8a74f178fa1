package biz

import (
	"fmt"

	"github.com/go-kratos/kratos/v2/errors"
)

// 错误原因
const (
	ReasonStreamNotFound     = "STREAM_NOT_FOUND"
	ReasonStreamExists       = "STREAM_EXISTS"
	ReasonInvalidStreamName  = "INVALID_STREAM_NAME"
	ReasonInvalidDrawSpec    = "INVALID_DRAW_SPEC"
	ReasonTooManyDraws       = "TOO_MANY_DRAWS"
	ReasonCheckpointNotFound = "CHECKPOINT_NOT_FOUND"
)

// 错误定义
var (
	ErrStreamNotFound     = errors.NotFound(ReasonStreamNotFound, "stream not found")
	ErrStreamExists       = errors.Conflict(ReasonStreamExists, "stream already exists")
	ErrInvalidStreamName  = errors.BadRequest(ReasonInvalidStreamName, "invalid stream name")
	ErrInvalidDrawSpec    = errors.BadRequest(ReasonInvalidDrawSpec, "invalid draw spec")
	ErrTooManyDraws       = errors.BadRequest(ReasonTooManyDraws, "too many draws")
	ErrCheckpointNotFound = errors.NotFound(ReasonCheckpointNotFound, "checkpoint not found")
)

func invalidDrawSpec(format string, a ...interface{}) error {
	return errors.BadRequest(ReasonInvalidDrawSpec, fmt.Sprintf(format, a...))
}

func tooManyDraws(format string, a ...interface{}) error {
	return errors.BadRequest(ReasonTooManyDraws, fmt.Sprintf(format, a...))
}
