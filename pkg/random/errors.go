package random

import (
	"fmt"

	"github.com/go-kratos/kratos/v2/errors"
)

// 错误原因，供调用方通过 errors.Reason 判断
const (
	ReasonInvalidSeed      = "INVALID_SEED"
	ReasonInvalidArguments = "INVALID_ARGUMENTS"
	ReasonInvalidRange     = "INVALID_RANGE"
	ReasonEmptyCollection  = "EMPTY_COLLECTION"
)

// 错误定义
// 所有校验都发生在工厂方法调用时，采样函数本身不会失败
var (
	ErrInvalidSeed      = errors.BadRequest(ReasonInvalidSeed, "seed must be a non-empty string")
	ErrInvalidArguments = errors.BadRequest(ReasonInvalidArguments, "invalid arguments")
	ErrInvalidRange     = errors.BadRequest(ReasonInvalidRange, "invalid range")
	ErrEmptyCollection  = errors.BadRequest(ReasonEmptyCollection, "collection must not be empty")
)

// invalidArguments 返回带具体信息的 ErrInvalidArguments，errors.Is 仍然成立
func invalidArguments(format string, a ...interface{}) error {
	return errors.BadRequest(ReasonInvalidArguments, fmt.Sprintf(format, a...))
}

func invalidRange(format string, a ...interface{}) error {
	return errors.BadRequest(ReasonInvalidRange, fmt.Sprintf(format, a...))
}
