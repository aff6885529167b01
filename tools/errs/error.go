package errs

import (
	"errors"
	"fmt"
)

// New 创建一个不带错误码的普通错误
func New(msg string, kv ...any) error {
	return errors.New(toString(msg, kv))
}

// WrapMsg 包装下层错误并追加上下文
func WrapMsg(err error, msg string, kv ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", toString(msg, kv), err)
}

// AsCodeError 解出链路中的 CodeError；不存在返回 nil
func AsCodeError(err error) *CodeError {
	var codeErr *CodeError
	if errors.As(err, &codeErr) {
		return codeErr
	}
	return nil
}
