package orchestrator

import (
	"errors"
	"fmt"
)

// ErrCallFailed 外部编排器返回 ok=false
var ErrCallFailed = errors.New("orchestrator call failed")

// CallError 外部编排器返回的失败
type CallError struct {
	Method  string
	Message string
	Code    int
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s: %s", e.Method, e.Message)
}

// Is 使 errors.Is(err, ErrCallFailed) 成立
func (e *CallError) Is(target error) bool {
	return target == ErrCallFailed
}

// TransportError 网络或编解码错误，调用结果未知
type TransportError struct {
	Method string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport: %v", e.Method, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RemoteMessage 返回外部编排器的原始消息，非 CallError 时返回 err.Error()
func RemoteMessage(err error) string {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Message
	}
	return err.Error()
}
