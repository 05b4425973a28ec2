package orchestrator

import (
	"errors"
	"fmt"

	"github.com/kolo/xmlrpc"
)

// encodeCall 编码一次方法调用，参数只会是 string、int、bool
func encodeCall(method string, args ...any) ([]byte, error) {
	for _, a := range args {
		switch a.(type) {
		case string, int, bool:
		default:
			return nil, fmt.Errorf("unsupported xml-rpc argument type %T", a)
		}
	}
	body, err := xmlrpc.EncodeMethodCall(method, args...)
	if err != nil {
		return nil, fmt.Errorf("encode method call: %w", err)
	}
	return body, nil
}

// asString 空值按空字符串处理
func asString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case nil:
		return "", true
	}
	return "", false
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int64:
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}

// response 编排器的统一返回结构 [ok, payload|message, code]
type response struct {
	OK      bool
	Payload any
	Code    int
}

func decodeResponse(method string, body []byte) (*response, error) {
	resp := xmlrpc.Response(body)
	if err := resp.Err(); err != nil {
		var fault xmlrpc.FaultError
		if !errors.As(err, &fault) {
			return nil, fmt.Errorf("decode fault of %s: %w", method, err)
		}
		return &response{OK: false, Payload: fault.String, Code: fault.Code}, nil
	}

	var data []any
	if err := resp.Unmarshal(&data); err != nil {
		return nil, fmt.Errorf("decode method response of %s: %w", method, err)
	}
	if len(data) < 2 {
		return nil, fmt.Errorf("unexpected response length %d for %s", len(data), method)
	}

	ok, valid := data[0].(bool)
	if !valid {
		return nil, fmt.Errorf("response status of %s is not a boolean", method)
	}
	r := &response{OK: ok, Payload: data[1]}
	if len(data) > 2 {
		r.Code, _ = asInt(data[2])
	}
	return r, nil
}
