package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeCall(t *testing.T) {
	t.Parallel()

	body, err := encodeCall("one.vm.action", "alice:pw", "shutdown", 7, true)
	require.NoError(t, err)

	method, args, err := decodeCall(body)
	require.NoError(t, err)
	assert.Equal(t, "one.vm.action", method)
	assert.Equal(t, []any{"alice:pw", "shutdown", int64(7), true}, args)

	body, err = encodeCall("one.vn.allocate", "admin:pw", `NAME = "a<b>&c"`, -1)
	require.NoError(t, err)
	_, args, err = decodeCall(body)
	require.NoError(t, err)
	assert.Equal(t, `NAME = "a<b>&c"`, args[1])
	assert.Equal(t, int64(-1), args[2])

	_, err = encodeCall("x", 1.5)
	assert.Error(t, err)
}

func TestDecodeResponse(t *testing.T) {
	t.Parallel()

	testcases := []struct {
		name     string
		body     string
		wantOK   bool
		wantStr  string
		wantInt  int
		wantCode int
		wantErr  bool
	}{
		{
			name:    "ok with id",
			body:    okResponse("<value><int>12</int></value>"),
			wantOK:  true,
			wantInt: 12,
		},
		{
			name:     "failure with message",
			body:     failResponse("not authorized", 256),
			wantOK:   false,
			wantStr:  "not authorized",
			wantCode: 256,
		},
		{
			name:    "empty string payload",
			body:    okResponse("<value><string></string></value>"),
			wantOK:  true,
			wantStr: "",
		},
		{
			name: "fault",
			body: `<methodResponse><fault><value><struct>` +
				`<member><name>faultCode</name><value><int>4</int></value></member>` +
				`<member><name>faultString</name><value><string>too many params</string></value></member>` +
				`</struct></value></fault></methodResponse>`,
			wantOK:   false,
			wantStr:  "too many params",
			wantCode: 4,
		},
		{
			name:    "malformed",
			body:    `<methodResponse><params></params></methodResponse>`,
			wantErr: true,
		},
		{
			name:    "status is not a boolean",
			body:    `<methodResponse><params><param><value><array><data><value><int>1</int></value><value><int>2</int></value></data></array></value></param></params></methodResponse>`,
			wantErr: true,
		},
		{
			name:    "short array",
			body:    `<methodResponse><params><param><value><array><data><value><boolean>1</boolean></value></data></array></value></param></params></methodResponse>`,
			wantErr: true,
		},
	}

	for _, tc := range testcases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			resp, err := decodeResponse("m", []byte(tc.body))
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantOK, resp.OK)
			assert.Equal(t, tc.wantCode, resp.Code)
			if tc.wantInt != 0 {
				n, ok := asInt(resp.Payload)
				assert.True(t, ok)
				assert.Equal(t, tc.wantInt, n)
				return
			}
			s, ok := asString(resp.Payload)
			assert.True(t, ok)
			assert.Equal(t, tc.wantStr, s)
		})
	}
}
