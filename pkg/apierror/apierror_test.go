package apierror_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jimyag/zcp/pkg/apierror"
	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		testFunc func(*testing.T)
	}{
		{
			name: "Error_Error",
			testFunc: func(t *testing.T) {
				t.Parallel()
				err := apierror.NewError("TestError", "test message")
				assert.Equal(t, "[TestError] test message", err.Error())
			},
		},
		{
			name: "Error_Error_WithRawError",
			testFunc: func(t *testing.T) {
				t.Parallel()
				err := apierror.NewErrorWithRaw("TestError", "test message", fmt.Errorf("raw error"))
				assert.Equal(t, "[TestError] test message (RawError: raw error)", err.Error())
			},
		},
		{
			name: "Error_Is_Taxonomy",
			testFunc: func(t *testing.T) {
				t.Parallel()
				err := apierror.New(apierror.ErrNotFound, "Zone[z1] not found")
				assert.True(t, errors.Is(err, apierror.ErrNotFound))
				assert.False(t, errors.Is(err, apierror.ErrConflict))
			},
		},
		{
			name: "Error_Is_ThroughWrap",
			testFunc: func(t *testing.T) {
				t.Parallel()
				err := fmt.Errorf("allocate vm: %w", apierror.New(apierror.ErrQuotaExceeded, "quota"))
				assert.True(t, errors.Is(err, apierror.ErrQuotaExceeded))
			},
		},
		{
			name: "Error_Unwrap_WithRawError",
			testFunc: func(t *testing.T) {
				t.Parallel()
				rawErr := fmt.Errorf("raw error")
				err := apierror.WrapError(apierror.ErrInternalError, "test message", rawErr)
				assert.Equal(t, rawErr, errors.Unwrap(err))
			},
		},
		{
			name: "Error_JSON_Marshal_ExcludesRawError",
			testFunc: func(t *testing.T) {
				t.Parallel()
				err := apierror.NewErrorWithRaw("TestError", "test message", fmt.Errorf("raw error"))
				jsonData, marshalErr := json.Marshal(err)
				assert.NoError(t, marshalErr)
				assert.NotContains(t, string(jsonData), "raw error")
				assert.Contains(t, string(jsonData), `"code":"TestError"`)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, tt.testFunc)
	}
}

func TestMessage(t *testing.T) {
	t.Parallel()

	testcases := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "plain error", err: errors.New("plain"), want: "plain"},
		{
			name: "api error",
			err:  apierror.Newf(apierror.ErrPermissionDenied, "%s don't have permission to use Zone[%s]", "alice", "z1"),
			want: "alice don't have permission to use Zone[z1]",
		},
		{
			name: "wrapped api error",
			err:  fmt.Errorf("outer: %w", apierror.New(apierror.ErrProtocol, "session already done")),
			want: "session already done",
		},
	}

	for _, tc := range testcases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, apierror.Message(tc.err))
		})
	}
}

func TestStatus(t *testing.T) {
	t.Parallel()

	assert.Equal(t, http.StatusNotFound, apierror.Status(apierror.New(apierror.ErrNotFound, "x")))
	assert.Equal(t, http.StatusInternalServerError, apierror.Status(errors.New("x")))
}
