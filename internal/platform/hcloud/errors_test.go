package hcloud

import (
	"errors"
	"net/http"
	"testing"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/cloudbroker/internal/platform/cloudapi"
)

func TestAPIError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{
			name:    "not found",
			err:     hcloud.Error{Code: hcloud.ErrorCodeNotFound, Message: "server not found"},
			status:  http.StatusNotFound,
			message: "server not found",
		},
		{
			name:    "invalid input",
			err:     hcloud.Error{Code: hcloud.ErrorCodeInvalidInput, Message: "invalid name"},
			status:  http.StatusBadRequest,
			message: "invalid name",
		},
		{
			name:    "locked",
			err:     hcloud.Error{Code: hcloud.ErrorCodeLocked, Message: "locked"},
			status:  http.StatusConflict,
			message: "locked",
		},
		{
			name:    "resource limit",
			err:     hcloud.Error{Code: "resource_limit_exceeded", Message: "floating_ip limit reached"},
			status:  http.StatusForbidden,
			message: "Quota exceeded: floating_ip limit reached",
		},
		{
			name:    "rate limit",
			err:     hcloud.Error{Code: hcloud.ErrorCodeRateLimitExceeded, Message: "slow down"},
			status:  http.StatusTooManyRequests,
			message: "slow down",
		},
		{
			name:    "unknown code",
			err:     hcloud.Error{Code: "maintenance", Message: "try later"},
			status:  http.StatusInternalServerError,
			message: "try later",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := apiError("op", tt.err)
			var apiErr *cloudapi.Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.message, apiErr.Message)
		})
	}
}

func TestAPIError_Transport(t *testing.T) {
	t.Parallel()
	cause := errors.New("connection refused")
	err := apiError("list servers", cause)

	var transport *cloudapi.TransportError
	require.ErrorAs(t, err, &transport)
	assert.Equal(t, "list servers", transport.Op)
	assert.ErrorIs(t, err, cause)
	assert.Zero(t, cloudapi.StatusCode(err))
}

func TestAPIError_Nil(t *testing.T) {
	t.Parallel()
	assert.NoError(t, apiError("op", nil))
}

func TestNotFound(t *testing.T) {
	t.Parallel()
	err := notFound("Volume", "12")
	assert.True(t, cloudapi.IsNotFound(err))
	assert.EqualError(t, err, "404: Volume 12 could not be found.")
}
