package hcloud

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/cloudbroker/internal/platform/cloudapi"
)

// errorCodeResourceLimitExceeded is returned when a project limit is hit.
const errorCodeResourceLimitExceeded = hcloud.ErrorCode("resource_limit_exceeded")

// statusByCode maps hcloud error codes onto the HTTP status the cloud API
// contract uses for the same condition.
var statusByCode = map[hcloud.ErrorCode]int{
	hcloud.ErrorCodeNotFound:             http.StatusNotFound,
	hcloud.ErrorCode("unauthorized"):     http.StatusUnauthorized,
	hcloud.ErrorCode("forbidden"):        http.StatusForbidden,
	hcloud.ErrorCodeInvalidInput:         http.StatusBadRequest,
	hcloud.ErrorCode("json_error"):       http.StatusBadRequest,
	hcloud.ErrorCodeInvalidServerType:    http.StatusBadRequest,
	hcloud.ErrorCode("uniqueness_error"): http.StatusConflict,
	hcloud.ErrorCodeConflict:             http.StatusConflict,
	hcloud.ErrorCodeLocked:               http.StatusConflict,
	hcloud.ErrorCodeResourceLocked:       http.StatusConflict,
	hcloud.ErrorCodeResourceInUse:        http.StatusConflict,
	hcloud.ErrorCodeResourceUnavailable:  http.StatusConflict,
	hcloud.ErrorCodeRateLimitExceeded:    http.StatusTooManyRequests,
	errorCodeResourceLimitExceeded:       http.StatusForbidden,
}

// apiError translates an error returned by hcloud-go. API errors become
// *cloudapi.Error; anything else failed before an answer arrived and becomes
// a *cloudapi.TransportError.
func apiError(op string, err error) error {
	if err == nil {
		return nil
	}
	var hcloudErr hcloud.Error
	if !errors.As(err, &hcloudErr) {
		return &cloudapi.TransportError{Op: op, Err: err}
	}
	status, ok := statusByCode[hcloudErr.Code]
	if !ok {
		status = http.StatusInternalServerError
	}
	message := hcloudErr.Message
	if hcloudErr.Code == errorCodeResourceLimitExceeded {
		message = "Quota exceeded: " + message
	}
	return cloudapi.NewError(status, "%s", message)
}

// notFound reports a missing resource the way the cloud API contract does.
func notFound(kind string, id any) error {
	return cloudapi.NotFound("%s %v could not be found.", kind, id)
}

// badRequest reports input the backend cannot map onto Hetzner Cloud.
func badRequest(format string, args ...any) error {
	return cloudapi.NewError(http.StatusBadRequest, format, args...)
}

// waitFor waits for the actions of an accepted request.
func (s *scoped) waitFor(ctx context.Context, op string, actions ...*hcloud.Action) error {
	var pending []*hcloud.Action
	for _, a := range actions {
		if a != nil {
			pending = append(pending, a)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	if err := s.client.Action.WaitFor(ctx, pending...); err != nil {
		var actionErr hcloud.ActionError
		if errors.As(err, &actionErr) {
			return cloudapi.NewError(http.StatusConflict, "%s failed: %s", op, actionErr.Message)
		}
		return apiError(op, fmt.Errorf("waiting for %s: %w", op, err))
	}
	return nil
}
