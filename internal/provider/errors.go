package provider

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/cloudbroker/internal/cloud"
	"github.com/imamik/cloudbroker/internal/platform/cloudapi"
)

const (
	msgQuotaExceeded   = "Requested operation would exceed at least one quota. Please check your tenancy quotas."
	msgSessionExpired  = "Your session has expired."
	msgPermission      = "Permission denied."
	msgUnknownAPIError = "Unknown error with cloud API."
	msgUnreachable     = "Could not connect to cloud API."
	msgTimedOut        = "Operation timed out."
)

// resourceNames rewrites vendor vocabulary in error text.
var resourceNames = strings.NewReplacer(
	"instance", "machine",
	"Instance", "Machine",
	"flavorRef", "size",
	"flavor", "size",
	"Flavor", "Size",
)

// do runs one public operation: it translates any failure into a domain
// error exactly once, records metrics and logs the outcome.
func do[T any](ctx context.Context, log logr.Logger, op string, fn func() (T, error)) (T, error) {
	start := time.Now()
	result, err := fn()
	err = translate(ctx, log, err)
	observe(op, err, time.Since(start))
	if err != nil {
		log.Info("Operation failed", "operation", op, "kind", cloud.KindOf(err).String(), "reason", err.Error())
		var zero T
		return zero, err
	}
	log.V(1).Info("Operation succeeded", "operation", op)
	return result, nil
}

// translate maps a raw failure onto the domain taxonomy. Domain errors pass
// through unchanged.
func translate(ctx context.Context, log logr.Logger, err error) error {
	if err == nil || cloud.IsDomainError(err) {
		return err
	}
	var unsupported *cloudapi.ServiceNotSupportedError
	if errors.As(err, &unsupported) {
		return cloud.WrapError(cloud.KindUnsupportedOperation, err, capitalize(unsupported.Error())+".")
	}
	var apiErr *cloudapi.Error
	if errors.As(err, &apiErr) {
		return translateAPIError(apiErr)
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return cloud.WrapError(cloud.KindOperationTimedOut, err, msgTimedOut)
	}
	log.Error(err, msgUnreachable)
	return cloud.WrapError(cloud.KindCommunication, err, msgUnreachable)
}

func translateAPIError(apiErr *cloudapi.Error) error {
	message := resourceNames.Replace(apiErr.Message)
	status := apiErr.StatusCode
	switch status {
	case http.StatusBadRequest:
		return cloud.WrapError(cloud.KindBadInput, apiErr, message)
	case http.StatusUnauthorized:
		return cloud.WrapError(cloud.KindAuthentication, apiErr, msgSessionExpired)
	case http.StatusForbidden:
		if isQuotaExceeded(status, message) {
			return cloud.WrapError(cloud.KindQuotaExceeded, apiErr, msgQuotaExceeded)
		}
		return cloud.WrapError(cloud.KindPermissionDenied, apiErr, msgPermission)
	case http.StatusNotFound:
		return cloud.WrapError(cloud.KindObjectNotFound, apiErr, message)
	case http.StatusConflict:
		if isQuotaExceeded(status, message) {
			return cloud.WrapError(cloud.KindQuotaExceeded, apiErr, msgQuotaExceeded)
		}
		return cloud.WrapError(cloud.KindInvalidOperation, apiErr, message)
	case http.StatusRequestEntityTooLarge:
		if isQuotaExceeded(status, message) {
			return cloud.WrapError(cloud.KindQuotaExceeded, apiErr, msgQuotaExceeded)
		}
	}
	return cloud.WrapError(cloud.KindCommunication, apiErr, msgUnknownAPIError)
}

// isQuotaExceeded reports whether an API failure is a quota failure in
// disguise. Vendors use 403 and 409 with "exceeded" in the text, and the
// volume service uses 413 with "exceedsavailablequota".
func isQuotaExceeded(status int, message string) bool {
	message = strings.ToLower(message)
	switch status {
	case http.StatusForbidden, http.StatusConflict:
		return strings.Contains(message, "exceeded")
	case http.StatusRequestEntityTooLarge:
		return strings.Contains(message, "exceedsavailablequota")
	default:
		return false
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
