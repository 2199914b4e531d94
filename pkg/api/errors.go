package api

import (
	"errors"
	"net/http"

	"github.com/swarmruntime/core/pkg/errs"
)

// statusFor maps an errs.Kind to the HTTP status it renders as,
// grounded on the teacher's errors.Is/errors.As dispatch pattern.
func statusFor(err error) int {
	kind, ok := errs.KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch kind {
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindAlreadyExists:
		return http.StatusConflict
	case errs.KindInvalidArgument, errs.KindInvalidTransition:
		return http.StatusBadRequest
	case errs.KindBlocked:
		return http.StatusConflict
	case errs.KindRateLimit, errs.KindBudgetExceeded, errs.KindConcurrency:
		return http.StatusTooManyRequests
	case errs.KindQueueFull:
		return http.StatusServiceUnavailable
	case errs.KindQueueTimeout, errs.KindProviderTimeout, errs.KindConsensusTimeout:
		return http.StatusGatewayTimeout
	case errs.KindCircuitOpen, errs.KindUnavailable:
		return http.StatusServiceUnavailable
	case errs.KindCancelled:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as a JSON error response with the mapped status.
func writeError(err error) (int, errorResponse) {
	var e *errs.Error
	if errors.As(err, &e) {
		return statusFor(err), errorResponse{Error: e.Error()}
	}
	return http.StatusInternalServerError, errorResponse{Error: "internal server error"}
}
