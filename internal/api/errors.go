package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"snowbridge/internal/domain"
)

// errorEnvelope is the outward failure shape. The message field packs the
// human-readable error and the backend diagnostics into one string.
type errorEnvelope struct {
	ErrorCode string `json:"error_code"`
	RequestID any    `json:"request_id"`
	Message   string `json:"message"`
}

// statusFor maps a translator or executor error onto its HTTP status and
// pulls out the message and diagnostics. Unrecognized errors become 500.
func statusFor(err error) (int, string, *domain.Diagnostics) {
	var (
		badRequest   *domain.BadRequestError
		unauthorized *domain.UnauthorizedError
		forbidden    *domain.ForbiddenError
		notFound     *domain.NotFoundError
		conflict     *domain.ConflictError
		internal     *domain.InternalError
		badGateway   *domain.BadGatewayError
		unavailable  *domain.UnavailableError
		timeout      *domain.GatewayTimeoutError
	)
	switch {
	case errors.As(err, &badRequest):
		return http.StatusBadRequest, badRequest.Message, badRequest.Diag
	case errors.As(err, &unauthorized):
		return http.StatusUnauthorized, unauthorized.Message, unauthorized.Diag
	case errors.As(err, &forbidden):
		return http.StatusForbidden, forbidden.Message, forbidden.Diag
	case errors.As(err, &notFound):
		return http.StatusNotFound, notFound.Message, notFound.Diag
	case errors.As(err, &conflict):
		return http.StatusConflict, conflict.Message, conflict.Diag
	case errors.As(err, &badGateway):
		return http.StatusBadGateway, badGateway.Message, badGateway.Diag
	case errors.As(err, &unavailable):
		return http.StatusServiceUnavailable, unavailable.Message, unavailable.Diag
	case errors.As(err, &timeout):
		return http.StatusGatewayTimeout, timeout.Message, timeout.Diag
	case errors.As(err, &internal):
		return http.StatusInternalServerError, internal.Message, internal.Diag
	default:
		return http.StatusInternalServerError, err.Error(), nil
	}
}

// writeError renders the failure envelope for a translator error.
func writeError(w http.ResponseWriter, err error) {
	status, msg, diag := statusFor(err)
	details := ""
	if diag != nil {
		if data, jsonErr := json.Marshal(diag); jsonErr == nil {
			details = string(data)
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{
		ErrorCode: strconv.Itoa(status),
		RequestID: nil,
		Message:   fmt.Sprintf("{error: %q, details: %q}", msg, details),
	})
}
