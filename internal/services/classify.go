package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/altocloud-labs/icloud-cli/internal/core/domain"
	"github.com/altocloud-labs/icloud-cli/internal/retry"
	"github.com/altocloud-labs/icloud-cli/internal/transport"
)

// authRequiredMarker appears in 500 bodies when the service wants a
// fresh service handshake rather than reporting a real server fault.
const authRequiredMarker = "Authentication required"

// Classify maps a call failure to its retry class. The mapping is the
// single place where status codes and transport failures turn into
// retry behaviour.
func Classify(err error) retry.Class {
	switch {
	case errors.Is(err, domain.ErrFormatMismatch):
		return retry.Fatal
	case errors.Is(err, domain.ErrSessionExpired):
		return retry.AuthExpired
	case transport.IsTimeout(err),
		transport.IsConnectionFailure(err),
		transport.IsTLSFailure(err):
		return retry.Transient
	}

	var apiErr *transport.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return retry.AuthExpired
		case http.StatusMisdirectedRequest, 450:
			// The service reports stale service cookies with these
			// instead of a plain 401.
			return retry.AuthExpired
		case http.StatusTooManyRequests:
			return retry.RateLimited
		case http.StatusInternalServerError:
			if strings.Contains(apiErr.Body, authRequiredMarker) {
				return retry.AuthExpired
			}
			return retry.Transient
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return retry.Transient
		default:
			return retry.Fatal
		}
	}

	return retry.Fatal
}

// DecodeJSON unmarshals a response body, reporting parse failures as
// the terminal format-mismatch condition: a body we cannot decode will
// not decode better on retry.
func DecodeJSON(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrFormatMismatch, err)
	}
	return nil
}
