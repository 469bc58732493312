package services

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/altocloud-labs/icloud-cli/internal/core/domain"
	"github.com/altocloud-labs/icloud-cli/internal/core/ports/driven"
	"github.com/altocloud-labs/icloud-cli/internal/retry"
	"github.com/altocloud-labs/icloud-cli/internal/transport"
)

func apiErr(status int, body string) error {
	return transport.APIErrorFromResponse("https://example.com/x", &driven.Response{
		StatusCode: status,
		Header:     http.Header{},
		Body:       []byte(body),
	})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want retry.Class
	}{
		{"timeout", &transport.Error{Kind: transport.KindTimeout}, retry.Transient},
		{"connection", &transport.Error{Kind: transport.KindConnection}, retry.Transient},
		{"tls", &transport.Error{Kind: transport.KindTLS}, retry.Transient},
		{"unauthorized", apiErr(401, ""), retry.AuthExpired},
		{"forbidden", apiErr(403, ""), retry.AuthExpired},
		{"misdirected", apiErr(421, ""), retry.AuthExpired},
		{"stale cookies 450", apiErr(450, ""), retry.AuthExpired},
		{"500 with auth marker", apiErr(500, "Authentication required for request"), retry.AuthExpired},
		{"plain 500", apiErr(500, "internal error"), retry.Transient},
		{"bad gateway", apiErr(502, ""), retry.Transient},
		{"unavailable", apiErr(503, ""), retry.Transient},
		{"gateway timeout", apiErr(504, ""), retry.Transient},
		{"rate limited", apiErr(429, ""), retry.RateLimited},
		{"bad request", apiErr(400, ""), retry.Fatal},
		{"not found", apiErr(404, ""), retry.Fatal},
		{"format mismatch", fmt.Errorf("%w: missing field", domain.ErrFormatMismatch), retry.Fatal},
		{"session expired", domain.ErrSessionExpired, retry.AuthExpired},
		{"unknown", errors.New("mystery"), retry.Fatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestClassify_WrappedAPIError(t *testing.T) {
	wrapped := fmt.Errorf("list reminders: %w", apiErr(429, ""))
	assert.Equal(t, retry.RateLimited, Classify(wrapped))
}

func TestDecodeJSON_FormatMismatch(t *testing.T) {
	var v map[string]any
	err := DecodeJSON([]byte("<html>not json</html>"), &v)

	assert.ErrorIs(t, err, domain.ErrFormatMismatch)
}

func TestDecodeJSON_Valid(t *testing.T) {
	var v struct {
		Title string `json:"title"`
	}
	err := DecodeJSON([]byte(`{"title":"Groceries"}`), &v)

	assert.NoError(t, err)
	assert.Equal(t, "Groceries", v.Title)
}
