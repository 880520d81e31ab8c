// Package verifier authenticates inbound payment-provider webhooks against the
// raw request body and decodes them into provider-specific events.
package verifier

import (
	"errors"
	"net/http"

	"github.com/akylbek/payment-system/webhook-ingestor/internal/models"
)

var (
	ErrMissingSignatureHeader = errors.New("missing signature header")
	ErrSignatureMismatch      = errors.New("signature mismatch")
	ErrMalformedPayload       = errors.New("malformed payload")
)

// Event is a verified provider notification. The set of implementations is
// closed: *StripeEvent and *SquareEvent.
type Event interface {
	Provider() models.Provider
	EventID() string
	EventType() string
	// Payload is the verified request body, byte for byte.
	Payload() []byte

	sealed()
}

// Verifier checks a raw body and its headers and returns the decoded event.
type Verifier interface {
	Provider() models.Provider
	Verify(rawBody []byte, headers http.Header) (Event, error)
}

// RejectionStatus maps a verification failure to the HTTP status the
// provider should see.
func RejectionStatus(provider models.Provider, err error) int {
	if provider == models.ProviderSquare && errors.Is(err, ErrSignatureMismatch) {
		return http.StatusUnauthorized
	}
	return http.StatusBadRequest
}

// Reason is a short metrics label for a verification failure.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrMissingSignatureHeader):
		return "missing_signature"
	case errors.Is(err, ErrSignatureMismatch):
		return "signature_mismatch"
	case errors.Is(err, ErrMalformedPayload):
		return "malformed_payload"
	default:
		return "unknown"
	}
}
