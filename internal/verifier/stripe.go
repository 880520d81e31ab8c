package verifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/akylbek/payment-system/webhook-ingestor/internal/models"
)

const StripeSignatureHeader = "Stripe-Signature"

// StripeEvent wraps a verified stripe.Event together with the bytes it was
// verified against.
type StripeEvent struct {
	Event stripe.Event
	raw   []byte
}

func (e *StripeEvent) Provider() models.Provider { return models.ProviderStripe }
func (e *StripeEvent) EventID() string           { return e.Event.ID }
func (e *StripeEvent) EventType() string         { return string(e.Event.Type) }
func (e *StripeEvent) Payload() []byte           { return e.raw }
func (e *StripeEvent) sealed()                   {}

// DecodeObject unmarshals data.object into a typed Stripe resource such as
// stripe.PaymentIntent, stripe.Charge or stripe.CheckoutSession.
func (e *StripeEvent) DecodeObject(v interface{}) error {
	if e.Event.Data == nil || len(e.Event.Data.Raw) == 0 {
		return fmt.Errorf("%w: event %s has no data object", ErrMalformedPayload, e.Event.ID)
	}
	if err := json.Unmarshal(e.Event.Data.Raw, v); err != nil {
		return fmt.Errorf("%w: decode %s object: %v", ErrMalformedPayload, e.Event.Type, err)
	}
	return nil
}

type StripeVerifier struct {
	secret string
}

func NewStripeVerifier(secret string) *StripeVerifier {
	return &StripeVerifier{secret: secret}
}

func (v *StripeVerifier) Provider() models.Provider { return models.ProviderStripe }

// Verify checks the signed timestamp and HMAC in the Stripe-Signature header
// against the untouched request body.
func (v *StripeVerifier) Verify(rawBody []byte, headers http.Header) (Event, error) {
	signature := strings.TrimSpace(headers.Get(StripeSignatureHeader))
	if signature == "" {
		return nil, ErrMissingSignatureHeader
	}

	event, err := webhook.ConstructEventWithOptions(rawBody, signature, v.secret, webhook.ConstructEventOptions{
		Tolerance:                webhook.DefaultTolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		if isStripeSignatureError(err) {
			return nil, fmt.Errorf("%w: %v", ErrSignatureMismatch, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if event.ID == "" || event.Type == "" {
		return nil, fmt.Errorf("%w: event id and type are required", ErrMalformedPayload)
	}

	return &StripeEvent{Event: event, raw: rawBody}, nil
}

func isStripeSignatureError(err error) bool {
	return errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrTooOld)
}
