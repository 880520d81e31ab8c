package verifier

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/akylbek/payment-system/webhook-ingestor/internal/models"
)

const (
	SquareSignatureHeader = "X-Square-Hmacsha256-Signature"

	SquareEventPaymentCreated = "payment.created"
	SquareEventPaymentUpdated = "payment.updated"

	SquarePaymentStatusCompleted = "COMPLETED"
)

// SquareEvent is the notification envelope Square posts for payment events.
type SquareEvent struct {
	MerchantID string          `json:"merchant_id"`
	Type       string          `json:"type"`
	ID         string          `json:"event_id"`
	CreatedAt  string          `json:"created_at"`
	Data       SquareEventData `json:"data"`

	raw []byte
}

type SquareEventData struct {
	Type   string             `json:"type"`
	ID     string             `json:"id"`
	Object *SquareEventObject `json:"object,omitempty"`
}

type SquareEventObject struct {
	Payment *SquarePayment `json:"payment,omitempty"`
}

type SquarePayment struct {
	ID                string         `json:"id"`
	Status            string         `json:"status"`
	AmountMoney       SquareMoney    `json:"amount_money"`
	TotalMoney        *SquareMoney   `json:"total_money,omitempty"`
	SourceType        string         `json:"source_type,omitempty"`
	OrderID           string         `json:"order_id,omitempty"`
	ReceiptNumber     string         `json:"receipt_number,omitempty"`
	ReceiptURL        string         `json:"receipt_url,omitempty"`
	BuyerEmailAddress string         `json:"buyer_email_address,omitempty"`
	BillingAddress    *SquareAddress `json:"billing_address,omitempty"`
	ShippingAddress   *SquareAddress `json:"shipping_address,omitempty"`
}

type SquareMoney struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type SquareAddress struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

func (a *SquareAddress) FullName() string {
	if a == nil {
		return ""
	}
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

func (e *SquareEvent) Provider() models.Provider { return models.ProviderSquare }
func (e *SquareEvent) EventID() string           { return e.ID }
func (e *SquareEvent) EventType() string         { return e.Type }
func (e *SquareEvent) Payload() []byte           { return e.raw }
func (e *SquareEvent) sealed()                   {}

// Payment returns the embedded payment object, or nil when the event does
// not carry one.
func (e *SquareEvent) Payment() *SquarePayment {
	if e.Data.Object == nil {
		return nil
	}
	return e.Data.Object.Payment
}

type SquareVerifier struct {
	signatureKey    []byte
	notificationURL string
}

// NewSquareVerifier takes the subscription signature key and the exact
// notification URL registered with Square; both are part of the signature.
func NewSquareVerifier(signatureKey, notificationURL string) *SquareVerifier {
	return &SquareVerifier{
		signatureKey:    []byte(signatureKey),
		notificationURL: notificationURL,
	}
}

func (v *SquareVerifier) Provider() models.Provider { return models.ProviderSquare }

func (v *SquareVerifier) Verify(rawBody []byte, headers http.Header) (Event, error) {
	signature := strings.TrimSpace(headers.Get(SquareSignatureHeader))
	if signature == "" {
		return nil, ErrMissingSignatureHeader
	}

	expected := v.Sign(rawBody)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return nil, ErrSignatureMismatch
	}

	var event SquareEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if event.ID == "" || event.Type == "" {
		return nil, fmt.Errorf("%w: event_id and type are required", ErrMalformedPayload)
	}
	event.raw = rawBody

	return &event, nil
}

// Sign computes base64(HMAC-SHA256(key, notificationURL || body)).
func (v *SquareVerifier) Sign(rawBody []byte) string {
	mac := hmac.New(sha256.New, v.signatureKey)
	mac.Write([]byte(v.notificationURL))
	mac.Write(rawBody)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
