package payments

import (
	"context"

	"github.com/shopspring/decimal"
)

// IntentStatus mirrors the gateway-side state of a payment intent.
type IntentStatus string

const (
	IntentStatusRequiresPaymentMethod IntentStatus = "requires_payment_method"
	IntentStatusRequiresAction        IntentStatus = "requires_action"
	IntentStatusProcessing            IntentStatus = "processing"
	IntentStatusSucceeded             IntentStatus = "succeeded"
	IntentStatusCanceled              IntentStatus = "canceled"
)

// Intent is the gateway's view of a payment.
type Intent struct {
	ID           string
	ClientSecret string
	Status       IntentStatus
}

// CreateIntentParams carries everything the gateway needs to open an intent.
// Amount is in major units; implementations convert to the currency's minor
// units before calling out.
type CreateIntentParams struct {
	Amount       decimal.Decimal
	Currency     string
	ReceiptEmail string
	StudentID    string
	CourseID     string
	PaymentID    string
}

// Gateway abstracts the card processor so services never touch the vendor SDK
// directly and tests can swap in a fake.
type Gateway interface {
	CreateIntent(ctx context.Context, params CreateIntentParams) (*Intent, error)
	RetrieveIntent(ctx context.Context, intentID string) (*Intent, error)
	RefundIntent(ctx context.Context, intentID string) (string, error)
}

// MinorUnits converts a major-unit amount to the smallest currency unit,
// rounding half up. 50.00 EUR becomes 5000.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
