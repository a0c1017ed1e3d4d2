package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

// StripeConfig configures the Stripe-backed gateway.
type StripeConfig struct {
	SecretKey string
}

// StripeGateway implements Gateway on top of the Stripe API.
type StripeGateway struct {
	api *client.API
}

// NewStripeGateway builds a gateway bound to the given secret key.
func NewStripeGateway(cfg StripeConfig) (*StripeGateway, error) {
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, errors.New("stripe gateway: secret key is required")
	}

	api := &client.API{}
	api.Init(cfg.SecretKey, nil)

	return &StripeGateway{api: api}, nil
}

func (g *StripeGateway) CreateIntent(ctx context.Context, params CreateIntentParams) (*Intent, error) {
	req := &stripe.PaymentIntentParams{
		Params:   stripe.Params{Context: ctx},
		Amount:   stripe.Int64(MinorUnits(params.Amount)),
		Currency: stripe.String(strings.ToLower(params.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if params.ReceiptEmail != "" {
		req.ReceiptEmail = stripe.String(params.ReceiptEmail)
	}
	req.AddMetadata("student_id", params.StudentID)
	req.AddMetadata("course_id", params.CourseID)
	req.AddMetadata("payment_id", params.PaymentID)

	intent, err := g.api.PaymentIntents.New(req)
	if err != nil {
		return nil, fmt.Errorf("stripe gateway: create intent: %w", err)
	}

	return toIntent(intent), nil
}

func (g *StripeGateway) RetrieveIntent(ctx context.Context, intentID string) (*Intent, error) {
	intent, err := g.api.PaymentIntents.Get(intentID, &stripe.PaymentIntentParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return nil, fmt.Errorf("stripe gateway: retrieve intent %s: %w", intentID, err)
	}

	return toIntent(intent), nil
}

func (g *StripeGateway) RefundIntent(ctx context.Context, intentID string) (string, error) {
	ref, err := g.api.Refunds.New(&stripe.RefundParams{
		Params:        stripe.Params{Context: ctx},
		PaymentIntent: stripe.String(intentID),
	})
	if err != nil {
		return "", fmt.Errorf("stripe gateway: refund intent %s: %w", intentID, err)
	}

	return ref.ID, nil
}

func toIntent(intent *stripe.PaymentIntent) *Intent {
	return &Intent{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       IntentStatus(intent.Status),
	}
}
