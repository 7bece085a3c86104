package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"

	"unistay/internal/logger"
)

var ErrStripeClientInitFailed = errors.New("failed to initialize Stripe client")

// StripeGateway implements Gateway against the Stripe API.
type StripeGateway struct {
	client        *client.API
	webhookSecret string
	log           *logger.Logger
}

func NewStripeGateway(secretKey, webhookSecret string, log *logger.Logger) (*StripeGateway, error) {
	if secretKey == "" {
		return nil, ErrStripeClientInitFailed
	}

	sc := client.New(secretKey, nil)
	if sc == nil {
		log.Error("STRIPE", "Failed to initialize Stripe client")
		return nil, ErrStripeClientInitFailed
	}

	log.Info("STRIPE", "Stripe client initialized successfully")
	return &StripeGateway{client: sc, webhookSecret: webhookSecret, log: log}, nil
}

func (g *StripeGateway) CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: metadata,
	}
	params.Context = ctx

	pi, err := g.client.PaymentIntents.New(params)
	if err != nil {
		g.log.Error("STRIPE", fmt.Sprintf("Failed to create payment intent: %v", err))
		return nil, err
	}

	g.log.Info("STRIPE", fmt.Sprintf("Created payment intent %s (%d cents)", pi.ID, amountCents))
	return intentFromStripe(pi), nil
}

func (g *StripeGateway) RetrieveIntent(ctx context.Context, id string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := g.client.PaymentIntents.Get(id, params)
	if err != nil {
		g.log.Error("STRIPE", fmt.Sprintf("Failed to retrieve payment intent %s: %v", id, err))
		return nil, err
	}
	return intentFromStripe(pi), nil
}

func (g *StripeGateway) Refund(ctx context.Context, intentID string) (string, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(intentID),
	}
	params.Context = ctx

	refund, err := g.client.Refunds.New(params)
	if err != nil {
		g.log.Error("STRIPE", fmt.Sprintf("Failed to refund payment intent %s: %v", intentID, err))
		return "", err
	}

	g.log.Info("STRIPE", fmt.Sprintf("Refund %s created for intent %s", refund.ID, intentID))
	return refund.ID, nil
}

func (g *StripeGateway) VerifyWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	if g.webhookSecret == "" {
		return nil, errors.New("stripe webhook secret is not configured")
	}

	opts := webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true}
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, opts)
	if err != nil {
		return nil, fmt.Errorf("webhook signature verification failed: %w", err)
	}

	verified := &WebhookEvent{Type: string(event.Type)}
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err == nil {
		verified.PaymentIntentID = pi.ID
		verified.Metadata = pi.Metadata
	}
	return verified, nil
}

func intentFromStripe(pi *stripe.PaymentIntent) *Intent {
	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Amount:       pi.Amount,
		Metadata:     pi.Metadata,
	}
}
