package payment

import "context"

// Intent is the gateway-neutral view of a payment intent.
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	Amount       int64
	Metadata     map[string]string
}

// WebhookEvent is a verified event delivered by the gateway.
type WebhookEvent struct {
	Type            string
	PaymentIntentID string
	Metadata        map[string]string
}

// Gateway abstracts the payment provider so the service can run against a
// stub in tests and stay inert when no provider is configured.
type Gateway interface {
	CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*Intent, error)
	RetrieveIntent(ctx context.Context, id string) (*Intent, error)
	Refund(ctx context.Context, intentID string) (string, error)
	VerifyWebhook(payload []byte, signature string) (*WebhookEvent, error)
}
