package gateway

import (
	"testing"
	"time"

	"github.com/smallbiznis/tenantly/internal/billing/domain"
	"github.com/smallbiznis/tenantly/internal/config"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/zap"
)

const testSecret = "whsec_test"

const subscriptionPayload = `{
  "id": "evt_1",
  "object": "event",
  "api_version": "2020-08-27",
  "type": "customer.subscription.updated",
  "data": {
    "object": {
      "id": "sub_1",
      "object": "subscription",
      "customer": "cus_1",
      "status": "active",
      "items": {
        "object": "list",
        "data": [
          {"id": "si_1", "object": "subscription_item", "price": {"id": "price_1", "object": "price", "nickname": "Pro", "product": "prod_1"}}
        ]
      }
    }
  }
}`

func newTestGateway() domain.Gateway {
	return NewStripeGateway(config.Config{
		Stripe: config.StripeConfig{SecretKey: "sk_test", WebhookSecret: testSecret},
	}, zap.NewNop())
}

func TestConstructEventDecodesSubscription(t *testing.T) {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(subscriptionPayload),
		Secret:    testSecret,
		Timestamp: time.Now(),
	})

	event, err := newTestGateway().ConstructEvent(signed.Payload, signed.Header)
	require.NoError(t, err)
	require.Equal(t, "evt_1", event.ID)
	require.Equal(t, "customer.subscription.updated", event.Type)
	require.NotNil(t, event.Subscription)
	require.Equal(t, "sub_1", event.Subscription.ID)
	require.Equal(t, "cus_1", event.Subscription.CustomerID)
	require.Equal(t, "active", event.Subscription.Status)
	require.Equal(t, "prod_1", event.Subscription.ProductID)
	require.Equal(t, "Pro", event.Subscription.PlanName)
}

func TestConstructEventRejectsBadSignature(t *testing.T) {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(subscriptionPayload),
		Secret:    "whsec_other",
		Timestamp: time.Now(),
	})

	_, err := newTestGateway().ConstructEvent(signed.Payload, signed.Header)
	require.ErrorIs(t, err, domain.ErrInvalidSignature)

	_, err = newTestGateway().ConstructEvent([]byte(subscriptionPayload), "")
	require.ErrorIs(t, err, domain.ErrInvalidSignature)
}
