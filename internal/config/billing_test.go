package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultBillingPolicyIsValid(t *testing.T) {
	policy := DefaultBillingPolicy()
	require.NoError(t, validateBillingPolicy(policy))
	require.Equal(t, int64(14), policy.TrialPeriodDays)
	require.Equal(t, []string{"price", "quantity", "promotion_code"}, policy.AllowedUpdates)
	require.Len(t, policy.CancellationReasons, 5)
}

func TestValidateBillingPolicyRejectsEmptyReasons(t *testing.T) {
	policy := DefaultBillingPolicy()
	policy.CancellationReasons = nil
	require.Error(t, validateBillingPolicy(policy))
}

func TestStaticHolderReturnsStoredPolicy(t *testing.T) {
	policy := DefaultBillingPolicy()
	policy.TrialPeriodDays = 30

	holder := NewStaticBillingPolicyHolder(policy)
	require.Equal(t, int64(30), holder.Get().TrialPeriodDays)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ROOT_DOMAIN", "Example.COM")
	t.Setenv("BASE_URL", "https://example.com/")
	t.Setenv("REDIS_ADDR", "")

	cfg := Load()
	require.Equal(t, "example.com", cfg.RootDomain)
	require.Equal(t, "https://example.com", cfg.BaseURL)
	require.False(t, cfg.Redis.Enabled())
	require.NotEmpty(t, cfg.AuthJWTSecret)
}
