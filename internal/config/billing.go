package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// BillingPolicy controls the checkout and customer portal defaults sent to
// the payment provider.
type BillingPolicy struct {
	TrialPeriodDays     int64    `mapstructure:"trialPeriodDays"`
	PortalHeadline      string   `mapstructure:"portalHeadline"`
	AllowedUpdates      []string `mapstructure:"allowedUpdates"`
	ProrationBehavior   string   `mapstructure:"prorationBehavior"`
	CancelMode          string   `mapstructure:"cancelMode"`
	CancellationReasons []string `mapstructure:"cancellationReasons"`
}

func DefaultBillingPolicy() BillingPolicy {
	return BillingPolicy{
		TrialPeriodDays:   14,
		PortalHeadline:    "Manage your subscription",
		AllowedUpdates:    []string{"price", "quantity", "promotion_code"},
		ProrationBehavior: "create_prorations",
		CancelMode:        "at_period_end",
		CancellationReasons: []string{
			"too_expensive",
			"missing_features",
			"switched_service",
			"unused",
			"other",
		},
	}
}

type BillingPolicyHolder struct {
	current atomic.Value // holds BillingPolicy
}

// NewStaticBillingPolicyHolder returns a holder that never reloads.
func NewStaticBillingPolicyHolder(policy BillingPolicy) *BillingPolicyHolder {
	holder := &BillingPolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func NewBillingPolicyHolder() (*BillingPolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/tenantly")
	v.AddConfigPath(".")

	v.SetEnvPrefix("TENANTLY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultBillingPolicy()
	v.SetDefault("billing.trialPeriodDays", defaults.TrialPeriodDays)
	v.SetDefault("billing.portalHeadline", defaults.PortalHeadline)
	v.SetDefault("billing.allowedUpdates", defaults.AllowedUpdates)
	v.SetDefault("billing.prorationBehavior", defaults.ProrationBehavior)
	v.SetDefault("billing.cancelMode", defaults.CancelMode)
	v.SetDefault("billing.cancellationReasons", defaults.CancellationReasons)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	var policy BillingPolicy
	if err := v.UnmarshalKey("billing", &policy); err != nil {
		return nil, err
	}
	if err := validateBillingPolicy(policy); err != nil {
		return nil, err
	}

	holder := NewStaticBillingPolicyHolder(policy)
	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated BillingPolicy
		if err := v.UnmarshalKey("billing", &updated); err != nil {
			log.Printf("[billing-policy] reload failed: %v", err)
			return
		}
		if err := validateBillingPolicy(updated); err != nil {
			log.Printf("[billing-policy] invalid policy ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[billing-policy] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *BillingPolicyHolder) Get() BillingPolicy {
	return h.current.Load().(BillingPolicy)
}

func validateBillingPolicy(policy BillingPolicy) error {
	if policy.TrialPeriodDays < 0 {
		return errors.New("billing.trialPeriodDays cannot be negative")
	}
	if strings.TrimSpace(policy.CancelMode) == "" {
		return errors.New("billing.cancelMode cannot be empty")
	}
	if len(policy.CancellationReasons) == 0 {
		return errors.New("billing.cancellationReasons cannot be empty")
	}
	return nil
}
