package config

import (
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Policy is the marketplace policy applied to every order. Values are
// hot-reloadable so fee or window changes do not require a redeploy; an order
// snapshots the percentages that applied at creation time.
type Policy struct {
	ServiceFeePct      int64  `mapstructure:"serviceFeePct"`
	TaxPct             int64  `mapstructure:"taxPct"`
	ConfirmWindowHours int    `mapstructure:"confirmWindowHours"`
	ReminderLeadDays   int    `mapstructure:"reminderLeadDays"`
	NotificationCap    int    `mapstructure:"notificationCap"`
	Currency           string `mapstructure:"currency"`
}

func DefaultPolicy() Policy {
	return Policy{
		ServiceFeePct:      20,
		TaxPct:             5,
		ConfirmWindowHours: 96,
		ReminderLeadDays:   1,
		NotificationCap:    40,
		Currency:           "EUR",
	}
}

// PolicyHolder exposes the current marketplace policy, reloading it when the
// backing yml file changes.
type PolicyHolder struct {
	current atomic.Value // holds Policy
}

func NewPolicyHolder() (*PolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("marketplace")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/influmarkt/config")
	v.AddConfigPath("/etc/influmarkt")
	v.AddConfigPath(".")

	v.SetEnvPrefix("INFLUMARKT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultPolicy()
		v.SetDefault("policy.serviceFeePct", defaults.ServiceFeePct)
		v.SetDefault("policy.taxPct", defaults.TaxPct)
		v.SetDefault("policy.confirmWindowHours", defaults.ConfirmWindowHours)
		v.SetDefault("policy.reminderLeadDays", defaults.ReminderLeadDays)
		v.SetDefault("policy.notificationCap", defaults.NotificationCap)
		v.SetDefault("policy.currency", defaults.Currency)
	}

	holder := &PolicyHolder{}
	if err := holder.load(v); err != nil {
		return nil, err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if err := holder.load(v); err != nil {
			log.Printf("marketplace policy reload failed: %v", err)
		}
	})
	v.WatchConfig()

	return holder, nil
}

func (h *PolicyHolder) load(v *viper.Viper) error {
	var policy Policy
	if err := v.UnmarshalKey("policy", &policy); err != nil {
		return err
	}
	policy = policy.withDefaults()
	h.current.Store(policy)
	return nil
}

// Current returns the active policy.
func (h *PolicyHolder) Current() Policy {
	if v, ok := h.current.Load().(Policy); ok {
		return v
	}
	return DefaultPolicy()
}

// Store replaces the active policy. Used by tests.
func (h *PolicyHolder) Store(p Policy) {
	h.current.Store(p.withDefaults())
}

// StaticPolicyHolder builds a holder with a fixed policy, for tests and for
// binaries that do not watch a config file.
func StaticPolicyHolder(p Policy) *PolicyHolder {
	holder := &PolicyHolder{}
	holder.Store(p)
	return holder
}

func (p Policy) withDefaults() Policy {
	defaults := DefaultPolicy()
	if p.ServiceFeePct < 0 {
		p.ServiceFeePct = defaults.ServiceFeePct
	}
	if p.TaxPct < 0 {
		p.TaxPct = defaults.TaxPct
	}
	if p.ConfirmWindowHours <= 0 {
		p.ConfirmWindowHours = defaults.ConfirmWindowHours
	}
	if p.ReminderLeadDays <= 0 {
		p.ReminderLeadDays = defaults.ReminderLeadDays
	}
	if p.NotificationCap <= 0 {
		p.NotificationCap = defaults.NotificationCap
	}
	if strings.TrimSpace(p.Currency) == "" {
		p.Currency = defaults.Currency
	}
	return p
}
