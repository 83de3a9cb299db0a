package tariff

import (
	"github.com/smallbiznis/meterbook/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Provider resolves the policy in force right now.
type Provider interface {
	Policy() Policy
}

// FixedProvider always returns the same policy.
type FixedProvider struct {
	policy Policy
}

func NewFixedProvider(p Policy) *FixedProvider {
	return &FixedProvider{policy: p}
}

func (f *FixedProvider) Policy() Policy { return f.policy }

// HolderProvider follows the hot-reloaded tariff configuration.
type HolderProvider struct {
	holder   *config.TariffConfigHolder
	fallback Policy
	log      *zap.Logger
}

func NewHolderProvider(holder *config.TariffConfigHolder, log *zap.Logger) Provider {
	if log == nil {
		log = zap.NewNop()
	}
	return &HolderProvider{
		holder:   holder,
		fallback: DefaultPolicy(),
		log:      log.Named("tariff"),
	}
}

func (h *HolderProvider) Policy() Policy {
	if h.holder == nil {
		return h.fallback
	}
	p, err := NewPolicy(h.holder.Get())
	if err != nil {
		h.log.Warn("tariff config unusable, using default policy", zap.Error(err))
		return h.fallback
	}
	return p
}

var Module = fx.Module("tariff",
	fx.Provide(NewHolderProvider),
)
