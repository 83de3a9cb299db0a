package tariff

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/meterbook/internal/caldate"
	"github.com/smallbiznis/meterbook/internal/config"
)

// Policy prices consumption at one rate up to and including the cutover day
// and at another rate on every later day.
type Policy struct {
	Cutover    caldate.Date
	RateBefore float64
	RateAfter  float64
}

// NewPolicy builds a policy from tariff configuration.
func NewPolicy(cfg config.TariffConfig) (Policy, error) {
	cutover, err := caldate.Parse(cfg.Cutover)
	if err != nil {
		return Policy{}, fmt.Errorf("tariff cutover: %w", err)
	}
	if cfg.RateBefore < 0 || cfg.RateAfter < 0 {
		return Policy{}, errors.New("tariff: negative rate")
	}
	return Policy{
		Cutover:    cutover,
		RateBefore: cfg.RateBefore,
		RateAfter:  cfg.RateAfter,
	}, nil
}

// DefaultPolicy is 4.0 up to 14.10.24 and 5.0 afterwards.
func DefaultPolicy() Policy {
	p, err := NewPolicy(config.DefaultTariffConfig())
	if err != nil {
		panic(err)
	}
	return p
}

// Rate returns the price per unit on the given day.
func (p Policy) Rate(d caldate.Date) float64 {
	if d.After(p.Cutover) {
		return p.RateAfter
	}
	return p.RateBefore
}

// RateFor parses date and returns its rate, or the parse error.
func (p Policy) RateFor(date string) (float64, error) {
	d, err := caldate.Parse(date)
	if err != nil {
		return 0, err
	}
	return p.Rate(d), nil
}

// RateOrDefault prices an unparseable date at the pre-cutover rate.
func (p Policy) RateOrDefault(date string) float64 {
	rate, err := p.RateFor(date)
	if err != nil {
		return p.RateBefore
	}
	return rate
}

// Cost returns consumption priced for date, rounded to cents.
func (p Policy) Cost(consumption float64, date string) float64 {
	return Multiply(consumption, p.RateOrDefault(date))
}

// Multiply returns consumption*rate rounded to two decimal places.
func Multiply(consumption, rate float64) float64 {
	value, _ := decimal.NewFromFloat(consumption).
		Mul(decimal.NewFromFloat(rate)).
		Round(2).
		Float64()
	return value
}
