package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/smallbiznis/meterbook/internal/caldate"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// TariffConfig describes the two-rate tariff and the date it switches on.
type TariffConfig struct {
	Cutover    string  `mapstructure:"cutover"`
	RateBefore float64 `mapstructure:"rateBefore"`
	RateAfter  float64 `mapstructure:"rateAfter"`
}

func DefaultTariffConfig() TariffConfig {
	return TariffConfig{
		Cutover:    "14.10.24",
		RateBefore: 4.0,
		RateAfter:  5.0,
	}
}

type TariffConfigHolder struct {
	current atomic.Value // holds TariffConfig
}

// NewTariffConfigHolder reads tariff.yml and keeps it fresh while the process runs.
func NewTariffConfigHolder(log *zap.Logger) (*TariffConfigHolder, error) {
	return loadTariffConfigHolder(log, "/etc/meterbook", ".")
}

// NewStaticTariffConfigHolder returns a holder that never reloads.
func NewStaticTariffConfigHolder(cfg TariffConfig) (*TariffConfigHolder, error) {
	if err := validateTariffConfig(cfg); err != nil {
		return nil, err
	}
	holder := &TariffConfigHolder{}
	holder.current.Store(cfg)
	return holder, nil
}

func loadTariffConfigHolder(log *zap.Logger, paths ...string) (*TariffConfigHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("tariff.config")

	v := viper.New()
	v.SetConfigName("tariff")
	v.SetConfigType("yml")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	v.SetEnvPrefix("METERBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultTariffConfig()
	v.SetDefault("tariff.cutover", defaults.Cutover)
	v.SetDefault("tariff.rateBefore", defaults.RateBefore)
	v.SetDefault("tariff.rateAfter", defaults.RateAfter)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	cfg := readTariffConfig(v)
	if err := validateTariffConfig(cfg); err != nil {
		return nil, err
	}

	holder := &TariffConfigHolder{}
	holder.current.Store(cfg)

	if !fileFound {
		log.Info("tariff.yml not found, using defaults",
			zap.String("cutover", cfg.Cutover),
			zap.Float64("rate_before", cfg.RateBefore),
			zap.Float64("rate_after", cfg.RateAfter),
		)
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated := readTariffConfig(v)
		if err := validateTariffConfig(updated); err != nil {
			log.Warn("invalid tariff config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("tariff reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

// Keys are read one by one so nested defaults and METERBOOK_TARIFF_* env
// overrides apply to a partially filled file.
func readTariffConfig(v *viper.Viper) TariffConfig {
	return TariffConfig{
		Cutover:    strings.TrimSpace(v.GetString("tariff.cutover")),
		RateBefore: v.GetFloat64("tariff.rateBefore"),
		RateAfter:  v.GetFloat64("tariff.rateAfter"),
	}
}

func (h *TariffConfigHolder) Get() TariffConfig {
	return h.current.Load().(TariffConfig)
}

func validateTariffConfig(cfg TariffConfig) error {
	if _, err := caldate.Parse(cfg.Cutover); err != nil {
		return errors.New("tariff.cutover must be a d.m.y date")
	}
	if cfg.RateBefore < 0 || cfg.RateAfter < 0 {
		return errors.New("tariff rates cannot be negative")
	}
	return nil
}
