package portfolio

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Settings is the runtime configuration. Values come from a YAML file when
// one exists, then environment variables override field by field. A .env
// file next to the working directory is loaded first so both sources can
// live in one place.
type Settings struct {
	Owner               string          `yaml:"owner"`
	BaseCurrency        string          `yaml:"base_currency"`
	DefaultTimezone     string          `yaml:"default_timezone"`
	DriftAlertThreshold float64         `yaml:"drift_alert_threshold"` // percentage points
	DatabasePath        string          `yaml:"database_path"`
	QuoteProvider       string          `yaml:"quote_provider"`
	QuoteURL            string          `yaml:"quote_url"`
	StaleAfterMinutes   int             `yaml:"stale_after_minutes"`
	BackfillLookback    int             `yaml:"backfill_lookback_days"`
	BackfillMinPoints   int             `yaml:"backfill_min_points"`
	BackfillCooldown    int             `yaml:"backfill_cooldown_minutes"`
}

// DefaultSettings returns the configuration used when nothing is set.
func DefaultSettings() Settings {
	return Settings{
		Owner:               "local",
		BaseCurrency:        "EUR",
		DefaultTimezone:     "UTC",
		DriftAlertThreshold: 5,
		DatabasePath:        "portfolio.db",
		QuoteProvider:       "yahoo",
		QuoteURL:            "https://query1.finance.yahoo.com/v8/finance/chart",
		StaleAfterMinutes:   60,
		BackfillLookback:    365,
		BackfillMinPoints:   2,
		BackfillCooldown:    24 * 60,
	}
}

// DriftThreshold returns the alert threshold as a decimal.
func (s Settings) DriftThreshold() decimal.Decimal {
	return decimal.NewFromFloat(s.DriftAlertThreshold)
}

// BackfillPolicy derives the backfill tuning from the settings.
func (s Settings) BackfillPolicy() BackfillPolicy {
	return BackfillPolicy{
		LookbackDays:       s.BackfillLookback,
		MinPointsThreshold: s.BackfillMinPoints,
		CooldownMinutes:    s.BackfillCooldown,
	}
}

// LoadSettings builds the settings from defaults, the optional YAML file at
// path, and the environment, in that order. An empty path skips the file.
func LoadSettings(path string) (Settings, error) {
	// Missing .env is the normal case, not an error.
	_ = godotenv.Load()

	s := DefaultSettings()
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// keep defaults
		case err != nil:
			return Settings{}, fmt.Errorf("cannot read settings file %q: %w", path, err)
		default:
			if err := yaml.Unmarshal(raw, &s); err != nil {
				return Settings{}, fmt.Errorf("cannot parse settings file %q: %w", path, err)
			}
		}
	}
	if err := s.applyEnv(); err != nil {
		return Settings{}, err
	}
	s.BaseCurrency = strings.ToUpper(s.BaseCurrency)
	if s.BaseCurrency == "" {
		return Settings{}, fmt.Errorf("base currency cannot be empty")
	}
	if s.Owner == "" {
		return Settings{}, fmt.Errorf("owner cannot be empty")
	}
	return s, nil
}

func (s *Settings) applyEnv() error {
	if v := os.Getenv("OWNER"); v != "" {
		s.Owner = v
	}
	if v := os.Getenv("BASE_CURRENCY"); v != "" {
		s.BaseCurrency = v
	}
	if v := os.Getenv("DEFAULT_TIMEZONE"); v != "" {
		s.DefaultTimezone = v
	}
	if v := os.Getenv("DRIFT_ALERT_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("bad DRIFT_ALERT_THRESHOLD %q: %w", v, err)
		}
		s.DriftAlertThreshold = f
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		s.DatabasePath = v
	}
	if v := os.Getenv("QUOTE_PROVIDER"); v != "" {
		s.QuoteProvider = v
	}
	if v := os.Getenv("QUOTE_URL"); v != "" {
		s.QuoteURL = v
	}
	for _, f := range []struct {
		env string
		dst *int
	}{
		{"STALE_AFTER_MINUTES", &s.StaleAfterMinutes},
		{"BACKFILL_LOOKBACK_DAYS", &s.BackfillLookback},
		{"BACKFILL_MIN_POINTS", &s.BackfillMinPoints},
		{"BACKFILL_COOLDOWN_MINUTES", &s.BackfillCooldown},
	} {
		v := os.Getenv(f.env)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("bad %s %q: %w", f.env, v, err)
		}
		*f.dst = n
	}
	return nil
}
