// Package config resolves settings from flags, MF_* environment variables,
// an optional config file and a .env file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/komsit37/mf/pkg/mf/source"
	"github.com/komsit37/mf/pkg/mf/types"
)

const EnvPrefix = "MF"

// Keys shared by flags, env and config file.
const (
	KeyAPIKey          = "fmp-api-key"
	KeyBaseURL         = "base-url"
	KeyExchanges       = "ex"
	KeyTop             = "top"
	KeyMinMcap         = "min-mcap"
	KeyLimit           = "limit"
	KeyRandom          = "random"
	KeyAnnual          = "annual"
	KeyCountries       = "countries"
	KeyTier1           = "tier1"
	KeyWorkers         = "workers"
	KeyTickers         = "tickers"
	KeyMatch           = "match"
	KeyCheckDebt       = "check-debt-revenue"
	KeyCheckCashflow   = "check-cashflow"
	KeyQuotes          = "quotes"
	KeyCacheDir        = "cache-dir"
	KeyCacheTTL        = "cache-ttl"
	KeyNoCache         = "no-cache"
	KeyRateLimit       = "rate-limit"
	KeyTimeout         = "timeout"
	KeyExcludedSectors = "excluded-sectors"
	KeyMaxEY           = "max-earnings-yield"
	KeyMaxROC          = "max-return-on-capital"
	KeyMinCapital      = "min-capital"
	KeyLogLevel        = "log-level"
	KeyLogFile         = "log-file"
	KeyAddr            = "addr"
	KeySchedule        = "schedule"
)

// Error is a fatal configuration problem, reported before any network call.
type Error struct {
	Key string
	Msg string
}

func (e *Error) Error() string { return fmt.Sprintf("configuration error: %s: %s", e.Key, e.Msg) }

// ErrConfig matches any *Error with errors.Is.
var ErrConfig = errors.New("configuration error")

func (e *Error) Is(target error) bool { return target == ErrConfig }

// Config is the decoded, validated settings. The key tag names the
// setting in errors.
type Config struct {
	APIKey  string
	BaseURL string `key:"base-url" validate:"required,url"`

	Exchanges    []string
	Top          int     `key:"top" validate:"gte=0"`
	MinMarketCap float64 `key:"min-mcap" validate:"gte=0"`
	Limit        int     `key:"limit" validate:"gte=0"`
	Random       bool
	Period       types.Period
	Countries    []string `key:"countries" validate:"dive,len=2,alpha"`
	Workers      int      `key:"workers" validate:"min=1,max=64"`
	Tickers      string
	Match        string

	CheckDebtRevenue bool
	CheckCashflow    bool
	Quotes           bool

	CacheDir string        `key:"cache-dir" validate:"required_without=NoCache"`
	CacheTTL time.Duration `key:"cache-ttl" validate:"gt=0"`
	NoCache  bool

	RateLimit int           `key:"rate-limit" validate:"min=1"`
	Timeout   time.Duration `key:"timeout" validate:"gt=0"`

	ExcludedSectors    []string
	MaxEarningsYield   float64 `key:"max-earnings-yield" validate:"gte=0"`
	MaxReturnOnCapital float64 `key:"max-return-on-capital" validate:"gte=0"`
	MinCapital         float64 `key:"min-capital" validate:"gte=0"`

	LogLevel string `key:"log-level" validate:"omitempty,oneof=trace debug info warn warning error fatal panic disabled"`
	LogFile  string

	Addr     string
	Schedule string
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if k := f.Tag.Get("key"); k != "" {
			return k
		}
		return f.Name
	})
	return v
}

// New returns a viper instance with defaults, env binding and the config
// file loaded. path may be empty to search for mf.{yaml,toml,json} in the
// working directory and ~/.config/mf.
func New(path string) (*viper.Viper, error) {
	LoadDotenv()

	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	// the bare FMP_API_KEY is the documented name
	if err := v.BindEnv(KeyAPIKey, "MF_FMP_API_KEY", "FMP_API_KEY"); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, &Error{Key: "config", Msg: err.Error()}
		}
		return v, nil
	}
	v.SetConfigName("mf")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home + "/.config/mf")
	}
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return nil, &Error{Key: "config", Msg: err.Error()}
		}
	}
	return v, nil
}

// LoadDotenv loads .env from the working directory if present. Variables
// already set in the environment win.
func LoadDotenv() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyBaseURL, "https://financialmodelingprep.com/api/v3")
	v.SetDefault(KeyExchanges, "NASDAQ,NYSE,AMEX")
	v.SetDefault(KeyTop, 30)
	v.SetDefault(KeyMinMcap, 50e6)
	v.SetDefault(KeyLimit, 400)
	v.SetDefault(KeyWorkers, 5)
	v.SetDefault(KeyCacheDir, "cache")
	v.SetDefault(KeyCacheTTL, "168h")
	v.SetDefault(KeyRateLimit, 300)
	v.SetDefault(KeyTimeout, "20s")
	v.SetDefault(KeyLogLevel, "warn")
	v.SetDefault(KeyAddr, ":8080")
}

// Decode reads every key into a Config and validates it.
func Decode(v *viper.Viper) (*Config, error) {
	c := &Config{
		APIKey:             strings.TrimSpace(v.GetString(KeyAPIKey)),
		BaseURL:            v.GetString(KeyBaseURL),
		Exchanges:          list(v, KeyExchanges),
		Top:                v.GetInt(KeyTop),
		MinMarketCap:       v.GetFloat64(KeyMinMcap),
		Limit:              v.GetInt(KeyLimit),
		Random:             v.GetBool(KeyRandom),
		Period:             types.PeriodTTM,
		Countries:          list(v, KeyCountries),
		Workers:            v.GetInt(KeyWorkers),
		Tickers:            v.GetString(KeyTickers),
		Match:              v.GetString(KeyMatch),
		CheckDebtRevenue:   v.GetBool(KeyCheckDebt),
		CheckCashflow:      v.GetBool(KeyCheckCashflow),
		Quotes:             v.GetBool(KeyQuotes),
		CacheDir:           v.GetString(KeyCacheDir),
		CacheTTL:           v.GetDuration(KeyCacheTTL),
		NoCache:            v.GetBool(KeyNoCache),
		RateLimit:          v.GetInt(KeyRateLimit),
		Timeout:            v.GetDuration(KeyTimeout),
		ExcludedSectors:    list(v, KeyExcludedSectors),
		MaxEarningsYield:   v.GetFloat64(KeyMaxEY),
		MaxReturnOnCapital: v.GetFloat64(KeyMaxROC),
		MinCapital:         v.GetFloat64(KeyMinCapital),
		LogLevel:           strings.ToLower(strings.TrimSpace(v.GetString(KeyLogLevel))),
		LogFile:            v.GetString(KeyLogFile),
		Addr:               v.GetString(KeyAddr),
		Schedule:           v.GetString(KeySchedule),
	}
	if v.GetBool(KeyAnnual) {
		c.Period = types.PeriodAnnual
	}
	switch {
	case v.GetBool(KeyTier1):
		c.Countries = append([]string(nil), source.Tier1Countries...)
	case len(c.Countries) == 0:
		c.Countries = []string{"US"}
	}
	for i := range c.Countries {
		c.Countries[i] = strings.ToUpper(c.Countries[i])
	}
	for i := range c.Exchanges {
		c.Exchanges[i] = strings.ToUpper(c.Exchanges[i])
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks ranges. The API key is checked separately by RequireAPIKey
// so cache maintenance commands work without one.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) || len(verrs) == 0 {
			return &Error{Key: "config", Msg: err.Error()}
		}
		fe := verrs[0]
		key, _, _ := strings.Cut(fe.Field(), "[")
		return &Error{Key: key, Msg: describe(fe)}
	}
	if c.Tickers == "" && len(c.Exchanges) == 0 {
		return &Error{Key: KeyExchanges, Msg: "at least one exchange is required"}
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gte":
		return "must not be negative"
	case "gt":
		return "must be positive"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "len", "alpha":
		return fmt.Sprintf("%v is not a two-letter country code", fe.Value())
	case "required", "required_without":
		return "is required"
	case "url":
		return fmt.Sprintf("%v is not a URL", fe.Value())
	}
	return fmt.Sprintf("failed %s check", fe.Tag())
}

// RequireAPIKey fails when no FMP key is configured.
func (c *Config) RequireAPIKey() error {
	if c.APIKey == "" {
		return &Error{Key: "FMP_API_KEY", Msg: "not set (export FMP_API_KEY or add it to .env)"}
	}
	return nil
}

// list accepts a comma-separated string or a config-file list.
func list(v *viper.Viper, key string) []string {
	var parts []string
	switch raw := v.Get(key).(type) {
	case nil:
		return nil
	case string:
		parts = strings.Split(raw, ",")
	case []string:
		parts = raw
	case []any:
		for _, p := range raw {
			parts = append(parts, fmt.Sprint(p))
		}
	default:
		parts = strings.Split(fmt.Sprint(raw), ",")
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
