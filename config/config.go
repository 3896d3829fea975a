// Package config loads the folio.yaml workspace configuration.
//
// Values are resolved in this order: the YAML file (with $VAR and ${VAR} scalars replaced by
// the environment), FOLIO_* environment variables (a .env file next to the configuration is
// loaded first), then defaults for everything still unset. The result is validated.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/creasty/defaults"
	"github.com/etnz/folio"
	"github.com/etnz/folio/date"
	"github.com/etnz/folio/mail"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the configuration file looked up when none is given.
const DefaultFile = "folio.yaml"

// Config is the workspace configuration.
type Config struct {
	BaseCurrency       string             `yaml:"base_currency" env:"BASE_CURRENCY" default:"USD" validate:"required,len=3,uppercase"`
	AllowNegativeCash  bool               `yaml:"allow_negative_cash" env:"ALLOW_NEGATIVE_CASH"`
	TargetAllocations  map[string]Decimal `yaml:"target_allocations" validate:"dive,keys,required,endkeys,gte=0,lte=1"`
	RebalanceThreshold Decimal            `yaml:"rebalance_threshold" env:"REBALANCE_THRESHOLD" validate:"gte=0,lte=1"`
	ATR                ATR                `yaml:"atr" envPrefix:"ATR_"`
	Window             Window             `yaml:"window" envPrefix:"WINDOW_"`
	Data               Data               `yaml:"data" envPrefix:"DATA_"`
	EODHD              EODHD              `yaml:"eodhd" envPrefix:"EODHD_"`
	Cache              Cache              `yaml:"cache" envPrefix:"CACHE_"`
	Log                Log                `yaml:"log" envPrefix:"LOG_"`
	Email              Email              `yaml:"email" envPrefix:"EMAIL_"`
	Schedule           Schedule           `yaml:"schedule" envPrefix:"SCHEDULE_"`

	// dir is the folder holding the configuration file.
	dir string
}

// SetDefaults implements defaults.Setter.
func (c *Config) SetDefaults() {
	if c.RebalanceThreshold.IsZero() {
		c.RebalanceThreshold = NewDecimal(0.05)
	}
}

// ATR configures the volatility band suggestions.
type ATR struct {
	Period     int     `yaml:"period" env:"PERIOD" default:"14" validate:"gte=1"`
	Multiplier Decimal `yaml:"multiplier" env:"MULTIPLIER" validate:"gt=0"`
	Lookback   int     `yaml:"lookback" env:"LOOKBACK" default:"60" validate:"gtefield=Period"`
}

// SetDefaults implements defaults.Setter.
func (a *ATR) SetDefaults() {
	if a.Multiplier.IsZero() {
		a.Multiplier = NewDecimal(2)
	}
}

// Window is the default reporting window. Empty bounds are resolved when reporting.
type Window struct {
	From string `yaml:"from" env:"FROM" validate:"omitempty,datetime=2006-01-02"`
	To   string `yaml:"to" env:"TO" validate:"omitempty,datetime=2006-01-02"`
}

// Range returns the window, using inception for a missing start and on for a missing end.
func (w Window) Range(inception, on date.Date) date.Range {
	r := date.Range{From: inception, To: on}
	if d, err := date.Parse(w.From); err == nil {
		r.From = d
	}
	if d, err := date.Parse(w.To); err == nil {
		r.To = d
	}
	return r
}

// Data locates the workspace files. Relative paths are relative to the configuration file.
type Data struct {
	Dir       string `yaml:"dir" env:"DIR" default:"data"`
	Trades    string `yaml:"trades" env:"TRADES"`
	CashFlows string `yaml:"cashflows" env:"CASHFLOWS"`
	Market    string `yaml:"market" env:"MARKET"`
	Positions string `yaml:"positions" env:"POSITIONS"`
}

// SetDefaults implements defaults.Setter.
func (d *Data) SetDefaults() {
	set := func(p *string, name string) {
		if *p == "" {
			*p = filepath.Join(d.Dir, name)
		}
	}
	set(&d.Trades, "trades.jsonl")
	set(&d.CashFlows, "cashflows.jsonl")
	set(&d.Market, "market")
	set(&d.Positions, "positions.jsonl")
}

// EODHD configures the market data provider.
type EODHD struct {
	APIKey      string        `yaml:"api_key" env:"API_KEY"`
	BaseURL     string        `yaml:"base_url" env:"BASE_URL" default:"https://eodhd.com/api" validate:"url"`
	Timeout     time.Duration `yaml:"timeout" env:"TIMEOUT" default:"30s" validate:"gt=0"`
	Retries     int           `yaml:"retries" env:"RETRIES" default:"3" validate:"gte=0"`
	Concurrency int           `yaml:"concurrency" env:"CONCURRENCY" default:"4" validate:"gte=1"`
	Rate        int           `yaml:"rate" env:"RATE" default:"5" validate:"gte=1"`
	Reference   string        `yaml:"reference" env:"REFERENCE" default:"SPY.US" validate:"required"`
}

// Cache configures where fetched market data is kept.
type Cache struct {
	Dir   string        `yaml:"dir" env:"DIR" default:".cache"`
	Redis Redis         `yaml:"redis" envPrefix:"REDIS_"`
	TTL   time.Duration `yaml:"ttl" env:"TTL" default:"24h" validate:"gt=0"`
}

// Redis is an optional remote cache, used when Addr is set.
type Redis struct {
	Addr     string `yaml:"addr" env:"ADDR" validate:"omitempty,hostname_port"`
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB" validate:"gte=0"`
	Prefix   string `yaml:"prefix" env:"PREFIX" default:"folio:"`
}

// Log configures the logger.
type Log struct {
	Level  string `yaml:"level" env:"LEVEL" default:"info" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Format string `yaml:"format" env:"FORMAT" default:"console" validate:"oneof=console json"`
}

// Email is the raw email section. It is only checked when a report is actually emailed, see
// Validate.
type Email struct {
	SMTPHost        string   `yaml:"smtp_host" env:"SMTP_HOST"`
	SMTPPort        int      `yaml:"smtp_port" env:"SMTP_PORT" default:"587"`
	SMTPUsername    string   `yaml:"smtp_username" env:"SMTP_USERNAME"`
	SMTPPassword    string   `yaml:"smtp_password" env:"SMTP_PASSWORD"`
	From            string   `yaml:"from" env:"FROM"`
	To              []string `yaml:"to" env:"TO" envSeparator:","`
	SubjectTemplate string   `yaml:"subject_template" env:"SUBJECT_TEMPLATE" default:"Portfolio report {date}"`
}

// Validate promotes the email section into complete SMTP settings.
func (e Email) Validate() (mail.Settings, error) {
	var errs []error
	missing := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, fmt.Errorf("email.%s is required", name))
		}
	}
	missing("smtp_host", e.SMTPHost)
	missing("smtp_username", e.SMTPUsername)
	missing("smtp_password", e.SMTPPassword)
	missing("from", e.From)
	if e.SMTPPort <= 0 || e.SMTPPort > 65535 {
		errs = append(errs, fmt.Errorf("email.smtp_port %d is not a valid port", e.SMTPPort))
	}
	if len(e.To) == 0 {
		errs = append(errs, errors.New("email.to needs at least one recipient"))
	}
	v := validator.New()
	for _, addr := range append([]string{e.From}, e.To...) {
		if addr != "" && v.Var(addr, "email") != nil {
			errs = append(errs, fmt.Errorf("%q is not an email address", addr))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return mail.Settings{}, fmt.Errorf("invalid email configuration: %w", err)
	}
	return mail.Settings{
		Host:     e.SMTPHost,
		Port:     e.SMTPPort,
		Username: e.SMTPUsername,
		Password: e.SMTPPassword,
		From:     e.From,
		To:       e.To,
		Subject:  e.SubjectTemplate,
	}, nil
}

// Schedule configures the serve command.
type Schedule struct {
	Cron  string `yaml:"cron" env:"CRON" default:"0 18 * * 1-5" validate:"required"`
	Email bool   `yaml:"email" env:"EMAIL"`
}

// Load reads the configuration file. A missing file is not an error when it is the default
// one: the configuration then comes from the environment and defaults only.
func Load(filename string) (*Config, error) {
	cfg := new(Config)
	cfg.dir = filepath.Dir(filename)

	content, err := os.ReadFile(filename)
	switch {
	case errors.Is(err, fs.ErrNotExist) && filepath.Base(filename) == DefaultFile:
	case err != nil:
		return nil, fmt.Errorf("cannot read config %q: %w", filename, err)
	default:
		if err := decode(content, cfg); err != nil {
			return nil, fmt.Errorf("cannot parse config %q: %w", filename, err)
		}
	}

	if err := godotenv.Load(filepath.Join(cfg.dir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("cannot load .env: %w", err)
	}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "FOLIO_"}); err != nil {
		return nil, fmt.Errorf("cannot read environment: %w", err)
	}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("cannot set defaults: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	cfg.resolvePaths()
	return cfg, nil
}

func decode(content []byte, cfg *Config) error {
	var root yaml.Node
	if err := yaml.Unmarshal(content, &root); err != nil {
		return err
	}
	expandEnv(&root)
	return root.Decode(cfg)
}

var envRef = regexp.MustCompile(`^\$(?:\{(\w+)\}|(\w+))$`)

// expandEnv replaces every scalar made of a single $VAR or ${VAR} by the variable value. An
// unset variable becomes null.
func expandEnv(n *yaml.Node) {
	if n.Kind == yaml.ScalarNode {
		m := envRef.FindStringSubmatch(n.Value)
		if m == nil {
			return
		}
		name := m[1] + m[2]
		value, ok := os.LookupEnv(name)
		n.Style = 0
		if !ok || value == "" {
			n.Tag, n.Value = "!!null", ""
			return
		}
		// let the decoder resolve the value type again.
		n.Tag, n.Value = "", value
		return
	}
	for _, c := range n.Content {
		expandEnv(c)
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(f reflect.Value) any {
		if d, ok := f.Interface().(Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, Decimal{})
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		w := sl.Current().Interface().(Window)
		from, errFrom := date.Parse(w.From)
		to, errTo := date.Parse(w.To)
		if errFrom == nil && errTo == nil && from.After(to) {
			sl.ReportError(w.To, "to", "To", "gtefield", "from")
		}
	}, Window{})
	return v
}

// Validate checks the configuration, the email section excepted.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	var sum decimal.Decimal
	for _, w := range cfg.TargetAllocations {
		sum = sum.Add(w.Decimal)
	}
	if sum.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("invalid config: target allocations sum to %s, more than 100%%", sum)
	}
	return nil
}

func (c *Config) resolvePaths() {
	for _, p := range []*string{&c.Data.Trades, &c.Data.CashFlows, &c.Data.Market, &c.Data.Positions, &c.Cache.Dir} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(c.dir, *p)
		}
	}
}

// Targets returns the target allocations.
func (c *Config) Targets() folio.Targets {
	targets := make(folio.Targets, len(c.TargetAllocations))
	for symbol, w := range c.TargetAllocations {
		targets[symbol] = folio.R(w.Decimal)
	}
	return targets
}

// Replayer returns the replay settings.
func (c *Config) Replayer() folio.Replayer {
	return folio.Replayer{AllowNegativeCash: c.AllowNegativeCash}
}

// Decimal is a decimal value that reads from YAML scalars and environment variables.
type Decimal struct{ decimal.Decimal }

// NewDecimal returns the decimal value of f.
func NewDecimal(f float64) Decimal { return Decimal{decimal.NewFromFloat(f)} }

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Decimal) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expecting a decimal", n.Line)
	}
	return d.UnmarshalText([]byte(n.Value))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Decimal) UnmarshalText(text []byte) error {
	v, err := decimal.NewFromString(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid decimal %q: %w", text, err)
	}
	d.Decimal = v
	return nil
}
