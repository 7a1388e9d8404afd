package market

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"tradequest-api/pkg/confkit"
	"tradequest-api/pkg/market/indicators"
)

const defaultCurrency = "EUR"

// Config describes the market data providers, how asset classes route to them,
// and the indicator parameters applied to fetched series.
type Config struct {
	Default         string                     `yaml:"default"`
	DefaultCurrency string                     `yaml:"default_currency"`
	Demo            bool                       `yaml:"demo"`
	CacheTTLRaw     string                     `yaml:"cache_ttl"`
	CacheTTL        time.Duration              `yaml:"-"`
	Rates           string                     `yaml:"rates"`
	Routes          map[AssetClass]*Route      `yaml:"routes"`
	Indicators      indicators.Config          `yaml:"indicators"`
	Providers       map[string]*ProviderConfig `yaml:"providers"`
}

// Route names the providers serving one asset class.
type Route struct {
	Quote   string `yaml:"quote"`
	History string `yaml:"history"`
	Assets  string `yaml:"assets"`
}

// ProviderConfig represents configuration for a single market provider.
type ProviderConfig struct {
	Type string `yaml:"type"`

	BaseURL  string `yaml:"base_url"`
	APIKey   string `yaml:"api_key"`
	Currency string `yaml:"currency"`

	TimeoutRaw        string        `yaml:"timeout"`
	Timeout           time.Duration `yaml:"-"`
	HTTPTimeoutRaw    string        `yaml:"http_timeout"`
	HTTPTimeout       time.Duration `yaml:"-"`
	MaxRetries        int           `yaml:"max_retries"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`

	// SymbolMap maps display tickers to provider identifiers, merged over built-in tables.
	SymbolMap map[string]string `yaml:"symbol_map"`
	// Watchlist is returned by ListAssets for providers without a listing endpoint.
	Watchlist []string `yaml:"watchlist"`
	// Seed drives the demo generator.
	Seed int64 `yaml:"seed"`
}

// ProviderBuilder constructs a Provider from configuration.
type ProviderBuilder func(name string, cfg *ProviderConfig) (Provider, error)

var (
	providerRegistry   = make(map[string]ProviderBuilder)
	providerRegistryMu sync.RWMutex
)

// RegisterProvider registers a market provider constructor.
func RegisterProvider(typeName string, builder ProviderBuilder) {
	providerRegistryMu.Lock()
	defer providerRegistryMu.Unlock()
	providerRegistry[strings.ToLower(strings.TrimSpace(typeName))] = builder
}

// RegisteredTypes lists provider types known to the registry.
func RegisteredTypes() []string {
	providerRegistryMu.RLock()
	defer providerRegistryMu.RUnlock()
	out := make([]string, 0, len(providerRegistry))
	for name := range providerRegistry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func lookupProviderBuilder(typeName string) (ProviderBuilder, bool) {
	providerRegistryMu.RLock()
	defer providerRegistryMu.RUnlock()
	builder, ok := providerRegistry[strings.ToLower(strings.TrimSpace(typeName))]
	return builder, ok
}

// LoadConfig reads configuration from disk.
func LoadConfig(path string) (*Config, error) {
	confkit.LoadDotenvOnce()
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open market config: %w", err)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// MustLoad reads market configuration from the default project location and panics on error.
func MustLoad() *Config {
	path := confkit.MustProjectPath("etc/market.yaml")
	cfg, err := LoadConfig(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadConfigFromReader constructs a Config from an io.Reader.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	confkit.LoadDotenvOnce()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read market config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal market config: %w", err)
	}
	if err := cfg.normalise(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalise() error {
	c.DefaultCurrency = strings.ToUpper(strings.TrimSpace(os.ExpandEnv(c.DefaultCurrency)))
	if c.DefaultCurrency == "" {
		c.DefaultCurrency = defaultCurrency
	}
	if raw := strings.TrimSpace(os.ExpandEnv(c.CacheTTLRaw)); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("market config: invalid cache_ttl %q: %w", raw, err)
		}
		c.CacheTTL = d
	}
	c.Indicators = c.Indicators.WithDefaults()
	if c.Providers == nil {
		c.Providers = make(map[string]*ProviderConfig)
	}
	if c.Routes == nil {
		c.Routes = make(map[AssetClass]*Route)
	}
	routes := make(map[AssetClass]*Route, len(c.Routes))
	for raw, route := range c.Routes {
		class, err := ParseAssetClass(string(raw))
		if err != nil {
			return fmt.Errorf("market config: route %q: %w", raw, err)
		}
		if route == nil {
			route = &Route{}
		}
		routes[class] = route
	}
	c.Routes = routes
	for _, route := range c.Routes {
		if route.History == "" {
			route.History = route.Quote
		}
		if route.Assets == "" {
			route.Assets = route.Quote
		}
	}
	for name, provider := range c.Providers {
		if provider == nil {
			provider = &ProviderConfig{}
			c.Providers[name] = provider
		}
		provider.expandEnv()
		if err := provider.parseDurations(name); err != nil {
			return err
		}
	}
	return nil
}

func (p *ProviderConfig) expandEnv() {
	p.Type = strings.TrimSpace(os.ExpandEnv(p.Type))
	p.BaseURL = strings.TrimSpace(os.ExpandEnv(p.BaseURL))
	p.APIKey = strings.TrimSpace(os.ExpandEnv(p.APIKey))
	p.Currency = strings.ToUpper(strings.TrimSpace(os.ExpandEnv(p.Currency)))
	p.TimeoutRaw = strings.TrimSpace(os.ExpandEnv(p.TimeoutRaw))
	p.HTTPTimeoutRaw = strings.TrimSpace(os.ExpandEnv(p.HTTPTimeoutRaw))
}

func (p *ProviderConfig) parseDurations(name string) error {
	if p.TimeoutRaw != "" {
		d, err := time.ParseDuration(p.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("market provider %s: invalid timeout %q: %w", name, p.TimeoutRaw, err)
		}
		if d <= 0 {
			return fmt.Errorf("market provider %s: timeout must be positive, got %s", name, d)
		}
		p.Timeout = d
	}
	if p.HTTPTimeoutRaw != "" {
		d, err := time.ParseDuration(p.HTTPTimeoutRaw)
		if err != nil {
			return fmt.Errorf("market provider %s: invalid http_timeout %q: %w", name, p.HTTPTimeoutRaw, err)
		}
		if d <= 0 {
			return fmt.Errorf("market provider %s: http_timeout must be positive, got %s", name, d)
		}
		p.HTTPTimeout = d
	}
	return nil
}

// Validate ensures the configuration is structurally sound.
func (c *Config) Validate() error {
	if len(c.Providers) == 0 {
		return fmt.Errorf("market config: providers cannot be empty")
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("market config: cache_ttl cannot be negative")
	}
	if c.Default != "" {
		if _, ok := c.Providers[c.Default]; !ok {
			return fmt.Errorf("market config: default provider %q not defined", c.Default)
		}
	}
	if c.Rates != "" {
		if _, ok := c.Providers[c.Rates]; !ok {
			return fmt.Errorf("market config: rates provider %q not defined", c.Rates)
		}
	}
	for class, route := range c.Routes {
		if _, err := ParseAssetClass(string(class)); err != nil {
			return fmt.Errorf("market config: route %q: %w", class, err)
		}
		for _, ref := range []string{route.Quote, route.History, route.Assets} {
			if ref == "" {
				continue
			}
			if _, ok := c.Providers[ref]; !ok {
				return fmt.Errorf("market config: route %s references undefined provider %q", class, ref)
			}
		}
	}
	for name, provider := range c.Providers {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("market config: provider name cannot be empty")
		}
		if err := provider.validate(name); err != nil {
			return err
		}
	}
	return c.Indicators.Validate()
}

func (p *ProviderConfig) validate(name string) error {
	if p == nil {
		return fmt.Errorf("market config: provider %s is nil", name)
	}
	if strings.TrimSpace(p.Type) == "" {
		return fmt.Errorf("market config: provider %s must specify type", name)
	}
	if _, ok := lookupProviderBuilder(p.Type); !ok {
		return fmt.Errorf("market config: provider %s has unsupported type %q (registered: %s)", name, p.Type, strings.Join(RegisteredTypes(), ", "))
	}
	if p.MaxRetries < 0 {
		return fmt.Errorf("market config: provider %s max_retries cannot be negative", name)
	}
	if p.RequestsPerMinute < 0 {
		return fmt.Errorf("market config: provider %s requests_per_minute cannot be negative", name)
	}
	return nil
}

// BuildProviders instantiates market data providers according to configuration.
func (c *Config) BuildProviders() (map[string]Provider, error) {
	result := make(map[string]Provider, len(c.Providers))
	for name, providerCfg := range c.Providers {
		builder, ok := lookupProviderBuilder(providerCfg.Type)
		if !ok {
			return nil, fmt.Errorf("market provider %s: unsupported type %q", name, providerCfg.Type)
		}
		provider, err := builder(name, providerCfg)
		if err != nil {
			return nil, fmt.Errorf("market provider %s: %w", name, err)
		}
		result[name] = provider
	}
	return result, nil
}

// DemoProviderName returns the first provider of type "demo", or "".
func (c *Config) DemoProviderName() string {
	names := make([]string, 0, len(c.Providers))
	for name := range c.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if strings.EqualFold(c.Providers[name].Type, "demo") {
			return name
		}
	}
	return ""
}
