package config

import (
	"os"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/chainprobe/internal/domain"
	"gopkg.in/yaml.v3"
)

// Config is the static run-time configuration: which networks to probe, how
// to query their providers, and how to price results.
type Config struct {
	Networks map[domain.Currency]Network
	Rates    Rates
	// FailureCooldown is applied by the registry when a provider exhausts its
	// retry budget. Zero disables automatic cooldown.
	FailureCooldown time.Duration
}

// Network holds everything needed to probe one chain.
type Network struct {
	DerivationPath string
	Exponent       int32
	Providers      []domain.ProviderDescriptor
	Tokens         map[string]domain.TokenConfig
}

// Rates configures the exchange-rate cache.
type Rates struct {
	FeedURL         string
	RefreshInterval time.Duration
	Fallback        map[string]float64
}

type configTmp struct {
	FailureCooldownStr string             `yaml:"failure_cooldown,omitempty"`
	Rates              ratesTmp           `yaml:"rates"`
	Networks           map[string]*netTmp `yaml:"networks"`
}

type ratesTmp struct {
	FeedURL            string             `yaml:"feed_url"`
	RefreshIntervalStr string             `yaml:"refresh_interval"`
	Fallback           map[string]float64 `yaml:"fallback"`
}

type netTmp struct {
	DerivationPath string              `yaml:"derivation_path"`
	Exponent       int32               `yaml:"exponent"`
	Providers      []providerTmp       `yaml:"providers,omitempty"`
	Tokens         map[string]tokenTmp `yaml:"tokens,omitempty"`
}

type providerTmp struct {
	Name              string `yaml:"name"`
	URLTemplate       string `yaml:"url_template"`
	APIKey            string `yaml:"api_key,omitempty"`
	ResponsePath      string `yaml:"response_path,omitempty"`
	AccessMethod      string `yaml:"access_method,omitempty"`
	TextResponse      bool   `yaml:"text_response,omitempty"`
	TokenURLTemplate  string `yaml:"token_url_template,omitempty"`
	TokenResponsePath string `yaml:"token_response_path,omitempty"`
}

type tokenTmp struct {
	Contract string `yaml:"contract"`
	Exponent int32  `yaml:"exponent"`
}

// Load reads and validates a YAML config file.
func Load(path string) (*Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}

	var tmp configTmp
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}

	return tmp.convert()
}

func (t *configTmp) convert() (*Config, error) {
	cfg := &Config{Networks: make(map[domain.Currency]Network, len(t.Networks))}

	var err error
	if t.FailureCooldownStr != "" {
		if cfg.FailureCooldown, err = time.ParseDuration(t.FailureCooldownStr); err != nil {
			return nil, errors.Wrap(err, "invalid failure_cooldown")
		}
	}

	if t.Rates.FeedURL == "" {
		return nil, errors.New("rates.feed_url is required")
	}
	interval := 5 * time.Minute
	if t.Rates.RefreshIntervalStr != "" {
		if interval, err = time.ParseDuration(t.Rates.RefreshIntervalStr); err != nil {
			return nil, errors.Wrap(err, "invalid rates.refresh_interval")
		}
	}
	cfg.Rates = Rates{
		FeedURL:         t.Rates.FeedURL,
		RefreshInterval: interval,
		Fallback:        t.Rates.Fallback,
	}

	if len(t.Networks) == 0 {
		return nil, errors.New("no networks configured")
	}
	for name, n := range t.Networks {
		net, err := n.convert()
		if err != nil {
			return nil, errors.Wrapf(err, "network %s", name)
		}
		cfg.Networks[domain.Currency(name)] = net
	}

	return cfg, nil
}

func (n *netTmp) convert() (Network, error) {
	if n.DerivationPath == "" {
		return Network{}, errors.New("derivation_path is required")
	}
	if n.Exponent <= 0 {
		return Network{}, errors.New("exponent must be positive")
	}

	net := Network{
		DerivationPath: n.DerivationPath,
		Exponent:       n.Exponent,
	}

	seen := make(map[string]bool, len(n.Providers))
	for _, p := range n.Providers {
		if p.Name == "" || p.URLTemplate == "" {
			return Network{}, errors.New("provider name and url_template are required")
		}
		if seen[p.Name] {
			return Network{}, errors.Errorf("duplicate provider name %q", p.Name)
		}
		seen[p.Name] = true
		net.Providers = append(net.Providers, domain.ProviderDescriptor{
			Name:              p.Name,
			URLTemplate:       p.URLTemplate,
			APIKey:            p.APIKey,
			ResponsePath:      p.ResponsePath,
			AccessMethod:      p.AccessMethod,
			TextResponse:      p.TextResponse,
			TokenURLTemplate:  p.TokenURLTemplate,
			TokenResponsePath: p.TokenResponsePath,
		})
	}

	if len(n.Tokens) > 0 {
		net.Tokens = make(map[string]domain.TokenConfig, len(n.Tokens))
		for sym, tok := range n.Tokens {
			if tok.Contract == "" {
				return Network{}, errors.Errorf("token %s: contract is required", sym)
			}
			net.Tokens[sym] = domain.TokenConfig{Contract: tok.Contract, Exponent: tok.Exponent}
		}
	}

	return net, nil
}

// NetworkConfigs maps the loaded networks to the domain representation used
// by the resolver and scanner.
func (c *Config) NetworkConfigs() map[domain.Currency]domain.NetworkConfig {
	out := make(map[domain.Currency]domain.NetworkConfig, len(c.Networks))
	for cur, n := range c.Networks {
		out[cur] = domain.NetworkConfig{
			DerivationPath: n.DerivationPath,
			Exponent:       n.Exponent,
			Tokens:         n.Tokens,
		}
	}
	return out
}

// TrackedSymbols returns the sorted union of network names and token symbols,
// the set of prices the rate cache keeps fresh.
func (c *Config) TrackedSymbols() []string {
	set := make(map[string]bool)
	for cur, n := range c.Networks {
		set[cur.String()] = true
		for sym := range n.Tokens {
			set[sym] = true
		}
	}

	out := make([]string, 0, len(set))
	for sym := range set {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}
