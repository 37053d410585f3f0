package config

import (
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv        = "RISK_SCANNER_CONFIG"
	logLevelEnv          = "LOG_LEVEL"
	httpAddrEnv          = "HTTP_ADDR"
	cacheDriverEnv       = "CACHE_DRIVER"
	cacheDSNEnv          = "CACHE_DSN"
	newsAPIKeyEnv        = "NEWSAPI_KEY"
	primaryAPIKeyEnv     = "PRIMARY_CLASSIFIER_API_KEY"
	primaryEndpointEnv   = "PRIMARY_CLASSIFIER_ENDPOINT"
	secondaryEndpointEnv = "SECONDARY_CLASSIFIER_ENDPOINT"
	telegramTokenEnv     = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv    = "TELEGRAM_CHAT_ID"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	HTTP          HTTPConfig         `yaml:"http"`
	Pipeline      PipelineConfig     `yaml:"pipeline"`
	Cache         CacheConfig        `yaml:"cache"`
	Classifier    ClassifierConfig   `yaml:"classifier"`
	Escalation    EscalationConfig   `yaml:"escalation"`
	Sources       []SourceConfig     `yaml:"sources"`
	Watchlist     WatchlistConfig    `yaml:"watchlist"`
	Notifications NotificationConfig `yaml:"notifications"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// HTTPConfig describes the request layer listener.
type HTTPConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

// PipelineConfig bounds a single run.
type PipelineConfig struct {
	Deadline          time.Duration `yaml:"deadline"`
	AdapterTimeout    time.Duration `yaml:"adapterTimeout"`
	MaxAdapters       int           `yaml:"maxAdapters"`
	RemoteConcurrency int           `yaml:"remoteConcurrency"`
	Rollup            string        `yaml:"rollup"`
}

// CacheConfig selects the result cache backend.
type CacheConfig struct {
	TTL    time.Duration `yaml:"ttl"`
	Driver string        `yaml:"driver"` // memory | sqlite
	DSN    string        `yaml:"dsn"`
}

// ClassifierConfig describes the remote tiers and how their confidence blends.
type ClassifierConfig struct {
	RemoteWeight float64      `yaml:"remoteWeight"`
	GatePrior    float64      `yaml:"gatePrior"`
	Tiers        []TierConfig `yaml:"tiers"`
}

// TierConfig is one remote strategy in fallback order.
type TierConfig struct {
	Name         string        `yaml:"name"`
	Kind         string        `yaml:"kind"` // chat | classify
	Method       string        `yaml:"method"`
	Endpoint     string        `yaml:"endpoint"`
	Model        string        `yaml:"model"`
	APIKey       string        `yaml:"apiKey"`
	SystemPrompt string        `yaml:"systemPrompt"`
	Timeout      time.Duration `yaml:"timeout"`
}

// EscalationConfig is tunable policy data for the escalation predicate.
type EscalationConfig struct {
	Indicators []string `yaml:"indicators"`
	Exclusions []string `yaml:"exclusions"`
	MinLength  int      `yaml:"minLength"`
}

// SourceConfig describes a single provider and its adapter kind.
type SourceConfig struct {
	Name            string            `yaml:"name"`
	Kind            string            `yaml:"kind"`
	Enabled         *bool             `yaml:"enabled"`
	BaseURL         string            `yaml:"baseUrl"`
	APIKey          string            `yaml:"apiKey"`
	Feeds           []string          `yaml:"feeds"`
	MaxLookbackDays int               `yaml:"maxLookbackDays"`
	Options         map[string]string `yaml:"options"`
}

// IsEnabled treats a missing flag as enabled.
func (s SourceConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// WatchlistConfig drives periodic cache warming.
type WatchlistConfig struct {
	Companies []string      `yaml:"companies"`
	Interval  time.Duration `yaml:"interval"`
	DaysBack  int           `yaml:"daysBack"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else if fileCfg, err := Parse(raw); err != nil {
			log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
		} else {
			cfg = mergeConfig(cfg, fileCfg)
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

// Parse decodes a YAML document without applying defaults.
func Parse(raw []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(httpAddrEnv); v != "" {
		c.HTTP.Addr = v
	}
	if v := os.Getenv(cacheDriverEnv); v != "" {
		c.Cache.Driver = v
	}
	if v := os.Getenv(cacheDSNEnv); v != "" {
		c.Cache.DSN = v
	}

	if v := os.Getenv(newsAPIKeyEnv); v != "" {
		for i := range c.Sources {
			if c.Sources[i].Kind == "newsapi" {
				c.Sources[i].APIKey = v
			}
		}
	}

	if len(c.Classifier.Tiers) > 0 {
		if v := os.Getenv(primaryAPIKeyEnv); v != "" {
			c.Classifier.Tiers[0].APIKey = v
		}
		if v := os.Getenv(primaryEndpointEnv); v != "" {
			c.Classifier.Tiers[0].Endpoint = v
		}
	}
	if len(c.Classifier.Tiers) > 1 {
		if v := os.Getenv(secondaryEndpointEnv); v != "" {
			c.Classifier.Tiers[1].Endpoint = v
		}
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.HTTP.Addr != "" {
		base.HTTP.Addr = override.HTTP.Addr
	}
	if len(override.HTTP.AllowedOrigins) > 0 {
		base.HTTP.AllowedOrigins = override.HTTP.AllowedOrigins
	}

	if override.Pipeline.Deadline > 0 {
		base.Pipeline.Deadline = override.Pipeline.Deadline
	}
	if override.Pipeline.AdapterTimeout > 0 {
		base.Pipeline.AdapterTimeout = override.Pipeline.AdapterTimeout
	}
	if override.Pipeline.MaxAdapters > 0 {
		base.Pipeline.MaxAdapters = override.Pipeline.MaxAdapters
	}
	if override.Pipeline.RemoteConcurrency > 0 {
		base.Pipeline.RemoteConcurrency = override.Pipeline.RemoteConcurrency
	}
	if override.Pipeline.Rollup != "" {
		base.Pipeline.Rollup = override.Pipeline.Rollup
	}

	if override.Cache.TTL > 0 {
		base.Cache.TTL = override.Cache.TTL
	}
	if override.Cache.Driver != "" {
		base.Cache.Driver = override.Cache.Driver
	}
	if override.Cache.DSN != "" {
		base.Cache.DSN = override.Cache.DSN
	}

	if override.Classifier.RemoteWeight > 0 {
		base.Classifier.RemoteWeight = override.Classifier.RemoteWeight
	}
	if override.Classifier.GatePrior > 0 {
		base.Classifier.GatePrior = override.Classifier.GatePrior
	}
	if len(override.Classifier.Tiers) > 0 {
		base.Classifier.Tiers = override.Classifier.Tiers
	}

	if len(override.Escalation.Indicators) > 0 {
		base.Escalation.Indicators = override.Escalation.Indicators
	}
	if len(override.Escalation.Exclusions) > 0 {
		base.Escalation.Exclusions = override.Escalation.Exclusions
	}
	if override.Escalation.MinLength > 0 {
		base.Escalation.MinLength = override.Escalation.MinLength
	}

	if len(override.Sources) > 0 {
		base.Sources = override.Sources
	}

	if len(override.Watchlist.Companies) > 0 {
		base.Watchlist.Companies = override.Watchlist.Companies
	}
	if override.Watchlist.Interval > 0 {
		base.Watchlist.Interval = override.Watchlist.Interval
	}
	if override.Watchlist.DaysBack > 0 {
		base.Watchlist.DaysBack = override.Watchlist.DaysBack
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	return base
}

// SourceNames lists the enabled source names in config order.
func (c Config) SourceNames() []string {
	names := make([]string, 0, len(c.Sources))
	for _, s := range c.Sources {
		if s.IsEnabled() {
			names = append(names, strings.ToLower(s.Name))
		}
	}
	return names
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		HTTP:    HTTPConfig{Addr: ":8080"},
		Pipeline: PipelineConfig{
			Deadline:          90 * time.Second,
			AdapterTimeout:    30 * time.Second,
			MaxAdapters:       8,
			RemoteConcurrency: 4,
			Rollup:            "max",
		},
		Cache: CacheConfig{TTL: 30 * time.Minute, Driver: "memory"},
		Classifier: ClassifierConfig{
			RemoteWeight: 0.7,
			GatePrior:    0.5,
			Tiers: []TierConfig{
				{
					Name:     "primary",
					Kind:     "chat",
					Method:   "remote_primary",
					Endpoint: "https://api.openai.com/v1/chat/completions",
					Model:    "gpt-4o-mini",
					Timeout:  30 * time.Second,
				},
				{
					Name:     "secondary",
					Kind:     "classify",
					Method:   "remote_secondary",
					Endpoint: "http://localhost:11434/classify",
					Timeout:  60 * time.Second,
				},
			},
		},
		Escalation: EscalationConfig{
			Indicators: []string{
				"tribunal", "juzgado", "demanda", "denuncia", "sancion", "multa",
				"expediente", "investigacion", "regulador", "litigio", "querella",
				"lawsuit", "court", "regulator", "penalty", "investigation",
			},
			Exclusions: []string{
				"nombramiento", "nombra", "dimision", "dimite", "cese de", "junta general",
				"appointed", "appointment", "resigns", "resignation",
			},
			MinLength: 200,
		},
		Sources: []SourceConfig{
			{
				Name:            "gazette",
				Kind:            "gazette",
				BaseURL:         "https://www.boe.es/datosabiertos/api/boe/sumario",
				MaxLookbackDays: 90,
				Options:         map[string]string{"holidays": "01-01,01-06,05-01,08-15,10-12,11-01,12-06,12-08,12-25"},
			},
			{
				Name:            "newsapi",
				Kind:            "newsapi",
				BaseURL:         "https://newsapi.org/v2/everything",
				MaxLookbackDays: 30,
				Options:         map[string]string{"language": "es", "maxPages": "3"},
			},
			{
				Name: "rss",
				Kind: "rss",
				Feeds: []string{
					"https://feeds.elpais.com/mrss-s/pages/ep/site/elpais.com/section/economia/portada",
					"https://e00-expansion.uecdn.es/rss/empresas.xml",
				},
			},
		},
		Watchlist: WatchlistConfig{Interval: 6 * time.Hour, DaysBack: 7},
	}
}
