package config

import (
	"testing"
	"time"
)

func TestParseAndMerge(t *testing.T) {
	t.Parallel()

	raw := []byte(`
logging:
  level: debug
http:
  allowedOrigins: ["https://dashboard.example"]
pipeline:
  deadline: 45s
  rollup: mean
cache:
  ttl: 5m
  driver: sqlite
  dsn: file:cache.db
classifier:
  remoteWeight: 0.6
  tiers:
    - name: cloud
      kind: classify
      method: remote_primary
      endpoint: http://cloud/classify
      timeout: 10s
sources:
  - name: notices
    kind: notices
    enabled: false
    baseUrl: http://notices/list
    options:
      item: li.notice
`)

	fileCfg, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	cfg := mergeConfig(defaultConfig(), fileCfg)

	if cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected level %s", cfg.Logging.Level)
	}
	if cfg.HTTP.Addr == "" || len(cfg.HTTP.AllowedOrigins) != 1 {
		t.Fatalf("unexpected http config %+v", cfg.HTTP)
	}
	if cfg.Pipeline.Deadline != 45*time.Second {
		t.Fatalf("unexpected deadline %v", cfg.Pipeline.Deadline)
	}
	if cfg.Pipeline.AdapterTimeout != 30*time.Second {
		t.Fatalf("default adapter timeout lost: %v", cfg.Pipeline.AdapterTimeout)
	}
	if cfg.Cache.TTL != 5*time.Minute || cfg.Cache.Driver != "sqlite" {
		t.Fatalf("unexpected cache config %+v", cfg.Cache)
	}
	if len(cfg.Classifier.Tiers) != 1 || cfg.Classifier.Tiers[0].Timeout != 10*time.Second {
		t.Fatalf("unexpected tiers %+v", cfg.Classifier.Tiers)
	}
	if cfg.Classifier.GatePrior != 0.5 {
		t.Fatalf("default prior lost: %v", cfg.Classifier.GatePrior)
	}
	if len(cfg.Sources) != 1 || cfg.Sources[0].IsEnabled() {
		t.Fatalf("expected one disabled source, got %+v", cfg.Sources)
	}
	if len(cfg.SourceNames()) != 0 {
		t.Fatalf("disabled source should not be listed: %v", cfg.SourceNames())
	}
	if len(cfg.Escalation.Indicators) == 0 {
		t.Fatal("default escalation indicators lost")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(newsAPIKeyEnv, "news-key")
	t.Setenv(primaryAPIKeyEnv, "cloud-key")
	t.Setenv(logLevelEnv, "warn")

	cfg := defaultConfig()
	cfg.applyEnvOverrides()

	if cfg.Logging.Level != "warn" {
		t.Fatalf("unexpected level %s", cfg.Logging.Level)
	}
	if cfg.Classifier.Tiers[0].APIKey != "cloud-key" {
		t.Fatalf("primary key not applied")
	}
	var found bool
	for _, s := range cfg.Sources {
		if s.Kind == "newsapi" {
			found = s.APIKey == "news-key"
		}
	}
	if !found {
		t.Fatal("newsapi key not applied")
	}
}
