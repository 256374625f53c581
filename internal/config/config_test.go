package config

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"
)

func key(b byte) string {
	return base64.StdEncoding.EncodeToString([]byte(strings.Repeat(string(b), 32)))
}

func TestLoadDefaultsWithFileCatalog(t *testing.T) {
	t.Setenv("CATALOG_SOURCE", "file")
	t.Setenv("CATALOG_FILE", "/etc/askgate/catalog.yaml")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenPort() != 3001 {
		t.Fatalf("expected default port 3001, got %d", cfg.ListenPort())
	}
	if cfg.WS.SignalInterval != 5*time.Millisecond {
		t.Fatalf("unexpected signal interval %s", cfg.WS.SignalInterval)
	}
	if cfg.Rate.PerMinute != 0 {
		t.Fatalf("rate limit should be off by default, got %d", cfg.Rate.PerMinute)
	}
	if cfg.Server.HealthPath != "/healthz" || cfg.Server.MetricsPath != "/metrics" {
		t.Fatalf("unexpected paths %q %q", cfg.Server.HealthPath, cfg.Server.MetricsPath)
	}
	if len(cfg.Crypto.Keys) != 0 {
		t.Fatalf("file catalog should not load master keys")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CATALOG_SOURCE", "FILE")
	t.Setenv("CATALOG_FILE", "catalog.yaml")
	t.Setenv("PORT", "8080")
	t.Setenv("WS_MAX_INFLIGHT", "2")
	t.Setenv("WS_SIGNAL_INTERVAL", "20ms")
	t.Setenv("ADMISSION_RATE_PER_MINUTE", "60")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenPort() != 8080 || cfg.WS.MaxInFlight != 2 || cfg.WS.SignalInterval != 20*time.Millisecond {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Rate.PerMinute != 60 || cfg.Log.Level != "debug" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want error
	}{
		{"unknown source", map[string]string{"CATALOG_SOURCE": "consul"}, ErrInvalidCatalogSource},
		{"file without path", map[string]string{"CATALOG_SOURCE": "file"}, ErrMissingCatalogFile},
		{"bad port", map[string]string{"CATALOG_SOURCE": "file", "CATALOG_FILE": "c.yaml", "PORT": "70000"}, ErrInvalidPort},
		{"db without key", map[string]string{"CATALOG_SOURCE": "db"}, ErrMissingMasterKey},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadDBCatalogWithSingleKey(t *testing.T) {
	t.Setenv("CATALOG_SOURCE", "db")
	t.Setenv("MASTER_KEY_B64", key('a'))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Crypto.CurrentKeyID != "default" || len(cfg.Crypto.Keys["default"]) != 32 {
		t.Fatalf("unexpected crypto config %+v", cfg.Crypto)
	}
}

func TestLoadCryptoRotation(t *testing.T) {
	t.Setenv("MASTER_KEY_V1_B64", key('a'))
	t.Setenv("MASTER_KEYS_JSON", `{"V2":"`+key('b')+`"}`)

	if _, err := LoadCrypto(); err == nil {
		t.Fatalf("expected error without a current key id")
	}

	t.Setenv("MASTER_KEY_CURRENT_ID", "V2")
	cc, err := LoadCrypto()
	if err != nil {
		t.Fatalf("load crypto: %v", err)
	}
	if cc.CurrentKeyID != "V2" || len(cc.Keys) != 2 {
		t.Fatalf("unexpected crypto config %+v", cc)
	}
}

func TestLoadCryptoRejectsShortKey(t *testing.T) {
	t.Setenv("MASTER_KEY_B64", base64.StdEncoding.EncodeToString([]byte("short")))
	if _, err := LoadCrypto(); err == nil || !strings.Contains(err.Error(), "32 bytes") {
		t.Fatalf("expected key length error, got %v", err)
	}
}

func TestLoadFileCatalogPicksUpOptionalKeys(t *testing.T) {
	t.Setenv("CATALOG_SOURCE", "file")
	t.Setenv("CATALOG_FILE", "catalog.yaml")
	t.Setenv("MASTER_KEY_B64", key('c'))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Crypto.CurrentKeyID != "default" || len(cfg.Crypto.Keys) != 1 {
		t.Fatalf("expected optional key to be loaded, got %+v", cfg.Crypto)
	}

	t.Setenv("MASTER_KEY_B64", "bm90LWJhc2U2NA")
	if _, err := Load(); err == nil {
		t.Fatalf("expected a malformed key to fail even for the file catalog")
	}
}
