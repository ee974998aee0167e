package storage_test

import (
	"testing"
	"time"

	"github.com/JaimeStill/lectern/pkg/storage"
)

var testEnv = &storage.Env{
	Provider:         "TEST_STORAGE_PROVIDER",
	URL:              "TEST_STORAGE_URL",
	ServiceKey:       "TEST_STORAGE_SERVICE_KEY",
	Bucket:           "TEST_STORAGE_BUCKET",
	Timeout:          "TEST_STORAGE_TIMEOUT",
	ConnectionString: "TEST_STORAGE_CONNECTION_STRING",
	AccountURL:       "TEST_STORAGE_ACCOUNT_URL",
}

func TestConfigDefaults(t *testing.T) {
	cfg := &storage.Config{URL: "http://localhost:54321", ServiceKey: "key"}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	if cfg.Provider != storage.ProviderSupabase {
		t.Errorf("Provider = %q, want supabase", cfg.Provider)
	}
	if cfg.Bucket != "docs" {
		t.Errorf("Bucket = %q, want docs", cfg.Bucket)
	}
	if cfg.TimeoutDuration() != 2*time.Minute {
		t.Errorf("Timeout = %v, want 2m", cfg.TimeoutDuration())
	}
}

func TestConfigEnvOverrides(t *testing.T) {
	t.Setenv("TEST_STORAGE_URL", "https://project.supabase.co")
	t.Setenv("TEST_STORAGE_SERVICE_KEY", "env-key")
	t.Setenv("TEST_STORAGE_BUCKET", "pdfs")
	t.Setenv("TEST_STORAGE_TIMEOUT", "90s")

	cfg := &storage.Config{}
	if err := cfg.Finalize(testEnv); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	if cfg.URL != "https://project.supabase.co" {
		t.Errorf("URL = %q", cfg.URL)
	}
	if cfg.ServiceKey != "env-key" {
		t.Errorf("ServiceKey = %q", cfg.ServiceKey)
	}
	if cfg.Bucket != "pdfs" {
		t.Errorf("Bucket = %q, want pdfs", cfg.Bucket)
	}
	if cfg.TimeoutDuration() != 90*time.Second {
		t.Errorf("Timeout = %v, want 90s", cfg.TimeoutDuration())
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     storage.Config
		wantErr bool
	}{
		{"supabase complete", storage.Config{URL: "http://x", ServiceKey: "k"}, false},
		{"supabase missing url", storage.Config{ServiceKey: "k"}, true},
		{"supabase missing key", storage.Config{URL: "http://x"}, true},
		{"azure connection string", storage.Config{Provider: storage.ProviderAzure, ConnectionString: "cs"}, false},
		{"azure account url", storage.Config{Provider: storage.ProviderAzure, AccountURL: "https://acct.blob.core.windows.net"}, false},
		{"azure missing credentials", storage.Config{Provider: storage.ProviderAzure}, true},
		{"unknown provider", storage.Config{Provider: "s3", URL: "http://x", ServiceKey: "k"}, true},
		{"invalid timeout", storage.Config{URL: "http://x", ServiceKey: "k", Timeout: "soon"}, true},
		{"zero timeout", storage.Config{URL: "http://x", ServiceKey: "k", Timeout: "0s"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			err := cfg.Finalize(nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("Finalize() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigMerge(t *testing.T) {
	base := &storage.Config{URL: "http://base", ServiceKey: "base-key", Bucket: "docs"}
	base.Merge(&storage.Config{Bucket: "archive"})

	if base.URL != "http://base" {
		t.Errorf("URL = %q, want unchanged", base.URL)
	}
	if base.Bucket != "archive" {
		t.Errorf("Bucket = %q, want archive", base.Bucket)
	}
}
