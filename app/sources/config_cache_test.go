package sources

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeSource(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name+".yml"), []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestConfigCacheLoadValidConfig(t *testing.T) {
	tempDir := t.TempDir()

	writeSource(t, tempDir, "news", `
url: "https://example.com/feed.xml"
post_type: article

settings:
  enabled: true
  refresh_interval: 1800
  max_items: 25
  timeout: 15
  extract_content: true

filters:
  - field: "title"
    includes:
      - "technology"
    excludes:
      - "spam"
`)

	configCache := NewConfigCache(tempDir)
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	if configCache.GetConfigCount() != 1 {
		t.Errorf("Expected 1 source config, got %d", configCache.GetConfigCount())
	}

	sourceConfig, err := configCache.GetConfig("news")
	if err != nil {
		t.Fatal(err)
	}

	want := &Config{
		Name:     "news",
		URL:      "https://example.com/feed.xml",
		PostType: "article",
		Settings: ConfigSettings{
			Enabled:         true,
			RefreshInterval: 1800,
			MaxItems:        25,
			Timeout:         15,
			ExtractContent:  true,
		},
		Filters: []ConfigFilter{{Field: "title", Includes: []string{"technology"}, Excludes: []string{"spam"}}},
	}
	if diff := cmp.Diff(want, sourceConfig); diff != "" {
		t.Errorf("Config mismatch (-want +got):\n%s", diff)
	}
}

func TestConfigCacheLoadConfigWithDefaults(t *testing.T) {
	tempDir := t.TempDir()
	writeSource(t, tempDir, "minimal", `
url: "https://example.com/feed.xml"
`)

	configCache := NewConfigCache(tempDir)
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	sourceConfig, err := configCache.GetConfig("minimal")
	if err != nil {
		t.Fatal(err)
	}

	if sourceConfig.PostType != "post" {
		t.Errorf("Expected default post type 'post', got '%s'", sourceConfig.PostType)
	}
	if sourceConfig.Settings.RefreshInterval != 3600 {
		t.Errorf("Expected default refresh interval 3600, got %d", sourceConfig.Settings.RefreshInterval)
	}
	if sourceConfig.Settings.MaxItems != 100 {
		t.Errorf("Expected default max items 100, got %d", sourceConfig.Settings.MaxItems)
	}
	if sourceConfig.Settings.Timeout != 30 {
		t.Errorf("Expected default timeout 30, got %d", sourceConfig.Settings.Timeout)
	}
	if sourceConfig.Settings.Enabled {
		t.Error("Expected source to be disabled by default")
	}
}

func TestConfigCacheInvalidConfigs(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"missing url", "settings:\n  enabled: true\n", "source URL is required"},
		{"negative timeout", "url: https://example.com\nsettings:\n  timeout: -1\n", "timeout must be non-negative"},
		{"bad post type", "url: https://example.com\npost_type: Blog Post\n", "post type"},
		{"unknown filter field", "url: https://example.com\nfilters:\n  - field: body\n    includes: [x]\n", "invalid filter field"},
		{"empty filter", "url: https://example.com\nfilters:\n  - field: title\n", "at least one include or exclude"},
		{"broken yaml", "url: [", "failed to parse YAML"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tempDir := t.TempDir()
			writeSource(t, tempDir, "bad", tt.body)

			err := NewConfigCache(tempDir).Run()
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfigCacheMissingDirectory(t *testing.T) {
	configCache := NewConfigCache(filepath.Join(t.TempDir(), "does-not-exist"))
	if err := configCache.Run(); err != nil {
		t.Errorf("Expected no error for missing directory, got %v", err)
	}
	if configCache.GetConfigCount() != 0 {
		t.Errorf("Expected empty cache, got %d", configCache.GetConfigCount())
	}
}

func TestConfigCacheEnabledConfigsAndNames(t *testing.T) {
	tempDir := t.TempDir()
	writeSource(t, tempDir, "b-on", "url: https://b.example.com\nsettings:\n  enabled: true\n")
	writeSource(t, tempDir, "a-off", "url: https://a.example.com\n")
	writeSource(t, tempDir, "c-on", "url: https://c.example.com\nsettings:\n  enabled: true\n")

	configCache := NewConfigCache(tempDir)
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"a-off", "b-on", "c-on"}, configCache.Names()); diff != "" {
		t.Errorf("Names mismatch (-want +got):\n%s", diff)
	}

	enabled := configCache.GetEnabledConfigs()
	if len(enabled) != 2 || enabled["a-off"] != nil {
		t.Errorf("Unexpected enabled configs: %v", enabled)
	}

	if _, err := configCache.GetConfig("missing"); err == nil {
		t.Error("Expected error for unknown source")
	}
}

func TestConfigCacheReloadConfig(t *testing.T) {
	tempDir := t.TempDir()
	writeSource(t, tempDir, "news", "url: https://old.example.com\n")

	configCache := NewConfigCache(tempDir)
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	writeSource(t, tempDir, "news", "url: https://new.example.com\n")
	if _, err := configCache.LoadConfig("news"); err != nil {
		t.Fatal(err)
	}

	sourceConfig, _ := configCache.GetConfig("news")
	if sourceConfig.URL != "https://new.example.com" {
		t.Errorf("Expected reloaded URL, got %s", sourceConfig.URL)
	}
}
