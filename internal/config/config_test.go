package config

import (
	"os"
	"path/filepath"
	"testing"
)

// isolate points HOME at an empty dir, clears meow env overrides and moves
// into a fresh workspace. It returns the home and workspace dirs.
func isolate(t *testing.T) (string, string) {
	t.Helper()
	homeDir := t.TempDir()
	workspace := t.TempDir()

	for _, key := range []string{
		configDirEnvKey,
		trustProjectConfigEnvKey,
		apiURLEnvKey,
		storageDirEnvKey,
		logLevelEnvKey,
		idStrategyEnvKey,
	} {
		t.Setenv(key, "")
	}
	t.Setenv("HOME", homeDir)

	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(oldWD)
	})
	if err := os.Chdir(workspace); err != nil {
		t.Fatalf("chdir workspace: %v", err)
	}
	// Resolve symlinks so paths built from os.Getwd match.
	if resolved, err := os.Getwd(); err == nil {
		workspace = resolved
	}
	return homeDir, workspace
}

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config %s: %v", path, err)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.APIURL != "http://127.0.0.1:3000" {
		t.Fatalf("expected default API URL, got %q", cfg.APIURL)
	}
	if cfg.StorageDir != "" {
		t.Fatalf("expected storage dir to be resolved at load, got %q", cfg.StorageDir)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Fatalf("expected default log level %q, got %q", DefaultLogLevel, cfg.LogLevel)
	}
	if cfg.IDStrategy != "timestamp" {
		t.Fatalf("expected timestamp ids by default, got %q", cfg.IDStrategy)
	}
	if cfg.Uploads.MaxUploadBytes != DefaultMaxUploadBytes {
		t.Fatalf("expected max upload default %d, got %d", DefaultMaxUploadBytes, cfg.Uploads.MaxUploadBytes)
	}
	if cfg.Uploads.MultipartMaxMemory != DefaultMultipartMaxMemory {
		t.Fatalf("expected multipart default %d, got %d", DefaultMultipartMaxMemory, cfg.Uploads.MultipartMaxMemory)
	}
	if !cfg.Metrics.Enabled {
		t.Fatal("expected metrics enabled by default")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), configFileName)
	writeConfig(t, path, `api_url = "http://localhost:9999"
storage_dir = "/srv/cats"
log_level = "warn"
id_strategy = "uuid"

[uploads]
max_upload_bytes = 2048

[metrics]
enabled = false
`)

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://localhost:9999" {
		t.Fatalf("expected api_url 'http://localhost:9999', got %q", cfg.APIURL)
	}
	if cfg.StorageDir != "/srv/cats" {
		t.Fatalf("expected storage_dir '/srv/cats', got %q", cfg.StorageDir)
	}
	if cfg.LogLevel != "warn" || cfg.IDStrategy != "uuid" {
		t.Fatalf("unexpected log_level=%q id_strategy=%q", cfg.LogLevel, cfg.IDStrategy)
	}
	if cfg.Uploads.MaxUploadBytes != 2048 {
		t.Fatalf("expected max_upload_bytes 2048, got %d", cfg.Uploads.MaxUploadBytes)
	}
	if cfg.Uploads.MultipartMaxMemory != DefaultMultipartMaxMemory {
		t.Fatalf("expected untouched multipart default, got %d", cfg.Uploads.MultipartMaxMemory)
	}
	if cfg.Metrics.Enabled {
		t.Fatal("expected metrics disabled")
	}
}

func TestLoadFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFile("/nonexistent/path/.meow.toml", &cfg); err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.APIURL != DefaultAPIURL {
		t.Fatalf("defaults should be preserved")
	}
}

func TestLoadFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), configFileName)
	writeConfig(t, path, "api_url = \n")
	cfg := Default()
	if err := loadFile(path, &cfg); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestIsAllowedKey(t *testing.T) {
	for _, key := range []string{
		"api_url",
		"storage_dir",
		"log_level",
		"id_strategy",
		"uploads.max_upload_bytes",
		"uploads.multipart_max_memory",
		"metrics.enabled",
	} {
		if !IsAllowedKey(key) {
			t.Fatalf("expected %q to be allowed", key)
		}
	}
	if IsAllowedKey("db_path") {
		t.Fatal("expected 'db_path' to not be allowed")
	}
}

func TestGetKey(t *testing.T) {
	cfg := Config{
		APIURL:     "http://test:1234",
		StorageDir: "/tmp/cats",
		LogLevel:   "warn",
		IDStrategy: "uuid",
		Uploads:    UploadConfig{MaxUploadBytes: 123, MultipartMaxMemory: 456},
		Metrics:    MetricsConfig{Enabled: true},
	}

	tests := map[string]string{
		"api_url":                      "http://test:1234",
		"storage_dir":                  "/tmp/cats",
		"log_level":                    "warn",
		"id_strategy":                  "uuid",
		"uploads.max_upload_bytes":     "123",
		"uploads.multipart_max_memory": "456",
		"metrics.enabled":              "true",
	}
	for key, want := range tests {
		got, err := cfg.Get(key)
		if err != nil || got != want {
			t.Fatalf("Get(%q) = %q (err: %v), want %q", key, got, err, want)
		}
	}

	if _, err := cfg.Get("unknown"); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestSetKeyCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "new.toml")
	if err := SetKey(path, "storage_dir", "/srv/cats"); err != nil {
		t.Fatalf("set: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StorageDir != "/srv/cats" {
		t.Fatalf("expected '/srv/cats', got %q", cfg.StorageDir)
	}
}

func TestSetKeyUpdatesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "existing.toml")
	writeConfig(t, path, "storage_dir = \"/old\"\napi_url = \"http://keep\"\n")

	if err := SetKey(path, "storage_dir", "/new"); err != nil {
		t.Fatalf("set: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StorageDir != "/new" {
		t.Fatalf("expected '/new', got %q", cfg.StorageDir)
	}
	if cfg.APIURL != "http://keep" {
		t.Fatalf("expected preserved api_url 'http://keep', got %q", cfg.APIURL)
	}
}

func TestSetNestedKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested.toml")
	if err := SetKey(path, "uploads.max_upload_bytes", "4096"); err != nil {
		t.Fatalf("set max upload: %v", err)
	}
	if err := SetKey(path, "metrics.enabled", "false"); err != nil {
		t.Fatalf("set metrics: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Uploads.MaxUploadBytes != 4096 {
		t.Fatalf("expected max_upload_bytes 4096, got %d", cfg.Uploads.MaxUploadBytes)
	}
	if cfg.Metrics.Enabled {
		t.Fatal("expected metrics disabled")
	}
}

func TestSetKeyRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"invalid_key", "value"},
		{"uploads.max_upload_bytes", "-1"},
		{"uploads.multipart_max_memory", "lots"},
		{"metrics.enabled", "maybe"},
		{"id_strategy", "sequential"},
		{"log_level", "verbose"},
		{"storage_dir", "  "},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "test.toml")
			if err := SetKey(path, tt.key, tt.value); err == nil {
				t.Fatalf("expected error setting %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestConfigDirOverridePaths(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(configDirEnvKey, dir)

	globalPath, err := GlobalPath()
	if err != nil {
		t.Fatalf("global path: %v", err)
	}
	if globalPath != filepath.Join(dir, configFileName) {
		t.Fatalf("unexpected global path: %s", globalPath)
	}

	projectPath, err := ProjectPath()
	if err != nil {
		t.Fatalf("project path: %v", err)
	}
	if projectPath != filepath.Join(dir, configFileName) {
		t.Fatalf("unexpected project path: %s", projectPath)
	}
}

func TestLoadDefaultsStorageDirToWorkspace(t *testing.T) {
	_, workspace := isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StorageDir != filepath.Join(workspace, DefaultStorageDirName) {
		t.Fatalf("expected workspace uploads dir, got %q", cfg.StorageDir)
	}
	if cfg.APIURL != DefaultAPIURL {
		t.Fatalf("expected default api url, got %q", cfg.APIURL)
	}
}

func TestLoadConfigDirOverride(t *testing.T) {
	_, workspace := isolate(t)
	configDir := t.TempDir()
	writeConfig(t, filepath.Join(configDir, configFileName), "api_url = \"http://127.0.0.1:9001\"\nstorage_dir = \"pics\"\n")
	writeConfig(t, filepath.Join(workspace, configFileName), "api_url = \"http://127.0.0.1:9002\"\n")
	t.Setenv(configDirEnvKey, configDir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://127.0.0.1:9001" {
		t.Fatalf("expected config-dir api_url override, got %q", cfg.APIURL)
	}
	if cfg.StorageDir != filepath.Join(workspace, "pics") {
		t.Fatalf("expected relative storage dir resolved against workspace, got %q", cfg.StorageDir)
	}
}

func TestEnvOverrides(t *testing.T) {
	homeDir, _ := isolate(t)
	writeConfig(t, filepath.Join(homeDir, configFileName), "api_url = \"http://from-file:1\"\nid_strategy = \"timestamp\"\n")

	t.Setenv(apiURLEnvKey, "http://example.com:8080")
	t.Setenv(storageDirEnvKey, "/tmp/override")
	t.Setenv(logLevelEnvKey, "DEBUG")
	t.Setenv(idStrategyEnvKey, "uuid")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://example.com:8080" {
		t.Fatalf("expected env override for API URL, got %q", cfg.APIURL)
	}
	if cfg.StorageDir != "/tmp/override" {
		t.Fatalf("expected env override for storage dir, got %q", cfg.StorageDir)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected normalized log level 'debug', got %q", cfg.LogLevel)
	}
	if cfg.IDStrategy != "uuid" {
		t.Fatalf("expected env override for id strategy, got %q", cfg.IDStrategy)
	}
}

func TestLoadFallsBackToDefaultsWhenConfiguredEmpty(t *testing.T) {
	homeDir, _ := isolate(t)
	writeConfig(t, filepath.Join(homeDir, configFileName), `log_level = ""
api_url = ""
id_strategy = ""

[uploads]
max_upload_bytes = 0
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Fatalf("expected default log level %q, got %q", DefaultLogLevel, cfg.LogLevel)
	}
	if cfg.APIURL != DefaultAPIURL {
		t.Fatalf("expected default api url, got %q", cfg.APIURL)
	}
	if cfg.IDStrategy != DefaultIDStrategy {
		t.Fatalf("expected default id strategy, got %q", cfg.IDStrategy)
	}
	if cfg.Uploads.MaxUploadBytes != DefaultMaxUploadBytes {
		t.Fatalf("expected default max upload, got %d", cfg.Uploads.MaxUploadBytes)
	}
}

func TestLoadProjectConfigTrust(t *testing.T) {
	tests := []struct {
		name    string
		trust   string
		wantURL string
		trusted bool
	}{
		{name: "ignored by default", trust: "", wantURL: "http://global:1"},
		{name: "applied when trusted", trust: "true", wantURL: "http://project:2", trusted: true},
		{name: "ignored on invalid value", trust: "definitely-not-bool", wantURL: "http://global:1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			homeDir, workspace := isolate(t)
			writeConfig(t, filepath.Join(homeDir, configFileName), "api_url = \"http://global:1\"\n")
			writeConfig(t, filepath.Join(workspace, configFileName), "api_url = \"http://project:2\"\n")
			t.Setenv(trustProjectConfigEnvKey, tt.trust)

			cfg, err := Load()
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if cfg.APIURL != tt.wantURL {
				t.Fatalf("expected api_url %q, got %q", tt.wantURL, cfg.APIURL)
			}
			wantPath := ""
			if tt.trusted {
				wantPath = filepath.Join(workspace, configFileName)
			}
			if cfg.TrustedProjectConfigPath != wantPath {
				t.Fatalf("expected trusted project config path %q, got %q", wantPath, cfg.TrustedProjectConfigPath)
			}
		})
	}
}
