package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/rtdbkit/logger"
)

type testConfig struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Store         storeConfig  `yaml:"store" mapstructure:"store"`
	Limits        *limitConfig `yaml:"limits" mapstructure:"limits"`
}

type storeConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
	OnEvent func()        `mapstructure:"-"`
}

type limitConfig struct {
	Max int `mapstructure:"max"`
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestServiceConfigApplyDefaults(t *testing.T) {
	t.Run("empty environment defaults to development", func(t *testing.T) {
		cfg := ServiceConfig{Name: "rtdb"}
		cfg.ApplyDefaults()
		if cfg.Environment != "development" {
			t.Errorf("expected 'development', got %q", cfg.Environment)
		}
		if !cfg.Debug {
			t.Error("expected debug=true for development")
		}
		if cfg.Logging.ServiceName != "rtdb" {
			t.Errorf("expected logging service name 'rtdb', got %q", cfg.Logging.ServiceName)
		}
		if cfg.Logging.Level != "info" {
			t.Errorf("expected logging defaults applied, got level %q", cfg.Logging.Level)
		}
	})

	t.Run("production keeps debug false", func(t *testing.T) {
		cfg := ServiceConfig{Name: "rtdb", Environment: "production"}
		cfg.ApplyDefaults()
		if cfg.Debug {
			t.Error("expected debug=false for production")
		}
	})
}

func TestServiceConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ServiceConfig
		wantErr string
	}{
		{"valid", ServiceConfig{Name: "rtdb", Environment: "staging"}, ""},
		{"missing name", ServiceConfig{Environment: "production"}, "name"},
		{"invalid environment", ServiceConfig{Name: "rtdb", Environment: "qa"}, "environment"},
		{"invalid log level", ServiceConfig{Name: "rtdb", Environment: "production", Logging: loggingWithLevel("loud")}, "logging.level"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.cfg.Logging.Level == "" {
				tc.cfg.Logging.ApplyDefaults()
			}
			err := tc.cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestLoadConfig_YAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "rtdb.yml", `
name: rtdb
environment: staging
store:
  url: https://db.example.com
  timeout: 5s
logging:
  level: warn
`)

	var cfg testConfig
	if err := LoadConfig("rtdb", &cfg, WithConfigFile(path)); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Name != "rtdb" || cfg.Environment != "staging" {
		t.Errorf("unexpected service config %+v", cfg.ServiceConfig)
	}
	if cfg.Store.URL != "https://db.example.com" || cfg.Store.Timeout != 5*time.Second {
		t.Errorf("unexpected store config %+v", cfg.Store)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected level warn, got %q", cfg.Logging.Level)
	}
	if cfg.Limits != nil {
		t.Errorf("expected nil limits, got %+v", cfg.Limits)
	}
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", "store:\n  url: https://file.example.com\n")
	t.Setenv("STORE_URL", "https://env.example.com")
	t.Setenv("LIMITS_MAX", "7")

	var cfg testConfig
	if err := LoadConfig("rtdb", &cfg, WithConfigFile(path)); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Store.URL != "https://env.example.com" {
		t.Errorf("expected env value, got %q", cfg.Store.URL)
	}
	if cfg.Limits == nil || cfg.Limits.Max != 7 {
		t.Errorf("expected limits.max=7 from env, got %+v", cfg.Limits)
	}
}

func TestLoadConfig_EnvOnlyWithPrefix(t *testing.T) {
	t.Setenv("APP_STORE_TIMEOUT", "250ms")
	t.Setenv("APP_LOGGING_FORMAT", "json")

	var cfg testConfig
	err := LoadConfig("rtdb", &cfg, WithEnvPrefix("APP"), WithSearchDirs(t.TempDir()))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Store.Timeout != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %v", cfg.Store.Timeout)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("expected json, got %q", cfg.Logging.Format)
	}
}

func TestLoadConfig_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := writeFile(t, dir, ".env", "NAME=from-dotenv\n")
	t.Setenv("NAME", "")
	os.Unsetenv("NAME")

	var cfg testConfig
	if err := LoadConfig("rtdb", &cfg, WithEnvFile(envPath), WithSearchDirs(dir)); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Name != "from-dotenv" {
		t.Errorf("expected name from .env, got %q", cfg.Name)
	}
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	var cfg testConfig
	err := LoadConfig("rtdb", &cfg, WithConfigFile("/nonexistent/path.yml"))
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoadConfig_NothingFound(t *testing.T) {
	var cfg testConfig
	if err := LoadConfig("rtdb", &cfg, WithSearchDirs(t.TempDir())); err != nil {
		t.Fatalf("expected success with no files, got %v", err)
	}
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yml", "store: [unclosed\n")
	var cfg testConfig
	if err := LoadConfig("rtdb", &cfg, WithConfigFile(path)); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

type mockFS struct {
	files  map[string]bool
	loaded []string
}

func (m *mockFS) Exists(path string) bool { return m.files[path] }
func (m *mockFS) LoadEnv(path string) error {
	m.loaded = append(m.loaded, path)
	return nil
}

func TestResolver_SearchOrder(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"config/rtdb.yml":     true,
		"config.yml":          true,
		"config/.env":         true,
		"home/rtdb/.env.rtdb": true,
	}}
	r := &Resolver{FileSystem: fs}
	files := r.ResolveFiles("rtdb", LoaderConfig{SearchDirs: []string{".", "config", "home/rtdb"}})

	if files.ConfigFile != "config/rtdb.yml" {
		t.Errorf("expected service-named file to win, got %q", files.ConfigFile)
	}
	if files.EnvFile != "home/rtdb/.env.rtdb" {
		t.Errorf("expected service env file to win, got %q", files.EnvFile)
	}
}

func TestResolver_ExplicitPaths(t *testing.T) {
	r := &Resolver{FileSystem: &mockFS{}}
	files := r.ResolveFiles("rtdb", LoaderConfig{ConfigFile: "a.yml", EnvFile: "b.env"})
	if files.ConfigFile != "a.yml" || files.EnvFile != "b.env" {
		t.Errorf("unexpected files %+v", files)
	}
}

func TestLoadConfig_UsesFileSystem(t *testing.T) {
	fs := &mockFS{files: map[string]bool{"x/.env": true}}
	var cfg testConfig
	if err := LoadConfig("rtdb", &cfg, WithFileSystem(fs), WithSearchDirs("x")); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(fs.loaded) != 1 || fs.loaded[0] != "x/.env" {
		t.Errorf("expected x/.env loaded, got %v", fs.loaded)
	}
}

func TestDefaultSearchDirs(t *testing.T) {
	dirs := DefaultSearchDirs("rtdb")
	if len(dirs) < 2 || dirs[0] != "." || dirs[1] != "config" {
		t.Errorf("unexpected dirs %v", dirs)
	}
}

func loggingWithLevel(level string) (c logger.Config) {
	c.ApplyDefaults()
	c.Level = level
	return c
}
