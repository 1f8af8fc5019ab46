package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// FileSystem abstracts the file operations of the loader.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// OSFileSystem implements FileSystem on the real file system.
type OSFileSystem struct{}

// Exists reports whether path exists.
func (OSFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LoadEnv loads a .env file into the process environment without
// overriding variables that are already set.
func (OSFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// LoaderConfig holds the loader's dependencies and overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string   // explicit config file (optional)
	EnvFile    string   // explicit .env file (optional)
	EnvPrefix  string   // prefix of environment variables (optional)
	SearchDirs []string // directories searched when no file is given
}

// LoaderOption is a functional option for LoadConfig.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path. It must exist.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path. It must exist.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithEnvPrefix makes environment variables PREFIX_KEY instead of KEY.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvPrefix = prefix }
}

// WithSearchDirs replaces the directories searched for files.
func WithSearchDirs(dirs ...string) LoaderOption {
	return func(lc *LoaderConfig) { lc.SearchDirs = dirs }
}

// ResolvedFiles contains the resolved config and env file paths.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// Resolver finds config and env files for a service.
type Resolver struct {
	FileSystem FileSystem
}

// ResolveFiles returns explicit paths when given, otherwise the first
// match in the search directories. Missing files resolve to "".
func (r *Resolver) ResolveFiles(serviceName string, lc LoaderConfig) ResolvedFiles {
	dirs := lc.SearchDirs
	if len(dirs) == 0 {
		dirs = DefaultSearchDirs(serviceName)
	}

	resolved := ResolvedFiles{ConfigFile: lc.ConfigFile, EnvFile: lc.EnvFile}
	if resolved.ConfigFile == "" {
		resolved.ConfigFile = r.first(dirs, serviceName+".yml", serviceName+".yaml", "config.yml", "config.yaml")
	}
	if resolved.EnvFile == "" {
		resolved.EnvFile = r.first(dirs, ".env."+serviceName, ".env")
	}
	return resolved
}

func (r *Resolver) first(dirs []string, names ...string) string {
	for _, name := range names {
		for _, dir := range dirs {
			path := filepath.Join(dir, name)
			if r.FileSystem.Exists(path) {
				return path
			}
		}
	}
	return ""
}

// DefaultSearchDirs returns the working directory, ./config and the
// user configuration directory for serviceName.
func DefaultSearchDirs(serviceName string) []string {
	dirs := []string{".", "config"}
	if home, err := os.UserConfigDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, serviceName))
	}
	return dirs
}

// LoadConfig loads configuration for a service into cfg, which must be a
// pointer to a struct. Precedence, highest first: environment, .env file,
// config file, zero values.
func LoadConfig(serviceName string, cfg any, opts ...LoaderOption) error {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.FileSystem == nil {
		lc.FileSystem = OSFileSystem{}
	}

	for _, explicit := range []string{lc.ConfigFile, lc.EnvFile} {
		if explicit != "" && !lc.FileSystem.Exists(explicit) {
			return fmt.Errorf("config: file not found: %s", explicit)
		}
	}

	resolver := &Resolver{FileSystem: lc.FileSystem}
	files := resolver.ResolveFiles(serviceName, lc)

	v := viper.New()
	if files.ConfigFile != "" {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("config: read %s: %w", files.ConfigFile, err)
		}
	}
	if files.EnvFile != "" {
		if err := lc.FileSystem.LoadEnv(files.EnvFile); err != nil {
			return fmt.Errorf("config: load %s: %w", files.EnvFile, err)
		}
	}

	if lc.EnvPrefix != "" {
		v.SetEnvPrefix(lc.EnvPrefix)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v, reflect.TypeOf(cfg), "")

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("config: decode for service %s: %w", serviceName, err)
	}
	return nil
}

var timeType = reflect.TypeOf(time.Time{})

// bindEnvKeys registers every leaf key of t with viper so that values
// present only in the environment survive Unmarshal.
func bindEnvKeys(v *viper.Viper, t reflect.Type, prefix string) {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return
	}

	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "-" {
			continue
		}

		ft := f.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if strings.Contains(opts, "squash") {
			bindEnvKeys(v, ft, prefix)
			continue
		}
		if name == "" {
			name = strings.ToLower(f.Name)
		}
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}

		if ft.Kind() == reflect.Struct && ft != timeType {
			bindEnvKeys(v, ft, key)
			continue
		}
		if ft.Kind() == reflect.Func || ft.Kind() == reflect.Chan {
			continue
		}
		_ = v.BindEnv(key)
	}
}
