package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/brgateway/secret"
)

// Options controls where Load reads from.
type Options struct {
	// Path is an optional YAML file. Empty skips the file.
	Path string

	// EnvFiles are dotenv files loaded into the process environment before
	// overrides apply. Missing files are skipped. Default: [".env"].
	EnvFiles []string

	// Lookup reads environment variables. Default: os.LookupEnv.
	Lookup func(string) (string, bool)
}

// Load reads configuration from path (may be empty), .env and BRGW_*
// variables, resolves secrets and validates the result.
func Load(ctx context.Context, path string) (*Config, error) {
	return LoadWithOptions(ctx, Options{Path: path})
}

// LoadWithOptions is Load with explicit sources.
func LoadWithOptions(ctx context.Context, opts Options) (*Config, error) {
	if opts.EnvFiles == nil {
		opts.EnvFiles = []string{".env"}
	}
	if opts.Lookup == nil {
		opts.Lookup = os.LookupEnv
	}

	if err := loadEnvFiles(opts.EnvFiles); err != nil {
		return nil, err
	}

	cfg := Default()

	if opts.Path != "" {
		if err := readFile(opts.Path, &cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(&cfg, opts.Lookup); err != nil {
		return nil, err
	}

	if err := resolveSecrets(ctx, &cfg, opts.Lookup); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadEnvFiles(files []string) error {
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		existing = append(existing, f)
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("config: load env files: %w", err)
	}
	return nil
}

func readFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// resolveSecrets expands ${VAR} and secretref values in credential fields.
func resolveSecrets(ctx context.Context, cfg *Config, lookup func(string) (string, bool)) error {
	resolver := secret.NewResolver(true, secret.NewEnvProvider(lookup)).WithLookup(lookup)
	if cfg.Secrets.FileDir != "" {
		resolver.Register(secret.NewFileProvider(cfg.Secrets.FileDir))
	}
	defer func() { _ = resolver.Close() }()

	fields := map[string]*string{
		"redis.password":           &cfg.Redis.Password,
		"redis.addr":               &cfg.Redis.Addr,
		"providers.search.api_key": &cfg.Providers.Search.APIKey,
		"auth.jwt.secret":          &cfg.Auth.JWT.Secret,
		"auth.jwt.jwks_url":        &cfg.Auth.JWT.JWKSURL,
	}
	for i := range cfg.Auth.APIKeys {
		fields[fmt.Sprintf("auth.api_keys[%d].key", i)] = &cfg.Auth.APIKeys[i].Key
	}

	if err := resolver.ResolveFields(ctx, fields); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
