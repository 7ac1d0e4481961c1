package config

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// FileProvider implements Provider using a configuration file read by viper.
// Keys use the same names as the environment variables (DB_HOST, PORT, ...);
// a set environment variable overrides the file.
type FileProvider struct {
	vp          *viper.Viper
	environment Environment
}

// NewFileProvider loads the configuration file at path.
// The format is taken from the file extension (yaml, json, toml, ini, env).
func NewFileProvider(path string) (*FileProvider, error) {
	vp := viper.New()
	vp.SetConfigFile(path)
	vp.AutomaticEnv()
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := vp.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("config file %s not found: %w", path, err)
		}
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	return newFileProvider(vp), nil
}

func newFileProvider(vp *viper.Viper) *FileProvider {
	env := Environment(vp.GetString("APP_ENV"))
	if env == "" {
		env = currentEnvironment()
	}
	return &FileProvider{vp: vp, environment: env}
}

// GetEnvironment returns the current environment
func (p *FileProvider) GetEnvironment() Environment {
	return p.environment
}

// GetString retrieves a string configuration value
func (p *FileProvider) GetString(ctx context.Context, key string) (string, error) {
	if !p.vp.IsSet(key) || p.vp.GetString(key) == "" {
		return "", fmt.Errorf("config key %s: %w", key, ErrKeyNotSet)
	}
	return p.vp.GetString(key), nil
}

// GetInt retrieves an integer configuration value
func (p *FileProvider) GetInt(ctx context.Context, key string) (int, error) {
	if _, err := p.GetString(ctx, key); err != nil {
		return 0, err
	}
	value, err := strconv.Atoi(p.vp.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("config key %s: %w", key, err)
	}
	return value, nil
}

// GetBool retrieves a boolean configuration value
func (p *FileProvider) GetBool(ctx context.Context, key string) (bool, error) {
	if _, err := p.GetString(ctx, key); err != nil {
		return false, err
	}
	return p.vp.GetBool(key), nil
}

// GetSecret retrieves a secret value
func (p *FileProvider) GetSecret(ctx context.Context, key string) (string, error) {
	return p.GetString(ctx, key)
}
