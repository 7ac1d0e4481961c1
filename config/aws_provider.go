package config

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// AWSConfigProvider reads from AWS Secrets Manager first and falls back to
// environment variables for keys the secret does not define, so that plain
// settings such as PORT need not live in the secret.
type AWSConfigProvider struct {
	secretsProvider Provider
	envProvider     Provider
}

// NewAWSConfigProvider creates a new AWS configuration provider.
// The secret name is read from AWS_SECRET_NAME.
func NewAWSConfigProvider(ctx context.Context) (Provider, error) {
	secretName := os.Getenv("AWS_SECRET_NAME")
	if secretName == "" {
		return nil, fmt.Errorf("AWS_SECRET_NAME environment variable not set")
	}

	secretsProvider, err := NewAWSSecretsProvider(ctx, secretName)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS secrets provider: %w", err)
	}

	return NewLayeredProvider(secretsProvider, NewEnvProvider("")), nil
}

// NewLayeredProvider combines a secrets provider with a fallback provider
func NewLayeredProvider(secrets, fallback Provider) *AWSConfigProvider {
	return &AWSConfigProvider{
		secretsProvider: secrets,
		envProvider:     fallback,
	}
}

// GetEnvironment returns the current environment
func (p *AWSConfigProvider) GetEnvironment() Environment {
	return p.secretsProvider.GetEnvironment()
}

// GetString retrieves a string value, falling back when the secret lacks the key
func (p *AWSConfigProvider) GetString(ctx context.Context, key string) (string, error) {
	value, err := p.secretsProvider.GetString(ctx, key)
	if errors.Is(err, ErrKeyNotSet) {
		return p.envProvider.GetString(ctx, key)
	}
	return value, err
}

// GetInt retrieves an integer value, falling back when the secret lacks the key
func (p *AWSConfigProvider) GetInt(ctx context.Context, key string) (int, error) {
	value, err := p.secretsProvider.GetInt(ctx, key)
	if errors.Is(err, ErrKeyNotSet) {
		return p.envProvider.GetInt(ctx, key)
	}
	return value, err
}

// GetBool retrieves a boolean value, falling back when the secret lacks the key
func (p *AWSConfigProvider) GetBool(ctx context.Context, key string) (bool, error) {
	value, err := p.secretsProvider.GetBool(ctx, key)
	if errors.Is(err, ErrKeyNotSet) {
		return p.envProvider.GetBool(ctx, key)
	}
	return value, err
}

// GetSecret retrieves a secret value. Secrets never fall back to the environment.
func (p *AWSConfigProvider) GetSecret(ctx context.Context, key string) (string, error) {
	return p.secretsProvider.GetSecret(ctx, key)
}
