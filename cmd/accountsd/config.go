package main

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config is loaded from the environment. SECRET_KEY has no default on
// purpose; the process refuses to start without one.
type Config struct {
	SigningKey    string   `env:"SECRET_KEY,required" json:"-"`
	SigningMethod string   `env:"SIGNING_METHOD" envDefault:"HS256" json:"signing_method"`
	ContextKey    string   `env:"AUTH_CONTEXT_KEY" envDefault:"user" json:"context_key"`
	TokenLifetime int      `env:"TOKEN_LIFETIME" envDefault:"3600" json:"token_lifetime"`
	TokenLookup   string   `env:"TOKEN_LOOKUP" envDefault:"header:Authorization" json:"token_lookup"`
	AuthScheme    string   `env:"AUTH_SCHEME" envDefault:"Bearer" json:"auth_scheme"`
	Issuer        string   `env:"TOKEN_ISSUER" envDefault:"go-accounts" json:"issuer"`
	Audience      []string `env:"TOKEN_AUDIENCE" envSeparator:"," json:"audience,omitempty"`
	DatabaseURL   string   `env:"DATABASE_URL" envDefault:"file:accounts.db?cache=shared" json:"database_url"`
	ListenAddr    string   `env:"LISTEN_ADDR" envDefault:":8080" json:"listen_addr"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func (c *Config) GetSigningKey() string {
	return c.SigningKey
}

func (c *Config) GetSigningMethod() string {
	return c.SigningMethod
}

func (c *Config) GetContextKey() string {
	return c.ContextKey
}

func (c *Config) GetTokenLifetime() int {
	return c.TokenLifetime
}

func (c *Config) GetTokenLookup() string {
	return c.TokenLookup
}

func (c *Config) GetAuthScheme() string {
	return c.AuthScheme
}

func (c *Config) GetIssuer() string {
	return c.Issuer
}

func (c *Config) GetAudience() []string {
	return c.Audience
}
