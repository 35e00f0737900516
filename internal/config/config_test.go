package config

import (
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AUTH_TOKEN_SECRET", testSecret)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load error: %v", err)
	}

	if cfg.Auth.TokenStrategy != TokenStrategyJWT {
		t.Fatalf("expected jwt strategy, got %s", cfg.Auth.TokenStrategy)
	}
	if cfg.Auth.AccessTokenDuration != 24*time.Hour {
		t.Fatalf("expected 24h access tokens, got %s", cfg.Auth.AccessTokenDuration)
	}
	if cfg.Auth.PasswordResetTokenDuration != time.Hour {
		t.Fatalf("expected 1h reset tokens, got %s", cfg.Auth.PasswordResetTokenDuration)
	}
	if cfg.Auth.OneTimeTokenStore != OneTimeStorePostgres {
		t.Fatalf("expected postgres one-time store, got %s", cfg.Auth.OneTimeTokenStore)
	}
	if !cfg.Server.IsDevelopment() {
		t.Fatalf("expected dev environment by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("AUTH_TOKEN_STRATEGY", "PASETO")
	t.Setenv("PASETO_KEY", testSecret)
	t.Setenv("ACCESS_TOKEN_DURATION", "30m")
	t.Setenv("PASSWORD_RESET_TOKEN_DURATION", "600")
	t.Setenv("ONE_TIME_TOKEN_STORE", "redis")
	t.Setenv("REQUIRE_EMAIL_VERIFICATION", "true")
	t.Setenv("TRUSTED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("APP_ENV", "prod")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load error: %v", err)
	}

	if cfg.Auth.TokenStrategy != TokenStrategyPaseto {
		t.Fatalf("expected paseto strategy, got %s", cfg.Auth.TokenStrategy)
	}
	if cfg.Auth.AccessTokenDuration != 30*time.Minute {
		t.Fatalf("expected ACCESS_TOKEN_DURATION 30m, got %s", cfg.Auth.AccessTokenDuration)
	}
	if cfg.Auth.PasswordResetTokenDuration != 10*time.Minute {
		t.Fatalf("expected PASSWORD_RESET_TOKEN_DURATION 10m, got %s", cfg.Auth.PasswordResetTokenDuration)
	}
	if cfg.Auth.OneTimeTokenStore != OneTimeStoreRedis {
		t.Fatalf("expected redis store, got %s", cfg.Auth.OneTimeTokenStore)
	}
	if !cfg.Auth.RequireEmailVerification {
		t.Fatalf("expected REQUIRE_EMAIL_VERIFICATION override")
	}
	if len(cfg.Server.TrustedOrigins) != 2 || cfg.Server.TrustedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected trusted origins: %v", cfg.Server.TrustedOrigins)
	}
	if cfg.Server.IsDevelopment() {
		t.Fatalf("expected prod environment")
	}
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "short jwt secret",
			env:     map[string]string{"AUTH_TOKEN_SECRET": "short"},
			wantErr: "AUTH_TOKEN_SECRET",
		},
		{
			name:    "paseto key length",
			env:     map[string]string{"AUTH_TOKEN_STRATEGY": "paseto", "PASETO_KEY": "nope"},
			wantErr: "PASETO_KEY",
		},
		{
			name:    "unknown strategy",
			env:     map[string]string{"AUTH_TOKEN_STRATEGY": "cookie"},
			wantErr: "AUTH_TOKEN_STRATEGY",
		},
		{
			name:    "unknown one-time store",
			env:     map[string]string{"AUTH_TOKEN_SECRET": testSecret, "ONE_TIME_TOKEN_STORE": "memcached"},
			wantErr: "ONE_TIME_TOKEN_STORE",
		},
		{
			name:    "unknown email transport",
			env:     map[string]string{"AUTH_TOKEN_SECRET": testSecret, "EMAIL_TRANSPORT": "pigeon"},
			wantErr: "EMAIL_TRANSPORT",
		},
		{
			name:    "zero verification lifetime",
			env:     map[string]string{"AUTH_TOKEN_SECRET": testSecret, "VERIFICATION_TOKEN_DURATION": "0"},
			wantErr: "VERIFICATION_TOKEN_DURATION",
		},
		{
			name:    "negative reset lifetime",
			env:     map[string]string{"AUTH_TOKEN_SECRET": testSecret, "PASSWORD_RESET_TOKEN_DURATION": "-5m"},
			wantErr: "PASSWORD_RESET_TOKEN_DURATION",
		},
		{
			name:    "zero cleanup interval",
			env:     map[string]string{"AUTH_TOKEN_SECRET": testSecret, "TOKEN_CLEANUP_INTERVAL": "0s"},
			wantErr: "TOKEN_CLEANUP_INTERVAL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
