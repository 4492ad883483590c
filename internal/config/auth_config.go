package config

import "time"

type AuthConfig interface {
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenLength() int
	GetSigningKeyFile() string
	GetSigningKeyID() string
}

type Auth struct {
	values *values
}

var _ AuthConfig = Auth{}

func (a Auth) GetAccessTokenExpiry() time.Duration {
	return a.values.getDuration("ACCESS_TOKEN_EXPIRY", 1*time.Hour)
}

func (Auth) GetRefreshTokenLength() int {
	return 32 // 32 bytes = 256 bits
}

// GetSigningKeyFile names a PEM encoded RSA private key. Empty means a key is generated at startup.
func (a Auth) GetSigningKeyFile() string {
	return a.values.get(signingKeyFileVar, "")
}

func (a Auth) GetSigningKeyID() string {
	return a.values.get("SIGNING_KEY_ID", "blog-signing-key")
}
