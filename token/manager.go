package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-blog-server/internal/errors"
	"github.com/jrsteele09/go-blog-server/token/keys"
	"github.com/jrsteele09/go-blog-server/users"
)

const (
	defaultAccessTokenExpiry  = time.Hour
	defaultRefreshTokenLength = 32 // 32 bytes = 256 bits
)

// Claims are the verified contents of an access token.
type Claims struct {
	Subject   string // User ID
	Email     string // User email at issue time
	SessionID string // Backend session the token was issued for
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Manager issues and verifies RS256 access tokens and mints opaque refresh tokens.
type Manager struct {
	signer             keys.Signer
	issuer             string
	accessTokenExpiry  time.Duration
	refreshTokenLength int
	nowFunc            func() time.Time
}

type ManagerOption func(*Manager)

func WithAccessTokenExpiry(expiry time.Duration) ManagerOption {
	return func(m *Manager) {
		m.accessTokenExpiry = expiry
	}
}

func WithRefreshTokenLength(length int) ManagerOption {
	return func(m *Manager) {
		m.refreshTokenLength = length
	}
}

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func WithIssuer(issuer string) ManagerOption {
	return func(m *Manager) {
		m.issuer = issuer
	}
}

func New(signer keys.Signer, options ...ManagerOption) *Manager {
	m := &Manager{signer: signer}
	for _, opt := range options {
		opt(m)
	}

	if m.accessTokenExpiry == 0 {
		m.accessTokenExpiry = defaultAccessTokenExpiry
	}
	if m.refreshTokenLength == 0 {
		m.refreshTokenLength = defaultRefreshTokenLength
	}
	if m.nowFunc == nil {
		m.nowFunc = time.Now
	}
	return m
}

// AccessTokenExpiry is the lifetime of issued access tokens.
func (m *Manager) AccessTokenExpiry() time.Duration {
	return m.accessTokenExpiry
}

// CreateAccessToken signs an access token for user bound to the backend session sessionID.
func (m *Manager) CreateAccessToken(user *users.User, sessionID string) (string, time.Time, error) {
	now := m.nowFunc()
	expiresAt := now.Add(m.accessTokenExpiry)

	claims := jwt.MapClaims{
		"iss":   m.issuer,            // The issuer of the token
		"sub":   user.ID,             // The subject, the user's id
		"email": user.Email,          // Convenience claim for clients
		"sid":   sessionID,           // Backend session, checked on every request
		"iat":   now.Unix(),          // Issued At
		"exp":   expiresAt.Unix(),    // Expiry
		"jti":   uuid.New().String(), // Unique token ID
		"role":  "authenticated",
	}

	signed, err := m.signer.Sign(claims)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("[Manager.CreateAccessToken] %w", err)
	}
	return signed, time.Unix(expiresAt.Unix(), 0), nil
}

// Verify checks the signature, issuer and expiry of rawToken and returns its claims.
func (m *Manager) Verify(rawToken string) (*Claims, error) {
	return m.verify(rawToken, false)
}

// VerifyAllowExpired is Verify without the expiry check. Sign-out uses it so an
// expired access token can still end its session.
func (m *Manager) VerifyAllowExpired(rawToken string) (*Claims, error) {
	return m.verify(rawToken, true)
}

func (m *Manager) verify(rawToken string, allowExpired bool) (*Claims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, errors.ErrInvalidToken
	}

	options := []jwt.ParserOption{jwt.WithValidMethods([]string{keys.RS256})}
	if allowExpired {
		options = append(options, jwt.WithoutClaimsValidation())
	} else {
		options = append(options,
			jwt.WithIssuer(m.issuer),
			jwt.WithExpirationRequired(),
			jwt.WithTimeFunc(m.nowFunc),
		)
	}

	token, err := jwt.NewParser(options...).Parse(rawToken, m.signer.GetVerificationKey)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.ErrTokenExpired
		}
		return nil, errors.Wrapf(errors.ErrInvalidToken, "%v", err)
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.ErrInvalidToken
	}

	iss, _ := mapClaims["iss"].(string)
	sub, _ := mapClaims["sub"].(string)
	email, _ := mapClaims["email"].(string)
	sid, _ := mapClaims["sid"].(string)
	if sub == "" || sid == "" || iss != m.issuer {
		return nil, errors.ErrInvalidToken
	}

	claims := &Claims{Subject: sub, Email: email, SessionID: sid}
	if iat, err := mapClaims.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	return claims, nil
}

// NewRefreshToken returns a random hex encoded refresh token.
func (m *Manager) NewRefreshToken() (string, error) {
	tokenBytes := make([]byte, m.refreshTokenLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(tokenBytes), nil
}

// GetJWKS returns the JSON Web Key Set for public key distribution
func (m *Manager) GetJWKS() (*keys.JWKS, error) {
	return m.signer.GetJWKS()
}
