package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken は検証に失敗したトークンに対して返されるエラーです。
	ErrInvalidToken = errors.New("auth: invalid token")
)

// claims はトークンに埋め込むクレーム。メールアドレスでプレイヤーを識別する。
type claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// Manager はHMAC署名のセッショントークンを発行・検証します。
type Manager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewManager はトークンマネージャを生成します。now が nil なら time.Now を使います。
func NewManager(secret []byte, issuer string, ttl time.Duration, now func() time.Time) (*Manager, error) {
	if len(secret) == 0 {
		return nil, errors.New("auth: secret is required")
	}
	if ttl <= 0 {
		return nil, errors.New("auth: ttl must be positive")
	}
	if now == nil {
		now = time.Now
	}
	return &Manager{secret: secret, issuer: issuer, ttl: ttl, now: now}, nil
}

// Mint はメールアドレスに対するトークンを発行します。
func (m *Manager) Mint(email string) (string, error) {
	if email == "" {
		return "", errors.New("auth: email is required")
	}
	issued := m.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(m.ttl)),
		},
		Email: email,
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Verify はトークンを検証し、埋め込まれたメールアドレスを返します。
func (m *Manager) Verify(token string) (string, error) {
	var parsed claims
	_, err := jwt.ParseWithClaims(token, &parsed, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(m.issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if parsed.Email == "" {
		return "", fmt.Errorf("%w: missing email claim", ErrInvalidToken)
	}
	return parsed.Email, nil
}
