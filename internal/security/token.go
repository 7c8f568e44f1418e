package security

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrExpiredToken   = errors.New("token has expired")
	ErrWrongTokenType = errors.New("wrong token type for this endpoint")
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeService TokenType = "service"
)

// ActorClaims identify who issued a command. Tokens come from the company
// identity provider; Subject is the stable user or service account id.
type ActorClaims struct {
	Name  string    `json:"name,omitempty"`
	Type  TokenType `json:"type,omitempty"`
	Roles []string  `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Actor is the name recorded on ledger entries.
func (c *ActorClaims) Actor() string {
	if c.Subject != "" {
		return c.Subject
	}
	return strings.TrimSpace(c.Name)
}

type TokenManager interface {
	GenerateToken(subject, name string, roles []string) (string, error)
	ValidateToken(tokenString string) (*ActorClaims, error)
}

type tokenManager struct {
	secret []byte
	issuer string
	expiry time.Duration
	now    func() time.Time
}

func NewTokenManager(secret, issuer string, expiry time.Duration) TokenManager {
	if expiry <= 0 {
		expiry = time.Hour
	}
	return &tokenManager{secret: []byte(secret), issuer: issuer, expiry: expiry, now: time.Now}
}

// GenerateToken mints a service-account token. Interactive users get theirs
// from the identity provider.
func (m *tokenManager) GenerateToken(subject, name string, roles []string) (string, error) {
	if strings.TrimSpace(subject) == "" {
		return "", errors.New("token subject is required")
	}
	now := m.now()
	claims := ActorClaims{
		Name:  name,
		Type:  TokenTypeService,
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.issuer,
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *tokenManager) ValidateToken(tokenString string) (*ActorClaims, error) {
	opts := []jwt.ParserOption{jwt.WithTimeFunc(m.now)}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &ActorClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	}, opts...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*ActorClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != "" && claims.Type != TokenTypeAccess && claims.Type != TokenTypeService {
		return nil, ErrWrongTokenType
	}
	if claims.Actor() == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
