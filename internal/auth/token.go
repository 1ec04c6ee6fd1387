package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/authz"
)

var ErrInvalidToken = errors.New("invalid or expired token")

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type IssuedToken struct {
	Value     string
	ID        uuid.UUID
	ExpiresAt time.Time
}

// TokenManager signs and verifies HS256 bearer tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration, issuer string) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: issuer,
		now:    time.Now,
	}
}

func (m *TokenManager) Issue(userID uuid.UUID, role authz.Role) (*IssuedToken, error) {
	jti, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token id: %w", err)
	}

	now := m.now().UTC()
	expiresAt := now.Add(m.ttl)

	claims := Claims{
		Role: role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti.String(),
			Subject:   userID.String(),
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &IssuedToken{Value: signed, ID: jti, ExpiresAt: expiresAt}, nil
}

// Parse verifies the signature, issuer and expiry and returns the subject and token id.
func (m *TokenManager) Parse(raw string) (userID uuid.UUID, tokenID uuid.UUID, err error) {
	var claims Claims
	_, err = jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID, err = uuid.FromString(claims.Subject)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	tokenID, err = uuid.FromString(claims.ID)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("%w: bad token id", ErrInvalidToken)
	}

	return userID, tokenID, nil
}
