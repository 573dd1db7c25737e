// Package auth issues and resolves signed session tokens.
package auth

import (
	"alcyxob/bmi-tracker/internal/domain"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const issuer = "bmi-tracker"

var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrTokenExpired = errors.New("session token has expired")
)

// sessionClaims is the token payload. A user session carries uid, an
// instructor session carries iid.
type sessionClaims struct {
	UserID       string      `json:"uid,omitempty"`
	Role         domain.Role `json:"role"`
	InstructorID string      `json:"iid,omitempty"`
	jwt.RegisteredClaims
}

// Sessions signs tokens with an HMAC secret.
type Sessions struct {
	secret     []byte
	expiration time.Duration
	now        func() time.Time
}

// NewSessions creates a token issuer. A non-positive expiration defaults to 24h.
func NewSessions(secret string, expiration time.Duration) *Sessions {
	if secret == "" {
		panic("session secret cannot be empty")
	}
	if expiration <= 0 {
		expiration = 24 * time.Hour
	}
	return &Sessions{secret: []byte(secret), expiration: expiration, now: time.Now}
}

// Expiration returns the lifetime of issued tokens.
func (s *Sessions) Expiration() time.Duration {
	return s.expiration
}

// IssueUser starts a session for a registered user.
func (s *Sessions) IssueUser(user *domain.User) (string, error) {
	if user == nil || user.ID.IsZero() {
		return "", errors.New("user with ID is required")
	}
	return s.sign(sessionClaims{
		UserID: user.ID.Hex(),
		Role:   domain.RoleUser,
	}, user.ID.Hex())
}

// IssueInstructor starts a session for the shared instructor login.
func (s *Sessions) IssueInstructor(instructorID string) (string, error) {
	if instructorID == "" {
		return "", errors.New("instructor ID is required")
	}
	return s.sign(sessionClaims{
		Role:         domain.RoleInstructor,
		InstructorID: instructorID,
	}, instructorID)
}

func (s *Sessions) sign(claims sessionClaims, subject string) (string, error) {
	now := s.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.expiration)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Resolve validates a token and returns the principal it grants.
func (s *Sessions) Resolve(tokenString string) (domain.Principal, error) {
	if tokenString == "" {
		return domain.Anonymous, ErrInvalidToken
	}

	claims := &sessionClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Anonymous, ErrTokenExpired
		}
		return domain.Anonymous, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Issuer != issuer {
		return domain.Anonymous, ErrInvalidToken
	}

	switch claims.Role {
	case domain.RoleUser:
		userID, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			return domain.Anonymous, ErrInvalidToken
		}
		return domain.Principal{Capability: domain.CapabilityUser, UserID: userID}, nil
	case domain.RoleInstructor:
		if claims.InstructorID == "" {
			return domain.Anonymous, ErrInvalidToken
		}
		return domain.Principal{Capability: domain.CapabilityInstructor, InstructorID: claims.InstructorID}, nil
	default:
		return domain.Anonymous, ErrInvalidToken
	}
}
