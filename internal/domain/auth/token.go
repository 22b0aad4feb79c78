package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"blog-server-go/internal/domain/auth/model"
)

// Claims carries the registered claims of a session token or challenge key.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenService signs and verifies HS256 tokens with a single process-wide key.
type TokenService struct {
	secretKey    []byte
	sessionTTL   time.Duration
	challengeTTL time.Duration
	now          func() time.Time
}

// NewTokenService builds a token service. Non-positive TTLs fall back to
// 3h for sessions and 60s for challenge keys.
func NewTokenService(secretKey string, sessionTTL, challengeTTL time.Duration) (*TokenService, error) {
	if secretKey == "" {
		return nil, errors.New("token secret cannot be empty")
	}
	if sessionTTL <= 0 {
		sessionTTL = 3 * time.Hour
	}
	if challengeTTL <= 0 {
		challengeTTL = time.Minute
	}
	return &TokenService{
		secretKey:    []byte(secretKey),
		sessionTTL:   sessionTTL,
		challengeTTL: challengeTTL,
		now:          time.Now,
	}, nil
}

// WithClock replaces the time source used for issuing and validating.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	if now != nil {
		s.now = now
	}
	return s
}

// SessionTTL is the lifetime of tokens from IssueSession.
func (s *TokenService) SessionTTL() time.Duration { return s.sessionTTL }

// ChallengeTTL is the lifetime of keys from IssueChallengeKey.
func (s *TokenService) ChallengeTTL() time.Duration { return s.challengeTTL }

// Issue signs a token for subject expiring after ttl; ttl <= 0 uses the session TTL.
func (s *TokenService) Issue(subject string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("token subject cannot be empty")
	}
	if ttl <= 0 {
		ttl = s.sessionTTL
	}

	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// IssueSession issues a session token whose subject is the decimal account id.
func (s *TokenService) IssueSession(userID int64) (string, error) {
	return s.Issue(strconv.FormatInt(userID, 10), s.sessionTTL)
}

// IssueChallengeKey issues a short-lived key naming a fresh random challenge id.
func (s *TokenService) IssueChallengeKey() (string, error) {
	return s.Issue(uuid.NewString(), s.challengeTTL)
}

// Validate checks signature, algorithm and expiry and returns the claims.
func (s *TokenService) Validate(tokenString string) (*Claims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, model.ErrTokenMissing.WithOp("token.validate")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, model.ErrTokenExpired.WithOp("token.validate")
		}
		return nil, model.ErrTokenMalformed.WithOp("token.validate")
	}
	if !token.Valid || claims.Subject == "" {
		return nil, model.ErrTokenMalformed.WithOp("token.validate")
	}
	return claims, nil
}

// SubjectOf validates the token and parses its subject as an account id.
func (s *TokenService) SubjectOf(tokenString string) (int64, error) {
	claims, err := s.Validate(tokenString)
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, model.ErrInvalidSubjectFormat.WithOp("token.subject")
	}
	return id, nil
}
