package jwt

import (
	"time"
)

// Service is a wrapper for JWT operations
type Service struct {
	secretKey string
	expiry    time.Duration
}

// NewService creates a new JWT service
func NewService(secretKey string, expiry time.Duration) *Service {
	if secretKey == "" {
		secretKey = getSecretKey()
	}

	if expiry == 0 {
		expiry = 24 * time.Hour // Default to 24 hours
	}

	return &Service{
		secretKey: secretKey,
		expiry:    expiry,
	}
}

// GenerateToken generates a JWT token for a user
func (s *Service) GenerateToken(userID uint, email string) (string, error) {
	return signToken(userID, email, "", s.secretKey, s.expiry)
}

// GenerateNamedToken generates a JWT token carrying the user's display name
func (s *Service) GenerateNamedToken(userID uint, email, name string) (string, error) {
	return signToken(userID, email, name, s.secretKey, s.expiry)
}

// ValidateToken validates a JWT token and returns the claims
func (s *Service) ValidateToken(tokenString string) (*JWTClaims, error) {
	return validateToken(tokenString, s.secretKey)
}
