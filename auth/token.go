// Package auth validates the session tokens issued by the external
// account module. The session layer never authenticates credentials
// itself; it only checks the signature and reads the identity out.
package auth

import (
	"time"

	"meet-hub/domain"

	"github.com/golang-jwt/jwt/v5"
)

// jwtKey is the secret used to sign tokens.
// In a production environment, this should be loaded from an
// environment variable or a secret manager.
var jwtKey = []byte("my_strong_and_long_secret_key_2026")

const issuer = "meet-hub"

// CustomClaims defines the identity carried inside the JWT.
type CustomClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	jwt.RegisteredClaims
}

// GenerateToken creates a signed JWT for a specific user. Used by the
// test harness and local tooling; production tokens come from the
// account module with the same shape.
func GenerateToken(user domain.User, tokenDuration time.Duration) (string, error) {
	expirationTime := time.Now().Add(tokenDuration)

	claims := &CustomClaims{
		UserID:   user.ID,
		Username: user.Username,
		FullName: user.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    issuer,
		},
	}

	// HS256 (HMAC with SHA256), signed with the shared secret.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtKey)
}

// ValidateToken parses and validates the signature and expiration of a
// JWT string, returning the authenticated user it names.
func ValidateToken(tokenString string) (domain.User, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return jwtKey, nil
	})
	if err != nil {
		return domain.User{}, err
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return domain.User{}, jwt.ErrSignatureInvalid
	}
	return domain.User{
		ID:       claims.UserID,
		Username: claims.Username,
		FullName: claims.FullName,
	}, nil
}
