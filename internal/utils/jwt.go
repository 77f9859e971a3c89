package utils

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// OwnerFromToken extracts the subject claim from a bearer token without
// verifying the signature. Verification is the server's job; the engine
// only needs the owner identity to stamp cache entries, and must keep
// working with tokens signed by keys it never sees.
func OwnerFromToken(tokenString string) (string, error) {
	if tokenString == "" {
		return "", errors.New("empty auth token")
	}

	token, _, err := jwt.NewParser().ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid token claims")
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", errors.New("token has no subject claim")
	}

	return sub, nil
}
