// Package auth issues and validates ChuckBox access tokens and opaque secrets.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer is the iss claim of every access token / Émetteur des tokens d'accès
const Issuer = "chuckbox"

// CustomClaims extends JWT claims with the system role / Étend les claims JWT avec le rôle système
type CustomClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// ProfileID parses the subject claim / Extrait l'ID du profil du sujet
func (c *CustomClaims) ProfileID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

// TokenPair represents access and refresh tokens / Représente les tokens d'accès et de rafraîchissement
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// GenerateTokenPair creates access and refresh tokens / Crée les tokens d'accès et de rafraîchissement
func GenerateTokenPair(profileID int64, role, jwtKey string, accessTokenDuration time.Duration) (*TokenPair, error) {
	if len(jwtKey) < 32 {
		return nil, errors.New("JWT key too weak")
	}

	now := time.Now()
	expiresAt := now.Add(accessTokenDuration)
	accessClaims := &CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(profileID, 10),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    Issuer,
		},
		Role: role,
	}

	accessToken := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims)
	accessTokenString, err := accessToken.SignedString([]byte(jwtKey))
	if err != nil {
		return nil, err
	}

	refreshToken, err := GenerateSecureToken()
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessTokenString,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	}, nil
}

// GenerateSecureToken returns 32 random bytes hex encoded / Génère un token aléatoire sécurisé
func GenerateSecureToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// HashToken returns the sha256 hex digest stored for opaque tokens / Empreinte stockée des tokens opaques
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ValidateJWT validates JWT token / Valide le token JWT
func ValidateJWT(tokenStr, jwtKey string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &CustomClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing algorithm: %v", token.Header["alg"])
		}
		return []byte(jwtKey), nil
	}, jwt.WithIssuer(Issuer))
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*CustomClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrTokenInvalidClaims
}
