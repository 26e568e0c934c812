package auth

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/antibyte/retropy/pkg/configuration"
	"github.com/antibyte/retropy/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// Default values - actual values are loaded from configuration
	defaultJWTSecret       = "fallback_secret_change_in_production"
	defaultTokenExpiration = 24 * time.Hour

	issuer = "retropy"
)

// getJWTSecret retrieves the JWT secret from environment variable or configuration
func getJWTSecret() string {
	if envSecret := os.Getenv("JWT_SECRET_KEY"); envSecret != "" {
		return envSecret
	}

	secret := configuration.GetString("JWT", "secret_key", defaultJWTSecret)
	if secret == defaultJWTSecret || secret == "ENVIRONMENT_VARIABLE_NOT_SET_FALLBACK" {
		logger.SecurityWarn("Using fallback JWT secret - set JWT_SECRET_KEY environment variable for production!")
	}
	return secret
}

// getTokenExpiration retrieves the token expiration duration from configuration
func getTokenExpiration() time.Duration {
	hours := configuration.GetInt("JWT", "token_expiration_hours", 24)
	return time.Duration(hours) * time.Hour
}

// GuestClaims are the claims carried by a guest session token.
type GuestClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// UserClaims are the claims carried by a logged-in user token.
type UserClaims struct {
	SessionID string `json:"sid"`
	Username  string `json:"username"`
	jwt.RegisteredClaims
}

// GenerateGuestToken generates a JWT token for a guest session
func GenerateGuestToken(sessionID string) (string, error) {
	secretKey := getJWTSecret()
	tokenExpiration := getTokenExpiration()

	now := time.Now()
	claims := GuestClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenExpiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   "guest",
			ID:        sessionID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", fmt.Errorf("token signing failed: %v", err)
	}

	logger.AuthInfo("Guest token generated for session: %s", sessionID)
	return signedToken, nil
}

// GenerateUserToken generates a JWT token for a logged-in user session
func GenerateUserToken(sessionID, username string) (string, error) {
	secretKey := getJWTSecret()
	tokenExpiration := getTokenExpiration()

	now := time.Now()
	claims := UserClaims{
		SessionID: sessionID,
		Username:  username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenExpiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   username,
			ID:        sessionID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", fmt.Errorf("token signing failed: %v", err)
	}

	logger.AuthInfo("User token generated for session: %s, username: %s", sessionID, username)
	return signedToken, nil
}

// ValidateGuestToken validates a JWT token for a guest session
func ValidateGuestToken(tokenString string) (*GuestClaims, error) {
	secretKey := getJWTSecret()

	token, err := jwt.ParseWithClaims(
		tokenString,
		&GuestClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing algorithm: %v", token.Header["alg"])
			}
			return []byte(secretKey), nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("token parsing failed: %v", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(*GuestClaims)
	if !ok {
		return nil, fmt.Errorf("could not extract token claims")
	}
	if claims.ExpiresAt.Time.Before(time.Now()) {
		return nil, fmt.Errorf("token has expired")
	}
	return claims, nil
}

// ValidateUserToken validates a JWT token for a logged-in user session
func ValidateUserToken(tokenString string) (*UserClaims, error) {
	secretKey := getJWTSecret()

	token, err := jwt.ParseWithClaims(
		tokenString,
		&UserClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing algorithm: %v", token.Header["alg"])
			}
			return []byte(secretKey), nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("token parsing failed: %v", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(*UserClaims)
	if !ok {
		return nil, fmt.Errorf("could not extract token claims")
	}
	if claims.ExpiresAt.Time.Before(time.Now()) {
		return nil, fmt.Errorf("token has expired")
	}
	return claims, nil
}

// ValidateToken validates a JWT token and returns either UserClaims or
// GuestClaims. The token type is detected via the subject field; the second
// return value reports whether it is a user token.
func ValidateToken(tokenString string) (interface{}, bool, error) {
	secretKey := getJWTSecret()

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing algorithm: %v", token.Header["alg"])
		}
		return []byte(secretKey), nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("token parsing failed: %v", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok {
		subject, exists := claims["sub"].(string)
		if !exists {
			return nil, false, fmt.Errorf("no subject found in token")
		}
		if subject == "guest" {
			guestClaims, err := ValidateGuestToken(tokenString)
			return guestClaims, false, err
		}
		userClaims, err := ValidateUserToken(tokenString)
		return userClaims, true, err
	}

	return nil, false, fmt.Errorf("could not extract claims from token")
}

// ExtractTokenFromRequest extracts the JWT token from the HTTP request.
// The token can be passed in the Authorization header (Bearer token), as a
// cookie, or as a "token" query parameter (used by the WebSocket handshake).
func ExtractTokenFromRequest(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" { // Format: "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1], nil
		}
		return "", fmt.Errorf("invalid authorization header format")
	}

	cookie, err := r.Cookie("session_token")
	if err == nil {
		return cookie.Value, nil
	}

	token := r.URL.Query().Get("token")
	if token != "" {
		return token, nil
	}

	return "", fmt.Errorf("no token found in request")
}

// RequireToken is a middleware for HTTP handlers that require any valid
// session token, guest or user.
func RequireToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// CORS preflight requests pass through without a token
		if r.Method == "OPTIONS" {
			next(w, r)
			return
		}

		tokenString, err := ExtractTokenFromRequest(r)
		if err != nil {
			logger.AuthWarn("No token found in request: %v", err)
			http.Error(w, "Unauthorized: token missing", http.StatusUnauthorized)
			return
		}

		claims, isUser, err := ValidateToken(tokenString)
		if err != nil {
			logger.AuthWarn("Invalid token: %v", err)
			http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
			return
		}

		r = r.WithContext(AddClaimsToContext(r.Context(), claims, isUser))
		next(w, r)
	}
}
