package auth

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"github.com/antibyte/retropy/pkg/configuration"
	"github.com/antibyte/retropy/pkg/logger"
	"github.com/antibyte/retropy/pkg/storage"
)

// Handlers bundles the HTTP auth endpoints around the user database.
type Handlers struct {
	db *storage.Database
}

// NewHandlers creates the auth endpoint set.
func NewHandlers(db *storage.Database) *Handlers {
	return &Handlers{db: db}
}

// SessionResponse is the reply to a session creation request.
type SessionResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"sessionId,omitempty"`
	Token     string `json:"token,omitempty"`
	Message   string `json:"message"`
}

// CredentialsRequest carries username/password for login and registration.
type CredentialsRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	SessionID string `json:"sessionId,omitempty"`
}

// LoginResponse is the reply to login, registration and validation requests.
type LoginResponse struct {
	Success   bool   `json:"success"`
	Token     string `json:"token,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Username  string `json:"username,omitempty"`
	Message   string `json:"message"`
}

var usernamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// HandleCreateSession creates a new guest session and issues its token.
func (h *Handlers) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w, "POST, OPTIONS")
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != "POST" {
		logger.AuthWarn("Invalid method for session creation: %s", r.Method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !configuration.GetBool("Authentication", "enable_guest_access", true) {
		respondWithError(w, "Guest access is disabled", http.StatusForbidden)
		return
	}

	sessionID := uuid.NewString()
	token, err := GenerateGuestToken(sessionID)
	if err != nil {
		logger.AuthError("Failed to generate guest token for session %s: %v", sessionID, err)
		respondWithError(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	setSessionCookie(w, token)

	clientIP := getClientIP(r)
	logger.AuthInfo("New guest session created: %s for IP: %s", sessionID, clientIP)
	json.NewEncoder(w).Encode(SessionResponse{
		Success:   true,
		SessionID: sessionID,
		Token:     token,
		Message:   "Session created successfully",
	})
}

// HandleRegister creates a new user account.
func (h *Handlers) HandleRegister(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w, "POST, OPTIONS")
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != "POST" {
		logger.AuthWarn("Invalid method for registration: %s", r.Method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.AuthWarn("Invalid JSON in registration request: %v", err)
		respondWithError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	if msg := validateCredentials(req.Username, req.Password); msg != "" {
		respondWithError(w, msg, http.StatusBadRequest)
		return
	}

	if err := h.db.CreateUser(req.Username, req.Password, getClientIP(r)); err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			respondWithError(w, "Username is already taken", http.StatusConflict)
			return
		}
		logger.AuthError("Registration failed for %s: %v", req.Username, err)
		respondWithError(w, "Registration failed", http.StatusInternalServerError)
		return
	}

	logger.AuthInfo("User registered: %s", req.Username)
	json.NewEncoder(w).Encode(LoginResponse{
		Success:  true,
		Username: req.Username,
		Message:  "Registration successful",
	})
}

// HandleLogin checks credentials and issues a user token.
func (h *Handlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w, "POST, OPTIONS")
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != "POST" {
		logger.AuthWarn("Invalid method for login: %s", r.Method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.AuthWarn("Invalid JSON in login request: %v", err)
		respondWithError(w, "Invalid request format", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		respondWithError(w, "Username and password required", http.StatusBadRequest)
		return
	}

	if err := h.db.Authenticate(req.Username, req.Password); err != nil {
		if errors.Is(err, storage.ErrInvalidCredentials) {
			logger.SecurityWarn("Failed login attempt for %s from %s", req.Username, getClientIP(r))
			respondWithError(w, "Invalid username or password", http.StatusUnauthorized)
			return
		}
		logger.AuthError("Login failed for %s: %v", req.Username, err)
		respondWithError(w, "Login failed", http.StatusInternalServerError)
		return
	}

	// an existing guest session keeps its ID across login
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	token, err := GenerateUserToken(sessionID, req.Username)
	if err != nil {
		logger.AuthError("Failed to generate user token for session %s (user: %s): %v", sessionID, req.Username, err)
		respondWithError(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	setSessionCookie(w, token)

	logger.AuthInfo("User logged in: %s (session: %s)", req.Username, sessionID)
	json.NewEncoder(w).Encode(LoginResponse{
		Success:   true,
		Token:     token,
		SessionID: sessionID,
		Username:  req.Username,
		Message:   "Login successful",
	})
}

// HandleTokenValidation validates a JWT token
func (h *Handlers) HandleTokenValidation(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w, "GET, POST, OPTIONS")
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	tokenString, err := ExtractTokenFromRequest(r)
	if err != nil {
		logger.AuthWarn("No token found in validation request: %v", err)
		respondWithError(w, "Token not found", http.StatusUnauthorized)
		return
	}

	claims, isUserToken, err := ValidateToken(tokenString)
	if err != nil {
		logger.AuthWarn("Token validation failed: %v", err)
		respondWithError(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	var sessionID, username string
	if isUserToken {
		userClaims, ok := claims.(*UserClaims)
		if !ok {
			logger.AuthError("Failed to cast user claims")
			respondWithError(w, "Invalid token format", http.StatusInternalServerError)
			return
		}
		sessionID = userClaims.SessionID
		username = userClaims.Username
	} else {
		guestClaims, ok := claims.(*GuestClaims)
		if !ok {
			logger.AuthError("Failed to cast guest claims")
			respondWithError(w, "Invalid token format", http.StatusInternalServerError)
			return
		}
		sessionID = guestClaims.SessionID
	}

	logger.AuthInfo("Token validated for session: %s", sessionID)
	json.NewEncoder(w).Encode(LoginResponse{
		Success:   true,
		SessionID: sessionID,
		Username:  username,
		Message:   "Token valid",
	})
}

// HandleLogout clears the JWT token cookie
func (h *Handlers) HandleLogout(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w, "POST, OPTIONS")
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	cookie := &http.Cookie{
		Name:     "session_token",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   false,
		SameSite: http.SameSiteLaxMode,
	}
	http.SetCookie(w, cookie)

	logger.AuthInfo("User logged out, token cookie cleared")
	json.NewEncoder(w).Encode(LoginResponse{
		Success: true,
		Message: "Logout successful",
	})
}

// validateCredentials checks username and password against the configured
// limits. Returns "" when both are acceptable.
func validateCredentials(username, password string) string {
	minUser := configuration.GetInt("Authentication", "min_username_length", 3)
	maxUser := configuration.GetInt("Authentication", "max_username_length", 20)
	minPass := configuration.GetInt("Authentication", "min_password_length", 6)
	maxPass := configuration.GetInt("Authentication", "max_password_length", 100)

	if len(username) < minUser || len(username) > maxUser {
		return "Username length out of range"
	}
	if !usernamePattern.MatchString(username) {
		return "Username must start with a letter and contain only letters, digits and underscores"
	}
	if username == "guest" {
		return "Username is reserved"
	}
	if len(password) < minPass || len(password) > maxPass {
		return "Password length out of range"
	}
	return ""
}

func setCORSHeaders(w http.ResponseWriter, methods string) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", methods)
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Content-Type", "application/json")
}

func setSessionCookie(w http.ResponseWriter, token string) {
	cookie := &http.Cookie{
		Name:     "session_token",
		Value:    token,
		Path:     "/",
		MaxAge:   int(getTokenExpiration().Seconds()),
		HttpOnly: true,  // XSS protection
		Secure:   false, // set to true behind HTTPS
		SameSite: http.SameSiteLaxMode,
	}
	http.SetCookie(w, cookie)
}

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	// X-Forwarded-For first (load balancers/proxies)
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded != "" {
		return forwarded
	}

	realIP := r.Header.Get("X-Real-IP")
	if realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// respondWithError sends a JSON error response
func respondWithError(w http.ResponseWriter, message string, statusCode int) {
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(LoginResponse{
		Success: false,
		Message: message,
	})
}
