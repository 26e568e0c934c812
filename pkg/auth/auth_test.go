package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/antibyte/retropy/pkg/storage"
)

func setTestSecret(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET_KEY", "test_secret_for_unit_tests")
}

func TestGuestTokenRoundTrip(t *testing.T) {
	setTestSecret(t)

	token, err := GenerateGuestToken("session-123")
	if err != nil {
		t.Fatalf("GenerateGuestToken: %v", err)
	}

	claims, err := ValidateGuestToken(token)
	if err != nil {
		t.Fatalf("ValidateGuestToken: %v", err)
	}
	if claims.SessionID != "session-123" {
		t.Errorf("SessionID = %q, want %q", claims.SessionID, "session-123")
	}
	if claims.Subject != "guest" {
		t.Errorf("Subject = %q, want guest", claims.Subject)
	}
}

func TestUserTokenRoundTrip(t *testing.T) {
	setTestSecret(t)

	token, err := GenerateUserToken("session-456", "alice")
	if err != nil {
		t.Fatalf("GenerateUserToken: %v", err)
	}

	claims, err := ValidateUserToken(token)
	if err != nil {
		t.Fatalf("ValidateUserToken: %v", err)
	}
	if claims.Username != "alice" {
		t.Errorf("Username = %q, want alice", claims.Username)
	}
	if claims.SessionID != "session-456" {
		t.Errorf("SessionID = %q, want session-456", claims.SessionID)
	}
}

func TestValidateToken_DetectsType(t *testing.T) {
	setTestSecret(t)

	guestToken, _ := GenerateGuestToken("g1")
	userToken, _ := GenerateUserToken("u1", "bob")

	claims, isUser, err := ValidateToken(guestToken)
	if err != nil {
		t.Fatalf("guest ValidateToken: %v", err)
	}
	if isUser {
		t.Error("guest token detected as user token")
	}
	if _, ok := claims.(*GuestClaims); !ok {
		t.Errorf("guest claims have type %T", claims)
	}

	claims, isUser, err = ValidateToken(userToken)
	if err != nil {
		t.Fatalf("user ValidateToken: %v", err)
	}
	if !isUser {
		t.Error("user token detected as guest token")
	}
	if uc, ok := claims.(*UserClaims); !ok || uc.Username != "bob" {
		t.Errorf("user claims = %#v", claims)
	}
}

func TestValidateToken_RejectsTampered(t *testing.T) {
	setTestSecret(t)

	token, _ := GenerateGuestToken("g1")
	if _, _, err := ValidateToken(token + "x"); err == nil {
		t.Error("tampered token accepted")
	}
}

func TestExtractTokenFromRequest(t *testing.T) {
	setTestSecret(t)

	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Authorization", "Bearer abc123")
	if tok, err := ExtractTokenFromRequest(r); err != nil || tok != "abc123" {
		t.Errorf("header extraction = %q, %v", tok, err)
	}

	r = httptest.NewRequest("GET", "/ws", nil)
	r.AddCookie(&http.Cookie{Name: "session_token", Value: "cookie-token"})
	if tok, err := ExtractTokenFromRequest(r); err != nil || tok != "cookie-token" {
		t.Errorf("cookie extraction = %q, %v", tok, err)
	}

	r = httptest.NewRequest("GET", "/ws?token=query-token", nil)
	if tok, err := ExtractTokenFromRequest(r); err != nil || tok != "query-token" {
		t.Errorf("query extraction = %q, %v", tok, err)
	}

	r = httptest.NewRequest("GET", "/ws", nil)
	if _, err := ExtractTokenFromRequest(r); err == nil {
		t.Error("missing token not reported")
	}
}

func TestValidateCredentials(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		wantOK   bool
	}{
		{"valid", "alice", "secret123", true},
		{"username too short", "ab", "secret123", false},
		{"username with space", "bad name", "secret123", false},
		{"username starts with digit", "1user", "secret123", false},
		{"reserved guest", "guest", "secret123", false},
		{"password too short", "alice", "abc", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := validateCredentials(tt.username, tt.password)
			if (msg == "") != tt.wantOK {
				t.Errorf("validateCredentials(%q, %q) = %q", tt.username, tt.password, msg)
			}
		})
	}
}

func newTestHandlers(t *testing.T) *Handlers {
	t.Helper()
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.CreateTables(); err != nil {
		t.Fatalf("create tables: %v", err)
	}
	return NewHandlers(db)
}

func TestHandleRegisterAndLogin(t *testing.T) {
	setTestSecret(t)
	h := newTestHandlers(t)

	register := func(body string) *httptest.ResponseRecorder {
		r := httptest.NewRequest("POST", "/api/auth/register", bytes.NewBufferString(body))
		w := httptest.NewRecorder()
		h.HandleRegister(w, r)
		return w
	}

	if w := register(`{"username":"alice","password":"secret123"}`); w.Code != http.StatusOK {
		t.Fatalf("register status = %d, body %s", w.Code, w.Body.String())
	}
	if w := register(`{"username":"alice","password":"other456"}`); w.Code != http.StatusConflict {
		t.Errorf("duplicate register status = %d", w.Code)
	}

	r := httptest.NewRequest("POST", "/api/auth/login",
		bytes.NewBufferString(`{"username":"alice","password":"secret123"}`))
	w := httptest.NewRecorder()
	h.HandleLogin(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", w.Code, w.Body.String())
	}

	var resp LoginResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if !resp.Success || resp.Token == "" {
		t.Fatalf("login response = %+v", resp)
	}
	claims, err := ValidateUserToken(resp.Token)
	if err != nil || claims.Username != "alice" {
		t.Errorf("issued token invalid: %v", err)
	}

	r = httptest.NewRequest("POST", "/api/auth/login",
		bytes.NewBufferString(`{"username":"alice","password":"wrong"}`))
	w = httptest.NewRecorder()
	h.HandleLogin(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong password status = %d", w.Code)
	}
}

func TestHandleCreateSession(t *testing.T) {
	setTestSecret(t)
	h := newTestHandlers(t)

	r := httptest.NewRequest("POST", "/api/auth/session", nil)
	w := httptest.NewRecorder()
	h.HandleCreateSession(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("session status = %d, body %s", w.Code, w.Body.String())
	}

	var resp SessionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode session response: %v", err)
	}
	if resp.SessionID == "" || resp.Token == "" {
		t.Fatalf("session response = %+v", resp)
	}

	claims, err := ValidateGuestToken(resp.Token)
	if err != nil {
		t.Fatalf("guest token invalid: %v", err)
	}
	if claims.SessionID != resp.SessionID {
		t.Errorf("token session = %q, response session = %q", claims.SessionID, resp.SessionID)
	}
}
