package terminal

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/antibyte/retropy/pkg/auth"
	"github.com/antibyte/retropy/pkg/configuration"
	"github.com/antibyte/retropy/pkg/logger"
	"github.com/antibyte/retropy/pkg/shell"
)

// TerminalHandler manages WebSocket connections and their shell sessions.
type TerminalHandler struct {
	shell   *shell.Shell
	clients map[*Client]bool
	mutex   sync.RWMutex

	upgrader websocket.Upgrader

	// rate limiting for connection attempts
	connRequests   map[string][]time.Time
	bannedIPs      map[string]time.Time
	rateLimitMutex sync.Mutex
}

// Client represents one connected WebSocket terminal.
type Client struct {
	conn      *websocket.Conn
	send      chan []byte
	handler   *TerminalHandler
	ipAddress string
	sessionID string
	lastPong  time.Time
	shutdown  chan struct{}

	// sliding window for per-client message rate limiting
	msgTimes []time.Time
}

// TerminalRequest is the JSON frame received from the browser client.
type TerminalRequest struct {
	Content   string `json:"content,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	IsConfig  bool   `json:"isConfig,omitempty"`
	Cols      int    `json:"cols,omitempty"`
	Rows      int    `json:"rows,omitempty"`
}

// NewTerminalHandler creates the WebSocket endpoint around a shell.
func NewTerminalHandler(sh *shell.Shell) *TerminalHandler {
	h := &TerminalHandler{
		shell:        sh,
		clients:      make(map[*Client]bool),
		connRequests: make(map[string][]time.Time),
		bannedIPs:    make(map[string]time.Time),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  configuration.GetInt("Network", "read_buffer_size", 16384),
			WriteBufferSize: configuration.GetInt("Network", "write_buffer_size", 16384),
			CheckOrigin:     checkOrigin,
		},
	}

	go h.pingClients()

	return h
}

// checkOrigin allows only the configured origins, preventing cross-site
// WebSocket hijacking.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		logger.SecurityWarn("WebSocket request without Origin header rejected")
		return false
	}

	allowedStr := configuration.GetString("Network", "allowed_origins",
		"http://localhost:8080,http://127.0.0.1:8080")
	for _, allowed := range strings.Split(allowedStr, ",") {
		if origin == strings.TrimSpace(allowed) {
			return true
		}
	}

	logger.SecurityWarn("WebSocket request from disallowed origin rejected: %s", origin)
	return false
}

// HandleWebSocket authenticates and upgrades an incoming connection.
func (h *TerminalHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ipAddress := clientIP(r)

	logger.WebSocketInfo("Connection attempt from %s", ipAddress)

	if h.isIPBanned(ipAddress) {
		logger.SecurityWarn("Connection from banned IP rejected: %s", ipAddress)
		http.Error(w, "Access denied", http.StatusForbidden)
		return
	}

	if !h.checkConnectionRateLimit(ipAddress) {
		logger.SecurityWarn("Connection rate limit exceeded for %s", ipAddress)
		http.Error(w, "Too many requests", http.StatusTooManyRequests)
		return
	}

	maxClients := configuration.GetInt("Terminal", "max_clients", 100)
	h.mutex.RLock()
	clientCount := len(h.clients)
	h.mutex.RUnlock()
	if clientCount >= maxClients {
		logger.SecurityWarn("Client limit reached, connection from %s rejected", ipAddress)
		http.Error(w, "Server overloaded", http.StatusServiceUnavailable)
		return
	}

	// the session token arrives as a query parameter during the handshake
	tokenString, err := auth.ExtractTokenFromRequest(r)
	if err != nil {
		logger.WebSocketWarn("No token in WebSocket request from %s: %v", ipAddress, err)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	claims, isUser, err := auth.ValidateToken(tokenString)
	if err != nil {
		logger.SecurityWarn("Invalid token in WebSocket request from %s: %v", ipAddress, err)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var sessionID, username string
	if isUser {
		userClaims := claims.(*auth.UserClaims)
		sessionID = userClaims.SessionID
		username = userClaims.Username
	} else {
		sessionID = claims.(*auth.GuestClaims).SessionID
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WebSocketError("Upgrade failed for %s: %v", ipAddress, err)
		return
	}

	client := &Client{
		conn:      conn,
		send:      make(chan []byte, getMaxChannelBuffer()),
		handler:   h,
		ipAddress: ipAddress,
		sessionID: sessionID,
		lastPong:  time.Now(),
		shutdown:  make(chan struct{}),
	}

	h.shell.CreateSession(sessionID, username)

	h.mutex.Lock()
	h.clients[client] = true
	h.mutex.Unlock()

	logger.WebSocketInfo("Session %s connected from %s (%d clients)",
		sessionID, ipAddress, clientCount+1)

	go client.readPump()
	go client.writePump()

	client.sendMessages(h.shell.Banner())
}

// checkConnectionRateLimit applies the per-IP connection limit and bans IPs
// that keep hammering past it.
func (h *TerminalHandler) checkConnectionRateLimit(ipAddress string) bool {
	h.rateLimitMutex.Lock()
	defer h.rateLimitMutex.Unlock()

	maxRequests := configuration.GetInt("Terminal", "max_session_requests_per_minute", 3)
	window := configuration.GetDuration("Terminal", "session_request_time_window", time.Minute)
	banDuration := configuration.GetDuration("Terminal", "ip_ban_duration", 24*time.Hour)

	now := time.Now()
	cutoff := now.Add(-window)

	var recent []time.Time
	for _, t := range h.connRequests[ipAddress] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	recent = append(recent, now)
	h.connRequests[ipAddress] = recent

	if len(recent) > maxRequests*2 {
		h.bannedIPs[ipAddress] = now.Add(banDuration)
		logger.SecurityWarn("IP %s banned until %s", ipAddress, h.bannedIPs[ipAddress].Format(time.RFC3339))
		return false
	}
	return len(recent) <= maxRequests
}

func (h *TerminalHandler) isIPBanned(ipAddress string) bool {
	h.rateLimitMutex.Lock()
	defer h.rateLimitMutex.Unlock()

	until, banned := h.bannedIPs[ipAddress]
	if !banned {
		return false
	}
	if time.Now().After(until) {
		delete(h.bannedIPs, ipAddress)
		return false
	}
	return true
}

// pingClients periodically disconnects clients whose pong replies stopped.
func (h *TerminalHandler) pingClients() {
	ticker := time.NewTicker(getPingPeriod())
	defer ticker.Stop()

	for range ticker.C {
		deadline := time.Now().Add(-getPongWait())

		h.mutex.RLock()
		var stale []*Client
		for client := range h.clients {
			if client.lastPong.Before(deadline) {
				stale = append(stale, client)
			}
		}
		h.mutex.RUnlock()

		for _, client := range stale {
			logger.WebSocketWarn("Client %s timed out, disconnecting", client.sessionID)
			h.cleanupClient(client)
		}
	}
}

// cleanupClient removes a client and closes its connection. The shell
// session survives so a reconnect keeps the program buffer.
func (h *TerminalHandler) cleanupClient(client *Client) {
	h.mutex.Lock()
	if _, exists := h.clients[client]; !exists {
		h.mutex.Unlock()
		return
	}
	delete(h.clients, client)
	h.mutex.Unlock()

	close(client.shutdown)
	client.conn.Close()
	logger.WebSocketInfo("Client %s disconnected", client.sessionID)
}

// ClientCount returns the number of connected terminals.
func (h *TerminalHandler) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// clientIP extracts the client address, honoring proxy headers.
func clientIP(r *http.Request) string {
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	return r.RemoteAddr
}
