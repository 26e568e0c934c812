package shell

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/antibyte/retropy/pkg/configuration"
	"github.com/antibyte/retropy/pkg/logger"
	"github.com/antibyte/retropy/pkg/nupy"
	"github.com/antibyte/retropy/pkg/shared"
	"github.com/antibyte/retropy/pkg/storage"
)

// Shell is the command layer behind every terminal connection. It keeps one
// Session per WebSocket client and routes input lines to command handlers.
type Shell struct {
	db       *storage.Database
	mu       sync.RWMutex
	sessions map[string]*Session
}

// Session is the per-client state: the login identity, the current program
// buffer and whether the client is in program capture mode.
type Session struct {
	ID       string
	Username string // "" for guests
	buffer   []string
	capture  bool
}

// New creates a shell backed by the given database.
func New(db *storage.Database) *Shell {
	return &Shell{
		db:       db,
		sessions: make(map[string]*Session),
	}
}

// CreateSession registers a session. The username comes from the validated
// token and is "" for guests.
func (s *Shell) CreateSession(sessionID, username string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[sessionID]
	if !exists {
		session = &Session{ID: sessionID, Username: username}
		s.sessions[sessionID] = session
		logger.ShellInfo("Session created: %s (user: %s)", sessionID, displayName(username))
	} else if username != "" {
		session.Username = username
	}
	return session
}

// RemoveSession drops a session and its program buffer.
func (s *Shell) RemoveSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	logger.ShellInfo("Session removed: %s", sessionID)
}

// SessionUsername returns the login name of a session, "" for guests and
// unknown sessions.
func (s *Shell) SessionUsername(sessionID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if session, ok := s.sessions[sessionID]; ok {
		return session.Username
	}
	return ""
}

// Banner returns the greeting shown when a terminal connects.
func (s *Shell) Banner() []shared.Message {
	return []shared.Message{
		shared.TextMessage("retropy - a nuPython terminal"),
		shared.TextMessage("Type 'help' for a list of commands."),
		shared.TextMessage(""),
	}
}

// Execute processes one input line for a session and returns the messages to
// send back to the client.
func (s *Shell) Execute(sessionID, input string) []shared.Message {
	s.mu.Lock()
	session, ok := s.sessions[sessionID]
	if !ok {
		session = &Session{ID: sessionID}
		s.sessions[sessionID] = session
	}
	s.mu.Unlock()

	if session.capture {
		return s.captureLine(session, input)
	}

	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil
	}

	parts := strings.Fields(trimmed)
	command := strings.ToLower(parts[0])
	args := parts[1:]

	logger.ShellDebug("Session %s: command %q", sessionID, command)

	switch command {
	case "help":
		return s.cmdHelp()
	case "about":
		return s.cmdAbout()
	case "clear":
		return []shared.Message{{Type: shared.MessageTypeClear}}
	case "echo":
		rest := strings.TrimSpace(strings.TrimPrefix(trimmed, parts[0]))
		return []shared.Message{shared.TextMessage(rest)}
	case "date":
		return []shared.Message{shared.TextMessage(time.Now().Format("Mon Jan 2 15:04:05 2006"))}
	case "new":
		session.buffer = nil
		return []shared.Message{shared.TextMessage("Program buffer cleared.")}
	case "list":
		return s.cmdList(session)
	case "enter":
		return s.cmdEnter(session)
	case "tokens":
		return s.cmdTokens(session)
	case "parse":
		return s.cmdParse(session)
	case "save":
		return s.cmdSave(session, args)
	case "load":
		return s.cmdLoad(session, args)
	case "dir":
		return s.cmdDir(session)
	case "rm":
		return s.cmdRm(session, args)
	case "register":
		return s.cmdRegister(session, args)
	case "login":
		return s.cmdLogin(session, args)
	case "logout":
		return s.cmdLogout(session)
	case "whoami":
		return []shared.Message{shared.TextMessage(displayName(session.Username))}
	default:
		return []shared.Message{shared.ErrorMessage(fmt.Sprintf("Unknown command: %s", command))}
	}
}

func (s *Shell) cmdHelp() []shared.Message {
	lines := []string{
		"Available commands:",
		"  help              show this text",
		"  about             about this system",
		"  clear             clear the screen",
		"  echo <text>       print text",
		"  date              print the current date and time",
		"",
		"  new               clear the program buffer",
		"  enter             enter program lines, end with a single $",
		"  list              show the program buffer",
		"  tokens            tokenize the program and dump the tokens",
		"  parse             check the program against the nuPython grammar",
		"",
		"  save <name>       save the program buffer (login required)",
		"  load <name>       load a saved program",
		"  dir               list saved programs",
		"  rm <name>         delete a saved program",
		"",
		"  register <user> <password>   create an account",
		"  login <user> <password>      log in",
		"  logout            back to guest",
		"  whoami            show the current user",
	}
	msgs := make([]shared.Message, len(lines))
	for i, line := range lines {
		msgs[i] = shared.TextMessage(line)
	}
	return msgs
}

func (s *Shell) cmdAbout() []shared.Message {
	return []shared.Message{
		shared.TextMessage("retropy hosts the front end of the nuPython language:"),
		shared.TextMessage("a scanner, a token queue, and a recursive-descent parser."),
		shared.TextMessage("Programs that parse cleanly are ready for execution by a"),
		shared.TextMessage("future interpreter backend."),
	}
}

func (s *Shell) cmdList(session *Session) []shared.Message {
	if len(session.buffer) == 0 {
		return []shared.Message{shared.TextMessage("Program buffer is empty.")}
	}
	msgs := make([]shared.Message, 0, len(session.buffer))
	for i, line := range session.buffer {
		msgs = append(msgs, shared.TextMessage(fmt.Sprintf("%3d  %s", i+1, line)))
	}
	return msgs
}

func (s *Shell) cmdEnter(session *Session) []shared.Message {
	session.capture = true
	return []shared.Message{
		shared.TextMessage("Enter program lines, end with a single $ on its own line."),
		{Type: shared.MessageTypeMode, Content: "capture"},
		{Type: shared.MessageTypePrompt, Prompt: "... "},
	}
}

// captureLine appends one line in capture mode. A lone "$" ends the mode,
// matching the keyboard input convention of the language.
func (s *Shell) captureLine(session *Session, input string) []shared.Message {
	if strings.TrimSpace(input) == "$" {
		session.capture = false
		return []shared.Message{
			shared.TextMessage(fmt.Sprintf("Captured %d line(s).", len(session.buffer))),
			{Type: shared.MessageTypeMode, Content: "shell"},
			{Type: shared.MessageTypePrompt, Prompt: "> "},
		}
	}

	maxLines := configuration.GetInt("Interpreter", "max_program_lines", 500)
	if len(session.buffer) >= maxLines {
		session.capture = false
		return []shared.Message{
			shared.ErrorMessage(fmt.Sprintf("Program limit of %d lines reached, capture aborted.", maxLines)),
			{Type: shared.MessageTypeMode, Content: "shell"},
			{Type: shared.MessageTypePrompt, Prompt: "> "},
		}
	}

	session.buffer = append(session.buffer, input)
	return nil
}

// source returns the program buffer as scanner input. Every line ends with a
// newline so positions match what was typed.
func (session *Session) source() string {
	if len(session.buffer) == 0 {
		return ""
	}
	return strings.Join(session.buffer, "\n") + "\n"
}

func (s *Shell) cmdTokens(session *Session) []shared.Message {
	var diag strings.Builder
	sc := nupy.NewScanner(strings.NewReader(session.source()), &diag)
	sc.Init()

	var msgs []shared.Message
	for {
		tok, value := sc.NextToken()
		msgs = append(msgs, shared.TextMessage(
			fmt.Sprintf("Token %d ('%s') @ (%d, %d)", int(tok.Type), value, tok.Line, tok.Col)))
		if tok.Type == nupy.TOKEN_EOS {
			break
		}
	}
	return appendDiagnostics(msgs, diag.String())
}

func (s *Shell) cmdParse(session *Session) []shared.Message {
	var diag strings.Builder
	p := nupy.NewParser(&diag)

	queue, err := p.Parse(strings.NewReader(session.source()))
	if err != nil {
		msgs := appendDiagnostics(nil, diag.String())
		return append(msgs, shared.ErrorMessage("Parsing failed."))
	}

	count := queue.Len()
	queue.Destroy()

	msgs := appendDiagnostics(nil, diag.String())
	return append(msgs, shared.TextMessage(
		fmt.Sprintf("Program is syntactically valid (%d tokens).", count)))
}

// appendDiagnostics splits scanner/parser diagnostics into one error message
// per line.
func appendDiagnostics(msgs []shared.Message, diag string) []shared.Message {
	for _, line := range strings.Split(strings.TrimRight(diag, "\n"), "\n") {
		if line != "" {
			msgs = append(msgs, shared.ErrorMessage(line))
		}
	}
	return msgs
}

func (s *Shell) cmdSave(session *Session, args []string) []shared.Message {
	if session.Username == "" {
		return []shared.Message{shared.ErrorMessage("Login required to save programs.")}
	}
	if len(args) != 1 {
		return []shared.Message{shared.ErrorMessage("Usage: save <name>")}
	}
	if len(session.buffer) == 0 {
		return []shared.Message{shared.ErrorMessage("Program buffer is empty.")}
	}

	err := s.db.SaveProgram(session.Username, args[0], session.source())
	if errors.Is(err, storage.ErrQuotaExceeded) {
		return []shared.Message{shared.ErrorMessage("Saved program limit reached.")}
	}
	if err != nil {
		logger.ShellError("Save failed for %s/%s: %v", session.Username, args[0], err)
		return []shared.Message{shared.ErrorMessage("Save failed.")}
	}
	return []shared.Message{shared.TextMessage(fmt.Sprintf("Saved '%s'.", args[0]))}
}

func (s *Shell) cmdLoad(session *Session, args []string) []shared.Message {
	if session.Username == "" {
		return []shared.Message{shared.ErrorMessage("Login required to load programs.")}
	}
	if len(args) != 1 {
		return []shared.Message{shared.ErrorMessage("Usage: load <name>")}
	}

	source, err := s.db.LoadProgram(session.Username, args[0])
	if errors.Is(err, storage.ErrProgramNotFound) {
		return []shared.Message{shared.ErrorMessage(fmt.Sprintf("No program named '%s'.", args[0]))}
	}
	if err != nil {
		logger.ShellError("Load failed for %s/%s: %v", session.Username, args[0], err)
		return []shared.Message{shared.ErrorMessage("Load failed.")}
	}

	session.buffer = strings.Split(strings.TrimRight(source, "\n"), "\n")
	return []shared.Message{shared.TextMessage(
		fmt.Sprintf("Loaded '%s' (%d line(s)).", args[0], len(session.buffer)))}
}

func (s *Shell) cmdDir(session *Session) []shared.Message {
	if session.Username == "" {
		return []shared.Message{shared.ErrorMessage("Login required to list programs.")}
	}

	programs, err := s.db.ListPrograms(session.Username)
	if err != nil {
		logger.ShellError("Dir failed for %s: %v", session.Username, err)
		return []shared.Message{shared.ErrorMessage("Listing failed.")}
	}
	if len(programs) == 0 {
		return []shared.Message{shared.TextMessage("No saved programs.")}
	}

	msgs := make([]shared.Message, 0, len(programs))
	for _, p := range programs {
		msgs = append(msgs, shared.TextMessage(fmt.Sprintf("%-20s %6d bytes  %s",
			p.Name, p.Size, p.ModTime.Format("2006-01-02 15:04"))))
	}
	return msgs
}

func (s *Shell) cmdRm(session *Session, args []string) []shared.Message {
	if session.Username == "" {
		return []shared.Message{shared.ErrorMessage("Login required to delete programs.")}
	}
	if len(args) != 1 {
		return []shared.Message{shared.ErrorMessage("Usage: rm <name>")}
	}

	err := s.db.DeleteProgram(session.Username, args[0])
	if errors.Is(err, storage.ErrProgramNotFound) {
		return []shared.Message{shared.ErrorMessage(fmt.Sprintf("No program named '%s'.", args[0]))}
	}
	if err != nil {
		logger.ShellError("Delete failed for %s/%s: %v", session.Username, args[0], err)
		return []shared.Message{shared.ErrorMessage("Delete failed.")}
	}
	return []shared.Message{shared.TextMessage(fmt.Sprintf("Deleted '%s'.", args[0]))}
}

func (s *Shell) cmdRegister(session *Session, args []string) []shared.Message {
	if len(args) != 2 {
		return []shared.Message{shared.ErrorMessage("Usage: register <user> <password>")}
	}

	err := s.db.CreateUser(args[0], args[1], "")
	if errors.Is(err, storage.ErrUserExists) {
		return []shared.Message{shared.ErrorMessage("Username is already taken.")}
	}
	if err != nil {
		logger.ShellError("Registration failed for %s: %v", args[0], err)
		return []shared.Message{shared.ErrorMessage("Registration failed.")}
	}
	return []shared.Message{shared.TextMessage(
		fmt.Sprintf("Account '%s' created. Use 'login' to sign in.", args[0]))}
}

func (s *Shell) cmdLogin(session *Session, args []string) []shared.Message {
	if len(args) != 2 {
		return []shared.Message{shared.ErrorMessage("Usage: login <user> <password>")}
	}

	if err := s.db.Authenticate(args[0], args[1]); err != nil {
		if errors.Is(err, storage.ErrInvalidCredentials) {
			logger.SecurityWarn("Failed shell login for %s (session %s)", args[0], session.ID)
			return []shared.Message{shared.ErrorMessage("Invalid username or password.")}
		}
		logger.ShellError("Login failed for %s: %v", args[0], err)
		return []shared.Message{shared.ErrorMessage("Login failed.")}
	}

	session.Username = args[0]
	return []shared.Message{
		shared.TextMessage(fmt.Sprintf("Logged in as %s.", args[0])),
		{Type: shared.MessageTypeAuthRefresh, SessionID: session.ID},
	}
}

func (s *Shell) cmdLogout(session *Session) []shared.Message {
	if session.Username == "" {
		return []shared.Message{shared.TextMessage("Not logged in.")}
	}
	session.Username = ""
	return []shared.Message{
		shared.TextMessage("Logged out."),
		{Type: shared.MessageTypeAuthRefresh, SessionID: session.ID},
	}
}

func displayName(username string) string {
	if username == "" {
		return "guest"
	}
	return username
}
