package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"github.com/antibyte/retropy/pkg/configuration"
	"github.com/antibyte/retropy/pkg/logger"
)

var (
	// ErrUserExists is returned when registering an already-taken username.
	ErrUserExists = errors.New("storage: user already exists")
	// ErrInvalidCredentials is returned when login fails. The caller gets
	// no hint whether the username or the password was wrong.
	ErrInvalidCredentials = errors.New("storage: invalid credentials")
	// ErrProgramNotFound is returned when a named program does not exist.
	ErrProgramNotFound = errors.New("storage: program not found")
	// ErrQuotaExceeded is returned when a user hits the saved-program limit.
	ErrQuotaExceeded = errors.New("storage: program quota exceeded")
)

// Database wraps the SQLite connection holding user accounts and saved
// nuPython programs.
type Database struct {
	conn *sql.DB
}

// ProgramInfo describes one saved program for directory listings.
type ProgramInfo struct {
	Name    string
	Size    int
	ModTime time.Time
}

// Open initializes the SQLite database connection.
func Open(dbPath string) (*Database, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &Database{conn: conn}, nil
}

// Close closes the underlying connection.
func (db *Database) Close() error {
	return db.conn.Close()
}

// CreateTables ensures all required tables exist.
func (db *Database) CreateTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			username TEXT PRIMARY KEY,
			password TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			last_login INTEGER,
			ip_address TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS programs (
			username TEXT NOT NULL,
			name TEXT NOT NULL,
			source TEXT NOT NULL,
			mod_time INTEGER NOT NULL,
			PRIMARY KEY (username, name)
		)`,
	}

	for _, query := range queries {
		if _, err := db.conn.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

// CreateUser registers a new account with a bcrypt-hashed password.
func (db *Database) CreateUser(username, password, ipAddress string) error {
	var existing string
	err := db.conn.QueryRow(`SELECT username FROM users WHERE username = ?`, username).Scan(&existing)
	if err == nil {
		return ErrUserExists
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("user lookup failed: %w", err)
	}

	cost := configuration.GetInt("Authentication", "password_hash_cost", 12)
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return fmt.Errorf("password hashing failed: %w", err)
	}

	_, err = db.conn.Exec(
		`INSERT INTO users (username, password, created_at, ip_address) VALUES (?, ?, ?, ?)`,
		username, string(hash), time.Now().Unix(), ipAddress,
	)
	if err != nil {
		return fmt.Errorf("user creation failed: %w", err)
	}

	logger.Info(logger.AreaDatabase, "User created: %s", username)
	return nil
}

// Authenticate checks a username/password pair and records the login time.
func (db *Database) Authenticate(username, password string) error {
	var hash string
	err := db.conn.QueryRow(`SELECT password FROM users WHERE username = ?`, username).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return fmt.Errorf("user lookup failed: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return ErrInvalidCredentials
	}

	_, err = db.conn.Exec(`UPDATE users SET last_login = ? WHERE username = ?`,
		time.Now().Unix(), username)
	if err != nil {
		logger.Error(logger.AreaDatabase, "Failed to record login time for %s: %v", username, err)
	}
	return nil
}

// UserExists reports whether a username is taken.
func (db *Database) UserExists(username string) (bool, error) {
	var existing string
	err := db.conn.QueryRow(`SELECT username FROM users WHERE username = ?`, username).Scan(&existing)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("user lookup failed: %w", err)
	}
	return true, nil
}

// SaveProgram stores or overwrites a named program for a user. New names
// count against the configured quota; overwrites always succeed.
func (db *Database) SaveProgram(username, name, source string) error {
	var existing string
	err := db.conn.QueryRow(
		`SELECT name FROM programs WHERE username = ? AND name = ?`, username, name,
	).Scan(&existing)
	isNew := errors.Is(err, sql.ErrNoRows)
	if err != nil && !isNew {
		return fmt.Errorf("program lookup failed: %w", err)
	}

	if isNew {
		maxPrograms := configuration.GetInt("Interpreter", "max_saved_programs", 50)
		var count int
		if err := db.conn.QueryRow(
			`SELECT COUNT(*) FROM programs WHERE username = ?`, username,
		).Scan(&count); err != nil {
			return fmt.Errorf("program count failed: %w", err)
		}
		if count >= maxPrograms {
			return ErrQuotaExceeded
		}
	}

	_, err = db.conn.Exec(
		`INSERT INTO programs (username, name, source, mod_time) VALUES (?, ?, ?, ?)
		 ON CONFLICT(username, name) DO UPDATE SET source = excluded.source, mod_time = excluded.mod_time`,
		username, name, source, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("program save failed: %w", err)
	}
	return nil
}

// LoadProgram returns the stored source of a named program.
func (db *Database) LoadProgram(username, name string) (string, error) {
	var source string
	err := db.conn.QueryRow(
		`SELECT source FROM programs WHERE username = ? AND name = ?`, username, name,
	).Scan(&source)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrProgramNotFound
	}
	if err != nil {
		return "", fmt.Errorf("program load failed: %w", err)
	}
	return source, nil
}

// ListPrograms returns all saved programs of a user, newest first.
func (db *Database) ListPrograms(username string) ([]ProgramInfo, error) {
	rows, err := db.conn.Query(
		`SELECT name, LENGTH(source), mod_time FROM programs WHERE username = ? ORDER BY mod_time DESC`,
		username,
	)
	if err != nil {
		return nil, fmt.Errorf("program listing failed: %w", err)
	}
	defer rows.Close()

	var programs []ProgramInfo
	for rows.Next() {
		var info ProgramInfo
		var modTime int64
		if err := rows.Scan(&info.Name, &info.Size, &modTime); err != nil {
			return nil, fmt.Errorf("program listing scan failed: %w", err)
		}
		info.ModTime = time.Unix(modTime, 0)
		programs = append(programs, info)
	}
	return programs, rows.Err()
}

// DeleteProgram removes a named program.
func (db *Database) DeleteProgram(username, name string) error {
	result, err := db.conn.Exec(
		`DELETE FROM programs WHERE username = ? AND name = ?`, username, name,
	)
	if err != nil {
		return fmt.Errorf("program delete failed: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrProgramNotFound
	}
	return nil
}
