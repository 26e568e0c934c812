package storage

import (
	"errors"
	"testing"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.CreateTables(); err != nil {
		t.Fatalf("create tables: %v", err)
	}
	return db
}

func TestCreateUserAndAuthenticate(t *testing.T) {
	db := newTestDB(t)

	if err := db.CreateUser("alice", "secret123", "127.0.0.1"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	if err := db.CreateUser("alice", "other", ""); !errors.Is(err, ErrUserExists) {
		t.Errorf("duplicate CreateUser = %v, want ErrUserExists", err)
	}

	if err := db.Authenticate("alice", "secret123"); err != nil {
		t.Errorf("Authenticate with correct password: %v", err)
	}
	if err := db.Authenticate("alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password = %v, want ErrInvalidCredentials", err)
	}
	if err := db.Authenticate("nobody", "secret123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user = %v, want ErrInvalidCredentials", err)
	}

	exists, err := db.UserExists("alice")
	if err != nil || !exists {
		t.Errorf("UserExists(alice) = %v, %v", exists, err)
	}
	exists, err = db.UserExists("nobody")
	if err != nil || exists {
		t.Errorf("UserExists(nobody) = %v, %v", exists, err)
	}
}

func TestProgramLifecycle(t *testing.T) {
	db := newTestDB(t)

	if err := db.SaveProgram("alice", "demo", "pass\n"); err != nil {
		t.Fatalf("SaveProgram: %v", err)
	}

	source, err := db.LoadProgram("alice", "demo")
	if err != nil || source != "pass\n" {
		t.Errorf("LoadProgram = %q, %v", source, err)
	}

	// overwrite keeps one entry
	if err := db.SaveProgram("alice", "demo", "x = 1\n"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	source, _ = db.LoadProgram("alice", "demo")
	if source != "x = 1\n" {
		t.Errorf("after overwrite = %q", source)
	}

	programs, err := db.ListPrograms("alice")
	if err != nil || len(programs) != 1 {
		t.Fatalf("ListPrograms = %v, %v", programs, err)
	}
	if programs[0].Name != "demo" || programs[0].Size != len("x = 1\n") {
		t.Errorf("listing entry = %+v", programs[0])
	}

	if err := db.DeleteProgram("alice", "demo"); err != nil {
		t.Fatalf("DeleteProgram: %v", err)
	}
	if _, err := db.LoadProgram("alice", "demo"); !errors.Is(err, ErrProgramNotFound) {
		t.Errorf("load after delete = %v, want ErrProgramNotFound", err)
	}
	if err := db.DeleteProgram("alice", "demo"); !errors.Is(err, ErrProgramNotFound) {
		t.Errorf("double delete = %v, want ErrProgramNotFound", err)
	}
}

func TestProgramsAreScopedPerUser(t *testing.T) {
	db := newTestDB(t)

	db.SaveProgram("alice", "demo", "pass\n")

	if _, err := db.LoadProgram("bob", "demo"); !errors.Is(err, ErrProgramNotFound) {
		t.Errorf("cross-user load = %v, want ErrProgramNotFound", err)
	}

	programs, err := db.ListPrograms("bob")
	if err != nil || len(programs) != 0 {
		t.Errorf("cross-user listing = %v, %v", programs, err)
	}
}
