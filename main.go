package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/antibyte/retropy/pkg/auth"
	"github.com/antibyte/retropy/pkg/configuration"
	"github.com/antibyte/retropy/pkg/logger"
	"github.com/antibyte/retropy/pkg/shell"
	"github.com/antibyte/retropy/pkg/storage"
	"github.com/antibyte/retropy/pkg/terminal"
)

func main() {
	configPath := flag.String("config", "settings.cfg", "path to the configuration file")
	flag.Parse()

	// configuration comes first, everything else reads from it
	if err := configuration.Initialize(*configPath); err != nil {
		log.Fatalf("Failed to initialize configuration: %v", err)
	}

	if err := logger.Initialize(); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	dbPath := configuration.GetString("Server", "database_file", "retropy.db")
	db, err := storage.Open(dbPath)
	if err != nil {
		logger.Fatal(logger.AreaDatabase, "Failed to open database %s: %v", dbPath, err)
	}
	defer db.Close()

	if err := db.CreateTables(); err != nil {
		logger.Fatal(logger.AreaDatabase, "Failed to create tables: %v", err)
	}

	sh := shell.New(db)
	handler := terminal.NewTerminalHandler(sh)
	authHandlers := auth.NewHandlers(db)

	http.HandleFunc("/api/auth/session", authHandlers.HandleCreateSession)
	http.HandleFunc("/api/auth/register", authHandlers.HandleRegister)
	http.HandleFunc("/api/auth/login", authHandlers.HandleLogin)
	http.HandleFunc("/api/auth/validate", authHandlers.HandleTokenValidation)
	http.HandleFunc("/api/auth/logout", authHandlers.HandleLogout)
	http.HandleFunc("/ws", handler.HandleWebSocket)

	// browser frontend, if bundled
	if _, err := os.Stat("static"); err == nil {
		http.Handle("/", http.FileServer(http.Dir("static")))
	}

	// close the database cleanly on SIGINT/SIGTERM
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info(logger.AreaGeneral, "Received signal %v, shutting down", sig)
		db.Close()
		logger.Close()
		os.Exit(0)
	}()

	addr := configuration.GetString("Server", "listen_address", ":8080")
	logger.Info(logger.AreaGeneral, "retropy listening on %s", addr)
	if err := http.ListenAndServe(addr, nil); err != nil {
		logger.Fatal(logger.AreaGeneral, "Server failed: %v", err)
	}
}
