package main

import (
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/cissp-prep/backend/internal/config"
	"github.com/cissp-prep/backend/internal/database"
	"github.com/cissp-prep/backend/internal/explain"
	"github.com/cissp-prep/backend/internal/questions"
	"github.com/cissp-prep/backend/internal/results"
	"github.com/cissp-prep/backend/internal/session"
	"github.com/cissp-prep/backend/internal/tui"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("QUIZ_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	repo, err := questions.LoadDir(cfg.DataDir)
	if err != nil {
		log.Fatalf("Failed to load question banks: %v", err)
	}
	if repo.Len() == 0 {
		log.Fatalf("No questions found in %s", cfg.DataDir)
	}

	db, driver, err := database.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db, driver); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	store := results.NewStore(db)
	service := session.NewService(repo, store)

	// The probe logs go to stderr before the alt screen takes over.
	explainer := explain.New(cfg.OllamaHost, cfg.OllamaModel)

	program := tea.NewProgram(tui.New(repo, store, service, explainer), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
