package main

import (
	"crypto/rand"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/cissp-prep/backend/internal/config"
	"github.com/cissp-prep/backend/internal/database"
	"github.com/cissp-prep/backend/internal/explain"
	"github.com/cissp-prep/backend/internal/questions"
	"github.com/cissp-prep/backend/internal/quiz"
	"github.com/cissp-prep/backend/internal/results"
	"github.com/cissp-prep/backend/internal/session"
)

const sessionTTL = 24 * time.Hour

func main() {
	// Optional .env for local development; env vars win either way.
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("QUIZ_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Load question banks. A malformed bank aborts startup: a quiz over a
	// partially loaded bank silently shrinks the exam.
	repo, err := questions.LoadDir(cfg.DataDir)
	if err != nil {
		log.Fatalf("Failed to load question banks: %v", err)
	}
	if repo.Len() == 0 {
		log.Fatalf("No questions found in %s", cfg.DataDir)
	}
	log.Printf("Loaded %d questions across %d domains", repo.Len(), len(repo.Domains()))

	// Initialize database
	db, driver, err := database.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db, driver); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	store := results.NewStore(db)
	sessions := session.NewStore(sessionSecret(), sessionTTL)
	service := session.NewService(repo, store)
	explainer := explain.New(cfg.OllamaHost, cfg.OllamaModel)

	// Setup router
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	handler := quiz.NewHandler(repo, store, sessions, service, explainer)
	handler.Routes(api)

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	srv := c.Handler(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on :%s", port)
	if err := http.ListenAndServe(":"+port, srv); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// sessionSecret returns the token-signing key. Without SESSION_SECRET a
// random key is generated, which invalidates live sessions on restart; fine
// for a single-user install, set the variable for anything longer-lived.
func sessionSecret() []byte {
	if s := os.Getenv("SESSION_SECRET"); s != "" {
		return []byte(s)
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		log.Fatalf("Failed to generate session secret: %v", err)
	}
	log.Println("SESSION_SECRET not set; using a random per-process secret")
	return secret
}
