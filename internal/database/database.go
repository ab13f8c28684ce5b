package database

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"  // driver: postgres
	_ "modernc.org/sqlite" // driver: sqlite
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Connect opens the result database. SQLite is the default: a personal quiz
// install keeps everything in one local file. DB_DRIVER=postgres switches to
// a server database for shared installs.
func Connect() (*sql.DB, string, error) {
	driver := getEnv("DB_DRIVER", DriverSQLite)

	switch driver {
	case DriverSQLite:
		path := getEnv("DB_PATH", "quiz_results.db")
		db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
		if err != nil {
			return nil, "", fmt.Errorf("failed to open sqlite database: %w", err)
		}
		if err := db.Ping(); err != nil {
			return nil, "", fmt.Errorf("failed to ping sqlite database: %w", err)
		}
		// modernc sqlite serializes writes; one connection avoids lock churn.
		db.SetMaxOpenConns(1)
		return db, driver, nil

	case DriverPostgres:
		host := getEnv("DB_HOST", "localhost")
		port := getEnv("DB_PORT", "5432")
		user := getEnv("DB_USER", "quiz_user")
		password := getEnv("DB_PASSWORD", "quiz_password")
		dbname := getEnv("DB_NAME", "cissp_quiz")
		sslmode := getEnv("DB_SSLMODE", "disable")

		dsn := fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			host, port, user, password, dbname, sslmode,
		)

		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.Ping(); err != nil {
			return nil, "", fmt.Errorf("failed to ping database: %w", err)
		}
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		return db, driver, nil

	default:
		return nil, "", fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}
}

// Migrate creates the results and favorites tables. The correct column is an
// integer 0/1 in both dialects so aggregate queries stay portable.
func Migrate(db *sql.DB, driver string) error {
	var query string
	switch driver {
	case DriverSQLite:
		query = `
	CREATE TABLE IF NOT EXISTS results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		question_id TEXT NOT NULL,
		user_answer TEXT NOT NULL,
		correct_answer TEXT NOT NULL,
		correct INTEGER NOT NULL,
		domain TEXT NOT NULL,
		timestamp TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS favorites (
		question_id TEXT PRIMARY KEY
	);

	CREATE INDEX IF NOT EXISTS idx_results_domain ON results(domain);
	CREATE INDEX IF NOT EXISTS idx_results_timestamp ON results(timestamp);
	`
	case DriverPostgres:
		query = `
	CREATE TABLE IF NOT EXISTS results (
		id BIGSERIAL PRIMARY KEY,
		question_id TEXT NOT NULL,
		user_answer TEXT NOT NULL,
		correct_answer TEXT NOT NULL,
		correct INT NOT NULL,
		domain TEXT NOT NULL,
		timestamp TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS favorites (
		question_id TEXT PRIMARY KEY
	);

	CREATE INDEX IF NOT EXISTS idx_results_domain ON results(domain);
	CREATE INDEX IF NOT EXISTS idx_results_timestamp ON results(timestamp);
	`
	default:
		return fmt.Errorf("unsupported driver %q", driver)
	}

	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
