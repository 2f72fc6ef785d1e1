package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kurataraku/survey-app/internal/api"
	dbstore "github.com/kurataraku/survey-app/internal/db"
	"github.com/kurataraku/survey-app/internal/middleware"
	"github.com/kurataraku/survey-app/internal/utils"
)

func main() {
	addr := utils.SafeEnv("SURVEYAPP_ADDR", ":8080")
	commit := os.Getenv("SURVEYAPP_COMMIT")
	buildTime := os.Getenv("SURVEYAPP_BUILD_TIME")

	store, err := openStore()
	if err != nil {
		log.Fatalf("open store: %v", err)
	}

	if fieldsPath := os.Getenv("SURVEYAPP_FIELDS_PATH"); fieldsPath != "" {
		if err := seedFieldDescriptors(store, fieldsPath); err != nil {
			log.Printf("seed field descriptors: %v", err)
		}
	}

	mux := http.NewServeMux()
	api.NewRouterWithStore(store).Register(mux)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":         true,
			"name":       "school survey API",
			"commit":     commit,
			"build_time": buildTime,
		})
	})

	handler := middleware.SecureHeaders(middleware.CORS(middleware.NoStore(middleware.WithAuth(mux))))

	log.Printf("server listening on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// openStore picks sqlite when SURVEYAPP_SQLITE_PATH is set, otherwise the
// in-memory store. Migrations run on every sqlite start; they are idempotent.
func openStore() (api.Store, error) {
	sqlitePath := os.Getenv("SURVEYAPP_SQLITE_PATH")
	if sqlitePath == "" {
		log.Printf("no SURVEYAPP_SQLITE_PATH set, using in-memory store")
		return api.NewMemoryStore(), nil
	}
	if err := os.MkdirAll(filepath.Dir(sqlitePath), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&_busy_timeout=5000", filepath.ToSlash(sqlitePath))
	sqliteDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := dbstore.RunMigrations(sqliteDB, os.Getenv("SURVEYAPP_MIGRATIONS_DIR")); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return dbstore.NewStore(sqliteDB)
}
