/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the zakat bookkeeping server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (optional) and parse command-line flags
  2. Initialize the store (SQLite file or in-memory)
  3. Wire domain services and the API handler
  4. Configure HTTP router
  5. Start server with graceful shutdown

CONFIGURATION:
  Flags override environment variables.
    -port / PORT               HTTP server port (default: 8080)
    -db   / ZAKAT_DB           SQLite path; ":memory:" or "mem" selects
                               the in-memory store (default: zakat.db)
    -jwt-secret / ZAKAT_JWT_SECRET  Token signing secret (required)
    -bulk-row-limit            Max rows per bulk receipt (0 = unlimited)
    ZAKAT_DEMO=1               Seed a demo admin (admin/admin) on boot

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ZAKAT_JWT_SECRET=s3cret ./server -db="./data/zakat.db"

  # Run fully in memory with demo data
  ZAKAT_JWT_SECRET=s3cret ZAKAT_DEMO=1 ./server -db=":memory:"

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/baitulmaal/zakat-engine/api"
	"github.com/baitulmaal/zakat-engine/auth"
	"github.com/baitulmaal/zakat-engine/bulk"
	"github.com/baitulmaal/zakat-engine/hakamil"
	"github.com/baitulmaal/zakat-engine/ledger"
	memstore "github.com/baitulmaal/zakat-engine/ledger/store"
	"github.com/baitulmaal/zakat-engine/pemasukan"
	"github.com/baitulmaal/zakat-engine/rekonsiliasi"
	"github.com/baitulmaal/zakat-engine/store/sqlite"
	"github.com/baitulmaal/zakat-engine/tahun"
)

// storage is the union of every persistence port. Both the SQLite
// store and the in-memory store satisfy it; the choice is made once at
// startup.
type storage interface {
	ledger.Store
	rekonsiliasi.Store
	hakamil.ConfigStore
	hakamil.SnapshotStore
	pemasukan.Store
	pemasukan.MuzakkiStore
	tahun.Store
	auth.Store
	bulk.LogStore
}

func main() {
	// .env is optional; real deployments set variables directly.
	_ = godotenv.Load()

	port := flag.Int("port", envInt("PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", envStr("ZAKAT_DB", "zakat.db"), "SQLite database path (\":memory:\" or \"mem\" for in-memory)")
	jwtSecret := flag.String("jwt-secret", os.Getenv("ZAKAT_JWT_SECRET"), "token signing secret")
	bulkRowLimit := flag.Int("bulk-row-limit", envInt("ZAKAT_BULK_ROW_LIMIT", 0), "max rows per bulk receipt, 0 = unlimited")
	flag.Parse()

	if *jwtSecret == "" {
		log.Fatal("ZAKAT_JWT_SECRET (or -jwt-secret) is required")
	}

	// Initialize store
	var (
		st      storage
		cleanup func() error
	)
	switch *dbPath {
	case "mem", ":memory:":
		st = memstore.NewMemory()
		cleanup = func() error { return nil }
		log.Printf("Using in-memory store")
	default:
		s, err := sqlite.New(*dbPath)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		st = s
		cleanup = s.Close
		log.Printf("Using SQLite store at %s", *dbPath)
	}
	defer cleanup()

	// Wire domain services
	authSvc := auth.NewService(st)
	tokens := auth.NewTokenIssuer([]byte(*jwtSecret), 12*time.Hour)

	books := ledger.New(st)
	accounts := ledger.NewRegistry(st)
	years := tahun.NewService(st)

	basis := hakamil.NewResolver(st)
	snapshots := hakamil.NewEngine(st)
	reports := hakamil.NewReporter(st)

	income := pemasukan.NewService(st, st, basis, snapshots, books, accounts)
	rekon := rekonsiliasi.NewManager(st, books, accounts, years, authSvc)
	processor := bulk.NewProcessor(authSvc, basis, snapshots, st, st)
	reprints := bulk.NewReconstructor(st, st, st)

	if os.Getenv("ZAKAT_DEMO") == "1" {
		if err := seedDemo(context.Background(), st); err != nil {
			log.Printf("Warning: demo seed failed: %v", err)
		}
	}

	handler := &api.Handler{
		Auth:         authSvc,
		Tokens:       tokens,
		Accounts:     accounts,
		Ledger:       books,
		Rekon:        rekon,
		Configs:      st,
		Basis:        basis,
		Reports:      reports,
		Income:       income,
		Muzakki:      st,
		Bulk:         processor,
		Reprints:     reprints,
		Tahun:        years,
		TahunSt:      st,
		BulkRowLimit: *bulkRowLimit,
	}

	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d", *port)
		log.Printf("API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// seedDemo creates a default admin, a cash account and an open fiscal
// year so a fresh install is immediately usable. Idempotent: it skips
// anything that already exists.
func seedDemo(ctx context.Context, st storage) error {
	if existing, err := st.GetOperatorByUsername(ctx, "admin"); err != nil {
		return err
	} else if existing == nil {
		hashed, err := auth.HashPassword("admin")
		if err != nil {
			return err
		}
		err = st.InsertOperator(ctx, auth.Operator{
			ID:             uuid.NewString(),
			Username:       "admin",
			NamaLengkap:    "Administrator",
			Role:           auth.RoleAdmin,
			HashedPassword: hashed,
			CreatedAt:      time.Now(),
		})
		if err != nil {
			return err
		}
		log.Println("Seeded demo operator admin/admin")
	}

	accounts, err := st.ListAccounts(ctx, ledger.AccountFilter{})
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		err := st.InsertAccount(ctx, ledger.Account{
			ID:        ledger.AccountID(uuid.NewString()),
			Name:      "Kas Utama",
			Channel:   ledger.ChannelKas,
			Active:    true,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		})
		if err != nil {
			return err
		}
	}

	years, err := st.ListTahun(ctx)
	if err != nil {
		return err
	}
	if len(years) == 0 {
		err := st.InsertTahun(ctx, tahun.TahunZakat{
			ID:                uuid.NewString(),
			TahunHijriah:      "1448 H",
			TahunMasehi:       2026,
			NilaiBerasPerKgRp: 15000,
			NilaiZakatUangRp:  45000,
			Active:            true,
			CreatedAt:         time.Now(),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
