package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgconn"

	"github.com/odyssey-erp/receiving/internal/app"
	"github.com/odyssey-erp/receiving/migrations"
)

const trackingTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
    name       VARCHAR(255) PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL DEFAULT NOW()
)`

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping migrations")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	conn, err := pgconn.Connect(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		_ = conn.Close(context.Background())
	}()

	applied, err := run(ctx, conn, logger)
	if err != nil {
		logger.Error("migrate", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("migrations complete", slog.Int("applied", applied))
}

// run applies every embedded script not yet recorded in schema_migrations.
func run(ctx context.Context, conn *pgconn.PgConn, logger *slog.Logger) (int, error) {
	if _, err := conn.Exec(ctx, trackingTable).ReadAll(); err != nil {
		return 0, fmt.Errorf("create tracking table: %w", err)
	}

	result := conn.ExecParams(ctx, `SELECT name FROM schema_migrations`, nil, nil, nil, nil).Read()
	if result.Err != nil {
		return 0, fmt.Errorf("load applied migrations: %w", result.Err)
	}
	done := make(map[string]struct{}, len(result.Rows))
	for _, row := range result.Rows {
		done[string(row[0])] = struct{}{}
	}

	names, err := migrations.Ordered()
	if err != nil {
		return 0, err
	}
	applied := 0
	for _, name := range names {
		if _, ok := done[name]; ok {
			continue
		}
		body, err := migrations.Files.ReadFile(name)
		if err != nil {
			return applied, err
		}
		if _, err := conn.Exec(ctx, buildScript(name, string(body))).ReadAll(); err != nil {
			return applied, fmt.Errorf("apply %s: %w", name, err)
		}
		logger.Info("migration applied", slog.String("name", name))
		applied++
	}
	return applied, nil
}

// buildScript wraps a migration and its bookkeeping row in one transaction.
// The simple query protocol runs the whole multi-statement script at once.
func buildScript(name, body string) string {
	var b strings.Builder
	b.WriteString("BEGIN;\n")
	b.WriteString(strings.TrimSpace(body))
	if !strings.HasSuffix(strings.TrimSpace(body), ";") {
		b.WriteString(";")
	}
	b.WriteString("\nINSERT INTO schema_migrations (name) VALUES ('")
	b.WriteString(strings.ReplaceAll(name, "'", "''"))
	b.WriteString("');\nCOMMIT;")
	return b.String()
}
