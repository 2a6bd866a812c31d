// Package migrate applies the embedded SQL migrations of the Postgres session backend.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/and161185/admin-console/migrations"
)

// Up runs all pending migrations and returns the resulting schema version.
func Up(ctx context.Context, dsn string, log *zap.Logger) (int64, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(zapLogger{log: zapOrNop(log)})
	if err := goose.SetDialect("postgres"); err != nil {
		return 0, err
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return 0, fmt.Errorf("goose up: %w", err)
	}
	return goose.GetDBVersionContext(ctx, db)
}

func zapOrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// zapLogger routes goose output through zap.
type zapLogger struct{ log *zap.Logger }

func (z zapLogger) Printf(format string, v ...any) {
	z.log.Info(strings.TrimSpace(fmt.Sprintf(format, v...)), zap.String("component", "goose"))
}

// Fatalf logs at error level; goose's default would exit the process.
func (z zapLogger) Fatalf(format string, v ...any) {
	z.log.Error(strings.TrimSpace(fmt.Sprintf(format, v...)), zap.String("component", "goose"))
}
