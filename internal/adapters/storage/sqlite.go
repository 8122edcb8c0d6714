package storage

// sqlite.go — histórico de runs del bridge.
//
// Estrategia:
//   - `runs`: una fila por invocación del bridge (resumen del ciclo).
//   - `verdicts`: una fila por señal procesada, con la guard que la frenó
//     (o sent=1). Es el material para auditar por qué una señal no llegó
//     a Telegram sin bucear en logs.
//   - Prune automático al arrancar: runs y verdicts > 30 días.
//
// El ledger y las propuestas pendientes viven en JSON plano; esta DB es
// solo histórico de lectura, nunca estado operativo.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/whalebridge/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
-- Resumen por invocación del bridge
CREATE TABLE IF NOT EXISTS runs (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at      DATETIME NOT NULL,
    signals_in      INTEGER  NOT NULL DEFAULT 0,
    proposals_sent  INTEGER  NOT NULL DEFAULT 0,
    portfolio_total REAL     NOT NULL DEFAULT 0,
    stale_prices    INTEGER  NOT NULL DEFAULT 0,
    dry_run         INTEGER  NOT NULL DEFAULT 0
);

-- Una fila por señal procesada en cada run
CREATE TABLE IF NOT EXISTS verdicts (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id      INTEGER NOT NULL REFERENCES runs(id),
    market_id   TEXT    NOT NULL,
    market_name TEXT,
    tier        INTEGER NOT NULL DEFAULT 0,
    category    TEXT,
    stake       REAL    NOT NULL DEFAULT 0,
    sent        INTEGER NOT NULL DEFAULT 0,
    guard       TEXT,
    reason      TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_at        ON runs(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_verdicts_run   ON verdicts(run_id);
CREATE INDEX IF NOT EXISTS idx_verdicts_mkt   ON verdicts(market_id);
`

const retentionRuns = 30 * 24 * time.Hour

// SQLiteArchive implementa ports.Archive usando SQLite (pure Go, sin CGo).
type SQLiteArchive struct {
	db *sql.DB
}

// NewSQLiteArchive abre (o crea) la base de datos en la ruta dada.
// Aplica el schema y limpia datos antiguos.
func NewSQLiteArchive(path string) (*SQLiteArchive, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteArchive: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteArchive: apply schema: %w", err)
	}

	a := &SQLiteArchive{db: db}
	a.pruneOld(context.Background())
	return a, nil
}

// SaveRun persiste el resumen del run y sus veredictos por señal.
func (a *SQLiteArchive) SaveRun(ctx context.Context, run domain.BridgeRun, verdicts []domain.SignalVerdict) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: begin tx: %w", err)
	}
	defer tx.Rollback()

	dryRun := 0
	if run.DryRun {
		dryRun = 1
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (started_at, signals_in, proposals_sent, portfolio_total, stale_prices, dry_run)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.StartedAt.UTC(), run.SignalsIn, run.ProposalsSent, run.PortfolioTotal, run.StalePrices, dryRun,
	)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("storage.SaveRun: run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO verdicts (run_id, market_id, market_name, tier, category, stake, sent, guard, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: prepare: %w", err)
	}
	defer stmt.Close()

	for _, v := range verdicts {
		sent := 0
		if v.Sent {
			sent = 1
		}
		if _, err := stmt.ExecContext(ctx,
			runID, v.MarketID, v.MarketName, v.Tier, string(v.Category),
			v.Stake, sent, v.Guard, v.Reason,
		); err != nil {
			return fmt.Errorf("storage.SaveRun: insert verdict %s: %w", v.MarketID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveRun: commit: %w", err)
	}
	return nil
}

// RecentRuns devuelve los últimos runs, el más nuevo primero.
func (a *SQLiteArchive) RecentRuns(ctx context.Context, limit int) ([]domain.BridgeRun, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT started_at, signals_in, proposals_sent, portfolio_total, stale_prices, dry_run
		FROM runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.RecentRuns: query: %w", err)
	}
	defer rows.Close()

	var runs []domain.BridgeRun
	for rows.Next() {
		var run domain.BridgeRun
		var dryRun int
		if err := rows.Scan(&run.StartedAt, &run.SignalsIn, &run.ProposalsSent,
			&run.PortfolioTotal, &run.StalePrices, &dryRun); err != nil {
			return nil, fmt.Errorf("storage.RecentRuns: scan row: %w", err)
		}
		run.DryRun = dryRun == 1
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (a *SQLiteArchive) Close() error {
	return a.db.Close()
}

// pruneOld elimina historia antigua para mantener la DB ligera.
func (a *SQLiteArchive) pruneOld(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-retentionRuns)
	a.db.ExecContext(ctx, `DELETE FROM verdicts WHERE run_id IN (SELECT id FROM runs WHERE started_at < ?)`, cutoff)
	a.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, cutoff)
}
