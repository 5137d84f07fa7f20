package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // pure Go driver, registered as "sqlite"
)

// SQLiteSink stores run results in a SQLite database. Several runs may share
// one database file; rows are keyed by run ID.
type SQLiteSink struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database and its schema.
func OpenSQLite(path string) (*SQLiteSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite database: %w", err)
	}
	if err := createSchemas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schemas: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

func createSchemas(db *sql.DB) error {
	schemas := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			started DATETIME NOT NULL,
			seed INTEGER NOT NULL,
			years INTEGER NOT NULL,
			iterations INTEGER NOT NULL,
			groups_list TEXT NOT NULL,
			species_list TEXT NOT NULL,
			duration_sec REAL NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS yearly (
			run_id TEXT NOT NULL,
			iter INTEGER NOT NULL,
			year INTEGER NOT NULL,
			kind TEXT NOT NULL,
			name TEXT NOT NULL,
			biomass REAL NOT NULL,
			relsize REAL NOT NULL,
			pr REAL NOT NULL,
			indivs INTEGER NOT NULL,
			ppt REAL NOT NULL,
			temp REAL NOT NULL,
			disturbance TEXT NOT NULL,
			FOREIGN KEY (run_id) REFERENCES runs(run_id)
		);`,
		`CREATE TABLE IF NOT EXISTS summary (
			run_id TEXT NOT NULL,
			year INTEGER NOT NULL,
			kind TEXT NOT NULL,
			name TEXT NOT NULL,
			biomass_mean REAL NOT NULL,
			biomass_std REAL NOT NULL,
			biomass_p10 REAL NOT NULL,
			biomass_p90 REAL NOT NULL,
			relsize_mean REAL NOT NULL,
			pr_mean REAL NOT NULL,
			indivs_mean REAL NOT NULL,
			ppt_mean REAL NOT NULL,
			temp_mean REAL NOT NULL,
			FOREIGN KEY (run_id) REFERENCES runs(run_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_yearly_run ON yearly(run_id, iter, year);`,
		`CREATE INDEX IF NOT EXISTS idx_summary_run ON summary(run_id, year);`,
	}
	for _, query := range schemas {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}
	return nil
}

// WriteRun inserts or replaces the run row.
func (s *SQLiteSink) WriteRun(ctx context.Context, m RunManifest) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (run_id, started, seed, years, iterations, groups_list, species_list, duration_sec)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.RunID, m.Started, int64(m.Seed), m.Years, m.Iterations,
		strings.Join(m.Groups, ","), strings.Join(m.Species, ","), m.DurationSec)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", m.RunID, err)
	}
	return nil
}

// WriteYearly inserts per-iteration rows in one transaction.
func (s *SQLiteSink) WriteYearly(ctx context.Context, runID string, rows []YearlyRecord) error {
	return s.insertAll(ctx, "yearly",
		`INSERT INTO yearly (run_id, iter, year, kind, name, biomass, relsize, pr, indivs, ppt, temp, disturbance)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		len(rows), func(stmt *sql.Stmt, i int) error {
			r := rows[i]
			_, err := stmt.ExecContext(ctx, runID, r.Iter, r.Year, r.Kind, r.Name,
				r.Biomass, r.RelSize, r.PR, r.Indivs, r.PPT, r.Temp, r.Disturb)
			return err
		})
}

// WriteSummary inserts aggregate rows in one transaction.
func (s *SQLiteSink) WriteSummary(ctx context.Context, runID string, rows []SummaryRecord) error {
	return s.insertAll(ctx, "summary",
		`INSERT INTO summary (run_id, year, kind, name, biomass_mean, biomass_std, biomass_p10, biomass_p90,
			relsize_mean, pr_mean, indivs_mean, ppt_mean, temp_mean)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		len(rows), func(stmt *sql.Stmt, i int) error {
			r := rows[i]
			_, err := stmt.ExecContext(ctx, runID, r.Year, r.Kind, r.Name,
				r.BiomassMean, r.BiomassStd, r.BiomassP10, r.BiomassP90,
				r.RelSizeMean, r.PRMean, r.IndivsMean, r.PPTMean, r.TempMean)
			return err
		})
}

func (s *SQLiteSink) insertAll(ctx context.Context, table, query string, n int, exec func(*sql.Stmt, int) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning %s insert: %w", table, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing %s insert: %w", table, err)
	}
	defer stmt.Close()

	for i := range n {
		if err := exec(stmt, i); err != nil {
			return fmt.Errorf("inserting %s row %d: %w", table, i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing %s rows: %w", table, err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteSink) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}
