package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	"cadtoh5m/internal/domain"
	"cadtoh5m/internal/repository"

	_ "modernc.org/sqlite"
)

// Repository implements repository.RunRepository using SQLite
type Repository struct {
	db *sql.DB
}

var _ repository.RunRepository = (*Repository)(nil)

// New creates a new SQLite repository. ":memory:" gives a private
// in-memory database.
func New(dbPath string) (*Repository, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("database path is required")
	}

	dsn := dbPath
	if dbPath != ":memory:" {
		dsn = filepath.Clean(dbPath)
	}
	dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection keeps ":memory:" a single database and serializes writers
	db.SetMaxOpenConns(1)

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at INTEGER,
		finished_at INTEGER,
		status TEXT NOT NULL,
		error TEXT,
		h5m_filename TEXT NOT NULL,
		options JSON,
		entries JSON,
		volume_materials JSON,
		wedge_volumes JSON
	);

	CREATE TABLE IF NOT EXISTS reflectivity (
		run_id TEXT NOT NULL,
		cad_filename TEXT NOT NULL,
		surface_id INTEGER NOT NULL,
		reflector INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (run_id, cad_filename, surface_id),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_reflectivity_file ON reflectivity(cad_filename);
	`

	_, err := r.db.Exec(schema)
	return err
}

// SaveRun inserts or replaces a run. Surface records of succeeded runs are
// stored per CAD file for LatestReflectivity.
func (r *Repository) SaveRun(ctx context.Context, run *domain.Run) error {
	if run.ID == "" {
		return fmt.Errorf("run has no id")
	}
	args, err := runInsertArgs(run)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			started_at = excluded.started_at,
			finished_at = excluded.finished_at,
			status = excluded.status,
			error = excluded.error,
			h5m_filename = excluded.h5m_filename,
			options = excluded.options,
			entries = excluded.entries,
			volume_materials = excluded.volume_materials,
			wedge_volumes = excluded.wedge_volumes
	`, args...)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM reflectivity WHERE run_id = ?`, run.ID); err != nil {
		return fmt.Errorf("failed to clear reflectivity: %w", err)
	}

	if run.Status == domain.RunSucceeded {
		for _, entry := range run.Entries {
			for surfaceID, rec := range entry.SurfaceReflectivity {
				_, err := tx.ExecContext(ctx, `
					INSERT INTO reflectivity (run_id, cad_filename, surface_id, reflector)
					VALUES (?, ?, ?, ?)
				`, run.ID, entry.CADFilename, surfaceID, boolToInt(rec.Reflector))
				if err != nil {
					return fmt.Errorf("failed to save reflectivity of surface %d: %w", surfaceID, err)
				}
			}
		}
	}

	return tx.Commit()
}

// GetRun retrieves a run by id. Returns nil if not found.
func (r *Repository) GetRun(ctx context.Context, id string) (*domain.Run, error) {
	var row runRow
	err := r.db.QueryRowContext(ctx, `
		SELECT `+runColumns+` FROM runs WHERE id = ?
	`, id).Scan(row.scanArgs()...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return row.toDomain()
}

// ListRuns returns the most recent runs first. A limit of zero or less
// returns every run.
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]domain.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		var row runRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

// DeleteRun removes a run and its reflectivity records
func (r *Repository) DeleteRun(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("run %s not found", id)
	}
	return nil
}

// LatestReflectivity returns the surface records stored for cadFilename by
// the most recent succeeded run that recorded any. Returns nil if none.
func (r *Repository) LatestReflectivity(ctx context.Context, cadFilename string) (domain.Reflectivity, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT surface_id, reflector FROM reflectivity
		WHERE cad_filename = ? AND run_id = (
			SELECT runs.id FROM runs
			JOIN reflectivity ON reflectivity.run_id = runs.id
			WHERE reflectivity.cad_filename = ?
			ORDER BY runs.finished_at DESC, runs.started_at DESC
			LIMIT 1
		)
	`, cadFilename, cadFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to query reflectivity: %w", err)
	}
	defer rows.Close()

	var record domain.Reflectivity
	for rows.Next() {
		var (
			surfaceID int
			reflector int
		)
		if err := rows.Scan(&surfaceID, &reflector); err != nil {
			return nil, fmt.Errorf("failed to scan reflectivity: %w", err)
		}
		if record == nil {
			record = make(domain.Reflectivity)
		}
		record[surfaceID] = domain.SurfaceRecord{Reflector: reflector != 0}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reflectivity: %w", err)
	}

	return record, nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
