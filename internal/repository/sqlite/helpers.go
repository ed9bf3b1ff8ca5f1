package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"cadtoh5m/internal/domain"
)

// ============================================================================
// Null Type Conversion Helpers
// ============================================================================

// nullToString safely converts sql.NullString to string
func nullToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// stringToNull safely converts string to sql.NullString
func stringToNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// toMillis stores times as unix milliseconds; the zero time stays NULL
func toMillis(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

// fromMillis reverses toMillis
func fromMillis(ni sql.NullInt64) time.Time {
	if !ni.Valid {
		return time.Time{}
	}
	return time.UnixMilli(ni.Int64).UTC()
}

// ============================================================================
// JSON Marshaling Helpers
// ============================================================================

// unmarshalJSONField safely unmarshals JSON from nullable string into target
func unmarshalJSONField(ns sql.NullString, target interface{}) error {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(ns.String), target)
}

// marshalToNull marshals interface to nullable JSON string
// Returns empty NullString for nil values and empty slices
func marshalToNull(v interface{}) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}

	switch s := v.(type) {
	case []int:
		if len(s) == 0 {
			return sql.NullString{}, nil
		}
	case []domain.VolumeMaterial:
		if len(s) == 0 {
			return sql.NullString{}, nil
		}
	}

	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// ============================================================================
// Schema Evolution Guide
// ============================================================================
//
// To add a new column to the runs table:
// 1. Add field to runRow struct (below)
// 2. Update scanArgs() - APPEND to end to match column order
// 3. Update runColumns constant - APPEND to end
// 4. Update toDomain() to map new field to domain.Run
// 5. Update runInsertArgs() and the INSERT in SaveRun
// 6. Add the column in sqlite.go migrate()
// 7. Update relevant tests
//
// CRITICAL: Column order must match between:
// - runColumns constant
// - scanArgs() return slice
// - All SELECT queries using runColumns

// ============================================================================
// Run Row Scanner
// ============================================================================

// runRow holds all columns from a run query for scanning
type runRow struct {
	ID                  string
	StartedAt           sql.NullInt64
	FinishedAt          sql.NullInt64
	Status              string
	Error               sql.NullString
	H5MFilename         string
	OptionsJSON         sql.NullString
	EntriesJSON         sql.NullString
	VolumeMaterialsJSON sql.NullString
	WedgeVolumesJSON    sql.NullString
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match runColumns order exactly:
// id, started_at, finished_at, status, error, h5m_filename, options,
// entries, volume_materials, wedge_volumes
func (r *runRow) scanArgs() []interface{} {
	return []interface{}{
		&r.ID,                  // 1
		&r.StartedAt,           // 2
		&r.FinishedAt,          // 3
		&r.Status,              // 4
		&r.Error,               // 5
		&r.H5MFilename,         // 6
		&r.OptionsJSON,         // 7
		&r.EntriesJSON,         // 8
		&r.VolumeMaterialsJSON, // 9
		&r.WedgeVolumesJSON,    // 10
	}
}

// toDomain converts the scanned row to a domain.Run
func (r *runRow) toDomain() (*domain.Run, error) {
	run := &domain.Run{
		ID:          r.ID,
		StartedAt:   fromMillis(r.StartedAt),
		FinishedAt:  fromMillis(r.FinishedAt),
		Status:      domain.RunStatus(r.Status),
		Error:       nullToString(r.Error),
		H5MFilename: r.H5MFilename,
	}

	if err := unmarshalJSONField(r.OptionsJSON, &run.Options); err != nil {
		return nil, fmt.Errorf("unmarshal options: %w", err)
	}
	if err := unmarshalJSONField(r.EntriesJSON, &run.Entries); err != nil {
		return nil, fmt.Errorf("unmarshal entries: %w", err)
	}
	if err := unmarshalJSONField(r.VolumeMaterialsJSON, &run.VolumeMaterials); err != nil {
		return nil, fmt.Errorf("unmarshal volume materials: %w", err)
	}
	if err := unmarshalJSONField(r.WedgeVolumesJSON, &run.WedgeVolumes); err != nil {
		return nil, fmt.Errorf("unmarshal wedge volumes: %w", err)
	}

	return run, nil
}

// runColumns returns the SELECT column list for run queries
const runColumns = `id, started_at, finished_at, status, error, h5m_filename,
	options, entries, volume_materials, wedge_volumes`

// ============================================================================
// Run Write Helpers
// ============================================================================

// runInsertArgs prepares arguments for run INSERT/UPSERT
// Returns: id, started_at, finished_at, status, error, h5m_filename,
//          options, entries, volume_materials, wedge_volumes
func runInsertArgs(run *domain.Run) ([]interface{}, error) {
	optionsJSON, err := marshalToNull(run.Options)
	if err != nil {
		return nil, fmt.Errorf("marshal options: %w", err)
	}

	entries := run.Entries
	if entries == nil {
		entries = []domain.GeometryEntry{}
	}
	entriesJSON, err := marshalToNull(entries)
	if err != nil {
		return nil, fmt.Errorf("marshal entries: %w", err)
	}

	materialsJSON, err := marshalToNull(run.VolumeMaterials)
	if err != nil {
		return nil, fmt.Errorf("marshal volume materials: %w", err)
	}

	wedgeJSON, err := marshalToNull(run.WedgeVolumes)
	if err != nil {
		return nil, fmt.Errorf("marshal wedge volumes: %w", err)
	}

	return []interface{}{
		run.ID,
		toMillis(run.StartedAt),
		toMillis(run.FinishedAt),
		string(run.Status),
		stringToNull(run.Error),
		run.H5MFilename,
		optionsJSON,
		entriesJSON,
		materialsJSON,
		wedgeJSON,
	}, nil
}
