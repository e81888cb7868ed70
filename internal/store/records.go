package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Scope is the (project, file, session) context a record was created in.
type Scope struct {
	ProjectID string `json:"project_id"`
	FilePath  string `json:"file_path,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// MemoryRecord is the single stored entity.
type MemoryRecord struct {
	Seq         int64
	ID          string
	Type        RecordType
	Payload     Payload
	Scope       Scope
	CreatedAt   int64 // unix millis, immutable after insert
	AccessCount int
	LastAccess  *int64

	// Preference lifecycle fields. Meaningful only for Type == RecordPreference.
	PreferenceKey string
	IsActive      bool
	Supersedes    string
	SupersededBy  string
}

const recordColumns = `seq, id, record_type, payload, project_id, file_path, session_id,
	created_at, access_count, last_access, preference_key, is_active, supersedes, superseded_by`

// Put inserts a new record and returns its assigned ID. CreatedAt defaults
// to now when unset; the row's seq provides insertion order for tie-breaks
// between records with identical timestamps.
func (db *DB) Put(rec *MemoryRecord) (string, error) {
	if !rec.Type.Valid() {
		return "", fmt.Errorf("put record: invalid record type %q", rec.Type)
	}
	if rec.Scope.ProjectID == "" {
		return "", fmt.Errorf("put record: project_id required")
	}
	if rec.Payload == nil {
		return "", fmt.Errorf("put record: payload required")
	}

	payload, err := MarshalPayload(rec.Payload)
	if err != nil {
		return "", fmt.Errorf("put record: %w", err)
	}

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt == 0 {
		rec.CreatedAt = time.Now().UnixMilli()
	}

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	result, err := db.Exec(`
		INSERT INTO memories (id, record_type, payload, project_id, file_path, session_id,
			created_at, access_count, preference_key, is_active, supersedes, superseded_by)
		VALUES (?, ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), ?, 0, NULLIF(?, ''), ?, NULLIF(?, ''), NULLIF(?, ''))
	`, rec.ID, string(rec.Type), payload, rec.Scope.ProjectID, rec.Scope.FilePath, rec.Scope.SessionID,
		rec.CreatedAt, rec.PreferenceKey, boolToInt(rec.IsActive), rec.Supersedes, rec.SupersededBy)
	if err != nil {
		return "", fmt.Errorf("put record: %w", err)
	}

	seq, _ := result.LastInsertId()
	rec.Seq = seq
	return rec.ID, nil
}

// GetByID returns a record by its ID, or nil if not found.
func (db *DB) GetByID(id string) (*MemoryRecord, error) {
	row := db.QueryRow(`SELECT `+recordColumns+` FROM memories WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record by id: %w", err)
	}
	return rec, nil
}

// GetByPreferenceKey returns all records (active and superseded) sharing a
// preference key within a project, ordered by createdAt ascending with
// insertion order breaking timestamp ties.
func (db *DB) GetByPreferenceKey(projectID, key string) ([]MemoryRecord, error) {
	rows, err := db.Query(`
		SELECT `+recordColumns+` FROM memories
		WHERE project_id = ? AND preference_key = ? AND record_type = 'preference'
		ORDER BY created_at ASC, seq ASC
	`, projectID, key)
	if err != nil {
		return nil, fmt.Errorf("get by preference key: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ActivePreference returns the current active record for a preference key,
// or nil if none. The partial unique index guarantees at most one row.
func (db *DB) ActivePreference(projectID, key string) (*MemoryRecord, error) {
	row := db.QueryRow(`
		SELECT `+recordColumns+` FROM memories
		WHERE project_id = ? AND preference_key = ? AND record_type = 'preference' AND is_active = 1
	`, projectID, key)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("active preference: %w", err)
	}
	return rec, nil
}

// ActivePreferences returns all currently-active preference records for a
// project, ordered by preference key.
func (db *DB) ActivePreferences(projectID string) ([]MemoryRecord, error) {
	rows, err := db.Query(`
		SELECT `+recordColumns+` FROM memories
		WHERE project_id = ? AND record_type = 'preference' AND is_active = 1
		ORDER BY preference_key
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("active preferences: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// QueryCandidates returns records in scope whose payload contains any of
// the given keywords. This is the coarse pre-filter for retrieval, not the
// final ranking: an empty keyword set matches nothing (active preferences
// are fetched separately and unconditionally). A nil type list means all
// types are eligible.
func (db *DB) QueryCandidates(scope Scope, keywords []string, types []RecordType) ([]MemoryRecord, error) {
	if len(keywords) == 0 {
		return nil, nil
	}

	var where []string
	var args []any

	where = append(where, "project_id = ?")
	args = append(args, scope.ProjectID)

	var kwClauses []string
	for _, kw := range keywords {
		kwClauses = append(kwClauses, `lower(payload) LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(kw))
	}
	where = append(where, "("+strings.Join(kwClauses, " OR ")+")")

	if len(types) > 0 {
		ph := make([]string, len(types))
		for i, t := range types {
			ph[i] = "?"
			args = append(args, string(t))
		}
		where = append(where, "record_type IN ("+strings.Join(ph, ",")+")")
	}

	rows, err := db.Query(`
		SELECT `+recordColumns+` FROM memories
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY created_at DESC, seq DESC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// MarkSuperseded atomically deactivates the old preference record and
// activates the new one, linking the chain in both directions. Used only
// by the lifecycle manager.
func (db *DB) MarkSuperseded(oldID, newID string) error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("mark superseded: begin: %w", err)
	}

	if _, err := tx.Exec(`
		UPDATE memories SET is_active = 0, superseded_by = ? WHERE id = ?
	`, newID, oldID); err != nil {
		tx.Rollback()
		return fmt.Errorf("mark superseded: deactivate %s: %w", oldID, err)
	}

	if _, err := tx.Exec(`
		UPDATE memories SET is_active = 1, supersedes = ? WHERE id = ?
	`, oldID, newID); err != nil {
		tx.Rollback()
		return fmt.Errorf("mark superseded: activate %s: %w", newID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("mark superseded: commit: %w", err)
	}
	return nil
}

// SetActive sets the is_active flag on a record. Used only by the
// lifecycle manager.
func (db *DB) SetActive(id string, active bool) error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	_, err := db.Exec(`UPDATE memories SET is_active = ? WHERE id = ?`, boolToInt(active), id)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	return nil
}

// Touch increments accessCount and sets lastAccessedAt. Called only for
// records actually returned to a caller, so internal scans don't inflate
// frequency boosting.
func (db *DB) Touch(id string, now int64) error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	_, err := db.Exec(`
		UPDATE memories SET access_count = access_count + 1, last_access = ? WHERE id = ?
	`, now, id)
	if err != nil {
		return fmt.Errorf("touch record: %w", err)
	}
	return nil
}

// CountRecords returns the total number of stored records.
func (db *DB) CountRecords() (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM memories").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return count, nil
}

// CountByType returns the number of records of a given type.
func (db *DB) CountByType(t RecordType) (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM memories WHERE record_type = ?", string(t)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count by type: %w", err)
	}
	return count, nil
}

// AllRecords returns every stored record, oldest first. Used by the
// compaction manager's dedup scan.
func (db *DB) AllRecords() ([]MemoryRecord, error) {
	rows, err := db.Query(`SELECT ` + recordColumns + ` FROM memories ORDER BY created_at ASC, seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("all records: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// RecentRecords returns the newest records for a project, optionally
// filtered by type. Used for context injection at session start.
func (db *DB) RecentRecords(projectID string, types []RecordType, limit int) ([]MemoryRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM memories WHERE 1=1`
	var args []interface{}

	if projectID != "" {
		query += ` AND project_id = ?`
		args = append(args, projectID)
	}
	if len(types) > 0 {
		placeholders := make([]string, len(types))
		for i, t := range types {
			placeholders[i] = "?"
			args = append(args, string(t))
		}
		query += ` AND record_type IN (` + strings.Join(placeholders, ",") + `)`
	}
	query += ` ORDER BY created_at DESC, seq DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("recent records: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// RecordsBeyondRetention returns the IDs of records of the given type
// older than the newest keep records.
func (db *DB) RecordsBeyondRetention(t RecordType, keep int) ([]string, error) {
	rows, err := db.Query(`
		SELECT id FROM memories WHERE record_type = ?
		ORDER BY created_at DESC, seq DESC
		LIMIT -1 OFFSET ?
	`, string(t), keep)
	if err != nil {
		return nil, fmt.Errorf("records beyond retention: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan retention id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteRecords physically removes the given records in one transaction.
// Returns the number of rows deleted.
func (db *DB) DeleteRecords(ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("delete records: begin: %w", err)
	}

	deleted := 0
	for _, id := range ids {
		result, err := tx.Exec("DELETE FROM memories WHERE id = ?", id)
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("delete record %s: %w", id, err)
		}
		n, _ := result.RowsAffected()
		deleted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("delete records: commit: %w", err)
	}
	return deleted, nil
}

// SetAccessCount overwrites a record's access count. Used by compaction to
// carry the maximum observed count forward onto the surviving duplicate.
func (db *DB) SetAccessCount(id string, count int) error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	_, err := db.Exec(`UPDATE memories SET access_count = ? WHERE id = ?`, count, id)
	if err != nil {
		return fmt.Errorf("set access count: %w", err)
	}
	return nil
}

// BumpCorrectionFrequency increments the frequency on an existing
// correction pattern matching (original, corrected) within a project.
// Returns false if no such pattern exists yet.
func (db *DB) BumpCorrectionFrequency(projectID, original, corrected string) (bool, error) {
	rows, err := db.Query(`
		SELECT `+recordColumns+` FROM memories
		WHERE project_id = ? AND record_type = 'correction_pattern'
	`, projectID)
	if err != nil {
		return false, fmt.Errorf("bump correction: %w", err)
	}
	recs, err := scanRecords(rows)
	rows.Close()
	if err != nil {
		return false, fmt.Errorf("bump correction: %w", err)
	}

	for _, rec := range recs {
		p, ok := rec.Payload.(CorrectionPayload)
		if !ok || p.OriginalForm != original || p.CorrectedForm != corrected {
			continue
		}
		p.Frequency++
		payload, err := MarshalPayload(p)
		if err != nil {
			return false, fmt.Errorf("bump correction: %w", err)
		}

		db.writeMu.Lock()
		_, err = db.Exec(`UPDATE memories SET payload = ? WHERE id = ?`, payload, rec.ID)
		db.writeMu.Unlock()
		if err != nil {
			return false, fmt.Errorf("bump correction %s: %w", rec.ID, err)
		}
		return true, nil
	}
	return false, nil
}

// likePattern builds a case-insensitive LIKE pattern for a keyword,
// escaping SQL wildcards in the keyword itself.
func likePattern(kw string) string {
	kw = strings.ToLower(kw)
	kw = strings.ReplaceAll(kw, `\`, `\\`)
	kw = strings.ReplaceAll(kw, `%`, `\%`)
	kw = strings.ReplaceAll(kw, `_`, `\_`)
	return "%" + kw + "%"
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// scanner abstracts sql.Row and sql.Rows for record scanning.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*MemoryRecord, error) {
	var rec MemoryRecord
	var recordType, payload string
	var filePath, sessionID, prefKey, supersedes, supersededBy sql.NullString
	var lastAccess sql.NullInt64
	var isActive int

	err := s.Scan(&rec.Seq, &rec.ID, &recordType, &payload,
		&rec.Scope.ProjectID, &filePath, &sessionID,
		&rec.CreatedAt, &rec.AccessCount, &lastAccess,
		&prefKey, &isActive, &supersedes, &supersededBy)
	if err != nil {
		return nil, err
	}

	rec.Type = RecordType(recordType)
	rec.Scope.FilePath = filePath.String
	rec.Scope.SessionID = sessionID.String
	rec.PreferenceKey = prefKey.String
	rec.IsActive = isActive != 0
	rec.Supersedes = supersedes.String
	rec.SupersededBy = supersededBy.String
	if lastAccess.Valid {
		rec.LastAccess = &lastAccess.Int64
	}

	rec.Payload, err = UnmarshalPayload(rec.Type, payload)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func scanRecords(rows *sql.Rows) ([]MemoryRecord, error) {
	var recs []MemoryRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}
