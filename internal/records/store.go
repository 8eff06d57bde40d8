package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskwise-ai/taskwise/internal/db"
	"github.com/taskwise-ai/taskwise/internal/vectordb"
)

// ErrNotFound is returned when a record does not exist or belongs to
// another user.
var ErrNotFound = errors.New("record not found")

// Store is the data-store contract the reasoning core executes against.
// No transactions are assumed across multiple records: bulk operations
// apply record by record.
type Store interface {
	Create(ctx context.Context, r Record) (*Record, error)
	Get(ctx context.Context, userID, id string) (*Record, error)
	Find(ctx context.Context, f Filter, opts FindOptions) ([]Record, error)
	UpdateByID(ctx context.Context, userID, id string, p Patch) (*Record, error)
	SoftDelete(ctx context.Context, userID, id string) (*Record, error)
	Search(ctx context.Context, userID, query string, limit int) ([]Record, error)
}

// SQLStore implements Store over SQLite, with an optional vector index
// for semantic search fallback.
type SQLStore struct {
	db    *db.DB
	index vectordb.VectorStore // may be nil
}

// NewSQLStore creates a record store. index may be nil, in which case
// Search uses keyword matching only.
func NewSQLStore(database *db.DB, index vectordb.VectorStore) *SQLStore {
	return &SQLStore{db: database, index: index}
}

const recordColumns = `id, user_id, title, description, type, status, priority, source, due, metadata, created_at, updated_at`

func (s *SQLStore) Create(ctx context.Context, r Record) (*Record, error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Type == "" {
		r.Type = TypeTask
	}
	if r.Status == "" {
		r.Status = StatusPending
	}
	if r.Priority == "" {
		r.Priority = PriorityMedium
	}
	if r.Source == "" {
		r.Source = "native"
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	meta, err := marshalMetadata(r.Metadata)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO records (`+recordColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.Title, r.Description, r.Type, r.Status, r.Priority, r.Source,
		nullableTime(r.Due), meta, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting record: %w", err)
	}

	// Index for semantic search, best effort: a failed embedding call
	// must not fail the create.
	if s.index != nil {
		_ = s.index.AddDocuments(ctx, []vectordb.Document{{
			ID:      r.ID,
			Content: r.Title + "\n" + r.Description,
			Metadata: vectordb.DocumentMetadata{
				UserID: r.UserID,
				Source: r.Source,
				Type:   string(r.Type),
			},
		}})
	}

	return &r, nil
}

func (s *SQLStore) Get(ctx context.Context, userID, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE id = ? AND user_id = ?`, id, userID)
	r, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting record: %w", err)
	}
	return r, nil
}

func (s *SQLStore) Find(ctx context.Context, f Filter, opts FindOptions) ([]Record, error) {
	if f.UserID == "" {
		return nil, fmt.Errorf("filter requires a user id")
	}

	query := `SELECT ` + recordColumns + ` FROM records WHERE user_id = ?`
	args := []interface{}{f.UserID}

	if !f.IncludeDeleted {
		query += ` AND status != 'deleted'`
	}
	if f.Type != "" {
		query += ` AND type = ?`
		args = append(args, f.Type)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	}
	if f.Source != "" {
		query += ` AND source = ?`
		args = append(args, f.Source)
	}
	if f.TitleContains != "" {
		query += ` AND (title LIKE ? OR description LIKE ?)`
		pattern := "%" + f.TitleContains + "%"
		args = append(args, pattern, pattern)
	}
	if f.DueBefore != nil {
		query += ` AND due IS NOT NULL AND due <= ?`
		args = append(args, f.DueBefore.UTC())
	}
	if f.DueAfter != nil {
		query += ` AND due IS NOT NULL AND due >= ?`
		args = append(args, f.DueAfter.UTC())
	}

	query += ` ORDER BY ` + sortClause(opts)

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var result []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		result = append(result, *r)
	}
	return result, rows.Err()
}

func (s *SQLStore) UpdateByID(ctx context.Context, userID, id string, p Patch) (*Record, error) {
	if p.IsEmpty() {
		return s.Get(ctx, userID, id)
	}

	var sets []string
	var args []interface{}

	if p.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *p.Title)
	}
	if p.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *p.Description)
	}
	if p.Type != nil {
		sets = append(sets, "type = ?")
		args = append(args, *p.Type)
	}
	if p.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *p.Status)
	}
	if p.Priority != nil {
		sets = append(sets, "priority = ?")
		args = append(args, *p.Priority)
	}
	if p.ClearDue {
		sets = append(sets, "due = NULL")
	} else if p.Due != nil {
		sets = append(sets, "due = ?")
		args = append(args, p.Due.UTC())
	}
	if p.Metadata != nil {
		meta, err := marshalMetadata(p.Metadata)
		if err != nil {
			return nil, err
		}
		sets = append(sets, "metadata = ?")
		args = append(args, meta)
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC())

	args = append(args, id, userID)
	res, err := s.db.ExecContext(ctx,
		`UPDATE records SET `+strings.Join(sets, ", ")+` WHERE id = ? AND user_id = ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("updating record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("updating record: %w", err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}

	updated, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	// Keep the semantic index in step with text changes, best effort.
	if s.index != nil && (p.Title != nil || p.Description != nil) {
		_ = s.index.Delete(ctx, id)
		_ = s.index.AddDocuments(ctx, []vectordb.Document{{
			ID:      updated.ID,
			Content: updated.Title + "\n" + updated.Description,
			Metadata: vectordb.DocumentMetadata{
				UserID: updated.UserID,
				Source: updated.Source,
				Type:   string(updated.Type),
			},
		}})
	}

	return updated, nil
}

func (s *SQLStore) SoftDelete(ctx context.Context, userID, id string) (*Record, error) {
	deleted := StatusDeleted
	r, err := s.UpdateByID(ctx, userID, id, Patch{Status: &deleted})
	if err != nil {
		return nil, err
	}
	if s.index != nil {
		_ = s.index.Delete(ctx, id)
	}
	return r, nil
}

// Search finds records by keyword match on title/description; when the
// keyword match comes back empty and a vector index is configured, it
// falls back to semantic search.
func (s *SQLStore) Search(ctx context.Context, userID, query string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}

	found, err := s.Find(ctx, Filter{UserID: userID, TitleContains: query},
		FindOptions{SortBy: "updated_at", Desc: true, Limit: limit})
	if err != nil {
		return nil, err
	}
	if len(found) > 0 || s.index == nil {
		return found, nil
	}

	results, err := s.index.Search(ctx, query, limit, &vectordb.SearchFilter{UserID: userID})
	if err != nil {
		// Semantic fallback is optional; an index failure degrades to
		// the (empty) keyword result.
		return found, nil
	}

	var out []Record
	for _, res := range results {
		r, err := s.Get(ctx, userID, res.ID)
		if err != nil {
			continue // index may lag behind deletes
		}
		if r.Status == StatusDeleted {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(s scanner) (*Record, error) {
	var r Record
	var due sql.NullTime
	var meta string
	err := s.Scan(&r.ID, &r.UserID, &r.Title, &r.Description, &r.Type, &r.Status,
		&r.Priority, &r.Source, &due, &meta, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if due.Valid {
		t := due.Time
		r.Due = &t
	}
	if meta != "" && meta != "{}" {
		if err := json.Unmarshal([]byte(meta), &r.Metadata); err != nil {
			return nil, fmt.Errorf("decoding record metadata: %w", err)
		}
	}
	return &r, nil
}

func marshalMetadata(m map[string]string) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encoding record metadata: %w", err)
	}
	return string(b), nil
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}

var sortColumns = map[string]string{
	"due":        "due",
	"priority":   "priority",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

func sortClause(opts FindOptions) string {
	col, ok := sortColumns[opts.SortBy]
	if !ok {
		col = "created_at"
	}
	dir := "ASC"
	if opts.Desc {
		dir = "DESC"
	}
	return col + " " + dir
}
