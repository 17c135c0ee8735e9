package sqlite

import (
	"database/sql"
	"time"

	"github.com/oocloud/oocloud/internal/domain"
)

const fileColumns = `id, user_id, file_type, physical_name, logical_path,
		size, is_favorite, trashed_at, created_at, updated_at`

func scanFile(row interface {
	Scan(dest ...interface{}) error
}) (*domain.FileRecord, error) {
	rec := &domain.FileRecord{}
	var trashedAt sql.NullTime

	err := row.Scan(
		&rec.ID, &rec.UserID, &rec.Category, &rec.PhysicalName, &rec.LogicalPath,
		&rec.Size, &rec.IsFavorite, &trashedAt, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if trashedAt.Valid {
		t := trashedAt.Time
		rec.TrashedAt = &t
	}

	return rec, nil
}

// GetByID retrieves a file record by its ID
func (s *Store) GetByID(id string) (*domain.FileRecord, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = ?`

	rec, err := scanFile(s.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// GetByName retrieves a file record by its unique (user, category, name) key
func (s *Store) GetByName(userID string, cat domain.Category, physicalName string) (*domain.FileRecord, error) {
	query := `SELECT ` + fileColumns + ` FROM files
		WHERE user_id = ? AND file_type = ? AND physical_name = ?`

	rec, err := scanFile(s.db.QueryRow(query, userID, string(cat), physicalName))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Store) queryFiles(query string, args ...interface{}) ([]*domain.FileRecord, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.FileRecord
	for rows.Next() {
		rec, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ListActive returns all non-trashed records for a user, newest first
func (s *Store) ListActive(userID string) ([]*domain.FileRecord, error) {
	query := `SELECT ` + fileColumns + ` FROM files
		WHERE user_id = ? AND trashed_at IS NULL
		ORDER BY created_at DESC`
	return s.queryFiles(query, userID)
}

// ListTrashed returns all trashed records for a user, newest first
func (s *Store) ListTrashed(userID string) ([]*domain.FileRecord, error) {
	query := `SELECT ` + fileColumns + ` FROM files
		WHERE user_id = ? AND trashed_at IS NOT NULL
		ORDER BY created_at DESC`
	return s.queryFiles(query, userID)
}

// ListByCategory returns every record for (user, category)
func (s *Store) ListByCategory(userID string, cat domain.Category) ([]*domain.FileRecord, error) {
	query := `SELECT ` + fileColumns + ` FROM files
		WHERE user_id = ? AND file_type = ?`
	return s.queryFiles(query, userID, string(cat))
}

// ListTrashedBefore returns records trashed strictly before cutoff
func (s *Store) ListTrashedBefore(userID string, cutoff time.Time) ([]*domain.FileRecord, error) {
	query := `SELECT ` + fileColumns + ` FROM files
		WHERE user_id = ? AND trashed_at IS NOT NULL AND trashed_at < ?`
	return s.queryFiles(query, userID, cutoff)
}

// Create inserts a new file record
func (s *Store) Create(rec *domain.FileRecord) error {
	now := time.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	query := `INSERT INTO files (` + fileColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.Exec(query,
		rec.ID, rec.UserID, string(rec.Category), rec.PhysicalName, rec.LogicalPath,
		rec.Size, rec.IsFavorite, nullableTime(rec.TrashedAt), rec.CreatedAt, rec.UpdatedAt,
	)
	return err
}

// Update persists changes to an existing file record
func (s *Store) Update(rec *domain.FileRecord) error {
	rec.UpdatedAt = time.Now()

	query := `UPDATE files SET
		logical_path = ?, size = ?, is_favorite = ?, trashed_at = ?, updated_at = ?
		WHERE id = ?`

	result, err := s.db.Exec(query,
		rec.LogicalPath, rec.Size, rec.IsFavorite, nullableTime(rec.TrashedAt),
		rec.UpdatedAt, rec.ID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a file record by ID
func (s *Store) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM files WHERE id = ?`, id)
	return err
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
