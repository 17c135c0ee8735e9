package sqlite

import (
	"database/sql"
	"time"

	"github.com/oocloud/oocloud/internal/domain"
)

const userColumns = `id, phone_number, username, full_name, user_folder,
		password_hash, is_active, is_staff, date_joined`

func scanUser(row interface {
	Scan(dest ...interface{}) error
}) (*domain.User, error) {
	u := &domain.User{}
	var username sql.NullString

	err := row.Scan(
		&u.ID, &u.PhoneNumber, &username, &u.FullName, &u.Folder,
		&u.PasswordHash, &u.IsActive, &u.IsStaff, &u.DateJoined,
	)
	if err != nil {
		return nil, err
	}

	if username.Valid {
		u.Username = username.String
	}

	return u, nil
}

// GetUserByID retrieves a user by ID
func (s *Store) GetUserByID(id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`

	u, err := scanUser(s.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetUserByPhone retrieves a user by phone number
func (s *Store) GetUserByPhone(phone string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE phone_number = ?`

	u, err := scanUser(s.db.QueryRow(query, phone))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// ListUsers returns all users
func (s *Store) ListUsers() ([]*domain.User, error) {
	rows, err := s.db.Query(`SELECT ` + userColumns + ` FROM users ORDER BY date_joined`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CreateUser inserts a new user
func (s *Store) CreateUser(u *domain.User) error {
	if u.DateJoined.IsZero() {
		u.DateJoined = time.Now()
	}

	query := `INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.Exec(query,
		u.ID, u.PhoneNumber, nullableString(u.Username), u.FullName, u.Folder,
		u.PasswordHash, u.IsActive, u.IsStaff, u.DateJoined,
	)
	return err
}

// UpdateUser persists changes to an existing user
func (s *Store) UpdateUser(u *domain.User) error {
	query := `UPDATE users SET
		username = ?, full_name = ?, user_folder = ?, password_hash = ?,
		is_active = ?, is_staff = ?
		WHERE id = ?`

	result, err := s.db.Exec(query,
		nullableString(u.Username), u.FullName, u.Folder, u.PasswordHash,
		u.IsActive, u.IsStaff, u.ID,
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

// CreateOTP inserts a new one-time code
func (s *Store) CreateOTP(o *domain.OTP) error {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}

	query := `INSERT INTO otps (user_id, code, created_at, expires_at, is_used)
		VALUES (?, ?, ?, ?, ?)`

	result, err := s.db.Exec(query, o.UserID, o.Code, o.CreatedAt, o.ExpiresAt, o.Used)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = id
	return nil
}

// GetOTP retrieves the newest matching code for a user
func (s *Store) GetOTP(userID, code string) (*domain.OTP, error) {
	query := `SELECT id, user_id, code, created_at, expires_at, is_used
		FROM otps
		WHERE user_id = ? AND code = ?
		ORDER BY created_at DESC
		LIMIT 1`

	o := &domain.OTP{}
	err := s.db.QueryRow(query, userID, code).Scan(
		&o.ID, &o.UserID, &o.Code, &o.CreatedAt, &o.ExpiresAt, &o.Used,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

// MarkOTPUsed flags a code as consumed
func (s *Store) MarkOTPUsed(id int64) error {
	_, err := s.db.Exec(`UPDATE otps SET is_used = TRUE WHERE id = ?`, id)
	return err
}

// DeleteExpiredOTPs removes used codes and codes that expired before cutoff.
func (s *Store) DeleteExpiredOTPs(cutoff time.Time) (int, error) {
	res, err := s.db.Exec(`DELETE FROM otps WHERE is_used = TRUE OR expires_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
