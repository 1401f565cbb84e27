package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/xid"

	"github.com/sakif/treatment-companion/internal/apperror"
	"github.com/sakif/treatment-companion/internal/model"
	"github.com/sakif/treatment-companion/internal/repository"
)

// compile-time check that *UserDB implements repository.UserRepository
var _ repository.UserRepository = (*UserDB)(nil)

// UserDB is the users table view of a DB.
type UserDB struct {
	conn *sql.DB
}

// Users returns the user repository backed by db.
func (db *DB) Users() *UserDB {
	return &UserDB{conn: db.conn}
}

const userColumns = `id, email, first_name, last_name, profile_image_url,
	age, gender, cancer_type, phone, created_at, updated_at`

// Upsert inserts a user or refreshes an existing one keyed by id.
//
// On conflict only the supplied (non-nil) fields overwrite the stored
// values; COALESCE keeps the rest. updated_at always moves forward and
// created_at never changes. The row is read back so the caller sees the
// canonical record, including fields it did not supply.
func (u *UserDB) Upsert(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = xid.New().String()
	}
	ts := now()

	_, err := u.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			email             = COALESCE(excluded.email, users.email),
			first_name        = COALESCE(excluded.first_name, users.first_name),
			last_name         = COALESCE(excluded.last_name, users.last_name),
			profile_image_url = COALESCE(excluded.profile_image_url, users.profile_image_url),
			age               = COALESCE(excluded.age, users.age),
			gender            = COALESCE(excluded.gender, users.gender),
			cancer_type       = COALESCE(excluded.cancer_type, users.cancer_type),
			phone             = COALESCE(excluded.phone, users.phone),
			updated_at        = excluded.updated_at`,
		user.ID,
		user.Email,
		user.FirstName,
		user.LastName,
		user.ProfileImageURL,
		user.Age,
		user.Gender,
		user.CancerType,
		user.Phone,
		ts,
		ts,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", "email already belongs to another account")
		}
		return fmt.Errorf("sqlite: upserting user %s: %w", user.ID, err)
	}

	stored, err := u.GetUserByID(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("sqlite: reading back user %s: %w", user.ID, err)
	}
	*user = *stored

	return nil
}

// GetUserByID retrieves a user by id.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (u *UserDB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var usr model.User

	err := u.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`,
		id,
	).Scan(
		&usr.ID,
		&usr.Email,
		&usr.FirstName,
		&usr.LastName,
		&usr.ProfileImageURL,
		&usr.Age,
		&usr.Gender,
		&usr.CancerType,
		&usr.Phone,
		&usr.CreatedAt,
		&usr.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}

	return &usr, nil
}
