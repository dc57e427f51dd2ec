package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/sakif/vaccine-portal/internal/apperror"
	"github.com/sakif/vaccine-portal/internal/model"
)

const userColumns = `email, password_hash, first_name, last_name, date_of_birth,
	gender, phone, address, role, created_at, updated_at`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u                    model.User
		gender, role         string
		createdAt, updatedAt string
	)
	err := row.Scan(
		&u.Email,
		&u.PasswordHash,
		&u.FirstName,
		&u.LastName,
		&u.DateOfBirth,
		&gender,
		&u.Phone,
		&u.Address,
		&role,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.Gender = model.Gender(gender)
	u.Role = model.Role(role)
	u.CreatedAt = parseTime(createdAt)
	u.UpdatedAt = parseTime(updatedAt)
	return &u, nil
}

// CreateUser writes the profile with INSERT OR REPLACE, matching the
// unconditional PutItem of the DynamoDB store. Uniqueness is the service's
// job (it probes with GetUserByEmail first).
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	now := db.now()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Role == "" {
		user.Role = model.RoleUser
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.DateOfBirth,
		string(user.Gender),
		user.Phone,
		user.Address,
		string(user.Role),
		formatTime(now),
		formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting user %s: %w", user.Email, err)
	}
	return nil
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", email, err)
	}
	return u, nil
}

// UpdateUser builds the SET clause from a fixed column list. Column names
// never come from the caller, only the values do.
func (db *DB) UpdateUser(ctx context.Context, email string, update model.ProfileUpdate) (*model.User, error) {
	sets := []string{"updated_at = ?"}
	args := []any{formatTime(db.now())}

	add := func(column string, value *string) {
		if value != nil {
			sets = append(sets, column+" = ?")
			args = append(args, *value)
		}
	}
	add("first_name", update.FirstName)
	add("last_name", update.LastName)
	add("date_of_birth", update.DateOfBirth)
	if update.Gender != nil {
		g := string(*update.Gender)
		add("gender", &g)
	}
	add("phone", update.Phone)
	add("address", update.Address)

	args = append(args, email)
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET `+strings.Join(sets, ", ")+` WHERE email = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: updating user %s: %w", email, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return nil, apperror.NotFound("User")
	}

	u, err := db.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperror.NotFound("User")
	}
	return u, nil
}

func (db *DB) DeleteUser(ctx context.Context, email string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM users WHERE email = ?`, email); err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", email, err)
	}
	return nil
}

func (db *DB) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE role != ? ORDER BY created_at`,
		string(model.RoleAdmin))
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating user rows: %w", err)
	}
	return users, nil
}
