package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sakif/vaccine-portal/internal/model"
)

func (db *DB) CreateOAuthLink(ctx context.Context, link *model.OAuthLink) error {
	now := db.now()
	link.CreatedAt = now
	link.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO oauth_links
		 (email, provider, provider_id, first_name, last_name, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		link.Email,
		string(link.Provider),
		link.ProviderID,
		link.FirstName,
		link.LastName,
		formatTime(now),
		formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting %s link for %s: %w", link.Provider, link.Email, err)
	}
	return nil
}

func (db *DB) GetOAuthLink(ctx context.Context, email string, provider model.Provider) (*model.OAuthLink, error) {
	var (
		l                    model.OAuthLink
		p                    string
		createdAt, updatedAt string
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT email, provider, provider_id, first_name, last_name, created_at, updated_at
		 FROM oauth_links WHERE email = ? AND provider = ?`,
		email, string(provider),
	).Scan(&l.Email, &p, &l.ProviderID, &l.FirstName, &l.LastName, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite: getting %s link for %s: %w", provider, email, err)
	}

	l.Provider = model.Provider(p)
	l.CreatedAt = parseTime(createdAt)
	l.UpdatedAt = parseTime(updatedAt)
	return &l, nil
}
