// Package media is the engine's boundary to the media-asset catalog. The
// timeline engine only consults existence; ingestion, metadata and thumbnail
// extraction happen elsewhere.
package media

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Asset is the minimal media-asset record the engine can reference.
type Asset struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Kind      string    `json:"kind"`
	Duration  float64   `json:"duration"`
	CreatedAt time.Time `json:"created_at"`
}

type Library struct {
	db *sql.DB
}

func NewLibrary(db *sql.DB) *Library {
	return &Library{db: db}
}

// Exists reports whether the asset id is known. This is the only call the
// timeline engine makes before accepting a clip.
func (l *Library) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := l.db.QueryRowContext(ctx, "SELECT 1 FROM media_assets WHERE id = ?", id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (l *Library) Register(ctx context.Context, a *Asset) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Kind == "" {
		a.Kind = "video"
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO media_assets (id, filename, kind, duration, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, a.ID, a.Filename, a.Kind, a.Duration, a.CreatedAt.Format(time.RFC3339))
	return err
}

func (l *Library) Get(ctx context.Context, id string) (*Asset, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT id, filename, kind, duration, created_at FROM media_assets WHERE id = ?
	`, id)

	var a Asset
	var createdAt string
	err := row.Scan(&a.ID, &a.Filename, &a.Kind, &a.Duration, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &a, nil
}

func (l *Library) List(ctx context.Context) ([]*Asset, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, filename, kind, duration, created_at
		FROM media_assets ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []*Asset
	for rows.Next() {
		var a Asset
		var createdAt string
		if err := rows.Scan(&a.ID, &a.Filename, &a.Kind, &a.Duration, &createdAt); err != nil {
			return nil, err
		}
		a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		assets = append(assets, &a)
	}
	return assets, rows.Err()
}

func (l *Library) Delete(ctx context.Context, id string) error {
	_, err := l.db.ExecContext(ctx, "DELETE FROM media_assets WHERE id = ?", id)
	return err
}
