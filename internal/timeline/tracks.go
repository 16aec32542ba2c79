package timeline

import (
	"context"
	"database/sql"
	"time"
)

// TrackStore owns track records within a sequence: ordering, type and the
// enabled/locked/height flags.
type TrackStore struct {
	db DBTX
}

func NewTrackStore(db DBTX) *TrackStore {
	return &TrackStore{db: db}
}

const trackColumns = "id, sequence_id, track_type, track_index, name, enabled, locked, height, created_at"

func validateTrack(t *Track) error {
	if t.SequenceID == "" {
		return &ValidationError{Field: "sequence_id", Reason: "required"}
	}
	if !t.Type.Valid() {
		return &ValidationError{Field: "track_type", Reason: "must be video, audio or subtitle"}
	}
	if t.Index < 0 && t.Index != AutoIndex {
		return &ValidationError{Field: "track_index", Reason: "must not be negative"}
	}
	if t.Height <= 0 {
		return &ValidationError{Field: "height", Reason: "must be positive"}
	}
	return nil
}

// Create persists a new track. With Index set to AutoIndex the next free
// index for the track's (sequence, type) pair is assigned; video and audio
// tracks index independently.
func (st *TrackStore) Create(ctx context.Context, t *Track) error {
	if t.Height == 0 {
		t.Height = DefaultTrackHeight
	}
	if err := validateTrack(t); err != nil {
		return err
	}

	if t.Index == AutoIndex {
		next, err := st.NextIndex(ctx, t.SequenceID, t.Type)
		if err != nil {
			return err
		}
		t.Index = next
	}

	if t.ID == "" {
		t.ID = NewID()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}

	_, err := st.db.ExecContext(ctx, `
		INSERT INTO tracks (`+trackColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.SequenceID, string(t.Type), t.Index, t.Name,
		boolToInt(t.Enabled), boolToInt(t.Locked), t.Height,
		t.CreatedAt.Format(time.RFC3339))
	return err
}

// NextIndex returns max(existing indices for sequence+type) + 1, starting at
// 0 when the pair has no tracks yet.
func (st *TrackStore) NextIndex(ctx context.Context, sequenceID string, trackType TrackType) (int, error) {
	var next int
	err := st.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(track_index) + 1, 0)
		FROM tracks WHERE sequence_id = ? AND track_type = ?
	`, sequenceID, string(trackType)).Scan(&next)
	return next, err
}

func (st *TrackStore) Get(ctx context.Context, id string) (*Track, error) {
	row := st.db.QueryRowContext(ctx, `
		SELECT `+trackColumns+` FROM tracks WHERE id = ?
	`, id)
	return scanTrack(row.Scan)
}

func (st *TrackStore) ListBySequence(ctx context.Context, sequenceID string) ([]*Track, error) {
	rows, err := st.db.QueryContext(ctx, `
		SELECT `+trackColumns+` FROM tracks
		WHERE sequence_id = ? ORDER BY track_type, track_index
	`, sequenceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tracks []*Track
	for rows.Next() {
		t, err := scanTrack(rows.Scan)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

func scanTrack(scan func(dest ...any) error) (*Track, error) {
	var t Track
	var enabled, locked int
	var createdAt string

	err := scan(&t.ID, &t.SequenceID, &t.Type, &t.Index, &t.Name,
		&enabled, &locked, &t.Height, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	t.Enabled = enabled == 1
	t.Locked = locked == 1
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &t, nil
}

// TrackUpdate is a partial update; nil fields are left unchanged. Flag
// updates never touch the track's clips.
type TrackUpdate struct {
	Name    *string
	Enabled *bool
	Locked  *bool
	Height  *int
}

func (st *TrackStore) Update(ctx context.Context, id string, upd TrackUpdate) (*Track, error) {
	t, err := st.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, &NotFoundError{Entity: "track", ID: id}
	}

	if upd.Name != nil {
		t.Name = *upd.Name
	}
	if upd.Enabled != nil {
		t.Enabled = *upd.Enabled
	}
	if upd.Locked != nil {
		t.Locked = *upd.Locked
	}
	if upd.Height != nil {
		t.Height = *upd.Height
	}

	if err := validateTrack(t); err != nil {
		return nil, err
	}

	_, err = st.db.ExecContext(ctx, `
		UPDATE tracks SET name = ?, enabled = ?, locked = ?, height = ?
		WHERE id = ?
	`, t.Name, boolToInt(t.Enabled), boolToInt(t.Locked), t.Height, id)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Reorder reassigns track_index = position in orderedIDs, scoped to the
// sequence. The input is deliberately not validated as a permutation of the
// sequence's tracks: ids belonging to other sequences are ignored and
// omitted tracks keep their old index.
func (st *TrackStore) Reorder(ctx context.Context, sequenceID string, orderedIDs []string) error {
	for i, id := range orderedIDs {
		_, err := st.db.ExecContext(ctx, `
			UPDATE tracks SET track_index = ? WHERE id = ? AND sequence_id = ?
		`, i, id, sequenceID)
		if err != nil {
			return err
		}
	}
	return nil
}

func (st *TrackStore) Delete(ctx context.Context, id string) error {
	res, err := st.db.ExecContext(ctx, "DELETE FROM tracks WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &NotFoundError{Entity: "track", ID: id}
	}
	return nil
}
