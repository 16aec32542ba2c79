package timeline

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

// SequenceStore owns sequence records and the derived duration.
type SequenceStore struct {
	db DBTX
}

func NewSequenceStore(db DBTX) *SequenceStore {
	return &SequenceStore{db: db}
}

const sequenceColumns = "id, project_id, name, duration, framerate, resolution, created_by, settings_json, created_at"

func validateSequence(s *Sequence) error {
	if s.ProjectID == "" {
		return &ValidationError{Field: "project_id", Reason: "required"}
	}
	if s.Name == "" {
		return &ValidationError{Field: "name", Reason: "required"}
	}
	if s.Framerate <= 0 {
		return &ValidationError{Field: "framerate", Reason: "must be positive"}
	}
	if !ValidResolution(s.Resolution) {
		return &ValidationError{Field: "resolution", Reason: "must match WIDTHxHEIGHT"}
	}
	if s.Duration < 0 {
		return &ValidationError{Field: "duration", Reason: "must not be negative"}
	}
	return nil
}

// Create persists sequence metadata. Duration defaults to the caller-supplied
// hint; it is authoritative only after the first recompute.
func (st *SequenceStore) Create(ctx context.Context, s *Sequence) error {
	if err := validateSequence(s); err != nil {
		return err
	}

	if s.ID == "" {
		s.ID = NewID()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	if s.Settings == nil {
		s.Settings = map[string]string{}
	}

	settings, err := json.Marshal(s.Settings)
	if err != nil {
		return err
	}

	_, err = st.db.ExecContext(ctx, `
		INSERT INTO sequences (`+sequenceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.ProjectID, s.Name, s.Duration, s.Framerate, s.Resolution,
		nullString(s.CreatedBy), string(settings), s.CreatedAt.Format(time.RFC3339))
	return err
}

func (st *SequenceStore) Get(ctx context.Context, id string) (*Sequence, error) {
	row := st.db.QueryRowContext(ctx, `
		SELECT `+sequenceColumns+` FROM sequences WHERE id = ?
	`, id)
	return scanSequence(row.Scan)
}

func (st *SequenceStore) ListByProject(ctx context.Context, projectID string) ([]*Sequence, error) {
	rows, err := st.db.QueryContext(ctx, `
		SELECT `+sequenceColumns+` FROM sequences WHERE project_id = ? ORDER BY created_at DESC
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sequences []*Sequence
	for rows.Next() {
		s, err := scanSequence(rows.Scan)
		if err != nil {
			return nil, err
		}
		sequences = append(sequences, s)
	}
	return sequences, rows.Err()
}

func scanSequence(scan func(dest ...any) error) (*Sequence, error) {
	var s Sequence
	var createdBy sql.NullString
	var settings, createdAt string

	err := scan(&s.ID, &s.ProjectID, &s.Name, &s.Duration, &s.Framerate,
		&s.Resolution, &createdBy, &settings, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	s.CreatedBy = createdBy.String
	s.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if err := json.Unmarshal([]byte(settings), &s.Settings); err != nil {
		s.Settings = map[string]string{}
	}
	return &s, nil
}

// SequenceUpdate is a partial update; nil fields are left unchanged.
type SequenceUpdate struct {
	Name       *string
	Framerate  *float64
	Resolution *string
	Settings   map[string]string
}

func (st *SequenceStore) Update(ctx context.Context, id string, upd SequenceUpdate) (*Sequence, error) {
	s, err := st.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, &NotFoundError{Entity: "sequence", ID: id}
	}

	if upd.Name != nil {
		s.Name = *upd.Name
	}
	if upd.Framerate != nil {
		s.Framerate = *upd.Framerate
	}
	if upd.Resolution != nil {
		s.Resolution = *upd.Resolution
	}
	if upd.Settings != nil {
		s.Settings = upd.Settings
	}

	if err := validateSequence(s); err != nil {
		return nil, err
	}

	settings, err := json.Marshal(s.Settings)
	if err != nil {
		return nil, err
	}

	_, err = st.db.ExecContext(ctx, `
		UPDATE sequences SET name = ?, framerate = ?, resolution = ?, settings_json = ?
		WHERE id = ?
	`, s.Name, s.Framerate, s.Resolution, string(settings), id)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (st *SequenceStore) Delete(ctx context.Context, id string) error {
	res, err := st.db.ExecContext(ctx, "DELETE FROM sequences WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &NotFoundError{Entity: "sequence", ID: id}
	}
	return nil
}

// UpdateDurationFromClips recomputes the sequence duration as the maximum
// clip end time across all its tracks, or 0 when it holds no clips. This is
// the single source of truth for sequence length.
func (st *SequenceStore) UpdateDurationFromClips(ctx context.Context, sequenceID string) (float64, error) {
	var duration float64
	err := st.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(c.end_time), 0)
		FROM clips c JOIN tracks t ON c.track_id = t.id
		WHERE t.sequence_id = ?
	`, sequenceID).Scan(&duration)
	if err != nil {
		return 0, err
	}

	_, err = st.db.ExecContext(ctx,
		"UPDATE sequences SET duration = ? WHERE id = ?", duration, sequenceID)
	return duration, err
}

// TrackSummary is a track plus the number of clips it holds.
type TrackSummary struct {
	Track
	ClipCount int `json:"clip_count"`
}

// SequenceDetail is the read-composition returned by FindWithTracks: the
// sequence, its tracks in (type, index) order, and per-type track counts.
type SequenceDetail struct {
	Sequence    *Sequence         `json:"sequence"`
	Tracks      []TrackSummary    `json:"tracks"`
	TrackCounts map[TrackType]int `json:"track_counts"`
}

func (st *SequenceStore) FindWithTracks(ctx context.Context, id string) (*SequenceDetail, error) {
	s, err := st.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, nil
	}

	rows, err := st.db.QueryContext(ctx, `
		SELECT t.id, t.sequence_id, t.track_type, t.track_index, t.name,
		       t.enabled, t.locked, t.height, t.created_at,
		       COUNT(c.id)
		FROM tracks t LEFT JOIN clips c ON c.track_id = t.id
		WHERE t.sequence_id = ?
		GROUP BY t.id
		ORDER BY t.track_type, t.track_index
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	detail := &SequenceDetail{
		Sequence:    s,
		TrackCounts: map[TrackType]int{},
	}
	for rows.Next() {
		var ts TrackSummary
		var enabled, locked int
		var createdAt string
		if err := rows.Scan(&ts.ID, &ts.SequenceID, &ts.Type, &ts.Index, &ts.Name,
			&enabled, &locked, &ts.Height, &createdAt, &ts.ClipCount); err != nil {
			return nil, err
		}
		ts.Enabled = enabled == 1
		ts.Locked = locked == 1
		ts.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		detail.Tracks = append(detail.Tracks, ts)
		detail.TrackCounts[ts.Type]++
	}
	return detail, rows.Err()
}
