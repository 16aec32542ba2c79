package timeline

import (
	"context"
	"database/sql"
	"time"
)

// ClipStore owns clip records and interval collision detection. Mutations
// re-validate the track's non-overlap invariant; a failed validation leaves
// storage unchanged.
type ClipStore struct {
	db DBTX
}

func NewClipStore(db DBTX) *ClipStore {
	return &ClipStore{db: db}
}

const clipColumns = "id, track_id, media_asset_id, start_time, end_time, media_in, media_out, name, enabled, locked, opacity, speed, created_by, created_at"

func validateClip(c *Clip) error {
	if c.TrackID == "" {
		return &ValidationError{Field: "track_id", Reason: "required"}
	}
	if c.MediaAssetID == "" {
		return &ValidationError{Field: "media_asset_id", Reason: "required"}
	}
	if c.StartTime < 0 {
		return &ValidationError{Field: "start_time", Reason: "must not be negative"}
	}
	if c.EndTime <= c.StartTime {
		return &ValidationError{Field: "end_time", Reason: "must be greater than start_time"}
	}
	if c.MediaIn < 0 {
		return &ValidationError{Field: "media_in", Reason: "must not be negative"}
	}
	if c.MediaOut <= c.MediaIn {
		return &ValidationError{Field: "media_out", Reason: "must be greater than media_in"}
	}
	if c.Opacity < 0 || c.Opacity > 1 {
		return &ValidationError{Field: "opacity", Reason: "must be between 0 and 1"}
	}
	if c.Speed <= 0 {
		return &ValidationError{Field: "speed", Reason: "must be positive"}
	}
	return nil
}

// CheckCollisions returns the enabled clips on the track whose [start, end)
// intervals overlap the given one, excluding excludeID when non-empty, plus
// a flag reporting whether any were found. Two half-open intervals overlap
// iff s1 < e2 and s2 < e1.
func (st *ClipStore) CheckCollisions(ctx context.Context, trackID string, start, end float64, excludeID string) ([]*Clip, bool, error) {
	rows, err := st.db.QueryContext(ctx, `
		SELECT `+clipColumns+` FROM clips
		WHERE track_id = ? AND enabled = 1
		  AND start_time < ? AND ? < end_time
		  AND id != ?
		ORDER BY start_time
	`, trackID, end, start, excludeID)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	clips, err := collectClips(rows)
	if err != nil {
		return nil, false, err
	}
	return clips, len(clips) > 0, nil
}

// Create validates the clip, rejects it if it overlaps any enabled clip on
// the target track, and persists it.
func (st *ClipStore) Create(ctx context.Context, c *Clip) error {
	if err := validateClip(c); err != nil {
		return err
	}

	colliding, collides, err := st.CheckCollisions(ctx, c.TrackID, c.StartTime, c.EndTime, "")
	if err != nil {
		return err
	}
	if collides {
		return &CollisionError{TrackID: c.TrackID, Clips: colliding}
	}

	if c.ID == "" {
		c.ID = NewID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	return st.insert(ctx, c)
}

func (st *ClipStore) insert(ctx context.Context, c *Clip) error {
	_, err := st.db.ExecContext(ctx, `
		INSERT INTO clips (`+clipColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.TrackID, c.MediaAssetID, c.StartTime, c.EndTime, c.MediaIn, c.MediaOut,
		c.Name, boolToInt(c.Enabled), boolToInt(c.Locked), c.Opacity, c.Speed,
		nullString(c.CreatedBy), c.CreatedAt.Format(time.RFC3339))
	return err
}

func (st *ClipStore) Get(ctx context.Context, id string) (*Clip, error) {
	row := st.db.QueryRowContext(ctx, `
		SELECT `+clipColumns+` FROM clips WHERE id = ?
	`, id)
	return scanClip(row.Scan)
}

// ClipUpdate is a partial update; nil fields are left unchanged.
type ClipUpdate struct {
	StartTime *float64
	EndTime   *float64
	MediaIn   *float64
	MediaOut  *float64
	Name      *string
	Enabled   *bool
	Locked    *bool
	Opacity   *float64
	Speed     *float64
}

// Update applies a partial update. When the timeline interval changes the
// new interval is collision-checked against the rest of the track before
// anything is written.
func (st *ClipStore) Update(ctx context.Context, id string, upd ClipUpdate) (*Clip, error) {
	c, err := st.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, &NotFoundError{Entity: "clip", ID: id}
	}

	intervalChanged := upd.StartTime != nil || upd.EndTime != nil

	if upd.StartTime != nil {
		c.StartTime = *upd.StartTime
	}
	if upd.EndTime != nil {
		c.EndTime = *upd.EndTime
	}
	if upd.MediaIn != nil {
		c.MediaIn = *upd.MediaIn
	}
	if upd.MediaOut != nil {
		c.MediaOut = *upd.MediaOut
	}
	if upd.Name != nil {
		c.Name = *upd.Name
	}
	if upd.Enabled != nil {
		c.Enabled = *upd.Enabled
	}
	if upd.Locked != nil {
		c.Locked = *upd.Locked
	}
	if upd.Opacity != nil {
		c.Opacity = *upd.Opacity
	}
	if upd.Speed != nil {
		c.Speed = *upd.Speed
	}

	if err := validateClip(c); err != nil {
		return nil, err
	}

	if intervalChanged {
		colliding, collides, err := st.CheckCollisions(ctx, c.TrackID, c.StartTime, c.EndTime, id)
		if err != nil {
			return nil, err
		}
		if collides {
			return nil, &CollisionError{TrackID: c.TrackID, Clips: colliding}
		}
	}

	if err := st.persist(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Move repositions a clip, preserving its duration, and optionally moves it
// to another track. The new interval is collision-checked against the
// destination track before anything is written.
func (st *ClipStore) Move(ctx context.Context, id string, newStart float64, newTrackID string) (*Clip, error) {
	c, err := st.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, &NotFoundError{Entity: "clip", ID: id}
	}

	if newStart < 0 {
		return nil, &ValidationError{Field: "start_time", Reason: "must not be negative"}
	}

	targetTrack := c.TrackID
	if newTrackID != "" {
		targetTrack = newTrackID
	}
	newEnd := newStart + c.Duration()

	colliding, collides, err := st.CheckCollisions(ctx, targetTrack, newStart, newEnd, id)
	if err != nil {
		return nil, err
	}
	if collides {
		return nil, &CollisionError{TrackID: targetTrack, Clips: colliding}
	}

	c.TrackID = targetTrack
	c.StartTime = newStart
	c.EndTime = newEnd

	if err := st.persist(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Split divides a clip at an offset relative to its own start. The media
// split point is linearly interpolated between media_in and media_out. The
// original clip becomes the left half and a new clip is created for the
// right half; the caller is expected to run both writes in one transaction.
func (st *ClipStore) Split(ctx context.Context, id string, offset float64) (*Clip, *Clip, error) {
	c, err := st.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if c == nil {
		return nil, nil, &NotFoundError{Entity: "clip", ID: id}
	}

	dur := c.Duration()
	if offset <= 0 || offset >= dur {
		return nil, nil, &ValidationError{Field: "offset", Reason: "must be strictly inside the clip"}
	}

	splitPoint := c.StartTime + offset
	mediaSplit := c.MediaIn + (c.MediaOut-c.MediaIn)*(offset/dur)

	right := &Clip{
		ID:           NewID(),
		TrackID:      c.TrackID,
		MediaAssetID: c.MediaAssetID,
		StartTime:    splitPoint,
		EndTime:      c.EndTime,
		MediaIn:      mediaSplit,
		MediaOut:     c.MediaOut,
		Name:         c.Name + " (split)",
		Enabled:      c.Enabled,
		Locked:       c.Locked,
		Opacity:      c.Opacity,
		Speed:        c.Speed,
		CreatedBy:    c.CreatedBy,
		CreatedAt:    time.Now(),
	}

	c.EndTime = splitPoint
	c.MediaOut = mediaSplit

	if err := st.persist(ctx, c); err != nil {
		return nil, nil, err
	}
	if err := st.insert(ctx, right); err != nil {
		return nil, nil, err
	}
	return c, right, nil
}

func (st *ClipStore) persist(ctx context.Context, c *Clip) error {
	_, err := st.db.ExecContext(ctx, `
		UPDATE clips SET track_id = ?, media_asset_id = ?, start_time = ?, end_time = ?,
		       media_in = ?, media_out = ?, name = ?, enabled = ?, locked = ?,
		       opacity = ?, speed = ?
		WHERE id = ?
	`, c.TrackID, c.MediaAssetID, c.StartTime, c.EndTime, c.MediaIn, c.MediaOut,
		c.Name, boolToInt(c.Enabled), boolToInt(c.Locked), c.Opacity, c.Speed, c.ID)
	return err
}

func (st *ClipStore) Delete(ctx context.Context, id string) error {
	res, err := st.db.ExecContext(ctx, "DELETE FROM clips WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &NotFoundError{Entity: "clip", ID: id}
	}
	return nil
}

func (st *ClipStore) DeleteByTrack(ctx context.Context, trackID string) error {
	_, err := st.db.ExecContext(ctx, "DELETE FROM clips WHERE track_id = ?", trackID)
	return err
}

func (st *ClipStore) ListByTrack(ctx context.Context, trackID string) ([]*Clip, error) {
	rows, err := st.db.QueryContext(ctx, `
		SELECT `+clipColumns+` FROM clips WHERE track_id = ? ORDER BY start_time
	`, trackID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectClips(rows)
}

func (st *ClipStore) ListBySequence(ctx context.Context, sequenceID string) ([]*Clip, error) {
	rows, err := st.db.QueryContext(ctx, `
		SELECT c.id, c.track_id, c.media_asset_id, c.start_time, c.end_time,
		       c.media_in, c.media_out, c.name, c.enabled, c.locked,
		       c.opacity, c.speed, c.created_by, c.created_at
		FROM clips c JOIN tracks t ON c.track_id = t.id
		WHERE t.sequence_id = ?
		ORDER BY t.track_type, t.track_index, c.start_time
	`, sequenceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectClips(rows)
}

func (st *ClipStore) ListByMediaAsset(ctx context.Context, mediaAssetID string) ([]*Clip, error) {
	rows, err := st.db.QueryContext(ctx, `
		SELECT `+clipColumns+` FROM clips WHERE media_asset_id = ? ORDER BY start_time
	`, mediaAssetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectClips(rows)
}

// FindInTimeRange selects the sequence's clips whose intervals intersect
// [start, end): clips starting in the range, ending in it, or spanning it.
// It uses the same half-open overlap test as collision detection.
func (st *ClipStore) FindInTimeRange(ctx context.Context, sequenceID string, start, end float64) ([]*Clip, error) {
	rows, err := st.db.QueryContext(ctx, `
		SELECT c.id, c.track_id, c.media_asset_id, c.start_time, c.end_time,
		       c.media_in, c.media_out, c.name, c.enabled, c.locked,
		       c.opacity, c.speed, c.created_by, c.created_at
		FROM clips c JOIN tracks t ON c.track_id = t.id
		WHERE t.sequence_id = ? AND c.start_time < ? AND ? < c.end_time
		ORDER BY c.start_time
	`, sequenceID, end, start)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectClips(rows)
}

func collectClips(rows *sql.Rows) ([]*Clip, error) {
	var clips []*Clip
	for rows.Next() {
		c, err := scanClip(rows.Scan)
		if err != nil {
			return nil, err
		}
		clips = append(clips, c)
	}
	return clips, rows.Err()
}

func scanClip(scan func(dest ...any) error) (*Clip, error) {
	var c Clip
	var enabled, locked int
	var createdBy sql.NullString
	var createdAt string

	err := scan(&c.ID, &c.TrackID, &c.MediaAssetID, &c.StartTime, &c.EndTime,
		&c.MediaIn, &c.MediaOut, &c.Name, &enabled, &locked,
		&c.Opacity, &c.Speed, &createdBy, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	c.Enabled = enabled == 1
	c.Locked = locked == 1
	c.CreatedBy = createdBy.String
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &c, nil
}
