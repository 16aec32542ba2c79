package timeline

import (
	"context"
	"database/sql"
	"log/slog"
)

// MediaLibrary is the external media-asset collaborator. Only existence is
// consulted here; ingestion and metadata live outside the engine.
type MediaLibrary interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// Service composes the three stores into transactional use cases. It is the
// only component external callers invoke; every multi-step mutation runs in
// a single commit-or-rollback transaction so the overlap and duration
// invariants cannot drift.
type Service struct {
	db     *sql.DB
	media  MediaLibrary
	logger *slog.Logger
}

func NewService(db *sql.DB, media MediaLibrary, logger *slog.Logger) *Service {
	return &Service{db: db, media: media, logger: logger}
}

func stores(db DBTX) (*SequenceStore, *TrackStore, *ClipStore) {
	return NewSequenceStore(db), NewTrackStore(db), NewClipStore(db)
}

// withTx runs fn inside a transaction. Domain errors from fn surface as-is
// after rollback; begin/commit failures and a failed rollback are reported
// as TransactionError with the original cause preserved.
func (s *Service) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &TransactionError{Op: op, Err: err}
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			return &TransactionError{Op: op, Err: err, RollbackErr: rbErr}
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return &TransactionError{Op: op, Err: err}
	}
	return nil
}

type CreateSequenceInput struct {
	ProjectID  string
	Name       string
	Duration   float64 // initial hint only; recomputed from clips thereafter
	Framerate  float64
	Resolution string
	Settings   map[string]string
	CreatedBy  string
}

// CreateSequence creates a sequence together with its default track layout:
// one video track and two audio tracks, indices auto-assigned.
func (s *Service) CreateSequence(ctx context.Context, in CreateSequenceInput) (*Sequence, []*Track, error) {
	seq := &Sequence{
		ProjectID:  in.ProjectID,
		Name:       in.Name,
		Duration:   in.Duration,
		Framerate:  in.Framerate,
		Resolution: in.Resolution,
		Settings:   in.Settings,
		CreatedBy:  in.CreatedBy,
	}

	defaults := []struct {
		trackType TrackType
		name      string
	}{
		{TrackTypeVideo, "V1"},
		{TrackTypeAudio, "A1"},
		{TrackTypeAudio, "A2"},
	}

	var tracks []*Track
	err := s.withTx(ctx, "create sequence", func(tx *sql.Tx) error {
		seqStore, trackStore, _ := stores(tx)

		if err := seqStore.Create(ctx, seq); err != nil {
			return err
		}

		for _, d := range defaults {
			t := &Track{
				SequenceID: seq.ID,
				Type:       d.trackType,
				Index:      AutoIndex,
				Name:       d.name,
				Enabled:    true,
			}
			if err := trackStore.Create(ctx, t); err != nil {
				return err
			}
			tracks = append(tracks, t)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	if s.logger != nil {
		s.logger.Info("sequence created", "sequence_id", seq.ID, "project_id", seq.ProjectID)
		if !IsStandardFramerate(seq.Framerate) {
			s.logger.Warn("non-standard framerate", "sequence_id", seq.ID, "framerate", seq.Framerate)
		}
	}
	return seq, tracks, nil
}

func (s *Service) GetSequence(ctx context.Context, id string) (*Sequence, error) {
	seqStore, _, _ := stores(s.db)
	return seqStore.Get(ctx, id)
}

func (s *Service) ListSequences(ctx context.Context, projectID string) ([]*Sequence, error) {
	seqStore, _, _ := stores(s.db)
	return seqStore.ListByProject(ctx, projectID)
}

// GetSequenceWithTracks returns the sequence plus its ordered track summary.
func (s *Service) GetSequenceWithTracks(ctx context.Context, id string) (*SequenceDetail, error) {
	seqStore, _, _ := stores(s.db)
	return seqStore.FindWithTracks(ctx, id)
}

func (s *Service) UpdateSequence(ctx context.Context, id string, upd SequenceUpdate) (*Sequence, error) {
	var seq *Sequence
	err := s.withTx(ctx, "update sequence", func(tx *sql.Tx) error {
		seqStore, _, _ := stores(tx)
		var err error
		seq, err = seqStore.Update(ctx, id, upd)
		return err
	})
	if err != nil {
		return nil, err
	}
	if s.logger != nil && !IsStandardFramerate(seq.Framerate) {
		s.logger.Warn("non-standard framerate", "sequence_id", seq.ID, "framerate", seq.Framerate)
	}
	return seq, nil
}

// DeleteSequence removes the sequence; its tracks and their clips go with it
// (foreign keys cascade inside the same transaction).
func (s *Service) DeleteSequence(ctx context.Context, id string) error {
	return s.withTx(ctx, "delete sequence", func(tx *sql.Tx) error {
		seqStore, _, _ := stores(tx)
		return seqStore.Delete(ctx, id)
	})
}

type CreateTrackInput struct {
	SequenceID string
	Type       TrackType
	Index      *int // nil assigns max(existing)+1 for the sequence+type pair
	Name       string
	Enabled    *bool
	Locked     bool
	Height     int
}

func (s *Service) CreateTrack(ctx context.Context, in CreateTrackInput) (*Track, error) {
	track := &Track{
		SequenceID: in.SequenceID,
		Type:       in.Type,
		Index:      AutoIndex,
		Name:       in.Name,
		Enabled:    true,
		Locked:     in.Locked,
		Height:     in.Height,
	}
	if in.Index != nil {
		track.Index = *in.Index
	}
	if in.Enabled != nil {
		track.Enabled = *in.Enabled
	}

	err := s.withTx(ctx, "create track", func(tx *sql.Tx) error {
		seqStore, trackStore, _ := stores(tx)

		seq, err := seqStore.Get(ctx, in.SequenceID)
		if err != nil {
			return err
		}
		if seq == nil {
			return &NotFoundError{Entity: "sequence", ID: in.SequenceID}
		}
		return trackStore.Create(ctx, track)
	})
	if err != nil {
		return nil, err
	}
	return track, nil
}

func (s *Service) GetTrack(ctx context.Context, id string) (*Track, error) {
	_, trackStore, _ := stores(s.db)
	return trackStore.Get(ctx, id)
}

func (s *Service) ListTracks(ctx context.Context, sequenceID string) ([]*Track, error) {
	_, trackStore, _ := stores(s.db)
	return trackStore.ListBySequence(ctx, sequenceID)
}

func (s *Service) UpdateTrack(ctx context.Context, id string, upd TrackUpdate) (*Track, error) {
	var track *Track
	err := s.withTx(ctx, "update track", func(tx *sql.Tx) error {
		_, trackStore, _ := stores(tx)
		var err error
		track, err = trackStore.Update(ctx, id, upd)
		return err
	})
	if err != nil {
		return nil, err
	}
	return track, nil
}

// DeleteTrack removes the track's clips, then the track, then recomputes the
// owning sequence's duration, all in one transaction.
func (s *Service) DeleteTrack(ctx context.Context, id string) error {
	return s.withTx(ctx, "delete track", func(tx *sql.Tx) error {
		seqStore, trackStore, clipStore := stores(tx)

		track, err := trackStore.Get(ctx, id)
		if err != nil {
			return err
		}
		if track == nil {
			return &NotFoundError{Entity: "track", ID: id}
		}

		if err := clipStore.DeleteByTrack(ctx, id); err != nil {
			return err
		}
		if err := trackStore.Delete(ctx, id); err != nil {
			return err
		}
		_, err = seqStore.UpdateDurationFromClips(ctx, track.SequenceID)
		return err
	})
}

// ReorderTracks reassigns track indices to match orderedIDs. The input is
// not validated as a permutation of the sequence's tracks (see TrackStore.Reorder).
// No duration impact.
func (s *Service) ReorderTracks(ctx context.Context, sequenceID string, orderedIDs []string) error {
	return s.withTx(ctx, "reorder tracks", func(tx *sql.Tx) error {
		_, trackStore, _ := stores(tx)
		return trackStore.Reorder(ctx, sequenceID, orderedIDs)
	})
}

type AddClipInput struct {
	TrackID      string
	MediaAssetID string
	StartTime    float64
	EndTime      float64
	MediaIn      float64
	MediaOut     float64
	Name         string
	Enabled      *bool
	Locked       bool
	Opacity      *float64
	Speed        *float64
	CreatedBy    string
}

// AddClip verifies the referenced media asset exists, creates the clip
// (collision-checked against its track), and recomputes the owning
// sequence's duration.
func (s *Service) AddClip(ctx context.Context, in AddClipInput) (*Clip, error) {
	clip := &Clip{
		TrackID:      in.TrackID,
		MediaAssetID: in.MediaAssetID,
		StartTime:    in.StartTime,
		EndTime:      in.EndTime,
		MediaIn:      in.MediaIn,
		MediaOut:     in.MediaOut,
		Name:         in.Name,
		Enabled:      true,
		Locked:       in.Locked,
		Opacity:      DefaultOpacity,
		Speed:        DefaultSpeed,
		CreatedBy:    in.CreatedBy,
	}
	if in.Enabled != nil {
		clip.Enabled = *in.Enabled
	}
	if in.Opacity != nil {
		clip.Opacity = *in.Opacity
	}
	if in.Speed != nil {
		clip.Speed = *in.Speed
	}

	if in.MediaAssetID != "" {
		exists, err := s.media.Exists(ctx, in.MediaAssetID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, &ReferenceError{Entity: "media asset", ID: in.MediaAssetID}
		}
	}

	err := s.withTx(ctx, "add clip", func(tx *sql.Tx) error {
		seqStore, trackStore, clipStore := stores(tx)

		track, err := trackStore.Get(ctx, in.TrackID)
		if err != nil {
			return err
		}
		if track == nil {
			return &NotFoundError{Entity: "track", ID: in.TrackID}
		}

		if err := clipStore.Create(ctx, clip); err != nil {
			return err
		}
		_, err = seqStore.UpdateDurationFromClips(ctx, track.SequenceID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("clip added", "clip_id", clip.ID, "track_id", clip.TrackID,
			"start", clip.StartTime, "end", clip.EndTime)
	}
	return clip, nil
}

func (s *Service) GetClip(ctx context.Context, id string) (*Clip, error) {
	_, _, clipStore := stores(s.db)
	return clipStore.Get(ctx, id)
}

func (s *Service) ListClipsByTrack(ctx context.Context, trackID string) ([]*Clip, error) {
	_, _, clipStore := stores(s.db)
	return clipStore.ListByTrack(ctx, trackID)
}

func (s *Service) ListClipsBySequence(ctx context.Context, sequenceID string) ([]*Clip, error) {
	_, _, clipStore := stores(s.db)
	return clipStore.ListBySequence(ctx, sequenceID)
}

func (s *Service) ListClipsByMediaAsset(ctx context.Context, mediaAssetID string) ([]*Clip, error) {
	_, _, clipStore := stores(s.db)
	return clipStore.ListByMediaAsset(ctx, mediaAssetID)
}

func (s *Service) FindClipsInTimeRange(ctx context.Context, sequenceID string, start, end float64) ([]*Clip, error) {
	_, _, clipStore := stores(s.db)
	return clipStore.FindInTimeRange(ctx, sequenceID, start, end)
}

// CheckCollisions is the pure read used to pre-validate placements; it never
// writes.
func (s *Service) CheckCollisions(ctx context.Context, trackID string, start, end float64, excludeClipID string) ([]*Clip, bool, error) {
	_, _, clipStore := stores(s.db)
	return clipStore.CheckCollisions(ctx, trackID, start, end, excludeClipID)
}

// UpdateClip applies a partial clip update and recomputes the owning
// sequence's duration.
func (s *Service) UpdateClip(ctx context.Context, id string, upd ClipUpdate) (*Clip, error) {
	var clip *Clip
	err := s.withTx(ctx, "update clip", func(tx *sql.Tx) error {
		seqStore, trackStore, clipStore := stores(tx)

		var err error
		clip, err = clipStore.Update(ctx, id, upd)
		if err != nil {
			return err
		}

		track, err := trackStore.Get(ctx, clip.TrackID)
		if err != nil {
			return err
		}
		_, err = seqStore.UpdateDurationFromClips(ctx, track.SequenceID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return clip, nil
}

// MoveClip repositions a clip (duration preserved), optionally onto another
// track, and recomputes duration for the affected sequence — both sequences
// when source and destination differ.
func (s *Service) MoveClip(ctx context.Context, id string, newStart float64, newTrackID string) (*Clip, error) {
	var clip *Clip
	err := s.withTx(ctx, "move clip", func(tx *sql.Tx) error {
		seqStore, trackStore, clipStore := stores(tx)

		before, err := clipStore.Get(ctx, id)
		if err != nil {
			return err
		}
		if before == nil {
			return &NotFoundError{Entity: "clip", ID: id}
		}

		sourceTrack, err := trackStore.Get(ctx, before.TrackID)
		if err != nil {
			return err
		}

		if newTrackID != "" && newTrackID != before.TrackID {
			destTrack, err := trackStore.Get(ctx, newTrackID)
			if err != nil {
				return err
			}
			if destTrack == nil {
				return &NotFoundError{Entity: "track", ID: newTrackID}
			}
		}

		clip, err = clipStore.Move(ctx, id, newStart, newTrackID)
		if err != nil {
			return err
		}

		destTrack, err := trackStore.Get(ctx, clip.TrackID)
		if err != nil {
			return err
		}
		if _, err := seqStore.UpdateDurationFromClips(ctx, destTrack.SequenceID); err != nil {
			return err
		}
		if sourceTrack != nil && sourceTrack.SequenceID != destTrack.SequenceID {
			if _, err := seqStore.UpdateDurationFromClips(ctx, sourceTrack.SequenceID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return clip, nil
}

// TrimClip updates a clip's timeline interval and recomputes duration.
func (s *Service) TrimClip(ctx context.Context, id string, newStart, newEnd float64) (*Clip, error) {
	return s.UpdateClip(ctx, id, ClipUpdate{StartTime: &newStart, EndTime: &newEnd})
}

// SplitClip divides a clip at an interior offset. Truncation of the original
// and creation of the right half commit or roll back together; the duration
// recompute is kept for consistency even though a split cannot extend the
// sequence.
func (s *Service) SplitClip(ctx context.Context, id string, offset float64) (*Clip, *Clip, error) {
	var left, right *Clip
	err := s.withTx(ctx, "split clip", func(tx *sql.Tx) error {
		seqStore, trackStore, clipStore := stores(tx)

		var err error
		left, right, err = clipStore.Split(ctx, id, offset)
		if err != nil {
			return err
		}

		track, err := trackStore.Get(ctx, left.TrackID)
		if err != nil {
			return err
		}
		_, err = seqStore.UpdateDurationFromClips(ctx, track.SequenceID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	if s.logger != nil {
		s.logger.Info("clip split", "clip_id", left.ID, "new_clip_id", right.ID,
			"split_point", left.EndTime)
	}
	return left, right, nil
}

// DeleteClip removes a clip and recomputes the owning sequence's duration.
// The sequence id is captured before deletion.
func (s *Service) DeleteClip(ctx context.Context, id string) error {
	return s.withTx(ctx, "delete clip", func(tx *sql.Tx) error {
		seqStore, trackStore, clipStore := stores(tx)

		clip, err := clipStore.Get(ctx, id)
		if err != nil {
			return err
		}
		if clip == nil {
			return &NotFoundError{Entity: "clip", ID: id}
		}

		track, err := trackStore.Get(ctx, clip.TrackID)
		if err != nil {
			return err
		}

		if err := clipStore.Delete(ctx, id); err != nil {
			return err
		}
		if track != nil {
			if _, err := seqStore.UpdateDurationFromClips(ctx, track.SequenceID); err != nil {
				return err
			}
		}
		return nil
	})
}
