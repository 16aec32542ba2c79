package timeline

import (
	"context"
	"database/sql"
	"math"
	"path/filepath"
	"testing"

	"github.com/cutroom/cutroom-engine/internal/db"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := db.New(dbPath, nil)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	return database.Conn()
}

func seedSequence(t *testing.T, conn *sql.DB) *Sequence {
	t.Helper()

	seq := &Sequence{
		ProjectID:  "project-1",
		Name:       "Test Sequence",
		Framerate:  25,
		Resolution: "1920x1080",
	}
	if err := NewSequenceStore(conn).Create(context.Background(), seq); err != nil {
		t.Fatalf("failed to seed sequence: %v", err)
	}
	return seq
}

func seedTrack(t *testing.T, conn *sql.DB, sequenceID string, trackType TrackType) *Track {
	t.Helper()

	track := &Track{
		SequenceID: sequenceID,
		Type:       trackType,
		Index:      AutoIndex,
		Name:       "Test Track",
		Enabled:    true,
	}
	if err := NewTrackStore(conn).Create(context.Background(), track); err != nil {
		t.Fatalf("failed to seed track: %v", err)
	}
	return track
}

func seedClip(t *testing.T, conn *sql.DB, trackID string, start, end float64) *Clip {
	t.Helper()

	clip := &Clip{
		TrackID:      trackID,
		MediaAssetID: "asset-1",
		StartTime:    start,
		EndTime:      end,
		MediaIn:      0,
		MediaOut:     end - start,
		Name:         "Test Clip",
		Enabled:      true,
		Opacity:      DefaultOpacity,
		Speed:        DefaultSpeed,
	}
	if err := NewClipStore(conn).Create(context.Background(), clip); err != nil {
		t.Fatalf("failed to seed clip [%v, %v): %v", start, end, err)
	}
	return clip
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
