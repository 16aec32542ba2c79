// Package timeline is the editing engine of a Cutroom project: it owns the
// authoritative structure of a sequence (its tracks and the clips placed on
// them) and enforces the positional invariants that keep a timeline
// renderable. External layers call the Service; the stores are never mutated
// independently.
package timeline

import (
	"math"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// TrackType is the media kind a track holds. Invalid values are rejected at
// construction, not at query time.
type TrackType string

const (
	TrackTypeVideo    TrackType = "video"
	TrackTypeAudio    TrackType = "audio"
	TrackTypeSubtitle TrackType = "subtitle"
)

func (t TrackType) Valid() bool {
	switch t {
	case TrackTypeVideo, TrackTypeAudio, TrackTypeSubtitle:
		return true
	}
	return false
}

const (
	DefaultTrackHeight = 100
	DefaultOpacity     = 1.0
	DefaultSpeed       = 1.0

	// AutoIndex asks TrackStore.Create to assign the next free index for
	// the track's (sequence, type) pair.
	AutoIndex = -1
)

// StandardFramerates are the values a sequence is expected to use. Anything
// farther than FramerateTolerance from all of them is accepted but flagged.
var StandardFramerates = []float64{23.976, 24, 25, 29.97, 30, 50, 59.94, 60}

const FramerateTolerance = 0.1

func IsStandardFramerate(fr float64) bool {
	for _, std := range StandardFramerates {
		if math.Abs(fr-std) <= FramerateTolerance {
			return true
		}
	}
	return false
}

// resolutionPattern matches WIDTHxHEIGHT, e.g. "1920x1080".
var resolutionPattern = regexp.MustCompile(`^[0-9]+x[0-9]+$`)

func ValidResolution(res string) bool {
	return resolutionPattern.MatchString(res)
}

// Sequence is a named timeline instance within a project. Duration is
// derived from its clips and is authoritative only after the first
// recompute; the value supplied at creation is a hint.
type Sequence struct {
	ID         string            `json:"id"`
	ProjectID  string            `json:"project_id"`
	Name       string            `json:"name"`
	Duration   float64           `json:"duration"`
	Framerate  float64           `json:"framerate"`
	Resolution string            `json:"resolution"`
	CreatedBy  string            `json:"created_by,omitempty"`
	Settings   map[string]string `json:"settings,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// Track is an ordered lane within a sequence. track_index is unique per
// (sequence, type); video and audio tracks index independently.
type Track struct {
	ID         string    `json:"id"`
	SequenceID string    `json:"sequence_id"`
	Type       TrackType `json:"track_type"`
	Index      int       `json:"track_index"`
	Name       string    `json:"name"`
	Enabled    bool      `json:"enabled"`
	Locked     bool      `json:"locked"`
	Height     int       `json:"height"`
	CreatedAt  time.Time `json:"created_at"`
}

// Clip places a media asset on a track. StartTime/EndTime are timeline-space
// seconds, MediaIn/MediaOut are source-space seconds. For a fixed track no
// two enabled clips' [start, end) intervals may overlap.
type Clip struct {
	ID           string    `json:"id"`
	TrackID      string    `json:"track_id"`
	MediaAssetID string    `json:"media_asset_id"`
	StartTime    float64   `json:"start_time"`
	EndTime      float64   `json:"end_time"`
	MediaIn      float64   `json:"media_in"`
	MediaOut     float64   `json:"media_out"`
	Name         string    `json:"name"`
	Enabled      bool      `json:"enabled"`
	Locked       bool      `json:"locked"`
	Opacity      float64   `json:"opacity"`
	Speed        float64   `json:"speed"`
	CreatedBy    string    `json:"created_by,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Duration returns the clip's timeline-space length in seconds.
func (c *Clip) Duration() float64 {
	return c.EndTime - c.StartTime
}

// Overlaps reports whether two half-open timeline intervals [s1,e1) and
// [s2,e2) intersect.
func Overlaps(s1, e1, s2, e2 float64) bool {
	return s1 < e2 && s2 < e1
}

// NewID returns an opaque unique identifier.
func NewID() string {
	return uuid.NewString()
}
