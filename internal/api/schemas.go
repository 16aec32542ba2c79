package api

import (
	"time"

	"github.com/cutroom/cutroom-engine/internal/media"
	"github.com/cutroom/cutroom-engine/internal/timeline"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type CreateSequenceRequest struct {
	ProjectID  string            `json:"project_id"`
	Name       string            `json:"name"`
	Duration   float64           `json:"duration,omitempty"`
	Framerate  float64           `json:"framerate"`
	Resolution string            `json:"resolution"`
	Settings   map[string]string `json:"settings,omitempty"`
	CreatedBy  string            `json:"created_by,omitempty"`
}

type UpdateSequenceRequest struct {
	Name       *string           `json:"name,omitempty"`
	Framerate  *float64          `json:"framerate,omitempty"`
	Resolution *string           `json:"resolution,omitempty"`
	Settings   map[string]string `json:"settings,omitempty"`
}

type SequenceResponse struct {
	ID         string            `json:"id"`
	ProjectID  string            `json:"project_id"`
	Name       string            `json:"name"`
	Duration   float64           `json:"duration"`
	Framerate  float64           `json:"framerate"`
	Resolution string            `json:"resolution"`
	Settings   map[string]string `json:"settings,omitempty"`
	CreatedBy  string            `json:"created_by,omitempty"`
	CreatedAt  string            `json:"created_at"`
}

type CreateSequenceResponse struct {
	Sequence SequenceResponse `json:"sequence"`
	Tracks   []TrackResponse  `json:"tracks"`
}

type SequencesResponse struct {
	Sequences []SequenceResponse `json:"sequences"`
}

type CreateTrackRequest struct {
	SequenceID string `json:"sequence_id"`
	TrackType  string `json:"track_type"`
	TrackIndex *int   `json:"track_index,omitempty"`
	Name       string `json:"name"`
	Enabled    *bool  `json:"enabled,omitempty"`
	Locked     bool   `json:"locked,omitempty"`
	Height     int    `json:"height,omitempty"`
}

type UpdateTrackRequest struct {
	Name    *string `json:"name,omitempty"`
	Enabled *bool   `json:"enabled,omitempty"`
	Locked  *bool   `json:"locked,omitempty"`
	Height  *int    `json:"height,omitempty"`
}

type ReorderTracksRequest struct {
	TrackIDs []string `json:"track_ids"`
}

type TrackResponse struct {
	ID         string `json:"id"`
	SequenceID string `json:"sequence_id"`
	TrackType  string `json:"track_type"`
	TrackIndex int    `json:"track_index"`
	Name       string `json:"name"`
	Enabled    bool   `json:"enabled"`
	Locked     bool   `json:"locked"`
	Height     int    `json:"height"`
	CreatedAt  string `json:"created_at"`
}

type TracksResponse struct {
	Tracks []TrackResponse `json:"tracks"`
}

type AddClipRequest struct {
	TrackID      string   `json:"track_id"`
	MediaAssetID string   `json:"media_asset_id"`
	StartTime    float64  `json:"start_time"`
	EndTime      float64  `json:"end_time"`
	MediaIn      float64  `json:"media_in"`
	MediaOut     float64  `json:"media_out"`
	Name         string   `json:"name"`
	Enabled      *bool    `json:"enabled,omitempty"`
	Locked       bool     `json:"locked,omitempty"`
	Opacity      *float64 `json:"opacity,omitempty"`
	Speed        *float64 `json:"speed,omitempty"`
	CreatedBy    string   `json:"created_by,omitempty"`
}

type UpdateClipRequest struct {
	StartTime *float64 `json:"start_time,omitempty"`
	EndTime   *float64 `json:"end_time,omitempty"`
	MediaIn   *float64 `json:"media_in,omitempty"`
	MediaOut  *float64 `json:"media_out,omitempty"`
	Name      *string  `json:"name,omitempty"`
	Enabled   *bool    `json:"enabled,omitempty"`
	Locked    *bool    `json:"locked,omitempty"`
	Opacity   *float64 `json:"opacity,omitempty"`
	Speed     *float64 `json:"speed,omitempty"`
}

type MoveClipRequest struct {
	StartTime float64 `json:"start_time"`
	TrackID   string  `json:"track_id,omitempty"`
}

type TrimClipRequest struct {
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

type SplitClipRequest struct {
	Offset float64 `json:"offset"`
}

type SplitClipResponse struct {
	First  ClipResponse `json:"first"`
	Second ClipResponse `json:"second"`
}

type ClipResponse struct {
	ID           string  `json:"id"`
	TrackID      string  `json:"track_id"`
	MediaAssetID string  `json:"media_asset_id"`
	StartTime    float64 `json:"start_time"`
	EndTime      float64 `json:"end_time"`
	MediaIn      float64 `json:"media_in"`
	MediaOut     float64 `json:"media_out"`
	Name         string  `json:"name"`
	Enabled      bool    `json:"enabled"`
	Locked       bool    `json:"locked"`
	Opacity      float64 `json:"opacity"`
	Speed        float64 `json:"speed"`
	CreatedBy    string  `json:"created_by,omitempty"`
	CreatedAt    string  `json:"created_at"`
}

type ClipsResponse struct {
	Clips []ClipResponse `json:"clips"`
}

type CollisionCheckResponse struct {
	Collides bool           `json:"collides"`
	Clips    []ClipResponse `json:"clips"`
}

type RegisterAssetRequest struct {
	Filename string  `json:"filename"`
	Kind     string  `json:"kind,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

type AssetResponse struct {
	ID        string  `json:"id"`
	Filename  string  `json:"filename"`
	Kind      string  `json:"kind"`
	Duration  float64 `json:"duration"`
	CreatedAt string  `json:"created_at"`
}

type AssetsResponse struct {
	Assets []AssetResponse `json:"assets"`
}

type ErrorResponse struct {
	Error string   `json:"error"`
	Code  string   `json:"code,omitempty"`
	Field string   `json:"field,omitempty"`
	Clips []string `json:"colliding_clip_ids,omitempty"`
}

func SequenceToResponse(s *timeline.Sequence) SequenceResponse {
	return SequenceResponse{
		ID:         s.ID,
		ProjectID:  s.ProjectID,
		Name:       s.Name,
		Duration:   s.Duration,
		Framerate:  s.Framerate,
		Resolution: s.Resolution,
		Settings:   s.Settings,
		CreatedBy:  s.CreatedBy,
		CreatedAt:  s.CreatedAt.Format(time.RFC3339),
	}
}

func TrackToResponse(t *timeline.Track) TrackResponse {
	return TrackResponse{
		ID:         t.ID,
		SequenceID: t.SequenceID,
		TrackType:  string(t.Type),
		TrackIndex: t.Index,
		Name:       t.Name,
		Enabled:    t.Enabled,
		Locked:     t.Locked,
		Height:     t.Height,
		CreatedAt:  t.CreatedAt.Format(time.RFC3339),
	}
}

func ClipToResponse(c *timeline.Clip) ClipResponse {
	return ClipResponse{
		ID:           c.ID,
		TrackID:      c.TrackID,
		MediaAssetID: c.MediaAssetID,
		StartTime:    c.StartTime,
		EndTime:      c.EndTime,
		MediaIn:      c.MediaIn,
		MediaOut:     c.MediaOut,
		Name:         c.Name,
		Enabled:      c.Enabled,
		Locked:       c.Locked,
		Opacity:      c.Opacity,
		Speed:        c.Speed,
		CreatedBy:    c.CreatedBy,
		CreatedAt:    c.CreatedAt.Format(time.RFC3339),
	}
}

func ClipsToResponse(clips []*timeline.Clip) []ClipResponse {
	out := make([]ClipResponse, len(clips))
	for i, c := range clips {
		out[i] = ClipToResponse(c)
	}
	return out
}

func AssetToResponse(a *media.Asset) AssetResponse {
	return AssetResponse{
		ID:        a.ID,
		Filename:  a.Filename,
		Kind:      a.Kind,
		Duration:  a.Duration,
		CreatedAt: a.CreatedAt.Format(time.RFC3339),
	}
}
