package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cutroom/cutroom-engine/internal/media"
	"github.com/cutroom/cutroom-engine/internal/timeline"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	r.Route("/sequences", func(r chi.Router) {
		r.Post("/", createSequenceHandler(cfg))
		r.Get("/", listSequencesHandler(cfg))
		r.Get("/{id}", getSequenceHandler(cfg))
		r.Patch("/{id}", updateSequenceHandler(cfg))
		r.Delete("/{id}", deleteSequenceHandler(cfg))
		r.Get("/{id}/detail", getSequenceDetailHandler(cfg))
		r.Get("/{id}/tracks", listTracksHandler(cfg))
		r.Post("/{id}/tracks/reorder", reorderTracksHandler(cfg))
		r.Get("/{id}/clips", listSequenceClipsHandler(cfg))
	})

	r.Route("/tracks", func(r chi.Router) {
		r.Post("/", createTrackHandler(cfg))
		r.Get("/{id}", getTrackHandler(cfg))
		r.Patch("/{id}", updateTrackHandler(cfg))
		r.Delete("/{id}", deleteTrackHandler(cfg))
		r.Get("/{id}/clips", listTrackClipsHandler(cfg))
		r.Get("/{id}/collisions", checkCollisionsHandler(cfg))
	})

	r.Route("/clips", func(r chi.Router) {
		r.Post("/", addClipHandler(cfg))
		r.Get("/{id}", getClipHandler(cfg))
		r.Patch("/{id}", updateClipHandler(cfg))
		r.Delete("/{id}", deleteClipHandler(cfg))
		r.Post("/{id}/move", moveClipHandler(cfg))
		r.Post("/{id}/trim", trimClipHandler(cfg))
		r.Post("/{id}/split", splitClipHandler(cfg))
	})

	r.Route("/media", func(r chi.Router) {
		r.Post("/", registerAssetHandler(cfg))
		r.Get("/", listAssetsHandler(cfg))
		r.Get("/{id}/clips", listAssetClipsHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: cfg.Version,
			UptimeS: uptime,
		})
	}
}

func createSequenceHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateSequenceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		seq, tracks, err := cfg.Timeline.CreateSequence(r.Context(), timeline.CreateSequenceInput{
			ProjectID:  req.ProjectID,
			Name:       req.Name,
			Duration:   req.Duration,
			Framerate:  req.Framerate,
			Resolution: req.Resolution,
			Settings:   req.Settings,
			CreatedBy:  req.CreatedBy,
		})
		if err != nil {
			WriteDomainError(w, err)
			return
		}

		resp := CreateSequenceResponse{Sequence: SequenceToResponse(seq)}
		for _, t := range tracks {
			resp.Tracks = append(resp.Tracks, TrackToResponse(t))
		}
		WriteJSON(w, http.StatusCreated, resp)
	}
}

func listSequencesHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := r.URL.Query().Get("project_id")
		if projectID == "" {
			WriteError(w, http.StatusBadRequest, "project_id is required", "BAD_REQUEST")
			return
		}

		sequences, err := cfg.Timeline.ListSequences(r.Context(), projectID)
		if err != nil {
			WriteDomainError(w, err)
			return
		}

		resp := SequencesResponse{Sequences: make([]SequenceResponse, len(sequences))}
		for i, s := range sequences {
			resp.Sequences[i] = SequenceToResponse(s)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getSequenceHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		seq, err := cfg.Timeline.GetSequence(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		if seq == nil {
			WriteError(w, http.StatusNotFound, "sequence not found", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, SequenceToResponse(seq))
	}
}

func getSequenceDetailHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		detail, err := cfg.Timeline.GetSequenceWithTracks(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		if detail == nil {
			WriteError(w, http.StatusNotFound, "sequence not found", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, detail)
	}
}

func updateSequenceHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdateSequenceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		seq, err := cfg.Timeline.UpdateSequence(r.Context(), chi.URLParam(r, "id"), timeline.SequenceUpdate{
			Name:       req.Name,
			Framerate:  req.Framerate,
			Resolution: req.Resolution,
			Settings:   req.Settings,
		})
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, SequenceToResponse(seq))
	}
}

func deleteSequenceHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Timeline.DeleteSequence(r.Context(), chi.URLParam(r, "id")); err != nil {
			WriteDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func createTrackHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateTrackRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		track, err := cfg.Timeline.CreateTrack(r.Context(), timeline.CreateTrackInput{
			SequenceID: req.SequenceID,
			Type:       timeline.TrackType(req.TrackType),
			Index:      req.TrackIndex,
			Name:       req.Name,
			Enabled:    req.Enabled,
			Locked:     req.Locked,
			Height:     req.Height,
		})
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, TrackToResponse(track))
	}
}

func getTrackHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		track, err := cfg.Timeline.GetTrack(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		if track == nil {
			WriteError(w, http.StatusNotFound, "track not found", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, TrackToResponse(track))
	}
}

func listTracksHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tracks, err := cfg.Timeline.ListTracks(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			WriteDomainError(w, err)
			return
		}

		resp := TracksResponse{Tracks: make([]TrackResponse, len(tracks))}
		for i, t := range tracks {
			resp.Tracks[i] = TrackToResponse(t)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func updateTrackHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdateTrackRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		track, err := cfg.Timeline.UpdateTrack(r.Context(), chi.URLParam(r, "id"), timeline.TrackUpdate{
			Name:    req.Name,
			Enabled: req.Enabled,
			Locked:  req.Locked,
			Height:  req.Height,
		})
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, TrackToResponse(track))
	}
}

func deleteTrackHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Timeline.DeleteTrack(r.Context(), chi.URLParam(r, "id")); err != nil {
			WriteDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func reorderTracksHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ReorderTracksRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if len(req.TrackIDs) == 0 {
			WriteError(w, http.StatusBadRequest, "track_ids is required", "BAD_REQUEST")
			return
		}

		if err := cfg.Timeline.ReorderTracks(r.Context(), chi.URLParam(r, "id"), req.TrackIDs); err != nil {
			WriteDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func addClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AddClipRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		clip, err := cfg.Timeline.AddClip(r.Context(), timeline.AddClipInput{
			TrackID:      req.TrackID,
			MediaAssetID: req.MediaAssetID,
			StartTime:    req.StartTime,
			EndTime:      req.EndTime,
			MediaIn:      req.MediaIn,
			MediaOut:     req.MediaOut,
			Name:         req.Name,
			Enabled:      req.Enabled,
			Locked:       req.Locked,
			Opacity:      req.Opacity,
			Speed:        req.Speed,
			CreatedBy:    req.CreatedBy,
		})
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, ClipToResponse(clip))
	}
}

func getClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clip, err := cfg.Timeline.GetClip(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		if clip == nil {
			WriteError(w, http.StatusNotFound, "clip not found", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, ClipToResponse(clip))
	}
}

func updateClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdateClipRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		clip, err := cfg.Timeline.UpdateClip(r.Context(), chi.URLParam(r, "id"), timeline.ClipUpdate{
			StartTime: req.StartTime,
			EndTime:   req.EndTime,
			MediaIn:   req.MediaIn,
			MediaOut:  req.MediaOut,
			Name:      req.Name,
			Enabled:   req.Enabled,
			Locked:    req.Locked,
			Opacity:   req.Opacity,
			Speed:     req.Speed,
		})
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, ClipToResponse(clip))
	}
}

func deleteClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Timeline.DeleteClip(r.Context(), chi.URLParam(r, "id")); err != nil {
			WriteDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func moveClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req MoveClipRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		clip, err := cfg.Timeline.MoveClip(r.Context(), chi.URLParam(r, "id"), req.StartTime, req.TrackID)
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, ClipToResponse(clip))
	}
}

func trimClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TrimClipRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		clip, err := cfg.Timeline.TrimClip(r.Context(), chi.URLParam(r, "id"), req.StartTime, req.EndTime)
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, ClipToResponse(clip))
	}
}

func splitClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SplitClipRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		first, second, err := cfg.Timeline.SplitClip(r.Context(), chi.URLParam(r, "id"), req.Offset)
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, SplitClipResponse{
			First:  ClipToResponse(first),
			Second: ClipToResponse(second),
		})
	}
}

func listTrackClipsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clips, err := cfg.Timeline.ListClipsByTrack(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, ClipsResponse{Clips: ClipsToResponse(clips)})
	}
}

func listSequenceClipsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		q := r.URL.Query()

		// With from/to present this becomes a time-range query.
		if q.Get("from") != "" || q.Get("to") != "" {
			from, err1 := strconv.ParseFloat(q.Get("from"), 64)
			to, err2 := strconv.ParseFloat(q.Get("to"), 64)
			if err1 != nil || err2 != nil {
				WriteError(w, http.StatusBadRequest, "from and to must be numbers", "BAD_REQUEST")
				return
			}
			clips, err := cfg.Timeline.FindClipsInTimeRange(r.Context(), id, from, to)
			if err != nil {
				WriteDomainError(w, err)
				return
			}
			WriteJSON(w, http.StatusOK, ClipsResponse{Clips: ClipsToResponse(clips)})
			return
		}

		clips, err := cfg.Timeline.ListClipsBySequence(r.Context(), id)
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, ClipsResponse{Clips: ClipsToResponse(clips)})
	}
}

func checkCollisionsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		start, err1 := strconv.ParseFloat(q.Get("start"), 64)
		end, err2 := strconv.ParseFloat(q.Get("end"), 64)
		if err1 != nil || err2 != nil {
			WriteError(w, http.StatusBadRequest, "start and end must be numbers", "BAD_REQUEST")
			return
		}

		clips, collides, err := cfg.Timeline.CheckCollisions(r.Context(),
			chi.URLParam(r, "id"), start, end, q.Get("exclude_clip_id"))
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, CollisionCheckResponse{
			Collides: collides,
			Clips:    ClipsToResponse(clips),
		})
	}
}

func registerAssetHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterAssetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.Filename == "" {
			WriteError(w, http.StatusBadRequest, "filename is required", "BAD_REQUEST")
			return
		}

		asset := &media.Asset{Filename: req.Filename, Kind: req.Kind, Duration: req.Duration}
		if err := cfg.Media.Register(r.Context(), asset); err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusCreated, AssetToResponse(asset))
	}
}

func listAssetsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assets, err := cfg.Media.List(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		resp := AssetsResponse{Assets: make([]AssetResponse, len(assets))}
		for i, a := range assets {
			resp.Assets[i] = AssetToResponse(a)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func listAssetClipsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clips, err := cfg.Timeline.ListClipsByMediaAsset(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, ClipsResponse{Clips: ClipsToResponse(clips)})
	}
}
