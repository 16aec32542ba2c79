package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cutroom/cutroom-engine/internal/db"
	"github.com/cutroom/cutroom-engine/internal/media"
	"github.com/cutroom/cutroom-engine/internal/timeline"
)

func setupTestRouter(t *testing.T) (*chi.Mux, *media.Library) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	database, err := db.New(dbPath, logger)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	library := media.NewLibrary(database.Conn())
	svc := timeline.NewService(database.Conn(), library, logger)

	router := NewRouter(ServerConfig{
		Timeline:  svc,
		Media:     library,
		Logger:    logger,
		StartTime: time.Now(),
		Version:   "test",
	})
	return router, library
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v (body %s)", err, rec.Body.String())
	}
	return out
}

// createSequenceViaAPI drives the public endpoint so tests exercise the full
// request path, not the service directly.
func createSequenceViaAPI(t *testing.T, router http.Handler) CreateSequenceResponse {
	t.Helper()

	rec := doJSON(t, router, http.MethodPost, "/sequences", CreateSequenceRequest{
		ProjectID:  "project-1",
		Name:       "Main Edit",
		Framerate:  25,
		Resolution: "1920x1080",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create sequence status = %d, body %s", rec.Code, rec.Body.String())
	}
	return decodeBody[CreateSequenceResponse](t, rec)
}

func registerAssetViaAPI(t *testing.T, router http.Handler) AssetResponse {
	t.Helper()

	rec := doJSON(t, router, http.MethodPost, "/media", RegisterAssetRequest{
		Filename: "interview.mp4",
		Duration: 120,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register asset status = %d, body %s", rec.Code, rec.Body.String())
	}
	return decodeBody[AssetResponse](t, rec)
}

func addClipViaAPI(t *testing.T, router http.Handler, trackID, assetID string, start, end float64) ClipResponse {
	t.Helper()

	rec := doJSON(t, router, http.MethodPost, "/clips", AddClipRequest{
		TrackID:      trackID,
		MediaAssetID: assetID,
		StartTime:    start,
		EndTime:      end,
		MediaIn:      0,
		MediaOut:     end - start,
		Name:         "clip",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add clip status = %d, body %s", rec.Code, rec.Body.String())
	}
	return decodeBody[ClipResponse](t, rec)
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	health := decodeBody[HealthResponse](t, rec)
	if health.Status != "ok" || health.Version != "test" {
		t.Errorf("health = %+v", health)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestCreateSequenceEndpoint(t *testing.T) {
	router, _ := setupTestRouter(t)

	resp := createSequenceViaAPI(t, router)
	if resp.Sequence.ID == "" {
		t.Fatal("sequence id is empty")
	}
	if len(resp.Tracks) != 3 {
		t.Fatalf("got %d default tracks, want 3", len(resp.Tracks))
	}

	types := map[string]int{}
	for _, tr := range resp.Tracks {
		types[tr.TrackType]++
	}
	if types["video"] != 1 || types["audio"] != 2 {
		t.Errorf("default track types = %v", types)
	}
}

func TestCreateSequenceEndpoint_Validation(t *testing.T) {
	router, _ := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/sequences", CreateSequenceRequest{
		ProjectID:  "project-1",
		Name:       "Bad",
		Framerate:  0,
		Resolution: "1920x1080",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	errResp := decodeBody[ErrorResponse](t, rec)
	if errResp.Code != "VALIDATION_ERROR" || errResp.Field != "framerate" {
		t.Errorf("error = %+v", errResp)
	}
}

func TestGetSequenceEndpoint_NotFound(t *testing.T) {
	router, _ := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/sequences/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestAddClipEndpoint_UnknownMedia(t *testing.T) {
	router, _ := setupTestRouter(t)
	seq := createSequenceViaAPI(t, router)

	rec := doJSON(t, router, http.MethodPost, "/clips", AddClipRequest{
		TrackID:      seq.Tracks[0].ID,
		MediaAssetID: "ghost",
		StartTime:    0,
		EndTime:      10,
		MediaIn:      0,
		MediaOut:     10,
		Name:         "clip",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422 (body %s)", rec.Code, rec.Body.String())
	}

	errResp := decodeBody[ErrorResponse](t, rec)
	if errResp.Code != "MEDIA_NOT_FOUND" {
		t.Errorf("error code = %s, want MEDIA_NOT_FOUND", errResp.Code)
	}
}

func TestAddClipEndpoint_Collision(t *testing.T) {
	router, _ := setupTestRouter(t)
	seq := createSequenceViaAPI(t, router)
	asset := registerAssetViaAPI(t, router)

	existing := addClipViaAPI(t, router, seq.Tracks[0].ID, asset.ID, 0, 10)

	rec := doJSON(t, router, http.MethodPost, "/clips", AddClipRequest{
		TrackID:      seq.Tracks[0].ID,
		MediaAssetID: asset.ID,
		StartTime:    5,
		EndTime:      15,
		MediaIn:      0,
		MediaOut:     10,
		Name:         "overlap",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409 (body %s)", rec.Code, rec.Body.String())
	}

	errResp := decodeBody[ErrorResponse](t, rec)
	if errResp.Code != "COLLISION" {
		t.Errorf("error code = %s, want COLLISION", errResp.Code)
	}
	if len(errResp.Clips) != 1 || errResp.Clips[0] != existing.ID {
		t.Errorf("colliding_clip_ids = %v, want [%s]", errResp.Clips, existing.ID)
	}
}

func TestSplitClipEndpoint(t *testing.T) {
	router, _ := setupTestRouter(t)
	seq := createSequenceViaAPI(t, router)
	asset := registerAssetViaAPI(t, router)
	clip := addClipViaAPI(t, router, seq.Tracks[0].ID, asset.ID, 0, 10)

	rec := doJSON(t, router, http.MethodPost, "/clips/"+clip.ID+"/split", SplitClipRequest{Offset: 4})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	split := decodeBody[SplitClipResponse](t, rec)
	if split.First.EndTime != 4 || split.Second.StartTime != 4 || split.Second.EndTime != 10 {
		t.Errorf("split = [%v,%v) + [%v,%v)",
			split.First.StartTime, split.First.EndTime,
			split.Second.StartTime, split.Second.EndTime)
	}

	// Invalid offsets are rejected with a validation error.
	rec = doJSON(t, router, http.MethodPost, "/clips/"+split.Second.ID+"/split", SplitClipRequest{Offset: 0})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("split at offset 0 status = %d, want 400", rec.Code)
	}
}

func TestMoveAndTrimClipEndpoints(t *testing.T) {
	router, _ := setupTestRouter(t)
	seq := createSequenceViaAPI(t, router)
	asset := registerAssetViaAPI(t, router)
	clip := addClipViaAPI(t, router, seq.Tracks[0].ID, asset.ID, 0, 10)

	rec := doJSON(t, router, http.MethodPost, "/clips/"+clip.ID+"/move", MoveClipRequest{StartTime: 20})
	if rec.Code != http.StatusOK {
		t.Fatalf("move status = %d, body %s", rec.Code, rec.Body.String())
	}
	moved := decodeBody[ClipResponse](t, rec)
	if moved.StartTime != 20 || moved.EndTime != 30 {
		t.Errorf("moved clip = [%v, %v), want [20, 30)", moved.StartTime, moved.EndTime)
	}

	rec = doJSON(t, router, http.MethodPost, "/clips/"+clip.ID+"/trim", TrimClipRequest{StartTime: 22, EndTime: 28})
	if rec.Code != http.StatusOK {
		t.Fatalf("trim status = %d, body %s", rec.Code, rec.Body.String())
	}
	trimmed := decodeBody[ClipResponse](t, rec)
	if trimmed.StartTime != 22 || trimmed.EndTime != 28 {
		t.Errorf("trimmed clip = [%v, %v), want [22, 28)", trimmed.StartTime, trimmed.EndTime)
	}
}

func TestDeleteClipEndpoint(t *testing.T) {
	router, _ := setupTestRouter(t)
	seq := createSequenceViaAPI(t, router)
	asset := registerAssetViaAPI(t, router)
	clip := addClipViaAPI(t, router, seq.Tracks[0].ID, asset.ID, 0, 10)

	rec := doJSON(t, router, http.MethodDelete, "/clips/"+clip.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", rec.Code)
	}

	rec = doJSON(t, router, http.MethodDelete, "/clips/"+clip.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestCollisionCheckEndpoint(t *testing.T) {
	router, _ := setupTestRouter(t)
	seq := createSequenceViaAPI(t, router)
	asset := registerAssetViaAPI(t, router)
	addClipViaAPI(t, router, seq.Tracks[0].ID, asset.ID, 0, 10)

	path := fmt.Sprintf("/tracks/%s/collisions?start=5&end=15", seq.Tracks[0].ID)
	rec := doJSON(t, router, http.MethodGet, path, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	check := decodeBody[CollisionCheckResponse](t, rec)
	if !check.Collides || len(check.Clips) != 1 {
		t.Errorf("collision check = %+v", check)
	}

	path = fmt.Sprintf("/tracks/%s/collisions?start=10&end=15", seq.Tracks[0].ID)
	check = decodeBody[CollisionCheckResponse](t, doJSON(t, router, http.MethodGet, path, nil))
	if check.Collides {
		t.Error("adjacent interval reported as collision")
	}
}

func TestSequenceClipsEndpoint_TimeRange(t *testing.T) {
	router, _ := setupTestRouter(t)
	seq := createSequenceViaAPI(t, router)
	asset := registerAssetViaAPI(t, router)

	addClipViaAPI(t, router, seq.Tracks[0].ID, asset.ID, 0, 10)
	addClipViaAPI(t, router, seq.Tracks[1].ID, asset.ID, 30, 40)

	path := fmt.Sprintf("/sequences/%s/clips?from=0&to=20", seq.Sequence.ID)
	clips := decodeBody[ClipsResponse](t, doJSON(t, router, http.MethodGet, path, nil))
	if len(clips.Clips) != 1 {
		t.Errorf("got %d clips in [0, 20), want 1", len(clips.Clips))
	}

	path = fmt.Sprintf("/sequences/%s/clips", seq.Sequence.ID)
	clips = decodeBody[ClipsResponse](t, doJSON(t, router, http.MethodGet, path, nil))
	if len(clips.Clips) != 2 {
		t.Errorf("got %d clips without range, want 2", len(clips.Clips))
	}
}

func TestReorderTracksEndpoint(t *testing.T) {
	router, _ := setupTestRouter(t)
	seq := createSequenceViaAPI(t, router)

	ids := []string{seq.Tracks[2].ID, seq.Tracks[1].ID, seq.Tracks[0].ID}
	rec := doJSON(t, router, http.MethodPost, "/sequences/"+seq.Sequence.ID+"/tracks/reorder",
		ReorderTracksRequest{TrackIDs: ids})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, "/sequences/"+seq.Sequence.ID+"/tracks/reorder",
		ReorderTracksRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty reorder status = %d, want 400", rec.Code)
	}
}

func TestDeleteSequenceEndpoint(t *testing.T) {
	router, _ := setupTestRouter(t)
	seq := createSequenceViaAPI(t, router)

	rec := doJSON(t, router, http.MethodDelete, "/sequences/"+seq.Sequence.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/sequences/"+seq.Sequence.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status after delete = %d, want 404", rec.Code)
	}
}

func TestRegisterAssetEndpoint_Validation(t *testing.T) {
	router, _ := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/media", RegisterAssetRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestListAssetsEndpoint(t *testing.T) {
	router, library := setupTestRouter(t)

	if err := library.Register(context.Background(), &media.Asset{Filename: "a.mp4"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	assets := decodeBody[AssetsResponse](t, doJSON(t, router, http.MethodGet, "/media", nil))
	if len(assets.Assets) != 1 {
		t.Errorf("got %d assets, want 1", len(assets.Assets))
	}
}
