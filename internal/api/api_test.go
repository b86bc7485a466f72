package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/scrideo/scrideo/internal/auth"
	"github.com/scrideo/scrideo/internal/config"
	"github.com/scrideo/scrideo/internal/store"
	"github.com/scrideo/scrideo/internal/types"
)

type stubJobs struct {
	uploads []string
	links   []string
	style   types.StyleConfig
	removed []string
}

func (s *stubJobs) SubmitUpload(jobID, inputPath, filename, username string, style types.StyleConfig) {
	s.uploads = append(s.uploads, jobID)
	s.style = style
}

func (s *stubJobs) SubmitLink(jobID, url, username string, style types.StyleConfig) {
	s.links = append(s.links, jobID)
	s.style = style
}

func (s *stubJobs) RemoveJobFiles(jobID string) { s.removed = append(s.removed, jobID) }
func (s *stubJobs) EnforceStorageLimit()        {}
func (s *stubJobs) StorageUsedBytes() int64     { return 42 * 1024 * 1024 }
func (s *stubJobs) TranscriberAvailable() bool  { return true }

func newTestServer(t *testing.T) (*Server, *store.Store, *stubJobs) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		Port:              7860,
		DataDir:           t.TempDir(),
		JWTSecret:         "test-secret",
		TokenTTL:          time.Hour,
		EncodeTimeout:     time.Second,
		StorageLimitBytes: 1 << 20,
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	st, err := store.Open(cfg.DatabasePath())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = st.Close() })

	authSvc, err := auth.New(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		t.Fatal(err)
	}
	jobs := &stubJobs{}
	return NewServer(cfg, zerolog.Nop(), st, authSvc, jobs), st, jobs
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSignupAndLogin(t *testing.T) {
	srv, _, _ := newTestServer(t)
	r := srv.Router()

	w := doJSON(t, r, http.MethodPost, "/signup", gin.H{"username": "alice", "password": "pw"}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("signup status = %d: %s", w.Code, w.Body)
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Token == "" {
		t.Fatalf("no token in signup response: %s", w.Body)
	}

	// Duplicate username.
	w = doJSON(t, r, http.MethodPost, "/signup", gin.H{"username": "alice", "password": "pw"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("duplicate signup status = %d", w.Code)
	}

	// Short username.
	w = doJSON(t, r, http.MethodPost, "/signup", gin.H{"username": "al", "password": "pw"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("short username status = %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/login", gin.H{"username": "alice", "password": "pw"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", w.Code, w.Body)
	}

	w = doJSON(t, r, http.MethodPost, "/login", gin.H{"username": "alice", "password": "wrong"}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad login status = %d", w.Code)
	}
}

func TestUpload(t *testing.T) {
	srv, st, jobs := newTestServer(t)
	r := srv.Router()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("video", "clip.mp4")
	if err != nil {
		t.Fatal(err)
	}
	fmt.Fprint(fw, "fake-video-bytes")
	if err := mw.WriteField("captionSettings", `{"color":"yellow","position":"top"}`); err != nil {
		t.Fatal(err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("upload status = %d: %s", w.Code, w.Body)
	}
	var resp struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.JobID == "" {
		t.Fatalf("no job id: %s", w.Body)
	}
	if len(jobs.uploads) != 1 || jobs.uploads[0] != resp.JobID {
		t.Fatalf("job not submitted: %+v", jobs.uploads)
	}
	if jobs.style.Color != "yellow" || jobs.style.Position != "top" {
		t.Fatalf("caption settings not forwarded: %+v", jobs.style)
	}

	job, err := st.GetJob(context.Background(), resp.JobID)
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != store.StatusUploaded || job.Filename != "clip.mp4" {
		t.Fatalf("unexpected job record: %+v", job)
	}

	// The saved upload is namespaced by job id.
	if _, err := filepath.Glob(filepath.Join(srv.cfg.UploadsDir(), resp.JobID+"_*")); err != nil {
		t.Fatal(err)
	}
}

func TestUpload_RejectsNonVideo(t *testing.T) {
	srv, _, _ := newTestServer(t)
	r := srv.Router()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("video", "notes.txt")
	fmt.Fprint(fw, "hi")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestTranscribeLink(t *testing.T) {
	srv, _, jobs := newTestServer(t)
	r := srv.Router()

	w := doJSON(t, r, http.MethodPost, "/transcribe", gin.H{
		"url":             "https://example.com/watch?v=abc",
		"captionSettings": gin.H{"bgColor": "black"},
	}, nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}
	if len(jobs.links) != 1 {
		t.Fatal("link job not submitted")
	}
	if jobs.style.BgColor != "black" {
		t.Fatalf("caption settings not forwarded: %+v", jobs.style)
	}

	w = doJSON(t, r, http.MethodPost, "/transcribe", gin.H{}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing url status = %d", w.Code)
	}
}

func TestStatus(t *testing.T) {
	srv, st, _ := newTestServer(t)
	r := srv.Router()

	if _, err := st.CreateJob(context.Background(), "job-1", "", "clip.mp4", store.StatusTranscribing); err != nil {
		t.Fatal(err)
	}

	w := doJSON(t, r, http.MethodGet, "/status/job-1", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["status"] != "transcribing" {
		t.Fatalf("unexpected status payload: %v", resp)
	}

	w = doJSON(t, r, http.MethodGet, "/status/unknown", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown job status = %d", w.Code)
	}
}

func TestProfileRequiresAuth(t *testing.T) {
	srv, st, _ := newTestServer(t)
	r := srv.Router()

	w := doJSON(t, r, http.MethodGet, "/profile", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated profile status = %d", w.Code)
	}

	token, err := srv.auth.Generate("alice")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := st.CreateJob(context.Background(), "job-1", "alice", "clip.mp4", store.StatusUploaded); err != nil {
		t.Fatal(err)
	}
	if err := st.MarkCompleted(context.Background(), "job-1", "/download/x.mp4", "hi", "0:05"); err != nil {
		t.Fatal(err)
	}

	w = doJSON(t, r, http.MethodGet, "/profile", nil, map[string]string{"Authorization": "Bearer " + token})
	if w.Code != http.StatusOK {
		t.Fatalf("profile status = %d: %s", w.Code, w.Body)
	}
	var resp struct {
		Username string           `json:"username"`
		JobCount int              `json:"job_count"`
		History  []map[string]any `json:"history"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Username != "alice" || resp.JobCount != 1 || len(resp.History) != 1 {
		t.Fatalf("unexpected profile: %s", w.Body)
	}
	if resp.History[0]["download_url"] != "/download/x.mp4" {
		t.Fatalf("history entry missing download url: %v", resp.History[0])
	}
}

func TestDeleteHistory(t *testing.T) {
	srv, st, jobs := newTestServer(t)
	r := srv.Router()

	token, _ := srv.auth.Generate("alice")
	if _, err := st.CreateJob(context.Background(), "job-1", "alice", "clip.mp4", store.StatusUploaded); err != nil {
		t.Fatal(err)
	}

	// A different user cannot delete it.
	other, _ := srv.auth.Generate("bob")
	w := doJSON(t, r, http.MethodDelete, "/history/job-1", nil, map[string]string{"Authorization": "Bearer " + other})
	if w.Code != http.StatusNotFound {
		t.Fatalf("foreign delete status = %d", w.Code)
	}

	w = doJSON(t, r, http.MethodDelete, "/history/job-1", nil, map[string]string{"Authorization": "Bearer " + token})
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d: %s", w.Code, w.Body)
	}
	if len(jobs.removed) != 1 || jobs.removed[0] != "job-1" {
		t.Fatal("job files not cleaned up")
	}
	if _, err := st.GetJob(context.Background(), "job-1"); err == nil {
		t.Fatal("job record should be gone")
	}
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t)
	w := doJSON(t, srv.Router(), http.MethodGet, "/health", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d", w.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["status"] != "ok" || resp["transcriber_available"] != true {
		t.Fatalf("unexpected health payload: %v", resp)
	}
}
