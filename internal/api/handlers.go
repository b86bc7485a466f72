package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/scrideo/scrideo/internal/auth"
	"github.com/scrideo/scrideo/internal/store"
	"github.com/scrideo/scrideo/internal/types"
)

var allowedExtensions = map[string]bool{
	".mp4":  true,
	".avi":  true,
	".mov":  true,
	".mkv":  true,
	".webm": true,
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleSignup(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No data provided"})
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password required"})
		return
	}
	if len(req.Username) < 3 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username must be at least 3 characters"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Signup failed"})
		return
	}
	if err := s.store.CreateUser(c.Request.Context(), req.Username, hash); err != nil {
		if errors.Is(err, store.ErrUserExists) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username already exists"})
			return
		}
		s.log.Error().Err(err).Msg("signup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Signup failed"})
		return
	}

	token, err := s.auth.Generate(req.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Signup failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": token})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No data provided"})
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password required"})
		return
	}

	user, err := s.store.GetUser(c.Request.Context(), req.Username)
	if err != nil || auth.CheckPassword(req.Password, user.PasswordHash) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := s.auth.Generate(req.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (s *Server) handleUpload(c *gin.Context) {
	file, err := c.FormFile("video")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No video file provided"})
		return
	}
	if file.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Empty filename"})
		return
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedExtensions[ext] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only video files are allowed"})
		return
	}

	s.jobs.EnforceStorageLimit()

	jobID := uuid.NewString()
	inputPath := filepath.Join(s.cfg.UploadsDir(), fmt.Sprintf("%s_%s", jobID, filepath.Base(file.Filename)))
	if err := c.SaveUploadedFile(file, inputPath); err != nil {
		s.log.Error().Err(err).Msg("upload save failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Upload failed"})
		return
	}

	style := s.parseStyle(c.PostForm("captionSettings"))
	username, _ := s.authenticate(c)

	if _, err := s.store.CreateJob(c.Request.Context(), jobID, username, file.Filename, store.StatusUploaded); err != nil {
		s.log.Error().Err(err).Msg("job record failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Upload failed"})
		return
	}
	s.jobs.SubmitUpload(jobID, inputPath, file.Filename, username, style)

	c.JSON(http.StatusAccepted, gin.H{"job_id": jobID})
}

func (s *Server) handleTranscribe(c *gin.Context) {
	var req struct {
		URL             string          `json:"url"`
		CaptionSettings json.RawMessage `json:"captionSettings"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "URL required"})
		return
	}

	s.jobs.EnforceStorageLimit()

	jobID := uuid.NewString()
	style := s.parseStyle(string(req.CaptionSettings))
	username, _ := s.authenticate(c)

	if _, err := s.store.CreateJob(c.Request.Context(), jobID, username, "Downloaded Video", store.StatusDownloading); err != nil {
		s.log.Error().Err(err).Msg("job record failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Submission failed"})
		return
	}
	s.jobs.SubmitLink(jobID, req.URL, username, style)

	c.JSON(http.StatusAccepted, gin.H{"job_id": jobID})
}

// parseStyle decodes caller style settings. Malformed settings degrade to
// defaults rather than rejecting the job.
func (s *Server) parseStyle(raw string) types.StyleConfig {
	var style types.StyleConfig
	if raw == "" || raw == "null" {
		return style
	}
	if err := json.Unmarshal([]byte(raw), &style); err != nil {
		s.log.Warn().Err(err).Msg("unparseable caption settings, using defaults")
		return types.StyleConfig{}
	}
	return style
}

func (s *Server) handleStatus(c *gin.Context) {
	job, err := s.store.GetJob(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Status lookup failed"})
		return
	}
	c.JSON(http.StatusOK, jobResponse(job))
}

func (s *Server) handleDownload(c *gin.Context) {
	// Base strips any path traversal from the request.
	filename := filepath.Base(c.Param("filename"))
	path := filepath.Join(s.cfg.ProcessedDir(), filename)
	if st, err := os.Stat(path); err != nil || st.IsDir() {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	}
	c.FileAttachment(path, filename)
}

func (s *Server) handleProfile(c *gin.Context) {
	username := c.GetString(contextUserKey)
	jobs, err := s.store.ListJobsByUser(c.Request.Context(), username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Profile lookup failed"})
		return
	}

	history := make([]gin.H, 0, len(jobs))
	favorites := 0
	for _, job := range jobs {
		if job.Favorite {
			favorites++
		}
		entry := jobResponse(job)
		entry["job_id"] = job.ID
		entry["favorited"] = job.Favorite
		history = append(history, entry)
	}

	c.JSON(http.StatusOK, gin.H{
		"username":       username,
		"job_count":      len(jobs),
		"favorite_count": favorites,
		"history":        history,
	})
}

func (s *Server) handleToggleFavorite(c *gin.Context) {
	username := c.GetString(contextUserKey)
	favorited, err := s.store.ToggleFavorite(c.Request.Context(), c.Param("job_id"), username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Job not found in user history"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Favorite update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorited": favorited})
}

func (s *Server) handleDeleteHistory(c *gin.Context) {
	username := c.GetString(contextUserKey)
	jobID := c.Param("job_id")

	job, err := s.store.GetJob(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Delete failed"})
		return
	}
	if job.Username != username {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found in user history"})
		return
	}

	if err := s.store.DeleteJob(c.Request.Context(), jobID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Delete failed"})
		return
	}
	s.jobs.RemoveJobFiles(jobID)

	c.JSON(http.StatusOK, gin.H{"message": "History item deleted successfully"})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":                "ok",
		"transcriber_available": s.jobs.TranscriberAvailable(),
		"storage_used_mb":       float64(s.jobs.StorageUsedBytes()) / 1024 / 1024,
	})
}

func jobResponse(job *store.Job) gin.H {
	resp := gin.H{
		"status":   string(job.Status),
		"filename": job.Filename,
	}
	if job.Error != "" {
		resp["error"] = job.Error
	}
	if job.Status == store.StatusCompleted {
		resp["download_url"] = job.DownloadURL
		resp["transcription"] = job.Transcription
		resp["duration"] = job.Duration
		resp["date"] = job.UpdatedAt.Format("2006-01-02")
		resp["time"] = job.UpdatedAt.Format("15:04:05")
	}
	return resp
}
