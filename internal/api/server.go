package api

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/scrideo/scrideo/internal/auth"
	"github.com/scrideo/scrideo/internal/config"
	"github.com/scrideo/scrideo/internal/store"
	"github.com/scrideo/scrideo/internal/types"
)

// Jobs is the processing side of the service as the HTTP layer sees it:
// submissions start background work, and cleanup hooks keep storage within
// its quota.
type Jobs interface {
	SubmitUpload(jobID, inputPath, filename, username string, style types.StyleConfig)
	SubmitLink(jobID, url, username string, style types.StyleConfig)
	RemoveJobFiles(jobID string)
	EnforceStorageLimit()
	StorageUsedBytes() int64
	TranscriberAvailable() bool
}

type Server struct {
	cfg   config.Config
	log   zerolog.Logger
	store *store.Store
	auth  *auth.Service
	jobs  Jobs
}

func NewServer(cfg config.Config, log zerolog.Logger, st *store.Store, authSvc *auth.Service, jobs Jobs) *Server {
	return &Server{cfg: cfg, log: log, store: st, auth: authSvc, jobs: jobs}
}

// Router assembles the HTTP surface.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/health", s.handleHealth)
	r.POST("/signup", s.handleSignup)
	r.POST("/login", s.handleLogin)

	r.POST("/upload", s.handleUpload)
	r.POST("/transcribe", s.handleTranscribe)
	r.GET("/status/:job_id", s.handleStatus)
	r.GET("/download/:filename", s.handleDownload)

	authed := r.Group("/", s.requireAuth())
	authed.GET("/profile", s.handleProfile)
	authed.POST("/history/:job_id/favorite", s.handleToggleFavorite)
	authed.DELETE("/history/:job_id", s.handleDeleteHistory)

	return r
}
