package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go-actuarylist-ingest/internal/database"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// JobStore is the part of database.Store the routes use.
type JobStore interface {
	ListJobs(ctx context.Context, q database.JobQuery) ([]database.StoredJob, error)
	GetJob(ctx context.Context, id int64) (*database.StoredJob, error)
	FindJobByName(ctx context.Context, title, company string) (*database.StoredJob, error)
	CreateJob(ctx context.Context, job database.StoredJob) (*database.StoredJob, error)
	UpdateJob(ctx context.Context, job database.StoredJob) (*database.StoredJob, error)
	DeleteJob(ctx context.Context, id int64) error
}

// JobResponse is the API view of a stored job; tags come back as a list.
type JobResponse struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Company     string   `json:"company"`
	Location    string   `json:"location"`
	PostingDate string   `json:"posting_date"`
	JobType     *string  `json:"job_type"`
	Tags        []string `json:"tags"`
}

func NewJobResponse(j database.StoredJob) JobResponse {
	tags := []string{}
	for _, t := range strings.Split(j.Tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return JobResponse{
		ID:          j.ID,
		Title:       j.Title,
		Company:     j.Company,
		Location:    j.Location,
		PostingDate: j.PostingDate,
		JobType:     j.JobType,
		Tags:        tags,
	}
}

type Server struct {
	jobs   JobStore
	logger *zap.Logger
	now    func() time.Time
}

func NewServer(jobs JobStore, logger *zap.Logger) *Server {
	return &Server{jobs: jobs, logger: logger, now: time.Now}
}

// Router wires the job routes. Any origin may call them.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowMethods = []string{
		http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions,
	}
	r.Use(cors.New(config))

	r.GET("/", s.health)
	jobs := r.Group("/jobs")
	{
		jobs.GET("", s.listJobs)
		jobs.POST("", s.createJob)
		jobs.DELETE("/delete_by_name", s.deleteJobByName)
		jobs.GET("/:id", s.getJob)
		jobs.PUT("/:id", s.updateJob)
		jobs.PATCH("/:id", s.updateJob)
		jobs.DELETE("/:id", s.deleteJob)
	}
	return r
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Actuary job API is running!",
		"status":  "healthy",
	})
}

func (s *Server) listJobs(c *gin.Context) {
	order, err := database.ParseSort(c.Query("sort"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	stored, err := s.jobs.ListJobs(c.Request.Context(), database.JobQuery{
		JobType:  c.Query("job_type"),
		Location: c.Query("location"),
		Tag:      c.Query("tag"),
		Sort:     order,
	})
	if err != nil {
		s.logger.Error("failed to list jobs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query error."})
		return
	}

	out := make([]JobResponse, 0, len(stored))
	for _, j := range stored {
		out = append(out, NewJobResponse(j))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getJob(c *gin.Context) {
	id, ok := jobID(c)
	if !ok {
		return
	}

	job, err := s.jobs.GetJob(c.Request.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Job with ID %d not found.", id)})
		return
	}
	if err != nil {
		s.logger.Error("failed to get job", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query error."})
		return
	}
	c.JSON(http.StatusOK, NewJobResponse(*job))
}

func jobID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Job ID must be an integer."})
		return 0, false
	}
	return id, true
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()))
	}
}
