package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go-actuarylist-ingest/internal/database"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

var requiredFields = []string{"title", "company", "location"}

// jobPayload keeps the raw request body so a field sent as null or "" can be told apart from a
// field that was left out.
type jobPayload map[string]json.RawMessage

func readPayload(c *gin.Context) (jobPayload, bool) {
	var p jobPayload
	if err := c.ShouldBindJSON(&p); err != nil || len(p) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No input data provided"})
		return nil, false
	}
	return p, true
}

func (p jobPayload) has(field string) bool {
	_, ok := p[field]
	return ok
}

// text is the field as a string. ok is false for null, non-strings and absent fields.
func (p jobPayload) text(field string) (string, bool) {
	raw, present := p[field]
	if !present {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// validate returns one message per problem. On update only the fields sent are checked.
func (p jobPayload) validate(update bool) []string {
	var msgs []string
	for _, field := range requiredFields {
		if v, ok := p.text(field); ok && v != "" {
			continue
		}
		if !update || p.has(field) {
			msgs = append(msgs, fmt.Sprintf("Field '%s' is required and cannot be empty.", field))
		}
	}

	if raw, ok := p["posting_date"]; ok && !isEmptyJSON(raw) {
		v, isText := p.text("posting_date")
		if _, err := time.Parse(dateLayout, v); !isText || err != nil {
			msgs = append(msgs, "Invalid date format for 'posting_date'. Use 'YYYY-MM-DD'.")
		}
	}

	if raw, ok := p["job_type"]; ok && !isEmptyJSON(raw) {
		if _, isText := p.text("job_type"); !isText {
			msgs = append(msgs, "Field 'job_type' must be a string.")
		}
	}
	return msgs
}

// apply copies the fields that were sent onto job. Call validate first.
func (p jobPayload) apply(job *database.StoredJob) {
	for _, field := range requiredFields {
		v, ok := p.text(field)
		if !ok {
			continue
		}
		switch field {
		case "title":
			job.Title = v
		case "company":
			job.Company = v
		case "location":
			job.Location = v
		}
	}
	if p.has("job_type") {
		job.JobType = nil
		if v, _ := p.text("job_type"); v != "" {
			job.JobType = &v
		}
	}
	if raw, ok := p["tags"]; ok {
		job.Tags = tagsColumn(raw)
	}
	if v, ok := p.text("posting_date"); ok && v != "" {
		job.PostingDate = v
	}
}

// tagsColumn accepts a list of tags or one comma-separated string.
func tagsColumn(raw json.RawMessage) string {
	var parts []string
	var list []string
	var joined string
	switch {
	case json.Unmarshal(raw, &list) == nil:
		parts = list
	case json.Unmarshal(raw, &joined) == nil:
		parts = strings.Split(joined, ",")
	default:
		return ""
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return strings.Join(parts, ", ")
}

func isEmptyJSON(raw json.RawMessage) bool {
	v := strings.TrimSpace(string(raw))
	return v == "null" || v == `""`
}

func (s *Server) createJob(c *gin.Context) {
	p, ok := readPayload(c)
	if !ok {
		return
	}
	if msgs := p.validate(false); len(msgs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "messages": msgs})
		return
	}

	job := database.StoredJob{PostingDate: s.now().Format(dateLayout)}
	p.apply(&job)

	created, err := s.jobs.CreateJob(c.Request.Context(), job)
	if errors.Is(err, database.ErrConstraintViolation) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Database integrity error. Check unique constraints."})
		return
	}
	if err != nil {
		s.logger.Error("failed to create job", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An unexpected error occurred during creation."})
		return
	}
	c.JSON(http.StatusCreated, NewJobResponse(*created))
}

func (s *Server) updateJob(c *gin.Context) {
	id, ok := jobID(c)
	if !ok {
		return
	}
	p, ok := readPayload(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	job, err := s.jobs.GetJob(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Job with ID %d not found.", id)})
		return
	}
	if err != nil {
		s.logger.Error("failed to get job", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An unexpected error occurred during update."})
		return
	}

	if msgs := p.validate(true); len(msgs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "messages": msgs})
		return
	}
	p.apply(job)

	updated, err := s.jobs.UpdateJob(ctx, *job)
	switch {
	case errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Job with ID %d not found.", id)})
	case errors.Is(err, database.ErrConstraintViolation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Database integrity error during update."})
	case err != nil:
		s.logger.Error("failed to update job", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An unexpected error occurred during update."})
	default:
		c.JSON(http.StatusOK, NewJobResponse(*updated))
	}
}

func (s *Server) deleteJob(c *gin.Context) {
	id, ok := jobID(c)
	if !ok {
		return
	}

	err := s.jobs.DeleteJob(c.Request.Context(), id)
	switch {
	case errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Job with ID %d not found.", id)})
	case err != nil:
		s.logger.Error("failed to delete job", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An unexpected error occurred during deletion."})
	default:
		c.Status(http.StatusNoContent)
	}
}

func (s *Server) deleteJobByName(c *gin.Context) {
	p, ok := readPayload(c)
	if !ok {
		return
	}
	title, _ := p.text("title")
	if title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title must be provided to delete a job"})
		return
	}
	company, _ := p.text("company")

	ctx := c.Request.Context()
	job, err := s.jobs.FindJobByName(ctx, title, company)
	if err == nil {
		err = s.jobs.DeleteJob(ctx, job.ID)
	}
	switch {
	case errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
	case err != nil:
		s.logger.Error("failed to delete job by name", zap.String("title", title), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An unexpected error occurred."})
	default:
		c.Status(http.StatusNoContent)
	}
}
