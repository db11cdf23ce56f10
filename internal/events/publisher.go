package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go-actuarylist-ingest/internal/database"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	NewJobsSubject = "jobs.new"
	connectTimeout = 10 * time.Second
)

// JobStoredEvent is published once per newly inserted job.
type JobStoredEvent struct {
	Title       string   `json:"title"`
	Company     string   `json:"company"`
	Location    string   `json:"location"`
	PostingDate string   `json:"posting_date"`
	JobType     *string  `json:"job_type"`
	Tags        []string `json:"tags"`
}

func NewJobStoredEvent(job database.StoredJob) JobStoredEvent {
	tags := []string{}
	for _, t := range strings.Split(job.Tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return JobStoredEvent{
		Title:       job.Title,
		Company:     job.Company,
		Location:    job.Location,
		PostingDate: job.PostingDate,
		JobType:     job.JobType,
		Tags:        tags,
	}
}

type Publisher interface {
	PublishJobs(ctx context.Context, jobs []database.StoredJob) error
	Close()
}

// conn is the part of *nats.Conn the publisher needs.
type conn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Close()
}

type natsPublisher struct {
	conn   conn
	logger *zap.Logger
}

func NewNATSPublisher(natsURL string, logger *zap.Logger) (Publisher, error) {
	opts := []nats.Option{
		nats.Name("actuarylist-ingest"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
	}

	nc, err := nats.Connect(natsURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	return &natsPublisher{conn: nc, logger: logger}, nil
}

// PublishJobs keeps going past a failed message and returns the first error.
func (p *natsPublisher) PublishJobs(ctx context.Context, jobs []database.StoredJob) error {
	var firstErr error
	published := 0
	for _, job := range jobs {
		data, err := json.Marshal(NewJobStoredEvent(job))
		if err != nil {
			firstErr = keepFirst(firstErr, fmt.Errorf("marshaling job event: %w", err))
			continue
		}
		if err := p.conn.Publish(NewJobsSubject, data); err != nil {
			p.logger.Error("failed to publish job",
				zap.String("title", job.Title),
				zap.Error(err))
			firstErr = keepFirst(firstErr, fmt.Errorf("publishing to NATS: %w", err))
			continue
		}
		published++
	}

	if published > 0 {
		if err := p.conn.FlushWithContext(ctx); err != nil {
			firstErr = keepFirst(firstErr, fmt.Errorf("flushing NATS: %w", err))
		}
	}

	p.logger.Debug("published job events",
		zap.Int("published", published),
		zap.String("subject", NewJobsSubject))
	return firstErr
}

func (p *natsPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}

func keepFirst(first, err error) error {
	if first != nil {
		return first
	}
	return err
}
