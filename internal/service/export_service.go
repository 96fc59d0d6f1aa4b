package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/backoffice-console/internal/models"
	appErrors "github.com/noah-isme/backoffice-console/pkg/errors"
	"github.com/noah-isme/backoffice-console/pkg/export"
	"github.com/noah-isme/backoffice-console/pkg/jobs"
	"github.com/noah-isme/backoffice-console/pkg/storage"
)

type fileStorage interface {
	Save(name string, data []byte) (string, error)
	Open(name string) (*os.File, error)
	Delete(name string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
	Workers   int
}

type exportPayload struct {
	format  export.Format
	dataset export.Dataset
}

// ExportService renders a screen's visible rows to CSV or PDF in the
// background and hands out signed download links.
type ExportService struct {
	storage fileStorage
	signer  *storage.SignedURLSigner
	queue   *jobs.Queue
	logger  *zap.Logger
	cfg     ExportConfig
	now     func() time.Time

	mu      sync.RWMutex
	exports map[string]*models.ExportJob
}

// NewExportService constructs an ExportService. Start must be called before Submit.
func NewExportService(store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = signer.TTL()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	s := &ExportService{
		storage: store,
		signer:  signer,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
		exports: make(map[string]*models.ExportJob),
	}
	s.queue = jobs.NewQueue("exports", s.process, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: 2,
		RetryDelay: 500 * time.Millisecond,
		Logger:     logger,
	})
	return s
}

// Start launches the export workers.
func (s *ExportService) Start(ctx context.Context) { s.queue.Start(ctx) }

// Stop waits for the export workers to exit.
func (s *ExportService) Stop() { s.queue.Stop() }

// Submit queues an export of dataset and returns the queued job.
func (s *ExportService) Submit(screen, requestedBy string, format export.Format, dataset export.Dataset) (*models.ExportJob, error) {
	job := &models.ExportJob{
		ID:          uuid.NewString(),
		Screen:      screen,
		Format:      string(format),
		Status:      models.ExportQueued,
		RowCount:    len(dataset.Rows),
		RequestedBy: requestedBy,
		CreatedAt:   s.now().UTC(),
	}
	s.mu.Lock()
	s.exports[job.ID] = job
	s.mu.Unlock()

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: screen, Payload: exportPayload{format: format, dataset: dataset}}); err != nil {
		s.update(job.ID, func(j *models.ExportJob) {
			j.Status = models.ExportFailed
			j.Error = err.Error()
		})
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "export queue unavailable")
	}
	s.logger.Info("export queued", zap.String("export_id", job.ID), zap.String("screen", screen), zap.String("format", job.Format), zap.Int("rows", job.RowCount))
	return s.Job(job.ID)
}

// Job returns a copy of the export's current state.
func (s *ExportService) Job(id string) (*models.ExportJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.exports[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export not found")
	}
	cp := *job
	return &cp, nil
}

// Open resolves a download token to the stored file.
func (s *ExportService) Open(token string) (*os.File, *models.ExportJob, error) {
	grant, err := s.signer.Verify(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "download link expired")
		}
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "download link invalid")
	}
	job, err := s.Job(grant.ExportID)
	if err != nil {
		return nil, nil, err
	}
	file, err := s.storage.Open(grant.Path)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export file no longer available")
	}
	return file, job, nil
}

// Cleanup removes rendered files older than the result TTL and forgets their jobs.
func (s *ExportService) Cleanup() ([]string, error) {
	deleted, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL)
	if err != nil {
		return nil, err
	}
	cutoff := s.now().Add(-s.cfg.ResultTTL)
	s.mu.Lock()
	for id, job := range s.exports {
		if job.CreatedAt.Before(cutoff) {
			delete(s.exports, id)
		}
	}
	s.mu.Unlock()
	if len(deleted) > 0 {
		s.logger.Info("expired exports removed", zap.Int("count", len(deleted)))
	}
	return deleted, nil
}

// RunCleanup calls Cleanup every interval until ctx is done.
func (s *ExportService) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Cleanup(); err != nil {
				s.logger.Warn("export cleanup failed", zap.Error(err))
			}
		}
	}
}

func (s *ExportService) process(_ context.Context, j jobs.Job) error {
	payload, ok := j.Payload.(exportPayload)
	if !ok {
		return jobs.Permanent(fmt.Errorf("unexpected export payload %T", j.Payload))
	}
	s.update(j.ID, func(e *models.ExportJob) { e.Status = models.ExportRunning })

	data, err := export.Render(payload.format, payload.dataset)
	if err != nil {
		s.fail(j.ID, err)
		return jobs.Permanent(err)
	}

	name := s.fileName(j.Type, j.ID, payload.format)
	path, err := s.storage.Save(name, data)
	if err != nil {
		if j.Attempt >= 2 {
			s.fail(j.ID, err)
		}
		return err
	}
	token, expiresAt, err := s.signer.Sign(j.ID, path)
	if err != nil {
		s.fail(j.ID, err)
		return jobs.Permanent(err)
	}

	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	done := s.now().UTC()
	s.update(j.ID, func(e *models.ExportJob) {
		e.Status = models.ExportCompleted
		e.FileName = name[strings.LastIndex(name, "/")+1:]
		e.URL = fmt.Sprintf("%s/downloads/%s", prefix, token)
		e.ExpiresAt = &expiresAt
		e.CompletedAt = &done
		e.Error = ""
	})
	s.logger.Info("export completed", zap.String("export_id", j.ID), zap.String("file", name), zap.Int("bytes", len(data)))
	return nil
}

func (s *ExportService) fail(id string, err error) {
	s.update(id, func(e *models.ExportJob) {
		e.Status = models.ExportFailed
		e.Error = err.Error()
	})
	s.logger.Error("export failed", zap.String("export_id", id), zap.Error(err))
}

func (s *ExportService) update(id string, fn func(*models.ExportJob)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.exports[id]; ok {
		fn(job)
	}
}

func (s *ExportService) fileName(screen, id string, format export.Format) string {
	ts := s.now().UTC().Format("20060102_150405")
	return fmt.Sprintf("%s/%s_%s_%s.%s", screen, screen, ts, id[:8], format)
}
