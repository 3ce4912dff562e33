package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/kruemmel-python/WebCrawler-Pro/internal/interfaces"
	"github.com/kruemmel-python/WebCrawler-Pro/internal/models"
)

// CaptureStorage persists captured page content in Badger, keyed by URL.
type CaptureStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewCaptureStorage creates a new CaptureStorage instance.
func NewCaptureStorage(db *BadgerDB, logger arbor.ILogger) interfaces.CaptureStorage {
	return &CaptureStorage{
		db:     db,
		logger: logger,
	}
}

// UpsertCapture stores a capture, replacing any previous capture of the
// same URL.
func (s *CaptureStorage) UpsertCapture(ctx context.Context, capture *models.CaptureRecord) error {
	if capture.URL == "" {
		return fmt.Errorf("%w: capture URL is required", models.ErrValidation)
	}
	if capture.CapturedAt.IsZero() {
		capture.CapturedAt = time.Now()
	}

	err := s.db.Store().Badger().Update(func(tx *badgerdb.Txn) error {
		return s.db.Store().TxUpsert(tx, capture.URL, capture)
	})
	if err != nil {
		return fmt.Errorf("%w: failed to store capture for %s: %v", models.ErrPersistence, capture.URL, err)
	}

	s.logger.Debug().Str("url", capture.URL).Str("domain", capture.Domain).Msg("Capture stored")
	return nil
}

// GetCapture returns the capture for a URL or models.ErrNotFound.
func (s *CaptureStorage) GetCapture(ctx context.Context, url string) (*models.CaptureRecord, error) {
	var capture models.CaptureRecord
	if err := s.db.Store().Get(url, &capture); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("%w: capture %s", models.ErrNotFound, url)
		}
		return nil, fmt.Errorf("%w: failed to get capture %s: %v", models.ErrPersistence, url, err)
	}
	return &capture, nil
}

// ListCaptures returns captures newest first, up to limit (0 means all).
func (s *CaptureStorage) ListCaptures(ctx context.Context, limit int) ([]*models.CaptureRecord, error) {
	var captures []models.CaptureRecord
	query := badgerhold.Where("URL").Ne("").SortBy("CapturedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := s.db.Store().Find(&captures, query); err != nil {
		return nil, fmt.Errorf("%w: failed to list captures: %v", models.ErrPersistence, err)
	}

	result := make([]*models.CaptureRecord, len(captures))
	for i := range captures {
		result[i] = &captures[i]
	}
	return result, nil
}

// CountCaptures returns the number of stored captures.
func (s *CaptureStorage) CountCaptures(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(models.CaptureRecord{}, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to count captures: %v", models.ErrPersistence, err)
	}
	return int(count), nil
}
