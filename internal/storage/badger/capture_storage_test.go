package badger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/kruemmel-python/WebCrawler-Pro/internal/interfaces"
	"github.com/kruemmel-python/WebCrawler-Pro/internal/models"
)

func newTestCaptureStorage(t *testing.T) interfaces.CaptureStorage {
	t.Helper()

	options := badgerhold.DefaultOptions
	options.Dir = t.TempDir()
	options.ValueDir = options.Dir
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	db := &BadgerDB{store: store}
	return NewCaptureStorage(db, arbor.NewLogger())
}

func TestUpsertReplacesByURL(t *testing.T) {
	storage := newTestCaptureStorage(t)
	ctx := context.Background()

	first := &models.CaptureRecord{
		URL:    "https://example.com/page",
		Domain: "example.com",
		Title:  "First capture",
	}
	if err := storage.UpsertCapture(ctx, first); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}

	second := &models.CaptureRecord{
		URL:    "https://example.com/page",
		Domain: "example.com",
		Title:  "Second capture",
	}
	if err := storage.UpsertCapture(ctx, second); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	got, err := storage.GetCapture(ctx, "https://example.com/page")
	if err != nil {
		t.Fatalf("GetCapture failed: %v", err)
	}
	if got.Title != "Second capture" {
		t.Errorf("title = %q, latest capture must win", got.Title)
	}

	count, err := storage.CountCaptures(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1 record per URL", count)
	}
}

func TestGetCaptureNotFound(t *testing.T) {
	storage := newTestCaptureStorage(t)

	_, err := storage.GetCapture(context.Background(), "https://never.example.com")
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListCapturesNewestFirst(t *testing.T) {
	storage := newTestCaptureStorage(t)
	ctx := context.Background()

	base := time.Now()
	for i, url := range []string{"https://a.example.com", "https://b.example.com", "https://c.example.com"} {
		capture := &models.CaptureRecord{
			URL:        url,
			Domain:     "example.com",
			CapturedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := storage.UpsertCapture(ctx, capture); err != nil {
			t.Fatal(err)
		}
	}

	captures, err := storage.ListCaptures(ctx, 2)
	if err != nil {
		t.Fatalf("ListCaptures failed: %v", err)
	}
	if len(captures) != 2 {
		t.Fatalf("len = %d, want limit applied", len(captures))
	}
	if captures[0].URL != "https://c.example.com" {
		t.Errorf("first capture = %s, want newest", captures[0].URL)
	}
}

func TestUpsertRequiresURL(t *testing.T) {
	storage := newTestCaptureStorage(t)

	err := storage.UpsertCapture(context.Background(), &models.CaptureRecord{})
	if !errors.Is(err, models.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}
