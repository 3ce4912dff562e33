package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/arbor"

	"github.com/kruemmel-python/WebCrawler-Pro/internal/common"
)

func newTestLimiter(limit int) (*Service, *time.Time) {
	cfg := common.NewDefaultConfig()
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.RequestsPerMinute = limit

	svc := NewService(cfg, arbor.NewLogger())
	now := time.Now()
	svc.now = func() time.Time { return now }
	return svc, &now
}

func TestAllowUpToLimit(t *testing.T) {
	svc, _ := newTestLimiter(20)

	for i := 0; i < 20; i++ {
		assert.True(t, svc.Allow("key-1"), "request %d should be admitted", i+1)
	}
	assert.False(t, svc.Allow("key-1"), "request 21 must be denied")
}

func TestDeniedRequestDoesNotConsumeQuota(t *testing.T) {
	svc, now := newTestLimiter(2)

	assert.True(t, svc.Allow("key-1"))
	assert.True(t, svc.Allow("key-1"))
	assert.False(t, svc.Allow("key-1"))
	assert.False(t, svc.Allow("key-1"))

	// Only the two admitted requests occupy the window; once they age
	// out the full quota is back.
	*now = now.Add(61 * time.Second)
	assert.True(t, svc.Allow("key-1"))
	assert.True(t, svc.Allow("key-1"))
	assert.False(t, svc.Allow("key-1"))
}

func TestWindowSlides(t *testing.T) {
	svc, now := newTestLimiter(2)

	assert.True(t, svc.Allow("key-1"))
	*now = now.Add(30 * time.Second)
	assert.True(t, svc.Allow("key-1"))
	assert.False(t, svc.Allow("key-1"))

	// 31s later the first timestamp has left the window, the second has not.
	*now = now.Add(31 * time.Second)
	assert.True(t, svc.Allow("key-1"))
	assert.False(t, svc.Allow("key-1"))
}

func TestCredentialsAreIndependent(t *testing.T) {
	svc, _ := newTestLimiter(1)

	assert.True(t, svc.Allow("key-1"))
	assert.False(t, svc.Allow("key-1"))
	assert.True(t, svc.Allow("key-2"))
}

func TestRemaining(t *testing.T) {
	svc, _ := newTestLimiter(3)

	assert.Equal(t, 3, svc.Remaining("key-1"))
	svc.Allow("key-1")
	assert.Equal(t, 2, svc.Remaining("key-1"))
	svc.Allow("key-1")
	svc.Allow("key-1")
	assert.Equal(t, 0, svc.Remaining("key-1"))
}

func TestDisabledLimiterAdmitsEverything(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.RateLimit.Enabled = false
	cfg.RateLimit.RequestsPerMinute = 1
	svc := NewService(cfg, arbor.NewLogger())

	for i := 0; i < 100; i++ {
		assert.True(t, svc.Allow("key-1"))
	}
}
