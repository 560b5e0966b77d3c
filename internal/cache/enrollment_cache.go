package cache

import (
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"

	"github.com/bits-and-blooms/bloom/v3"

	"gitlab.com/leadpilot/api/outreach-crm-service/internal/model"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/observer"
)

// EnrollmentCache uses dual bloom filters for fast enrollment dedup checks.
// A recipient+sequence pair that tests positive in the enrolled filter has
// probably been enrolled before and gets a storage double-check; a definite
// negative skips storage entirely.
type EnrollmentCache struct {
	enrolledFilter *bloom.BloomFilter // Tracks recipient+sequence pairs already enrolled
	nonExistFilter *bloom.BloomFilter // Tracks recipient IDs known to be absent from storage
	mu             sync.RWMutex
	hits           atomic.Int64
	misses         atomic.Int64
	falsePositives atomic.Int64
	companyID      string
}

// NewEnrollmentCache creates a new dual bloom filter cache
func NewEnrollmentCache(companyID string, expectedEnrolled, expectedNonExist uint, fpRate float64) *EnrollmentCache {
	return &EnrollmentCache{
		enrolledFilter: bloom.NewWithEstimates(expectedEnrolled, fpRate),
		nonExistFilter: bloom.NewWithEstimates(expectedNonExist, fpRate),
		companyID:      companyID,
	}
}

// generateKey creates a cache key from a recipient and sequence ID using FNV-1a hash
func (c *EnrollmentCache) generateKey(recipient model.Recipient, sequenceID string) string {
	h := fnv.New64a()
	h.Write([]byte(string(recipient.Kind) + ":" + recipient.ID + ":" + sequenceID))
	return fmt.Sprintf("%x", h.Sum64())
}

// CheckEnrollmentStatus performs a fast check of a recipient's enrollment status
func (c *EnrollmentCache) CheckEnrollmentStatus(recipient model.Recipient, sequenceID string) EnrollmentStatus {
	key := c.generateKey(recipient, sequenceID)

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.enrolledFilter.TestString(key) {
		// Might be enrolled (possible false positive)
		observer.IncCacheCheck(c.companyID, "bloom_enrolled", "possible_hit")
		return StatusMaybeEnrolled
	}

	if c.nonExistFilter.TestString(recipient.ID) {
		// Might not exist (possible false positive)
		observer.IncCacheCheck(c.companyID, "bloom_nonexist", "possible_hit")
		return StatusMaybeNotExist
	}

	c.misses.Add(1)
	observer.IncCacheCheck(c.companyID, "bloom", "miss")
	return StatusUnknown
}

// MarkEnrolled marks a recipient+sequence pair as enrolled
func (c *EnrollmentCache) MarkEnrolled(recipient model.Recipient, sequenceID string) {
	key := c.generateKey(recipient, sequenceID)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.enrolledFilter.AddString(key)
	c.hits.Add(1)
}

// MarkNonExistent marks a recipient ID as absent from storage
func (c *EnrollmentCache) MarkNonExistent(recipient model.Recipient) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nonExistFilter.AddString(recipient.ID)
}

// RecordFalsePositive tracks when a bloom filter gave an incorrect positive
func (c *EnrollmentCache) RecordFalsePositive(filterType string) {
	c.falsePositives.Add(1)
	observer.IncCacheCheck(c.companyID, "bloom_"+filterType, "false_positive")
}

// GetStats returns cache statistics
func (c *EnrollmentCache) GetStats() EnrollmentCacheStats {
	hits := c.hits.Load()
	misses := c.misses.Load()
	fps := c.falsePositives.Load()
	total := hits + misses

	hitRate := float64(0)
	if total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	fpRate := float64(0)
	if total > 0 {
		fpRate = float64(fps) / float64(total)
	}

	c.mu.RLock()
	enrolledSize := c.enrolledFilter.ApproximatedSize()
	nonExistSize := c.nonExistFilter.ApproximatedSize()
	c.mu.RUnlock()

	return EnrollmentCacheStats{
		Hits:              hits,
		Misses:            misses,
		HitRate:           hitRate,
		FalsePositives:    fps,
		FalsePositiveRate: fpRate,
		EnrolledSize:      uint64(enrolledSize),
		NonExistSize:      uint64(nonExistSize),
	}
}

// EnrollmentStatus represents the cache check result
type EnrollmentStatus int

const (
	StatusUnknown EnrollmentStatus = iota
	StatusMaybeEnrolled
	StatusMaybeNotExist
)

type EnrollmentCacheStats struct {
	Hits              int64
	Misses            int64
	HitRate           float64
	FalsePositives    int64
	FalsePositiveRate float64
	EnrolledSize      uint64
	NonExistSize      uint64
}
