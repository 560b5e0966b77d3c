package cache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"gitlab.com/leadpilot/api/outreach-crm-service/internal/model"
)

func newTestCache() *EnrollmentCache {
	return NewEnrollmentCache("company-1", 1000, 1000, 0.01)
}

func TestCheckEnrollmentStatus_UnknownByDefault(t *testing.T) {
	c := newTestCache()
	status := c.CheckEnrollmentStatus(model.LeadRecipient("lead-1"), "seq-1")
	assert.Equal(t, StatusUnknown, status)
}

func TestCheckEnrollmentStatus_AfterMarkEnrolled(t *testing.T) {
	c := newTestCache()
	recipient := model.LeadRecipient("lead-1")

	c.MarkEnrolled(recipient, "seq-1")

	assert.Equal(t, StatusMaybeEnrolled, c.CheckEnrollmentStatus(recipient, "seq-1"))
	// Same recipient on a different sequence is a separate key.
	assert.Equal(t, StatusUnknown, c.CheckEnrollmentStatus(recipient, "seq-2"))
}

func TestCheckEnrollmentStatus_KindDisambiguatesIDs(t *testing.T) {
	// A lead and a district contact sharing the same raw ID must not collide.
	c := newTestCache()
	c.MarkEnrolled(model.LeadRecipient("id-42"), "seq-1")

	assert.Equal(t, StatusUnknown, c.CheckEnrollmentStatus(model.DistrictContactRecipient("id-42"), "seq-1"))
}

func TestCheckEnrollmentStatus_AfterMarkNonExistent(t *testing.T) {
	c := newTestCache()
	recipient := model.LeadRecipient("lead-missing")

	c.MarkNonExistent(recipient)

	assert.Equal(t, StatusMaybeNotExist, c.CheckEnrollmentStatus(recipient, "seq-1"))
}

func TestGetStats(t *testing.T) {
	c := newTestCache()

	c.CheckEnrollmentStatus(model.LeadRecipient("lead-1"), "seq-1") // miss
	c.MarkEnrolled(model.LeadRecipient("lead-1"), "seq-1")          // hit
	c.RecordFalsePositive("enrolled")

	stats := c.GetStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.FalsePositives)
	assert.InDelta(t, 0.5, stats.HitRate, 0.001)
}

func TestGetStats_FilterSizes(t *testing.T) {
	c := newTestCache()

	empty := c.GetStats()
	assert.Equal(t, uint64(0), empty.EnrolledSize)
	assert.Equal(t, uint64(0), empty.NonExistSize)

	for i := 0; i < 100; i++ {
		c.MarkEnrolled(model.LeadRecipient(fmt.Sprintf("lead-%d", i)), "seq-1")
	}
	c.MarkNonExistent(model.LeadRecipient("lead-missing"))

	stats := c.GetStats()
	// ApproximatedSize is an estimate; it just has to reflect the inserts.
	assert.Greater(t, stats.EnrolledSize, uint64(0))
	assert.Greater(t, stats.NonExistSize, uint64(0))
	assert.Greater(t, stats.EnrolledSize, stats.NonExistSize)
}

func TestEnrollmentCache_NoFalseNegatives(t *testing.T) {
	// Bloom filters may report false positives but never false negatives:
	// every marked pair must test positive.
	c := newTestCache()
	for i := 0; i < 500; i++ {
		c.MarkEnrolled(model.LeadRecipient(fmt.Sprintf("lead-%d", i)), "seq-1")
	}
	for i := 0; i < 500; i++ {
		status := c.CheckEnrollmentStatus(model.LeadRecipient(fmt.Sprintf("lead-%d", i)), "seq-1")
		assert.Equal(t, StatusMaybeEnrolled, status, "lead-%d must test positive", i)
	}
}
