package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/you/campus-resource-hub/internal/domain"
)

func seedResource(t *testing.T, gdb *gorm.DB, ownerID string, requiresApproval bool) *domain.Resource {
	t.Helper()
	res := &domain.Resource{
		OwnerID:          ownerID,
		Title:            "Auditorium A",
		Category:         "room",
		Capacity:         80,
		RequiresApproval: requiresApproval,
		Status:           domain.ResourcePublished,
	}
	require.NoError(t, NewResourceRepo(gdb).Create(context.Background(), res))
	return res
}

func window(day int, fromHour, toHour int) (time.Time, time.Time) {
	base := time.Date(2026, 3, day, 0, 0, 0, 0, time.UTC)
	return base.Add(time.Duration(fromHour) * time.Hour), base.Add(time.Duration(toHour) * time.Hour)
}

func TestCreateWithNoConflictInvalidWindow(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewBookingRepo(gdb)
	res := seedResource(t, gdb, "staff-1", true)

	start, end := window(2, 10, 11)
	err := repo.CreateWithNoConflict(context.Background(), &domain.Booking{
		ResourceID:  res.ID,
		RequesterID: "student-1",
		StartTime:   end,
		EndTime:     start,
		Status:      domain.StatusPending,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidWindow)

	err = repo.CreateWithNoConflict(context.Background(), &domain.Booking{
		ResourceID:  res.ID,
		RequesterID: "student-1",
		StartTime:   start,
		EndTime:     start,
		Status:      domain.StatusPending,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidWindow)
}

func TestConflictDetection(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewBookingRepo(gdb)
	res := seedResource(t, gdb, "staff-1", true)
	ctx := context.Background()

	// A: [10:00, 11:00) pending
	aStart, aEnd := window(2, 10, 11)
	a := &domain.Booking{ResourceID: res.ID, RequesterID: "alice", StartTime: aStart, EndTime: aEnd, Status: domain.StatusPending}
	require.NoError(t, repo.CreateWithNoConflict(ctx, a))

	// B: [10:30, 11:30) overlaps while A is pending
	bStart := aStart.Add(30 * time.Minute)
	bEnd := bStart.Add(time.Hour)
	err := repo.CreateWithNoConflict(ctx, &domain.Booking{
		ResourceID: res.ID, RequesterID: "ben", StartTime: bStart, EndTime: bEnd, Status: domain.StatusPending,
	})
	assert.ErrorIs(t, err, domain.ErrConflict)

	// approved bookings block too
	_, _, err = repo.Transition(ctx, a.ID, domain.StatusApproved, "ok")
	require.NoError(t, err)
	err = repo.CreateWithNoConflict(ctx, &domain.Booking{
		ResourceID: res.ID, RequesterID: "ben", StartTime: bStart, EndTime: bEnd, Status: domain.StatusPending,
	})
	assert.ErrorIs(t, err, domain.ErrConflict)

	// C: [11:00, 12:00) touches A at the boundary; half-open windows do not intersect
	cStart, cEnd := window(2, 11, 12)
	c := &domain.Booking{ResourceID: res.ID, RequesterID: "cara", StartTime: cStart, EndTime: cEnd, Status: domain.StatusPending}
	assert.NoError(t, repo.CreateWithNoConflict(ctx, c))

	// same window on another resource is fine
	other := seedResource(t, gdb, "staff-2", true)
	assert.NoError(t, repo.CreateWithNoConflict(ctx, &domain.Booking{
		ResourceID: other.ID, RequesterID: "ben", StartTime: bStart, EndTime: bEnd, Status: domain.StatusPending,
	}))
}

func TestConcurrentAdmissionSingleWinner(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewBookingRepo(gdb)
	res := seedResource(t, gdb, "staff-1", true)
	start, end := window(2, 10, 11)

	// every request targets the same free window; exactly one may win
	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.CreateWithNoConflict(context.Background(), &domain.Booking{
				ResourceID:  res.ID,
				RequesterID: fmt.Sprintf("student-%d", i),
				StartTime:   start,
				EndTime:     end,
				Status:      domain.StatusPending,
			})
		}(i)
	}
	wg.Wait()

	admitted := 0
	for _, err := range errs {
		if err == nil {
			admitted++
			continue
		}
		require.ErrorIs(t, err, domain.ErrConflict)
	}
	assert.Equal(t, 1, admitted)

	var count int64
	require.NoError(t, gdb.Model(&domain.Booking{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSerializationAbortReadsAsConflict(t *testing.T) {
	// the serializable admission transaction loses the race as SQLSTATE
	// 40001, which callers must see as a booking conflict
	assert.True(t, isSerializationFailure(&pgconn.PgError{Code: "40001"}))
	assert.False(t, isSerializationFailure(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isSerializationFailure(gorm.ErrRecordNotFound))
}

func TestNonBlockingStatusesNeverBlock(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewBookingRepo(gdb)
	res := seedResource(t, gdb, "staff-1", true)
	ctx := context.Background()

	start, end := window(3, 9, 12)
	a := &domain.Booking{ResourceID: res.ID, RequesterID: "alice", StartTime: start, EndTime: end, Status: domain.StatusPending}
	require.NoError(t, repo.CreateWithNoConflict(ctx, a))
	_, _, err := repo.Transition(ctx, a.ID, domain.StatusCancelled, "")
	require.NoError(t, err)

	// cancelled booking no longer blocks the same window
	b := &domain.Booking{ResourceID: res.ID, RequesterID: "ben", StartTime: start, EndTime: end, Status: domain.StatusPending}
	require.NoError(t, repo.CreateWithNoConflict(ctx, b))
	_, _, err = repo.Transition(ctx, b.ID, domain.StatusRejected, "no")
	require.NoError(t, err)

	// rejected does not block either
	assert.NoError(t, repo.CreateWithNoConflict(ctx, &domain.Booking{
		ResourceID: res.ID, RequesterID: "cara", StartTime: start, EndTime: end, Status: domain.StatusPending,
	}))
}

func TestFindOverlapping(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewBookingRepo(gdb)
	res := seedResource(t, gdb, "staff-1", true)
	ctx := context.Background()

	start, end := window(4, 14, 16)
	a := &domain.Booking{ResourceID: res.ID, RequesterID: "alice", StartTime: start, EndTime: end, Status: domain.StatusPending}
	require.NoError(t, repo.CreateWithNoConflict(ctx, a))

	hits, err := repo.FindOverlapping(ctx, res.ID, start.Add(time.Hour), end.Add(time.Hour), domain.BlockingStatuses)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, a.ID, hits[0].ID)

	// query restricted to statuses the booking does not hold
	hits, err = repo.FindOverlapping(ctx, res.ID, start, end, []domain.BookingStatus{domain.StatusCompleted})
	require.NoError(t, err)
	assert.Empty(t, hits)

	// adjacent window: no intersection
	hits, err = repo.FindOverlapping(ctx, res.ID, end, end.Add(time.Hour), domain.BlockingStatuses)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestTransitionLegality(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewBookingRepo(gdb)
	res := seedResource(t, gdb, "staff-1", true)
	ctx := context.Background()

	start, end := window(5, 10, 11)
	b := &domain.Booking{ResourceID: res.ID, RequesterID: "alice", StartTime: start, EndTime: end, Status: domain.StatusPending}
	require.NoError(t, repo.CreateWithNoConflict(ctx, b))

	// pending cannot complete
	_, _, err := repo.Transition(ctx, b.ID, domain.StatusCompleted, "")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	updated, from, err := repo.Transition(ctx, b.ID, domain.StatusApproved, "have fun")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, from)
	assert.Equal(t, domain.StatusApproved, updated.Status)
	assert.Equal(t, "have fun", updated.ApprovalNotes)

	// the returned booking is the stored row, not a patched stale copy
	fresh, err := repo.ByID(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, updated.UpdatedAt.Equal(fresh.UpdatedAt))
	assert.Equal(t, fresh.ApprovalNotes, updated.ApprovalNotes)

	// approve is not legal twice
	_, _, err = repo.Transition(ctx, b.ID, domain.StatusApproved, "")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	// completed is absorbing
	_, _, err = repo.Transition(ctx, b.ID, domain.StatusCompleted, "")
	require.NoError(t, err)
	for _, to := range []domain.BookingStatus{domain.StatusPending, domain.StatusApproved, domain.StatusCancelled, domain.StatusCompleted} {
		_, _, err = repo.Transition(ctx, b.ID, to, "")
		assert.ErrorIs(t, err, domain.ErrInvalidTransition, "completed -> %s", to)
	}

	_, _, err = repo.Transition(ctx, "no-such-id", domain.StatusApproved, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPendingQueues(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewBookingRepo(gdb)
	mine := seedResource(t, gdb, "owner-1", true)
	theirs := seedResource(t, gdb, "owner-2", true)
	ctx := context.Background()

	s1, e1 := window(6, 9, 10)
	s2, e2 := window(6, 11, 12)
	require.NoError(t, repo.CreateWithNoConflict(ctx, &domain.Booking{
		ResourceID: mine.ID, RequesterID: "alice", StartTime: s1, EndTime: e1, Status: domain.StatusPending,
	}))
	require.NoError(t, repo.CreateWithNoConflict(ctx, &domain.Booking{
		ResourceID: theirs.ID, RequesterID: "ben", StartTime: s2, EndTime: e2, Status: domain.StatusPending,
	}))

	all, err := repo.ListPending(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	scoped, err := repo.ListPendingForOwner(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, mine.ID, scoped[0].ResourceID)
}
