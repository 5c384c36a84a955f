package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/you/campus-resource-hub/internal/domain"
	"github.com/you/campus-resource-hub/internal/repository"
	"github.com/you/campus-resource-hub/pkg/clock"
	"github.com/you/campus-resource-hub/pkg/obs"
)

// recordingPublisher captures published events for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

type publishedEvent struct {
	Key     string
	Payload any
}

func (p *recordingPublisher) PublishJSON(_ context.Context, key string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Key: key, Payload: v})
	return nil
}

func (p *recordingPublisher) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Key
	}
	return out
}

type fixture struct {
	bookings  *BookingSvc
	messaging *MessagingSvc
	resources *ResourceSvc

	bookingRepo  *repository.BookingRepo
	resourceRepo *repository.ResourceRepo
	messageRepo  *repository.MessageRepo
	auditRepo    *repository.AuditRepo

	clk *clock.Fixed
	pub *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	bookingRepo := repository.NewBookingRepo(gdb)
	resourceRepo := repository.NewResourceRepo(gdb)
	messageRepo := repository.NewMessageRepo(gdb)
	auditRepo := repository.NewAuditRepo(gdb)
	for _, m := range []interface{ Migrate() error }{bookingRepo, resourceRepo, messageRepo, auditRepo} {
		require.NoError(t, m.Migrate())
	}

	clk := &clock.Fixed{T: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	pub := &recordingPublisher{}
	metrics := obs.NewMetrics(prometheus.NewRegistry())

	return &fixture{
		bookings:     NewBookingSvc(bookingRepo, resourceRepo, auditRepo, pub, clk, metrics),
		messaging:    NewMessagingSvc(messageRepo, bookingRepo, resourceRepo, pub, clk, metrics),
		resources:    NewResourceSvc(resourceRepo),
		bookingRepo:  bookingRepo,
		resourceRepo: resourceRepo,
		messageRepo:  messageRepo,
		auditRepo:    auditRepo,
		clk:          clk,
		pub:          pub,
	}
}

func (f *fixture) seedResource(t *testing.T, ownerID string, requiresApproval bool) *domain.Resource {
	t.Helper()
	res := &domain.Resource{
		OwnerID:          ownerID,
		Title:            "Study Room",
		Category:         "room",
		Status:           domain.ResourcePublished,
		RequiresApproval: requiresApproval,
	}
	require.NoError(t, f.resourceRepo.Create(context.Background(), res))
	return res
}

var (
	student = domain.Actor{ID: "stu-1", Role: domain.RoleStudent}
	staff   = domain.Actor{ID: "staff-1", Role: domain.RoleStaff}
	admin   = domain.Actor{ID: "adm-1", Role: domain.RoleAdmin}
)
