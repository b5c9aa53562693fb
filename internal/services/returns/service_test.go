package returns

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/BearBump/BoaTracking/internal/broker/messages"
	"github.com/BearBump/BoaTracking/internal/clock"
	"github.com/BearBump/BoaTracking/internal/models"
	"github.com/BearBump/BoaTracking/internal/storage/sqlitestore"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
	last   any
}

func (p *recordingPublisher) Publish(_ context.Context, eventType, key string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType+":"+key)
	p.last = payload
}

type recordingCache struct {
	dropped []string
}

func (c *recordingCache) Invalidate(_ context.Context, trackingNumber string) {
	c.dropped = append(c.dropped, trackingNumber)
}

type fixture struct {
	st    *sqlitestore.Storage
	svc   *Service
	pub   *recordingPublisher
	cache *recordingCache
	clock *clock.Fixed
	ctx   context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := sqlitestore.New(filepath.Join(t.TempDir(), "boa.db"))
	require.NoError(t, err)
	t.Cleanup(st.Close)

	f := &fixture{
		st:    st,
		pub:   &recordingPublisher{},
		cache: &recordingCache{},
		clock: clock.NewFixed(time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)),
		ctx:   context.Background(),
	}
	f.svc = New(st, f.pub, f.cache, f.clock)
	return f
}

func (f *fixture) pkg(t *testing.T, tn string, status models.PackageStatus) {
	t.Helper()
	_, err := f.st.CreatePackage(f.ctx, models.PackageCreateInput{
		TrackingNumber: tn, Status: status, Priority: "normal", SenderName: "Ana", Cost: 25, Weight: 2,
	}, f.clock.Now())
	require.NoError(t, err)
}

func validInput(tn string) models.ReturnRequestInput {
	return models.ReturnRequestInput{UserEmail: "ana@boa.bo", TrackingNumber: tn, FirstName: "Ana", LastName: "Rojas", Reason: "Dañado"}
}

func TestRequest_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Request(f.ctx, models.ReturnRequestInput{UserEmail: "ana@boa.bo"})
	require.EqualError(t, err, "Todos los campos son requeridos.")

	_, err = f.svc.Request(f.ctx, validInput("BOA-NOPE"))
	require.ErrorIs(t, err, models.ErrNotFound)

	f.pkg(t, "BOA-2025-0001", models.PackageStatusInTransit)
	_, err = f.svc.Request(f.ctx, validInput("BOA-2025-0001"))
	require.ErrorIs(t, err, models.ErrValidation)
	require.EqualError(t, err, "No se puede solicitar la devolución. Estado actual: en_transito.")
}

func TestApprove_ArchivesAndDeletesPackage(t *testing.T) {
	f := newFixture(t)
	f.pkg(t, "BOA-2025-0002", models.PackageStatusReceived)
	_, err := f.st.AddTrackingEvent(f.ctx, models.TrackingEventInput{
		TrackingNumber: "BOA-2025-0002", EventType: models.PackageStatusReceived, Location: "La Paz",
	}, f.clock.Now())
	require.NoError(t, err)

	id, err := f.svc.Request(f.ctx, validInput("BOA-2025-0002"))
	require.NoError(t, err)

	ret, err := f.svc.Approve(f.ctx, id)
	require.NoError(t, err)
	require.Equal(t, "RTN-1751371200000", ret.ReturnTrackingNumber)
	require.Equal(t, "BOA-2025-0002", ret.OriginalTrackingNumber)

	_, err = f.st.GetPackageByTracking(f.ctx, "BOA-2025-0002")
	require.ErrorIs(t, err, models.ErrNotFound)

	archive, err := f.svc.ListArchive(f.ctx)
	require.NoError(t, err)
	require.Len(t, archive, 1)
	require.Equal(t, "BOA-2025-0002", archive[0].OriginalTrackingNumber)

	reqs, err := f.svc.ListRequestsByEmail(f.ctx, "ana@boa.bo")
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	require.Equal(t, models.ReturnApproved, reqs[0].Status)
	require.Equal(t, "RTN-1751371200000", *reqs[0].ReturnTrackingNumber)

	require.Equal(t, []string{"BOA-2025-0002"}, f.cache.dropped)
	require.Equal(t, []string{messages.TypeReturnApproved + ":BOA-2025-0002"}, f.pub.events)

	// decided once
	_, err = f.svc.Approve(f.ctx, id)
	require.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestReject(t *testing.T) {
	f := newFixture(t)
	f.pkg(t, "BOA-2025-0003", models.PackageStatusPending)
	id, err := f.svc.Request(f.ctx, validInput("BOA-2025-0003"))
	require.NoError(t, err)

	err = f.svc.Reject(f.ctx, id, "  ")
	require.EqualError(t, err, "El motivo del rechazo es requerido.")

	pending, err := f.svc.ListRequests(f.ctx, "pending")
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, f.svc.Reject(f.ctx, id, "Fuera de plazo"))
	rejected, err := f.svc.ListRequests(f.ctx, "rejected")
	require.NoError(t, err)
	require.Len(t, rejected, 1)
	require.Equal(t, "Fuera de plazo", *rejected[0].RejectionComment)

	// package untouched
	_, err = f.st.GetPackageByTracking(f.ctx, "BOA-2025-0003")
	require.NoError(t, err)

	err = f.svc.Reject(f.ctx, 999, "x")
	require.ErrorIs(t, err, models.ErrNotFound)

	all, err := f.svc.ListRequests(f.ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 1)
}
