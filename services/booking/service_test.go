package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	bookingRepo "soothe/database/repository/booking"
	"soothe/models"
	"soothe/services/pricing"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func pendingAt(created time.Time) models.BookingRequest {
	return models.BookingRequest{
		ID:                 "b-1",
		CustomerID:         "cust-1",
		TherapistID:        "ther-1",
		ServiceID:          "swedish",
		DurationMinutes:    60,
		Price:              decimal.NewFromInt(80),
		Currency:           "usd",
		Status:             models.StatusPending,
		CreatedAt:          created,
		UpdatedAt:          created,
		AcceptanceDeadline: created.Add(120 * time.Second),
		Version:            1,
	}
}

type chargeFunc func(ctx context.Context, req models.PaymentRequest) (models.PaymentResult, error)

func (f chargeFunc) Charge(ctx context.Context, req models.PaymentRequest) (models.PaymentResult, error) {
	return f(ctx, req)
}

func approve(_ context.Context, req models.PaymentRequest) (models.PaymentResult, error) {
	return models.PaymentResult{Status: models.PaymentSucceeded, Reference: "pi_" + req.BookingID}, nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []models.BookingNotice
}

func (n *recordingNotifier) Notify(_ context.Context, notice models.BookingNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
	return nil
}

func (n *recordingNotifier) kinds(bookingID string) []models.NoticeKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []models.NoticeKind
	for _, notice := range n.notices {
		if notice.BookingID == bookingID {
			out = append(out, notice.Kind)
		}
	}
	return out
}

type recordingQueue struct {
	mu        sync.Mutex
	scheduled map[string]time.Time
	cancelled []string
}

func (q *recordingQueue) ScheduleExpiry(_ context.Context, id string, deadline time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.scheduled == nil {
		q.scheduled = make(map[string]time.Time)
	}
	q.scheduled[id] = deadline
	return nil
}

func (q *recordingQueue) CancelExpiry(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.cancelled = append(q.cancelled, id)
	return nil
}

type fixture struct {
	svc      *DefaultBookingService
	dir      *bookingRepo.MemoryDirectory
	clock    *clockwork.FakeClock
	notifier *recordingNotifier
	queue    *recordingQueue
}

func newFixture(t *testing.T, payments PaymentProcessor) *fixture {
	t.Helper()
	catalog, err := pricing.NewStaticCatalog(pricing.DefaultTiers())
	require.NoError(t, err)

	f := &fixture{
		dir:      bookingRepo.NewMemoryDirectory(),
		clock:    clockwork.NewFakeClockAt(start),
		notifier: &recordingNotifier{},
		queue:    &recordingQueue{},
	}
	f.svc = NewDefaultBookingService(Options{
		Directory: f.dir,
		Catalog:   catalog,
		Payments:  payments,
		Notifier:  f.notifier,
		Expiry:    f.queue,
		Clock:     f.clock,
		Logger:    zaptest.NewLogger(t),
		Currency:  "USD",
	})
	t.Cleanup(f.svc.Close)
	return f
}

func input(duration int) models.BookingRequestInput {
	return models.BookingRequestInput{
		TherapistID:     "ther-1",
		ServiceID:       "swedish",
		DurationMinutes: duration,
		ScheduledDate:   "2026-03-20",
		ScheduledTime:   "18:30",
		Address:         "12 Harbour Street, Apt 4",
		Coordinates:     models.Coordinates{Lat: 51.5072, Lon: -0.1276},
		ParkingNotes:    "Visitor bay 3",
	}
}

var (
	customer  = models.Principal{ID: "cust-1", Role: models.RoleCustomer}
	therapist = models.Principal{ID: "ther-1", Role: models.RoleTherapist}
)

func (f *fixture) status(t *testing.T, id string) models.BookingStatus {
	t.Helper()
	req, err := f.dir.Get(context.Background(), id)
	require.NoError(t, err)
	return req.Status
}

func (f *fixture) eventuallyStatus(t *testing.T, id string, want models.BookingStatus) {
	t.Helper()
	require.Eventually(t, func() bool { return f.status(t, id) == want }, time.Second, 5*time.Millisecond)
}

func TestCreateTwoHourSwedish(t *testing.T) {
	f := newFixture(t, chargeFunc(approve))
	ctx := context.Background()

	req, err := f.svc.Create(ctx, "cust-1", input(120))
	require.NoError(t, err)

	assert.NotEmpty(t, req.ID)
	assert.Equal(t, "160.00", req.Price.StringFixed(2))
	assert.Equal(t, "usd", req.Currency)
	assert.Equal(t, models.StatusPending, req.Status)
	assert.Equal(t, start.Add(120*time.Second), req.AcceptanceDeadline)
	assert.Equal(t, int64(1), req.Version)

	stored, err := f.svc.Get(ctx, customer, req.ID)
	require.NoError(t, err)
	assert.True(t, req.Price.Equal(stored.Price))

	remaining, err := f.svc.Remaining(ctx, customer, req.ID)
	require.NoError(t, err)
	assert.Equal(t, 120, remaining)

	assert.Equal(t, []models.NoticeKind{models.NoticeCreated}, f.notifier.kinds(req.ID))
	assert.Equal(t, req.AcceptanceDeadline, f.queue.scheduled[req.ID])
	assert.True(t, f.svc.timers.Armed(req.ID))
}

func TestCreateRejectsUnofferedDurations(t *testing.T) {
	f := newFixture(t, chargeFunc(approve))
	for _, d := range []int{0, 30, 75, 150, 180} {
		_, err := f.svc.Create(context.Background(), "cust-1", input(d))
		assert.ErrorIs(t, err, pricing.ErrInvalidDuration, "duration %d", d)
	}
	all, err := f.dir.ListByStatus(context.Background(), "", nil)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCreateValidatesInput(t *testing.T) {
	f := newFixture(t, chargeFunc(approve))
	ctx := context.Background()

	bad := input(60)
	bad.ScheduledDate = "20/03/2026"
	bad.Coordinates.Lat = 123
	_, err := f.svc.Create(ctx, "cust-1", bad)
	require.ErrorIs(t, err, ErrInvalidRequest)
	assert.Contains(t, err.Error(), "scheduledDate")
	assert.Contains(t, err.Error(), "coordinates")

	unknown := input(60)
	unknown.ServiceID = "hot-stone"
	_, err = f.svc.Create(ctx, "cust-1", unknown)
	assert.ErrorIs(t, err, pricing.ErrUnknownService)
}

func TestQuote(t *testing.T) {
	f := newFixture(t, nil)
	q, err := f.svc.Quote(context.Background(), models.QuoteInput{ServiceID: "deep-tissue", DurationMinutes: 90})
	require.NoError(t, err)
	assert.Equal(t, "140.00", q.Price.StringFixed(2))
	assert.Equal(t, "usd", q.Currency)

	_, err = f.svc.Quote(context.Background(), models.QuoteInput{ServiceID: "deep-tissue", DurationMinutes: 45})
	assert.ErrorIs(t, err, pricing.ErrInvalidDuration)
}

func TestAcceptBeforeDeadlineWinsOverTimer(t *testing.T) {
	f := newFixture(t, chargeFunc(approve))
	ctx := context.Background()
	req, err := f.svc.Create(ctx, "cust-1", input(60))
	require.NoError(t, err)

	f.clock.Advance(119 * time.Second)
	res, err := f.svc.Accept(ctx, "ther-1", req.ID)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, models.StatusAccepted, res.Status)
	assert.False(t, f.svc.timers.Armed(req.ID))
	assert.Contains(t, f.queue.cancelled, req.ID)

	f.clock.Advance(time.Second)
	res, err = f.svc.Expire(ctx, req.ID)
	require.NoError(t, err)
	assert.True(t, res.Stale)

	f.svc.Wait()
	stored, err := f.dir.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, stored.Status)
	assert.Equal(t, "pi_"+req.ID, stored.PaymentReference)
	require.NotNil(t, stored.RespondedAt)
	assert.Equal(t, start.Add(119*time.Second), *stored.RespondedAt)
	assert.Equal(t,
		[]models.NoticeKind{models.NoticeCreated, models.NoticeAccepted, models.NoticeConfirmed},
		f.notifier.kinds(req.ID))
}

func TestTimeoutThenLateAcceptIsStale(t *testing.T) {
	f := newFixture(t, chargeFunc(approve))
	ctx := context.Background()
	req, err := f.svc.Create(ctx, "cust-1", input(90))
	require.NoError(t, err)

	f.clock.Advance(120 * time.Second)
	f.eventuallyStatus(t, req.ID, models.StatusTimedOut)

	f.clock.Advance(time.Second)
	res, err := f.svc.Accept(ctx, "ther-1", req.ID)
	require.NoError(t, err)
	assert.True(t, res.Stale)
	assert.Equal(t, models.StatusTimedOut, res.Status)
	assert.Equal(t, models.StatusTimedOut, f.status(t, req.ID))

	remaining, err := f.svc.Remaining(ctx, therapist, req.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
}

func TestDeclineIsFinal(t *testing.T) {
	f := newFixture(t, chargeFunc(approve))
	ctx := context.Background()
	req, err := f.svc.Create(ctx, "cust-1", input(60))
	require.NoError(t, err)

	res, err := f.svc.Decline(ctx, "ther-1", req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDeclined, res.Status)

	res, err = f.svc.Accept(ctx, "ther-1", req.ID)
	require.NoError(t, err)
	assert.True(t, res.Stale)
	assert.Equal(t, models.StatusDeclined, res.Status)
}

func TestPaymentFailedThenSuccessIsStale(t *testing.T) {
	decline := chargeFunc(func(_ context.Context, req models.PaymentRequest) (models.PaymentResult, error) {
		assert.Equal(t, "booking-"+req.BookingID, req.IdempotencyKey)
		return models.PaymentResult{Status: models.PaymentFailed, Reference: "pi_declined", FailureReason: "card_declined"}, nil
	})
	f := newFixture(t, decline)
	ctx := context.Background()
	req, err := f.svc.Create(ctx, "cust-1", input(60))
	require.NoError(t, err)

	_, err = f.svc.Accept(ctx, "ther-1", req.ID)
	require.NoError(t, err)
	f.svc.Wait()
	assert.Equal(t, models.StatusPaymentFailed, f.status(t, req.ID))

	res, err := f.svc.RecordPayment(ctx, req.ID, models.TransitionEvent{Kind: models.EventPaymentSucceeded, PaymentReference: "pi_late"})
	require.NoError(t, err)
	assert.True(t, res.Stale)
	assert.Equal(t, models.StatusPaymentFailed, res.Status)
}

func TestPaymentProcessorErrorAwaitsWebhook(t *testing.T) {
	timedOut := chargeFunc(func(context.Context, models.PaymentRequest) (models.PaymentResult, error) {
		return models.PaymentResult{}, context.DeadlineExceeded
	})
	f := newFixture(t, timedOut)
	ctx := context.Background()
	req, err := f.svc.Create(ctx, "cust-1", input(60))
	require.NoError(t, err)

	_, err = f.svc.Accept(ctx, "ther-1", req.ID)
	require.NoError(t, err)
	f.svc.Wait()
	assert.Equal(t, models.StatusAccepted, f.status(t, req.ID))

	// The gateway charged the card after all.
	res, err := f.svc.RecordPayment(ctx, req.ID, models.TransitionEvent{Kind: models.EventPaymentSucceeded, PaymentReference: "pi_late"})
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, models.StatusConfirmed, res.Status)
	assert.Equal(t, []models.NoticeKind{models.NoticeCreated, models.NoticeAccepted, models.NoticeConfirmed}, f.notifier.kinds(req.ID))
}

// respondingDirectory lets a response land between the insert and the return of Create.
type respondingDirectory struct {
	*bookingRepo.MemoryDirectory
	afterCreate func(id string)
}

func (d *respondingDirectory) Create(ctx context.Context, req models.BookingRequest) (string, error) {
	id, err := d.MemoryDirectory.Create(ctx, req)
	if err == nil && d.afterCreate != nil {
		d.afterCreate(id)
	}
	return id, err
}

func TestResponseDuringCreateReleasesCountdowns(t *testing.T) {
	catalog, err := pricing.NewStaticCatalog(pricing.DefaultTiers())
	require.NoError(t, err)
	dir := &respondingDirectory{MemoryDirectory: bookingRepo.NewMemoryDirectory()}
	queue := &recordingQueue{}
	clock := clockwork.NewFakeClockAt(start)
	svc := NewDefaultBookingService(Options{
		Directory: dir,
		Catalog:   catalog,
		Expiry:    queue,
		Clock:     clock,
		Logger:    zaptest.NewLogger(t),
	})
	t.Cleanup(svc.Close)

	ctx := context.Background()
	var accepted models.TransitionResult
	dir.afterCreate = func(id string) {
		res, err := svc.Accept(ctx, "ther-1", id)
		require.NoError(t, err)
		accepted = res
	}

	req, err := svc.Create(ctx, "cust-1", input(60))
	require.NoError(t, err)
	require.True(t, accepted.Applied)

	assert.False(t, svc.timers.Armed(req.ID))
	assert.Equal(t, 0, svc.timers.Len())
	queue.mu.Lock()
	assert.Contains(t, queue.scheduled, req.ID)
	assert.Contains(t, queue.cancelled, req.ID)
	queue.mu.Unlock()

	clock.Advance(121 * time.Second)
	stored, err := dir.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, stored.Status)
}

type failingDirectory struct {
	*bookingRepo.MemoryDirectory
}

func (failingDirectory) Create(context.Context, models.BookingRequest) (string, error) {
	return "", errors.New("connection reset")
}

func TestCreateStoreFailureReleasesCountdowns(t *testing.T) {
	catalog, err := pricing.NewStaticCatalog(pricing.DefaultTiers())
	require.NoError(t, err)
	queue := &recordingQueue{}
	svc := NewDefaultBookingService(Options{
		Directory: failingDirectory{bookingRepo.NewMemoryDirectory()},
		Catalog:   catalog,
		Expiry:    queue,
		Clock:     clockwork.NewFakeClockAt(start),
		Logger:    zaptest.NewLogger(t),
	})
	t.Cleanup(svc.Close)

	_, err = svc.Create(context.Background(), "cust-1", input(60))
	require.Error(t, err)
	assert.Equal(t, 0, svc.timers.Len())
	queue.mu.Lock()
	assert.Len(t, queue.cancelled, 1)
	queue.mu.Unlock()
}

func TestCreateTruncatesToMilliseconds(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.clock.Advance(123900 * time.Microsecond)

	req, err := f.svc.Create(ctx, "cust-1", input(60))
	require.NoError(t, err)
	assert.Equal(t, start.Add(123*time.Millisecond), req.CreatedAt)
	assert.Equal(t, start.Add(123*time.Millisecond+120*time.Second), req.AcceptanceDeadline)

	// Half a millisecond before the stored deadline.
	f.clock.Advance(120*time.Second - 1400*time.Microsecond)
	res, err := f.svc.Accept(ctx, "ther-1", req.ID)
	require.NoError(t, err)
	assert.True(t, res.Applied)
}

func TestPendingPaymentWaitsForWebhook(t *testing.T) {
	pending := chargeFunc(func(_ context.Context, req models.PaymentRequest) (models.PaymentResult, error) {
		return models.PaymentResult{Status: models.PaymentPending, Reference: "pi_3ds"}, nil
	})
	f := newFixture(t, pending)
	ctx := context.Background()
	req, err := f.svc.Create(ctx, "cust-1", input(60))
	require.NoError(t, err)

	_, err = f.svc.Accept(ctx, "ther-1", req.ID)
	require.NoError(t, err)
	f.svc.Wait()
	assert.Equal(t, models.StatusAccepted, f.status(t, req.ID))

	res, err := f.svc.RecordPayment(ctx, req.ID, models.TransitionEvent{Kind: models.EventPaymentSucceeded, PaymentReference: "pi_3ds"})
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, models.StatusConfirmed, res.Status)

	_, err = f.svc.RecordPayment(ctx, req.ID, models.TransitionEvent{Kind: models.EventAccept})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestCancelSemantics(t *testing.T) {
	f := newFixture(t, chargeFunc(approve))
	ctx := context.Background()

	req, err := f.svc.Create(ctx, "cust-1", input(60))
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, "cust-2", req.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	res, err := f.svc.Cancel(ctx, "cust-1", req.ID)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, models.StatusCancelled, res.Status)
	assert.False(t, f.svc.timers.Armed(req.ID))
	assert.Contains(t, f.queue.cancelled, req.ID)

	// The released timer never fires.
	f.clock.Advance(5 * time.Minute)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, models.StatusCancelled, f.status(t, req.ID))

	res, err = f.svc.Accept(ctx, "ther-1", req.ID)
	require.NoError(t, err)
	assert.True(t, res.Stale)

	accepted, err := f.svc.Create(ctx, "cust-1", input(60))
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, "ther-1", accepted.ID)
	require.NoError(t, err)
	res, err = f.svc.Cancel(ctx, "cust-1", accepted.ID)
	require.NoError(t, err)
	assert.True(t, res.Stale)
}

func TestOnlyAssignedTherapistResponds(t *testing.T) {
	f := newFixture(t, chargeFunc(approve))
	ctx := context.Background()
	req, err := f.svc.Create(ctx, "cust-1", input(60))
	require.NoError(t, err)

	_, err = f.svc.Accept(ctx, "ther-2", req.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.Decline(ctx, "ther-2", req.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, models.StatusPending, f.status(t, req.ID))

	_, err = f.svc.Accept(ctx, "ther-1", "missing")
	assert.ErrorIs(t, err, bookingRepo.ErrNotFound)
	assert.True(t, IsNotFound(err))
}

func TestGetEnforcesOwnership(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	req, err := f.svc.Create(ctx, "cust-1", input(60))
	require.NoError(t, err)

	for _, p := range []models.Principal{customer, therapist, {ID: "ops", Role: models.RoleAdmin}} {
		_, err := f.svc.Get(ctx, p, req.ID)
		assert.NoError(t, err, "principal %v", p)
	}
	for _, p := range []models.Principal{{ID: "cust-2", Role: models.RoleCustomer}, {ID: "ther-2", Role: models.RoleTherapist}, {ID: "cust-1"}} {
		_, err := f.svc.Get(ctx, p, req.ID)
		assert.ErrorIs(t, err, ErrForbidden, "principal %v", p)
	}
}

func TestAtMostOneResponse(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	req, err := f.svc.Create(ctx, "cust-1", input(60))
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied []models.BookingStatus
	)
	respond := func(fn func(context.Context, string, string) (models.TransitionResult, error), who string) {
		defer wg.Done()
		res, err := fn(ctx, who, req.ID)
		if !assert.NoError(t, err) {
			return
		}
		if res.Applied {
			mu.Lock()
			applied = append(applied, res.Status)
			mu.Unlock()
		}
	}
	for i := 0; i < 10; i++ {
		wg.Add(3)
		go respond(f.svc.Accept, "ther-1")
		go respond(f.svc.Decline, "ther-1")
		go respond(f.svc.Cancel, "cust-1")
	}
	wg.Wait()

	require.Len(t, applied, 1)
	assert.Equal(t, applied[0], f.status(t, req.ID))
}

func TestRemainingCountsDown(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	req, err := f.svc.Create(ctx, "cust-1", input(60))
	require.NoError(t, err)

	prev := 121
	for _, step := range []time.Duration{0, 500 * time.Millisecond, 30 * time.Second, 60 * time.Second, 29 * time.Second} {
		f.clock.Advance(step)
		got, err := f.svc.Remaining(ctx, customer, req.ID)
		require.NoError(t, err)
		assert.LessOrEqual(t, got, prev)
		assert.GreaterOrEqual(t, got, 0)
		prev = got
	}
	assert.Equal(t, 1, prev)
}

func TestListForTherapist(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	first, err := f.svc.Create(ctx, "cust-1", input(60))
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	second, err := f.svc.Create(ctx, "cust-2", input(90))
	require.NoError(t, err)
	_, err = f.svc.Decline(ctx, "ther-1", second.ID)
	require.NoError(t, err)

	pending, err := f.svc.ListForTherapist(ctx, "ther-1", []models.BookingStatus{models.StatusPending})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, first.ID, pending[0].ID)

	all, err := f.svc.ListForTherapist(ctx, "ther-1", nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.svc.ListForTherapist(ctx, "", nil)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestRecoverRearmsPendingRequests(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	overdue := pendingAt(start.Add(-5 * time.Minute))
	overdue.ID = "overdue"
	fresh := pendingAt(start.Add(-30 * time.Second))
	fresh.ID = "fresh"
	for _, req := range []models.BookingRequest{overdue, fresh} {
		_, err := f.dir.Create(ctx, req)
		require.NoError(t, err)
	}

	n, err := f.svc.Recover(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	f.eventuallyStatus(t, "overdue", models.StatusTimedOut)
	assert.Equal(t, models.StatusPending, f.status(t, "fresh"))

	f.clock.Advance(90 * time.Second)
	f.eventuallyStatus(t, "fresh", models.StatusTimedOut)
	require.Eventually(t, func() bool { return len(f.notifier.kinds("fresh")) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []models.NoticeKind{models.NoticeTimedOut}, f.notifier.kinds("fresh"))
}
