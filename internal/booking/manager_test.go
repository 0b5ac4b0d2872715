package booking

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"garagebook/internal/models"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) CreateBooking(ctx context.Context, b *models.Booking) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *mockRepo) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if b := args.Get(0); b != nil {
		return b.(*models.Booking), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepo) UpdateBookingStatus(ctx context.Context, id int64, fromStatus, toStatus string) error {
	args := m.Called(ctx, id, fromStatus, toStatus)
	return args.Error(0)
}

func (m *mockRepo) MoveBooking(ctx context.Context, id int64, newDate, newSlot string) error {
	args := m.Called(ctx, id, newDate, newSlot)
	return args.Error(0)
}

type mockChecker struct {
	mock.Mock
}

func (m *mockChecker) IsSlotAvailable(ctx context.Context, garageID int64, date, slot string) (bool, error) {
	args := m.Called(ctx, garageID, date, slot)
	return args.Bool(0), args.Error(1)
}

type mockQuota struct {
	mock.Mock
}

func (m *mockQuota) Consume(ctx context.Context, garageID int64) error {
	args := m.Called(ctx, garageID)
	return args.Error(0)
}

func (m *mockQuota) Restore(ctx context.Context, garageID int64) error {
	args := m.Called(ctx, garageID)
	return args.Error(0)
}

func testClock() func() time.Time {
	return func() time.Time {
		return time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	}
}

func newTestManager(repo Repository, checker AvailabilityChecker, quota QuotaGate) *Manager {
	logger := zerolog.New(io.Discard)
	return NewManager(repo, checker, quota, nil, time.UTC, testClock(), true, &logger)
}

func pendingBooking() *models.Booking {
	return &models.Booking{
		ID:         7,
		Reference:  "ref-7",
		GarageID:   1,
		Date:       "2026-03-09",
		TimeSlot:   "10:00",
		Status:     models.StatusPending,
		CustomerID: 42,
		VehicleID:  99,
	}
}

func TestReserveSuccess(t *testing.T) {
	repo := new(mockRepo)
	checker := new(mockChecker)
	m := newTestManager(repo, checker, nil)

	checker.On("IsSlotAvailable", mock.Anything, int64(1), "2026-03-09", "10:00").Return(true, nil)
	repo.On("CreateBooking", mock.Anything, mock.MatchedBy(func(b *models.Booking) bool {
		return b.GarageID == 1 && b.Date == "2026-03-09" && b.TimeSlot == "10:00" &&
			b.Status == models.StatusPending && b.Reference != ""
	})).Return(nil)

	b, err := m.Reserve(context.Background(), 1, "2026-03-09", "10:00", 42, 99)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, b.Status)
	assert.NotEmpty(t, b.Reference)
	repo.AssertExpectations(t)
	checker.AssertExpectations(t)
}

func TestReserveUnavailableSlot(t *testing.T) {
	repo := new(mockRepo)
	checker := new(mockChecker)
	m := newTestManager(repo, checker, nil)

	checker.On("IsSlotAvailable", mock.Anything, int64(1), "2026-03-09", "10:00").Return(false, nil)

	_, err := m.Reserve(context.Background(), 1, "2026-03-09", "10:00", 42, 99)
	require.True(t, models.IsConflict(err))
	repo.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)

	// The checker cannot attribute the miss to a booking vs a block, so the
	// conflict must not claim the slot is reserved.
	var conflict *models.SlotConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "unavailable", conflict.Reason)
}

func TestReserveRaceLoser(t *testing.T) {
	repo := new(mockRepo)
	checker := new(mockChecker)
	m := newTestManager(repo, checker, nil)

	// The availability check passed but another reserver won the insert.
	checker.On("IsSlotAvailable", mock.Anything, int64(1), "2026-03-09", "10:00").Return(true, nil)
	conflict := &models.SlotConflictError{GarageID: 1, Date: "2026-03-09", TimeSlot: "10:00", Reason: "reserved"}
	repo.On("CreateBooking", mock.Anything, mock.Anything).Return(conflict)

	_, err := m.Reserve(context.Background(), 1, "2026-03-09", "10:00", 42, 99)
	assert.True(t, models.IsConflict(err))
}

func TestReservePastSlot(t *testing.T) {
	m := newTestManager(new(mockRepo), new(mockChecker), nil)

	_, err := m.Reserve(context.Background(), 1, "2026-02-28", "10:00", 42, 99)
	assert.ErrorIs(t, err, models.ErrPastSlot)

	// Exactly now is also rejected.
	_, err = m.Reserve(context.Background(), 1, "2026-03-01", "08:00", 42, 99)
	assert.ErrorIs(t, err, models.ErrPastSlot)
}

func TestReserveInvalidInput(t *testing.T) {
	m := newTestManager(new(mockRepo), new(mockChecker), nil)

	_, err := m.Reserve(context.Background(), 1, "09-03-2026", "10:00", 42, 99)
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = m.Reserve(context.Background(), 1, "2026-03-09", "10am", 42, 99)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestConfirm(t *testing.T) {
	repo := new(mockRepo)
	quota := new(mockQuota)
	m := newTestManager(repo, new(mockChecker), quota)

	b := pendingBooking()
	repo.On("GetBooking", mock.Anything, int64(7)).Return(b, nil)
	quota.On("Consume", mock.Anything, int64(1)).Return(nil)
	repo.On("UpdateBookingStatus", mock.Anything, int64(7), models.StatusPending, models.StatusConfirmed).Return(nil)

	require.NoError(t, m.Confirm(context.Background(), 7))
	repo.AssertExpectations(t)
	quota.AssertExpectations(t)
}

func TestConfirmQuotaExhausted(t *testing.T) {
	repo := new(mockRepo)
	quota := new(mockQuota)
	m := newTestManager(repo, new(mockChecker), quota)

	repo.On("GetBooking", mock.Anything, int64(7)).Return(pendingBooking(), nil)
	quota.On("Consume", mock.Anything, int64(1)).Return(models.ErrQuotaExhausted)

	err := m.Confirm(context.Background(), 7)
	assert.ErrorIs(t, err, models.ErrQuotaExhausted)
	repo.AssertNotCalled(t, "UpdateBookingStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestConfirmTransitionFailureRestoresQuota(t *testing.T) {
	repo := new(mockRepo)
	quota := new(mockQuota)
	m := newTestManager(repo, new(mockChecker), quota)

	repo.On("GetBooking", mock.Anything, int64(7)).Return(pendingBooking(), nil)
	quota.On("Consume", mock.Anything, int64(1)).Return(nil)
	storageErr := errors.New("disk I/O error")
	repo.On("UpdateBookingStatus", mock.Anything, int64(7), models.StatusPending, models.StatusConfirmed).Return(storageErr)
	quota.On("Restore", mock.Anything, int64(1)).Return(nil)

	err := m.Confirm(context.Background(), 7)
	assert.ErrorIs(t, err, storageErr)
	quota.AssertCalled(t, "Restore", mock.Anything, int64(1))
}

func TestConfirmWrongStatus(t *testing.T) {
	repo := new(mockRepo)
	m := newTestManager(repo, new(mockChecker), nil)

	b := pendingBooking()
	b.Status = models.StatusCompleted
	repo.On("GetBooking", mock.Anything, int64(7)).Return(b, nil)

	err := m.Confirm(context.Background(), 7)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestLifecycleTransitions(t *testing.T) {
	repo := new(mockRepo)
	m := newTestManager(repo, new(mockChecker), nil)

	confirmed := pendingBooking()
	confirmed.Status = models.StatusConfirmed
	repo.On("GetBooking", mock.Anything, int64(7)).Return(confirmed, nil).Once()
	repo.On("UpdateBookingStatus", mock.Anything, int64(7), models.StatusConfirmed, models.StatusInProgress).Return(nil).Once()
	require.NoError(t, m.Start(context.Background(), 7))

	inProgress := pendingBooking()
	inProgress.Status = models.StatusInProgress
	repo.On("GetBooking", mock.Anything, int64(7)).Return(inProgress, nil).Once()
	repo.On("UpdateBookingStatus", mock.Anything, int64(7), models.StatusInProgress, models.StatusCompleted).Return(nil).Once()
	require.NoError(t, m.Complete(context.Background(), 7))

	repo.AssertExpectations(t)
}

func TestStartFromPendingRejected(t *testing.T) {
	repo := new(mockRepo)
	m := newTestManager(repo, new(mockChecker), nil)

	repo.On("GetBooking", mock.Anything, int64(7)).Return(pendingBooking(), nil)

	err := m.Start(context.Background(), 7)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestMarkNoShow(t *testing.T) {
	repo := new(mockRepo)
	m := newTestManager(repo, new(mockChecker), nil)

	// Slot start already passed relative to the test clock.
	b := pendingBooking()
	b.Date = "2026-02-27"
	b.Status = models.StatusConfirmed
	repo.On("GetBooking", mock.Anything, int64(7)).Return(b, nil)
	repo.On("UpdateBookingStatus", mock.Anything, int64(7), models.StatusConfirmed, models.StatusNoShow).Return(nil)

	require.NoError(t, m.MarkNoShow(context.Background(), 7))
	repo.AssertExpectations(t)
}

func TestMarkNoShowBeforeStart(t *testing.T) {
	repo := new(mockRepo)
	m := newTestManager(repo, new(mockChecker), nil)

	repo.On("GetBooking", mock.Anything, int64(7)).Return(pendingBooking(), nil)

	err := m.MarkNoShow(context.Background(), 7)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	repo.AssertNotCalled(t, "UpdateBookingStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCancelByOwner(t *testing.T) {
	repo := new(mockRepo)
	m := newTestManager(repo, new(mockChecker), nil)

	repo.On("GetBooking", mock.Anything, int64(7)).Return(pendingBooking(), nil)
	repo.On("UpdateBookingStatus", mock.Anything, int64(7), models.StatusPending, models.StatusCancelled).Return(nil)

	require.NoError(t, m.Cancel(context.Background(), 7, 42, false))
	repo.AssertExpectations(t)
}

func TestCancelByStrangerRejected(t *testing.T) {
	repo := new(mockRepo)
	m := newTestManager(repo, new(mockChecker), nil)

	repo.On("GetBooking", mock.Anything, int64(7)).Return(pendingBooking(), nil)

	err := m.Cancel(context.Background(), 7, 555, false)
	assert.ErrorIs(t, err, models.ErrNotPermitted)

	// An operator may cancel regardless of ownership.
	repo.On("UpdateBookingStatus", mock.Anything, int64(7), models.StatusPending, models.StatusCancelled).Return(nil)
	require.NoError(t, m.Cancel(context.Background(), 7, 555, true))
}

func TestCancelNonCancellableStatus(t *testing.T) {
	repo := new(mockRepo)
	m := newTestManager(repo, new(mockChecker), nil)

	b := pendingBooking()
	b.Status = models.StatusInProgress
	repo.On("GetBooking", mock.Anything, int64(7)).Return(b, nil)

	err := m.Cancel(context.Background(), 7, 42, false)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestCancelPastSlot(t *testing.T) {
	repo := new(mockRepo)
	m := newTestManager(repo, new(mockChecker), nil)

	b := pendingBooking()
	b.Date = "2026-02-27"
	repo.On("GetBooking", mock.Anything, int64(7)).Return(b, nil)

	err := m.Cancel(context.Background(), 7, 42, false)
	assert.ErrorIs(t, err, models.ErrPastSlot)
}

func TestCancelPastSlotAllowedByPolicy(t *testing.T) {
	repo := new(mockRepo)
	logger := zerolog.New(io.Discard)
	m := NewManager(repo, new(mockChecker), nil, nil, time.UTC, testClock(), false, &logger)

	b := pendingBooking()
	b.Date = "2026-02-27"
	repo.On("GetBooking", mock.Anything, int64(7)).Return(b, nil)
	repo.On("UpdateBookingStatus", mock.Anything, int64(7), models.StatusPending, models.StatusCancelled).Return(nil)

	require.NoError(t, m.Cancel(context.Background(), 7, 42, false))
}

func TestReschedule(t *testing.T) {
	repo := new(mockRepo)
	checker := new(mockChecker)
	m := newTestManager(repo, checker, nil)

	repo.On("GetBooking", mock.Anything, int64(7)).Return(pendingBooking(), nil)
	checker.On("IsSlotAvailable", mock.Anything, int64(1), "2026-03-10", "11:00").Return(true, nil)
	repo.On("MoveBooking", mock.Anything, int64(7), "2026-03-10", "11:00").Return(nil)

	require.NoError(t, m.Reschedule(context.Background(), 7, 42, false, "2026-03-10", "11:00"))
	repo.AssertExpectations(t)
}

func TestRescheduleConflictLeavesOriginal(t *testing.T) {
	repo := new(mockRepo)
	checker := new(mockChecker)
	m := newTestManager(repo, checker, nil)

	repo.On("GetBooking", mock.Anything, int64(7)).Return(pendingBooking(), nil)
	checker.On("IsSlotAvailable", mock.Anything, int64(1), "2026-03-10", "11:00").Return(false, nil)

	err := m.Reschedule(context.Background(), 7, 42, false, "2026-03-10", "11:00")
	assert.True(t, models.IsConflict(err))
	repo.AssertNotCalled(t, "MoveBooking", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRescheduleSameSlotNoOp(t *testing.T) {
	repo := new(mockRepo)
	checker := new(mockChecker)
	m := newTestManager(repo, checker, nil)

	repo.On("GetBooking", mock.Anything, int64(7)).Return(pendingBooking(), nil)

	require.NoError(t, m.Reschedule(context.Background(), 7, 42, false, "2026-03-09", "10:00"))
	checker.AssertNotCalled(t, "IsSlotAvailable", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "MoveBooking", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRescheduleTerminalBookingRejected(t *testing.T) {
	repo := new(mockRepo)
	m := newTestManager(repo, new(mockChecker), nil)

	b := pendingBooking()
	b.Status = models.StatusCancelled
	repo.On("GetBooking", mock.Anything, int64(7)).Return(b, nil)

	err := m.Reschedule(context.Background(), 7, 42, false, "2026-03-10", "11:00")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestReschedulePastTarget(t *testing.T) {
	repo := new(mockRepo)
	m := newTestManager(repo, new(mockChecker), nil)

	repo.On("GetBooking", mock.Anything, int64(7)).Return(pendingBooking(), nil)

	err := m.Reschedule(context.Background(), 7, 42, false, "2026-02-27", "11:00")
	assert.ErrorIs(t, err, models.ErrPastSlot)
}

func TestRescheduleOwnership(t *testing.T) {
	repo := new(mockRepo)
	m := newTestManager(repo, new(mockChecker), nil)

	repo.On("GetBooking", mock.Anything, int64(7)).Return(pendingBooking(), nil)

	err := m.Reschedule(context.Background(), 7, 555, false, "2026-03-10", "11:00")
	assert.ErrorIs(t, err, models.ErrNotPermitted)
}
