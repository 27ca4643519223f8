package valueobject

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFoldBookingStatus(t *testing.T) {
	tests := []struct {
		name      string
		current   BookingStatus
		schedules []ScheduleStatus
		want      BookingStatus
	}{
		{"no schedules", BookingConfirmed, nil, BookingConfirmed},
		{"active session keeps status", BookingConfirmed, []ScheduleStatus{ScheduleCompleted, ScheduleUpcoming}, BookingConfirmed},
		{"processing keeps status", BookingConfirmed, []ScheduleStatus{ScheduleProcessing}, BookingConfirmed},
		{"all cancelled", BookingConfirmed, []ScheduleStatus{ScheduleCancelled, ScheduleCancelled}, BookingCancelled},
		{"completed and cancelled", BookingConfirmed, []ScheduleStatus{ScheduleCompleted, ScheduleCancelled}, BookingCompleted},
		{"all completed", BookingConfirmed, []ScheduleStatus{ScheduleCompleted, ScheduleCompleted}, BookingCompleted},
		{"unpaid all cancelled", BookingPending, []ScheduleStatus{ScheduleCancelled}, BookingCancelled},
		{"terminal is sticky", BookingCancelled, []ScheduleStatus{ScheduleCompleted}, BookingCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FoldBookingStatus(tt.current, tt.schedules))
		})
	}
}

func TestScheduleStatus_CanTransitionTo(t *testing.T) {
	allowed := map[ScheduleStatus][]ScheduleStatus{
		ScheduleUpcoming:   {ScheduleInProgress, ScheduleCancelled},
		ScheduleInProgress: {SchedulePending, ScheduleCancelled},
		SchedulePending:    {ScheduleProcessing, ScheduleCompleted, ScheduleCancelled},
		ScheduleProcessing: {ScheduleCompleted, ScheduleCancelled},
		ScheduleCompleted:  nil,
		ScheduleCancelled:  nil,
	}
	all := []ScheduleStatus{ScheduleUpcoming, ScheduleInProgress, SchedulePending, ScheduleProcessing, ScheduleCompleted, ScheduleCancelled}

	for from, targets := range allowed {
		for _, to := range all {
			want := false
			for _, a := range targets {
				if a == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s → %s", from, to)
		}
	}
}

func TestAvailabilityStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, AvailabilityAvailable.CanTransitionTo(AvailabilityBooked))
	assert.True(t, AvailabilityAvailable.CanTransitionTo(AvailabilityCancelled))
	assert.False(t, AvailabilityAvailable.CanTransitionTo(AvailabilityInProgress))
	assert.True(t, AvailabilityBooked.CanTransitionTo(AvailabilityInProgress))
	assert.False(t, AvailabilityBooked.CanTransitionTo(AvailabilityAvailable))
	assert.False(t, AvailabilityInProgress.CanTransitionTo(AvailabilityCancelled))
	assert.False(t, AvailabilityCancelled.CanTransitionTo(AvailabilityAvailable))
}

func TestConfirmationStatus(t *testing.T) {
	assert.True(t, ConfirmationLearnerConfirmed.CanTransitionTo(ConfirmationReportedOnHold))
	assert.False(t, ConfirmationLearnerConfirmed.CanTransitionTo(ConfirmationCancelled))
	assert.True(t, ConfirmationReportedOnHold.CanTransitionTo(ConfirmationAutoCompleted))
	assert.False(t, ConfirmationCancelled.CanTransitionTo(ConfirmationPendingConfirm))

	assert.True(t, ConfirmationAutoCompleted.AllowsPayout())
	assert.False(t, ConfirmationReportedOnHold.AllowsPayout())
	assert.False(t, ConfirmationReportedOnHold.IsTerminal())
}

func TestPayoutStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, PayoutPending.CanTransitionTo(PayoutOnHold))
	assert.True(t, PayoutOnHold.CanTransitionTo(PayoutReadyForPayout))
	assert.False(t, PayoutOnHold.CanTransitionTo(PayoutPaid))
	assert.True(t, PayoutReadyForPayout.CanTransitionTo(PayoutOnHold))
	assert.True(t, PayoutReadyForPayout.CanTransitionTo(PayoutCancelled))
	assert.False(t, PayoutPaid.CanTransitionTo(PayoutCancelled))
	assert.False(t, PayoutCancelled.CanTransitionTo(PayoutCancelled))
}

func TestPaymentStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, PaymentPending.CanTransitionTo(PaymentPaid))
	assert.False(t, PaymentPending.CanTransitionTo(PaymentRefunded))
	assert.True(t, PaymentPaid.CanTransitionTo(PaymentRefunded))
	assert.False(t, PaymentRefunded.CanTransitionTo(PaymentPaid))
}

func TestParsers(t *testing.T) {
	_, err := NewScheduleStatus("done")
	assert.Error(t, err)
	s, err := NewScheduleStatus("processing")
	assert.NoError(t, err)
	assert.Equal(t, ScheduleProcessing, s)

	_, err = NewAvailabilityStatus("reserved")
	assert.Error(t, err)

	_, err = NewHoldResolution("split")
	assert.Error(t, err)
	r, err := NewHoldResolution("refund_learner")
	assert.NoError(t, err)
	assert.Equal(t, ResolutionRefundLearner, r)
}
