package booking

import (
	"fmt"

	"github.com/yihan-study/seat-booking/internal/model"
)

// Trigger names an external event that may advance an order's
// lifecycle.  Triggers arrive from customers (cancel, check_in,
// check_out), the store (store_confirm, cancel_no_refund), the payment
// provider (pay_success, refund_success, refund_failure) or the
// maintenance sweep (timeout).
type Trigger string

const (
	TriggerPaySuccess     Trigger = "pay_success"      // payment provider confirmed payment
	TriggerCancel         Trigger = "cancel"           // customer cancelled (refund path after payment)
	TriggerCancelNoRefund Trigger = "cancel_no_refund" // operator cancelled without a refund owed
	TriggerTimeout        Trigger = "timeout"          // payment deadline elapsed (sweep)
	TriggerStoreConfirm   Trigger = "store_confirm"    // store acknowledged the booking
	TriggerCheckIn        Trigger = "check_in"         // customer arrived and checked in
	TriggerCheckOut       Trigger = "check_out"        // customer checked out, or interval elapsed
	TriggerRefundSuccess  Trigger = "refund_success"   // refund provider confirmed
	TriggerRefundFailure  Trigger = "refund_failure"   // refund provider rejected
)

// Effect is a side effect the coordinator must apply together with the
// status write.  The state machine itself never touches the index or
// the lock manager; it only reports what has to happen, and the
// coordinator applies the durable parts in one transaction.
type Effect string

const (
	EffectCommitIndex  Effect = "commit_index"  // write the order's interval into the index
	EffectReleaseIndex Effect = "release_index" // remove the order's interval from the index
	EffectReleaseLock  Effect = "release_lock"  // release the originating checkout lock
)

// transitions is the closed set of legal lifecycle steps.  Anything
// absent from this table fails with ErrInvalidTransition and leaves
// the order unchanged.
var transitions = map[model.OrderStatus]map[Trigger]outcome{
	model.StatusPendingPayment: {
		TriggerPaySuccess:     {next: model.StatusPaid, effects: []Effect{EffectCommitIndex, EffectReleaseLock}},
		TriggerCancel:         {next: model.StatusCancelled, effects: []Effect{EffectReleaseLock}},
		TriggerCancelNoRefund: {next: model.StatusCancelled, effects: []Effect{EffectReleaseLock}},
		TriggerTimeout:        {next: model.StatusCancelled, effects: []Effect{EffectReleaseLock}},
	},
	model.StatusPaid: {
		TriggerStoreConfirm:   {next: model.StatusConfirmed},
		TriggerCancel:         {next: model.StatusRefundProcessing, effects: []Effect{EffectReleaseIndex}},
		TriggerCancelNoRefund: {next: model.StatusCancelled, effects: []Effect{EffectReleaseIndex}},
	},
	model.StatusConfirmed: {
		TriggerCheckIn:        {next: model.StatusInUse},
		TriggerCancel:         {next: model.StatusRefundProcessing, effects: []Effect{EffectReleaseIndex}},
		TriggerCancelNoRefund: {next: model.StatusCancelled, effects: []Effect{EffectReleaseIndex}},
	},
	model.StatusInUse: {
		TriggerCheckOut: {next: model.StatusCompleted},
		TriggerCancel:   {next: model.StatusRefundProcessing, effects: []Effect{EffectReleaseIndex}},
	},
	model.StatusRefundProcessing: {
		TriggerRefundSuccess: {next: model.StatusRefundSuccess},
		TriggerRefundFailure: {next: model.StatusRefundFailed},
	},
}

type outcome struct {
	next    model.OrderStatus
	effects []Effect
}

// Transition validates trigger against the current status and returns
// the next status plus the side effects the coordinator must apply.
// The function is pure: it reads nothing but its arguments and
// mutates nothing.
func Transition(current model.OrderStatus, trigger Trigger) (model.OrderStatus, []Effect, error) {
	row, ok := transitions[current]
	if !ok {
		return current, nil, fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, current)
	}
	out, ok := row[trigger]
	if !ok {
		return current, nil, fmt.Errorf("%w: %s does not accept %s", ErrInvalidTransition, current, trigger)
	}
	return out.next, out.effects, nil
}

// CanTrigger reports whether trigger is legal from the given status.
func CanTrigger(current model.OrderStatus, trigger Trigger) bool {
	_, ok := transitions[current][trigger]
	return ok
}
