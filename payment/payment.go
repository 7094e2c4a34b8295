// Package payment reconciles local checkout state with the remote payment
// processor's eventually-consistent status.
//
// After a checkout redirect returns control to the client, the payment may
// still be settling. Confirm watches the remote status with the bounded
// poller and maps the three possible endings onto distinct user-actionable
// outcomes.
package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/windlass-io/windlass/poll"
	"github.com/windlass-io/windlass/remote"
	"github.com/windlass-io/windlass/types"
)

// Outcome names the corrective action after a confirmation attempt.
type Outcome string

const (
	// OutcomePaid means the payment settled; proceed.
	OutcomePaid Outcome = "paid"
	// OutcomeRetry means the status was still pending when the budget ran
	// out; prompt the user to retry confirmation.
	OutcomeRetry Outcome = "retry"
	// OutcomeReinitiate means the checkout session expired; a new
	// checkout must be started.
	OutcomeReinitiate Outcome = "reinitiate"
)

// Confirmation is the typed result of a confirmation attempt.
type Confirmation struct {
	// CheckoutSessionID is the watched checkout session.
	CheckoutSessionID string
	// Outcome names the corrective action.
	Outcome Outcome
	// Status is the last observed remote status, when one was observed.
	Status types.PaymentStatus
}

// Confirm watches the checkout session's payment status until it settles,
// expires, or the poll budget runs out. Fetch/transport errors other than
// the two poller endings surface unchanged.
func Confirm(ctx context.Context, facade remote.Facade, checkoutSessionID string, opts poll.Options) (Confirmation, error) {
	fetch := func(ctx context.Context, subjectID string) (string, error) {
		status, err := facade.PaymentStatus(ctx, subjectID)
		return string(status), err
	}

	status, err := poll.Watch(ctx, checkoutSessionID, fetch, classifyPayment, opts)
	switch {
	case err == nil:
		return Confirmation{
			CheckoutSessionID: checkoutSessionID,
			Outcome:           OutcomePaid,
			Status:            types.PaymentStatus(status),
		}, nil

	case errors.Is(err, poll.ErrExhausted):
		return Confirmation{
			CheckoutSessionID: checkoutSessionID,
			Outcome:           OutcomeRetry,
			Status:            types.PaymentStatusPending,
		}, err

	case errors.Is(err, poll.ErrRemoteExpired):
		return Confirmation{
			CheckoutSessionID: checkoutSessionID,
			Outcome:           OutcomeReinitiate,
			Status:            types.PaymentStatusExpired,
		}, err

	default:
		return Confirmation{}, fmt.Errorf("confirm payment: %w", err)
	}
}

// classifyPayment maps remote payment statuses onto poll verdicts.
// Unknown statuses are treated as pending: the remote may introduce
// intermediate states and the budget still bounds the watch.
func classifyPayment(status string) poll.Classification {
	switch types.PaymentStatus(status) {
	case types.PaymentStatusPaid:
		return poll.StatusResolved
	case types.PaymentStatusExpired:
		return poll.StatusExpired
	default:
		return poll.StatusPending
	}
}
