package cmd

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/windlass-io/windlass/cli/render"
	"github.com/windlass-io/windlass/metrics"
	"github.com/windlass-io/windlass/payment"
	"github.com/windlass-io/windlass/poll"
)

// Exit codes for payment confirm. Distinct codes let wrapping scripts
// branch on the corrective action without parsing output.
const (
	exitPaid       = 0
	exitFailure    = 1
	exitRetry      = 2
	exitReinitiate = 3
)

// PaymentCommand returns the payment command group.
func PaymentCommand() *cli.Command {
	return &cli.Command{
		Name:  "payment",
		Usage: "Payment reconciliation",
		Subcommands: []*cli.Command{
			{
				Name:  "confirm",
				Usage: "Watch a checkout session until it settles, expires, or the poll budget runs out",
				Flags: append(CommonFlags(),
					&cli.StringFlag{
						Name:     "checkout-session",
						Usage:    "Checkout session identifier",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "max-attempts",
						Usage: "Poll attempt budget",
						Value: poll.DefaultMaxAttempts,
					},
					&cli.DurationFlag{
						Name:  "interval",
						Usage: "Fixed delay between poll attempts",
						Value: poll.DefaultInterval,
					},
				),
				Action: paymentConfirmAction,
			},
		},
	}
}

// PaymentResponse is the rendered result of payment confirm.
type PaymentResponse struct {
	CheckoutSessionID string `json:"checkout_session_id"`
	Outcome           string `json:"outcome"`
	Status            string `json:"status"`
	PollAttempts      int64  `json:"poll_attempts"`
}

func paymentConfirmAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	facade, err := newFacade(c, cfg)
	if err != nil {
		return err
	}

	opts := poll.Options{
		MaxAttempts: c.Int("max-attempts"),
		Interval:    c.Duration("interval"),
		Collector:   metrics.NewCollector(uuid.NewString(), ""),
	}
	if !c.IsSet("max-attempts") && cfg.Poll.MaxAttempts > 0 {
		opts.MaxAttempts = cfg.Poll.MaxAttempts
	}
	if !c.IsSet("interval") && cfg.Poll.Interval.Duration > 0 {
		opts.Interval = cfg.Poll.Interval.Duration
	}

	ctx, cancel := signalContext()
	defer cancel()

	confirmation, err := payment.Confirm(ctx, facade, c.String("checkout-session"), opts)

	code := exitPaid
	switch {
	case err == nil:
	case errors.Is(err, poll.ErrExhausted):
		code = exitRetry
	case errors.Is(err, poll.ErrRemoteExpired):
		code = exitReinitiate
	default:
		return cli.Exit(fmt.Sprintf("payment confirm failed: %v", err), exitFailure)
	}

	renderErr := r.Render(PaymentResponse{
		CheckoutSessionID: confirmation.CheckoutSessionID,
		Outcome:           string(confirmation.Outcome),
		Status:            string(confirmation.Status),
		PollAttempts:      opts.Collector.Snapshot().PollTicks,
	})
	if renderErr != nil {
		return renderErr
	}

	return cli.Exit("", code)
}
