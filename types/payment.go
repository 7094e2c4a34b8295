package types

// PaymentStatus is the remote payment processor's view of a checkout
// session. The remote is eventually consistent: "pending" may be observed
// for some time after the user completed payment.
type PaymentStatus string

// Payment status constants.
const (
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusExpired PaymentStatus = "expired"
)

// IsTerminal reports whether no further status transition is expected.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusPaid || s == PaymentStatusExpired
}
