package payments

// Outcome is the closed set of effects a verified webhook event can ask for.
// Provider event types map onto it via OutcomeForEventType; unknown types
// land in OutcomeUnhandled so new provider events fail safe.
type Outcome string

const (
	OutcomePaid      Outcome = "paid"
	OutcomeFailed    Outcome = "failed"
	OutcomeExpired   Outcome = "expired"
	OutcomeUnhandled Outcome = "unhandled"
)

// ReconciliationContext carries the join keys back into local order/user
// state. It is derived per event and never stored.
type ReconciliationContext struct {
	OrderID string
	UserID  uint
}

// ResultStatus describes what the reconciler actually did.
type ResultStatus string

const (
	StatusPaid        ResultStatus = "order_marked_paid"
	StatusAlreadyPaid ResultStatus = "order_already_paid"
	StatusDeleted     ResultStatus = "order_deleted"
	StatusIgnored     ResultStatus = "event_ignored"
)

// Result is the reconciler's report for one applied event.
type Result struct {
	Status      ResultStatus
	OrderID     string
	UserID      uint
	CartCleared bool
}
