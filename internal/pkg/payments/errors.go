package payments

import "fmt"

// VerificationError means the inbound payload could not be authenticated
// against the shared webhook secret. Redelivering the identical payload can
// never succeed, so callers must reject at the transport boundary without
// touching any state.
type VerificationError struct {
	Reason string
}

func (e *VerificationError) Error() string {
	return "webhook verification failed: " + e.Reason
}

// ResolutionError means the order/user context for a verified event could
// not be established. Transient resolution faults (e.g. the provider has not
// propagated the checkout session yet) are worth a retry via redelivery;
// permanent ones (metadata never written) will not self-heal and should
// alert instead.
type ResolutionError struct {
	Reason    string
	Transient bool
}

func (e *ResolutionError) Error() string {
	return "metadata resolution failed: " + e.Reason
}

// PolicyViolation means an event asked for a transition out of a terminal
// order state, e.g. deleting an order that was already marked paid. This
// signals an upstream ordering bug or an out-of-order redelivery and is
// rejected without any mutation.
type PolicyViolation struct {
	OrderID string
	Reason  string
}

func (e *PolicyViolation) Error() string {
	return fmt.Sprintf("reconciliation policy violation for order %s: %s", e.OrderID, e.Reason)
}

// StoreError wraps document store failures. NotFound marks the record-absent
// case (terminal Deleted state) so the transport layer can distinguish it
// from infrastructure faults, which are retryable by redelivery.
type StoreError struct {
	Op       string
	NotFound bool
	Err      error
}

func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s failed: record not found", e.Op)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func notFoundError(op string) *StoreError {
	return &StoreError{Op: op, NotFound: true}
}
