package domain

import "time"

// TransactionState is the poll state machine for one waste-tracking submission.
type TransactionState string

const (
	TxSubmitted TransactionState = "submitted"
	TxPolling   TransactionState = "polling"
	TxCompleted TransactionState = "completed"
	TxFailed    TransactionState = "failed"
	TxTimedOut  TransactionState = "timed_out"
)

// Transaction tracks one asynchronous gateway submission. The id is assigned
// by the remote gateway. Poll state is persisted so a fresh invocation can
// resume after a timed-out budget.
type Transaction struct {
	ID           string           `json:"id"`
	DocumentID   string           `json:"document_id"`
	State        TransactionState `json:"state"`
	SubmittedAt  time.Time        `json:"submitted_at"`
	PollAttempts int              `json:"poll_attempts"`
	LastPolledAt *time.Time       `json:"last_polled_at,omitempty"`
	ResultRef    string           `json:"result_ref,omitempty"`
	Terminal     bool             `json:"terminal"`
}

func (t *Transaction) IsTerminal() bool { return t.Terminal }
