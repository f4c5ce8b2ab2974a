package domain

// SubmitReceipt is what a gateway hands back for an accepted submission.
// The waste channel answers asynchronously with a transaction id; the
// invoicing channel may assign the remote identifier synchronously.
type SubmitReceipt struct {
	TransactionID string `json:"transaction_id,omitempty"`
	RemoteID      string `json:"remote_id,omitempty"`
	RemoteStatus  string `json:"remote_status,omitempty"`
}

// PollResult is the decoded answer of one non-blocking status poll:
// 200 -> still processing, 303 -> completed with a result location reference.
type PollResult struct {
	Completed bool   `json:"completed"`
	ResultRef string `json:"result_ref,omitempty"`
}

// ResultItem binds one remote outcome to the local document it belongs to.
type ResultItem struct {
	DocumentID string        `json:"document_id"`
	Outcome    RemoteOutcome `json:"outcome"`
}

// ResultDescriptor is the terminal result of one transaction. A single
// submission may fan out into several remote items; each is reconciled
// into its local record independently.
type ResultDescriptor struct {
	TransactionID string       `json:"transaction_id"`
	Items         []ResultItem `json:"items"`
}
