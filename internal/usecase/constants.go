package usecase

// Rejection reasons used as metric labels and log fields.
const (
	ReasonLocked             = "locked"
	ReasonInsufficientFunds  = "insufficient_funds"
	ReasonInvalidAmount      = "invalid_amount"
	ReasonUnknownAccount     = "unknown_account"
	ReasonUnknownTransaction = "unknown_transaction"
	ReasonClientMismatch     = "client_mismatch"
	ReasonIneligibleState    = "ineligible_state"
	ReasonInvalidType        = "invalid_type"
	ReasonMalformedRow       = "malformed_row"
	ReasonLedgerInvariant    = "ledger_invariant"
	ReasonOther              = "other"
)

// Snapshot export statuses.
const (
	SinkStatusSuccess = "success"
	SinkStatusFailure = "failure"
)
