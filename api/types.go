package api

// QueryResponse is the standard read response. LastSyncedBlock tells the
// caller how fresh the catalog mirror is relative to the ledger.
type QueryResponse struct {
	Data            interface{} `json:"data"`
	LastSyncedBlock uint64      `json:"last_synced_block"`
}

// ErrorResponse is the standard error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}
