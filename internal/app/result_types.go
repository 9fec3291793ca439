package app

import (
	"agency-ledger/internal/core"
)

// KindInternal marks an unexpected failure; its message is never exposed.
const KindInternal core.ErrorKind = "internal"

// ErrorBody is the failure half of an Envelope.
type ErrorBody struct {
	Kind    core.ErrorKind `json:"kind"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
}

// Envelope is the discriminated result every operation is reported in:
// {success: true, data: ...} or {success: false, error: {...}}.
type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// Wrap turns an operation's (data, err) pair into an Envelope. Business
// errors keep their kind and code; anything else becomes a generic internal error.
func Wrap(data any, err error) Envelope {
	if err == nil {
		return Envelope{Success: true, Data: data}
	}
	if e, ok := core.AsError(err); ok {
		return Envelope{Error: &ErrorBody{Kind: e.Kind, Code: e.Code, Message: e.Message}}
	}
	return Envelope{Error: &ErrorBody{Kind: KindInternal, Code: "InternalError", Message: "internal error"}}
}

// TrialBalanceResult is returned by GetTrialBalance.
type TrialBalanceResult struct {
	Accounts []core.AccountBalance `json:"accounts"`
	*core.TrialBalance
}

// TransactionResult is returned by CreateTransaction.
type TransactionResult struct {
	Transaction *core.Transaction `json:"transaction"`
	Posted      bool              `json:"posted"`
}

// AgencyUsersResult is returned by ListAgencyUsers.
type AgencyUsersResult struct {
	AgencyID int               `json:"agency_id"`
	Users    []core.AgencyUser `json:"users"`
}

// RankingsResult is returned by ranking recomputation and top-N queries.
type RankingsResult struct {
	Count    int                  `json:"count"`
	Rankings []core.AgencyRanking `json:"rankings"`
}
