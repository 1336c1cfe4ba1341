package models

// TransactionType distinguishes money leaving and returning.
type TransactionType string

const (
	Disbursement TransactionType = "Disbursement"
	Repayment    TransactionType = "Repayment"
)

// Transaction is a ledger movement against a loan. LoanID is not validated
// client-side.
type Transaction struct {
	Identity
	LoanID ID              `json:"loanId"`
	Amount float64         `json:"amount"`
	Type   TransactionType `json:"type"`
	Date   string          `json:"date"`
}
