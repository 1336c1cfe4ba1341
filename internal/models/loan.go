package models

import "time"

// LoanStatus is the lifecycle state of a loan.
type LoanStatus string

const (
	LoanActive    LoanStatus = "Active"
	LoanCompleted LoanStatus = "Completed"
	LoanPending   LoanStatus = "Pending"
)

// Valid reports whether s is one of the known statuses.
func (s LoanStatus) Valid() bool {
	switch s {
	case LoanActive, LoanCompleted, LoanPending:
		return true
	}
	return false
}

// DateLayout is the ISO date format used for loan and transaction dates.
const DateLayout = "2006-01-02"

// Loan is a loan record. Customer is free text, not a reference.
type Loan struct {
	Identity
	Customer     string     `json:"customer"`
	Amount       float64    `json:"amount"`
	InterestRate float64    `json:"interestRate"`
	Term         int        `json:"term"`
	Status       LoanStatus `json:"status,omitempty"`
	Date         string     `json:"date,omitempty"`
}

// LoanFields is the editable subset sent on create and update.
type LoanFields struct {
	Customer     string     `json:"customer"`
	Amount       float64    `json:"amount"`
	InterestRate float64    `json:"interestRate"`
	Term         int        `json:"term"`
	Status       LoanStatus `json:"status,omitempty"`
	Date         string     `json:"date,omitempty"`
}

// Loan builds an unsaved record from the form fields.
func (f LoanFields) Loan() Loan {
	return Loan{
		Customer:     f.Customer,
		Amount:       f.Amount,
		InterestRate: f.InterestRate,
		Term:         f.Term,
		Status:       f.Status,
		Date:         f.Date,
	}
}

// ApplyDefaults fills the origination date with today and an empty status
// with Pending.
func (l *Loan) ApplyDefaults(now time.Time) {
	if l.Date == "" {
		l.Date = now.Format(DateLayout)
	}
	if l.Status == "" {
		l.Status = LoanPending
	}
}
