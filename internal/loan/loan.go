// Package loan implements the loan write service: application, approval,
// disbursement and repayments against the loan ledger.
package loan

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a loan.
//
// Transitions:
//
//	SUBMITTED → APPROVED → ACTIVE → CLOSED
type Status string

const (
	// StatusSubmitted marks an application awaiting approval.
	StatusSubmitted Status = "SUBMITTED"
	// StatusApproved marks an approved application awaiting disbursement.
	StatusApproved Status = "APPROVED"
	// StatusActive marks a disbursed loan with an open balance.
	StatusActive Status = "ACTIVE"
	// StatusClosed marks a fully repaid loan.
	StatusClosed Status = "CLOSED"
)

// TransactionType classifies entries in a loan's transaction history.
type TransactionType string

const (
	// TransactionDisbursement records the principal payout.
	TransactionDisbursement TransactionType = "DISBURSEMENT"
	// TransactionRepayment records a repayment against the outstanding balance.
	TransactionRepayment TransactionType = "REPAYMENT"
)

// Transaction is one immutable entry in a loan's ledger history.
type Transaction struct {
	ID         int64           `json:"id"`
	ExternalID string          `json:"externalId"`
	Type       TransactionType `json:"type"`
	Amount     decimal.Decimal `json:"amount"`
	Date       time.Time       `json:"date"`
}

// Loan is the loan aggregate. All mutations of one loan must be serialized;
// the repositories guarantee that with their own locking discipline.
type Loan struct {
	ID           int64           `json:"id"`
	ExternalID   string          `json:"externalId"`
	ClientID     int64           `json:"clientId"`
	Principal    decimal.Decimal `json:"principal"`
	Outstanding  decimal.Decimal `json:"outstanding"`
	TotalRepaid  decimal.Decimal `json:"totalRepaid"`
	Status       Status          `json:"status"`
	SubmittedOn  time.Time       `json:"submittedOnDate"`
	ApprovedOn   *time.Time      `json:"approvedOnDate,omitempty"`
	DisbursedOn  *time.Time      `json:"disbursedOnDate,omitempty"`
	Transactions []Transaction   `json:"transactions,omitempty"`
	Version      int64           `json:"-"`
}

// Clone returns a deep copy of the loan, including its transaction history.
func (l *Loan) Clone() *Loan {
	cp := *l

	if l.ApprovedOn != nil {
		approved := *l.ApprovedOn
		cp.ApprovedOn = &approved
	}

	if l.DisbursedOn != nil {
		disbursed := *l.DisbursedOn
		cp.DisbursedOn = &disbursed
	}

	if l.Transactions != nil {
		cp.Transactions = make([]Transaction, len(l.Transactions))
		copy(cp.Transactions, l.Transactions)
	}

	return &cp
}

// Repository is the persistence contract the loan service depends on.
// FindLoanForUpdate must return the loan with aggregate-level mutual
// exclusion in effect until the enclosing unit of work completes.
type Repository interface {
	CreateLoan(ctx context.Context, l *Loan) (int64, error)
	FindLoan(ctx context.Context, id int64) (*Loan, error)
	FindLoanForUpdate(ctx context.Context, id int64) (*Loan, error)
	UpdateLoan(ctx context.Context, l *Loan) error
	NextTransactionID(ctx context.Context) (int64, error)
}

// ClientDirectory resolves clients referenced by loan applications.
type ClientDirectory interface {
	FindActiveClient(ctx context.Context, id int64) error
}
