package batch

import (
	"context"

	"github.com/anil-trigital/GST/internal/loan"
)

// SubmitLoanStrategy handles POST loans.
type SubmitLoanStrategy struct {
	loans *loan.Service
}

// NewSubmitLoanStrategy creates the strategy.
func NewSubmitLoanStrategy(loans *loan.Service) *SubmitLoanStrategy {
	return &SubmitLoanStrategy{loans: loans}
}

// Execute submits a new loan application.
func (s *SubmitLoanStrategy) Execute(ctx context.Context, req Request) (Response, error) {
	cmd, err := decodeBody[loan.SubmitCommand](req)
	if err != nil {
		return Response{}, err
	}

	result, err := s.loans.Submit(ctx, cmd)
	if err != nil {
		return Response{}, err
	}

	return respond(req, result)
}

// ApproveLoanStrategy handles POST loans/{id}?command=approve.
type ApproveLoanStrategy struct {
	loans *loan.Service
}

// NewApproveLoanStrategy creates the strategy.
func NewApproveLoanStrategy(loans *loan.Service) *ApproveLoanStrategy {
	return &ApproveLoanStrategy{loans: loans}
}

// Execute approves a submitted application.
func (s *ApproveLoanStrategy) Execute(ctx context.Context, req Request) (Response, error) {
	id, err := pathID(req.RelativeURL, 1)
	if err != nil {
		return Response{}, err
	}

	cmd, err := decodeBody[loan.ApproveCommand](req)
	if err != nil {
		return Response{}, err
	}

	result, err := s.loans.Approve(ctx, id, cmd)
	if err != nil {
		return Response{}, err
	}

	return respond(req, result)
}

// DisburseLoanStrategy handles POST loans/{id}?command=disburse.
type DisburseLoanStrategy struct {
	loans *loan.Service
}

// NewDisburseLoanStrategy creates the strategy.
func NewDisburseLoanStrategy(loans *loan.Service) *DisburseLoanStrategy {
	return &DisburseLoanStrategy{loans: loans}
}

// Execute disburses an approved loan.
func (s *DisburseLoanStrategy) Execute(ctx context.Context, req Request) (Response, error) {
	id, err := pathID(req.RelativeURL, 1)
	if err != nil {
		return Response{}, err
	}

	cmd, err := decodeBody[loan.DisburseCommand](req)
	if err != nil {
		return Response{}, err
	}

	result, err := s.loans.Disburse(ctx, id, cmd)
	if err != nil {
		return Response{}, err
	}

	return respond(req, result)
}

// LoanRepaymentStrategy handles POST loans/{id}/transactions?command=repayment.
type LoanRepaymentStrategy struct {
	loans *loan.Service
}

// NewLoanRepaymentStrategy creates the strategy.
func NewLoanRepaymentStrategy(loans *loan.Service) *LoanRepaymentStrategy {
	return &LoanRepaymentStrategy{loans: loans}
}

// Execute applies a repayment to an active loan.
func (s *LoanRepaymentStrategy) Execute(ctx context.Context, req Request) (Response, error) {
	id, err := pathID(req.RelativeURL, 1)
	if err != nil {
		return Response{}, err
	}

	cmd, err := decodeBody[loan.RepaymentCommand](req)
	if err != nil {
		return Response{}, err
	}

	result, err := s.loans.Repay(ctx, id, cmd)
	if err != nil {
		return Response{}, err
	}

	return respond(req, result)
}

// GetLoanStrategy handles GET loans/{id}.
type GetLoanStrategy struct {
	loans *loan.Service
}

// NewGetLoanStrategy creates the strategy.
func NewGetLoanStrategy(loans *loan.Service) *GetLoanStrategy {
	return &GetLoanStrategy{loans: loans}
}

// Execute returns the loan with its transaction history.
func (s *GetLoanStrategy) Execute(ctx context.Context, req Request) (Response, error) {
	id, err := pathID(req.RelativeURL, 1)
	if err != nil {
		return Response{}, err
	}

	l, err := s.loans.Get(ctx, id)
	if err != nil {
		return Response{}, err
	}

	return respond(req, l)
}
