package loan

import (
	"context"
	"fmt"
	"time"

	"github.com/anil-trigital/GST/internal/command"
	"github.com/anil-trigital/GST/internal/errs"
	"github.com/anil-trigital/GST/internal/events"
	"github.com/anil-trigital/GST/internal/storage"
	"github.com/anil-trigital/GST/internal/validate"
	logpkg "github.com/anil-trigital/GST/pkg/log"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// SubmitCommand is the payload for a new loan application.
type SubmitCommand struct {
	ClientID    int64           `json:"clientId" validate:"required,gt=0"`
	Principal   decimal.Decimal `json:"principal" validate:"positive_decimal"`
	SubmittedOn string          `json:"submittedOnDate" validate:"required"`
}

// ApproveCommand is the payload for approving a submitted application.
type ApproveCommand struct {
	ApprovedOn string `json:"approvedOnDate" validate:"required"`
}

// DisburseCommand is the payload for disbursing an approved loan.
type DisburseCommand struct {
	DisbursedOn string `json:"actualDisbursementDate" validate:"required"`
}

// RepaymentCommand is the payload for a repayment against an active loan.
type RepaymentCommand struct {
	Amount decimal.Decimal `json:"transactionAmount" validate:"positive_decimal"`
	Date   string          `json:"transactionDate" validate:"required"`
}

// RepaymentEvent is published after a repayment commits.
type RepaymentEvent struct {
	LoanID        int64           `json:"loanId"`
	TransactionID int64           `json:"transactionId"`
	Amount        decimal.Decimal `json:"amount"`
	Outstanding   decimal.Decimal `json:"outstanding"`
	Date          string          `json:"date"`
}

// Service is the loan write/read service. Repayments are serialized per loan
// through the configured Locker on top of the repository's own transaction
// discipline, so concurrent repayments against one loan apply in a
// well-defined order and never lose updates. Inside a unit of work the
// keyed lock is skipped: the store already holds its transaction-level
// locks there, and acquiring the key under them would invert the lock
// order documented on storage.Locker.
type Service struct {
	repo      Repository
	clients   ClientDirectory
	locker    storage.Locker
	publisher events.Publisher
	logger    logpkg.Logger
}

// NewService creates a loan service. locker and publisher may be nil, in
// which case an in-process locker and a discarding publisher are used.
func NewService(repo Repository, clients ClientDirectory, locker storage.Locker, publisher events.Publisher, logger logpkg.Logger) *Service {
	if locker == nil {
		locker = storage.NewKeyedLocker()
	}

	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	if logger == nil {
		logger = logpkg.NewNop()
	}

	return &Service{
		repo:      repo,
		clients:   clients,
		locker:    locker,
		publisher: publisher,
		logger:    logger,
	}
}

// Submit records a new loan application for an active client.
func (s *Service) Submit(ctx context.Context, cmd SubmitCommand) (command.ProcessingResult, error) {
	if err := validate.Struct(cmd); err != nil {
		return command.ProcessingResult{}, err
	}

	submittedOn, err := parseDate(cmd.SubmittedOn, "submittedOnDate")
	if err != nil {
		return command.ProcessingResult{}, err
	}

	if err := s.clients.FindActiveClient(ctx, cmd.ClientID); err != nil {
		return command.ProcessingResult{}, err
	}

	l := &Loan{
		ExternalID:  uuid.NewString(),
		ClientID:    cmd.ClientID,
		Principal:   cmd.Principal,
		Outstanding: decimal.Zero,
		TotalRepaid: decimal.Zero,
		Status:      StatusSubmitted,
		SubmittedOn: submittedOn,
	}

	id, err := s.repo.CreateLoan(ctx, l)
	if err != nil {
		return command.ProcessingResult{}, err
	}

	s.logger.Log(ctx, logpkg.LevelInfo, "loan application submitted",
		logpkg.Int64("loan_id", id),
		logpkg.Int64("client_id", cmd.ClientID),
		logpkg.String("principal", cmd.Principal.String()),
	)

	return command.ProcessingResult{ResourceID: id, ExternalID: l.ExternalID}, nil
}

// Approve moves a submitted application to approved.
func (s *Service) Approve(ctx context.Context, id int64, cmd ApproveCommand) (command.ProcessingResult, error) {
	if err := validate.Struct(cmd); err != nil {
		return command.ProcessingResult{}, err
	}

	approvedOn, err := parseDate(cmd.ApprovedOn, "approvedOnDate")
	if err != nil {
		return command.ProcessingResult{}, err
	}

	l, err := s.repo.FindLoanForUpdate(ctx, id)
	if err != nil {
		return command.ProcessingResult{}, err
	}

	if l.Status != StatusSubmitted {
		return command.ProcessingResult{}, errs.BusinessRule(
			"loan %d cannot be approved from status %s", id, l.Status)
	}

	l.Status = StatusApproved
	l.ApprovedOn = &approvedOn

	if err := s.repo.UpdateLoan(ctx, l); err != nil {
		return command.ProcessingResult{}, err
	}

	return command.ProcessingResult{
		ResourceID: id,
		ExternalID: l.ExternalID,
		Changes:    map[string]any{"status": string(StatusApproved)},
	}, nil
}

// Disburse pays out an approved loan and opens its outstanding balance.
func (s *Service) Disburse(ctx context.Context, id int64, cmd DisburseCommand) (command.ProcessingResult, error) {
	if err := validate.Struct(cmd); err != nil {
		return command.ProcessingResult{}, err
	}

	disbursedOn, err := parseDate(cmd.DisbursedOn, "actualDisbursementDate")
	if err != nil {
		return command.ProcessingResult{}, err
	}

	var result command.ProcessingResult

	err = s.withLoanLock(ctx, id, func(ctx context.Context) error {
		l, err := s.repo.FindLoanForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if l.Status != StatusApproved {
			return errs.BusinessRule("loan %d cannot be disbursed from status %s", id, l.Status)
		}

		txID, err := s.repo.NextTransactionID(ctx)
		if err != nil {
			return err
		}

		l.Status = StatusActive
		l.DisbursedOn = &disbursedOn
		l.Outstanding = l.Principal
		l.Transactions = append(l.Transactions, Transaction{
			ID:         txID,
			ExternalID: uuid.NewString(),
			Type:       TransactionDisbursement,
			Amount:     l.Principal,
			Date:       disbursedOn,
		})

		if err := s.repo.UpdateLoan(ctx, l); err != nil {
			return err
		}

		result = command.ProcessingResult{
			ResourceID: id,
			ExternalID: l.ExternalID,
			Changes:    map[string]any{"status": string(StatusActive)},
		}

		return nil
	})
	if err != nil {
		return command.ProcessingResult{}, err
	}

	if pubErr := s.publisher.Publish(ctx, events.KeyLoanDisbursed, result); pubErr != nil {
		s.logger.Log(ctx, logpkg.LevelWarn, "failed to publish disbursement event",
			logpkg.Int64("loan_id", id), logpkg.Err(pubErr))
	}

	return result, nil
}

// Repay applies a repayment to an active loan. The amount must not exceed
// the outstanding balance; a loan repaid in full is closed.
func (s *Service) Repay(ctx context.Context, id int64, cmd RepaymentCommand) (command.ProcessingResult, error) {
	if err := validate.Struct(cmd); err != nil {
		return command.ProcessingResult{}, err
	}

	date, err := parseDate(cmd.Date, "transactionDate")
	if err != nil {
		return command.ProcessingResult{}, err
	}

	var (
		result command.ProcessingResult
		event  RepaymentEvent
	)

	err = s.withLoanLock(ctx, id, func(ctx context.Context) error {
		l, err := s.repo.FindLoanForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if l.Status != StatusActive {
			return errs.BusinessRule("loan %d does not accept repayments in status %s", id, l.Status)
		}

		if cmd.Amount.GreaterThan(l.Outstanding) {
			return errs.BusinessRule(
				"repayment of %s exceeds outstanding balance %s on loan %d",
				cmd.Amount.String(), l.Outstanding.String(), id)
		}

		txID, err := s.repo.NextTransactionID(ctx)
		if err != nil {
			return err
		}

		l.Outstanding = l.Outstanding.Sub(cmd.Amount)
		l.TotalRepaid = l.TotalRepaid.Add(cmd.Amount)
		l.Transactions = append(l.Transactions, Transaction{
			ID:         txID,
			ExternalID: uuid.NewString(),
			Type:       TransactionRepayment,
			Amount:     cmd.Amount,
			Date:       date,
		})

		if l.Outstanding.IsZero() {
			l.Status = StatusClosed
		}

		if err := s.repo.UpdateLoan(ctx, l); err != nil {
			return err
		}

		result = command.ProcessingResult{
			ResourceID: txID,
			Changes: map[string]any{
				"amount":      cmd.Amount.String(),
				"outstanding": l.Outstanding.String(),
			},
		}
		event = RepaymentEvent{
			LoanID:        id,
			TransactionID: txID,
			Amount:        cmd.Amount,
			Outstanding:   l.Outstanding,
			Date:          cmd.Date,
		}

		return nil
	})
	if err != nil {
		return command.ProcessingResult{}, err
	}

	s.logger.Log(ctx, logpkg.LevelInfo, "repayment applied",
		logpkg.Int64("loan_id", id),
		logpkg.Int64("transaction_id", event.TransactionID),
		logpkg.String("amount", cmd.Amount.String()),
	)

	if pubErr := s.publisher.Publish(ctx, events.KeyRepaymentApplied, event); pubErr != nil {
		s.logger.Log(ctx, logpkg.LevelWarn, "failed to publish repayment event",
			logpkg.Int64("loan_id", id), logpkg.Err(pubErr))
	}

	return result, nil
}

// Get returns a loan with its transaction history.
func (s *Service) Get(ctx context.Context, id int64) (*Loan, error) {
	return s.repo.FindLoan(ctx, id)
}

// withLoanLock serializes fn on the loan's lock key. Inside a unit of work
// the store's transaction locks already cover the aggregate, so the keyed
// lock is skipped to keep the Locker-before-UnitOfWork ordering.
func (s *Service) withLoanLock(ctx context.Context, id int64, fn func(ctx context.Context) error) error {
	if storage.InUnitOfWork(ctx) {
		return fn(ctx)
	}

	return s.locker.WithLock(ctx, lockKey(id), fn)
}

func lockKey(id int64) string {
	return fmt.Sprintf("loan:%d", id)
}

func parseDate(value, field string) (time.Time, error) {
	date, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, errs.Validation("field %s must use layout %s", field, dateLayout)
	}

	return date, nil
}
