package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anil-trigital/GST/internal/client"
	"github.com/anil-trigital/GST/internal/errs"
	"github.com/anil-trigital/GST/internal/loan"
	"github.com/anil-trigital/GST/internal/provisioning"
	"github.com/anil-trigital/GST/internal/storage"
	logpkg "github.com/anil-trigital/GST/pkg/log"
	"github.com/bxcodec/dbresolver/v2"
)

type txKey struct{}

// querier is satisfied by both the resolver and an open transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the postgres-backed collaborator store.
type Store struct {
	db     dbresolver.DB
	logger logpkg.Logger
}

// Interface assertions: the store backs every repository plus the unit of work.
var (
	_ storage.UnitOfWork      = (*Store)(nil)
	_ client.Repository       = (*Store)(nil)
	_ loan.Repository         = (*Store)(nil)
	_ loan.ClientDirectory    = (*Store)(nil)
	_ provisioning.Repository = (*Store)(nil)
)

// Close releases the underlying pools.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) querier(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}

	return s.db
}

// Do runs fn inside one database transaction. A nested call joins the
// enclosing transaction instead of opening a second one.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(storage.MarkUnitOfWork(context.WithValue(ctx, txKey{}, tx))); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.Log(ctx, logpkg.LevelError, "rollback failed", logpkg.Err(rbErr))
		}

		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ---------------------------------------------------------------------------
// client.Repository
// ---------------------------------------------------------------------------

// CreateClient inserts the client and assigns its identifier.
func (s *Store) CreateClient(ctx context.Context, c *client.Client) (int64, error) {
	const q = `INSERT INTO clients (external_id, full_name, office_id, status, submitted_on)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`

	err := s.querier(ctx).QueryRowContext(ctx, q,
		c.ExternalID, c.FullName, c.OfficeID, c.Status, c.SubmittedOn).Scan(&c.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert client: %w", err)
	}

	return c.ID, nil
}

// FindClient loads a client by id.
func (s *Store) FindClient(ctx context.Context, id int64) (*client.Client, error) {
	const q = `SELECT id, external_id, full_name, office_id, status, submitted_on, activated_on
		FROM clients WHERE id = $1`

	var c client.Client

	err := s.querier(ctx).QueryRowContext(ctx, q, id).Scan(
		&c.ID, &c.ExternalID, &c.FullName, &c.OfficeID, &c.Status, &c.SubmittedOn, &c.ActivatedOn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("client", id)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load client %d: %w", id, err)
	}

	return &c, nil
}

// UpdateClient persists client changes.
func (s *Store) UpdateClient(ctx context.Context, c *client.Client) error {
	const q = `UPDATE clients SET full_name = $2, office_id = $3, status = $4, activated_on = $5
		WHERE id = $1`

	result, err := s.querier(ctx).ExecContext(ctx, q,
		c.ID, c.FullName, c.OfficeID, c.Status, c.ActivatedOn)
	if err != nil {
		return fmt.Errorf("failed to update client %d: %w", c.ID, err)
	}

	return mustAffect(result, "client", c.ID)
}

// FindActiveClient implements loan.ClientDirectory.
func (s *Store) FindActiveClient(ctx context.Context, id int64) error {
	c, err := s.FindClient(ctx, id)
	if err != nil {
		return err
	}

	if c.Status != client.StatusActive {
		return errs.BusinessRule("client %d is not active", id)
	}

	return nil
}

// ---------------------------------------------------------------------------
// loan.Repository
// ---------------------------------------------------------------------------

// CreateLoan inserts the loan and assigns its identifier.
func (s *Store) CreateLoan(ctx context.Context, l *loan.Loan) (int64, error) {
	const q = `INSERT INTO loans
		(external_id, client_id, principal, outstanding, total_repaid, status, submitted_on, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0) RETURNING id`

	err := s.querier(ctx).QueryRowContext(ctx, q,
		l.ExternalID, l.ClientID, l.Principal, l.Outstanding, l.TotalRepaid,
		l.Status, l.SubmittedOn).Scan(&l.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert loan: %w", err)
	}

	return l.ID, nil
}

// FindLoan loads a loan and its transaction history.
func (s *Store) FindLoan(ctx context.Context, id int64) (*loan.Loan, error) {
	return s.findLoan(ctx, id, false)
}

// FindLoanForUpdate loads the loan with its row locked until the enclosing
// transaction completes.
func (s *Store) FindLoanForUpdate(ctx context.Context, id int64) (*loan.Loan, error) {
	return s.findLoan(ctx, id, true)
}

func (s *Store) findLoan(ctx context.Context, id int64, forUpdate bool) (*loan.Loan, error) {
	q := `SELECT id, external_id, client_id, principal, outstanding, total_repaid,
		status, submitted_on, approved_on, disbursed_on, version
		FROM loans WHERE id = $1`
	if forUpdate {
		q += " FOR UPDATE"
	}

	var l loan.Loan

	err := s.querier(ctx).QueryRowContext(ctx, q, id).Scan(
		&l.ID, &l.ExternalID, &l.ClientID, &l.Principal, &l.Outstanding, &l.TotalRepaid,
		&l.Status, &l.SubmittedOn, &l.ApprovedOn, &l.DisbursedOn, &l.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("loan", id)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load loan %d: %w", id, err)
	}

	transactions, err := s.loadTransactions(ctx, id)
	if err != nil {
		return nil, err
	}

	l.Transactions = transactions

	return &l, nil
}

func (s *Store) loadTransactions(ctx context.Context, loanID int64) ([]loan.Transaction, error) {
	const q = `SELECT id, external_id, type, amount, date
		FROM loan_transactions WHERE loan_id = $1 ORDER BY id`

	rows, err := s.querier(ctx).QueryContext(ctx, q, loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions for loan %d: %w", loanID, err)
	}
	defer rows.Close()

	var transactions []loan.Transaction

	for rows.Next() {
		var t loan.Transaction
		if err := rows.Scan(&t.ID, &t.ExternalID, &t.Type, &t.Amount, &t.Date); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		transactions = append(transactions, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return transactions, nil
}

// UpdateLoan persists loan changes and appends new ledger transactions.
// The version check guards against lost updates outside the row lock.
func (s *Store) UpdateLoan(ctx context.Context, l *loan.Loan) error {
	const q = `UPDATE loans SET outstanding = $2, total_repaid = $3, status = $4,
		approved_on = $5, disbursed_on = $6, version = version + 1
		WHERE id = $1 AND version = $7`

	result, err := s.querier(ctx).ExecContext(ctx, q,
		l.ID, l.Outstanding, l.TotalRepaid, l.Status, l.ApprovedOn, l.DisbursedOn, l.Version)
	if err != nil {
		return fmt.Errorf("failed to update loan %d: %w", l.ID, err)
	}

	if err := mustAffect(result, "loan", l.ID); err != nil {
		return err
	}

	const insert = `INSERT INTO loan_transactions (id, loan_id, external_id, type, amount, date)
		VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (id) DO NOTHING`

	for _, t := range l.Transactions {
		_, err := s.querier(ctx).ExecContext(ctx, insert,
			t.ID, l.ID, t.ExternalID, t.Type, t.Amount, t.Date)
		if err != nil {
			return fmt.Errorf("failed to insert transaction %d: %w", t.ID, err)
		}
	}

	return nil
}

// NextTransactionID reserves the next ledger transaction identifier.
func (s *Store) NextTransactionID(ctx context.Context) (int64, error) {
	var id int64

	err := s.querier(ctx).QueryRowContext(ctx, `SELECT nextval('loan_transaction_seq')`).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to reserve transaction id: %w", err)
	}

	return id, nil
}

// ---------------------------------------------------------------------------
// provisioning.Repository
// ---------------------------------------------------------------------------

// CreateCriteria inserts the criteria and assigns its identifier.
func (s *Store) CreateCriteria(ctx context.Context, c *provisioning.Criteria) (int64, error) {
	buckets, err := json.Marshal(c.Buckets)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal criteria definitions: %w", err)
	}

	const q = `INSERT INTO provisioning_criteria (external_id, name, definitions)
		VALUES ($1, $2, $3) RETURNING id`

	err = s.querier(ctx).QueryRowContext(ctx, q, c.ExternalID, c.Name, buckets).Scan(&c.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert provisioning criteria: %w", err)
	}

	return c.ID, nil
}

// FindCriteria loads a criteria by id.
func (s *Store) FindCriteria(ctx context.Context, id int64) (*provisioning.Criteria, error) {
	const q = `SELECT id, external_id, name, definitions FROM provisioning_criteria WHERE id = $1`

	return s.scanCriteria(s.querier(ctx).QueryRowContext(ctx, q, id), id)
}

// FindCriteriaByName loads a criteria by name, returning nil when absent.
func (s *Store) FindCriteriaByName(ctx context.Context, name string) (*provisioning.Criteria, error) {
	const q = `SELECT id, external_id, name, definitions
		FROM provisioning_criteria WHERE lower(name) = lower($1)`

	c, err := s.scanCriteria(s.querier(ctx).QueryRowContext(ctx, q, name), 0)

	var failure *errs.Failure
	if errors.As(err, &failure) && failure.Kind == errs.KindNotFound {
		return nil, nil
	}

	return c, err
}

func (s *Store) scanCriteria(row *sql.Row, id int64) (*provisioning.Criteria, error) {
	var (
		c       provisioning.Criteria
		buckets []byte
	)

	err := row.Scan(&c.ID, &c.ExternalID, &c.Name, &buckets)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("provisioning criteria", id)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load provisioning criteria: %w", err)
	}

	if err := json.Unmarshal(buckets, &c.Buckets); err != nil {
		return nil, fmt.Errorf("failed to unmarshal criteria definitions: %w", err)
	}

	return &c, nil
}

// UpdateCriteria persists criteria changes.
func (s *Store) UpdateCriteria(ctx context.Context, c *provisioning.Criteria) error {
	buckets, err := json.Marshal(c.Buckets)
	if err != nil {
		return fmt.Errorf("failed to marshal criteria definitions: %w", err)
	}

	const q = `UPDATE provisioning_criteria SET name = $2, definitions = $3 WHERE id = $1`

	result, err := s.querier(ctx).ExecContext(ctx, q, c.ID, c.Name, buckets)
	if err != nil {
		return fmt.Errorf("failed to update provisioning criteria %d: %w", c.ID, err)
	}

	return mustAffect(result, "provisioning criteria", c.ID)
}

func mustAffect(result sql.Result, entity string, id int64) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return errs.NotFound(entity, id)
	}

	return nil
}
