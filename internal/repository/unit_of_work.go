package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// querier is satisfied by both *sql.DB and *sql.Tx so each repo can run
// inside or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the MySQL UnitOfWork.
type Store struct {
	db *sql.DB
}

// NewStore returns a Store bound to the given database.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// Within runs fn inside a read-write transaction. The transaction is
// committed only when fn returns nil.
func (s *Store) Within(ctx context.Context, fn func(tx Tx) error) error {
	return s.run(ctx, nil, fn)
}

// View runs fn inside a read-only transaction so multi-query rollups
// observe one snapshot.
func (s *Store) View(ctx context.Context, fn func(tx Tx) error) error {
	return s.run(ctx, &sql.TxOptions{ReadOnly: true}, fn)
}

func (s *Store) run(ctx context.Context, opts *sql.TxOptions, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(newSQLTx(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}

type sqlTx struct {
	rooms         *RoomRepo
	users         *UserRepo
	registrations *RegistrationRepo
	contracts     *ContractRepo
	payments      *PaymentRepo
	tickets       *TicketRepo
	history       *HistoryRepo
}

func newSQLTx(q querier) *sqlTx {
	return &sqlTx{
		rooms:         &RoomRepo{db: q},
		users:         &UserRepo{db: q},
		registrations: &RegistrationRepo{db: q},
		contracts:     &ContractRepo{db: q},
		payments:      &PaymentRepo{db: q},
		tickets:       &TicketRepo{db: q},
		history:       &HistoryRepo{db: q},
	}
}

func (t *sqlTx) Rooms() RoomStore                 { return t.rooms }
func (t *sqlTx) Users() UserStore                 { return t.users }
func (t *sqlTx) Registrations() RegistrationStore { return t.registrations }
func (t *sqlTx) Contracts() ContractStore         { return t.contracts }
func (t *sqlTx) Payments() PaymentStore           { return t.payments }
func (t *sqlTx) Tickets() TicketStore             { return t.tickets }
func (t *sqlTx) History() HistoryStore            { return t.history }

// notFound maps sql.ErrNoRows to ErrNotFound and passes other errors
// through unchanged.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// isDuplicate reports whether err is a MySQL unique key violation.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

// expectRow returns ErrConflict when a guarded update touched no row.
func expectRow(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

func lockClause(lock bool) string {
	if lock {
		return " FOR UPDATE"
	}
	return ""
}
