package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/spec-kit/cardmarket/internal/domain"
)

// DepositRepository encapsulates deposit persistence.
type DepositRepository interface {
	Create(ctx context.Context, d *domain.Deposit) error
	// Update decides a pending deposit and returns ErrStale otherwise.
	Update(ctx context.Context, d *domain.Deposit) error
	GetByID(ctx context.Context, id string) (*domain.Deposit, error)
	List(ctx context.Context) ([]domain.Deposit, error)
}

type depositRepository struct {
	pool *pgxpool.Pool
}

// NewDepositRepository instantiates repository.
func NewDepositRepository(pool *pgxpool.Pool) DepositRepository {
	return &depositRepository{pool: pool}
}

const depositColumns = `id, user_id, amount, currency, tx_hash, status, balance_before, balance_after, created_at, decided_at`

func (r *depositRepository) Create(ctx context.Context, d *domain.Deposit) error {
	ensureID(&d.ID)
	const query = `
        INSERT INTO deposits (id, user_id, amount, currency, tx_hash, status)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING created_at`
	return conn(ctx, r.pool).QueryRow(ctx, query,
		d.ID,
		d.UserID,
		d.Amount,
		d.Currency,
		d.TxHash,
		d.Status,
	).Scan(&d.CreatedAt)
}

func (r *depositRepository) Update(ctx context.Context, d *domain.Deposit) error {
	const query = `
        UPDATE deposits SET status=$1, balance_before=$2, balance_after=$3, decided_at=$4
        WHERE id=$5 AND status=$6`
	return execTransition(ctx, conn(ctx, r.pool), query, d.Status, d.BalanceBefore, d.BalanceAfter, d.DecidedAt, d.ID, domain.PayoutStatusPending)
}

func (r *depositRepository) GetByID(ctx context.Context, id string) (*domain.Deposit, error) {
	d, err := scanDeposit(conn(ctx, r.pool).QueryRow(ctx, `SELECT `+depositColumns+` FROM deposits WHERE id=$1`+forUpdate(ctx), id))
	if err != nil {
		return nil, notFound(err)
	}
	return d, nil
}

func (r *depositRepository) List(ctx context.Context) ([]domain.Deposit, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `SELECT `+depositColumns+` FROM deposits ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Deposit{}
	for rows.Next() {
		d, err := scanDeposit(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	return result, rows.Err()
}

func scanDeposit(row pgx.Row) (*domain.Deposit, error) {
	var (
		d      domain.Deposit
		before decimal.NullDecimal
		after  decimal.NullDecimal
	)
	if err := row.Scan(
		&d.ID,
		&d.UserID,
		&d.Amount,
		&d.Currency,
		&d.TxHash,
		&d.Status,
		&before,
		&after,
		&d.CreatedAt,
		&d.DecidedAt,
	); err != nil {
		return nil, err
	}
	if before.Valid {
		d.BalanceBefore = &before.Decimal
	}
	if after.Valid {
		d.BalanceAfter = &after.Decimal
	}
	return &d, nil
}
