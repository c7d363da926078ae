package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/cardmarket/internal/domain"
)

// WithdrawalRepository encapsulates seller payout persistence.
type WithdrawalRepository interface {
	Create(ctx context.Context, w *domain.Withdrawal) error
	// Update decides a pending withdrawal and returns ErrStale otherwise.
	Update(ctx context.Context, w *domain.Withdrawal) error
	GetByID(ctx context.Context, id string) (*domain.Withdrawal, error)
	List(ctx context.Context) ([]domain.Withdrawal, error)
}

type withdrawalRepository struct {
	pool *pgxpool.Pool
}

// NewWithdrawalRepository instantiates repository.
func NewWithdrawalRepository(pool *pgxpool.Pool) WithdrawalRepository {
	return &withdrawalRepository{pool: pool}
}

const withdrawalColumns = `id, seller_id, amount, commission, received, address, status, tx_id, created_at, decided_at`

func (r *withdrawalRepository) Create(ctx context.Context, w *domain.Withdrawal) error {
	ensureID(&w.ID)
	const query = `
        INSERT INTO withdrawals (id, seller_id, amount, commission, received, address, status, tx_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING created_at`
	return conn(ctx, r.pool).QueryRow(ctx, query,
		w.ID,
		w.SellerID,
		w.Amount,
		w.Commission,
		w.Received,
		w.Address,
		w.Status,
		w.TxID,
	).Scan(&w.CreatedAt)
}

func (r *withdrawalRepository) Update(ctx context.Context, w *domain.Withdrawal) error {
	const query = `UPDATE withdrawals SET status=$1, tx_id=$2, decided_at=$3 WHERE id=$4 AND status=$5`
	return execTransition(ctx, conn(ctx, r.pool), query, w.Status, w.TxID, w.DecidedAt, w.ID, domain.PayoutStatusPending)
}

func (r *withdrawalRepository) GetByID(ctx context.Context, id string) (*domain.Withdrawal, error) {
	w, err := scanWithdrawal(conn(ctx, r.pool).QueryRow(ctx, `SELECT `+withdrawalColumns+` FROM withdrawals WHERE id=$1`+forUpdate(ctx), id))
	if err != nil {
		return nil, notFound(err)
	}
	return w, nil
}

func (r *withdrawalRepository) List(ctx context.Context) ([]domain.Withdrawal, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `SELECT `+withdrawalColumns+` FROM withdrawals ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Withdrawal{}
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *w)
	}
	return result, rows.Err()
}

func scanWithdrawal(row pgx.Row) (*domain.Withdrawal, error) {
	var w domain.Withdrawal
	if err := row.Scan(
		&w.ID,
		&w.SellerID,
		&w.Amount,
		&w.Commission,
		&w.Received,
		&w.Address,
		&w.Status,
		&w.TxID,
		&w.CreatedAt,
		&w.DecidedAt,
	); err != nil {
		return nil, err
	}
	return &w, nil
}
