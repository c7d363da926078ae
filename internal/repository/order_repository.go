package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/cardmarket/internal/domain"
)

// OrderRepository encapsulates order persistence.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	// Update decides a pending order. It returns ErrStale when the order
	// was already decided.
	Update(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	List(ctx context.Context) ([]domain.Order, error)
}

type orderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository instantiates repository.
func NewOrderRepository(pool *pgxpool.Pool) OrderRepository {
	return &orderRepository{pool: pool}
}

const orderColumns = `id, card_id, buyer_id, seller_id, price, status, created_at, updated_at`

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	ensureID(&order.ID)
	const query = `
        INSERT INTO orders (id, card_id, buyer_id, seller_id, price, status)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING created_at, updated_at`
	return conn(ctx, r.pool).QueryRow(ctx, query,
		order.ID,
		order.CardID,
		order.BuyerID,
		order.SellerID,
		order.Price,
		order.Status,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
}

// Update only persists the status; everything else is fixed at creation.
func (r *orderRepository) Update(ctx context.Context, order *domain.Order) error {
	const query = `UPDATE orders SET status=$1, updated_at=NOW() WHERE id=$2 AND status=$3`
	return execTransition(ctx, conn(ctx, r.pool), query, order.Status, order.ID, domain.OrderStatusPending)
}

func (r *orderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	order, err := scanOrder(conn(ctx, r.pool).QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`+forUpdate(ctx), id))
	if err != nil {
		return nil, notFound(err)
	}
	return order, nil
}

func (r *orderRepository) List(ctx context.Context) ([]domain.Order, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *order)
	}
	return result, rows.Err()
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var order domain.Order
	if err := row.Scan(
		&order.ID,
		&order.CardID,
		&order.BuyerID,
		&order.SellerID,
		&order.Price,
		&order.Status,
		&order.CreatedAt,
		&order.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &order, nil
}
