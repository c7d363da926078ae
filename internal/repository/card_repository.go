package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/cardmarket/internal/domain"
)

// CardRepository encapsulates card persistence.
type CardRepository interface {
	Create(ctx context.Context, card *domain.Card) error
	Update(ctx context.Context, card *domain.Card) error
	// UpdateStatus moves a card from one status to another and returns
	// ErrStale when the card is no longer in from.
	UpdateStatus(ctx context.Context, id string, from, to domain.CardStatus) error
	GetByID(ctx context.Context, id string) (*domain.Card, error)
	GetByNumber(ctx context.Context, number string) (*domain.Card, error)
	List(ctx context.Context) ([]domain.Card, error)
}

type cardRepository struct {
	pool *pgxpool.Pool
}

// NewCardRepository instantiates repository.
func NewCardRepository(pool *pgxpool.Pool) CardRepository {
	return &cardRepository{pool: pool}
}

const cardColumns = `id, seller_id, card_number, expiration, cvv, price, status, created_at, updated_at`

func (r *cardRepository) Create(ctx context.Context, card *domain.Card) error {
	ensureID(&card.ID)
	const query = `
        INSERT INTO cards (id, seller_id, card_number, expiration, cvv, price, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING created_at, updated_at`
	return conn(ctx, r.pool).QueryRow(ctx, query,
		card.ID,
		card.SellerID,
		card.CardNumber,
		card.Expiration,
		card.CVV,
		card.Price,
		card.Status,
	).Scan(&card.CreatedAt, &card.UpdatedAt)
}

func (r *cardRepository) Update(ctx context.Context, card *domain.Card) error {
	const query = `
        UPDATE cards SET card_number=$1, expiration=$2, cvv=$3, price=$4, status=$5, updated_at=NOW()
        WHERE id=$6`
	return execOne(ctx, conn(ctx, r.pool), query,
		card.CardNumber,
		card.Expiration,
		card.CVV,
		card.Price,
		card.Status,
		card.ID,
	)
}

func (r *cardRepository) UpdateStatus(ctx context.Context, id string, from, to domain.CardStatus) error {
	const query = `UPDATE cards SET status=$1, updated_at=NOW() WHERE id=$2 AND status=$3`
	return execTransition(ctx, conn(ctx, r.pool), query, to, id, from)
}

func (r *cardRepository) GetByID(ctx context.Context, id string) (*domain.Card, error) {
	return r.fetchSingle(ctx, `SELECT `+cardColumns+` FROM cards WHERE id=$1`+forUpdate(ctx), id)
}

func (r *cardRepository) GetByNumber(ctx context.Context, number string) (*domain.Card, error) {
	return r.fetchSingle(ctx, `SELECT `+cardColumns+` FROM cards WHERE card_number=$1`, number)
}

func (r *cardRepository) List(ctx context.Context) ([]domain.Card, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `SELECT `+cardColumns+` FROM cards ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Card{}
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *card)
	}
	return result, rows.Err()
}

func (r *cardRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Card, error) {
	card, err := scanCard(conn(ctx, r.pool).QueryRow(ctx, query, arg))
	if err != nil {
		return nil, notFound(err)
	}
	return card, nil
}

func scanCard(row pgx.Row) (*domain.Card, error) {
	var card domain.Card
	if err := row.Scan(
		&card.ID,
		&card.SellerID,
		&card.CardNumber,
		&card.Expiration,
		&card.CVV,
		&card.Price,
		&card.Status,
		&card.CreatedAt,
		&card.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &card, nil
}
