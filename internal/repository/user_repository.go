package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/spec-kit/cardmarket/internal/domain"
)

// UserRepository defines persistence access for marketplace accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	// GetByID locks the row until commit when ctx carries a transaction.
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, username, email, password_hash, roles, status, buyer_balance, seller_balance,
               seller_id, commission, wallet_address, registered_at, last_login_at, updated_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	ensureID(&user.ID)
	user.NormalizeRoleFields()
	const query = `
        INSERT INTO users (id, username, email, password_hash, roles, status, buyer_balance,
                           seller_balance, seller_id, commission, wallet_address)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING registered_at, updated_at`

	return conn(ctx, r.pool).QueryRow(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Roles.Strings(),
		user.Status,
		user.BuyerBalance,
		user.SellerBalance,
		user.SellerID,
		user.Commission,
		user.WalletAddress,
	).Scan(&user.RegisteredAt, &user.UpdatedAt)
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	user.NormalizeRoleFields()
	const query = `
        UPDATE users SET username=$1, email=$2, password_hash=$3, roles=$4, status=$5, buyer_balance=$6,
            seller_balance=$7, seller_id=$8, commission=$9, wallet_address=$10, last_login_at=$11, updated_at=NOW()
        WHERE id=$12`

	return execOne(ctx, conn(ctx, r.pool), query,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Roles.Strings(),
		user.Status,
		user.BuyerBalance,
		user.SellerBalance,
		user.SellerID,
		user.Commission,
		user.WalletAddress,
		user.LastLoginAt,
		user.ID,
	)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`+forUpdate(ctx), id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email)=LOWER($1)`, email)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(username)=LOWER($1)`, username)
}

func (r *userRepository) List(ctx context.Context) ([]domain.User, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY registered_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *user)
	}
	return result, rows.Err()
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	user, err := scanUser(conn(ctx, r.pool).QueryRow(ctx, query, arg))
	if err != nil {
		return nil, notFound(err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		user          domain.User
		roles         []string
		sellerBalance decimal.NullDecimal
		commission    decimal.NullDecimal
	)
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&roles,
		&user.Status,
		&user.BuyerBalance,
		&sellerBalance,
		&user.SellerID,
		&commission,
		&user.WalletAddress,
		&user.RegisteredAt,
		&user.LastLoginAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	set, err := domain.ParseRoleSet(roles)
	if err != nil {
		return nil, err
	}
	user.Roles = set
	if sellerBalance.Valid {
		user.SellerBalance = &sellerBalance.Decimal
	}
	if commission.Valid {
		user.Commission = &commission.Decimal
	}
	return &user, nil
}
