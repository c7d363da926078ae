package repository

import "github.com/jackc/pgx/v5/pgxpool"

// Set bundles every repository together with the transaction runner that
// spans them.
type Set struct {
	Users          UserRepository
	Cards          CardRepository
	Orders         OrderRepository
	Withdrawals    WithdrawalRepository
	Deposits       DepositRepository
	Tickets        TicketRepository
	PasswordResets PasswordResetRepository
	Tx             TxRunner
}

// NewPostgresSet builds a Set over pool.
func NewPostgresSet(pool *pgxpool.Pool) Set {
	return Set{
		Users:          NewUserRepository(pool),
		Cards:          NewCardRepository(pool),
		Orders:         NewOrderRepository(pool),
		Withdrawals:    NewWithdrawalRepository(pool),
		Deposits:       NewDepositRepository(pool),
		Tickets:        NewTicketRepository(pool),
		PasswordResets: NewPasswordResetRepository(pool),
		Tx:             NewTxRunner(pool),
	}
}
