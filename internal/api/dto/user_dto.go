package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/cardmarket/internal/domain"
)

// RegisterRequest payload for new buyers.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PasswordResetRequest payload for initiating reset.
type PasswordResetRequest struct {
	Email string `json:"email"`
}

// PasswordResetConfirmRequest payload for confirming reset.
type PasswordResetConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// PasswordChangeRequest payload for authenticated password changes.
type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PromoteRequest optionally sets the commission of a new seller.
type PromoteRequest struct {
	Commission *decimal.Decimal `json:"commission"`
}

// CommissionRequest sets a seller commission percent.
type CommissionRequest struct {
	Commission *decimal.Decimal `json:"commission"`
}

// UserResponse is the public view of an account. Seller fields are omitted
// for non-sellers.
type UserResponse struct {
	ID            string            `json:"id"`
	Username      string            `json:"username"`
	Email         string            `json:"email"`
	Roles         domain.RoleSet    `json:"roles"`
	Status        domain.UserStatus `json:"status"`
	BuyerBalance  decimal.Decimal   `json:"buyer_balance"`
	SellerBalance *decimal.Decimal  `json:"seller_balance,omitempty"`
	SellerID      *string           `json:"seller_id,omitempty"`
	Commission    *decimal.Decimal  `json:"commission,omitempty"`
	WalletAddress string            `json:"wallet_address,omitempty"`
	RegisteredAt  time.Time         `json:"registered_at"`
	LastLoginAt   *time.Time        `json:"last_login_at"`
}

// NewUserResponse maps a domain user.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		Roles:         u.Roles,
		Status:        u.Status,
		BuyerBalance:  u.BuyerBalance,
		SellerBalance: u.SellerBalance,
		SellerID:      u.SellerID,
		Commission:    u.Commission,
		WalletAddress: u.WalletAddress,
		RegisteredAt:  u.RegisteredAt,
		LastLoginAt:   u.LastLoginAt,
	}
}
