package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserStatus represents lifecycle states for an account.
type UserStatus string

const (
	UserStatusActive  UserStatus = "active"
	UserStatusBlocked UserStatus = "blocked"
)

// User is the actor model. Seller-only fields stay nil unless Roles holds
// RoleSeller.
type User struct {
	ID            string
	Username      string
	Email         string
	PasswordHash  string
	Roles         RoleSet
	Status        UserStatus
	BuyerBalance  decimal.Decimal
	SellerBalance *decimal.Decimal
	SellerID      *string
	Commission    *decimal.Decimal
	WalletAddress string
	RegisteredAt  time.Time
	LastLoginAt   *time.Time
	UpdatedAt     time.Time
}

func (u *User) IsAdmin() bool  { return u != nil && u.Roles.Has(RoleAdmin) }
func (u *User) IsSeller() bool { return u != nil && u.Roles.Has(RoleSeller) }
func (u *User) IsBuyer() bool  { return u != nil && u.Roles.Has(RoleBuyer) }

func (u *User) IsBlocked() bool { return u != nil && u.Status == UserStatusBlocked }

// SellerKey is the id cards are listed under, or "" for non-sellers.
func (u *User) SellerKey() string {
	if !u.IsSeller() || u.SellerID == nil {
		return ""
	}
	return *u.SellerID
}

// AvailableSellerBalance returns the seller balance, zero for non-sellers.
func (u *User) AvailableSellerBalance() decimal.Decimal {
	if !u.IsSeller() || u.SellerBalance == nil {
		return decimal.Zero
	}
	return *u.SellerBalance
}

// CommissionRate returns the seller commission percent, zero when unset.
func (u *User) CommissionRate() decimal.Decimal {
	if !u.IsSeller() || u.Commission == nil {
		return decimal.Zero
	}
	return *u.Commission
}

// PromoteToSeller grants the seller role and its gated fields. The seller
// id is the user id. Already-seller accounts are left untouched.
func (u *User) PromoteToSeller(commission decimal.Decimal) {
	if u.IsSeller() {
		return
	}
	u.Roles = u.Roles.With(RoleSeller)
	id := u.ID
	zero := decimal.Zero
	u.SellerID = &id
	u.SellerBalance = &zero
	u.Commission = &commission
}

// CreditSeller adds amount to the seller balance.
func (u *User) CreditSeller(amount decimal.Decimal) {
	balance := u.AvailableSellerBalance().Add(amount)
	u.SellerBalance = &balance
}

// NormalizeRoleFields drops seller-only fields when the seller role is
// absent and fills them when it is present.
func (u *User) NormalizeRoleFields() {
	if !u.Roles.Has(RoleSeller) {
		u.SellerBalance = nil
		u.SellerID = nil
		u.Commission = nil
		return
	}
	if u.SellerID == nil {
		id := u.ID
		u.SellerID = &id
	}
	if u.SellerBalance == nil {
		zero := decimal.Zero
		u.SellerBalance = &zero
	}
	if u.Commission == nil {
		zero := decimal.Zero
		u.Commission = &zero
	}
}
