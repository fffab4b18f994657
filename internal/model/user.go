package model

import "time"

// Role names stored in users.role and embedded in access tokens.
const (
	RoleCustomer = "CUSTOMER"
	RoleShop     = "SHOP"
	RoleAdmin    = "ADMIN"
)

// User represents an application user record as stored in the `users`
// table.  Shop staff and admins share the table with customers; the
// role column decides what the account may do.
//
// Fields:
//  ID              – primary key identifier.
//  Email           – unique email address.
//  PasswordHash    – bcrypt hashed password.
//  Role            – one of CUSTOMER, SHOP, ADMIN.
//  AvailablePoints – current loyalty point balance.
//  IsActive        – whether the account is active.
//  CreatedAt       – timestamp of creation.
//  UpdatedAt       – timestamp of last update.
type User struct {
	ID              uint64    `db:"id"`
	Email           string    `db:"email"`
	PasswordHash    string    `db:"password_hash"`
	Role            string    `db:"role"`
	AvailablePoints int64     `db:"available_points"`
	IsActive        bool      `db:"is_active"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}
