package model

import "time"

// Shop represents a beauty salon listed on the marketplace.  Each shop
// belongs to one owner account with the SHOP role.  This struct
// corresponds to a row in the `shops` table.
//
// Fields:
//  ID          – primary key identifier.
//  OwnerID     – user ID of the shop owner.
//  Name        – display name of the shop.
//  Description – optional free-text description.
//  Address     – street address shown to customers.
//  Phone       – contact number (nullable).
//  IsActive    – whether the shop is visible to customers.
//  CreatedAt   – timestamp when the shop was created.
//  UpdatedAt   – timestamp of last update.
type Shop struct {
	ID          uint64    `db:"id" json:"id"`
	OwnerID     uint64    `db:"owner_id" json:"owner_id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	Address     string    `db:"address" json:"address"`
	Phone       *string   `db:"phone" json:"phone,omitempty"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
