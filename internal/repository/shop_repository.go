package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/kirei-app/kirei-api/internal/model"
)

// ShopRepo provides CRUD operations for shops.  Ownership checks live
// here so handlers only have to map sentinel errors to status codes.
type ShopRepo struct{ DB *sqlx.DB }

func NewShopRepo(db *sqlx.DB) *ShopRepo { return &ShopRepo{DB: db} }

const shopColumns = "id, owner_id, name, description, address, phone, is_active, created_at, updated_at"

// Create inserts a shop and returns its ID.
func (r *ShopRepo) Create(ctx context.Context, s model.Shop) (uint64, error) {
	var id uint64
	err := r.DB.QueryRowContext(ctx,
		`INSERT INTO shops (owner_id, name, description, address, phone)
		 VALUES ($1,$2,$3,$4,$5) RETURNING id`,
		s.OwnerID, s.Name, s.Description, s.Address, s.Phone).Scan(&id)
	return id, err
}

// GetByID fetches a shop by id.
func (r *ShopRepo) GetByID(ctx context.Context, id uint64) (model.Shop, error) {
	var s model.Shop
	err := r.DB.GetContext(ctx, &s,
		"SELECT "+shopColumns+" FROM shops WHERE id=$1", id)
	return s, err
}

// ListActive returns active shops ordered by id with limit/offset
// pagination.
func (r *ShopRepo) ListActive(ctx context.Context, limit, offset int) ([]model.Shop, error) {
	shops := []model.Shop{}
	err := r.DB.SelectContext(ctx, &shops,
		"SELECT "+shopColumns+" FROM shops WHERE is_active ORDER BY id LIMIT $1 OFFSET $2",
		limit, offset)
	return shops, err
}

// Update modifies the mutable fields of a shop owned by ownerID.  When
// the shop exists but belongs to someone else, ErrForbidden is returned;
// when it does not exist, sql.ErrNoRows.
func (r *ShopRepo) Update(ctx context.Context, s model.Shop, ownerID uint64) error {
	var actualOwner uint64
	if err := r.DB.QueryRowContext(ctx,
		"SELECT owner_id FROM shops WHERE id=$1", s.ID).Scan(&actualOwner); err != nil {
		return err
	}
	if actualOwner != ownerID {
		return ErrForbidden
	}
	_, err := r.DB.ExecContext(ctx,
		`UPDATE shops SET name=$1, description=$2, address=$3, phone=$4, is_active=$5, updated_at=NOW()
		 WHERE id=$6`,
		s.Name, s.Description, s.Address, s.Phone, s.IsActive, s.ID)
	return err
}

// IsOwner reports whether userID owns the shop.  Unknown shops surface
// as sql.ErrNoRows.
func (r *ShopRepo) IsOwner(ctx context.Context, shopID, userID uint64) (bool, error) {
	var ownerID uint64
	if err := r.DB.QueryRowContext(ctx,
		"SELECT owner_id FROM shops WHERE id=$1", shopID).Scan(&ownerID); err != nil {
		return false, err
	}
	return ownerID == userID, nil
}
