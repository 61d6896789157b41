package repository

import (
	"context"

	"pharmacy-portal/internal/model"

	"gorm.io/gorm"
)

type InventoryRepository interface {
	// DecrementClamped lowers stock in a single statement, never below zero.
	// Zero rows affected means the product does not exist.
	DecrementClamped(ctx context.Context, productID uint, quantity int) (int64, error)
	// DecrementReadWrite is the fallback: read, clamp, write. Concurrent
	// settlements of the same product may lose an update here.
	DecrementReadWrite(ctx context.Context, productID uint, quantity int) error
	MarkOutOfStockIfEmpty(ctx context.Context, productID uint) error
}

type inventoryRepoImpl struct {
	db *gorm.DB
}

func NewInventoryRepository(db *gorm.DB) InventoryRepository {
	return &inventoryRepoImpl{
		db: db,
	}
}

func (r *inventoryRepoImpl) DecrementClamped(ctx context.Context, productID uint, quantity int) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ?", productID).
		Update("stock_quantity", gorm.Expr(
			"CASE WHEN stock_quantity >= ? THEN stock_quantity - ? ELSE 0 END",
			quantity, quantity,
		))
	return res.RowsAffected, res.Error
}

func (r *inventoryRepoImpl) DecrementReadWrite(ctx context.Context, productID uint, quantity int) error {
	var product model.Product
	if err := r.db.WithContext(ctx).Select("id", "stock_quantity").First(&product, productID).Error; err != nil {
		return err
	}

	next := product.StockQuantity - quantity
	if next < 0 {
		next = 0
	}

	return r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ?", productID).
		Update("stock_quantity", next).Error
}

func (r *inventoryRepoImpl) MarkOutOfStockIfEmpty(ctx context.Context, productID uint) error {
	return r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ? AND stock_quantity <= 0 AND status = ?", productID, model.ProductStatusActive).
		Update("status", model.ProductStatusOutOfStock).Error
}
