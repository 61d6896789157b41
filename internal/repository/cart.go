package repository

import (
	"context"
	"time"

	"pharmacy-portal/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartRepository interface {
	ListByUser(ctx context.Context, userID string) ([]*model.CartItem, error)
	FindByID(ctx context.Context, userID string, itemID uint) (*model.CartItem, error)
	// Add inserts a line, merging quantities when the user already has the
	// same catalog product in the cart.
	Add(ctx context.Context, item *model.CartItem) (*model.CartItem, error)
	UpdateQuantity(ctx context.Context, userID string, itemID uint, quantity int) error
	Delete(ctx context.Context, userID string, itemID uint) error
	ClearByUser(ctx context.Context, userID string) (int64, error)
}

type cartRepoImpl struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepoImpl{
		db: db,
	}
}

func (r *cartRepoImpl) ListByUser(ctx context.Context, userID string) ([]*model.CartItem, error) {
	var items []*model.CartItem
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}

	return items, nil
}

func (r *cartRepoImpl) FindByID(ctx context.Context, userID string, itemID uint) (*model.CartItem, error) {
	var item model.CartItem
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("id = ? AND user_id = ?", itemID, userID).
		First(&item).Error
	if err != nil {
		return nil, err
	}

	return &item, nil
}

func (r *cartRepoImpl) Add(ctx context.Context, item *model.CartItem) (*model.CartItem, error) {
	if item.ProductID == nil {
		if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
			return nil, err
		}
		return item, nil
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr("cart_items.quantity + ?", item.Quantity),
			"updated_at": time.Now(),
		}),
	}).Omit("Product").Create(item).Error
	if err != nil {
		return nil, err
	}

	var merged model.CartItem
	err = r.db.WithContext(ctx).
		Preload("Product").
		Where("user_id = ? AND product_id = ?", item.UserID, *item.ProductID).
		First(&merged).Error
	if err != nil {
		return nil, err
	}
	return &merged, nil
}

func (r *cartRepoImpl) UpdateQuantity(ctx context.Context, userID string, itemID uint, quantity int) error {
	res := r.db.WithContext(ctx).Model(&model.CartItem{}).
		Where("id = ? AND user_id = ?", itemID, userID).
		Update("quantity", quantity)
	if res.Error != nil {
		return res.Error
	}
	// mysql reports zero affected rows when the quantity is unchanged
	if res.RowsAffected == 0 {
		_, err := r.FindByID(ctx, userID, itemID)
		return err
	}
	return nil
}

func (r *cartRepoImpl) Delete(ctx context.Context, userID string, itemID uint) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", itemID, userID).
		Delete(&model.CartItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *cartRepoImpl) ClearByUser(ctx context.Context, userID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.CartItem{})
	return res.RowsAffected, res.Error
}
