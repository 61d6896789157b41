package repository

import (
	"context"
	"time"

	"pharmacy-portal/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderFilter struct {
	PaymentStatus model.PaymentStatus
	OrderStatus   model.OrderStatus
	From          *time.Time
	To            *time.Time
	Limit         int
	Offset        int
}

type OrderRepository interface {
	// CreateIfAbsent inserts the order header unless one already exists for
	// its payment reference. It reports whether this call inserted the row.
	CreateIfAbsent(ctx context.Context, order *model.Order) (bool, error)
	FindByPaymentReference(ctx context.Context, paymentReference string) (*model.Order, error)
	FindByIDForUser(ctx context.Context, userID string, orderID uint) (*model.Order, error)
	CreateOrderItems(ctx context.Context, items []*model.OrderItem) error
	ListByUser(ctx context.Context, userID string) ([]*model.Order, error)
	ListAdmin(ctx context.Context, filter OrderFilter) ([]*model.Order, int64, error)
	// MarkPaymentFailed cancels an unpaid order. Paid orders are left alone.
	MarkPaymentFailed(ctx context.Context, paymentReference string) (int64, error)
}

type orderRepoImpl struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepoImpl{
		db: db,
	}
}

func (r *orderRepoImpl) CreateIfAbsent(ctx context.Context, order *model.Order) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "payment_reference"}},
			DoNothing: true,
		}).
		Omit(clause.Associations).
		Create(order)
	if res.Error != nil {
		return false, res.Error
	}

	return res.RowsAffected > 0, nil
}

func (r *orderRepoImpl) FindByPaymentReference(ctx context.Context, paymentReference string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Where("payment_reference = ?", paymentReference).
		First(&order).Error

	if err != nil {
		return nil, err
	}

	return &order, nil
}

func (r *orderRepoImpl) FindByIDForUser(ctx context.Context, userID string, orderID uint) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ? AND user_id = ?", orderID, userID).
		First(&order).Error

	if err != nil {
		return nil, err
	}

	return &order, nil
}

func (r *orderRepoImpl) CreateOrderItems(ctx context.Context, items []*model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *orderRepoImpl) ListByUser(ctx context.Context, userID string) ([]*model.Order, error) {
	var orders []*model.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}

	return orders, nil
}

func (r *orderRepoImpl) ListAdmin(ctx context.Context, filter OrderFilter) ([]*model.Order, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Order{})
	if filter.PaymentStatus != "" {
		q = q.Where("payment_status = ?", filter.PaymentStatus)
	}
	if filter.OrderStatus != "" {
		q = q.Where("order_status = ?", filter.OrderStatus)
	}
	if filter.From != nil {
		q = q.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("created_at <= ?", *filter.To)
	}

	// reused for the count and the page query
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []*model.Order
	err := q.Preload("Items").
		Order("created_at DESC").
		Limit(ClampLimit(filter.Limit)).
		Offset(filter.Offset).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func (r *orderRepoImpl) MarkPaymentFailed(ctx context.Context, paymentReference string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("payment_reference = ? AND payment_status <> ?", paymentReference, model.PaymentStatusPaid).
		Updates(map[string]interface{}{
			"payment_status": model.PaymentStatusFailed,
			"order_status":   model.OrderStatusCancelled,
		})
	return res.RowsAffected, res.Error
}
