package service

import (
	"context"
	"errors"
	"strings"

	"pharmacy-portal/internal/config"
	"pharmacy-portal/internal/dto"
	"pharmacy-portal/internal/model"
	"pharmacy-portal/internal/pricing"
	"pharmacy-portal/internal/repository"

	"gorm.io/gorm"
)

type CartService interface {
	Get(ctx context.Context, userID string) (*dto.CartResponse, error)
	Add(ctx context.Context, userID string, req *dto.AddCartItemRequest) (*model.CartItem, error)
	UpdateQuantity(ctx context.Context, userID string, itemID uint, quantity int) (*model.CartItem, error)
	Remove(ctx context.Context, userID string, itemID uint) error
	Clear(ctx context.Context, userID string) error
}

type cartServiceImpl struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	paymentCfg  config.Payment
}

func NewCartService(
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	paymentCfg config.Payment,
) CartService {
	return &cartServiceImpl{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		paymentCfg:  paymentCfg,
	}
}

// cartTotals prices lines at their add-time snapshot.
func cartTotals(lines []*model.CartItem, cfg config.Payment) model.Totals {
	priced := make([]pricing.Line, len(lines))
	for i, line := range lines {
		priced[i] = pricing.Line{UnitPrice: line.PriceAtAdd, Quantity: line.Quantity}
	}
	return pricing.ComputeTotals(priced, cfg.TaxRate, cfg.ShippingCost)
}

func (s *cartServiceImpl) Get(ctx context.Context, userID string) (*dto.CartResponse, error) {
	items, err := s.cartRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, internalError("load cart", err)
	}

	return &dto.CartResponse{
		Items:  items,
		Totals: cartTotals(items, s.paymentCfg),
	}, nil
}

func (s *cartServiceImpl) Add(ctx context.Context, userID string, req *dto.AddCartItemRequest) (*model.CartItem, error) {
	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 1 {
		return nil, validationError("quantity must be at least 1")
	}

	item := &model.CartItem{
		UserID:   userID,
		Quantity: quantity,
	}

	if req.ProductID != nil {
		product, err := s.productRepo.FindByID(ctx, *req.ProductID)
		if err != nil {
			return nil, notFoundOr(err, "product")
		}
		if product.Status != model.ProductStatusActive {
			return nil, validationError("product is not available")
		}
		item.ProductID = &product.ID
		item.ItemName = product.Name
		item.PriceAtAdd = product.Price
	} else {
		name := strings.TrimSpace(req.ItemName)
		if name == "" {
			return nil, validationError("product_id or item_name is required")
		}
		price := req.Price
		if price == nil {
			parsed, err := pricing.ParseLabelPrice(name)
			if err != nil {
				return nil, validationError("price is required for custom items")
			}
			price = &parsed
		}
		if price.IsNegative() {
			return nil, validationError("price must not be negative")
		}
		item.ItemName = name
		item.PriceAtAdd = price.Round(2)
	}

	added, err := s.cartRepo.Add(ctx, item)
	if err != nil {
		return nil, internalError("add cart item", err)
	}
	return added, nil
}

func (s *cartServiceImpl) UpdateQuantity(ctx context.Context, userID string, itemID uint, quantity int) (*model.CartItem, error) {
	if quantity < 1 {
		return nil, validationError("quantity must be at least 1")
	}
	if err := s.cartRepo.UpdateQuantity(ctx, userID, itemID, quantity); err != nil {
		return nil, notFoundOr(err, "cart item")
	}

	item, err := s.cartRepo.FindByID(ctx, userID, itemID)
	if err != nil {
		return nil, notFoundOr(err, "cart item")
	}
	return item, nil
}

func (s *cartServiceImpl) Remove(ctx context.Context, userID string, itemID uint) error {
	if err := s.cartRepo.Delete(ctx, userID, itemID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundOr(err, "cart item")
		}
		return internalError("remove cart item", err)
	}
	return nil
}

func (s *cartServiceImpl) Clear(ctx context.Context, userID string) error {
	if _, err := s.cartRepo.ClearByUser(ctx, userID); err != nil {
		return internalError("clear cart", err)
	}
	return nil
}
