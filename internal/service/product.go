package service

import (
	"context"
	"strings"

	"pharmacy-portal/internal/dto"
	"pharmacy-portal/internal/model"
	"pharmacy-portal/internal/repository"
)

type ProductService interface {
	List(ctx context.Context, filter repository.ProductFilter) ([]*model.Product, error)
	// Get returns products visible to shoppers: active or out of stock.
	Get(ctx context.Context, productID uint) (*model.Product, error)
	Create(ctx context.Context, req *dto.ProductRequest) (*model.Product, error)
	Update(ctx context.Context, productID uint, req *dto.ProductRequest) (*model.Product, error)
	Delete(ctx context.Context, productID uint) error
}

type productServiceImpl struct {
	productRepo repository.ProductRepository
}

func NewProductService(productRepo repository.ProductRepository) ProductService {
	return &productServiceImpl{productRepo: productRepo}
}

func (s *productServiceImpl) List(ctx context.Context, filter repository.ProductFilter) ([]*model.Product, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, validationError("unknown product status")
	}
	products, err := s.productRepo.List(ctx, filter)
	if err != nil {
		return nil, internalError("list products", err)
	}
	return products, nil
}

func (s *productServiceImpl) Get(ctx context.Context, productID uint) (*model.Product, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, notFoundOr(err, "product")
	}
	if product.Status != model.ProductStatusActive && product.Status != model.ProductStatusOutOfStock {
		return nil, notFoundOr(ErrNotFound, "product")
	}
	return product, nil
}

func validateProduct(req *dto.ProductRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return validationError("name is required")
	}
	if req.Price.IsNegative() {
		return validationError("price must not be negative")
	}
	if req.StockQuantity < 0 {
		return validationError("stock_quantity must not be negative")
	}
	if req.Status != "" && !req.Status.Valid() {
		return validationError("unknown product status")
	}
	return nil
}

func applyProduct(p *model.Product, req *dto.ProductRequest) {
	p.Name = strings.TrimSpace(req.Name)
	p.SKU = req.SKU
	p.Description = req.Description
	p.Category = req.Category
	p.ImageURL = req.ImageURL
	p.Price = req.Price.Round(2)
	p.StockQuantity = req.StockQuantity
	p.Featured = req.Featured
	if req.Status != "" {
		p.Status = req.Status
	}
	// restocking brings a sold-out product back
	if p.Status == model.ProductStatusOutOfStock && p.StockQuantity > 0 {
		p.Status = model.ProductStatusActive
	}
}

func (s *productServiceImpl) Create(ctx context.Context, req *dto.ProductRequest) (*model.Product, error) {
	if err := validateProduct(req); err != nil {
		return nil, err
	}
	product := &model.Product{Status: model.ProductStatusDraft}
	applyProduct(product, req)

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, internalError("create product", err)
	}
	return product, nil
}

func (s *productServiceImpl) Update(ctx context.Context, productID uint, req *dto.ProductRequest) (*model.Product, error) {
	if err := validateProduct(req); err != nil {
		return nil, err
	}
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, notFoundOr(err, "product")
	}
	applyProduct(product, req)

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, notFoundOr(err, "product")
	}
	return product, nil
}

func (s *productServiceImpl) Delete(ctx context.Context, productID uint) error {
	if err := s.productRepo.Delete(ctx, productID); err != nil {
		return notFoundOr(err, "product")
	}
	return nil
}
