package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/klefe6/almanac/pkg/contracts/domain"
)

// CoverageSource is the slice of storage the product service consumes.
type CoverageSource interface {
	Coverage(ctx context.Context) ([]domain.Product, error)
	ProductCoverage(ctx context.Context, product string) (domain.Product, error)
}

// ProductService answers which products are loaded and how much data
// each one carries.
type ProductService struct {
	src    CoverageSource
	logger *slog.Logger
}

// NewProductService creates a new product service
func NewProductService(src CoverageSource, logger *slog.Logger) *ProductService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProductService{
		src:    src,
		logger: logger.With(slog.String("component", "product_service")),
	}
}

// Products lists every stored product with bar counts and the covered
// session range, sorted by symbol.
func (s *ProductService) Products(ctx context.Context) ([]domain.Product, error) {
	products, err := s.src.Coverage(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// Coverage returns the coverage of one product.
func (s *ProductService) Coverage(ctx context.Context, product string) (domain.Product, error) {
	p, err := s.src.ProductCoverage(ctx, product)
	if err != nil {
		return domain.Product{}, fmt.Errorf("product coverage: %w", err)
	}
	if !p.HasData() {
		return domain.Product{}, fmt.Errorf("%s: %w", product, ErrProductNotFound)
	}
	return p, nil
}
