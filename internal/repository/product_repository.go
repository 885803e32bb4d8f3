package repository

import (
	"context"
	"fmt"

	"github.com/maheshrc27/postflow-publisher/internal/models"
)

const ProductsCollection = "products"

type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*models.Product, error)
}

type productRepository struct {
	store Store
}

func NewProductRepository(store Store) ProductRepository {
	return &productRepository{store: store}
}

func (r *productRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	if id == "" {
		return nil, nil
	}

	rec, err := r.store.Get(ctx, ProductsCollection, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}

	var p models.Product
	if err := fromRecord(rec, &p); err != nil {
		return nil, fmt.Errorf("decode product %s: %w", id, err)
	}
	return &p, nil
}
