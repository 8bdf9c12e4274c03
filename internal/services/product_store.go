// internal/services/product_store.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/suppleit/suppleit-backend/internal/models"
)

const pgUniqueViolation = "23505"

// likeEscaper makes LIKE metacharacters in a keyword match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrDuplicateProduct = errors.New("product already exists")
)

// ProductStore is the local record store used as a write-through cache and
// as the fallback search source.
type ProductStore interface {
	GetByID(ctx context.Context, id int64) (*models.Product, error)
	Insert(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	SearchByKeyword(ctx context.Context, keyword string) ([]models.Product, error)
}

type GormProductStore struct {
	db          *gorm.DB
	searchLimit int
}

func NewGormProductStore(db *gorm.DB, searchLimit int) *GormProductStore {
	return &GormProductStore{
		db:          db,
		searchLimit: searchLimit,
	}
}

func (s *GormProductStore) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, "prd_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &product, nil
}

func (s *GormProductStore) Insert(ctx context.Context, product *models.Product) error {
	if err := s.db.WithContext(ctx).Create(product).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %d", ErrDuplicateProduct, product.PrdID)
		}
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// Update overwrites every column of an existing row, including nullable ones
// that are nil on product.
func (s *GormProductStore) Update(ctx context.Context, product *models.Product) error {
	result := s.db.WithContext(ctx).Model(product).
		Select("*").Omit("prd_id", "created_at").
		Updates(product)
	if result.Error != nil {
		return fmt.Errorf("failed to update product: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %d", ErrProductNotFound, product.PrdID)
	}
	return nil
}

func (s *GormProductStore) SearchByKeyword(ctx context.Context, keyword string) ([]models.Product, error) {
	searchTerm := "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(keyword))) + "%"

	query := s.db.WithContext(ctx).Model(&models.Product{}).
		Where(`LOWER(product_name) LIKE ? ESCAPE '\' OR LOWER(company_name) LIKE ? ESCAPE '\' OR registration_no LIKE ? ESCAPE '\'`,
			searchTerm, searchTerm, searchTerm).
		Order("product_name ASC, prd_id ASC")
	if s.searchLimit > 0 {
		query = query.Limit(s.searchLimit)
	}

	var products []models.Product
	if err := query.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	return products, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
