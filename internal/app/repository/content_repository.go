package repository

import (
	"context"
	"errors"

	"github.com/hackerloum/secureview/internal/app/model"
	"gorm.io/gorm"
)

var (
	// ErrContentNotFound signals that no content matches the requested code or id.
	ErrContentNotFound = errors.New("content not found")
)

// ContentRepository defines the data access contract for protected content.
type ContentRepository interface {
	Create(ctx context.Context, content *model.Content) error
	GetByCode(ctx context.Context, code string) (*model.Content, error)
	GetByID(ctx context.Context, id string) (*model.Content, error)
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]model.Content, error)
	ListCodes(ctx context.Context) ([]string, error)
	IncrementViewCount(ctx context.Context, id string) error
	SetViewCount(ctx context.Context, id string, count int64) error
	Delete(ctx context.Context, id string) error
}

type contentRepository struct {
	db *gorm.DB
}

// NewContentRepository returns a GORM-backed ContentRepository.
func NewContentRepository(db *gorm.DB) ContentRepository {
	return &contentRepository{db: db}
}

func (r *contentRepository) Create(ctx context.Context, content *model.Content) error {
	if err := r.db.WithContext(ctx).Create(content).Error; err != nil {
		return err
	}
	return nil
}

func (r *contentRepository) GetByCode(ctx context.Context, code string) (*model.Content, error) {
	var content model.Content
	if err := r.db.WithContext(ctx).Where("access_code = ?", code).First(&content).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContentNotFound
		}
		return nil, err
	}
	return &content, nil
}

func (r *contentRepository) GetByID(ctx context.Context, id string) (*model.Content, error) {
	var content model.Content
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&content).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContentNotFound
		}
		return nil, err
	}
	return &content, nil
}

func (r *contentRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]model.Content, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var result []model.Content
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&result).Error; err != nil {
		return nil, err
	}

	return result, nil
}

// ListCodes returns every issued access code. Used to warm the bloom filter at boot.
func (r *contentRepository) ListCodes(ctx context.Context) ([]string, error) {
	var codes []string
	if err := r.db.WithContext(ctx).
		Model(&model.Content{}).
		Pluck("access_code", &codes).Error; err != nil {
		return nil, err
	}
	return codes, nil
}

func (r *contentRepository) IncrementViewCount(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Content{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrContentNotFound
	}
	return nil
}

func (r *contentRepository) SetViewCount(ctx context.Context, id string, count int64) error {
	return r.db.WithContext(ctx).
		Model(&model.Content{}).
		Where("id = ?", id).
		UpdateColumn("view_count", count).Error
}

func (r *contentRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Content{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrContentNotFound
	}
	return nil
}
