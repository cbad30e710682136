package repository

import (
	"context"
	"errors"

	"github.com/hackerloum/secureview/internal/app/model"
	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/gorm"
)

var (
	// ErrQuotaNotFound signals that no quota row exists for the owner yet.
	ErrQuotaNotFound = errors.New("upload quota not found")
	// ErrQuotaExhausted signals a conditional increment found no headroom.
	ErrQuotaExhausted = errors.New("upload quota exhausted")
)

// QuotaRepository defines the data access contract for upload quotas.
type QuotaRepository interface {
	Get(ctx context.Context, ownerID string) (*model.UploadQuota, error)
	Create(ctx context.Context, quota *model.UploadQuota) error
	SetLimit(ctx context.Context, ownerID string, limit int) error
	IncrementUsed(ctx context.Context, ownerID string) error
}

type quotaRepository struct {
	db   *gorm.DB
	pool *pgxpool.Pool
}

// NewQuotaRepository returns a quota repository backed by GORM for reads and
// the pgx pool for the conditional increment.
func NewQuotaRepository(db *gorm.DB, pool *pgxpool.Pool) QuotaRepository {
	return &quotaRepository{db: db, pool: pool}
}

func (r *quotaRepository) Get(ctx context.Context, ownerID string) (*model.UploadQuota, error) {
	var quota model.UploadQuota
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).First(&quota).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuotaNotFound
		}
		return nil, err
	}
	return &quota, nil
}

func (r *quotaRepository) Create(ctx context.Context, quota *model.UploadQuota) error {
	return r.db.WithContext(ctx).Create(quota).Error
}

func (r *quotaRepository) SetLimit(ctx context.Context, ownerID string, limit int) error {
	result := r.db.WithContext(ctx).
		Model(&model.UploadQuota{}).
		Where("owner_id = ?", ownerID).
		Update("limit", limit)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrQuotaNotFound
	}
	return nil
}

// IncrementUsed bumps the used counter by one, but only while headroom remains.
// The condition runs inside the UPDATE so concurrent commits cannot push used
// past the limit.
func (r *quotaRepository) IncrementUsed(ctx context.Context, ownerID string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE upload_quotas SET used = used + 1, updated_at = NOW() WHERE owner_id = $1 AND used < "limit"`,
		ownerID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrQuotaExhausted
	}
	return nil
}
