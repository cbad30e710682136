package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/hackerloum/secureview/internal/app/model"
	"github.com/hackerloum/secureview/internal/app/repository"
)

var (
	// ErrQuotaExceeded signals that the owner has no upload headroom left.
	ErrQuotaExceeded = errors.New("upload quota exceeded")
	// ErrInvalidLimit signals an administrative limit below the minimum of 1.
	ErrInvalidLimit = errors.New("upload limit must be at least 1")
)

// QuotaService gates grant issuance on the per-owner upload quota. Reserve and
// commit are separate steps: the media upload happens between them, and a
// failure in between must under-count rather than over-count.
type QuotaService interface {
	Ensure(ctx context.Context, ownerID string) (*model.UploadQuota, error)
	TryReserve(ctx context.Context, ownerID string) error
	Commit(ctx context.Context, ownerID string) error
	SetLimit(ctx context.Context, ownerID string, limit int) (*model.UploadQuota, error)
}

type quotaService struct {
	repo         repository.QuotaRepository
	defaultLimit int
}

// NewQuotaService returns a quota service creating missing quotas with the
// given default limit.
func NewQuotaService(repo repository.QuotaRepository, defaultLimit int) QuotaService {
	if defaultLimit < 1 {
		defaultLimit = 5
	}
	return &quotaService{repo: repo, defaultLimit: defaultLimit}
}

func (s *quotaService) Ensure(ctx context.Context, ownerID string) (*model.UploadQuota, error) {
	quota, err := s.repo.Get(ctx, ownerID)
	if err == nil {
		return quota, nil
	}
	if !errors.Is(err, repository.ErrQuotaNotFound) {
		return nil, fmt.Errorf("load quota: %w", err)
	}

	quota = &model.UploadQuota{
		OwnerID: ownerID,
		Limit:   s.defaultLimit,
		Used:    0,
	}
	if err := s.repo.Create(ctx, quota); err != nil {
		// Another request may have created the row first.
		if existing, getErr := s.repo.Get(ctx, ownerID); getErr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("create quota: %w", err)
	}
	return quota, nil
}

func (s *quotaService) TryReserve(ctx context.Context, ownerID string) error {
	quota, err := s.Ensure(ctx, ownerID)
	if err != nil {
		return err
	}
	if quota.Used >= quota.Limit {
		return ErrQuotaExceeded
	}
	return nil
}

func (s *quotaService) Commit(ctx context.Context, ownerID string) error {
	if err := s.repo.IncrementUsed(ctx, ownerID); err != nil {
		if errors.Is(err, repository.ErrQuotaExhausted) {
			return ErrQuotaExceeded
		}
		return fmt.Errorf("commit quota: %w", err)
	}
	return nil
}

func (s *quotaService) SetLimit(ctx context.Context, ownerID string, limit int) (*model.UploadQuota, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}

	if _, err := s.Ensure(ctx, ownerID); err != nil {
		return nil, err
	}
	if err := s.repo.SetLimit(ctx, ownerID, limit); err != nil {
		return nil, fmt.Errorf("set limit: %w", err)
	}
	return s.repo.Get(ctx, ownerID)
}
