package service

import (
	"context"
	"errors"
	"testing"

	"github.com/hackerloum/secureview/internal/app/model"
	"github.com/hackerloum/secureview/internal/app/repository"
)

type mockQuotaRepository struct {
	getFn       func(ctx context.Context, ownerID string) (*model.UploadQuota, error)
	createFn    func(ctx context.Context, quota *model.UploadQuota) error
	setLimitFn  func(ctx context.Context, ownerID string, limit int) error
	incrementFn func(ctx context.Context, ownerID string) error
}

func (m *mockQuotaRepository) Get(ctx context.Context, ownerID string) (*model.UploadQuota, error) {
	if m.getFn != nil {
		return m.getFn(ctx, ownerID)
	}
	return nil, repository.ErrQuotaNotFound
}

func (m *mockQuotaRepository) Create(ctx context.Context, quota *model.UploadQuota) error {
	if m.createFn != nil {
		return m.createFn(ctx, quota)
	}
	return nil
}

func (m *mockQuotaRepository) SetLimit(ctx context.Context, ownerID string, limit int) error {
	if m.setLimitFn != nil {
		return m.setLimitFn(ctx, ownerID, limit)
	}
	return nil
}

func (m *mockQuotaRepository) IncrementUsed(ctx context.Context, ownerID string) error {
	if m.incrementFn != nil {
		return m.incrementFn(ctx, ownerID)
	}
	return nil
}

func TestQuotaService_Ensure_CreatesDefault(t *testing.T) {
	var created *model.UploadQuota
	repo := &mockQuotaRepository{
		createFn: func(ctx context.Context, quota *model.UploadQuota) error {
			created = quota
			return nil
		},
	}

	svc := NewQuotaService(repo, 5)
	quota, err := svc.Ensure(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("Ensure returned error: %v", err)
	}
	if created == nil {
		t.Fatal("expected a quota row to be created")
	}
	if quota.Limit != 5 || quota.Used != 0 {
		t.Fatalf("expected fresh quota 0/5, got %d/%d", quota.Used, quota.Limit)
	}
}

func TestQuotaService_Ensure_CreateRace(t *testing.T) {
	calls := 0
	repo := &mockQuotaRepository{
		getFn: func(ctx context.Context, ownerID string) (*model.UploadQuota, error) {
			calls++
			if calls == 1 {
				return nil, repository.ErrQuotaNotFound
			}
			return &model.UploadQuota{OwnerID: ownerID, Limit: 5, Used: 1}, nil
		},
		createFn: func(ctx context.Context, quota *model.UploadQuota) error {
			return errors.New("duplicate key value violates unique constraint")
		},
	}

	svc := NewQuotaService(repo, 5)
	quota, err := svc.Ensure(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("Ensure returned error: %v", err)
	}
	if quota.Used != 1 {
		t.Fatalf("expected the winning row, got used=%d", quota.Used)
	}
}

func TestQuotaService_TryReserve_AtLimit(t *testing.T) {
	repo := &mockQuotaRepository{
		getFn: func(ctx context.Context, ownerID string) (*model.UploadQuota, error) {
			return &model.UploadQuota{OwnerID: ownerID, Limit: 5, Used: 5}, nil
		},
	}

	svc := NewQuotaService(repo, 5)
	err := svc.TryReserve(context.Background(), "owner-1")
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
}

func TestQuotaService_TryReserve_Headroom(t *testing.T) {
	repo := &mockQuotaRepository{
		getFn: func(ctx context.Context, ownerID string) (*model.UploadQuota, error) {
			return &model.UploadQuota{OwnerID: ownerID, Limit: 5, Used: 4}, nil
		},
	}

	svc := NewQuotaService(repo, 5)
	if err := svc.TryReserve(context.Background(), "owner-1"); err != nil {
		t.Fatalf("TryReserve returned error: %v", err)
	}
}

func TestQuotaService_Commit_Exhausted(t *testing.T) {
	repo := &mockQuotaRepository{
		incrementFn: func(ctx context.Context, ownerID string) error {
			return repository.ErrQuotaExhausted
		},
	}

	svc := NewQuotaService(repo, 5)
	err := svc.Commit(context.Background(), "owner-1")
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
}

func TestQuotaService_SetLimit_Invalid(t *testing.T) {
	svc := NewQuotaService(&mockQuotaRepository{}, 5)
	_, err := svc.SetLimit(context.Background(), "owner-1", 0)
	if !errors.Is(err, ErrInvalidLimit) {
		t.Fatalf("expected ErrInvalidLimit, got %v", err)
	}
}

func TestQuotaService_SetLimit_PersistsAndReloads(t *testing.T) {
	limit := 5
	repo := &mockQuotaRepository{
		getFn: func(ctx context.Context, ownerID string) (*model.UploadQuota, error) {
			return &model.UploadQuota{OwnerID: ownerID, Limit: limit, Used: 2}, nil
		},
		setLimitFn: func(ctx context.Context, ownerID string, newLimit int) error {
			limit = newLimit
			return nil
		},
	}

	svc := NewQuotaService(repo, 5)
	quota, err := svc.SetLimit(context.Background(), "owner-1", 10)
	if err != nil {
		t.Fatalf("SetLimit returned error: %v", err)
	}
	if quota.Limit != 10 {
		t.Fatalf("expected limit 10, got %d", quota.Limit)
	}
	if quota.Used != 2 {
		t.Fatalf("expected used to be untouched, got %d", quota.Used)
	}
}
