package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hackerloum/secureview/internal/app/model"
	"github.com/hackerloum/secureview/internal/app/repository"
)

type mockContentRepository struct {
	createFn    func(ctx context.Context, content *model.Content) error
	getByCodeFn func(ctx context.Context, code string) (*model.Content, error)
	getByIDFn   func(ctx context.Context, id string) (*model.Content, error)
	listFn      func(ctx context.Context, ownerID string, limit, offset int) ([]model.Content, error)
	listCodesFn func(ctx context.Context) ([]string, error)
	deleteFn    func(ctx context.Context, id string) error
}

func (m *mockContentRepository) Create(ctx context.Context, content *model.Content) error {
	if m.createFn != nil {
		return m.createFn(ctx, content)
	}
	return nil
}

func (m *mockContentRepository) GetByCode(ctx context.Context, code string) (*model.Content, error) {
	if m.getByCodeFn != nil {
		return m.getByCodeFn(ctx, code)
	}
	return nil, repository.ErrContentNotFound
}

func (m *mockContentRepository) GetByID(ctx context.Context, id string) (*model.Content, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, repository.ErrContentNotFound
}

func (m *mockContentRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]model.Content, error) {
	if m.listFn != nil {
		return m.listFn(ctx, ownerID, limit, offset)
	}
	return nil, nil
}

func (m *mockContentRepository) ListCodes(ctx context.Context) ([]string, error) {
	if m.listCodesFn != nil {
		return m.listCodesFn(ctx)
	}
	return nil, nil
}

func (m *mockContentRepository) IncrementViewCount(ctx context.Context, id string) error {
	return nil
}

func (m *mockContentRepository) SetViewCount(ctx context.Context, id string, count int64) error {
	return nil
}

func (m *mockContentRepository) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func TestAccessService_Issue_Format(t *testing.T) {
	svc := NewAccessService(nil, &mockContentRepository{}, nil)

	code, err := svc.Issue()
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("expected 6 characters, got %q", code)
	}
	for _, r := range code {
		if !strings.ContainsRune(codeAlphabet, r) {
			t.Fatalf("code %q contains %q outside the alphabet", code, r)
		}
	}
}

func TestAccessService_Resolve_CaseInsensitive(t *testing.T) {
	var asked string
	repo := &mockContentRepository{
		getByCodeFn: func(ctx context.Context, code string) (*model.Content, error) {
			asked = code
			return &model.Content{ID: "c1", AccessCode: code}, nil
		},
	}

	svc := NewAccessService(nil, repo, nil).(*accessService)
	svc.addToFilter("AB12CD")

	content, err := svc.Resolve(context.Background(), "  ab12cd ")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if asked != "AB12CD" {
		t.Fatalf("expected normalized lookup AB12CD, got %q", asked)
	}
	if content.ID != "c1" {
		t.Fatalf("unexpected content %+v", content)
	}
}

func TestAccessService_Resolve_UnknownCodeSkipsStorage(t *testing.T) {
	repo := &mockContentRepository{
		getByCodeFn: func(ctx context.Context, code string) (*model.Content, error) {
			t.Fatal("storage lookup should not run for a code that was never issued")
			return nil, nil
		},
	}

	svc := NewAccessService(nil, repo, nil)
	_, err := svc.Resolve(context.Background(), "ZZZZZZ")
	if !errors.Is(err, repository.ErrContentNotFound) {
		t.Fatalf("expected ErrContentNotFound, got %v", err)
	}
}

func TestAccessService_Resolve_EmptyCode(t *testing.T) {
	svc := NewAccessService(nil, &mockContentRepository{}, nil)
	_, err := svc.Resolve(context.Background(), "   ")
	if !errors.Is(err, repository.ErrContentNotFound) {
		t.Fatalf("expected ErrContentNotFound, got %v", err)
	}
}

func TestAccessService_WarmUp_SeedsFilter(t *testing.T) {
	repo := &mockContentRepository{
		listCodesFn: func(ctx context.Context) ([]string, error) {
			return []string{"AB12CD"}, nil
		},
		getByCodeFn: func(ctx context.Context, code string) (*model.Content, error) {
			return &model.Content{ID: "c1", AccessCode: code}, nil
		},
	}

	svc := NewAccessService(nil, repo, nil)
	if err := svc.WarmUp(context.Background()); err != nil {
		t.Fatalf("WarmUp returned error: %v", err)
	}

	if _, err := svc.Resolve(context.Background(), "ab12cd"); err != nil {
		t.Fatalf("expected warmed code to resolve, got %v", err)
	}
}

func TestNormalizeCode(t *testing.T) {
	if got := NormalizeCode(" ab12Cd\n"); got != "AB12CD" {
		t.Fatalf("expected AB12CD, got %q", got)
	}
}
