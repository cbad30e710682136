package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/hackerloum/secureview/internal/app/model"
	"github.com/hackerloum/secureview/internal/app/repository"
)

type mockQuotaService struct {
	tryReserveFn func(ctx context.Context, ownerID string) error
	commitFn     func(ctx context.Context, ownerID string) error
}

func (m *mockQuotaService) Ensure(ctx context.Context, ownerID string) (*model.UploadQuota, error) {
	return &model.UploadQuota{OwnerID: ownerID, Limit: 5}, nil
}

func (m *mockQuotaService) TryReserve(ctx context.Context, ownerID string) error {
	if m.tryReserveFn != nil {
		return m.tryReserveFn(ctx, ownerID)
	}
	return nil
}

func (m *mockQuotaService) Commit(ctx context.Context, ownerID string) error {
	if m.commitFn != nil {
		return m.commitFn(ctx, ownerID)
	}
	return nil
}

func (m *mockQuotaService) SetLimit(ctx context.Context, ownerID string, limit int) (*model.UploadQuota, error) {
	return nil, nil
}

type mockAccessService struct {
	issueFn  func() (string, error)
	forgetFn func(ctx context.Context, code string)
}

func (m *mockAccessService) Issue() (string, error) {
	if m.issueFn != nil {
		return m.issueFn()
	}
	return "AB12CD", nil
}

func (m *mockAccessService) Resolve(ctx context.Context, code string) (*model.Content, error) {
	return nil, repository.ErrContentNotFound
}

func (m *mockAccessService) Forget(ctx context.Context, code string) {
	if m.forgetFn != nil {
		m.forgetFn(ctx, code)
	}
}

func (m *mockAccessService) WarmUp(ctx context.Context) error { return nil }

type mockMediaStore struct {
	uploadFn func(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

func (m *mockMediaStore) Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	if m.uploadFn != nil {
		return m.uploadFn(ctx, key, contentType, body)
	}
	return "https://media.example/" + key, nil
}

type mockViewEventRepository struct {
	deleteForContentFn func(ctx context.Context, contentID string) error
}

func (m *mockViewEventRepository) Create(ctx context.Context, event *model.ViewEvent) error {
	return nil
}

func (m *mockViewEventRepository) CountForContent(ctx context.Context, contentID string) (int64, error) {
	return 0, nil
}

func (m *mockViewEventRepository) CountForOwner(ctx context.Context, ownerID string, since time.Time) (int64, error) {
	return 0, nil
}

func (m *mockViewEventRepository) CountsByContent(ctx context.Context) ([]repository.ContentViewCount, error) {
	return nil, nil
}

func (m *mockViewEventRepository) DeleteForContent(ctx context.Context, contentID string) error {
	if m.deleteForContentFn != nil {
		return m.deleteForContentFn(ctx, contentID)
	}
	return nil
}

func TestContentService_Upload_QuotaExceeded(t *testing.T) {
	quota := &mockQuotaService{
		tryReserveFn: func(ctx context.Context, ownerID string) error {
			return ErrQuotaExceeded
		},
	}
	media := &mockMediaStore{
		uploadFn: func(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
			t.Fatal("media upload should not run when the quota is exhausted")
			return "", nil
		},
	}

	svc := NewContentService(nil, &mockContentRepository{}, &mockViewEventRepository{}, quota, &mockAccessService{}, media)
	_, err := svc.Upload(context.Background(), UploadInput{
		OwnerID: "owner-1",
		Title:   "t",
		Body:    strings.NewReader("data"),
	})
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
}

func TestContentService_Upload_IssuesGrantAndCommits(t *testing.T) {
	committed := false
	quota := &mockQuotaService{
		commitFn: func(ctx context.Context, ownerID string) error {
			committed = true
			return nil
		},
	}
	var created *model.Content
	contents := &mockContentRepository{
		createFn: func(ctx context.Context, content *model.Content) error {
			created = content
			return nil
		},
	}

	svc := NewContentService(nil, contents, &mockViewEventRepository{}, quota, &mockAccessService{}, &mockMediaStore{})
	content, err := svc.Upload(context.Background(), UploadInput{
		OwnerID:  "owner-1",
		Title:    "launch deck",
		Filename: "deck.png",
		Body:     strings.NewReader("data"),
	})
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	if created == nil {
		t.Fatal("expected the content row to be created")
	}
	if content.AccessCode != "AB12CD" {
		t.Fatalf("expected issued access code, got %q", content.AccessCode)
	}
	if content.ImageURL == "" {
		t.Fatal("expected a media URL")
	}
	if !committed {
		t.Fatal("expected the quota commit to run")
	}
}

func TestContentService_Upload_MediaFailureSkipsCommit(t *testing.T) {
	quota := &mockQuotaService{
		commitFn: func(ctx context.Context, ownerID string) error {
			t.Fatal("commit should not run when the media upload fails")
			return nil
		},
	}
	media := &mockMediaStore{
		uploadFn: func(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
			return "", errors.New("connection reset")
		},
	}

	svc := NewContentService(nil, &mockContentRepository{}, &mockViewEventRepository{}, quota, &mockAccessService{}, media)
	_, err := svc.Upload(context.Background(), UploadInput{
		OwnerID: "owner-1",
		Title:   "t",
		Body:    strings.NewReader("data"),
	})
	if err == nil {
		t.Fatal("expected an error from the media upload")
	}
}

func TestContentService_Delete_Cascades(t *testing.T) {
	deletedViews := ""
	forgotten := ""
	contents := &mockContentRepository{
		getByIDFn: func(ctx context.Context, id string) (*model.Content, error) {
			return &model.Content{ID: id, AccessCode: "AB12CD"}, nil
		},
	}
	views := &mockViewEventRepository{
		deleteForContentFn: func(ctx context.Context, contentID string) error {
			deletedViews = contentID
			return nil
		},
	}
	access := &mockAccessService{
		forgetFn: func(ctx context.Context, code string) {
			forgotten = code
		},
	}

	svc := NewContentService(nil, contents, views, &mockQuotaService{}, access, &mockMediaStore{})
	if err := svc.Delete(context.Background(), "c1"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if deletedViews != "c1" {
		t.Fatalf("expected view audit cleanup for c1, got %q", deletedViews)
	}
	if forgotten != "AB12CD" {
		t.Fatalf("expected the grant cache to be dropped, got %q", forgotten)
	}
}

func TestContentService_Delete_NotFound(t *testing.T) {
	svc := NewContentService(nil, &mockContentRepository{}, &mockViewEventRepository{}, &mockQuotaService{}, &mockAccessService{}, &mockMediaStore{})
	err := svc.Delete(context.Background(), "missing")
	if !errors.Is(err, repository.ErrContentNotFound) {
		t.Fatalf("expected ErrContentNotFound, got %v", err)
	}
}
