package service

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/hackerloum/secureview/internal/app/model"
	"github.com/hackerloum/secureview/internal/app/repository"
	"github.com/hackerloum/secureview/internal/infra/metrics"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	codeLength   = 6

	cacheKeyPrefix = "content:code:"
	cacheTTL       = 5 * time.Minute

	bloomExpectedItems = 1_000_000
	bloomFalsePositive = 0.01
)

// AccessService issues access codes and resolves them to content records.
type AccessService interface {
	// Issue generates a fresh access code. Codes are probabilistically unique;
	// there is deliberately no collision check against existing grants.
	Issue() (string, error)
	Resolve(ctx context.Context, code string) (*model.Content, error)
	// Forget drops any cached entry for the code after its content is deleted.
	Forget(ctx context.Context, code string)
	// WarmUp seeds the bloom filter with every issued code.
	WarmUp(ctx context.Context) error
}

type accessService struct {
	logger   *zap.Logger
	contents repository.ContentRepository
	cache    *redis.Client

	mu     sync.Mutex
	filter *bloom.BloomFilter
}

// NewAccessService returns an access service backed by the content repository,
// with a redis cache-aside for hits and a bloom filter for definitive misses.
func NewAccessService(logger *zap.Logger, contents repository.ContentRepository, cache *redis.Client) AccessService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &accessService{
		logger:   logger,
		contents: contents,
		cache:    cache,
		filter:   bloom.NewWithEstimates(bloomExpectedItems, bloomFalsePositive),
	}
}

func (s *accessService) Issue() (string, error) {
	buf := make([]byte, codeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("issue access code: %w", err)
		}
		buf[i] = codeAlphabet[n.Int64()]
	}

	code := string(buf)
	s.addToFilter(code)
	return code, nil
}

func (s *accessService) Resolve(ctx context.Context, code string) (*model.Content, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		metrics.Resolutions.WithLabelValues("miss").Inc()
		return nil, repository.ErrContentNotFound
	}

	// A bloom negative is definitive: the code was never issued by this
	// deployment, so skip cache and storage entirely.
	if !s.testFilter(normalized) {
		metrics.Resolutions.WithLabelValues("miss").Inc()
		return nil, repository.ErrContentNotFound
	}

	if content := s.fromCache(ctx, normalized); content != nil {
		metrics.Resolutions.WithLabelValues("hit").Inc()
		return content, nil
	}

	content, err := s.contents.GetByCode(ctx, normalized)
	if err != nil {
		if err == repository.ErrContentNotFound {
			metrics.Resolutions.WithLabelValues("miss").Inc()
		} else {
			metrics.Resolutions.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	s.toCache(ctx, normalized, content)
	metrics.Resolutions.WithLabelValues("hit").Inc()
	return content, nil
}

func (s *accessService) Forget(ctx context.Context, code string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, cacheKeyPrefix+NormalizeCode(code)).Err(); err != nil {
		s.logger.Warn("failed to drop cached content", zap.Error(err), zap.String("code", code))
	}
}

func (s *accessService) WarmUp(ctx context.Context) error {
	codes, err := s.contents.ListCodes(ctx)
	if err != nil {
		return fmt.Errorf("warm up access codes: %w", err)
	}
	for _, code := range codes {
		s.addToFilter(NormalizeCode(code))
	}
	s.logger.Info("access code filter warmed", zap.Int("codes", len(codes)))
	return nil
}

// NormalizeCode trims surrounding whitespace and folds to uppercase so lookups
// are case-insensitive.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *accessService) addToFilter(code string) {
	s.mu.Lock()
	s.filter.AddString(code)
	s.mu.Unlock()
}

func (s *accessService) testFilter(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter.TestString(code)
}

func (s *accessService) fromCache(ctx context.Context, code string) *model.Content {
	if s.cache == nil {
		return nil
	}

	data, err := s.cache.Get(ctx, cacheKeyPrefix+code).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("content cache read failed", zap.Error(err))
		}
		return nil
	}

	var content model.Content
	if err := json.Unmarshal(data, &content); err != nil {
		s.logger.Warn("content cache entry corrupt", zap.Error(err), zap.String("code", code))
		return nil
	}
	return &content
}

func (s *accessService) toCache(ctx context.Context, code string, content *model.Content) {
	if s.cache == nil {
		return
	}

	data, err := json.Marshal(content)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKeyPrefix+code, data, cacheTTL).Err(); err != nil {
		s.logger.Warn("content cache write failed", zap.Error(err))
	}
}
