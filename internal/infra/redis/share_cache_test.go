package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"quizlytic-service/internal/domain"
	"quizlytic-service/internal/infra/memory"
)

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

type countingResolver struct {
	store *memory.Store
	calls int
}

func (r *countingResolver) QuizByShareToken(ctx context.Context, token string) (domain.Quiz, error) {
	r.calls++
	return r.store.QuizByShareToken(ctx, token)
}

func seededResolver(t *testing.T) *countingResolver {
	t.Helper()
	store := memory.NewStore()
	token := "tok-1"
	quiz := domain.Quiz{ID: "quiz-1", OwnerID: "owner-1", Title: "Cached", ShareToken: &token}
	if err := store.InsertQuiz(context.Background(), &quiz); err != nil {
		t.Fatalf("insert quiz: %v", err)
	}
	return &countingResolver{store: store}
}

func TestShareCacheHitsRedisOnSecondLookup(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	resolver := seededResolver(t)
	cache := NewShareCache(newClient(mr), resolver, time.Minute)

	quiz, err := cache.QuizByShareToken(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if quiz.ID != "quiz-1" || resolver.calls != 1 {
		t.Fatalf("expected one backing call, got quiz=%+v calls=%d", quiz, resolver.calls)
	}

	quiz, err = cache.QuizByShareToken(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("resolve from cache: %v", err)
	}
	if quiz.Title != "Cached" || resolver.calls != 1 {
		t.Fatalf("expected cache hit, got calls=%d", resolver.calls)
	}
}

func TestShareCacheInvalidateForcesReload(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	resolver := seededResolver(t)
	cache := NewShareCache(newClient(mr), resolver, time.Minute)
	ctx := context.Background()

	if _, err := cache.QuizByShareToken(ctx, "tok-1"); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	// Change the stored rules, evict, and expect the fresh row.
	settings := domain.SettingsFromRules(domain.QuizRules{})
	settings.SharingEnabled = false
	if err := resolver.store.UpdateQuizRules(ctx, "quiz-1", settings.Rules()); err != nil {
		t.Fatalf("update rules: %v", err)
	}
	if err := cache.InvalidateShareToken(ctx, "tok-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}

	quiz, err := cache.QuizByShareToken(ctx, "tok-1")
	if err != nil {
		t.Fatalf("resolve after invalidate: %v", err)
	}
	if resolver.calls != 2 {
		t.Fatalf("expected reload, got %d backing calls", resolver.calls)
	}
	if domain.SettingsFromRules(quiz.Rules).SharingEnabled {
		t.Fatalf("expected updated rules after eviction, got %+v", quiz.Rules)
	}
}

func TestShareCacheExpiresWithTTL(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	resolver := seededResolver(t)
	cache := NewShareCache(newClient(mr), resolver, time.Minute)
	ctx := context.Background()

	if _, err := cache.QuizByShareToken(ctx, "tok-1"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	if _, err := cache.QuizByShareToken(ctx, "tok-1"); err != nil {
		t.Fatalf("resolve after expiry: %v", err)
	}
	if resolver.calls != 2 {
		t.Fatalf("expected reload after TTL, got %d calls", resolver.calls)
	}
}

func TestShareCachePropagatesNotFound(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	cache := NewShareCache(newClient(mr), seededResolver(t), time.Minute)
	if _, err := cache.QuizByShareToken(context.Background(), "missing"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
