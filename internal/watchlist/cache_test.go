package watchlist

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"plate-service/internal/model"
)

type fakeStore struct {
	entries   []model.WatchlistEntry
	failNext  bool
	replaceCt int
}

func (s *fakeStore) ReplaceAll(_ context.Context, entries []model.WatchlistEntry) error {
	if s.failNext {
		return errors.New("store unavailable")
	}
	s.entries = entries
	s.replaceCt++
	return nil
}

func (s *fakeStore) List(_ context.Context) ([]model.WatchlistEntry, error) {
	return s.entries, nil
}

func newTestCache(store Store) *Cache {
	return NewCache(store, zerolog.Nop())
}

func TestRefreshAndContains(t *testing.T) {
	cache := newTestCache(&fakeStore{})

	if err := cache.Refresh(context.Background(), []string{"ABC123", "JDKF902"}); err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}

	tests := []struct {
		plate    string
		expected bool
	}{
		{"ABC123", true},
		{"abc123", true},
		{"ABC 123", true},
		{"AB-C123", true},
		{"JDKF902", true},
		{"XYZ999", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := cache.Contains(tt.plate); got != tt.expected {
			t.Errorf("Contains(%q) = %v, want %v", tt.plate, got, tt.expected)
		}
	}

	if cache.Len() != 2 {
		t.Errorf("Len() = %d, want 2", cache.Len())
	}
	if cache.LastRefreshedAt().IsZero() {
		t.Error("LastRefreshedAt() is zero after refresh")
	}
}

func TestRefreshReplacesSnapshot(t *testing.T) {
	cache := newTestCache(&fakeStore{})

	if err := cache.Refresh(context.Background(), []string{"OLD111"}); err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if err := cache.Refresh(context.Background(), []string{"NEW222"}); err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}

	if cache.Contains("OLD111") {
		t.Error("old entry still present after replace-all refresh")
	}
	if !cache.Contains("NEW222") {
		t.Error("new entry missing after refresh")
	}
}

func TestRefreshFailureKeepsSnapshot(t *testing.T) {
	store := &fakeStore{}
	cache := newTestCache(store)

	if err := cache.Refresh(context.Background(), []string{"A1", "B2"}); err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	before := cache.LastRefreshedAt()

	store.failNext = true
	if err := cache.Refresh(context.Background(), []string{"C3"}); err == nil {
		t.Fatal("expected error from failing store")
	}

	if !cache.Contains("A1") || !cache.Contains("B2") {
		t.Error("pre-refresh snapshot lost after failed refresh")
	}
	if cache.Contains("C3") {
		t.Error("failed refresh leaked a partial snapshot")
	}
	if !cache.LastRefreshedAt().Equal(before) {
		t.Error("refresh timestamp advanced despite failure")
	}
}

func TestWarmLoadsPersistedSnapshot(t *testing.T) {
	store := &fakeStore{}
	seed := newTestCache(store)
	if err := seed.Refresh(context.Background(), []string{"AB1234"}); err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}

	cache := newTestCache(store)
	if cache.Contains("AB1234") {
		t.Fatal("cache not empty before Warm")
	}
	if err := cache.Warm(context.Background()); err != nil {
		t.Fatalf("Warm returned error: %v", err)
	}
	if !cache.Contains("AB1 234") {
		t.Error("warmed cache missing persisted entry (normalized match)")
	}
	if cache.LastRefreshedAt().IsZero() {
		t.Error("LastRefreshedAt() is zero after warm")
	}
}
