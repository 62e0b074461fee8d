package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"lawgpt/internal/model"
)

func TestMemoryPreferences(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPreferences()

	if _, ok, _ := p.GetScope(ctx, "tg:42"); ok {
		t.Fatal("unexpected preference for new channel")
	}
	_ = p.SetScope(ctx, "tg:42", model.ScopeCriminal)
	_ = p.SetScope(ctx, "tg:42", model.ScopeConstitution)

	got, ok, err := p.GetScope(ctx, "tg:42")
	if err != nil || !ok || got != model.ScopeConstitution {
		t.Fatalf("GetScope = %q, %v, %v", got, ok, err)
	}
}

func TestMemoryPreferencesConcurrent(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPreferences()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			channel := fmt.Sprintf("web:%d", i%5)
			_ = p.SetScope(ctx, channel, model.ScopeCriminal)
			_, _, _ = p.GetScope(ctx, channel)
		}(i)
	}
	wg.Wait()
	for i := 0; i < 5; i++ {
		if got, ok, _ := p.GetScope(ctx, fmt.Sprintf("web:%d", i)); !ok || got != model.ScopeCriminal {
			t.Fatalf("channel %d = %q, %v", i, got, ok)
		}
	}
}

func TestPreferenceKey(t *testing.T) {
	if got := preferenceKey("web:abc"); got != "lawgpt:preference:web:abc" {
		t.Fatalf("key = %q", got)
	}
}
