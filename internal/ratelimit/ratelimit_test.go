// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestNewRejectsNonPositiveRate(t *testing.T) {
	tests := []struct {
		name string
		rate float64
	}{
		{"zero", 0},
		{"negative", -3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.rate); err == nil {
				t.Fatalf("New(%g) succeeded, want error", tt.rate)
			}
		})
	}
}

func TestAcquireSpacesRequests(t *testing.T) {
	// 50 req/s → 20ms minimum spacing. Four acquisitions should take at
	// least 3 intervals beyond the first immediate one.
	l, err := New(50)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	start := time.Now()
	for i := 0; i < 4; i++ {
		if err := l.Acquire(context.Background()); err != nil {
			t.Fatalf("Acquire %d: %v", i, err)
		}
	}
	elapsed := time.Since(start)

	if min := 3 * 20 * time.Millisecond; elapsed < min {
		t.Errorf("4 acquisitions took %v, want >= %v", elapsed, min)
	}
}

func TestAcquireSharedAcrossGoroutines(t *testing.T) {
	// 100 req/s shared by 10 goroutines: 10 acquisitions need at least
	// 9 * 10ms of spacing regardless of which goroutine wins each slot.
	l, err := New(100)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var wg sync.WaitGroup
	start := time.Now()
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Acquire(context.Background()); err != nil {
				t.Errorf("Acquire: %v", err)
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	if min := 9 * 10 * time.Millisecond; elapsed < min {
		t.Errorf("10 shared acquisitions took %v, want >= %v", elapsed, min)
	}
}

func TestAcquireHonorsContextCancellation(t *testing.T) {
	l, err := New(1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// First acquisition consumes the only slot.
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("first Acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := l.Acquire(ctx); err == nil {
		t.Error("Acquire returned nil, want context error while waiting")
	}
}

func TestRate(t *testing.T) {
	l, err := New(3)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := l.Rate(); got != 3 {
		t.Errorf("Rate() = %g, want 3", got)
	}
}
