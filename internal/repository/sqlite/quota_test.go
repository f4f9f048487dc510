package sqlite

import (
	"context"
	"testing"
)

func TestQuotaGet_UnseenTokenIsZero(t *testing.T) {
	db := newTestDB(t)

	count, err := db.Get(context.Background(), "fresh-token")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if count != 0 {
		t.Errorf("Get() = %d for unseen token, want 0", count)
	}
}

func TestQuotaIncrement(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for want := 1; want <= 4; want++ {
		got, err := db.Increment(ctx, "visitor-1")
		if err != nil {
			t.Fatalf("Increment() error = %v", err)
		}
		if got != want {
			t.Errorf("Increment() = %d, want %d", got, want)
		}
	}

	// Counters are per token.
	got, err := db.Increment(ctx, "visitor-2")
	if err != nil {
		t.Fatalf("Increment() error = %v", err)
	}
	if got != 1 {
		t.Errorf("Increment() for second token = %d, want 1", got)
	}
}

func TestQuotaReset(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := db.Increment(ctx, "visitor-1"); err != nil {
		t.Fatalf("Increment() error = %v", err)
	}
	if err := db.Reset(ctx, "visitor-1"); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	count, err := db.Get(ctx, "visitor-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if count != 0 {
		t.Errorf("count after reset = %d, want 0", count)
	}

	// Resetting an unseen token is a no-op, not an error.
	if err := db.Reset(ctx, "never-seen"); err != nil {
		t.Errorf("Reset() of unseen token error = %v", err)
	}
}
