package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestGetLoadsOnce(t *testing.T) {
	c := New(time.Minute)
	ctx := context.Background()
	loads := 0
	load := func(context.Context) (interface{}, error) {
		loads++
		return "value", nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.Get(ctx, "k", load)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if v != "value" {
			t.Fatalf("Get() = %v, want value", v)
		}
	}
	if loads != 1 {
		t.Errorf("loader ran %d times, want 1", loads)
	}
}

func TestGetDoesNotCacheErrors(t *testing.T) {
	c := New(time.Minute)
	ctx := context.Background()
	boom := errors.New("load failed")
	loads := 0

	_, err := c.Get(ctx, "k", func(context.Context) (interface{}, error) {
		loads++
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Get() error = %v, want load failure", err)
	}

	v, err := c.Get(ctx, "k", func(context.Context) (interface{}, error) {
		loads++
		return "recovered", nil
	})
	if err != nil || v != "recovered" {
		t.Fatalf("Get() after failure = %v, %v", v, err)
	}
	if loads != 2 {
		t.Errorf("loader ran %d times, want 2", loads)
	}
}

func TestExpiredEntryReloads(t *testing.T) {
	c := New(time.Millisecond)
	ctx := context.Background()

	if _, err := c.Get(ctx, "k", func(context.Context) (interface{}, error) { return 1, nil }); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)

	v, err := c.Get(ctx, "k", func(context.Context) (interface{}, error) { return 2, nil })
	if err != nil {
		t.Fatal(err)
	}
	if v != 2 {
		t.Errorf("Get() after expiry = %v, want reloaded value", v)
	}
}

func TestDeleteMatch(t *testing.T) {
	c := New(time.Minute)
	ctx := context.Background()
	store := func(key string) {
		c.Get(ctx, key, func(context.Context) (interface{}, error) { return true, nil })
	}

	store(PermissionKey(7) + ":trade.expire")
	store(PermissionKey(7) + ":rules.manage")
	store(PermissionKey(8) + ":trade.expire")
	store(CatalogKey())

	removed := c.DeleteMatch(PermissionKey(7))
	if removed != 2 {
		t.Errorf("DeleteMatch() removed %d entries, want 2", removed)
	}

	if _, ok := c.Peek(PermissionKey(7) + ":trade.expire"); ok {
		t.Error("matching entry survived DeleteMatch")
	}
	if _, ok := c.Peek(PermissionKey(8) + ":trade.expire"); !ok {
		t.Error("other user's entry was removed")
	}
	if _, ok := c.Peek(CatalogKey()); !ok {
		t.Error("unrelated entry was removed")
	}
}
