package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client, "test:sess"), mr
}

func TestRedisStoreCreateAndGet(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	sess := testSession("tok-1", time.Now().Add(time.Hour))
	if err := store.Create(ctx, sess, time.Hour); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := store.Get(ctx, "tok-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Token != "tok-1" || got.UserID != sess.UserID || got.Role != sess.Role {
		t.Fatalf("Get = %+v", got)
	}
}

func TestRedisStoreGetUnknownToken(t *testing.T) {
	store, _ := newTestRedisStore(t)

	_, err := store.Get(context.Background(), "no-such-token")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(unknown) err = %v, want ErrNotFound", err)
	}
}

func TestRedisStoreGetDeletesExpired(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	current := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return current }

	// Long Redis TTL with a shorter embedded deadline: the decoded ExpiresAt
	// must win.
	sess := testSession("tok-1", current.Add(time.Minute))
	if err := store.Create(ctx, sess, time.Hour); err != nil {
		t.Fatalf("Create: %v", err)
	}

	current = current.Add(2 * time.Minute)
	if _, err := store.Get(ctx, "tok-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(expired) err = %v, want ErrNotFound", err)
	}
	if mr.Exists("test:sess:tok-1") {
		t.Fatal("expired key not deleted")
	}
}

func TestRedisStoreTTLReapsAbandonedSessions(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	sess := testSession("tok-1", time.Now().Add(time.Minute))
	if err := store.Create(ctx, sess, time.Minute); err != nil {
		t.Fatalf("Create: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, err := store.Get(ctx, "tok-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after TTL err = %v, want ErrNotFound", err)
	}
}

func TestRedisStoreInvalidate(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	sess := testSession("tok-1", time.Now().Add(time.Hour))
	if err := store.Create(ctx, sess, time.Hour); err != nil {
		t.Fatalf("Create: %v", err)
	}

	removed, err := store.Invalidate(ctx, "tok-1")
	if err != nil || !removed {
		t.Fatalf("Invalidate = (%v, %v), want (true, nil)", removed, err)
	}
	removed, err = store.Invalidate(ctx, "tok-1")
	if err != nil || removed {
		t.Fatalf("second Invalidate = (%v, %v), want (false, nil)", removed, err)
	}
}

func TestRedisStoreUpdate(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	sess := testSession("tok-1", time.Now().Add(time.Hour))
	if err := store.Create(ctx, sess, time.Hour); err != nil {
		t.Fatalf("Create: %v", err)
	}

	role := "admin"
	updated, err := store.Update(ctx, "tok-1", Update{
		Role:        &role,
		Permissions: []string{"admin:metrics"},
	})
	if err != nil || !updated {
		t.Fatalf("Update = (%v, %v), want (true, nil)", updated, err)
	}

	got, err := store.Get(ctx, "tok-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Role != "admin" || !got.HasPermission("admin:metrics") {
		t.Fatalf("update not applied: %+v", got)
	}

	updated, err = store.Update(ctx, "unknown", Update{Role: &role})
	if err != nil || updated {
		t.Fatalf("Update(unknown) = (%v, %v), want (false, nil)", updated, err)
	}
}

func TestRedisStoreClear(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	for _, token := range []string{"a", "b", "c"} {
		if err := store.Create(ctx, testSession(token, time.Now().Add(time.Hour)), time.Hour); err != nil {
			t.Fatalf("Create(%s): %v", token, err)
		}
	}
	// A key outside the prefix must survive.
	mr.Set("other:key", "1")

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	for _, token := range []string{"a", "b", "c"} {
		if mr.Exists("test:sess:" + token) {
			t.Fatalf("key %s survived Clear", token)
		}
	}
	if !mr.Exists("other:key") {
		t.Fatal("Clear removed a key outside its prefix")
	}
}
