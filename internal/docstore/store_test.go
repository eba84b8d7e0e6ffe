package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"sort"
	"testing"

	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.DocNode{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	s := NewStore(db, NewMemoryFeed())
	t.Cleanup(func() {
		s.Close()
		sqlDB.Close()
	})
	return s
}

func getJSON(t *testing.T, s *GormStore, path string) any {
	t.Helper()
	snap, err := s.Get(context.Background(), path)
	if err != nil {
		t.Fatalf("Get(%s): %v", path, err)
	}
	if !snap.Exists() {
		return nil
	}
	var v any
	if err := json.Unmarshal(snap.Value, &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return v
}

func TestSetAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "users/u1", map[string]any{"email": "a@x.com", "phone": "9876543210"}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got := getJSON(t, s, "users/u1")
	want := map[string]any{"email": "a@x.com", "phone": "9876543210"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Get = %v, want %v", got, want)
	}
	if v := getJSON(t, s, "users/u1/email"); v != "a@x.com" {
		t.Errorf("child read = %v", v)
	}
	if v := getJSON(t, s, "users/u2"); v != nil {
		t.Errorf("missing path = %v, want nil", v)
	}
}

func TestChildWritesAppearInParentRead(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "users/u1", map[string]any{"email": "a@x.com"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, "users/u1/cart", []any{map[string]any{"id": "1", "quantity": 2}}); err != nil {
		t.Fatal(err)
	}

	got := getJSON(t, s, "users").(map[string]any)
	u1 := got["u1"].(map[string]any)
	if u1["email"] != "a@x.com" {
		t.Errorf("email lost: %v", u1)
	}
	cart, ok := u1["cart"].([]any)
	if !ok || len(cart) != 1 {
		t.Fatalf("cart = %#v", u1["cart"])
	}
}

func TestParentWriteReplacesChildren(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "users/u1/cart", []any{"a"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, "users/u1/orders/k1", map[string]any{"status": "pending"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, "users/u1", map[string]any{"email": "b@x.com"}); err != nil {
		t.Fatal(err)
	}

	got := getJSON(t, s, "users/u1")
	want := map[string]any{"email": "b@x.com"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Get = %v, want %v", got, want)
	}
}

func TestUpdateMergesFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "users/u1/orders/k1", map[string]any{"status": "pending", "total": 749}); err != nil {
		t.Fatal(err)
	}
	err := s.Update(ctx, "users/u1/orders/k1", map[string]any{
		"status":          "shipped",
		"shipment/awb":    "AWB1",
		"shipment/status": "created",
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	got := getJSON(t, s, "users/u1/orders/k1").(map[string]any)
	if got["status"] != "shipped" {
		t.Errorf("status = %v", got["status"])
	}
	if got["total"] != float64(749) {
		t.Errorf("total = %v", got["total"])
	}
	shipment := got["shipment"].(map[string]any)
	if shipment["awb"] != "AWB1" {
		t.Errorf("shipment = %v", shipment)
	}
}

func TestPushKeysAreChronological(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var keys []string
	for i := 0; i < 5; i++ {
		k, err := s.Push(ctx, "users/u1/orders", map[string]any{"n": i})
		if err != nil {
			t.Fatalf("Push: %v", err)
		}
		keys = append(keys, k)
	}
	if !sort.StringsAreSorted(keys) {
		t.Errorf("push keys not ordered: %v", keys)
	}

	got := getJSON(t, s, "users/u1/orders").(map[string]any)
	if len(got) != 5 {
		t.Errorf("orders = %d, want 5", len(got))
	}
}

func TestRemove(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Set(ctx, "users/u1", map[string]any{"email": "a@x.com"})
	s.Set(ctx, "users/u1/orders/k1", map[string]any{"status": "pending"})
	s.Set(ctx, "users/u1/orders/k2", map[string]any{"status": "pending"})

	if err := s.Remove(ctx, "users/u1/orders/k1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	orders := getJSON(t, s, "users/u1/orders").(map[string]any)
	if _, ok := orders["k1"]; ok {
		t.Error("k1 still present")
	}
	if _, ok := orders["k2"]; !ok {
		t.Error("k2 removed")
	}

	// Setting null is the same as removing.
	if err := s.Set(ctx, "users/u1/email", nil); err != nil {
		t.Fatal(err)
	}
	u1 := getJSON(t, s, "users/u1").(map[string]any)
	if _, ok := u1["email"]; ok {
		t.Error("email still present")
	}
}

func TestWritingArrayElementYieldsKeyedMap(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Set(ctx, "users/u1/cart", []any{"a", "b"})
	if err := s.Set(ctx, "users/u1/cart/3", "d"); err != nil {
		t.Fatal(err)
	}

	got := getJSON(t, s, "users/u1/cart")
	want := map[string]any{"0": "a", "1": "b", "3": "d"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("cart = %v, want %v", got, want)
	}
}

func TestCompareAndSet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	v1, err := s.CompareAndSet(ctx, "users/u1/cart", 0, []any{"a"})
	if err != nil {
		t.Fatalf("first CAS: %v", err)
	}
	if v1 != 1 {
		t.Errorf("version = %d, want 1", v1)
	}

	if _, err := s.CompareAndSet(ctx, "users/u1/cart", 0, []any{"b"}); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("stale CAS err = %v, want ErrVersionConflict", err)
	}

	v2, err := s.CompareAndSet(ctx, "users/u1/cart", v1, []any{"c"})
	if err != nil {
		t.Fatalf("second CAS: %v", err)
	}
	if v2 != 2 {
		t.Errorf("version = %d, want 2", v2)
	}

	snap, _ := s.Get(ctx, "users/u1/cart")
	if snap.Version != 2 || string(snap.Value) != `["c"]` {
		t.Errorf("snapshot = %d %s", snap.Version, snap.Value)
	}
}

func TestSubscribeFiresForRelatedPaths(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var seen []string
	cancel, err := s.Subscribe("users/u1/cart", func(snap Snapshot) {
		seen = append(seen, string(snap.Value))
	})
	if err != nil {
		t.Fatal(err)
	}

	s.Set(ctx, "users/u1/cart", []any{"a"})
	s.Set(ctx, "users/u2/cart", []any{"x"})
	s.Set(ctx, "users/u1/cart/1", "b")
	s.Remove(ctx, "users/u1")

	want := []string{`["a"]`, `{"0":"a","1":"b"}`, ``}
	if !reflect.DeepEqual(seen, want) {
		t.Errorf("notifications = %q, want %q", seen, want)
	}

	cancel()
	s.Set(ctx, "users/u1/cart", []any{"z"})
	if len(seen) != 3 {
		t.Errorf("notified after cancel")
	}
}

func TestInvalidPaths(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, p := range []string{"", "/", "users//cart", "users/a.b", "users/$x"} {
		if err := s.Set(ctx, p, 1); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("Set(%q) err = %v, want ErrInvalidPath", p, err)
		}
	}
}
