package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strconv"
	"sync"

	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/catalog"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/docstore"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/repository"
)

var ErrAuthRequired = errors.New("authentication required")

type pendingAdd struct {
	product catalog.Product
	size    string
}

// CartSync mirrors one user's cart between memory and the document store.
// Every mutation overwrites the stored cart, guarded by the stored version;
// a stale write is re-applied once on top of the fresh remote cart.
// Remote write failures are logged and never returned to callers.
type CartSync struct {
	repo repository.CartRepository

	// writeMu serializes mutate-and-write so versions advance in order.
	writeMu sync.Mutex

	mu       sync.Mutex
	uid      string
	entries  []models.CartEntry
	version  int64
	revision uint64
	pending  *pendingAdd
	unwatch  func()
}

func NewCartSync(repo repository.CartRepository) *CartSync {
	return &CartSync{repo: repo, entries: []models.CartEntry{}}
}

// SetUser attaches the cart to uid, loading the stored cart and watching it
// for remote changes. An add queued while signed out is replayed once.
// An empty uid detaches and empties the local cart.
func (s *CartSync) SetUser(ctx context.Context, uid string) error {
	s.mu.Lock()
	if s.unwatch != nil {
		s.unwatch()
		s.unwatch = nil
	}
	s.uid = uid
	s.version = 0
	if uid == "" {
		s.setEntries([]models.CartEntry{})
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	unwatch, err := s.repo.Watch(uid, func(raw json.RawMessage, version int64) {
		s.applyRemote(uid, raw, version)
	})
	if err != nil {
		return fmt.Errorf("watch cart: %w", err)
	}
	raw, version, err := s.repo.Load(ctx, uid)
	if err != nil {
		unwatch()
		return fmt.Errorf("load cart: %w", err)
	}

	s.mu.Lock()
	if s.uid != uid {
		s.mu.Unlock()
		unwatch()
		return nil
	}
	s.unwatch = unwatch
	s.mu.Unlock()
	s.applyRemote(uid, raw, version)

	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	if pending != nil {
		return s.AddItem(ctx, pending.product, pending.size)
	}
	return nil
}

func (s *CartSync) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uid
}

// AddItem increments the (product, size) entry or appends it with quantity
// 1. Without a user the request is queued and ErrAuthRequired returned.
func (s *CartSync) AddItem(ctx context.Context, product catalog.Product, size string) error {
	s.mu.Lock()
	if s.uid == "" {
		s.pending = &pendingAdd{product: product, size: size}
		s.mu.Unlock()
		return ErrAuthRequired
	}
	s.mu.Unlock()

	s.mutate(ctx, func(entries []models.CartEntry) []models.CartEntry {
		for i := range entries {
			if entries[i].Matches(product.ID, size) {
				entries[i].Quantity++
				return entries
			}
		}
		return append(entries, models.CartEntry{
			ID:           product.ID,
			Name:         product.Name,
			Price:        product.Price,
			Image:        product.Image,
			SelectedSize: size,
			Quantity:     1,
		})
	})
	return nil
}

// UpdateQuantity sets the quantity of the matching entry. Callers keep qty >= 1.
func (s *CartSync) UpdateQuantity(ctx context.Context, id, size string, qty int) {
	s.mutate(ctx, func(entries []models.CartEntry) []models.CartEntry {
		for i := range entries {
			if entries[i].Matches(id, size) {
				entries[i].Quantity = qty
			}
		}
		return entries
	})
}

func (s *CartSync) RemoveItem(ctx context.Context, id, size string) {
	s.mutate(ctx, func(entries []models.CartEntry) []models.CartEntry {
		return slices.DeleteFunc(entries, func(e models.CartEntry) bool {
			return e.Matches(id, size)
		})
	})
}

func (s *CartSync) Clear(ctx context.Context) {
	s.mutate(ctx, func([]models.CartEntry) []models.CartEntry {
		return []models.CartEntry{}
	})
}

func (s *CartSync) Items() []models.CartEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.entries)
}

func (s *CartSync) Totals() Totals {
	return PriceCart(s.Items())
}

func (s *CartSync) Version() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Revision increases every time the local cart is replaced.
func (s *CartSync) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// ApplyRemote feeds a stored cart value through the change handler and
// reports whether local state changed.
func (s *CartSync) ApplyRemote(raw json.RawMessage, version int64) bool {
	return s.applyRemote(s.UserID(), raw, version)
}

func (s *CartSync) applyRemote(uid string, raw json.RawMessage, version int64) bool {
	entries, err := NormalizeCart(raw)
	if err != nil {
		slog.Warn("ignoring malformed remote cart", "user_id", uid, "error", err)
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.uid != uid || uid == "" {
		return false
	}
	if version != 0 && version < s.version {
		return false
	}
	s.version = version
	return s.setEntries(entries)
}

// setEntries replaces local state only when it differs. Callers hold mu.
func (s *CartSync) setEntries(next []models.CartEntry) bool {
	if slices.Equal(s.entries, next) {
		return false
	}
	s.entries = next
	s.revision++
	return true
}

func (s *CartSync) mutate(ctx context.Context, fn func([]models.CartEntry) []models.CartEntry) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	uid := s.uid
	next := fn(slices.Clone(s.entries))
	if next == nil {
		next = []models.CartEntry{}
	}
	s.setEntries(next)
	expected := s.version
	snapshot := slices.Clone(next)
	s.mu.Unlock()

	if uid == "" {
		return
	}
	s.persist(ctx, uid, fn, snapshot, expected)
}

func (s *CartSync) persist(ctx context.Context, uid string, fn func([]models.CartEntry) []models.CartEntry, entries []models.CartEntry, expected int64) {
	version, err := s.repo.Save(ctx, uid, entries, expected)
	if errors.Is(err, docstore.ErrVersionConflict) {
		metrics.CartWrites.WithLabelValues("conflict").Inc()
		slog.Info("cart changed remotely, reapplying", "user_id", uid, "expected_version", expected)

		raw, remoteVersion, lerr := s.repo.Load(ctx, uid)
		if lerr != nil {
			slog.Error("cart reload failed", "user_id", uid, "error", lerr)
			return
		}
		remote, nerr := NormalizeCart(raw)
		if nerr != nil {
			remote = []models.CartEntry{}
		}
		next := fn(remote)
		if next == nil {
			next = []models.CartEntry{}
		}

		s.mu.Lock()
		if s.uid != uid {
			s.mu.Unlock()
			return
		}
		s.setEntries(next)
		s.version = remoteVersion
		s.mu.Unlock()

		version, err = s.repo.Save(ctx, uid, slices.Clone(next), remoteVersion)
	}
	if err != nil {
		metrics.CartWrites.WithLabelValues("error").Inc()
		slog.Error("cart write failed", "user_id", uid, "error", err)
		return
	}
	metrics.CartWrites.WithLabelValues("ok").Inc()

	s.mu.Lock()
	if s.uid == uid && version > s.version {
		s.version = version
	}
	s.mu.Unlock()
}

// Close stops watching the stored cart.
func (s *CartSync) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unwatch != nil {
		s.unwatch()
		s.unwatch = nil
	}
}

// NormalizeCart turns a stored cart into a dense slice. The value may be an
// array with null holes or an object keyed by index; numeric keys are
// ordered numerically and any other keys follow in lexical order.
func NormalizeCart(raw json.RawMessage) ([]models.CartEntry, error) {
	out := []models.CartEntry{}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return out, nil
	}

	var elems []json.RawMessage
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &elems); err != nil {
			return nil, err
		}
	case '{':
		var keyed map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &keyed); err != nil {
			return nil, err
		}
		keys := make([]string, 0, len(keyed))
		for k := range keyed {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			a, aerr := strconv.Atoi(keys[i])
			b, berr := strconv.Atoi(keys[j])
			switch {
			case aerr == nil && berr == nil:
				return a < b
			case aerr == nil:
				return true
			case berr == nil:
				return false
			default:
				return keys[i] < keys[j]
			}
		})
		for _, k := range keys {
			elems = append(elems, keyed[k])
		}
	default:
		return nil, fmt.Errorf("cart must be an array or object, got %q", trimmed[:1])
	}

	for _, e := range elems {
		if len(e) == 0 || bytes.Equal(bytes.TrimSpace(e), []byte("null")) {
			continue
		}
		var entry models.CartEntry
		if err := json.Unmarshal(e, &entry); err != nil {
			return nil, fmt.Errorf("decode cart entry: %w", err)
		}
		out = append(out, entry)
	}
	return out, nil
}
