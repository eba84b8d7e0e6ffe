// Package docstore implements a path-addressed JSON document tree on top of
// a relational table, with change notifications per path.
//
// A write at path P replaces everything at and below P. Reads at P return
// the merged view of every stored fragment that covers P.
package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrInvalidPath     = errors.New("invalid document path")
	ErrVersionConflict = errors.New("document version conflict")
	ErrNotFound        = errors.New("document not found")
)

// Snapshot is the value at a path at read time.
type Snapshot struct {
	Path    string
	Value   json.RawMessage
	Version int64
}

func (s Snapshot) Exists() bool {
	return len(s.Value) > 0
}

// Key is the last segment of the snapshot's path.
func (s Snapshot) Key() string {
	if i := strings.LastIndexByte(s.Path, '/'); i >= 0 {
		return s.Path[i+1:]
	}
	return s.Path
}

func (s Snapshot) Decode(out any) error {
	if !s.Exists() {
		return ErrNotFound
	}
	return json.Unmarshal(s.Value, out)
}

type Store interface {
	Get(ctx context.Context, path string) (Snapshot, error)
	Set(ctx context.Context, path string, value any) error
	Update(ctx context.Context, path string, fields map[string]any) error
	Push(ctx context.Context, path string, value any) (string, error)
	Remove(ctx context.Context, path string) error
	CompareAndSet(ctx context.Context, path string, expected int64, value any) (int64, error)
	Subscribe(path string, fn func(Snapshot)) (cancel func(), err error)
}

type watcher struct {
	path string
	fn   func(Snapshot)
}

type GormStore struct {
	db   *gorm.DB
	feed Feed
	now  func() time.Time

	mu       sync.RWMutex
	watchers map[int]watcher
	nextID   int
	stopFeed func()
}

func NewStore(db *gorm.DB, feed Feed) *GormStore {
	if feed == nil {
		feed = NewMemoryFeed()
	}
	s := &GormStore{
		db:       db,
		feed:     feed,
		now:      time.Now,
		watchers: make(map[int]watcher),
	}
	s.stopFeed = feed.Listen(s.dispatch)
	return s
}

func (s *GormStore) Close() error {
	s.stopFeed()
	return s.feed.Close()
}

func (s *GormStore) Get(ctx context.Context, path string) (Snapshot, error) {
	p, err := Clean(path)
	if err != nil {
		return Snapshot{}, err
	}

	var rows []models.DocNode
	err = s.db.WithContext(ctx).
		Where("path IN ?", append(ancestors(p), p)).
		Or("path LIKE ? ESCAPE '!'", likePrefix(p)).
		Find(&rows).Error
	if err != nil {
		return Snapshot{}, fmt.Errorf("read %s: %w", p, err)
	}
	return assemble(p, rows)
}

func assemble(p string, rows []models.DocNode) (Snapshot, error) {
	sort.Slice(rows, func(i, j int) bool {
		return strings.Count(rows[i].Path, "/") < strings.Count(rows[j].Path, "/")
	})

	snap := Snapshot{Path: p}
	var root any
	for _, r := range rows {
		// LIKE may be case-insensitive; keep only exact tree relatives.
		if r.Path != p && !isUnder(r.Path, p) && !isUnder(p, r.Path) {
			continue
		}
		v, err := decodeValue(r.Value)
		if err != nil {
			return Snapshot{}, fmt.Errorf("decode %s: %w", r.Path, err)
		}
		root = setAt(root, segments(r.Path), v)
		if r.Path == p {
			snap.Version = r.Version
		}
	}

	v := prune(getAt(root, segments(p)))
	if v == nil {
		return snap, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return Snapshot{}, err
	}
	snap.Value = raw
	return snap, nil
}

func (s *GormStore) Set(ctx context.Context, path string, value any) error {
	p, err := Clean(path)
	if err != nil {
		return err
	}
	raw, err := encode(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", p, err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := s.write(tx, p, raw, nil)
		return err
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	s.feed.Publish(p)
	return nil
}

// Update writes each field as a child of path in one transaction. Keys may
// contain slashes to address deeper locations.
func (s *GormStore) Update(ctx context.Context, path string, fields map[string]any) error {
	p, err := Clean(path)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	type pending struct {
		path string
		raw  []byte
	}
	writes := make([]pending, 0, len(keys))
	for _, k := range keys {
		child, err := Clean(p + "/" + k)
		if err != nil {
			return err
		}
		raw, err := encode(fields[k])
		if err != nil {
			return fmt.Errorf("encode %s: %w", child, err)
		}
		writes = append(writes, pending{path: child, raw: raw})
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, w := range writes {
			if _, err := s.write(tx, w.path, w.raw, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("update %s: %w", p, err)
	}
	for _, w := range writes {
		s.feed.Publish(w.path)
	}
	return nil
}

// Push stores value under a new time-ordered key and returns the key.
func (s *GormStore) Push(ctx context.Context, path string, value any) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	key := id.String()
	if err := s.Set(ctx, path+"/"+key, value); err != nil {
		return "", err
	}
	return key, nil
}

func (s *GormStore) Remove(ctx context.Context, path string) error {
	return s.Set(ctx, path, nil)
}

// CompareAndSet writes value only if the row stored exactly at path still
// has the expected version (0 for absent). It returns the new version.
func (s *GormStore) CompareAndSet(ctx context.Context, path string, expected int64, value any) (int64, error) {
	p, err := Clean(path)
	if err != nil {
		return 0, err
	}
	raw, err := encode(value)
	if err != nil {
		return 0, fmt.Errorf("encode %s: %w", p, err)
	}

	var version int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		v, err := s.write(tx, p, raw, &expected)
		version = v
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("write %s: %w", p, err)
	}
	s.feed.Publish(p)
	return version, nil
}

func (s *GormStore) write(tx *gorm.DB, p string, raw []byte, expect *int64) (int64, error) {
	var current models.DocNode
	res := tx.Where("path = ?", p).Limit(1).Find(&current)
	if res.Error != nil {
		return 0, res.Error
	}
	found := res.RowsAffected > 0
	var version int64
	if found {
		version = current.Version
	}
	if expect != nil && version != *expect {
		return 0, ErrVersionConflict
	}

	if found {
		del := tx.Where("path = ? AND version = ?", p, version).Delete(&models.DocNode{})
		if del.Error != nil {
			return 0, del.Error
		}
		if del.RowsAffected == 0 {
			return 0, ErrVersionConflict
		}
	}

	if err := s.deleteDescendants(tx, p); err != nil {
		return 0, err
	}
	if err := s.stripFromAncestors(tx, p); err != nil {
		return 0, err
	}

	if raw == nil {
		return 0, nil
	}
	node := models.DocNode{
		Path:      p,
		Value:     datatypes.JSON(raw),
		Version:   version + 1,
		UpdatedAt: s.now(),
	}
	if err := tx.Create(&node).Error; err != nil {
		if expect != nil {
			return 0, fmt.Errorf("%w: %v", ErrVersionConflict, err)
		}
		return 0, err
	}
	return node.Version, nil
}

func (s *GormStore) deleteDescendants(tx *gorm.DB, p string) error {
	var candidates []string
	if err := tx.Model(&models.DocNode{}).
		Where("path LIKE ? ESCAPE '!'", likePrefix(p)).
		Pluck("path", &candidates).Error; err != nil {
		return err
	}
	doomed := candidates[:0]
	for _, c := range candidates {
		if isUnder(c, p) {
			doomed = append(doomed, c)
		}
	}
	if len(doomed) == 0 {
		return nil
	}
	return tx.Where("path IN ?", doomed).Delete(&models.DocNode{}).Error
}

func (s *GormStore) stripFromAncestors(tx *gorm.DB, p string) error {
	anc := ancestors(p)
	if len(anc) == 0 {
		return nil
	}
	var rows []models.DocNode
	if err := tx.Where("path IN ?", anc).Find(&rows).Error; err != nil {
		return err
	}
	for _, r := range rows {
		v, err := decodeValue(r.Value)
		if err != nil {
			return fmt.Errorf("decode %s: %w", r.Path, err)
		}
		next, changed := deleteAt(v, relative(p, r.Path))
		if !changed {
			continue
		}
		if next == nil {
			if err := tx.Where("path = ?", r.Path).Delete(&models.DocNode{}).Error; err != nil {
				return err
			}
			continue
		}
		raw, err := json.Marshal(next)
		if err != nil {
			return err
		}
		err = tx.Model(&models.DocNode{}).Where("path = ?", r.Path).Updates(map[string]any{
			"value":      datatypes.JSON(raw),
			"version":    r.Version + 1,
			"updated_at": s.now(),
		}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// Subscribe calls fn with a fresh snapshot of path whenever a write touches
// path, one of its ancestors, or one of its descendants.
func (s *GormStore) Subscribe(path string, fn func(Snapshot)) (func(), error) {
	p, err := Clean(path)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = watcher{path: p, fn: fn}
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}, nil
}

func (s *GormStore) dispatch(changed string) {
	s.mu.RLock()
	var matched []watcher
	for _, w := range s.watchers {
		if related(w.path, changed) {
			matched = append(matched, w)
		}
	}
	s.mu.RUnlock()

	for _, w := range matched {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		snap, err := s.Get(ctx, w.path)
		cancel()
		if err != nil {
			slog.Warn("subscription read failed", "path", w.path, "error", err)
			continue
		}
		w.fn(snap)
	}
}

func encode(value any) ([]byte, error) {
	var raw []byte
	switch v := value.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		if !json.Valid(v) {
			return nil, errors.New("invalid JSON")
		}
		raw = v
	default:
		b, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil
	}
	return raw, nil
}

// likePrefix matches every path strictly below p, using '!' as the escape.
func likePrefix(p string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return r.Replace(p) + "/%"
}
