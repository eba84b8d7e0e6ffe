package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/docstore"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/models"
)

var ErrProfileNotFound = errors.New("profile not found")

type ProfileRepository interface {
	Create(ctx context.Context, profile models.Profile) error
	Get(ctx context.Context, uid string) (*models.Profile, error)
	Update(ctx context.Context, uid string, fields map[string]any) error
	IsAdmin(ctx context.Context, uid string) (bool, error)
}

type profileRepoImpl struct {
	store docstore.Store
}

func NewProfileRepository(store docstore.Store) ProfileRepository {
	return &profileRepoImpl{store: store}
}

// Create merges the profile fields into users/{uid} without touching the
// cart or orders stored under the same node.
func (r *profileRepoImpl) Create(ctx context.Context, profile models.Profile) error {
	b, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	fields := make(map[string]any, len(raw))
	for k, v := range raw {
		fields[k] = v
	}
	return r.store.Update(ctx, userPath(profile.UID), fields)
}

func (r *profileRepoImpl) Get(ctx context.Context, uid string) (*models.Profile, error) {
	snap, err := r.store.Get(ctx, userPath(uid))
	if err != nil {
		return nil, err
	}
	var p models.Profile
	if err := snap.Decode(&p); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	if p.UID == "" {
		return nil, ErrProfileNotFound
	}
	return &p, nil
}

func (r *profileRepoImpl) Update(ctx context.Context, uid string, fields map[string]any) error {
	return r.store.Update(ctx, userPath(uid), fields)
}

func (r *profileRepoImpl) IsAdmin(ctx context.Context, uid string) (bool, error) {
	snap, err := r.store.Get(ctx, docstore.Join(usersRoot, uid, "isAdmin"))
	if err != nil {
		return false, err
	}
	var admin bool
	if err := snap.Decode(&admin); err != nil {
		return false, nil
	}
	return admin, nil
}
