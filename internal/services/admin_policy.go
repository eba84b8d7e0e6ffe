package services

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"strings"

	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/repository"
)

// AdminPolicy decides who may use the admin console: configured emails or
// user IDs, holders of the static admin token, or profiles flagged isAdmin.
type AdminPolicy struct {
	emails   map[string]struct{}
	userIDs  map[string]struct{}
	token    string
	profiles repository.ProfileRepository
}

func NewAdminPolicy(cfg config.Admin, profiles repository.ProfileRepository) *AdminPolicy {
	p := &AdminPolicy{
		emails:   make(map[string]struct{}),
		userIDs:  make(map[string]struct{}),
		token:    cfg.Token,
		profiles: profiles,
	}
	for _, e := range cfg.Emails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			p.emails[e] = struct{}{}
		}
	}
	for _, id := range cfg.UserIDs {
		if id = strings.TrimSpace(id); id != "" {
			p.userIDs[id] = struct{}{}
		}
	}
	return p
}

func (p *AdminPolicy) TokenMatches(token string) bool {
	return p.token != "" && subtle.ConstantTimeCompare([]byte(token), []byte(p.token)) == 1
}

func (p *AdminPolicy) Allows(ctx context.Context, uid, email string) bool {
	if _, ok := p.emails[strings.ToLower(email)]; ok && email != "" {
		return true
	}
	if _, ok := p.userIDs[uid]; ok && uid != "" {
		return true
	}
	if uid == "" || p.profiles == nil {
		return false
	}
	admin, err := p.profiles.IsAdmin(ctx, uid)
	if err != nil {
		slog.Warn("admin lookup failed", "user_id", uid, "error", err)
		return false
	}
	return admin
}
