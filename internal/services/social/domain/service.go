// Package domain implements the Indogram social workflows.
//
// Service is the only component that writes across stores. Each store call is
// a single atomic statement; multi-store workflows are ordered so a retry after
// partial failure converges instead of double-applying.
package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/louisbranch/indogram/internal/platform/errors"
	"github.com/louisbranch/indogram/internal/platform/id"
	"github.com/louisbranch/indogram/internal/services/social/storage"
	"github.com/louisbranch/indogram/internal/services/social/tags"
	"github.com/louisbranch/indogram/internal/services/social/username"
	"github.com/louisbranch/indogram/internal/services/social/visibility"
	"golang.org/x/crypto/bcrypt"
)

const (
	// SearchLimit caps user search results.
	SearchLimit = 20
	// NotificationLimit caps one notification listing.
	NotificationLimit = 100
	// MinPasswordLength is the shortest accepted password.
	MinPasswordLength = 6
)

// ErrStoreNotConfigured indicates the service is missing persistence wiring.
var ErrStoreNotConfigured = errors.New("social store is not configured")

// Stores groups the independent persisted collections.
type Stores struct {
	Users         storage.UserStore
	Followers     storage.FollowerStore
	Posts         storage.PostStore
	Groups        storage.GroupStore
	Notifications storage.NotificationStore
}

func (s Stores) validate() error {
	if s.Users == nil || s.Followers == nil || s.Posts == nil || s.Groups == nil || s.Notifications == nil {
		return ErrStoreNotConfigured
	}
	return nil
}

// TokenIssuer signs bearer credentials for a handle.
type TokenIssuer interface {
	Issue(handle string) (string, error)
}

// TrendingCache memoizes the trending ranking. Implementations may drop
// entries at any time.
type TrendingCache interface {
	Get() ([]tags.Count, bool)
	Set(counts []tags.Count)
	Invalidate()
}

// Config wires a Service.
type Config struct {
	Stores   Stores
	Tokens   TokenIssuer
	Trending TrendingCache
	Clock    func() time.Time
	NewID    func() (string, error)
	// PasswordCost is the bcrypt cost; zero selects bcrypt.DefaultCost.
	PasswordCost int
}

// Service orchestrates social workflows over the stores.
type Service struct {
	stores       Stores
	tokens       TokenIssuer
	trending     TrendingCache
	clock        func() time.Time
	newID        func() (string, error)
	passwordCost int
}

// NewService constructs social domain use-cases.
func NewService(cfg Config) (*Service, error) {
	if err := cfg.Stores.validate(); err != nil {
		return nil, err
	}
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("token issuer is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = id.NewID
	}
	if cfg.PasswordCost == 0 {
		cfg.PasswordCost = bcrypt.DefaultCost
	}
	return &Service{
		stores:       cfg.Stores,
		tokens:       cfg.Tokens,
		trending:     cfg.Trending,
		clock:        cfg.Clock,
		newID:        cfg.NewID,
		passwordCost: cfg.PasswordCost,
	}, nil
}

func (s *Service) nowUTC() time.Time {
	return s.clock().UTC()
}

// normalizeHandle applies handle policy and maps failures to wire codes.
func normalizeHandle(raw string, required apperrors.Code) (string, error) {
	handle, err := username.Normalize(raw)
	switch {
	case errors.Is(err, username.ErrRequired):
		return "", apperrors.New(required, "username is required")
	case err != nil:
		return "", apperrors.New(apperrors.CodeInvalidUsername, err.Error())
	}
	return handle, nil
}

// notFoundAs maps storage.ErrNotFound to code and passes other errors through.
func notFoundAs(err error, code apperrors.Code, message string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperrors.New(code, message)
	}
	return err
}

// relations loads the follow neighbourhood of viewer from both indexes.
func (s *Service) relations(ctx context.Context, viewer string) (visibility.Relations, error) {
	following, err := s.stores.Users.ListFollowing(ctx, viewer)
	if err != nil {
		return visibility.Relations{}, fmt.Errorf("list following: %w", err)
	}
	followers, err := s.stores.Followers.ListFollowers(ctx, viewer)
	if err != nil {
		return visibility.Relations{}, fmt.Errorf("list followers: %w", err)
	}
	return visibility.NewRelations(viewer, following, followers), nil
}

// requireView fails with not_allowed unless viewer may read target.
func (s *Service) requireView(ctx context.Context, viewer string, target string) error {
	if viewer == target {
		return nil
	}
	relations, err := s.relations(ctx, viewer)
	if err != nil {
		return err
	}
	if !relations.CanView(target) {
		return apperrors.New(apperrors.CodeNotAllowed, "mutual follow required")
	}
	return nil
}

func trimmed(value string) string {
	return strings.TrimSpace(value)
}
