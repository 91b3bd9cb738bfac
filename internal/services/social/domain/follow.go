package domain

import (
	"context"
	"fmt"

	apperrors "github.com/louisbranch/indogram/internal/platform/errors"
	"github.com/louisbranch/indogram/internal/services/social/storage"
)

// Follow makes viewer follow target, writing the forward set and the reverse
// index. Both writes are set-adds, so a retry converges.
func (s *Service) Follow(ctx context.Context, viewer string, target string) ([]string, error) {
	viewer, err := normalizeHandle(viewer, apperrors.CodeUsernameRequired)
	if err != nil {
		return nil, err
	}
	target, err = normalizeHandle(target, apperrors.CodeUsernameRequired)
	if err != nil {
		return nil, err
	}
	if viewer == target {
		return nil, apperrors.New(apperrors.CodeCannotFollowSelf, "cannot follow self")
	}
	if err := s.addFollow(ctx, viewer, target); err != nil {
		return nil, err
	}
	return s.following(ctx, viewer)
}

// Unfollow removes viewer from target's followers on both indexes.
func (s *Service) Unfollow(ctx context.Context, viewer string, target string) ([]string, error) {
	viewer, err := normalizeHandle(viewer, apperrors.CodeUsernameRequired)
	if err != nil {
		return nil, err
	}
	target, err = normalizeHandle(target, apperrors.CodeUsernameRequired)
	if err != nil {
		return nil, err
	}
	if err := s.stores.Users.RemoveFollowing(ctx, viewer, target); err != nil {
		return nil, fmt.Errorf("remove following: %w", err)
	}
	if err := s.stores.Followers.RemoveFollower(ctx, target, viewer); err != nil {
		return nil, fmt.Errorf("remove follower: %w", err)
	}
	return s.following(ctx, viewer)
}

// addFollow records follower -> target on both indexes, creating either
// identity on first reference.
func (s *Service) addFollow(ctx context.Context, follower string, target string) error {
	if _, err := s.ensureUser(ctx, follower); err != nil {
		return err
	}
	if _, err := s.ensureUser(ctx, target); err != nil {
		return err
	}
	now := s.nowUTC()
	if err := s.stores.Users.AddFollowing(ctx, follower, target, now); err != nil {
		return fmt.Errorf("add following: %w", err)
	}
	if err := s.stores.Followers.AddFollower(ctx, target, follower, now); err != nil {
		return fmt.Errorf("add follower: %w", err)
	}
	return nil
}

func (s *Service) following(ctx context.Context, handle string) ([]string, error) {
	following, err := s.stores.Users.ListFollowing(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("list following: %w", err)
	}
	return nonNil(following), nil
}

// GetProfile returns target's profile when viewer may see it. The target is
// created on first reference.
func (s *Service) GetProfile(ctx context.Context, viewer string, target string) (Profile, error) {
	user, err := s.GetOrCreateUser(ctx, target)
	if err != nil {
		return Profile{}, err
	}
	if err := s.requireView(ctx, viewer, user.Handle); err != nil {
		return Profile{}, err
	}
	return Profile{Handle: user.Handle, Name: user.Name(), Following: user.Following}, nil
}

// ProfileStats counts target's followers and followees when viewer may see
// them.
func (s *Service) ProfileStats(ctx context.Context, viewer string, target string) (Stats, error) {
	if err := s.requireView(ctx, viewer, target); err != nil {
		return Stats{}, err
	}
	followers, err := s.stores.Followers.ListFollowers(ctx, target)
	if err != nil {
		return Stats{}, fmt.Errorf("list followers: %w", err)
	}
	following, err := s.stores.Users.ListFollowing(ctx, target)
	if err != nil {
		return Stats{}, fmt.Errorf("list following: %w", err)
	}
	return Stats{Followers: len(followers), Following: len(following)}, nil
}

// CanView reports whether viewer may read target-scoped data.
func (s *Service) CanView(ctx context.Context, viewer string, target string) (bool, error) {
	if viewer == target {
		return true, nil
	}
	relations, err := s.relations(ctx, viewer)
	if err != nil {
		return false, err
	}
	return relations.CanView(target), nil
}

// GraphReport lists follow relations present on only one index.
type GraphReport struct {
	// MissingFollower holds forward edges without a reverse-index entry.
	MissingFollower []storage.FollowEdge
	// MissingFollowing holds reverse-index entries without a forward edge.
	MissingFollowing []storage.FollowEdge
}

// Consistent reports whether both indexes agree.
func (r GraphReport) Consistent() bool {
	return len(r.MissingFollower) == 0 && len(r.MissingFollowing) == 0
}

// CheckFollowGraph compares the forward follow sets with the reverse index.
func (s *Service) CheckFollowGraph(ctx context.Context) (GraphReport, error) {
	forward, err := s.stores.Users.ListFollowingEdges(ctx)
	if err != nil {
		return GraphReport{}, fmt.Errorf("list following edges: %w", err)
	}
	reverse, err := s.stores.Followers.ListFollowerEdges(ctx)
	if err != nil {
		return GraphReport{}, fmt.Errorf("list follower edges: %w", err)
	}
	forwardSet := make(map[storage.FollowEdge]struct{}, len(forward))
	for _, edge := range forward {
		forwardSet[edge] = struct{}{}
	}
	reverseSet := make(map[storage.FollowEdge]struct{}, len(reverse))
	for _, edge := range reverse {
		reverseSet[edge] = struct{}{}
	}

	var report GraphReport
	for _, edge := range forward {
		if _, ok := reverseSet[edge]; !ok {
			report.MissingFollower = append(report.MissingFollower, edge)
		}
	}
	for _, edge := range reverse {
		if _, ok := forwardSet[edge]; !ok {
			report.MissingFollowing = append(report.MissingFollowing, edge)
		}
	}
	return report, nil
}

// RepairFollowGraph adds the missing side of every asymmetric relation and
// returns what it repaired.
func (s *Service) RepairFollowGraph(ctx context.Context) (GraphReport, error) {
	report, err := s.CheckFollowGraph(ctx)
	if err != nil {
		return GraphReport{}, err
	}
	for _, edge := range report.MissingFollower {
		if err := s.stores.Followers.AddFollower(ctx, edge.Handle, edge.Follower, s.nowUTC()); err != nil {
			return GraphReport{}, fmt.Errorf("repair follower %s -> %s: %w", edge.Follower, edge.Handle, err)
		}
	}
	for _, edge := range report.MissingFollowing {
		if _, err := s.ensureUser(ctx, edge.Follower); err != nil {
			return GraphReport{}, err
		}
		if err := s.stores.Users.AddFollowing(ctx, edge.Follower, edge.Handle, s.nowUTC()); err != nil {
			return GraphReport{}, fmt.Errorf("repair following %s -> %s: %w", edge.Follower, edge.Handle, err)
		}
	}
	return report, nil
}
