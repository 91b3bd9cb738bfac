package domain

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/louisbranch/indogram/internal/platform/errors"
	"github.com/louisbranch/indogram/internal/services/social/storage"
)

// RenameUser moves oldHandle to newHandle and rewrites every reference.
func (s *Service) RenameUser(ctx context.Context, oldHandle string, newHandle string) (string, error) {
	newHandle, err := normalizeHandle(newHandle, apperrors.CodeToRequired)
	if err != nil {
		return "", err
	}
	if oldHandle == newHandle {
		return newHandle, nil
	}
	if _, err := s.stores.Users.GetUser(ctx, newHandle); err == nil {
		return "", apperrors.New(apperrors.CodeUsernameTaken, "username is taken")
	} else if !errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("get user: %w", err)
	}
	if _, err := s.stores.Users.GetUser(ctx, oldHandle); err != nil {
		return "", notFoundAs(err, apperrors.CodeUserNotFound, "user not found")
	}
	if err := s.PropagateRename(ctx, oldHandle, newHandle); err != nil {
		return "", err
	}
	return newHandle, nil
}

// PropagateRename renames the identity when it still carries oldHandle and
// then rewrites posts, comments, both follow indexes, groups and
// notifications. Every step is a set-merge or a conditional rewrite, so
// running it again after a partial failure converges.
func (s *Service) PropagateRename(ctx context.Context, oldHandle string, newHandle string) error {
	if oldHandle == "" || newHandle == "" {
		return fmt.Errorf("both handles are required")
	}
	if oldHandle == newHandle {
		return nil
	}

	err := s.stores.Users.RenameUser(ctx, oldHandle, newHandle, s.nowUTC())
	switch {
	case errors.Is(err, storage.ErrAlreadyExists):
		return apperrors.New(apperrors.CodeUsernameTaken, "username is taken")
	case errors.Is(err, storage.ErrNotFound):
		// Identity already moved by an earlier run.
	case err != nil:
		return fmt.Errorf("rename user: %w", err)
	}

	steps := []struct {
		name string
		run  func(context.Context, string, string) error
	}{
		{name: "post authors", run: s.stores.Posts.RenamePostAuthor},
		{name: "follower key", run: s.stores.Followers.RenameFollowerKey},
		{name: "follower entries", run: s.stores.Followers.ReplaceFollower},
		{name: "following entries", run: s.stores.Users.ReplaceFollowingTarget},
		{name: "group references", run: s.stores.Groups.RenameGroupHandle},
		{name: "notification references", run: s.stores.Notifications.RenameNotificationHandle},
	}
	for _, step := range steps {
		if err := step.run(ctx, oldHandle, newHandle); err != nil {
			return fmt.Errorf("rename %s: %w", step.name, err)
		}
	}
	return nil
}
