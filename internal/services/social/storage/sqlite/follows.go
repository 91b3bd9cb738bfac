package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/louisbranch/indogram/internal/services/social/storage"
)

// ListFollowers returns the handles recorded as following handle.
func (s *Store) ListFollowers(ctx context.Context, handle string) ([]string, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT follower FROM follow_edges WHERE handle = ? ORDER BY created_at, follower", handle)
	if err != nil {
		return nil, fmt.Errorf("list followers: %w", err)
	}
	followers, err := scanStrings(rows)
	if err != nil {
		return nil, fmt.Errorf("scan followers: %w", err)
	}
	return followers, nil
}

// AddFollower records follower in the follower set of handle.
func (s *Store) AddFollower(ctx context.Context, handle string, follower string, at time.Time) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if _, err := s.sqlDB.ExecContext(ctx,
		"INSERT OR IGNORE INTO follow_edges (handle, follower, created_at) VALUES (?, ?, ?)",
		handle, follower, toMillis(at),
	); err != nil {
		return fmt.Errorf("add follower: %w", err)
	}
	return nil
}

// RemoveFollower drops follower from the follower set of handle.
func (s *Store) RemoveFollower(ctx context.Context, handle string, follower string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if _, err := s.sqlDB.ExecContext(ctx,
		"DELETE FROM follow_edges WHERE handle = ? AND follower = ?", handle, follower,
	); err != nil {
		return fmt.Errorf("remove follower: %w", err)
	}
	return nil
}

// RenameFollowerKey moves the follower set keyed by oldHandle to newHandle,
// merging into any set already stored under newHandle.
func (s *Store) RenameFollowerKey(ctx context.Context, oldHandle string, newHandle string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.inTx(ctx, "rename follower key", func(tx *sql.Tx) error {
		return mergeSetColumn(ctx, tx, "follow_edges", "follower", "handle", "created_at", oldHandle, newHandle)
	})
}

// ReplaceFollower rewrites every follower-set occurrence of oldFollower.
func (s *Store) ReplaceFollower(ctx context.Context, oldFollower string, newFollower string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.inTx(ctx, "replace follower", func(tx *sql.Tx) error {
		return mergeSetColumn(ctx, tx, "follow_edges", "handle", "follower", "created_at", oldFollower, newFollower)
	})
}

// ListFollowerEdges returns every reverse-index relation.
func (s *Store) ListFollowerEdges(ctx context.Context) ([]storage.FollowEdge, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, "SELECT handle, follower FROM follow_edges ORDER BY handle, follower")
	if err != nil {
		return nil, fmt.Errorf("list follower edges: %w", err)
	}
	return scanEdges(rows)
}
