package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/indogram/internal/services/social/storage"
	"golang.org/x/text/cases"
)

const userColumns = "handle, display_name, name_id, avatar, password_hash, created_at, updated_at"

// foldNameID produces the case-folded search key for a name id.
func foldNameID(value string) string {
	return cases.Fold().String(strings.TrimSpace(value))
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}

// GetUser loads one identity by handle.
func (s *Store) GetUser(ctx context.Context, handle string) (storage.UserRecord, error) {
	if err := s.ready(ctx); err != nil {
		return storage.UserRecord{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE handle = ?", handle)
	user, err := scanUser(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.UserRecord{}, storage.ErrNotFound
		}
		return storage.UserRecord{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// CreateUser inserts one identity.
func (s *Store) CreateUser(ctx context.Context, user storage.UserRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(user.Handle) == "" {
		return fmt.Errorf("handle is required")
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO users (handle, display_name, name_id, name_id_folded, avatar, password_hash, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`,
		user.Handle,
		user.DisplayName,
		user.NameID,
		foldNameID(user.NameID),
		user.Avatar,
		user.PasswordHash,
		toMillis(user.CreatedAt),
		toMillis(user.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// UpdateUser overwrites profile and credential fields of one identity.
func (s *Store) UpdateUser(ctx context.Context, user storage.UserRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE users
SET display_name = ?, name_id = ?, name_id_folded = ?, avatar = ?, password_hash = ?, updated_at = ?
WHERE handle = ?
`,
		user.DisplayName,
		user.NameID,
		foldNameID(user.NameID),
		user.Avatar,
		user.PasswordHash,
		toMillis(user.UpdatedAt),
		user.Handle,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return requireAffected(result, "update user")
}

// RenameUser changes a handle. The forward follow set cascades with the key.
func (s *Store) RenameUser(ctx context.Context, oldHandle string, newHandle string, at time.Time) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx,
		"UPDATE users SET handle = ?, updated_at = ? WHERE handle = ?",
		newHandle, toMillis(at), oldHandle,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("rename user: %w", err)
	}
	return requireAffected(result, "rename user")
}

// SearchUsers matches query as a case-insensitive substring of name ids.
func (s *Store) SearchUsers(ctx context.Context, query string, limit int) ([]storage.UserRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	folded := foldNameID(query)
	if folded == "" {
		return nil, nil
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT `+userColumns+`
FROM users
WHERE name_id_folded LIKE ? ESCAPE '\'
ORDER BY handle
LIMIT ?
`, "%"+escapeLike(folded)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer rows.Close()

	var users []storage.UserRecord
	for rows.Next() {
		user, err := scanUser(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// ListFollowing returns the handles followed by handle.
func (s *Store) ListFollowing(ctx context.Context, handle string) ([]string, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT target FROM user_following WHERE handle = ? ORDER BY created_at, target", handle)
	if err != nil {
		return nil, fmt.Errorf("list following: %w", err)
	}
	targets, err := scanStrings(rows)
	if err != nil {
		return nil, fmt.Errorf("scan following: %w", err)
	}
	return targets, nil
}

// AddFollowing adds target to the follow set of handle. The user row must exist.
func (s *Store) AddFollowing(ctx context.Context, handle string, target string, at time.Time) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	_, err := s.sqlDB.ExecContext(ctx,
		"INSERT OR IGNORE INTO user_following (handle, target, created_at) VALUES (?, ?, ?)",
		handle, target, toMillis(at),
	)
	if err != nil {
		if isForeignKeyError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("add following: %w", err)
	}
	return nil
}

// RemoveFollowing removes target from the follow set of handle.
func (s *Store) RemoveFollowing(ctx context.Context, handle string, target string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if _, err := s.sqlDB.ExecContext(ctx,
		"DELETE FROM user_following WHERE handle = ? AND target = ?", handle, target,
	); err != nil {
		return fmt.Errorf("remove following: %w", err)
	}
	return nil
}

// ReplaceFollowingTarget rewrites every follow-set occurrence of oldTarget.
func (s *Store) ReplaceFollowingTarget(ctx context.Context, oldTarget string, newTarget string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.inTx(ctx, "replace following target", func(tx *sql.Tx) error {
		return mergeSetColumn(ctx, tx, "user_following", "handle", "target", "created_at", oldTarget, newTarget)
	})
}

// ListFollowingEdges returns every forward follow relation.
func (s *Store) ListFollowingEdges(ctx context.Context) ([]storage.FollowEdge, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, "SELECT target, handle FROM user_following ORDER BY handle, target")
	if err != nil {
		return nil, fmt.Errorf("list following edges: %w", err)
	}
	return scanEdges(rows)
}

func scanUser(scan func(dest ...any) error) (storage.UserRecord, error) {
	var (
		user      storage.UserRecord
		createdAt int64
		updatedAt int64
	)
	if err := scan(
		&user.Handle,
		&user.DisplayName,
		&user.NameID,
		&user.Avatar,
		&user.PasswordHash,
		&createdAt,
		&updatedAt,
	); err != nil {
		return storage.UserRecord{}, err
	}
	user.CreatedAt = fromMillis(createdAt)
	user.UpdatedAt = fromMillis(updatedAt)
	return user, nil
}

func scanEdges(rows *sql.Rows) ([]storage.FollowEdge, error) {
	defer rows.Close()
	var edges []storage.FollowEdge
	for rows.Next() {
		var edge storage.FollowEdge
		if err := rows.Scan(&edge.Handle, &edge.Follower); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		edges = append(edges, edge)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate edges: %w", err)
	}
	return edges, nil
}

func requireAffected(result sql.Result, op string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}
