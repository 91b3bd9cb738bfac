package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/indogram/internal/services/social/storage"
)

const groupColumns = "id, name, locked, created_at, updated_at"

// PutGroup inserts one group with its membership sets and logs.
func (s *Store) PutGroup(ctx context.Context, group storage.GroupRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(group.ID) == "" {
		return fmt.Errorf("group id is required")
	}
	return s.inTx(ctx, "put group", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO social_groups (id, name, locked, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
`,
			group.ID,
			group.Name,
			boolToInt(group.Locked),
			toMillis(group.CreatedAt),
			toMillis(group.UpdatedAt),
		); err != nil {
			if isUniqueConstraintError(err) {
				return storage.ErrAlreadyExists
			}
			return fmt.Errorf("put group: %w", err)
		}
		for _, admin := range group.Admins {
			if _, err := tx.ExecContext(ctx,
				"INSERT OR IGNORE INTO group_admins (group_id, handle) VALUES (?, ?)", group.ID, admin,
			); err != nil {
				return fmt.Errorf("put group admin: %w", err)
			}
		}
		for _, member := range group.Members {
			if _, err := tx.ExecContext(ctx,
				"INSERT OR IGNORE INTO group_members (group_id, handle) VALUES (?, ?)", group.ID, member,
			); err != nil {
				return fmt.Errorf("put group member: %w", err)
			}
		}
		for i, message := range group.Messages {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO group_messages (group_id, seq, id, text, author, created_at)
VALUES (?, ?, ?, ?, ?, ?)
`, group.ID, i+1, message.ID, message.Text, message.Author, toMillis(message.CreatedAt)); err != nil {
				return fmt.Errorf("put group message: %w", err)
			}
		}
		for i, invite := range group.Invites {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO group_invites (group_id, seq, target, invited_by, status, created_at)
VALUES (?, ?, ?, ?, ?, ?)
`, group.ID, i+1, invite.Target, invite.InvitedBy, string(invite.Status), toMillis(invite.CreatedAt)); err != nil {
				return fmt.Errorf("put group invite: %w", err)
			}
		}
		return nil
	})
}

// GetGroup loads one group by id.
func (s *Store) GetGroup(ctx context.Context, id string) (storage.GroupRecord, error) {
	if err := s.ready(ctx); err != nil {
		return storage.GroupRecord{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, "SELECT "+groupColumns+" FROM social_groups WHERE id = ?", id)
	group, err := scanGroup(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.GroupRecord{}, storage.ErrNotFound
		}
		return storage.GroupRecord{}, fmt.Errorf("get group: %w", err)
	}
	if err := s.hydrateGroup(ctx, &group); err != nil {
		return storage.GroupRecord{}, err
	}
	return group, nil
}

// ListGroupsForHandle returns groups where handle is a member or admin,
// most recently updated first.
func (s *Store) ListGroupsForHandle(ctx context.Context, handle string) ([]storage.GroupRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT `+groupColumns+`
FROM social_groups g
WHERE EXISTS (SELECT 1 FROM group_members m WHERE m.group_id = g.id AND m.handle = ?)
   OR EXISTS (SELECT 1 FROM group_admins a WHERE a.group_id = g.id AND a.handle = ?)
ORDER BY updated_at DESC, rowid DESC
`, handle, handle)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	var groups []storage.GroupRecord
	for rows.Next() {
		group, err := scanGroup(rows.Scan)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate groups: %w", err)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("close groups: %w", err)
	}

	for i := range groups {
		if err := s.hydrateGroup(ctx, &groups[i]); err != nil {
			return nil, err
		}
	}
	return groups, nil
}

// AddGroupInvite appends a pending invite to a group's invite log.
func (s *Store) AddGroupInvite(ctx context.Context, groupID string, invite storage.InviteRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.inTx(ctx, "add group invite", func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
INSERT INTO group_invites (group_id, seq, target, invited_by, status, created_at)
SELECT g.id,
       (SELECT COALESCE(MAX(i.seq), 0) + 1 FROM group_invites i WHERE i.group_id = g.id),
       ?, ?, ?, ?
FROM social_groups g
WHERE g.id = ?
`, invite.Target, invite.InvitedBy, string(storage.InviteStatusPending), toMillis(invite.CreatedAt), groupID)
		if err != nil {
			if isUniqueConstraintError(err) {
				return storage.ErrAlreadyExists
			}
			return fmt.Errorf("add group invite: %w", err)
		}
		if err := requireAffected(result, "add group invite"); err != nil {
			return err
		}
		return touchGroup(ctx, tx, groupID, invite.CreatedAt)
	})
}

// ResolveGroupInvite moves the pending invite of target to status. The
// status predicate makes a second resolution miss. An accepted target joins
// the member set in the same transaction.
func (s *Store) ResolveGroupInvite(ctx context.Context, groupID string, target string, status storage.InviteStatus, at time.Time) (storage.InviteRecord, error) {
	if err := s.ready(ctx); err != nil {
		return storage.InviteRecord{}, err
	}
	if status == storage.InviteStatusPending {
		return storage.InviteRecord{}, fmt.Errorf("invite status must be final")
	}
	var invite storage.InviteRecord
	err := s.inTx(ctx, "resolve group invite", func(tx *sql.Tx) error {
		var createdAt int64
		row := tx.QueryRowContext(ctx, `
UPDATE group_invites
SET status = ?, resolved_at = ?
WHERE group_id = ? AND target = ? AND status = ?
RETURNING target, invited_by, status, created_at
`, string(status), toMillis(at), groupID, target, string(storage.InviteStatusPending))
		var resolved string
		if err := row.Scan(&invite.Target, &invite.InvitedBy, &resolved, &createdAt); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrNotFound
			}
			return fmt.Errorf("resolve group invite: %w", err)
		}
		invite.Status = storage.InviteStatus(resolved)
		invite.CreatedAt = fromMillis(createdAt)
		if status == storage.InviteStatusAccepted {
			if _, err := tx.ExecContext(ctx,
				"INSERT OR IGNORE INTO group_members (group_id, handle) VALUES (?, ?)", groupID, target,
			); err != nil {
				return fmt.Errorf("add group member: %w", err)
			}
		}
		return touchGroup(ctx, tx, groupID, at)
	})
	if err != nil {
		return storage.InviteRecord{}, err
	}
	return invite, nil
}

// AppendGroupMessage appends one message to the end of a group's log.
func (s *Store) AppendGroupMessage(ctx context.Context, groupID string, message storage.MessageRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.inTx(ctx, "append group message", func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
INSERT INTO group_messages (group_id, seq, id, text, author, created_at)
SELECT g.id,
       (SELECT COALESCE(MAX(m.seq), 0) + 1 FROM group_messages m WHERE m.group_id = g.id),
       ?, ?, ?, ?
FROM social_groups g
WHERE g.id = ?
`, message.ID, message.Text, message.Author, toMillis(message.CreatedAt), groupID)
		if err != nil {
			return fmt.Errorf("append group message: %w", err)
		}
		if err := requireAffected(result, "append group message"); err != nil {
			return err
		}
		return touchGroup(ctx, tx, groupID, message.CreatedAt)
	})
}

// SetGroupLocked sets the lock flag of a group.
func (s *Store) SetGroupLocked(ctx context.Context, groupID string, locked bool, at time.Time) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx,
		"UPDATE social_groups SET locked = ?, updated_at = ? WHERE id = ?",
		boolToInt(locked), toMillis(at), groupID,
	)
	if err != nil {
		return fmt.Errorf("set group locked: %w", err)
	}
	return requireAffected(result, "set group locked")
}

// RenameGroupHandle rewrites admin, member, message author and invite
// references to oldHandle. A pending invite that would collide with one
// already held by newHandle is dropped.
func (s *Store) RenameGroupHandle(ctx context.Context, oldHandle string, newHandle string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.inTx(ctx, "rename group handle", func(tx *sql.Tx) error {
		if err := mergeSetColumn(ctx, tx, "group_admins", "group_id", "handle", "", oldHandle, newHandle); err != nil {
			return err
		}
		if err := mergeSetColumn(ctx, tx, "group_members", "group_id", "handle", "", oldHandle, newHandle); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE group_messages SET author = ? WHERE author = ?", newHandle, oldHandle,
		); err != nil {
			return fmt.Errorf("rename group message author: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
DELETE FROM group_invites
WHERE target = ? AND status = ?
  AND EXISTS (
    SELECT 1 FROM group_invites other
    WHERE other.group_id = group_invites.group_id AND other.target = ? AND other.status = ?
  )
`, oldHandle, string(storage.InviteStatusPending), newHandle, string(storage.InviteStatusPending)); err != nil {
			return fmt.Errorf("drop colliding group invite: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE group_invites SET target = ? WHERE target = ?", newHandle, oldHandle,
		); err != nil {
			return fmt.Errorf("rename group invite target: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE group_invites SET invited_by = ? WHERE invited_by = ?", newHandle, oldHandle,
		); err != nil {
			return fmt.Errorf("rename group inviter: %w", err)
		}
		return nil
	})
}

func touchGroup(ctx context.Context, db execer, groupID string, at time.Time) error {
	result, err := db.ExecContext(ctx, "UPDATE social_groups SET updated_at = ? WHERE id = ?", toMillis(at), groupID)
	if err != nil {
		return fmt.Errorf("touch group: %w", err)
	}
	return requireAffected(result, "touch group")
}

// hydrateGroup loads membership sets and both logs in stored order.
func (s *Store) hydrateGroup(ctx context.Context, group *storage.GroupRecord) error {
	rows, err := s.sqlDB.QueryContext(ctx, "SELECT handle FROM group_admins WHERE group_id = ? ORDER BY rowid", group.ID)
	if err != nil {
		return fmt.Errorf("load group admins: %w", err)
	}
	if group.Admins, err = scanStrings(rows); err != nil {
		return fmt.Errorf("scan group admins: %w", err)
	}

	rows, err = s.sqlDB.QueryContext(ctx, "SELECT handle FROM group_members WHERE group_id = ? ORDER BY rowid", group.ID)
	if err != nil {
		return fmt.Errorf("load group members: %w", err)
	}
	if group.Members, err = scanStrings(rows); err != nil {
		return fmt.Errorf("scan group members: %w", err)
	}

	if group.Messages, err = s.loadGroupMessages(ctx, group.ID); err != nil {
		return err
	}
	if group.Invites, err = s.loadGroupInvites(ctx, group.ID); err != nil {
		return err
	}
	return nil
}

func (s *Store) loadGroupMessages(ctx context.Context, groupID string) ([]storage.MessageRecord, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT id, text, author, created_at FROM group_messages WHERE group_id = ? ORDER BY seq", groupID)
	if err != nil {
		return nil, fmt.Errorf("load group messages: %w", err)
	}
	defer rows.Close()
	var messages []storage.MessageRecord
	for rows.Next() {
		var (
			message   storage.MessageRecord
			createdAt int64
		)
		if err := rows.Scan(&message.ID, &message.Text, &message.Author, &createdAt); err != nil {
			return nil, fmt.Errorf("scan group message: %w", err)
		}
		message.CreatedAt = fromMillis(createdAt)
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate group messages: %w", err)
	}
	return messages, nil
}

func (s *Store) loadGroupInvites(ctx context.Context, groupID string) ([]storage.InviteRecord, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT target, invited_by, status, created_at FROM group_invites WHERE group_id = ? ORDER BY seq", groupID)
	if err != nil {
		return nil, fmt.Errorf("load group invites: %w", err)
	}
	defer rows.Close()
	var invites []storage.InviteRecord
	for rows.Next() {
		var (
			invite    storage.InviteRecord
			status    string
			createdAt int64
		)
		if err := rows.Scan(&invite.Target, &invite.InvitedBy, &status, &createdAt); err != nil {
			return nil, fmt.Errorf("scan group invite: %w", err)
		}
		invite.Status = storage.InviteStatus(status)
		invite.CreatedAt = fromMillis(createdAt)
		invites = append(invites, invite)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate group invites: %w", err)
	}
	return invites, nil
}

func scanGroup(scan func(dest ...any) error) (storage.GroupRecord, error) {
	var (
		group     storage.GroupRecord
		locked    int
		createdAt int64
		updatedAt int64
	)
	if err := scan(&group.ID, &group.Name, &locked, &createdAt, &updatedAt); err != nil {
		return storage.GroupRecord{}, err
	}
	group.Locked = locked != 0
	group.CreatedAt = fromMillis(createdAt)
	group.UpdatedAt = fromMillis(updatedAt)
	return group, nil
}
