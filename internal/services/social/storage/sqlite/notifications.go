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

const notificationColumns = "id, recipient, type, counterpart, group_id, group_name, created_at, unread"

// PutNotification inserts one notification.
func (s *Store) PutNotification(ctx context.Context, record storage.NotificationRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(record.ID) == "" {
		return fmt.Errorf("notification id is required")
	}
	if strings.TrimSpace(record.Recipient) == "" {
		return fmt.Errorf("recipient is required")
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO notifications (id, recipient, type, counterpart, group_id, group_name, created_at, unread)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`,
		record.ID,
		record.Recipient,
		record.Type,
		record.Counterpart,
		record.GroupID,
		record.GroupName,
		toMillis(record.CreatedAt),
		boolToInt(record.Unread),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("put notification: %w", err)
	}
	return nil
}

// GetNotification loads one notification by id.
func (s *Store) GetNotification(ctx context.Context, id string) (storage.NotificationRecord, error) {
	if err := s.ready(ctx); err != nil {
		return storage.NotificationRecord{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, "SELECT "+notificationColumns+" FROM notifications WHERE id = ?", id)
	record, err := scanNotification(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.NotificationRecord{}, storage.ErrNotFound
		}
		return storage.NotificationRecord{}, fmt.Errorf("get notification: %w", err)
	}
	return record, nil
}

// ListNotificationsByRecipient returns up to limit notifications, newest first.
func (s *Store) ListNotificationsByRecipient(ctx context.Context, recipient string, limit int) ([]storage.NotificationRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT `+notificationColumns+`
FROM notifications
WHERE recipient = ?
ORDER BY created_at DESC, rowid DESC
LIMIT ?
`, recipient, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var records []storage.NotificationRecord
	for rows.Next() {
		record, err := scanNotification(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return records, nil
}

// MarkNotificationRead clears the unread flag and returns the stored row.
func (s *Store) MarkNotificationRead(ctx context.Context, id string) (storage.NotificationRecord, error) {
	if err := s.ready(ctx); err != nil {
		return storage.NotificationRecord{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx,
		"UPDATE notifications SET unread = 0 WHERE id = ? RETURNING "+notificationColumns, id)
	record, err := scanNotification(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.NotificationRecord{}, storage.ErrNotFound
		}
		return storage.NotificationRecord{}, fmt.Errorf("mark notification read: %w", err)
	}
	return record, nil
}

// FindUnreadNotification returns the newest unread notification matching
// recipient, type and counterpart.
func (s *Store) FindUnreadNotification(ctx context.Context, recipient string, notificationType string, counterpart string) (storage.NotificationRecord, error) {
	if err := s.ready(ctx); err != nil {
		return storage.NotificationRecord{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+notificationColumns+`
FROM notifications
WHERE recipient = ? AND type = ? AND counterpart = ? AND unread = 1
ORDER BY created_at DESC, rowid DESC
LIMIT 1
`, recipient, notificationType, counterpart)
	record, err := scanNotification(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.NotificationRecord{}, storage.ErrNotFound
		}
		return storage.NotificationRecord{}, fmt.Errorf("find unread notification: %w", err)
	}
	return record, nil
}

// FindGroupNotification returns the newest notification of notificationType
// about groupID for recipient and counterpart created at or after since.
func (s *Store) FindGroupNotification(ctx context.Context, recipient string, notificationType string, groupID string, counterpart string, since time.Time) (storage.NotificationRecord, error) {
	if err := s.ready(ctx); err != nil {
		return storage.NotificationRecord{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+notificationColumns+`
FROM notifications
WHERE recipient = ? AND type = ? AND group_id = ? AND counterpart = ? AND created_at >= ?
ORDER BY created_at DESC, rowid DESC
LIMIT 1
`, recipient, notificationType, groupID, counterpart, toMillis(since))
	record, err := scanNotification(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.NotificationRecord{}, storage.ErrNotFound
		}
		return storage.NotificationRecord{}, fmt.Errorf("find group notification: %w", err)
	}
	return record, nil
}

// RenameNotificationHandle rewrites recipient and counterpart references.
func (s *Store) RenameNotificationHandle(ctx context.Context, oldHandle string, newHandle string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.inTx(ctx, "rename notification handle", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"UPDATE notifications SET recipient = ? WHERE recipient = ?", newHandle, oldHandle,
		); err != nil {
			return fmt.Errorf("rename notification recipient: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE notifications SET counterpart = ? WHERE counterpart = ?", newHandle, oldHandle,
		); err != nil {
			return fmt.Errorf("rename notification counterpart: %w", err)
		}
		return nil
	})
}

func scanNotification(scan func(dest ...any) error) (storage.NotificationRecord, error) {
	var (
		record    storage.NotificationRecord
		createdAt int64
		unread    int
	)
	if err := scan(
		&record.ID,
		&record.Recipient,
		&record.Type,
		&record.Counterpart,
		&record.GroupID,
		&record.GroupName,
		&createdAt,
		&unread,
	); err != nil {
		return storage.NotificationRecord{}, err
	}
	record.CreatedAt = fromMillis(createdAt)
	record.Unread = unread != 0
	return record, nil
}
