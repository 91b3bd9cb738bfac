package domain

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/louisbranch/indogram/internal/platform/errors"
	"github.com/louisbranch/indogram/internal/services/social/storage"
)

// NotificationType names one notification variant.
type NotificationType string

const (
	TypeGroupInvite          NotificationType = "group_invite"
	TypeGroupInviteAccepted  NotificationType = "group_invite_accepted"
	TypeGroupInviteDeclined  NotificationType = "group_invite_declined"
	TypeFriendInvite         NotificationType = "friend_invite"
	TypeFriendInviteAccepted NotificationType = "friend_invite_accepted"
	TypeFriendInviteDeclined NotificationType = "friend_invite_declined"
)

// Payload is the closed set of notification payloads.
type Payload interface {
	Type() NotificationType
	payload()
}

// GroupInvite tells the invitee about a pending group invite.
type GroupInvite struct {
	GroupID   string
	GroupName string
	Inviter   string
}

// GroupInviteAccepted tells the inviter that the invitee joined.
type GroupInviteAccepted struct {
	GroupID   string
	GroupName string
	Invitee   string
}

// GroupInviteDeclined tells the inviter that the invitee declined.
type GroupInviteDeclined struct {
	GroupID   string
	GroupName string
	Invitee   string
}

// FriendInvite asks the recipient to become mutual followers with Inviter.
type FriendInvite struct {
	Inviter string
}

// FriendInviteAccepted tells the inviter the friendship was accepted.
type FriendInviteAccepted struct {
	Invitee string
}

// FriendInviteDeclined tells the inviter the friendship was declined.
type FriendInviteDeclined struct {
	Invitee string
}

func (GroupInvite) Type() NotificationType          { return TypeGroupInvite }
func (GroupInviteAccepted) Type() NotificationType  { return TypeGroupInviteAccepted }
func (GroupInviteDeclined) Type() NotificationType  { return TypeGroupInviteDeclined }
func (FriendInvite) Type() NotificationType         { return TypeFriendInvite }
func (FriendInviteAccepted) Type() NotificationType { return TypeFriendInviteAccepted }
func (FriendInviteDeclined) Type() NotificationType { return TypeFriendInviteDeclined }

func (GroupInvite) payload()          {}
func (GroupInviteAccepted) payload()  {}
func (GroupInviteDeclined) payload()  {}
func (FriendInvite) payload()         {}
func (FriendInviteAccepted) payload() {}
func (FriendInviteDeclined) payload() {}

// Notification is one recipient event.
type Notification struct {
	ID        string
	Recipient string
	Payload   Payload
	CreatedAt time.Time
	Unread    bool
}

// Type returns the variant of the notification payload.
func (n Notification) Type() NotificationType {
	if n.Payload == nil {
		return ""
	}
	return n.Payload.Type()
}

// encodePayload flattens a payload into storage columns.
func encodePayload(payload Payload) (counterpart string, groupID string, groupName string) {
	switch p := payload.(type) {
	case GroupInvite:
		return p.Inviter, p.GroupID, p.GroupName
	case GroupInviteAccepted:
		return p.Invitee, p.GroupID, p.GroupName
	case GroupInviteDeclined:
		return p.Invitee, p.GroupID, p.GroupName
	case FriendInvite:
		return p.Inviter, "", ""
	case FriendInviteAccepted:
		return p.Invitee, "", ""
	case FriendInviteDeclined:
		return p.Invitee, "", ""
	default:
		return "", "", ""
	}
}

// decodePayload rebuilds the typed payload of a stored notification.
func decodePayload(record storage.NotificationRecord) (Payload, error) {
	switch NotificationType(record.Type) {
	case TypeGroupInvite:
		return GroupInvite{GroupID: record.GroupID, GroupName: record.GroupName, Inviter: record.Counterpart}, nil
	case TypeGroupInviteAccepted:
		return GroupInviteAccepted{GroupID: record.GroupID, GroupName: record.GroupName, Invitee: record.Counterpart}, nil
	case TypeGroupInviteDeclined:
		return GroupInviteDeclined{GroupID: record.GroupID, GroupName: record.GroupName, Invitee: record.Counterpart}, nil
	case TypeFriendInvite:
		return FriendInvite{Inviter: record.Counterpart}, nil
	case TypeFriendInviteAccepted:
		return FriendInviteAccepted{Invitee: record.Counterpart}, nil
	case TypeFriendInviteDeclined:
		return FriendInviteDeclined{Invitee: record.Counterpart}, nil
	default:
		return nil, fmt.Errorf("unknown notification type %q", record.Type)
	}
}

func notificationFromRecord(record storage.NotificationRecord) (Notification, error) {
	payload, err := decodePayload(record)
	if err != nil {
		return Notification{}, err
	}
	return Notification{
		ID:        record.ID,
		Recipient: record.Recipient,
		Payload:   payload,
		CreatedAt: record.CreatedAt,
		Unread:    record.Unread,
	}, nil
}

// notify persists one unread notification for recipient.
func (s *Service) notify(ctx context.Context, recipient string, payload Payload) (Notification, error) {
	notificationID, err := s.newID()
	if err != nil {
		return Notification{}, fmt.Errorf("new notification id: %w", err)
	}
	counterpart, groupID, groupName := encodePayload(payload)
	record := storage.NotificationRecord{
		ID:          notificationID,
		Recipient:   recipient,
		Type:        string(payload.Type()),
		Counterpart: counterpart,
		GroupID:     groupID,
		GroupName:   groupName,
		CreatedAt:   s.nowUTC(),
		Unread:      true,
	}
	if err := s.stores.Notifications.PutNotification(ctx, record); err != nil {
		return Notification{}, fmt.Errorf("put notification: %w", err)
	}
	return Notification{
		ID:        record.ID,
		Recipient: recipient,
		Payload:   payload,
		CreatedAt: record.CreatedAt,
		Unread:    true,
	}, nil
}

// ListNotifications returns the newest notifications of recipient.
func (s *Service) ListNotifications(ctx context.Context, recipient string) ([]Notification, error) {
	records, err := s.stores.Notifications.ListNotificationsByRecipient(ctx, recipient, NotificationLimit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	notifications := make([]Notification, 0, len(records))
	for _, record := range records {
		notification, err := notificationFromRecord(record)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, notification)
	}
	return notifications, nil
}

// MarkRead clears the unread flag. Repeated calls succeed.
func (s *Service) MarkRead(ctx context.Context, notificationID string) (Notification, error) {
	record, err := s.stores.Notifications.MarkNotificationRead(ctx, trimmed(notificationID))
	if err != nil {
		return Notification{}, notFoundAs(err, apperrors.CodeNotFound, "notification not found")
	}
	return notificationFromRecord(record)
}
