package domain

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/louisbranch/indogram/internal/platform/errors"
	"github.com/louisbranch/indogram/internal/services/social/storage"
)

// FriendResponse reports the outcome of answering a friend invite.
type FriendResponse struct {
	Accepted bool
	// OtherUser is the inviter, set on accept.
	OtherUser string
}

// InviteFriend sends a friend invite from one handle to another.
func (s *Service) InviteFriend(ctx context.Context, from string, to string) (Notification, error) {
	to = trimmed(to)
	if to == "" {
		return Notification{}, apperrors.New(apperrors.CodeToRequired, "invitee is required")
	}
	if from == to {
		return Notification{}, apperrors.New(apperrors.CodeCannotInviteSelf, "cannot invite self")
	}
	relations, err := s.relations(ctx, from)
	if err != nil {
		return Notification{}, err
	}
	if relations.IsMutual(to) {
		return Notification{}, apperrors.New(apperrors.CodeAlreadyFriends, "already mutual followers")
	}
	_, err = s.stores.Notifications.FindUnreadNotification(ctx, to, string(TypeFriendInvite), from)
	switch {
	case err == nil:
		return Notification{}, apperrors.New(apperrors.CodeAlreadyInvited, "invite already pending")
	case !errors.Is(err, storage.ErrNotFound):
		return Notification{}, fmt.Errorf("find pending friend invite: %w", err)
	}
	return s.notify(ctx, to, FriendInvite{Inviter: from})
}

// RespondFriendInvite answers a friend invite addressed to recipient. Accept
// establishes mutual follow with four set-adds.
func (s *Service) RespondFriendInvite(ctx context.Context, recipient string, notificationID string, action string) (FriendResponse, error) {
	notificationID = trimmed(notificationID)
	action = trimmed(action)
	if notificationID == "" || (action != ActionAccept && action != ActionDecline) {
		return FriendResponse{}, apperrors.New(apperrors.CodeInvalidRequest, "id and a valid action are required")
	}
	record, err := s.stores.Notifications.GetNotification(ctx, notificationID)
	if err != nil {
		return FriendResponse{}, notFoundAs(err, apperrors.CodeNotFound, "invite not found")
	}
	if record.Recipient != recipient || NotificationType(record.Type) != TypeFriendInvite {
		return FriendResponse{}, apperrors.New(apperrors.CodeNotFound, "invite not found")
	}
	if _, err := s.stores.Notifications.MarkNotificationRead(ctx, notificationID); err != nil {
		return FriendResponse{}, notFoundAs(err, apperrors.CodeNotFound, "invite not found")
	}
	inviter := record.Counterpart
	if inviter == "" {
		return FriendResponse{}, apperrors.New(apperrors.CodeInvalidInvite, "invite has no inviter")
	}

	if action == ActionDecline {
		if _, err := s.notify(ctx, inviter, FriendInviteDeclined{Invitee: recipient}); err != nil {
			return FriendResponse{}, err
		}
		return FriendResponse{}, nil
	}

	if err := s.addFollow(ctx, recipient, inviter); err != nil {
		return FriendResponse{}, err
	}
	if err := s.addFollow(ctx, inviter, recipient); err != nil {
		return FriendResponse{}, err
	}
	if _, err := s.notify(ctx, inviter, FriendInviteAccepted{Invitee: recipient}); err != nil {
		return FriendResponse{}, err
	}
	return FriendResponse{Accepted: true, OtherUser: inviter}, nil
}
