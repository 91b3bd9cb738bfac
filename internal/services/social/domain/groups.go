package domain

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/louisbranch/indogram/internal/platform/errors"
	"github.com/louisbranch/indogram/internal/services/social/storage"
)

// Invite responses.
const (
	ActionAccept  = "accept"
	ActionDecline = "decline"
)

// CreateGroup creates a group with creator as its only admin and member.
func (s *Service) CreateGroup(ctx context.Context, creator string, name string, locked bool) (Group, error) {
	creator, err := normalizeHandle(creator, apperrors.CodeUsernameRequired)
	if err != nil {
		return Group{}, err
	}
	name = trimmed(name)
	if name == "" {
		return Group{}, apperrors.New(apperrors.CodeNameRequired, "group name is required")
	}
	if _, err := s.ensureUser(ctx, creator); err != nil {
		return Group{}, err
	}
	groupID, err := s.newID()
	if err != nil {
		return Group{}, fmt.Errorf("new group id: %w", err)
	}
	now := s.nowUTC()
	record := storage.GroupRecord{
		ID:        groupID,
		Name:      name,
		Locked:    locked,
		Admins:    []string{creator},
		Members:   []string{creator},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.stores.Groups.PutGroup(ctx, record); err != nil {
		return Group{}, fmt.Errorf("put group: %w", err)
	}
	return groupFromRecord(record, creator), nil
}

// GetGroup returns a group to one of its members.
func (s *Service) GetGroup(ctx context.Context, viewer string, groupID string) (Group, error) {
	group, err := s.loadGroup(ctx, groupID, viewer)
	if err != nil {
		return Group{}, err
	}
	if !group.IsMember(viewer) {
		return Group{}, apperrors.New(apperrors.CodeNotAllowed, "group members only")
	}
	return group, nil
}

// ListGroups returns the groups viewer belongs to, most recently active first.
func (s *Service) ListGroups(ctx context.Context, viewer string) ([]Group, error) {
	records, err := s.stores.Groups.ListGroupsForHandle(ctx, viewer)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	groups := make([]Group, 0, len(records))
	for _, record := range records {
		groups = append(groups, groupFromRecord(record, viewer))
	}
	return groups, nil
}

// InviteToGroup appends a pending invite for target and notifies them.
// Re-inviting a target whose pending invite was never announced writes the
// missing notification instead of failing.
func (s *Service) InviteToGroup(ctx context.Context, actor string, groupID string, target string) (Group, error) {
	actor, err := normalizeHandle(actor, apperrors.CodeUsernameRequired)
	if err != nil {
		return Group{}, err
	}
	target, err = normalizeHandle(target, apperrors.CodeUsernameRequired)
	if err != nil {
		return Group{}, err
	}
	group, err := s.loadGroup(ctx, groupID, actor)
	if err != nil {
		return Group{}, err
	}
	if !group.IsAdmin(actor) {
		return Group{}, apperrors.New(apperrors.CodeAdminOnly, "only admins may invite")
	}
	if group.IsMember(target) {
		return Group{}, apperrors.New(apperrors.CodeAlreadyMember, "already a member")
	}
	if _, err := s.ensureUser(ctx, target); err != nil {
		return Group{}, err
	}
	err = s.stores.Groups.AddGroupInvite(ctx, group.ID, storage.InviteRecord{
		Target:    target,
		InvitedBy: actor,
		Status:    storage.InviteStatusPending,
		CreatedAt: s.nowUTC(),
	})
	switch {
	case errors.Is(err, storage.ErrAlreadyExists):
		return s.resumeGroupInvite(ctx, group.ID, actor, target)
	case err != nil:
		return Group{}, notFoundAs(err, apperrors.CodeNotFound, "group not found")
	}
	if _, err := s.notify(ctx, target, GroupInvite{GroupID: group.ID, GroupName: group.Name, Inviter: actor}); err != nil {
		return Group{}, err
	}
	return s.loadGroup(ctx, group.ID, actor)
}

// resumeGroupInvite announces a pending invite that has no GroupInvite
// notification yet. An announced invite is a duplicate.
func (s *Service) resumeGroupInvite(ctx context.Context, groupID string, actor string, target string) (Group, error) {
	group, err := s.loadGroup(ctx, groupID, actor)
	if err != nil {
		return Group{}, err
	}
	invite, ok := latestInvite(group, target)
	if !ok || invite.Status != storage.InviteStatusPending {
		return Group{}, apperrors.New(apperrors.CodeAlreadyInvited, "invite already pending")
	}
	_, err = s.stores.Notifications.FindGroupNotification(ctx, target, string(TypeGroupInvite), group.ID, invite.InvitedBy, invite.CreatedAt)
	switch {
	case err == nil:
		return Group{}, apperrors.New(apperrors.CodeAlreadyInvited, "invite already pending")
	case !errors.Is(err, storage.ErrNotFound):
		return Group{}, fmt.Errorf("find group invite notification: %w", err)
	}
	if _, err := s.notify(ctx, target, GroupInvite{GroupID: group.ID, GroupName: group.Name, Inviter: invite.InvitedBy}); err != nil {
		return Group{}, err
	}
	return s.loadGroup(ctx, group.ID, actor)
}

// RespondGroupInvite accepts or declines actor's pending invite. The pending
// status is re-checked in the resolving statement, so each invite is answered
// once; accepting joins the group in that same statement's transaction.
func (s *Service) RespondGroupInvite(ctx context.Context, actor string, groupID string, action string) (Group, error) {
	actor, err := normalizeHandle(actor, apperrors.CodeUsernameRequired)
	if err != nil {
		return Group{}, err
	}
	group, err := s.loadGroup(ctx, groupID, actor)
	if err != nil {
		return Group{}, err
	}
	invite, ok := latestInvite(group, actor)
	if !ok {
		return Group{}, apperrors.New(apperrors.CodeInviteNotFound, "no pending invite")
	}
	if invite.Status != storage.InviteStatusPending {
		return s.resumeInviteResponse(ctx, group, actor, invite, action)
	}
	status, err := responseStatus(action)
	if err != nil {
		return Group{}, err
	}

	resolved, err := s.stores.Groups.ResolveGroupInvite(ctx, group.ID, actor, status, s.nowUTC())
	if err != nil {
		return Group{}, notFoundAs(err, apperrors.CodeInviteNotFound, "no pending invite")
	}
	if _, err := s.notify(ctx, resolved.InvitedBy, responsePayload(group, actor, status)); err != nil {
		return Group{}, err
	}
	return s.loadGroup(ctx, group.ID, actor)
}

// resumeInviteResponse sends the inviter the response notification of an
// invite answered with the same action whose notification was never
// written. Any other answered invite counts as not pending.
func (s *Service) resumeInviteResponse(ctx context.Context, group Group, actor string, invite Invite, action string) (Group, error) {
	status, err := responseStatus(action)
	if err != nil || status != invite.Status {
		return Group{}, apperrors.New(apperrors.CodeInviteNotFound, "no pending invite")
	}
	payload := responsePayload(group, actor, status)
	_, err = s.stores.Notifications.FindGroupNotification(ctx, invite.InvitedBy, string(payload.Type()), group.ID, actor, invite.CreatedAt)
	switch {
	case err == nil:
		return Group{}, apperrors.New(apperrors.CodeInviteNotFound, "no pending invite")
	case !errors.Is(err, storage.ErrNotFound):
		return Group{}, fmt.Errorf("find invite response notification: %w", err)
	}
	if _, err := s.notify(ctx, invite.InvitedBy, payload); err != nil {
		return Group{}, err
	}
	return s.loadGroup(ctx, group.ID, actor)
}

func responseStatus(action string) (storage.InviteStatus, error) {
	switch action {
	case ActionAccept:
		return storage.InviteStatusAccepted, nil
	case ActionDecline:
		return storage.InviteStatusDeclined, nil
	default:
		return "", apperrors.New(apperrors.CodeInvalidAction, "action must be accept or decline")
	}
}

func responsePayload(group Group, invitee string, status storage.InviteStatus) Payload {
	if status == storage.InviteStatusAccepted {
		return GroupInviteAccepted{GroupID: group.ID, GroupName: group.Name, Invitee: invitee}
	}
	return GroupInviteDeclined{GroupID: group.ID, GroupName: group.Name, Invitee: invitee}
}

// PostGroupMessage appends a message. Locked groups accept admins only.
func (s *Service) PostGroupMessage(ctx context.Context, actor string, groupID string, text string) (Message, error) {
	text = trimmed(text)
	if text == "" {
		return Message{}, apperrors.New(apperrors.CodeTextRequired, "message text is required")
	}
	group, err := s.loadGroup(ctx, groupID, actor)
	if err != nil {
		return Message{}, err
	}
	if !group.IsMember(actor) {
		return Message{}, apperrors.New(apperrors.CodeNotAllowed, "group members only")
	}
	if group.Locked && !group.IsAdmin(actor) {
		return Message{}, apperrors.New(apperrors.CodeGroupLocked, "group is locked")
	}
	messageID, err := s.newID()
	if err != nil {
		return Message{}, fmt.Errorf("new message id: %w", err)
	}
	message := storage.MessageRecord{
		ID:        messageID,
		Text:      text,
		Author:    actor,
		CreatedAt: s.nowUTC(),
	}
	if err := s.stores.Groups.AppendGroupMessage(ctx, groupID, message); err != nil {
		return Message{}, notFoundAs(err, apperrors.CodeNotFound, "group not found")
	}
	return Message(message), nil
}

// SetGroupLocked sets the lock flag; admins only.
func (s *Service) SetGroupLocked(ctx context.Context, actor string, groupID string, locked bool) (Group, error) {
	group, err := s.loadGroup(ctx, groupID, actor)
	if err != nil {
		return Group{}, err
	}
	if !group.IsAdmin(actor) {
		return Group{}, apperrors.New(apperrors.CodeAdminOnly, "only admins may lock")
	}
	if err := s.stores.Groups.SetGroupLocked(ctx, groupID, locked, s.nowUTC()); err != nil {
		return Group{}, notFoundAs(err, apperrors.CodeNotFound, "group not found")
	}
	return s.loadGroup(ctx, groupID, actor)
}

func (s *Service) loadGroup(ctx context.Context, groupID string, viewer string) (Group, error) {
	record, err := s.stores.Groups.GetGroup(ctx, groupID)
	if err != nil {
		return Group{}, notFoundAs(err, apperrors.CodeNotFound, "group not found")
	}
	return groupFromRecord(record, viewer), nil
}

// latestInvite returns the most recent invite for target.
func latestInvite(group Group, target string) (Invite, bool) {
	for i := len(group.Invites) - 1; i >= 0; i-- {
		if group.Invites[i].Target == target {
			return group.Invites[i], true
		}
	}
	return Invite{}, false
}
