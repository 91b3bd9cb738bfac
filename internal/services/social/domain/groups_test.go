package domain

import (
	"context"
	"testing"

	apperrors "github.com/louisbranch/indogram/internal/platform/errors"
	"github.com/louisbranch/indogram/internal/services/social/storage"
)

func TestGroupInviteDeclineResolvesOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	group, err := env.svc.CreateGroup(ctx, "alice", "Book Club", false)
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	if !group.IsAdmin("alice") || !group.IsMember("alice") {
		t.Fatalf("creator membership = %+v", group)
	}

	group, err = env.svc.InviteToGroup(ctx, "alice", group.ID, "bob")
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	if len(group.Invites) != 1 || group.Invites[0].Status != storage.InviteStatusPending {
		t.Fatalf("invites after invite = %+v", group.Invites)
	}
	_, err = env.svc.InviteToGroup(ctx, "alice", group.ID, "bob")
	requireCode(t, err, apperrors.CodeAlreadyInvited)

	notifications, err := env.svc.ListNotifications(ctx, "bob")
	if err != nil {
		t.Fatalf("bob notifications: %v", err)
	}
	if len(notifications) != 1 {
		t.Fatalf("bob notifications = %+v", notifications)
	}
	invite, ok := notifications[0].Payload.(GroupInvite)
	if !ok || invite.GroupID != group.ID || invite.GroupName != "Book Club" || invite.Inviter != "alice" {
		t.Fatalf("invite payload = %#v", notifications[0].Payload)
	}

	_, err = env.svc.RespondGroupInvite(ctx, "bob", group.ID, "maybe")
	requireCode(t, err, apperrors.CodeInvalidAction)

	declined, err := env.svc.RespondGroupInvite(ctx, "bob", group.ID, ActionDecline)
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	if declined.IsMember("bob") {
		t.Fatal("declined invitee joined the group")
	}
	if len(declined.Invites) != 1 || declined.Invites[0].Status != storage.InviteStatusDeclined {
		t.Fatalf("invites after decline = %+v", declined.Invites)
	}

	_, err = env.svc.RespondGroupInvite(ctx, "bob", group.ID, ActionDecline)
	requireCode(t, err, apperrors.CodeInviteNotFound)

	aliceNotifications, err := env.svc.ListNotifications(ctx, "alice")
	if err != nil {
		t.Fatalf("alice notifications: %v", err)
	}
	if len(aliceNotifications) != 1 || aliceNotifications[0].Type() != TypeGroupInviteDeclined {
		t.Fatalf("alice notifications = %+v", aliceNotifications)
	}

	// The announcement of the declined invite does not cover a new one.
	if _, err := env.svc.InviteToGroup(ctx, "alice", group.ID, "bob"); err != nil {
		t.Fatalf("re-invite after decline: %v", err)
	}
	_, err = env.svc.InviteToGroup(ctx, "alice", group.ID, "bob")
	requireCode(t, err, apperrors.CodeAlreadyInvited)
	notifications, err = env.svc.ListNotifications(ctx, "bob")
	if err != nil {
		t.Fatalf("bob notifications after re-invite: %v", err)
	}
	if len(notifications) != 2 {
		t.Fatalf("bob notifications after re-invite = %+v, want 2", notifications)
	}
}

func TestGroupInviteAcceptJoins(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	group, err := env.svc.CreateGroup(ctx, "alice", "Climbers", false)
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	if _, err := env.svc.InviteToGroup(ctx, "alice", group.ID, "bob"); err != nil {
		t.Fatalf("invite bob: %v", err)
	}
	if _, err := env.svc.InviteToGroup(ctx, "alice", group.ID, "carol"); err != nil {
		t.Fatalf("invite carol: %v", err)
	}

	joined, err := env.svc.RespondGroupInvite(ctx, "bob", group.ID, ActionAccept)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if !joined.IsMember("bob") || joined.IsAdmin("bob") {
		t.Fatalf("membership after accept = %+v", joined)
	}
	if len(joined.Invites) != 1 || joined.Invites[0].Target != "bob" {
		t.Fatalf("member sees invites = %+v, want only their own", joined.Invites)
	}

	asAdmin, err := env.svc.GetGroup(ctx, "alice", group.ID)
	if err != nil {
		t.Fatalf("get as admin: %v", err)
	}
	if len(asAdmin.Invites) != 2 {
		t.Fatalf("admin sees invites = %+v, want both", asAdmin.Invites)
	}

	_, err = env.svc.InviteToGroup(ctx, "alice", group.ID, "bob")
	requireCode(t, err, apperrors.CodeAlreadyMember)
	_, err = env.svc.InviteToGroup(ctx, "bob", group.ID, "dave")
	requireCode(t, err, apperrors.CodeAdminOnly)
	_, err = env.svc.InviteToGroup(ctx, "alice", group.ID, " ")
	requireCode(t, err, apperrors.CodeUsernameRequired)
	_, err = env.svc.InviteToGroup(ctx, "alice", "missing", "dave")
	requireCode(t, err, apperrors.CodeNotFound)
	_, err = env.svc.RespondGroupInvite(ctx, "dave", group.ID, ActionAccept)
	requireCode(t, err, apperrors.CodeInviteNotFound)

	groups, err := env.svc.ListGroups(ctx, "bob")
	if err != nil {
		t.Fatalf("list groups: %v", err)
	}
	if len(groups) != 1 || groups[0].ID != group.ID {
		t.Fatalf("bob groups = %+v", groups)
	}
	groups, err = env.svc.ListGroups(ctx, "carol")
	if err != nil {
		t.Fatalf("list carol groups: %v", err)
	}
	if len(groups) != 0 {
		t.Fatalf("invitee listed before accepting: %+v", groups)
	}
}

func TestLockedGroupAcceptsAdminMessagesOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	group, err := env.svc.CreateGroup(ctx, "alice", "Announcements", true)
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	if _, err := env.svc.InviteToGroup(ctx, "alice", group.ID, "bob"); err != nil {
		t.Fatalf("invite: %v", err)
	}
	if _, err := env.svc.RespondGroupInvite(ctx, "bob", group.ID, ActionAccept); err != nil {
		t.Fatalf("accept: %v", err)
	}

	_, err = env.svc.PostGroupMessage(ctx, "bob", group.ID, "hello")
	requireCode(t, err, apperrors.CodeGroupLocked)
	_, err = env.svc.PostGroupMessage(ctx, "carol", group.ID, "hello")
	requireCode(t, err, apperrors.CodeNotAllowed)
	_, err = env.svc.PostGroupMessage(ctx, "alice", group.ID, "")
	requireCode(t, err, apperrors.CodeTextRequired)

	message, err := env.svc.PostGroupMessage(ctx, "alice", group.ID, "welcome")
	if err != nil {
		t.Fatalf("admin message: %v", err)
	}
	if message.Author != "alice" || message.Text != "welcome" {
		t.Fatalf("message = %+v", message)
	}

	_, err = env.svc.SetGroupLocked(ctx, "bob", group.ID, false)
	requireCode(t, err, apperrors.CodeAdminOnly)
	unlocked, err := env.svc.SetGroupLocked(ctx, "alice", group.ID, false)
	if err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if unlocked.Locked {
		t.Fatal("group still locked")
	}
	if _, err := env.svc.PostGroupMessage(ctx, "bob", group.ID, "finally"); err != nil {
		t.Fatalf("member message after unlock: %v", err)
	}

	loaded, err := env.svc.GetGroup(ctx, "bob", group.ID)
	if err != nil {
		t.Fatalf("get group: %v", err)
	}
	if len(loaded.Messages) != 2 || loaded.Messages[0].Text != "welcome" || loaded.Messages[1].Text != "finally" {
		t.Fatalf("messages = %+v", loaded.Messages)
	}
	_, err = env.svc.GetGroup(ctx, "carol", group.ID)
	requireCode(t, err, apperrors.CodeNotAllowed)
	_, err = env.svc.GetGroup(ctx, "alice", "missing")
	requireCode(t, err, apperrors.CodeNotFound)
}

func TestCreateGroupRequiresName(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.CreateGroup(context.Background(), "alice", "  ", false)
	requireCode(t, err, apperrors.CodeNameRequired)
}

func TestGroupHandlesAreNormalized(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	group, err := env.svc.CreateGroup(ctx, " alice ", "Runners", false)
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	if !group.IsAdmin("alice") || !group.IsMember("alice") {
		t.Fatalf("creator membership = %+v", group)
	}
	if _, err := env.store.GetUser(ctx, "alice"); err != nil {
		t.Fatalf("creator identity not created: %v", err)
	}
	_, err = env.svc.CreateGroup(ctx, "al/ice", "Runners", false)
	requireCode(t, err, apperrors.CodeInvalidUsername)

	if _, err := env.svc.InviteToGroup(ctx, " alice", group.ID, "bob "); err != nil {
		t.Fatalf("invite with padded handles: %v", err)
	}
	if _, err := env.store.GetUser(ctx, "bob"); err != nil {
		t.Fatalf("invitee identity not created: %v", err)
	}
	_, err = env.svc.InviteToGroup(ctx, "alice", group.ID, "bob")
	requireCode(t, err, apperrors.CodeAlreadyInvited)
	_, err = env.svc.InviteToGroup(ctx, "alice", group.ID, "b/ob")
	requireCode(t, err, apperrors.CodeInvalidUsername)

	joined, err := env.svc.RespondGroupInvite(ctx, " bob", group.ID, ActionAccept)
	if err != nil {
		t.Fatalf("accept with padded handle: %v", err)
	}
	if !joined.IsMember("bob") {
		t.Fatalf("members after accept = %v", joined.Members)
	}
}

func TestGroupInviteRetryAnnouncesUnnotifiedInvite(t *testing.T) {
	svc, notes := newFailingNotificationsEnv(t)
	ctx := context.Background()

	group, err := svc.CreateGroup(ctx, "alice", "Book Club", false)
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	notes.failNext()
	if _, err := svc.InviteToGroup(ctx, "alice", group.ID, "bob"); err == nil {
		t.Fatal("expected injected failure")
	}
	stored, err := svc.GetGroup(ctx, "alice", group.ID)
	if err != nil {
		t.Fatalf("get group: %v", err)
	}
	if len(stored.Invites) != 1 || stored.Invites[0].Status != storage.InviteStatusPending {
		t.Fatalf("invites after failed notify = %+v", stored.Invites)
	}

	retried, err := svc.InviteToGroup(ctx, "alice", group.ID, "bob")
	if err != nil {
		t.Fatalf("retry invite: %v", err)
	}
	if len(retried.Invites) != 1 {
		t.Fatalf("invites after retry = %+v, want one", retried.Invites)
	}
	notifications, err := svc.ListNotifications(ctx, "bob")
	if err != nil {
		t.Fatalf("bob notifications: %v", err)
	}
	if len(notifications) != 1 {
		t.Fatalf("bob notifications = %+v, want one", notifications)
	}
	invite, ok := notifications[0].Payload.(GroupInvite)
	if !ok || invite.GroupID != group.ID || invite.Inviter != "alice" {
		t.Fatalf("invite payload = %#v", notifications[0].Payload)
	}

	_, err = svc.InviteToGroup(ctx, "alice", group.ID, "bob")
	requireCode(t, err, apperrors.CodeAlreadyInvited)
	notifications, err = svc.ListNotifications(ctx, "bob")
	if err != nil {
		t.Fatalf("bob notifications after duplicate: %v", err)
	}
	if len(notifications) != 1 {
		t.Fatalf("bob notifications after duplicate = %+v, want one", notifications)
	}
}

func TestGroupInviteAcceptRetryCompletesAfterNotifyFailure(t *testing.T) {
	svc, notes := newFailingNotificationsEnv(t)
	ctx := context.Background()

	group, err := svc.CreateGroup(ctx, "alice", "Climbers", false)
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	if _, err := svc.InviteToGroup(ctx, "alice", group.ID, "bob"); err != nil {
		t.Fatalf("invite: %v", err)
	}
	notes.failNext()
	if _, err := svc.RespondGroupInvite(ctx, "bob", group.ID, ActionAccept); err == nil {
		t.Fatal("expected injected failure")
	}
	stored, err := svc.GetGroup(ctx, "alice", group.ID)
	if err != nil {
		t.Fatalf("get group: %v", err)
	}
	if !stored.IsMember("bob") || stored.Invites[0].Status != storage.InviteStatusAccepted {
		t.Fatalf("group after failed notify = %+v", stored)
	}

	joined, err := svc.RespondGroupInvite(ctx, "bob", group.ID, ActionAccept)
	if err != nil {
		t.Fatalf("retry accept: %v", err)
	}
	if !joined.IsMember("bob") || len(joined.Members) != 2 {
		t.Fatalf("members after retry = %v", joined.Members)
	}
	aliceNotifications, err := svc.ListNotifications(ctx, "alice")
	if err != nil {
		t.Fatalf("alice notifications: %v", err)
	}
	if len(aliceNotifications) != 1 {
		t.Fatalf("alice notifications = %+v, want one", aliceNotifications)
	}
	accepted, ok := aliceNotifications[0].Payload.(GroupInviteAccepted)
	if !ok || accepted.GroupID != group.ID || accepted.Invitee != "bob" {
		t.Fatalf("accepted payload = %#v", aliceNotifications[0].Payload)
	}

	_, err = svc.RespondGroupInvite(ctx, "bob", group.ID, ActionAccept)
	requireCode(t, err, apperrors.CodeInviteNotFound)
	_, err = svc.RespondGroupInvite(ctx, "bob", group.ID, ActionDecline)
	requireCode(t, err, apperrors.CodeInviteNotFound)
	aliceNotifications, err = svc.ListNotifications(ctx, "alice")
	if err != nil {
		t.Fatalf("alice notifications after repeat: %v", err)
	}
	if len(aliceNotifications) != 1 {
		t.Fatalf("alice notifications after repeat = %+v, want one", aliceNotifications)
	}
}
