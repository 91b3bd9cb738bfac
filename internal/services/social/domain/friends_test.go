package domain

import (
	"context"
	"slices"
	"testing"

	apperrors "github.com/louisbranch/indogram/internal/platform/errors"
)

func TestFriendInviteAcceptMakesMutualFollowers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	invite, err := env.svc.InviteFriend(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	if invite.Type() != TypeFriendInvite || invite.Recipient != "bob" || !invite.Unread {
		t.Fatalf("invite = %+v", invite)
	}
	_, err = env.svc.InviteFriend(ctx, "alice", "bob")
	requireCode(t, err, apperrors.CodeAlreadyInvited)

	response, err := env.svc.RespondFriendInvite(ctx, "bob", invite.ID, ActionAccept)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if !response.Accepted || response.OtherUser != "alice" {
		t.Fatalf("response = %+v", response)
	}

	for _, pair := range [][2]string{{"alice", "bob"}, {"bob", "alice"}} {
		following, err := env.store.ListFollowing(ctx, pair[0])
		if err != nil {
			t.Fatalf("list following %s: %v", pair[0], err)
		}
		if !slices.Equal(following, []string{pair[1]}) {
			t.Fatalf("%s following = %v, want [%s]", pair[0], following, pair[1])
		}
		followers, err := env.store.ListFollowers(ctx, pair[1])
		if err != nil {
			t.Fatalf("list followers %s: %v", pair[1], err)
		}
		if !slices.Equal(followers, []string{pair[0]}) {
			t.Fatalf("%s followers = %v, want [%s]", pair[1], followers, pair[0])
		}
	}
	requireGraphConsistent(t, env)

	ok, err := env.svc.CanView(ctx, "alice", "bob")
	if err != nil || !ok {
		t.Fatalf("friends can view = %v, %v; want true", ok, err)
	}

	aliceNotifications, err := env.svc.ListNotifications(ctx, "alice")
	if err != nil {
		t.Fatalf("alice notifications: %v", err)
	}
	if len(aliceNotifications) != 1 {
		t.Fatalf("alice notifications = %+v", aliceNotifications)
	}
	accepted, ok := aliceNotifications[0].Payload.(FriendInviteAccepted)
	if !ok || accepted.Invitee != "bob" {
		t.Fatalf("accepted payload = %#v", aliceNotifications[0].Payload)
	}

	bobNotifications, err := env.svc.ListNotifications(ctx, "bob")
	if err != nil {
		t.Fatalf("bob notifications: %v", err)
	}
	if len(bobNotifications) != 1 || bobNotifications[0].Unread {
		t.Fatalf("bob invite not marked read: %+v", bobNotifications)
	}

	_, err = env.svc.InviteFriend(ctx, "alice", "bob")
	requireCode(t, err, apperrors.CodeAlreadyFriends)
}

func TestFriendInviteDecline(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	invite, err := env.svc.InviteFriend(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	response, err := env.svc.RespondFriendInvite(ctx, "bob", invite.ID, ActionDecline)
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	if response.Accepted || response.OtherUser != "" {
		t.Fatalf("decline response = %+v", response)
	}

	following, err := env.store.ListFollowing(ctx, "bob")
	if err != nil {
		t.Fatalf("list following: %v", err)
	}
	if len(following) != 0 {
		t.Fatalf("decline created follows: %v", following)
	}
	notifications, err := env.svc.ListNotifications(ctx, "alice")
	if err != nil {
		t.Fatalf("alice notifications: %v", err)
	}
	if len(notifications) != 1 || notifications[0].Type() != TypeFriendInviteDeclined {
		t.Fatalf("alice notifications = %+v", notifications)
	}

	// The declined invite is read, so a new one may be sent.
	if _, err := env.svc.InviteFriend(ctx, "alice", "bob"); err != nil {
		t.Fatalf("re-invite after decline: %v", err)
	}
}

func TestFriendInviteValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.InviteFriend(ctx, "alice", " ")
	requireCode(t, err, apperrors.CodeToRequired)
	_, err = env.svc.InviteFriend(ctx, "alice", "alice")
	requireCode(t, err, apperrors.CodeCannotInviteSelf)

	invite, err := env.svc.InviteFriend(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	_, err = env.svc.RespondFriendInvite(ctx, "bob", "", ActionAccept)
	requireCode(t, err, apperrors.CodeInvalidRequest)
	_, err = env.svc.RespondFriendInvite(ctx, "bob", invite.ID, "maybe")
	requireCode(t, err, apperrors.CodeInvalidRequest)
	_, err = env.svc.RespondFriendInvite(ctx, "bob", "missing", ActionAccept)
	requireCode(t, err, apperrors.CodeNotFound)
	_, err = env.svc.RespondFriendInvite(ctx, "carol", invite.ID, ActionAccept)
	requireCode(t, err, apperrors.CodeNotFound)

	group, err := env.svc.CreateGroup(ctx, "alice", "Club", false)
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	if _, err := env.svc.InviteToGroup(ctx, "alice", group.ID, "bob"); err != nil {
		t.Fatalf("group invite: %v", err)
	}
	notifications, err := env.svc.ListNotifications(ctx, "bob")
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if notifications[0].Type() != TypeGroupInvite {
		t.Fatalf("newest notification = %+v, want group invite", notifications[0])
	}
	_, err = env.svc.RespondFriendInvite(ctx, "bob", notifications[0].ID, ActionAccept)
	requireCode(t, err, apperrors.CodeNotFound)
}

func TestMarkReadIsRepeatable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	invite, err := env.svc.InviteFriend(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	for i := 0; i < 2; i++ {
		read, err := env.svc.MarkRead(ctx, invite.ID)
		if err != nil {
			t.Fatalf("mark read %d: %v", i, err)
		}
		if read.Unread {
			t.Fatalf("mark read %d left notification unread", i)
		}
	}
	_, err = env.svc.MarkRead(ctx, "missing")
	requireCode(t, err, apperrors.CodeNotFound)
}
