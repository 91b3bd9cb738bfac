// Package storage defines persistence contracts for Indogram social state.
//
// Each store owns one collection. Set-valued fields (follow lists, group
// members, admins) are mutated with single-statement add/remove primitives so
// concurrent writers never clobber unrelated elements. No store reaches into
// another; cross-collection consistency is the caller's job.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness-constrained record already exists.
var ErrAlreadyExists = errors.New("record already exists")

// UserRecord stores one identity.
type UserRecord struct {
	Handle       string
	DisplayName  string
	NameID       string
	Avatar       string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasCredential reports whether the user registered a password.
func (u UserRecord) HasCredential() bool {
	return u.PasswordHash != ""
}

// FollowEdge is one directed follow relation: Follower follows Handle.
type FollowEdge struct {
	Handle   string
	Follower string
}

// CommentRecord is one entry of a post's append-only comment log.
type CommentRecord struct {
	ID        string
	Text      string
	Author    string
	CreatedAt time.Time
}

// PostRecord stores one published post with its comment log.
type PostRecord struct {
	ID        string
	Author    string
	Images    []string
	Caption   string
	Tags      []string
	LikeCount int
	Liked     bool
	Comments  []CommentRecord
	CreatedAt time.Time
}

// TagCount is the number of tag occurrences across all posts.
type TagCount struct {
	Tag   string
	Count int
}

// InviteStatus is the lifecycle state of a group invite.
type InviteStatus string

const (
	InviteStatusPending  InviteStatus = "pending"
	InviteStatusAccepted InviteStatus = "accepted"
	InviteStatusDeclined InviteStatus = "declined"
)

// MessageRecord is one entry of a group's append-only message log.
type MessageRecord struct {
	ID        string
	Text      string
	Author    string
	CreatedAt time.Time
}

// InviteRecord is one entry of a group's invite log.
type InviteRecord struct {
	Target    string
	InvitedBy string
	Status    InviteStatus
	CreatedAt time.Time
}

// GroupRecord stores one group with its member sets and logs.
type GroupRecord struct {
	ID        string
	Name      string
	Locked    bool
	Admins    []string
	Members   []string
	Messages  []MessageRecord
	Invites   []InviteRecord
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NotificationRecord stores one recipient event. Counterpart is the other
// handle involved (inviter or invitee); GroupID and GroupName are set for
// group events only.
type NotificationRecord struct {
	ID          string
	Recipient   string
	Type        string
	Counterpart string
	GroupID     string
	GroupName   string
	CreatedAt   time.Time
	Unread      bool
}

// UserStore persists identities and their forward follow sets.
type UserStore interface {
	GetUser(ctx context.Context, handle string) (UserRecord, error)
	// CreateUser inserts a new identity; ErrAlreadyExists when the handle is taken.
	CreateUser(ctx context.Context, user UserRecord) error
	// UpdateUser overwrites profile and credential fields of an existing identity.
	UpdateUser(ctx context.Context, user UserRecord) error
	// RenameUser changes a handle; the user's own follow set moves with it.
	RenameUser(ctx context.Context, oldHandle string, newHandle string, at time.Time) error
	// SearchUsers matches query case-insensitively against NameID.
	SearchUsers(ctx context.Context, query string, limit int) ([]UserRecord, error)

	ListFollowing(ctx context.Context, handle string) ([]string, error)
	// AddFollowing adds target to handle's follow set; at orders the set.
	AddFollowing(ctx context.Context, handle string, target string, at time.Time) error
	RemoveFollowing(ctx context.Context, handle string, target string) error
	// ReplaceFollowingTarget rewrites every follow-set occurrence of oldTarget.
	ReplaceFollowingTarget(ctx context.Context, oldTarget string, newTarget string) error
	ListFollowingEdges(ctx context.Context) ([]FollowEdge, error)
}

// FollowerStore persists the reverse follow index.
type FollowerStore interface {
	ListFollowers(ctx context.Context, handle string) ([]string, error)
	// AddFollower adds follower to handle's follower set; at orders the set.
	AddFollower(ctx context.Context, handle string, follower string, at time.Time) error
	RemoveFollower(ctx context.Context, handle string, follower string) error
	// RenameFollowerKey moves the follower set keyed by oldHandle to newHandle.
	RenameFollowerKey(ctx context.Context, oldHandle string, newHandle string) error
	// ReplaceFollower rewrites every follower-set occurrence of oldFollower.
	ReplaceFollower(ctx context.Context, oldFollower string, newFollower string) error
	ListFollowerEdges(ctx context.Context) ([]FollowEdge, error)
}

// PostStore persists posts and their comment logs.
type PostStore interface {
	PutPost(ctx context.Context, post PostRecord) error
	GetPost(ctx context.Context, id string) (PostRecord, error)
	DeletePost(ctx context.Context, id string) error
	// TogglePostLike flips the shared liked flag and moves the count by one.
	TogglePostLike(ctx context.Context, id string) (PostRecord, error)
	AppendComment(ctx context.Context, postID string, comment CommentRecord) error
	ListPosts(ctx context.Context) ([]PostRecord, error)
	ListPostsByAuthors(ctx context.Context, authors []string) ([]PostRecord, error)
	ListPostsByTag(ctx context.Context, tag string) ([]PostRecord, error)
	CountTags(ctx context.Context) ([]TagCount, error)
	// RenamePostAuthor rewrites post and comment authorship of oldHandle.
	RenamePostAuthor(ctx context.Context, oldHandle string, newHandle string) error
}

// GroupStore persists groups, membership sets and their logs.
type GroupStore interface {
	PutGroup(ctx context.Context, group GroupRecord) error
	GetGroup(ctx context.Context, id string) (GroupRecord, error)
	ListGroupsForHandle(ctx context.Context, handle string) ([]GroupRecord, error)
	// AddGroupInvite appends a pending invite; ErrAlreadyExists when the
	// target already holds a pending invite for the group.
	AddGroupInvite(ctx context.Context, groupID string, invite InviteRecord) error
	// ResolveGroupInvite moves the target's pending invite to status exactly
	// once; ErrNotFound when no pending invite exists. Accepting adds the
	// target to the member set in the same transaction.
	ResolveGroupInvite(ctx context.Context, groupID string, target string, status InviteStatus, at time.Time) (InviteRecord, error)
	AppendGroupMessage(ctx context.Context, groupID string, message MessageRecord) error
	SetGroupLocked(ctx context.Context, groupID string, locked bool, at time.Time) error
	// RenameGroupHandle rewrites every group reference to oldHandle.
	RenameGroupHandle(ctx context.Context, oldHandle string, newHandle string) error
}

// NotificationStore persists recipient event logs.
type NotificationStore interface {
	PutNotification(ctx context.Context, record NotificationRecord) error
	GetNotification(ctx context.Context, id string) (NotificationRecord, error)
	ListNotificationsByRecipient(ctx context.Context, recipient string, limit int) ([]NotificationRecord, error)
	// MarkNotificationRead clears the unread flag; repeated calls succeed.
	MarkNotificationRead(ctx context.Context, id string) (NotificationRecord, error)
	// FindUnreadNotification returns an unread notification matching
	// recipient, type and counterpart.
	FindUnreadNotification(ctx context.Context, recipient string, notificationType string, counterpart string) (NotificationRecord, error)
	// FindGroupNotification returns the newest notification of a type about
	// groupID for recipient and counterpart created at or after since, read
	// or not.
	FindGroupNotification(ctx context.Context, recipient string, notificationType string, groupID string, counterpart string, since time.Time) (NotificationRecord, error)
	// RenameNotificationHandle rewrites recipient and counterpart references
	// to oldHandle.
	RenameNotificationHandle(ctx context.Context, oldHandle string, newHandle string) error
}
