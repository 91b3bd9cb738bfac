package domain

import (
	"slices"
	"time"

	"github.com/louisbranch/indogram/internal/services/social/storage"
)

// User is one identity with its forward follow set.
type User struct {
	Handle        string
	DisplayName   string
	NameID        string
	Avatar        string
	HasCredential bool
	Following     []string
	CreatedAt     time.Time
}

// Name returns the display name, falling back to the handle.
func (u User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Handle
}

// Session is the result of a successful register or login.
type Session struct {
	Token string
	User  User
}

// Profile is the mutual-follow gated view of one user.
type Profile struct {
	Handle    string
	Name      string
	Following []string
}

// Stats counts both sides of a user's follow graph.
type Stats struct {
	Followers int
	Following int
}

// SearchResult is one user matched by name id, relative to the viewer.
type SearchResult struct {
	Handle      string
	NameID      string
	Avatar      string
	IsFollowing bool
	IsMutual    bool
}

// Name returns the name id, falling back to the handle.
func (r SearchResult) Name() string {
	if r.NameID != "" {
		return r.NameID
	}
	return r.Handle
}

// Comment is one entry of a post's comment log.
type Comment struct {
	ID        string
	Text      string
	Author    string
	CreatedAt time.Time
}

// Post is one published post.
type Post struct {
	ID        string
	Author    string
	Images    []string
	Caption   string
	Tags      []string
	LikeCount int
	Liked     bool
	Comments  []Comment
	CreatedAt time.Time
}

// Message is one entry of a group's message log.
type Message struct {
	ID        string
	Text      string
	Author    string
	CreatedAt time.Time
}

// Invite is one entry of a group's invite log.
type Invite struct {
	Target    string
	InvitedBy string
	Status    storage.InviteStatus
	CreatedAt time.Time
}

// Group is a group projected for one viewer: admins see every invite,
// other members only the invites targeting them.
type Group struct {
	ID        string
	Name      string
	Locked    bool
	Admins    []string
	Members   []string
	Messages  []Message
	Invites   []Invite
	UpdatedAt time.Time
}

// IsAdmin reports whether handle administers the group.
func (g Group) IsAdmin(handle string) bool {
	return slices.Contains(g.Admins, handle)
}

// IsMember reports whether handle belongs to the group as member or admin.
func (g Group) IsMember(handle string) bool {
	return slices.Contains(g.Members, handle) || g.IsAdmin(handle)
}

func userFromRecord(record storage.UserRecord, following []string) User {
	if following == nil {
		following = []string{}
	}
	return User{
		Handle:        record.Handle,
		DisplayName:   record.DisplayName,
		NameID:        record.NameID,
		Avatar:        record.Avatar,
		HasCredential: record.HasCredential(),
		Following:     following,
		CreatedAt:     record.CreatedAt,
	}
}

func postFromRecord(record storage.PostRecord) Post {
	post := Post{
		ID:        record.ID,
		Author:    record.Author,
		Images:    nonNil(record.Images),
		Caption:   record.Caption,
		Tags:      nonNil(record.Tags),
		LikeCount: record.LikeCount,
		Liked:     record.Liked,
		Comments:  make([]Comment, 0, len(record.Comments)),
		CreatedAt: record.CreatedAt,
	}
	for _, comment := range record.Comments {
		post.Comments = append(post.Comments, Comment(comment))
	}
	return post
}

func postsFromRecords(records []storage.PostRecord) []Post {
	posts := make([]Post, 0, len(records))
	for _, record := range records {
		posts = append(posts, postFromRecord(record))
	}
	return posts
}

// groupFromRecord projects record for viewer. An empty viewer keeps every
// invite.
func groupFromRecord(record storage.GroupRecord, viewer string) Group {
	group := Group{
		ID:        record.ID,
		Name:      record.Name,
		Locked:    record.Locked,
		Admins:    nonNil(record.Admins),
		Members:   nonNil(record.Members),
		Messages:  make([]Message, 0, len(record.Messages)),
		Invites:   []Invite{},
		UpdatedAt: record.UpdatedAt,
	}
	for _, message := range record.Messages {
		group.Messages = append(group.Messages, Message(message))
	}
	seeAll := viewer == "" || group.IsAdmin(viewer)
	for _, invite := range record.Invites {
		if seeAll || invite.Target == viewer {
			group.Invites = append(group.Invites, Invite(invite))
		}
	}
	return group
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
