package httpapi

import (
	"time"

	"github.com/louisbranch/indogram/internal/services/social/domain"
)

type okResponse struct {
	OK bool `json:"ok"`
}

type authorRef struct {
	Username string `json:"username"`
}

type userResponse struct {
	Username string `json:"username"`
	NameID   string `json:"nameid"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar"`
}

type sessionResponse struct {
	OK    bool         `json:"ok"`
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

type meResponse struct {
	Username  string   `json:"username"`
	Name      string   `json:"name"`
	NameID    string   `json:"nameid"`
	Avatar    string   `json:"avatar"`
	Following []string `json:"following"`
}

type profileResponse struct {
	Username  string   `json:"username"`
	Name      string   `json:"name"`
	Following []string `json:"following"`
}

type statsResponse struct {
	Followers int `json:"followers"`
	Following int `json:"following"`
}

type searchResultResponse struct {
	Username    string `json:"username"`
	Name        string `json:"name"`
	NameID      string `json:"nameid"`
	Avatar      string `json:"avatar"`
	IsFollowing bool   `json:"isFollowing"`
	IsMutual    bool   `json:"isMutual"`
}

type followResponse struct {
	OK        bool     `json:"ok"`
	Following []string `json:"following"`
}

type renameResponse struct {
	OK       bool   `json:"ok"`
	Username string `json:"username"`
}

type commentResponse struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt int64     `json:"createdAt"`
	Author    authorRef `json:"author"`
}

type postResponse struct {
	ID        string            `json:"id"`
	Images    []string          `json:"images"`
	Image     string            `json:"image,omitempty"`
	Caption   string            `json:"caption"`
	Tags      []string          `json:"tags"`
	CreatedAt int64             `json:"createdAt"`
	Likes     int               `json:"likes"`
	Liked     bool              `json:"liked"`
	Comments  []commentResponse `json:"comments"`
	Author    authorRef         `json:"author"`
}

type messageResponse struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt int64     `json:"createdAt"`
	Author    authorRef `json:"author"`
}

type inviteResponse struct {
	Username  string `json:"username"`
	InvitedBy string `json:"invitedBy"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"createdAt"`
}

type groupResponse struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Locked   bool              `json:"locked"`
	Admins   []string          `json:"admins"`
	Members  []string          `json:"members"`
	Messages []messageResponse `json:"messages"`
	Invites  []inviteResponse  `json:"invites,omitempty"`
}

type groupEnvelope struct {
	OK    bool          `json:"ok"`
	Group groupResponse `json:"group"`
}

type notificationData struct {
	GroupID   string `json:"groupId,omitempty"`
	GroupName string `json:"groupName,omitempty"`
	Inviter   string `json:"inviter,omitempty"`
	Invitee   string `json:"invitee,omitempty"`
}

type notificationResponse struct {
	ID        string           `json:"id"`
	Type      string           `json:"type"`
	Data      notificationData `json:"data"`
	CreatedAt int64            `json:"createdAt"`
	Unread    bool             `json:"unread"`
}

type friendInviteResponse struct {
	OK bool   `json:"ok"`
	ID string `json:"id"`
}

type friendRespondResponse struct {
	OK        bool   `json:"ok"`
	OtherUser string `json:"otherUser,omitempty"`
}

type trendingResponse struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

func millis(t time.Time) int64 {
	return t.UnixMilli()
}

func toUserResponse(user domain.User) userResponse {
	return userResponse{
		Username: user.Handle,
		NameID:   user.NameID,
		Name:     user.Name(),
		Avatar:   user.Avatar,
	}
}

func toSessionResponse(session domain.Session) sessionResponse {
	return sessionResponse{OK: true, Token: session.Token, User: toUserResponse(session.User)}
}

func toPostResponse(post domain.Post) postResponse {
	resp := postResponse{
		ID:        post.ID,
		Images:    post.Images,
		Caption:   post.Caption,
		Tags:      post.Tags,
		CreatedAt: millis(post.CreatedAt),
		Likes:     post.LikeCount,
		Liked:     post.Liked,
		Comments:  make([]commentResponse, 0, len(post.Comments)),
		Author:    authorRef{Username: post.Author},
	}
	if len(post.Images) > 0 {
		resp.Image = post.Images[0]
	}
	for _, comment := range post.Comments {
		resp.Comments = append(resp.Comments, toCommentResponse(comment))
	}
	return resp
}

func toPostsResponse(posts []domain.Post) []postResponse {
	resp := make([]postResponse, 0, len(posts))
	for _, post := range posts {
		resp = append(resp, toPostResponse(post))
	}
	return resp
}

func toCommentResponse(comment domain.Comment) commentResponse {
	return commentResponse{
		ID:        comment.ID,
		Text:      comment.Text,
		CreatedAt: millis(comment.CreatedAt),
		Author:    authorRef{Username: comment.Author},
	}
}

func toMessageResponse(message domain.Message) messageResponse {
	return messageResponse{
		ID:        message.ID,
		Text:      message.Text,
		CreatedAt: millis(message.CreatedAt),
		Author:    authorRef{Username: message.Author},
	}
}

// toGroupResponse projects a group; invites are included only when
// withInvites is set, matching the endpoints that expose them.
func toGroupResponse(group domain.Group, withInvites bool) groupResponse {
	resp := groupResponse{
		ID:       group.ID,
		Name:     group.Name,
		Locked:   group.Locked,
		Admins:   group.Admins,
		Members:  group.Members,
		Messages: make([]messageResponse, 0, len(group.Messages)),
	}
	for _, message := range group.Messages {
		resp.Messages = append(resp.Messages, toMessageResponse(message))
	}
	if withInvites {
		resp.Invites = make([]inviteResponse, 0, len(group.Invites))
		for _, invite := range group.Invites {
			resp.Invites = append(resp.Invites, inviteResponse{
				Username:  invite.Target,
				InvitedBy: invite.InvitedBy,
				Status:    string(invite.Status),
				CreatedAt: millis(invite.CreatedAt),
			})
		}
	}
	return resp
}

func toNotificationResponse(notification domain.Notification) notificationResponse {
	resp := notificationResponse{
		ID:        notification.ID,
		Type:      string(notification.Type()),
		CreatedAt: millis(notification.CreatedAt),
		Unread:    notification.Unread,
	}
	switch payload := notification.Payload.(type) {
	case domain.GroupInvite:
		resp.Data = notificationData{GroupID: payload.GroupID, GroupName: payload.GroupName, Inviter: payload.Inviter}
	case domain.GroupInviteAccepted:
		resp.Data = notificationData{GroupID: payload.GroupID, GroupName: payload.GroupName, Invitee: payload.Invitee}
	case domain.GroupInviteDeclined:
		resp.Data = notificationData{GroupID: payload.GroupID, GroupName: payload.GroupName, Invitee: payload.Invitee}
	case domain.FriendInvite:
		resp.Data = notificationData{Inviter: payload.Inviter}
	case domain.FriendInviteAccepted:
		resp.Data = notificationData{Invitee: payload.Invitee}
	case domain.FriendInviteDeclined:
		resp.Data = notificationData{Invitee: payload.Invitee}
	}
	return resp
}
