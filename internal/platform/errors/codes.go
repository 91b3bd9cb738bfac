// Package errors provides coded domain errors and their transport mapping.
package errors

import "net/http"

// Code is a machine-readable error code. Its value is the wire token returned
// to API callers.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "internal_error"

	// Validation
	CodeImagesRequired      Code = "images_required"
	CodeTextRequired        Code = "text_required"
	CodeNameRequired        Code = "name_required"
	CodeUsernameRequired    Code = "username_required"
	CodeToRequired          Code = "to_required"
	CodeInvalidUsername     Code = "invalid_username"
	CodeWeakPassword        Code = "weak_password"
	CodeCredentialsRequired Code = "credentials_required"
	CodeInvalidAction       Code = "invalid_action"
	CodeInvalidRequest      Code = "invalid_request"
	CodeInvalidInvite       Code = "invalid_invite"
	CodeInvalidCredentials  Code = "invalid_credentials"

	// Not found
	CodeNotFound       Code = "not_found"
	CodeUserNotFound   Code = "user_not_found"
	CodeInviteNotFound Code = "invite_not_found"

	// Conflict
	CodeUsernameTaken    Code = "username_taken"
	CodeUserExists       Code = "user_exists"
	CodeAlreadyMember    Code = "already_member"
	CodeAlreadyInvited   Code = "already_invited"
	CodeAlreadyFriends   Code = "already_friends"
	CodeCannotFollowSelf Code = "cannot_follow_self"
	CodeCannotInviteSelf Code = "cannot_invite_self"

	// Authorization
	CodeNotAllowed  Code = "not_allowed"
	CodeAdminOnly   Code = "admin_only"
	CodeGroupLocked Code = "group_locked"

	// Authentication
	CodeUnauthorized Code = "unauthorized"
)

// Kind classifies codes into the error taxonomy callers branch on.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindAuthorization
	KindAuthentication
)

// Kind maps a code to its taxonomy class.
func (c Code) Kind() Kind {
	switch c {
	case CodeImagesRequired,
		CodeTextRequired,
		CodeNameRequired,
		CodeUsernameRequired,
		CodeToRequired,
		CodeInvalidUsername,
		CodeWeakPassword,
		CodeCredentialsRequired,
		CodeInvalidAction,
		CodeInvalidRequest,
		CodeInvalidInvite,
		CodeInvalidCredentials:
		return KindValidation

	case CodeNotFound,
		CodeUserNotFound,
		CodeInviteNotFound:
		return KindNotFound

	case CodeUsernameTaken,
		CodeUserExists,
		CodeAlreadyMember,
		CodeAlreadyInvited,
		CodeAlreadyFriends,
		CodeCannotFollowSelf,
		CodeCannotInviteSelf:
		return KindConflict

	case CodeNotAllowed,
		CodeAdminOnly,
		CodeGroupLocked:
		return KindAuthorization

	case CodeUnauthorized:
		return KindAuthentication

	default:
		return KindInternal
	}
}

// HTTPStatus maps an error kind to an HTTP status. Conflicts answer 400, the
// status existing clients already branch on.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindAuthorization:
		return http.StatusForbidden
	case KindAuthentication:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
