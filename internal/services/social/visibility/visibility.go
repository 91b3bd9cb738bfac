// Package visibility decides read access between handles.
//
// Access is hard-wired to mutual follow: a viewer may read a target's profile,
// stats and posts when both follow each other, or when they are the same
// handle. Feeds use the same predicate, evaluated once per request.
package visibility

import "slices"

// Relations is the follow neighbourhood of one viewer.
type Relations struct {
	viewer    string
	following map[string]struct{}
	followers map[string]struct{}
}

// NewRelations builds relations from the viewer's forward follow set and the
// viewer's follower set from the reverse index.
func NewRelations(viewer string, following []string, followers []string) Relations {
	return Relations{
		viewer:    viewer,
		following: toSet(following),
		followers: toSet(followers),
	}
}

// IsFollowing reports whether the viewer follows handle.
func (r Relations) IsFollowing(handle string) bool {
	_, ok := r.following[handle]
	return ok
}

// IsFollowedBy reports whether handle follows the viewer.
func (r Relations) IsFollowedBy(handle string) bool {
	_, ok := r.followers[handle]
	return ok
}

// IsMutual reports whether the viewer and handle follow each other.
func (r Relations) IsMutual(handle string) bool {
	return handle != r.viewer && r.IsFollowing(handle) && r.IsFollowedBy(handle)
}

// CanView reports whether the viewer may read target-scoped data.
func (r Relations) CanView(target string) bool {
	return target == r.viewer || r.IsMutual(target)
}

// FeedAuthors returns the viewer plus every mutual follow, sorted.
func (r Relations) FeedAuthors() []string {
	authors := []string{r.viewer}
	for handle := range r.following {
		if r.IsMutual(handle) {
			authors = append(authors, handle)
		}
	}
	slices.Sort(authors)
	return authors
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, value := range values {
		set[value] = struct{}{}
	}
	return set
}
