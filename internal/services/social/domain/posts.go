package domain

import (
	"context"
	"fmt"

	apperrors "github.com/louisbranch/indogram/internal/platform/errors"
	"github.com/louisbranch/indogram/internal/services/social/storage"
	"github.com/louisbranch/indogram/internal/services/social/tags"
)

// FeedFollowing restricts a feed to the viewer and mutual follows. Any other
// filter value returns every post.
const FeedFollowing = "following"

// CreatePostInput carries a new post.
type CreatePostInput struct {
	Author  string
	Images  []string
	Caption string
}

// CreatePost publishes a post; tags are derived from the caption.
func (s *Service) CreatePost(ctx context.Context, input CreatePostInput) (Post, error) {
	if len(input.Images) == 0 {
		return Post{}, apperrors.New(apperrors.CodeImagesRequired, "at least one image is required")
	}
	author, err := normalizeHandle(input.Author, apperrors.CodeUsernameRequired)
	if err != nil {
		return Post{}, err
	}
	if _, err := s.ensureUser(ctx, author); err != nil {
		return Post{}, err
	}
	postID, err := s.newID()
	if err != nil {
		return Post{}, fmt.Errorf("new post id: %w", err)
	}
	record := storage.PostRecord{
		ID:        postID,
		Author:    author,
		Images:    append([]string(nil), input.Images...),
		Caption:   input.Caption,
		Tags:      tags.Extract(input.Caption),
		CreatedAt: s.nowUTC(),
	}
	if err := s.stores.Posts.PutPost(ctx, record); err != nil {
		return Post{}, fmt.Errorf("put post: %w", err)
	}
	s.invalidateTrending()
	return postFromRecord(record), nil
}

// ToggleLike flips the shared like flag of a post.
func (s *Service) ToggleLike(ctx context.Context, postID string) (Post, error) {
	record, err := s.stores.Posts.TogglePostLike(ctx, postID)
	if err != nil {
		return Post{}, notFoundAs(err, apperrors.CodeNotFound, "post not found")
	}
	return postFromRecord(record), nil
}

// AddComment appends a comment to a post.
func (s *Service) AddComment(ctx context.Context, postID string, author string, text string) (Comment, error) {
	text = trimmed(text)
	if text == "" {
		return Comment{}, apperrors.New(apperrors.CodeTextRequired, "comment text is required")
	}
	if _, err := s.stores.Posts.GetPost(ctx, postID); err != nil {
		return Comment{}, notFoundAs(err, apperrors.CodeNotFound, "post not found")
	}
	author, err := normalizeHandle(author, apperrors.CodeUsernameRequired)
	if err != nil {
		return Comment{}, err
	}
	if _, err := s.ensureUser(ctx, author); err != nil {
		return Comment{}, err
	}
	commentID, err := s.newID()
	if err != nil {
		return Comment{}, fmt.Errorf("new comment id: %w", err)
	}
	comment := storage.CommentRecord{
		ID:        commentID,
		Text:      text,
		Author:    author,
		CreatedAt: s.nowUTC(),
	}
	if err := s.stores.Posts.AppendComment(ctx, postID, comment); err != nil {
		return Comment{}, notFoundAs(err, apperrors.CodeNotFound, "post not found")
	}
	return Comment(comment), nil
}

// DeletePost removes a post. Callers own any authorship check.
func (s *Service) DeletePost(ctx context.Context, postID string) error {
	if err := s.stores.Posts.DeletePost(ctx, postID); err != nil {
		return notFoundAs(err, apperrors.CodeNotFound, "post not found")
	}
	s.invalidateTrending()
	return nil
}

// ListPostsByTag returns posts carrying tag, newest first.
func (s *Service) ListPostsByTag(ctx context.Context, tag string) ([]Post, error) {
	records, err := s.stores.Posts.ListPostsByTag(ctx, tag)
	if err != nil {
		return nil, fmt.Errorf("list posts by tag: %w", err)
	}
	return postsFromRecords(records), nil
}

// ListPostsByAuthor returns author's posts when viewer may see them.
func (s *Service) ListPostsByAuthor(ctx context.Context, viewer string, author string) ([]Post, error) {
	if err := s.requireView(ctx, viewer, author); err != nil {
		return nil, err
	}
	records, err := s.stores.Posts.ListPostsByAuthors(ctx, []string{author})
	if err != nil {
		return nil, fmt.Errorf("list posts by author: %w", err)
	}
	return postsFromRecords(records), nil
}

// ListFeed returns the viewer's feed. The following filter computes the
// mutual set once and keeps posts by the viewer and mutual follows; any other
// filter is unfiltered.
func (s *Service) ListFeed(ctx context.Context, viewer string, filter string) ([]Post, error) {
	var (
		records []storage.PostRecord
		err     error
	)
	if filter == FeedFollowing {
		relations, relErr := s.relations(ctx, viewer)
		if relErr != nil {
			return nil, relErr
		}
		records, err = s.stores.Posts.ListPostsByAuthors(ctx, relations.FeedAuthors())
	} else {
		records, err = s.stores.Posts.ListPosts(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("list feed: %w", err)
	}
	return postsFromRecords(records), nil
}

// TrendingTags ranks tags by use, served from the cache when warm.
func (s *Service) TrendingTags(ctx context.Context) ([]tags.Count, error) {
	if s.trending != nil {
		if counts, ok := s.trending.Get(); ok {
			return counts, nil
		}
	}
	stored, err := s.stores.Posts.CountTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("count tags: %w", err)
	}
	counts := make([]tags.Count, 0, len(stored))
	for _, count := range stored {
		counts = append(counts, tags.Count{Tag: count.Tag, Count: count.Count})
	}
	counts = tags.Rank(counts)
	if s.trending != nil {
		s.trending.Set(counts)
	}
	return counts, nil
}

func (s *Service) invalidateTrending() {
	if s.trending != nil {
		s.trending.Invalidate()
	}
}
