package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/indogram/internal/services/social/storage"
)

const postColumns = "id, author, caption, like_count, liked, created_at"

// PutPost inserts one post with its images, tags and any seeded comments.
func (s *Store) PutPost(ctx context.Context, post storage.PostRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(post.ID) == "" {
		return fmt.Errorf("post id is required")
	}
	return s.inTx(ctx, "put post", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO posts (id, author, caption, like_count, liked, created_at)
VALUES (?, ?, ?, ?, ?, ?)
`,
			post.ID,
			post.Author,
			post.Caption,
			post.LikeCount,
			boolToInt(post.Liked),
			toMillis(post.CreatedAt),
		); err != nil {
			if isUniqueConstraintError(err) {
				return storage.ErrAlreadyExists
			}
			return fmt.Errorf("put post: %w", err)
		}
		for i, url := range post.Images {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO post_images (post_id, position, url) VALUES (?, ?, ?)", post.ID, i, url,
			); err != nil {
				return fmt.Errorf("put post image: %w", err)
			}
		}
		for i, tag := range post.Tags {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO post_tags (post_id, position, tag) VALUES (?, ?, ?)", post.ID, i, tag,
			); err != nil {
				return fmt.Errorf("put post tag: %w", err)
			}
		}
		for i, comment := range post.Comments {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO post_comments (post_id, seq, id, text, author, created_at)
VALUES (?, ?, ?, ?, ?, ?)
`, post.ID, i+1, comment.ID, comment.Text, comment.Author, toMillis(comment.CreatedAt)); err != nil {
				return fmt.Errorf("put post comment: %w", err)
			}
		}
		return nil
	})
}

// GetPost loads one post by id.
func (s *Store) GetPost(ctx context.Context, id string) (storage.PostRecord, error) {
	if err := s.ready(ctx); err != nil {
		return storage.PostRecord{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, "SELECT "+postColumns+" FROM posts WHERE id = ?", id)
	post, err := scanPost(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.PostRecord{}, storage.ErrNotFound
		}
		return storage.PostRecord{}, fmt.Errorf("get post: %w", err)
	}
	if err := s.hydratePost(ctx, &post); err != nil {
		return storage.PostRecord{}, err
	}
	return post, nil
}

// DeletePost removes one post and its children.
func (s *Store) DeletePost(ctx context.Context, id string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx, "DELETE FROM posts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return requireAffected(result, "delete post")
}

// TogglePostLike flips the shared liked flag. SET expressions read the
// pre-update row, so the flag and count move together in one statement.
func (s *Store) TogglePostLike(ctx context.Context, id string) (storage.PostRecord, error) {
	if err := s.ready(ctx); err != nil {
		return storage.PostRecord{}, err
	}
	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE posts
SET liked = CASE WHEN liked = 1 THEN 0 ELSE 1 END,
    like_count = CASE WHEN liked = 1 THEN MAX(like_count - 1, 0) ELSE like_count + 1 END
WHERE id = ?
`, id)
	if err != nil {
		return storage.PostRecord{}, fmt.Errorf("toggle post like: %w", err)
	}
	if err := requireAffected(result, "toggle post like"); err != nil {
		return storage.PostRecord{}, err
	}
	return s.GetPost(ctx, id)
}

// AppendComment appends one comment to the end of a post's comment log.
func (s *Store) AppendComment(ctx context.Context, postID string, comment storage.CommentRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO post_comments (post_id, seq, id, text, author, created_at)
SELECT p.id,
       (SELECT COALESCE(MAX(c.seq), 0) + 1 FROM post_comments c WHERE c.post_id = p.id),
       ?, ?, ?, ?
FROM posts p
WHERE p.id = ?
`, comment.ID, comment.Text, comment.Author, toMillis(comment.CreatedAt), postID)
	if err != nil {
		return fmt.Errorf("append comment: %w", err)
	}
	return requireAffected(result, "append comment")
}

// ListPosts returns every post, newest first.
func (s *Store) ListPosts(ctx context.Context) ([]storage.PostRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	return s.queryPosts(ctx, "SELECT "+postColumns+" FROM posts ORDER BY created_at DESC, rowid DESC")
}

// ListPostsByAuthors returns posts written by any of authors, newest first.
func (s *Store) ListPostsByAuthors(ctx context.Context, authors []string) ([]storage.PostRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if len(authors) == 0 {
		return nil, nil
	}
	query := "SELECT " + postColumns + " FROM posts WHERE author IN (" + placeholders(len(authors)) +
		") ORDER BY created_at DESC, rowid DESC"
	return s.queryPosts(ctx, query, stringArgs(authors)...)
}

// ListPostsByTag returns posts carrying tag, newest first.
func (s *Store) ListPostsByTag(ctx context.Context, tag string) ([]storage.PostRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	return s.queryPosts(ctx, `
SELECT `+postColumns+`
FROM posts
WHERE EXISTS (SELECT 1 FROM post_tags t WHERE t.post_id = posts.id AND t.tag = ?)
ORDER BY created_at DESC, rowid DESC
`, tag)
}

// CountTags counts every tag occurrence, most used first and ties by tag.
func (s *Store) CountTags(ctx context.Context) ([]storage.TagCount, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT tag, COUNT(*) AS uses
FROM post_tags
GROUP BY tag
ORDER BY uses DESC, tag ASC
`)
	if err != nil {
		return nil, fmt.Errorf("count tags: %w", err)
	}
	defer rows.Close()

	var counts []storage.TagCount
	for rows.Next() {
		var count storage.TagCount
		if err := rows.Scan(&count.Tag, &count.Count); err != nil {
			return nil, fmt.Errorf("scan tag count: %w", err)
		}
		counts = append(counts, count)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tag counts: %w", err)
	}
	return counts, nil
}

// RenamePostAuthor rewrites post and comment authorship of oldHandle.
func (s *Store) RenamePostAuthor(ctx context.Context, oldHandle string, newHandle string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.inTx(ctx, "rename post author", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "UPDATE posts SET author = ? WHERE author = ?", newHandle, oldHandle); err != nil {
			return fmt.Errorf("rename post author: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "UPDATE post_comments SET author = ? WHERE author = ?", newHandle, oldHandle); err != nil {
			return fmt.Errorf("rename comment author: %w", err)
		}
		return nil
	})
}

func (s *Store) queryPosts(ctx context.Context, query string, args ...any) ([]storage.PostRecord, error) {
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	var posts []storage.PostRecord
	for rows.Next() {
		post, err := scanPost(rows.Scan)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("close posts: %w", err)
	}

	for i := range posts {
		if err := s.hydratePost(ctx, &posts[i]); err != nil {
			return nil, err
		}
	}
	return posts, nil
}

// hydratePost loads images, tags and comments in their stored order.
func (s *Store) hydratePost(ctx context.Context, post *storage.PostRecord) error {
	rows, err := s.sqlDB.QueryContext(ctx, "SELECT url FROM post_images WHERE post_id = ? ORDER BY position", post.ID)
	if err != nil {
		return fmt.Errorf("load post images: %w", err)
	}
	if post.Images, err = scanStrings(rows); err != nil {
		return fmt.Errorf("scan post images: %w", err)
	}

	rows, err = s.sqlDB.QueryContext(ctx, "SELECT tag FROM post_tags WHERE post_id = ? ORDER BY position", post.ID)
	if err != nil {
		return fmt.Errorf("load post tags: %w", err)
	}
	if post.Tags, err = scanStrings(rows); err != nil {
		return fmt.Errorf("scan post tags: %w", err)
	}

	rows, err = s.sqlDB.QueryContext(ctx,
		"SELECT id, text, author, created_at FROM post_comments WHERE post_id = ? ORDER BY seq", post.ID)
	if err != nil {
		return fmt.Errorf("load post comments: %w", err)
	}
	defer rows.Close()
	post.Comments = nil
	for rows.Next() {
		var (
			comment   storage.CommentRecord
			createdAt int64
		)
		if err := rows.Scan(&comment.ID, &comment.Text, &comment.Author, &createdAt); err != nil {
			return fmt.Errorf("scan post comment: %w", err)
		}
		comment.CreatedAt = fromMillis(createdAt)
		post.Comments = append(post.Comments, comment)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate post comments: %w", err)
	}
	return nil
}

func scanPost(scan func(dest ...any) error) (storage.PostRecord, error) {
	var (
		post      storage.PostRecord
		liked     int
		createdAt int64
	)
	if err := scan(&post.ID, &post.Author, &post.Caption, &post.LikeCount, &liked, &createdAt); err != nil {
		return storage.PostRecord{}, err
	}
	post.Liked = liked != 0
	post.CreatedAt = fromMillis(createdAt)
	return post, nil
}
