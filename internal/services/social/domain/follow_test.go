package domain

import (
	"context"
	"slices"
	"testing"
	"time"

	apperrors "github.com/louisbranch/indogram/internal/platform/errors"
	"github.com/louisbranch/indogram/internal/services/social/storage"
)

func TestFollowKeepsBothIndexesInStep(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	following, err := env.svc.Follow(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("follow: %v", err)
	}
	if !slices.Equal(following, []string{"bob"}) {
		t.Fatalf("following = %v, want [bob]", following)
	}
	requireGraphConsistent(t, env)

	if _, err := env.svc.Follow(ctx, "alice", "bob"); err != nil {
		t.Fatalf("follow again: %v", err)
	}
	followers, err := env.store.ListFollowers(ctx, "bob")
	if err != nil {
		t.Fatalf("list followers: %v", err)
	}
	if !slices.Equal(followers, []string{"alice"}) {
		t.Fatalf("followers after repeat = %v, want [alice]", followers)
	}
	requireGraphConsistent(t, env)

	following, err = env.svc.Unfollow(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("unfollow: %v", err)
	}
	if len(following) != 0 {
		t.Fatalf("following after unfollow = %v, want empty", following)
	}
	followers, err = env.store.ListFollowers(ctx, "bob")
	if err != nil {
		t.Fatalf("list followers: %v", err)
	}
	if len(followers) != 0 {
		t.Fatalf("followers after unfollow = %v, want empty", followers)
	}
	requireGraphConsistent(t, env)

	if _, err := env.svc.Unfollow(ctx, "alice", "bob"); err != nil {
		t.Fatalf("unfollow absent edge: %v", err)
	}
}

func TestUnfollowNormalizesHandles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.svc.Follow(ctx, "alice", "bob"); err != nil {
		t.Fatalf("follow: %v", err)
	}
	following, err := env.svc.Unfollow(ctx, " alice ", "bob ")
	if err != nil {
		t.Fatalf("unfollow with padded handles: %v", err)
	}
	if len(following) != 0 {
		t.Fatalf("following after unfollow = %v, want empty", following)
	}
	followers, err := env.store.ListFollowers(ctx, "bob")
	if err != nil {
		t.Fatalf("list followers: %v", err)
	}
	if len(followers) != 0 {
		t.Fatalf("followers after unfollow = %v, want empty", followers)
	}
	requireGraphConsistent(t, env)

	_, err = env.svc.Unfollow(ctx, "alice", " ")
	requireCode(t, err, apperrors.CodeUsernameRequired)
	_, err = env.svc.Unfollow(ctx, "alice", "b/ob")
	requireCode(t, err, apperrors.CodeInvalidUsername)
}

func TestFollowOrderFollowsServiceClock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// The service clock steps forward per call, so zed, followed first,
	// stays ahead of yan despite sorting after it by name.
	for _, target := range []string{"zed", "yan"} {
		if _, err := env.svc.Follow(ctx, "alice", target); err != nil {
			t.Fatalf("follow %s: %v", target, err)
		}
		if _, err := env.svc.Follow(ctx, target, "bob"); err != nil {
			t.Fatalf("%s follow bob: %v", target, err)
		}
	}
	following, err := env.store.ListFollowing(ctx, "alice")
	if err != nil {
		t.Fatalf("list following: %v", err)
	}
	if !slices.Equal(following, []string{"zed", "yan"}) {
		t.Fatalf("following = %v, want [zed yan]", following)
	}
	followers, err := env.store.ListFollowers(ctx, "bob")
	if err != nil {
		t.Fatalf("list followers: %v", err)
	}
	if !slices.Equal(followers, []string{"zed", "yan"}) {
		t.Fatalf("followers = %v, want [zed yan]", followers)
	}
}

func TestFollowRejectsSelfAndBlankTargets(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Follow(ctx, "alice", "alice")
	requireCode(t, err, apperrors.CodeCannotFollowSelf)
	_, err = env.svc.Follow(ctx, "alice", " ")
	requireCode(t, err, apperrors.CodeUsernameRequired)
	_, err = env.svc.Follow(ctx, "alice", "b/ob")
	requireCode(t, err, apperrors.CodeInvalidUsername)
}

func TestProfileRequiresMutualFollow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.svc.Follow(ctx, "alice", "bob"); err != nil {
		t.Fatalf("follow: %v", err)
	}
	_, err := env.svc.GetProfile(ctx, "alice", "bob")
	requireCode(t, err, apperrors.CodeNotAllowed)
	_, err = env.svc.ProfileStats(ctx, "alice", "bob")
	requireCode(t, err, apperrors.CodeNotAllowed)
	_, err = env.svc.ListPostsByAuthor(ctx, "alice", "bob")
	requireCode(t, err, apperrors.CodeNotAllowed)
	_, err = env.svc.GetProfile(ctx, "bob", "alice")
	requireCode(t, err, apperrors.CodeNotAllowed)

	if _, err := env.svc.Follow(ctx, "bob", "alice"); err != nil {
		t.Fatalf("follow back: %v", err)
	}
	profile, err := env.svc.GetProfile(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.Handle != "bob" || !slices.Equal(profile.Following, []string{"alice"}) {
		t.Fatalf("profile = %+v", profile)
	}
	stats, err := env.svc.ProfileStats(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Followers != 1 || stats.Following != 1 {
		t.Fatalf("stats = %+v, want 1/1", stats)
	}

	ok, err := env.svc.CanView(ctx, "carol", "carol")
	if err != nil || !ok {
		t.Fatalf("self view = %v, %v; want true", ok, err)
	}
	ok, err = env.svc.CanView(ctx, "carol", "alice")
	if err != nil || ok {
		t.Fatalf("stranger view = %v, %v; want false", ok, err)
	}
}

func TestGetProfileCreatesTargetOnFirstReference(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	profile, err := env.svc.GetProfile(ctx, "dave", "dave")
	if err != nil {
		t.Fatalf("own profile: %v", err)
	}
	if profile.Name != "dave" {
		t.Fatalf("profile name = %q, want handle fallback", profile.Name)
	}
	if _, err := env.store.GetUser(ctx, "dave"); err != nil {
		t.Fatalf("user was not created: %v", err)
	}
}

func TestFeedFollowingKeepsViewerAndMutuals(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, pair := range [][2]string{{"alice", "bob"}, {"bob", "alice"}, {"alice", "carol"}} {
		if _, err := env.svc.Follow(ctx, pair[0], pair[1]); err != nil {
			t.Fatalf("follow %s -> %s: %v", pair[0], pair[1], err)
		}
	}
	for _, author := range []string{"alice", "bob", "carol", "dave"} {
		if _, err := env.svc.CreatePost(ctx, CreatePostInput{Author: author, Images: []string{"img"}}); err != nil {
			t.Fatalf("create post for %s: %v", author, err)
		}
	}

	feed, err := env.svc.ListFeed(ctx, "alice", FeedFollowing)
	if err != nil {
		t.Fatalf("following feed: %v", err)
	}
	var authors []string
	for _, post := range feed {
		authors = append(authors, post.Author)
	}
	if !slices.Equal(sorted(authors), []string{"alice", "bob"}) {
		t.Fatalf("following feed authors = %v, want alice and bob", authors)
	}

	all, err := env.svc.ListFeed(ctx, "alice", "all")
	if err != nil {
		t.Fatalf("all feed: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("all feed = %d posts, want 4", len(all))
	}
	if all[0].Author != "dave" {
		t.Fatalf("all feed head = %s, want newest (dave)", all[0].Author)
	}
}

func TestRepairFollowGraphRestoresMissingSides(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, handle := range []string{"alice", "bob", "carol"} {
		if _, err := env.svc.GetOrCreateUser(ctx, handle); err != nil {
			t.Fatalf("create %s: %v", handle, err)
		}
	}
	seededAt := time.Date(2026, time.March, 1, 8, 0, 0, 0, time.UTC)
	if err := env.store.AddFollowing(ctx, "alice", "bob", seededAt); err != nil {
		t.Fatalf("seed forward edge: %v", err)
	}
	if err := env.store.AddFollower(ctx, "alice", "carol", seededAt); err != nil {
		t.Fatalf("seed reverse edge: %v", err)
	}

	report, err := env.svc.CheckFollowGraph(ctx)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	wantMissingFollower := []storage.FollowEdge{{Handle: "bob", Follower: "alice"}}
	wantMissingFollowing := []storage.FollowEdge{{Handle: "alice", Follower: "carol"}}
	if !slices.Equal(report.MissingFollower, wantMissingFollower) || !slices.Equal(report.MissingFollowing, wantMissingFollowing) {
		t.Fatalf("report = %+v", report)
	}

	repaired, err := env.svc.RepairFollowGraph(ctx)
	if err != nil {
		t.Fatalf("repair: %v", err)
	}
	if repaired.Consistent() {
		t.Fatal("repair should report what it fixed")
	}
	requireGraphConsistent(t, env)

	following, err := env.store.ListFollowing(ctx, "carol")
	if err != nil {
		t.Fatalf("list following: %v", err)
	}
	if !contains(following, "alice") {
		t.Fatalf("carol following = %v, want alice", following)
	}
}
