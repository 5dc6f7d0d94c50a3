package service

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/quillpost/quill-server/internal/domain"
	"github.com/quillpost/quill-server/internal/store"
	"github.com/quillpost/quill-server/internal/store/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTagTest creates a tag service with temporary storage.
func setupTagTest(t *testing.T) (*TagService, store.Store, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "quill-tag-test-*")
	require.NoError(t, err)

	s, err := sqlite.Open(filepath.Join(tmpDir, "test.db"), slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	svc := NewTagService(s, slog.New(slog.DiscardHandler))

	cleanup := func() {
		_ = s.Close()
		_ = os.RemoveAll(tmpDir)
	}

	return svc, s, cleanup
}

// tagNames projects a tag slice to its names, preserving order.
func tagNames(tags []*domain.Tag) []string {
	names := make([]string, len(tags))
	for i, tag := range tags {
		names[i] = tag.Name
	}
	return names
}

func TestReplaceTags_InitialSet(t *testing.T) {
	svc, s, cleanup := setupTagTest(t)
	defer cleanup()
	ctx := context.Background()

	post := createTestPost(t, s, "member-1")

	requested := []string{"Java", "Spring"}
	tags, err := svc.ReplaceTags(ctx, post.ID, &requested)
	require.NoError(t, err)
	assert.Equal(t, []string{"java", "spring"}, tagNames(tags))

	// Every touched tag's usage follows its associations.
	for _, tag := range tags {
		assert.Equal(t, 1, tag.UsageCount, "tag %s", tag.Name)
	}
}

func TestReplaceTags_Replace(t *testing.T) {
	svc, s, cleanup := setupTagTest(t)
	defer cleanup()
	ctx := context.Background()

	post := createTestPost(t, s, "member-1")

	initial := []string{"java", "spring"}
	_, err := svc.ReplaceTags(ctx, post.ID, &initial)
	require.NoError(t, err)

	// Raw input with case noise and blanks; normalization handles it.
	next := []string{"Java", "  ", "kotlin"}
	tags, err := svc.ReplaceTags(ctx, post.ID, &next)
	require.NoError(t, err)
	assert.Equal(t, []string{"java", "kotlin"}, tagNames(tags))

	// spring survives at zero usage; tags are never deleted.
	spring, err := s.GetTagByName(ctx, "spring")
	require.NoError(t, err)
	assert.Equal(t, 0, spring.UsageCount)
}

func TestReplaceTags_NilMeansNoChange(t *testing.T) {
	svc, s, cleanup := setupTagTest(t)
	defer cleanup()
	ctx := context.Background()

	post := createTestPost(t, s, "member-1")

	initial := []string{"golang"}
	_, err := svc.ReplaceTags(ctx, post.ID, &initial)
	require.NoError(t, err)

	tags, err := svc.ReplaceTags(ctx, post.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"golang"}, tagNames(tags))
}

func TestReplaceTags_EmptyClearsAll(t *testing.T) {
	svc, s, cleanup := setupTagTest(t)
	defer cleanup()
	ctx := context.Background()

	post := createTestPost(t, s, "member-1")

	initial := []string{"golang", "databases"}
	_, err := svc.ReplaceTags(ctx, post.ID, &initial)
	require.NoError(t, err)

	empty := []string{}
	tags, err := svc.ReplaceTags(ctx, post.ID, &empty)
	require.NoError(t, err)
	assert.Empty(t, tags)

	for _, name := range []string{"golang", "databases"} {
		tag, err := s.GetTagByName(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, 0, tag.UsageCount, "tag %s", name)
	}
}

func TestReplaceTags_NoOpDiff(t *testing.T) {
	svc, s, cleanup := setupTagTest(t)
	defer cleanup()
	ctx := context.Background()

	post := createTestPost(t, s, "member-1")

	initial := []string{"golang"}
	_, err := svc.ReplaceTags(ctx, post.ID, &initial)
	require.NoError(t, err)

	// Same set with different casing and duplicates: nothing changes.
	same := []string{"GoLang", "golang", " golang "}
	tags, err := svc.ReplaceTags(ctx, post.ID, &same)
	require.NoError(t, err)
	assert.Equal(t, []string{"golang"}, tagNames(tags))
	assert.Equal(t, 1, tags[0].UsageCount)
}

func TestReplaceTags_SharedTagAcrossPosts(t *testing.T) {
	svc, s, cleanup := setupTagTest(t)
	defer cleanup()
	ctx := context.Background()

	post1 := createTestPost(t, s, "member-1")
	post2 := createTestPost(t, s, "member-2")

	set := []string{"golang"}
	_, err := svc.ReplaceTags(ctx, post1.ID, &set)
	require.NoError(t, err)
	_, err = svc.ReplaceTags(ctx, post2.ID, &set)
	require.NoError(t, err)

	tag, err := s.GetTagByName(ctx, "golang")
	require.NoError(t, err)
	assert.Equal(t, 2, tag.UsageCount)

	// Clearing one post only drops one usage.
	empty := []string{}
	_, err = svc.ReplaceTags(ctx, post1.ID, &empty)
	require.NoError(t, err)

	tag, err = s.GetTagByName(ctx, "golang")
	require.NoError(t, err)
	assert.Equal(t, 1, tag.UsageCount)
}

func TestReplaceTags_PostNotFound(t *testing.T) {
	svc, _, cleanup := setupTagTest(t)
	defer cleanup()

	requested := []string{"golang"}
	_, err := svc.ReplaceTags(context.Background(), "missing", &requested)
	assert.ErrorIs(t, err, store.ErrPostNotFound)
}

func TestListTags_DefaultSort(t *testing.T) {
	svc, s, cleanup := setupTagTest(t)
	defer cleanup()
	ctx := context.Background()

	post := createTestPost(t, s, "member-1")

	set := []string{"zig", "ada"}
	_, err := svc.ReplaceTags(ctx, post.ID, &set)
	require.NoError(t, err)

	// Empty sort key falls back to usage ordering.
	tags, err := svc.ListTags(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"ada", "zig"}, tagNames(tags))

	tags, err = svc.ListTags(ctx, domain.TagSortName)
	require.NoError(t, err)
	assert.Equal(t, []string{"ada", "zig"}, tagNames(tags))
}

func TestRecalculateUsage(t *testing.T) {
	svc, s, cleanup := setupTagTest(t)
	defer cleanup()
	ctx := context.Background()

	post := createTestPost(t, s, "member-1")

	set := []string{"golang"}
	tags, err := svc.ReplaceTags(ctx, post.ID, &set)
	require.NoError(t, err)

	// Skew the counter outside the normal write path, then repair.
	require.NoError(t, s.BulkIncrementTagUsage(ctx, []string{tags[0].ID}))

	count, err := svc.RecalculateUsage(ctx, tags[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
