// Package main provides a database inspection tool for the engagement core.
//
// It prints every post's counters and every tag's usage, then cross-checks
// the denormalized numbers against their ground truth: LikeCount against
// the like ledger and UsageCount against the live post-tag associations.
// With -repair, drifted tag usage counts are recomputed in place.
//
// Exits non-zero when drift is found and not repaired.
//
// Usage:
//
//	go run ./cmd/dbinspect -db-path ~/QuillPost/quill.db
//	go run ./cmd/dbinspect -db-backend badger -repair
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/samber/do/v2"

	"github.com/quillpost/quill-server/internal/config"
	"github.com/quillpost/quill-server/internal/di"
	"github.com/quillpost/quill-server/internal/di/providers"
	"github.com/quillpost/quill-server/internal/domain"
	"github.com/quillpost/quill-server/internal/logger"
	"github.com/quillpost/quill-server/internal/store"
)

func main() {
	fs := flag.NewFlagSet("dbinspect", flag.ExitOnError)

	var flags config.Flags
	config.RegisterFlags(fs, &flags)
	repair := fs.Bool("repair", false, "Recompute drifted tag usage counts")
	fs.Parse(os.Args[1:]) //nolint:errcheck // ExitOnError

	injector := di.NewContainer(flags)
	if err := di.Bootstrap(injector); err != nil {
		fmt.Fprintf(os.Stderr, "bootstrap failed: %v\n", err)
		os.Exit(1)
	}
	defer injector.Shutdown() //nolint:errcheck // Best effort on exit

	log := do.MustInvoke[*logger.Logger](injector)
	storeHandle := do.MustInvoke[*providers.StoreHandle](injector)

	ctx := context.Background()
	drift := inspect(ctx, storeHandle.Store, log, *repair)

	if drift > 0 && !*repair {
		log.Error("Drift detected", "drifted", drift)
		os.Exit(1)
	}
	log.Info("Inspection complete", "drifted", drift, "repaired", *repair)
}

// inspect walks the database, prints its state, and returns the number of
// drifted counters found.
func inspect(ctx context.Context, s store.Store, log *logger.Logger, repair bool) int {
	drift := 0

	posts, err := s.ListPosts(ctx)
	if err != nil {
		log.Fatal("list posts", "error", err)
	}

	fmt.Printf("=== Posts (%d) ===\n", len(posts))

	// Live usage per tag, recomputed from the associations.
	liveUsage := make(map[string]int)

	for _, post := range posts {
		fmt.Printf("%s  views=%d likes=%d comments=%d  %q\n",
			post.ID, post.ViewCount, post.LikeCount, post.CommentCount, post.Title)

		ledger, err := s.CountLikes(ctx, post.ID)
		if err != nil {
			log.Fatal("count likes", "post_id", post.ID, "error", err)
		}
		if ledger != post.LikeCount {
			drift++
			log.Warn("like counter drift",
				"post_id", post.ID,
				"like_count", post.LikeCount,
				"ledger_rows", ledger,
			)
		}

		postTags, err := s.GetTagsForPost(ctx, post.ID)
		if err != nil {
			log.Fatal("get post tags", "post_id", post.ID, "error", err)
		}
		for _, tag := range postTags {
			liveUsage[tag.ID]++
		}
	}

	tags, err := s.ListTags(ctx, domain.TagSortUsage)
	if err != nil {
		log.Fatal("list tags", "error", err)
	}

	fmt.Printf("\n=== Tags (%d) ===\n", len(tags))

	for _, tag := range tags {
		fmt.Printf("%s  usage=%d  %q\n", tag.ID, tag.UsageCount, tag.Name)

		live := liveUsage[tag.ID]
		if live == tag.UsageCount {
			continue
		}
		drift++
		log.Warn("tag usage drift",
			"tag_name", tag.Name,
			"usage_count", tag.UsageCount,
			"associations", live,
		)

		if repair {
			count, err := s.RecalculateTagUsage(ctx, tag.ID)
			if err != nil {
				log.Fatal("recalculate tag usage", "tag_id", tag.ID, "error", err)
			}
			log.Info("tag usage repaired", "tag_name", tag.Name, "usage_count", count)
		}
	}

	return drift
}
