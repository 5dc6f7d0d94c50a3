// Package main provides a tool to seed the database with demo engagement data.
//
// It creates a handful of posts, then drives views, likes, and tag edits
// through the same services the application uses, so the seeded counters
// are guaranteed consistent with the ledgers behind them.
//
// Usage:
//
//	go run ./cmd/seed -db-path ~/QuillPost/quill.db
//	go run ./cmd/seed -db-backend badger -posts 20 -members 50
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/samber/do/v2"

	"github.com/quillpost/quill-server/internal/config"
	"github.com/quillpost/quill-server/internal/di"
	"github.com/quillpost/quill-server/internal/di/providers"
	"github.com/quillpost/quill-server/internal/domain"
	"github.com/quillpost/quill-server/internal/id"
	"github.com/quillpost/quill-server/internal/logger"
	"github.com/quillpost/quill-server/internal/service"
)

var tagPool = []string{
	"golang", "databases", "distributed systems", "testing", "performance",
	"web", "tooling", "concurrency", "storage", "observability",
}

func main() {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)

	var flags config.Flags
	config.RegisterFlags(fs, &flags)
	numPosts := fs.Int("posts", 10, "Number of posts to create")
	numMembers := fs.Int("members", 25, "Number of members to simulate")
	fs.Parse(os.Args[1:]) //nolint:errcheck // ExitOnError

	injector := di.NewContainer(flags)
	if err := di.Bootstrap(injector); err != nil {
		fmt.Fprintf(os.Stderr, "bootstrap failed: %v\n", err)
		os.Exit(1)
	}
	defer injector.Shutdown() //nolint:errcheck // Best effort on exit

	log := do.MustInvoke[*logger.Logger](injector)
	storeHandle := do.MustInvoke[*providers.StoreHandle](injector)
	engagement := do.MustInvoke[*service.EngagementService](injector)
	tags := do.MustInvoke[*service.TagService](injector)

	ctx := context.Background()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	// Members exist outside this core, so any stable identifier works.
	members := make([]string, *numMembers)
	for i := range members {
		members[i] = "member-" + uuid.New().String()
	}

	log.Info("Seeding demo data", "posts", *numPosts, "members", *numMembers)

	for n := 0; n < *numPosts; n++ {
		postID, err := id.Generate("post")
		if err != nil {
			log.Fatal("generate post id", "error", err)
		}

		post := &domain.Post{
			ID:       postID,
			AuthorID: members[rng.Intn(len(members))],
			Title:    fmt.Sprintf("Demo Post %d", n+1),
		}
		post.InitTimestamps()

		if err := storeHandle.CreatePost(ctx, post); err != nil {
			log.Fatal("create post", "post_id", postID, "error", err)
		}

		// A few tags per post, drawn from the pool with duplicates allowed;
		// normalization collapses them.
		requested := make([]string, 0, 3)
		for len(requested) < 1+rng.Intn(3) {
			requested = append(requested, tagPool[rng.Intn(len(tagPool))])
		}
		if _, err := tags.ReplaceTags(ctx, postID, &requested); err != nil {
			log.Fatal("tag post", "post_id", postID, "error", err)
		}

		// Views from random members plus anonymous traffic.
		views := rng.Intn(200)
		for v := 0; v < views; v++ {
			if _, err := engagement.RecordView(ctx, postID); err != nil {
				log.Fatal("record view", "post_id", postID, "error", err)
			}
		}

		// A random subset of members likes the post. The service rejects
		// duplicates, so each member contributes at most one.
		for _, member := range members {
			if rng.Intn(3) != 0 {
				continue
			}
			if _, err := engagement.Like(ctx, postID, member); err != nil {
				log.Fatal("like post", "post_id", postID, "member_id", member, "error", err)
			}
		}

		post, err = storeHandle.GetPost(ctx, postID)
		if err != nil {
			log.Fatal("refetch post", "post_id", postID, "error", err)
		}
		log.Info("seeded post",
			"post_id", postID,
			"views", post.ViewCount,
			"likes", post.LikeCount,
			"tags", len(requested),
		)
	}

	allTags, err := tags.ListTags(ctx, domain.TagSortUsage)
	if err != nil {
		log.Fatal("list tags", "error", err)
	}
	for _, tag := range allTags {
		log.Info("tag", "name", tag.Name, "usage", tag.UsageCount)
	}

	log.Info("Seeding complete")
}
