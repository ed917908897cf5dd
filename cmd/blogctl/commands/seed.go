package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-extras/cobraflags"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/devnovate/blog/models"
	"github.com/devnovate/blog/services"
	"github.com/devnovate/blog/store"
	"github.com/devnovate/blog/utils"
)

type demoUser struct {
	username, email, bio string
}

type demoPost struct {
	title, content, excerpt, author, category string
	tags                                      []string
	likedBy                                   []string
	views                                     int64
}

var demoUsers = []demoUser{
	{"alice_dev", "alice@demo.com", "Full-stack developer passionate about React and Go"},
	{"bob_designer", "bob@demo.com", "UI/UX designer with a love for clean, modern interfaces"},
	{"charlie_data", "charlie@demo.com", "Data scientist exploring the intersection of AI and web development"},
}

var demoPosts = []demoPost{
	{
		title:    "Advanced React Patterns for 2024",
		content:  "Explore the latest React patterns including Custom Hooks, Compound Components, and Render Props. This guide covers modern React development techniques that make applications more maintainable and performant, with real-world examples.",
		excerpt:  "Modern React patterns and best practices for 2024",
		author:   "alice_dev",
		category: "Web Development",
		tags:     []string{"React", "JavaScript", "Frontend", "Patterns"},
		likedBy:  []string{"bob_designer", "charlie_data"},
		views:    150,
	},
	{
		title:    "Design Systems: Building Consistent UIs",
		content:  "Learn how to create and maintain design systems that scale across teams and projects. We cover component libraries, design tokens, documentation strategies, and tools like Storybook.",
		excerpt:  "Guide to creating scalable design systems",
		author:   "bob_designer",
		category: "Design",
		tags:     []string{"Design System", "UI/UX", "Components", "Storybook"},
		likedBy:  []string{"alice_dev"},
		views:    89,
	},
	{
		title:    "Machine Learning for Web Developers",
		content:  "Discover how to integrate machine learning into web applications. We explore TensorFlow.js, practical use cases, and step-by-step implementation guides, from image recognition to natural language processing.",
		excerpt:  "Integrating ML into web applications",
		author:   "charlie_data",
		category: "Technology",
		tags:     []string{"Machine Learning", "TensorFlow", "AI", "JavaScript"},
		likedBy:  []string{"alice_dev", "bob_designer"},
		views:    203,
	},
}

var demoComments = []struct{ author, text string }{
	{"alice_dev", "Great article! Very informative."},
	{"bob_designer", "Thanks for sharing this. Really helpful insights."},
}

func newSeedCommand() *cobra.Command {
	flags := storeFlags()
	flags[passwordFlag] = &cobraflags.StringFlag{Name: passwordFlag, Value: "demopass123", Usage: "Password for the demo users"}
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create demo users and approved blogs with likes and comments",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, flags, func(ctx context.Context, st store.Store) error {
				return seed(ctx, st, cmd.OutOrStdout(), flags[passwordFlag].GetString(), time.Now())
			})
		},
	}
	cobraflags.RegisterMap(cmd, flags)
	return cmd
}

// seed is idempotent: existing users and blogs with the same title are left alone.
func seed(ctx context.Context, st store.Store, out io.Writer, password string, now time.Time) error {
	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}

	ids := map[string]string{}
	for _, du := range demoUsers {
		u, err := st.FindUserByUsername(ctx, du.username)
		switch {
		case err == nil:
			fmt.Fprintf(out, "user %s already exists\n", du.username)
		case errors.Is(err, store.ErrNotFound):
			u = &models.User{Username: du.username, Email: du.email, Bio: du.bio, PasswordHash: hash, Role: models.RoleUser}
			if err := st.CreateUser(ctx, u); err != nil {
				return fmt.Errorf("create user %s: %w", du.username, err)
			}
			fmt.Fprintf(out, "created user %s\n", du.username)
		default:
			return err
		}
		ids[du.username] = u.ID
	}

	for _, dp := range demoPosts {
		exists, err := titleExists(ctx, st, dp.title)
		if err != nil {
			return err
		}
		if exists {
			fmt.Fprintf(out, "blog %q already exists\n", dp.title)
			continue
		}
		published := now
		post := &models.Post{
			ID:          uuid.NewString(),
			Title:       dp.title,
			Content:     dp.content,
			Excerpt:     dp.excerpt,
			AuthorID:    ids[dp.author],
			Category:    dp.category,
			Tags:        models.StringList(dp.tags),
			Status:      models.StatusApproved,
			Likes:       models.StringList{},
			Comments:    []models.Comment{},
			Views:       dp.views,
			CreatedAt:   now,
			UpdatedAt:   now,
			PublishedAt: &published,
		}
		if err := st.CreatePost(ctx, post); err != nil {
			return fmt.Errorf("create blog %q: %w", dp.title, err)
		}
		for _, liker := range dp.likedBy {
			if _, err := st.ToggleLike(ctx, post.ID, ids[liker]); err != nil {
				return err
			}
		}
		for _, dc := range demoComments {
			c := &models.Comment{ID: uuid.NewString(), UserID: ids[dc.author], Text: dc.text, CreatedAt: now}
			if err := st.AddComment(ctx, post.ID, c); err != nil {
				return err
			}
		}
		fmt.Fprintf(out, "created blog %q with %d likes and %d comments\n", dp.title, len(dp.likedBy), len(demoComments))
	}
	return nil
}

func titleExists(ctx context.Context, st store.Store, title string) (bool, error) {
	posts, err := st.FindPosts(ctx, store.PostFilter{Search: title}, store.SortCreatedAt, store.Page{})
	if err != nil {
		return false, err
	}
	for _, p := range posts {
		if strings.EqualFold(p.Title, title) {
			return true, nil
		}
	}
	return false, nil
}

func newApprovePendingCommand() *cobra.Command {
	flags := storeFlags()
	cmd := &cobra.Command{
		Use:   "approve-pending",
		Short: "Approve every pending blog and print database stats",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, flags, func(ctx context.Context, st store.Store) error {
				return approvePending(ctx, st, newBlogService(st), cmd.OutOrStdout())
			})
		},
	}
	cobraflags.RegisterMap(cmd, flags)
	return cmd
}

func approvePending(ctx context.Context, st store.Store, blogs *services.BlogService, out io.Writer) error {
	pending, err := st.FindPosts(ctx, store.PostFilter{Statuses: []models.Status{models.StatusPending}}, store.SortCreatedAt, store.Page{})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "found %d pending blog(s)\n", len(pending))
	for _, p := range pending {
		if _, err := blogs.Approve(ctx, services.SystemActor(), p.ID); err != nil {
			// a concurrent moderator may have acted first
			if errors.Is(err, services.ErrInvalidTransition) {
				fmt.Fprintf(out, "skipped %q: %v\n", p.Title, err)
				continue
			}
			return fmt.Errorf("approve %q: %w", p.Title, err)
		}
		fmt.Fprintf(out, "approved %q\n", p.Title)
	}

	total, err := st.CountPosts(ctx, store.PostFilter{})
	if err != nil {
		return err
	}
	nPending, err := st.CountPosts(ctx, store.PostFilter{Statuses: []models.Status{models.StatusPending}})
	if err != nil {
		return err
	}
	nApproved, err := st.CountPosts(ctx, store.PostFilter{Statuses: []models.Status{models.StatusApproved}})
	if err != nil {
		return err
	}
	users, err := st.CountUsers(ctx, "")
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\ntotal blogs: %d\npending blogs: %d\napproved blogs: %d\ntotal users: %d\n", total, nPending, nApproved, users)
	return nil
}
