package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/rickgao/homepage/internal/engage"
)

func newPostsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "posts",
		Short: "Browse and like blog posts",
	}

	var limit, offset int
	list := &cobra.Command{
		Use:   "list",
		Short: "List published posts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := a.openEngage(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			page, err := svc.Posts.List(cmd.Context(), engage.ListOptions{Limit: limit, Offset: offset})
			if err != nil {
				return err
			}
			for _, p := range page.Posts {
				printf(cmd, "%s  %-40s  %s  views=%d likes=%d\n",
					p.CreatedAt.Format("2006-01-02"), p.Slug, p.Title, p.Views, p.Likes)
			}
			printf(cmd, "showing %d of %d\n", len(page.Posts), page.Total)
			return nil
		},
	}
	list.Flags().IntVar(&limit, "limit", 10, "posts per page")
	list.Flags().IntVar(&offset, "offset", 0, "posts to skip")

	show := &cobra.Command{
		Use:   "show <slug>",
		Short: "Show a post with its comments and count the view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := a.openEngage(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			page, err := svc.Posts.Page(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			p := page.Post
			printf(cmd, "# %s\n", p.Title)
			printf(cmd, "%s  views=%d likes=%d liked=%t\n", p.CreatedAt.Format("2006-01-02"), p.Views, p.Likes, page.Liked)
			if len(p.Tags) > 0 {
				printf(cmd, "tags: %s\n", strings.Join(p.Tags, ", "))
			}
			printf(cmd, "\n%s\n", p.Content)

			printf(cmd, "\n%d comments\n", len(page.Comments))
			printEntries(cmd, page.Comments)
			return nil
		},
	}

	like := &cobra.Command{
		Use:   "like <slug>",
		Short: "Toggle your like on a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := a.openEngage(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			post, err := svc.Posts.BySlug(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			liked, err := svc.Likes.Toggle(cmd.Context(), post.ID)
			if err != nil {
				return err
			}
			if liked {
				printf(cmd, "liked %s\n", post.Slug)
			} else {
				printf(cmd, "unliked %s\n", post.Slug)
			}
			return nil
		},
	}

	cmd.AddCommand(list, show, like)
	return cmd
}
