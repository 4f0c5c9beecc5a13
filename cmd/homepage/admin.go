package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/rickgao/homepage/internal/auth"
	"github.com/rickgao/homepage/internal/engage"
)

func newAdminCmd(a *app) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Site administration (requires the admin password)",
		Long: `Administrative commands. The password is taken from --password or the
` + auth.PasswordEnv + ` environment variable and checked against admin.password_hash.`,
	}
	cmd.PersistentFlags().StringVar(&password, "password", "", "admin password (default $"+auth.PasswordEnv+")")

	// authorized opens the service after checking the admin password.
	authorized := func(cmd *cobra.Command) (*engage.Service, func(), error) {
		admin, err := auth.NewAdmin(a.cfg.Admin.PasswordHash)
		if err != nil {
			return nil, nil, err
		}
		pw := password
		if pw == "" {
			pw = auth.PasswordFromEnv()
		}
		if err := admin.Authenticate(pw); err != nil {
			return nil, nil, err
		}
		return a.openEngage(cmd.Context())
	}

	cmd.AddCommand(
		newAdminPostsCmd(authorized),
		newAdminGuestbookCmd(authorized),
		newAdminStatsCmd(authorized),
		newHashPasswordCmd(),
	)
	return cmd
}

type authorizer func(cmd *cobra.Command) (*engage.Service, func(), error)

func newAdminPostsCmd(authorized authorizer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "posts",
		Short: "Create, edit, publish and delete posts",
	}

	var (
		in          engage.PostInput
		contentFile string
	)
	bindInput := func(c *cobra.Command) {
		c.Flags().StringVar(&in.Title, "title", "", "post title")
		c.Flags().StringVar(&in.Slug, "slug", "", "URL slug (derived from the title when empty)")
		c.Flags().StringVar(&in.Excerpt, "excerpt", "", "short summary")
		c.Flags().StringVar(&contentFile, "content-file", "", "markdown file with the post body")
		c.Flags().StringVar(&in.CoverImage, "cover", "", "cover image URL")
		c.Flags().StringVar(&in.Tags, "tags", "", "comma separated tags")
		c.Flags().BoolVar(&in.Published, "published", false, "publish immediately")
	}
	readContent := func() error {
		if contentFile == "" {
			return nil
		}
		data, err := os.ReadFile(contentFile)
		if err != nil {
			return fmt.Errorf("read content: %w", err)
		}
		in.Content = string(data)
		return nil
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List every post including drafts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := authorized(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			page, err := svc.Posts.List(cmd.Context(), engage.ListOptions{IncludeDrafts: true})
			if err != nil {
				return err
			}
			for _, p := range page.Posts {
				state := "draft"
				if p.Published {
					state = "published"
				}
				printf(cmd, "%s  %-9s  %-40s  %s\n", p.ID, state, p.Slug, p.Title)
			}
			return nil
		},
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a post",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := readContent(); err != nil {
				return err
			}
			svc, cleanup, err := authorized(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			p, err := svc.Posts.Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			printf(cmd, "created %s (%s)\n", p.Slug, p.ID)
			return nil
		},
	}
	bindInput(create)

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Replace a post's editable fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return err
			}
			if err := readContent(); err != nil {
				return err
			}
			svc, cleanup, err := authorized(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := svc.Posts.Update(cmd.Context(), id, in); err != nil {
				return err
			}
			printf(cmd, "updated %s\n", id)
			return nil
		},
	}
	bindInput(update)

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return err
			}
			svc, cleanup, err := authorized(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := svc.Posts.Delete(cmd.Context(), id); err != nil {
				return err
			}
			printf(cmd, "deleted %s\n", id)
			return nil
		},
	}

	publish := &cobra.Command{
		Use:   "publish <id>",
		Short: "Toggle a post between draft and published",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return err
			}
			svc, cleanup, err := authorized(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			published, err := svc.Posts.TogglePublished(cmd.Context(), id)
			if err != nil {
				return err
			}
			printf(cmd, "%s published=%t\n", id, published)
			return nil
		},
	}

	cmd.AddCommand(list, create, update, del, publish)
	return cmd
}

func newAdminGuestbookCmd(authorized authorizer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "guestbook",
		Short: "Moderate the guestbook",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a guestbook message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return err
			}
			svc, cleanup, err := authorized(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := svc.Guestbook.Delete(cmd.Context(), id); err != nil {
				return err
			}
			printf(cmd, "deleted %s\n", id)
			return nil
		},
	})
	return cmd
}

func newAdminStatsCmd(authorized authorizer) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show dashboard counters and the latest posts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := authorized(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			s, err := svc.Dashboard.Stats(cmd.Context())
			if err != nil {
				return err
			}
			printf(cmd, "posts       %d (%d published)\n", s.Posts, s.PublishedPosts)
			printf(cmd, "comments    %d\n", s.Comments)
			printf(cmd, "guestbook   %d\n", s.Guestbook)
			printf(cmd, "page views  %d\n", s.PageViews)

			recent, err := svc.Dashboard.RecentPosts(cmd.Context(), 5)
			if err != nil {
				return err
			}
			printf(cmd, "\nrecent posts\n")
			for _, p := range recent {
				printf(cmd, "  %s  %s\n", p.CreatedAt.Format("2006-01-02"), p.Title)
			}
			return nil
		},
	}
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print a bcrypt hash for admin.password_hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := auth.HashPassword(strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			printf(cmd, "%s\n", h)
			return nil
		},
	}
}
