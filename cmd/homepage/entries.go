package main

import (
	"slices"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/rickgao/homepage/internal/engage"
	"github.com/rickgao/homepage/internal/model"
	"github.com/rickgao/homepage/internal/submit"
)

func printEntries(cmd *cobra.Command, entries []model.Entry) {
	for _, e := range entries {
		prefix := ""
		if e.ParentID != nil {
			prefix = "  ↳ "
		}
		printf(cmd, "%s[%s] %s: %s\n", prefix, e.CreatedAt.Local().Format("2006-01-02 15:04"), e.AuthorName, e.Body)
	}
}

// printNew prints entries not printed before, oldest first.
func printNew(cmd *cobra.Command, seen map[uuid.UUID]bool, entries []model.Entry) {
	var fresh []model.Entry
	for _, e := range entries {
		if !seen[e.ID] {
			seen[e.ID] = true
			fresh = append(fresh, e)
		}
	}
	slices.Reverse(fresh)
	printEntries(cmd, fresh)
}

// watch prints live changes until the command's context ends.
func watch(cmd *cobra.Command, start func(onChange func([]model.Entry)) (*engage.LiveList, error)) error {
	seen := make(map[uuid.UUID]bool)
	changes := make(chan []model.Entry, 16)

	list, err := start(func(es []model.Entry) {
		select {
		case changes <- es:
		default:
		}
	})
	if err != nil {
		return err
	}
	defer list.Close()

	printNew(cmd, seen, list.Items())
	for {
		select {
		case <-cmd.Context().Done():
			return nil
		case es := <-changes:
			printNew(cmd, seen, es)
		}
	}
}

func newCommentsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comments",
		Short: "Read and write comments on a post",
	}

	list := &cobra.Command{
		Use:   "list <slug>",
		Short: "List a post's comments, newest first",
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
			entries, err := svc.Comments.List(cmd.Context(), post.ID)
			if err != nil {
				return err
			}
			printEntries(cmd, entries)
			return nil
		},
	}

	var name, replyTo string
	add := &cobra.Command{
		Use:   "add <slug> <message>",
		Short: "Comment on a post (one comment per 30 seconds)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var parent *uuid.UUID
			if replyTo != "" {
				id, err := uuid.Parse(replyTo)
				if err != nil {
					return err
				}
				parent = &id
			}

			svc, cleanup, err := a.openEngage(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			post, err := svc.Posts.BySlug(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			e, err := svc.Comments.Add(cmd.Context(), post.ID, parent, submit.Payload{Name: name, Content: args[1]})
			if err != nil {
				return err
			}
			printf(cmd, "comment %s posted\n", e.ID)
			return nil
		},
	}
	add.Flags().StringVar(&name, "name", "", "your display name")
	add.Flags().StringVar(&replyTo, "reply-to", "", "id of the comment being answered")

	watchCmd := &cobra.Command{
		Use:   "watch <slug>",
		Short: "Follow a post's comments as they arrive",
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
			return watch(cmd, func(onChange func([]model.Entry)) (*engage.LiveList, error) {
				return svc.Comments.Watch(cmd.Context(), post.ID, onChange)
			})
		},
	}

	cmd.AddCommand(list, add, watchCmd)
	return cmd
}

func newGuestbookCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "guestbook",
		Short: "Read and sign the guestbook",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List guestbook messages, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := a.openEngage(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			entries, err := svc.Guestbook.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			printEntries(cmd, entries)
			return nil
		},
	}
	list.Flags().IntVar(&limit, "limit", 50, "messages to show (0 for all)")

	var name string
	sign := &cobra.Command{
		Use:   "sign <message>",
		Short: "Leave a message (one message per 30 seconds)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := a.openEngage(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			e, err := svc.Guestbook.Sign(cmd.Context(), submit.Payload{Name: name, Content: args[0]})
			if err != nil {
				return err
			}
			printf(cmd, "message %s posted\n", e.ID)
			return nil
		},
	}
	sign.Flags().StringVar(&name, "name", "", "your display name")

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow guestbook messages as they arrive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := a.openEngage(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			return watch(cmd, func(onChange func([]model.Entry)) (*engage.LiveList, error) {
				return svc.Guestbook.Watch(cmd.Context(), onChange)
			})
		},
	}

	cmd.AddCommand(list, sign, watchCmd)
	return cmd
}

func newCooldownCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cooldown",
		Short: "Show when you can next comment or sign the guestbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := a.openEngage(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			for _, class := range []submit.ActionClass{submit.ClassComment, submit.ClassGuestbook} {
				av, err := svc.Submitter.CanSubmitNow(cmd.Context(), class)
				if err != nil {
					return err
				}
				if av.Allowed {
					printf(cmd, "%-17s ready\n", class)
				} else {
					printf(cmd, "%-17s wait %ds\n", class, av.RemainingSeconds)
				}
			}
			return nil
		},
	}
}
