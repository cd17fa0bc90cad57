package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nexussync/clubs/apps/dashboard/views"
	"github.com/nexussync/clubs/core/optimistic"
	"github.com/nexussync/clubs/core/post"
)

func (a *app) feedCmd() *cobra.Command {
	var (
		clubID string
		qf     post.QueryFilter
	)
	feedView := func() (*views.Feed, error) {
		deps, err := a.deps()
		if err != nil {
			return nil, err
		}
		return views.NewFeed(deps, a.remote, clubID)
	}

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Read the club posts",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := feedView()
			if err != nil {
				return err
			}
			return show(cmd.Context(), v, func() {
				for _, p := range v.Items(qf) {
					a.printPost(p)
				}
			})
		},
	}
	cmd.PersistentFlags().StringVar(&clubID, "club", "", "only the posts of this club")
	cmd.Flags().StringVar(&qf.Tag, "tag", "", "only posts with this tag")
	cmd.Flags().StringVarP(&qf.Search, "search", "s", "", "search the posts")
	cmd.Flags().BoolVar(&qf.BookmarkedOnly, "bookmarked", false, "only your bookmarks")

	toggle := func(use, short string, op func(*views.Feed) func(context.Context, string) (*optimistic.Pending, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use + " POST_ID",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := feedView()
				if err != nil {
					return err
				}
				err = a.mutate(cmd.Context(), v, func(ctx context.Context) (*optimistic.Pending, error) {
					return op(v)(ctx, args[0])
				})
				if err != nil {
					return err
				}
				if p, ok := v.Get(args[0]); ok {
					a.printPost(p)
				}
				return nil
			},
		}
	}
	cmd.AddCommand(
		toggle("like", "Like a post, or take the like back", func(v *views.Feed) func(context.Context, string) (*optimistic.Pending, error) {
			return v.Like
		}),
		toggle("bookmark", "Bookmark a post, or drop the bookmark", func(v *views.Feed) func(context.Context, string) (*optimistic.Pending, error) {
			return v.Bookmark
		}),
		&cobra.Command{
			Use:   "comment POST_ID TEXT...",
			Short: "Comment a post",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := feedView()
				if err != nil {
					return err
				}
				body := strings.Join(args[1:], " ")
				err = a.mutate(cmd.Context(), v, func(ctx context.Context) (*optimistic.Pending, error) {
					return v.Comment(ctx, args[0], body)
				})
				if err != nil {
					return err
				}
				a.success("Comment posted")
				return nil
			},
		},
	)
	return cmd
}

func (a *app) printPost(p post.Post) {
	heart, mark := "♡", ""
	if p.Liked {
		heart = "♥"
	}
	if p.Bookmarked {
		mark = " 🔖"
	}
	a.printf("[%s] %s · %s%s\n", p.ID, p.ClubName, p.AuthorName, mark)
	a.printf("  %s\n", strings.ReplaceAll(strings.TrimSpace(p.Content), "\n", "\n  "))
	if len(p.Tags) > 0 {
		a.printf("  #%s\n", strings.Join(p.Tags, " #"))
	}
	a.printf("  %s %d  💬 %d\n\n", heart, p.Likes.Int(), p.Comments.Int())
}
