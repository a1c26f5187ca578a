package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"ideas-go/internal/app"
	"ideas-go/internal/model"
)

var ideaCmd = &cobra.Command{
	Use:   "idea",
	Short: "Manage ideas",
}

func printIdeas(w io.Writer, ideas []*model.Idea) {
	for _, i := range ideas {
		mark := " "
		if i.Completed {
			mark = "x"
		}
		star := ""
		if i.Priority {
			star = "*"
		}
		fmt.Fprintf(w, "[%s]\t%s\t%s%s\t%s\n", mark, i.ID, star, i.Text, i.Description)
	}
}

func completionText(ideaID string, idea *model.Idea) string {
	if idea == nil {
		return ideaID + " (deleted)"
	}
	return idea.Text
}

// listIdeas builds a read-only subcommand over one of the façade's idea queries.
func listIdeas(use, short, operation string, query func(ctx context.Context, a *app.App, groupID string, args []string) ([]*model.Idea, error), argsCheck cobra.PositionalArgs) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  argsCheck,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, operation, func(ctx context.Context, a *app.App) error {
				g, err := group(ctx, cmd, a)
				if err != nil {
					return err
				}
				ideas, err := query(ctx, a, g, args)
				if err != nil {
					return err
				}
				w := newTable()
				defer w.Flush()
				printIdeas(w, ideas)
				return nil
			})
		},
	}
}

var ideaListCmd = listIdeas("list", "List a group's ideas", "ListIdeas",
	func(ctx context.Context, a *app.App, g string, _ []string) ([]*model.Idea, error) {
		return a.Service().GetGroupIdeas(ctx, g)
	}, cobra.NoArgs)

var ideaPendingCmd = listIdeas("pending", "List ideas not yet done", "PendingIdeas",
	func(ctx context.Context, a *app.App, g string, _ []string) ([]*model.Idea, error) {
		return a.Service().GetPendingIdeas(ctx, g)
	}, cobra.NoArgs)

var ideaSearchCmd = listIdeas("search QUERY", "Fuzzy-search a group's ideas", "SearchIdeas",
	func(ctx context.Context, a *app.App, g string, args []string) ([]*model.Idea, error) {
		return a.Service().SearchIdeas(ctx, g, args[0])
	}, cobra.ExactArgs(1))

var ideaAddCmd = &cobra.Command{
	Use:   "add TEXT",
	Short: "Add an idea",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, "AddIdea", func(ctx context.Context, a *app.App) error {
			g, err := group(ctx, cmd, a)
			if err != nil {
				return err
			}
			description, _ := cmd.Flags().GetString("description")
			category, _ := cmd.Flags().GetString("category")
			priority, _ := cmd.Flags().GetBool("priority")
			id, err := a.Service().CreateIdea(ctx, model.NewIdea{
				UserID:      a.User().ID,
				GroupID:     g,
				Text:        args[0],
				Description: description,
				CategoryID:  category,
				Priority:    priority,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Added idea %s\n", id)
			return nil
		})
	},
}

var ideaUpdateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Change an idea",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, "UpdateIdea", func(ctx context.Context, a *app.App) error {
			patch := model.IdeaPatch{
				Text:        stringFlag(cmd, "text"),
				Description: stringFlag(cmd, "description"),
				CategoryID:  stringFlag(cmd, "category"),
				Priority:    boolFlag(cmd, "priority"),
				Completed:   boolFlag(cmd, "completed"),
			}
			return a.Service().UpdateIdea(ctx, args[0], patch)
		})
	},
}

var ideaDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete an idea",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, "DeleteIdea", func(ctx context.Context, a *app.App) error {
			return a.Service().DeleteIdea(ctx, args[0])
		})
	},
}

var ideaCompleteCmd = &cobra.Command{
	Use:   "complete ID",
	Short: "Mark an idea done for a day",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, "CompleteIdea", func(ctx context.Context, a *app.App) error {
			date, _ := cmd.Flags().GetString("date")
			if date == "" {
				date = a.Today()
			}
			if err := a.Service().CompleteIdea(ctx, a.User().ID, args[0], date); err != nil {
				return err
			}
			fmt.Printf("Completed %s on %s\n", args[0], date)
			return nil
		})
	},
}

func init() {
	ideaCmd.AddCommand(ideaListCmd)
	ideaCmd.AddCommand(ideaPendingCmd)
	ideaCmd.AddCommand(ideaSearchCmd)
	ideaCmd.AddCommand(ideaAddCmd)
	ideaCmd.AddCommand(ideaUpdateCmd)
	ideaCmd.AddCommand(ideaDeleteCmd)
	ideaCmd.AddCommand(ideaCompleteCmd)

	ideaAddCmd.Flags().StringP("description", "d", "", "Longer description")
	ideaAddCmd.Flags().StringP("category", "c", "", "Category ID")
	ideaAddCmd.Flags().BoolP("priority", "p", false, "Mark as priority")

	ideaUpdateCmd.Flags().String("text", "", "New text")
	ideaUpdateCmd.Flags().StringP("description", "d", "", "New description")
	ideaUpdateCmd.Flags().StringP("category", "c", "", "New category ID (empty clears it)")
	ideaUpdateCmd.Flags().BoolP("priority", "p", false, "Priority flag")
	ideaUpdateCmd.Flags().Bool("completed", false, "Completed flag")

	ideaCompleteCmd.Flags().String("date", "", "Day completed, YYYY-MM-DD (default today)")
}
