package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"ideas-go/internal/app"
	"ideas-go/internal/model"
)

var categoryCmd = &cobra.Command{
	Use:   "category",
	Short: "Manage categories",
}

var categoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a group's categories",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, "ListCategories", func(ctx context.Context, a *app.App) error {
			g, err := group(ctx, cmd, a)
			if err != nil {
				return err
			}
			cats, err := a.Service().GetGroupCategories(ctx, g)
			if err != nil {
				return err
			}
			w := newTable()
			defer w.Flush()
			for _, c := range cats {
				fmt.Fprintf(w, "%s\t%s %s\t%s\n", c.ID, c.Icon, c.Name, c.Color)
			}
			return nil
		})
	},
}

var categoryAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Add a category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, "AddCategory", func(ctx context.Context, a *app.App) error {
			g, err := group(ctx, cmd, a)
			if err != nil {
				return err
			}
			color, _ := cmd.Flags().GetString("color")
			icon, _ := cmd.Flags().GetString("icon")
			id, err := a.Service().CreateCategory(ctx, model.NewCategory{
				UserID:  a.User().ID,
				GroupID: g,
				Name:    args[0],
				Color:   color,
				Icon:    icon,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Added category %s\n", id)
			return nil
		})
	},
}

var categoryUpdateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Change a category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, "UpdateCategory", func(ctx context.Context, a *app.App) error {
			patch := model.CategoryPatch{
				Name:  stringFlag(cmd, "name"),
				Color: stringFlag(cmd, "color"),
				Icon:  stringFlag(cmd, "icon"),
			}
			if cmd.Flags().Changed("order") {
				order, _ := cmd.Flags().GetInt64("order")
				patch.Order = &order
			}
			return a.Service().UpdateCategory(ctx, args[0], patch)
		})
	},
}

var categoryDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a category; its ideas become uncategorized",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, "DeleteCategory", func(ctx context.Context, a *app.App) error {
			return a.Service().DeleteCategory(ctx, args[0])
		})
	},
}

func init() {
	categoryCmd.AddCommand(categoryListCmd)
	categoryCmd.AddCommand(categoryAddCmd)
	categoryCmd.AddCommand(categoryUpdateCmd)
	categoryCmd.AddCommand(categoryDeleteCmd)

	categoryAddCmd.Flags().String("color", "", "Hex color")
	categoryAddCmd.Flags().String("icon", "", "Icon (default "+model.DefaultCategoryIcon+")")
	categoryUpdateCmd.Flags().String("name", "", "New name")
	categoryUpdateCmd.Flags().String("color", "", "New hex color")
	categoryUpdateCmd.Flags().String("icon", "", "New icon")
	categoryUpdateCmd.Flags().Int64("order", 0, "New sort position")
}
