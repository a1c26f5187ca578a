package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"ideas-go/internal/app"
	"ideas-go/internal/model"
)

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Manage groups",
}

var groupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your groups",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, "ListGroups", func(ctx context.Context, a *app.App) error {
			groups, err := a.Service().GetUserGroups(ctx, a.User().ID)
			if err != nil {
				return err
			}
			w := newTable()
			defer w.Flush()
			fmt.Fprintln(w, "ID\tNAME\tINVITE\tMEMBERS\tROLE")
			for _, g := range groups {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", g.ID, g.Name, g.InviteCode, g.MemberCount, g.UserRole)
			}
			return nil
		})
	},
}

var groupCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a group you own",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, "CreateGroup", func(ctx context.Context, a *app.App) error {
			description, _ := cmd.Flags().GetString("description")
			color, _ := cmd.Flags().GetString("color")
			id, err := a.Service().CreateGroup(ctx, model.NewGroup{
				UserID:      a.User().ID,
				Name:        args[0],
				Description: description,
				Color:       color,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Created group %s\n", id)
			return nil
		})
	},
}

var groupJoinCmd = &cobra.Command{
	Use:   "join CODE",
	Short: "Join a group by invite code or invite link",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, "JoinGroup", func(ctx context.Context, a *app.App) error {
			if err := a.Service().JoinGroup(ctx, a.User().ID, args[0]); err != nil {
				return err
			}
			fmt.Println("Joined")
			return nil
		})
	},
}

var groupUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Rename or recolor a group",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, "UpdateGroup", func(ctx context.Context, a *app.App) error {
			g, err := group(ctx, cmd, a)
			if err != nil {
				return err
			}
			var patch model.GroupPatch
			patch.Name = stringFlag(cmd, "name")
			patch.Description = stringFlag(cmd, "description")
			patch.Color = stringFlag(cmd, "color")
			return a.Service().UpdateGroup(ctx, g, patch)
		})
	},
}

var groupLeaveCmd = &cobra.Command{
	Use:   "leave",
	Short: "Leave a group",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, "LeaveGroup", func(ctx context.Context, a *app.App) error {
			g, err := group(ctx, cmd, a)
			if err != nil {
				return err
			}
			return a.Service().LeaveGroup(ctx, g, a.User().ID)
		})
	},
}

var groupRoleCmd = &cobra.Command{
	Use:   "role USER_ID ROLE",
	Short: "Set a member's role (owner, admin or member)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		role := model.Role(args[1])
		if !role.Valid() {
			return fmt.Errorf("invalid role %q", args[1])
		}
		return run(cmd, "UpdateMemberRole", func(ctx context.Context, a *app.App) error {
			g, err := group(ctx, cmd, a)
			if err != nil {
				return err
			}
			return a.Service().UpdateMemberRole(ctx, g, args[0], role)
		})
	},
}

// stringFlag returns a pointer to the flag's value if it was set.
func stringFlag(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}

func boolFlag(cmd *cobra.Command, name string) *bool {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetBool(name)
	return &v
}

func init() {
	groupCmd.AddCommand(groupListCmd)
	groupCmd.AddCommand(groupCreateCmd)
	groupCmd.AddCommand(groupJoinCmd)
	groupCmd.AddCommand(groupUpdateCmd)
	groupCmd.AddCommand(groupLeaveCmd)
	groupCmd.AddCommand(groupRoleCmd)

	groupCreateCmd.Flags().String("description", "", "Group description")
	groupCreateCmd.Flags().String("color", "", "Hex color (default "+model.DefaultColor+")")
	groupUpdateCmd.Flags().String("name", "", "New name")
	groupUpdateCmd.Flags().String("description", "", "New description")
	groupUpdateCmd.Flags().String("color", "", "New hex color")
}
