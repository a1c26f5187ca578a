package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"ideas-go/internal/app"
)

var modeCmd = &cobra.Command{
	Use:   "mode",
	Short: "Inspect or switch between the remote and demo data",
}

var modeStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show failover state and remote health",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, "ModeStatus", func(ctx context.Context, a *app.App) error {
			st, err := a.Status(ctx)
			if err != nil {
				return err
			}
			mode := "remote"
			if st.Active {
				mode = "demo"
			}
			remote := "ok"
			if st.RemoteErr != nil {
				remote = st.RemoteErr.Error()
			}
			fmt.Printf("Mode:     %s\n", mode)
			fmt.Printf("Online:   %t\n", st.Online)
			fmt.Printf("Remote:   %s\n", remote)
			fmt.Printf("Failures: %d of %d this session\n", st.Count, st.Threshold)
			if st.RemoteMarkedUnavailable {
				fmt.Println("Remote marked unavailable on this device")
			}
			if st.Group != nil {
				fmt.Printf("Group:    %s (%s)\n", st.Group.Name, st.Group.ID)
			}
			return nil
		})
	},
}

var modeDemoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Switch to demo data",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, "ActivateFailover", func(ctx context.Context, a *app.App) error {
			reason, _ := cmd.Flags().GetString("reason")
			return a.Service().ActivateFailover(reason)
		})
	},
}

var modeOfflineCmd = &cobra.Command{
	Use:   "offline",
	Short: "Mark the remote unavailable on this device",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, "MarkRemoteUnavailable", func(ctx context.Context, a *app.App) error {
			return a.Service().MarkRemoteUnavailable()
		})
	},
}

var modeOnlineCmd = &cobra.Command{
	Use:   "online",
	Short: "Return to the remote once it answers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, "DeactivateFailover", func(ctx context.Context, a *app.App) error {
			if err := a.GoOnline(ctx); err != nil {
				return err
			}
			fmt.Println("Using remote data")
			return nil
		})
	},
}

func init() {
	modeCmd.AddCommand(modeStatusCmd)
	modeCmd.AddCommand(modeDemoCmd)
	modeCmd.AddCommand(modeOfflineCmd)
	modeCmd.AddCommand(modeOnlineCmd)

	modeDemoCmd.Flags().String("reason", "manual", "Reason recorded with the switch")
}
