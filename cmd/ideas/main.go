package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"ideas-go/internal/app"
	"ideas-go/internal/config"
	"ideas-go/internal/encryption"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func readConfig() (*config.Config, map[string]string, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, nil, fmt.Errorf("getting defaults: %w", err)
	}
	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, defaults, nil
}

// newApp reads the config and creates an App. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "AddIdea", "Serve").
func newApp(ctx context.Context, operation string) (*app.App, error) {
	cfg, defaults, err := readConfig()
	if err != nil {
		return nil, err
	}
	a, err := app.NewApp(ctx, cfg, operation, app.Options{Session: defaults["session"]})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// run opens the app, applies the startup failover checks and calls fn.
func run(cmd *cobra.Command, operation string, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, operation)
	if err != nil {
		return err
	}
	defer a.Close()
	a.SetParameters(strings.Join(os.Args[1:], " "))

	if err := a.Start(ctx); err != nil {
		a.Fail(err)
		return err
	}
	err = fn(ctx, a)
	a.Fail(err)
	if a.Service().IsDemoMode() {
		fmt.Fprintln(os.Stderr, "demo mode: showing sample data (run `ideas mode online` to reconnect)")
	}
	return err
}

// group resolves the --group flag for commands that act on one group.
func group(ctx context.Context, cmd *cobra.Command, a *app.App) (string, error) {
	flag, _ := cmd.Flags().GetString("group")
	return a.ResolveGroup(ctx, flag)
}

func newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
}

var rootCmd = &cobra.Command{
	Use:          "ideas",
	Short:        "Shared daily ideas, with an offline demo fallback",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		email, _ := cmd.Flags().GetString("email")
		name, _ := cmd.Flags().GetString("name")
		user := config.UserConfig{ID: uuid.New().String(), Email: email, Name: name}
		cfg := config.NewConfig(user, defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("User ID:  %s\n", user.ID)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, defaults, err := readConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("User:          %s <%s> (%s)\n", cfg.User.Name, cfg.User.Email, cfg.User.ID)
		fmt.Printf("Default group: %s\n", cfg.User.DefaultGroup)
		fmt.Printf("Base Dir:      %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:       %s\n", cfg.LogDir)
		fmt.Printf("Remote:        %s\n", describeRemote(cfg.Remote))
		fmt.Printf("State:         %s %s\n", cfg.State.Type, cfg.State.StateDir)
		fmt.Printf("Failover:      threshold=%d single_strike_reads=%t reset_on_success=%t\n",
			cfg.Failover.Threshold, cfg.Failover.SingleStrikeReads, cfg.Failover.ResetOnSuccess)
		fmt.Printf("Probe:         %q every %s\n", cfg.Connectivity.ProbeAddress, cfg.Connectivity.Interval.Duration)
		fmt.Printf("Session:       %s\n", defaults["session"])
		return nil
	},
}

func describeRemote(r config.RemoteConfig) string {
	switch r.Type {
	case "sqlite":
		return "sqlite " + r.DataDir
	case "s3":
		s := fmt.Sprintf("s3://%s/%s", r.S3Bucket, r.S3Prefix)
		if r.Encrypted {
			s += " (encrypted)"
		}
		return s
	default:
		return r.Type
	}
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Generate the key pair used to encrypt remote documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := readConfig()
		if err != nil {
			return err
		}
		enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
		if err != nil {
			return err
		}
		if enc.IsConfigured() {
			return fmt.Errorf("keys already exist at %s", filepath.Dir(cfg.Encryption.PublicKeyPath))
		}

		p1, err := app.ReadPassphrase("New passphrase: ")
		if err != nil {
			return err
		}
		p2, err := app.ReadPassphrase("Repeat passphrase: ")
		if err != nil {
			return err
		}
		if p1 != p2 {
			return fmt.Errorf("passphrases do not match")
		}
		if err := enc.Setup(p1); err != nil {
			return fmt.Errorf("generating keys: %w", err)
		}
		fmt.Printf("Keys written to %s\n", filepath.Dir(cfg.Encryption.PublicKeyPath))
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import [FILE]",
	Short: "Add one idea per line from FILE (or stdin)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, "ImportIdeas", func(ctx context.Context, a *app.App) error {
			g, err := group(ctx, cmd, a)
			if err != nil {
				return err
			}
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			category, _ := cmd.Flags().GetString("category")
			n, err := a.ImportFile(ctx, g, path, category)
			if err != nil {
				return err
			}
			fmt.Printf("Imported %d ideas\n", n)
			return nil
		})
	},
}

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Show completed ideas by day",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, "Calendar", func(ctx context.Context, a *app.App) error {
			g, err := group(ctx, cmd, a)
			if err != nil {
				return err
			}

			w := newTable()
			defer w.Flush()

			if date, _ := cmd.Flags().GetString("date"); date != "" {
				done, err := a.Service().GetDailyCompletions(ctx, g, date)
				if err != nil {
					return err
				}
				for _, c := range done {
					fmt.Fprintf(w, "%s\t%s\t%s\n", c.Date, c.CompletedBy, completionText(c.IdeaID, c.Idea))
				}
				return nil
			}

			days, err := a.Service().GetCalendar(ctx, g)
			if err != nil {
				return err
			}
			for _, d := range days {
				for _, c := range d.Completions {
					fmt.Fprintf(w, "%s\t%s\t%s\n", d.Date, c.CompletedBy, completionText(c.IdeaID, c.Idea))
				}
			}
			return nil
		})
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Watch connectivity and serve failover metrics until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, "Serve", func(ctx context.Context, a *app.App) error {
			fmt.Println("Watching connectivity; press Ctrl-C to stop")
			return a.Serve(ctx)
		})
	},
}

var backupCmd = &cobra.Command{
	Use:   "backup [DEST]",
	Short: "Copy the SQLite remote to DEST",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, "Backup", func(ctx context.Context, a *app.App) error {
			dest := ""
			if len(args) == 1 {
				dest = args[0]
			} else {
				_, defaults, err := readConfig()
				if err != nil {
					return err
				}
				dir := filepath.Join(defaults["base_dir"], "backups")
				if err := os.MkdirAll(dir, 0700); err != nil {
					return fmt.Errorf("creating backup dir: %w", err)
				}
				dest = filepath.Join(dir, "ideas-"+time.Now().UTC().Format("20060102T150405Z")+".db")
			}
			if err := a.Backup(dest); err != nil {
				return err
			}
			fmt.Printf("Backed up to %s\n", dest)
			return nil
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("group", "g", "", "Group ID (default: user.default_group or your only group)")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configKeysCmd)
	configInitCmd.Flags().String("email", "", "Your email address")
	configInitCmd.Flags().String("name", "", "Your display name")

	importCmd.Flags().StringP("category", "c", "", "Category ID for the imported ideas")
	calendarCmd.Flags().String("date", "", "Show a single day (YYYY-MM-DD)")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(groupCmd)
	rootCmd.AddCommand(ideaCmd)
	rootCmd.AddCommand(categoryCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(calendarCmd)
	rootCmd.AddCommand(modeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(backupCmd)
}
