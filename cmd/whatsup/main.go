package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"whatsup-go/internal/app"
	"whatsup-go/internal/config"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file from the default location.
func loadConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// newApp reads the config and creates a WhatsupApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "AddWatch", "Run").
func newApp(operation string) (*app.WhatsupApp, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewWhatsupApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

func formatQuiet(until *time.Time) string {
	if until == nil {
		return "not quiet"
	}
	return "quiet until " + until.Local().Format("2006-01-02 15:04")
}

var rootCmd = &cobra.Command{
	Use:   "whatsup",
	Short: "Watch web pages and get told when they change",
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

		cfg := config.NewConfig(defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		fmt.Println("Run 'whatsup db migrate' to create the database.")
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:       %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:        %s\n", cfg.LogDir)
		fmt.Printf("Log Level:      %s\n", cfg.LogLevel)
		fmt.Printf("Database:       %s %s\n", cfg.Database.Type, cfg.Database.DataDir)
		fmt.Printf("Tick:           %s\n", cfg.Scheduler.Tick)
		fmt.Printf("Check Interval: %s\n", cfg.Scheduler.CheckInterval)
		fmt.Printf("Batch Size:     %d\n", cfg.Scheduler.BatchSize)
		fmt.Printf("Concurrency:    %d\n", cfg.Scheduler.Concurrency)
		fmt.Printf("Fetch Timeout:  %s\n", cfg.Scheduler.FetchTimeout)
		fmt.Printf("Notifier:       %s\n", cfg.Notifier.Type)
		fmt.Printf("In-flight:      %s (lease %s)\n", cfg.InFlight.Type, cfg.InFlight.LeaseTTL)
		if cfg.Metrics.Listen != "" {
			fmt.Printf("Metrics:        %s\n", cfg.Metrics.Listen)
		}
		return nil
	},
}

// db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the database",
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if err := app.MigrateDatabase(cfg.Database); err != nil {
			return err
		}

		fmt.Println("Database is up to date.")
		return nil
	},
}

// user command
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userAddCmd = &cobra.Command{
	Use:   "add ADDRESS",
	Short: "Register a notification address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("AddUser")
		if err != nil {
			return err
		}
		defer a.Close()

		user, err := a.AddUser(args[0])
		if err != nil {
			return fmt.Errorf("adding user: %w", err)
		}

		fmt.Printf("User: %s\n", user.Address)
		return nil
	},
}

var userPresenceCmd = &cobra.Command{
	Use:   "presence ADDRESS PRESENCE",
	Short: "Set a user's presence (online, away, dnd, offline, ...)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SetPresence")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.SetPresence(args[0], args[1]); err != nil {
			return fmt.Errorf("setting presence: %w", err)
		}

		fmt.Printf("%s is %s\n", args[0], args[1])
		return nil
	},
}

var userQuietCmd = &cobra.Command{
	Use:   "quiet ADDRESS DURATION",
	Short: "Silence all notifications for a user (\"off\" clears)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("QuietUser")
		if err != nil {
			return err
		}
		defer a.Close()

		until, err := a.QuietUser(args[0], args[1])
		if err != nil {
			return err
		}

		fmt.Printf("%s: %s\n", args[0], formatQuiet(until))
		return nil
	},
}

var userStatusCmd = &cobra.Command{
	Use:   "status ADDRESS",
	Short: "Show a user's presence, activity and watch count",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("UserStatus")
		if err != nil {
			return err
		}
		defer a.Close()

		st, err := a.UserStatus(args[0])
		if err != nil {
			return err
		}

		active := "Inactive"
		if st.Active {
			active = "Active"
		}
		fmt.Printf("Address:  %s\n", st.Address)
		fmt.Printf("Presence: %s\n", st.Presence)
		fmt.Printf("Status:   %s, %s\n", active, formatQuiet(st.QuietUntil))
		fmt.Printf("Watching %d URL(s).\n", st.Watches)
		return nil
	},
}

func userActiveCmd(use, short string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ADDRESS",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp("SetUserActive")
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.SetUserActive(args[0], active); err != nil {
				return err
			}

			fmt.Printf("%s: %s\n", args[0], use+"d")
			return nil
		},
	}
}

// watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Manage watches",
}

var watchAddCmd = &cobra.Command{
	Use:   "add ADDRESS URL",
	Short: "Start watching a URL",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("AddWatch")
		if err != nil {
			return err
		}
		defer a.Close()

		w, err := a.AddWatch(args[0], args[1])
		if err != nil {
			return fmt.Errorf("adding watch: %w", err)
		}

		fmt.Printf("Watching %s\n", w.Address)
		return nil
	},
}

var watchListCmd = &cobra.Command{
	Use:   "list ADDRESS",
	Short: "List a user's watches",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListWatches")
		if err != nil {
			return err
		}
		defer a.Close()

		watches, err := a.ListWatches(args[0])
		if err != nil {
			return err
		}

		if len(watches) == 0 {
			fmt.Println("No watches.")
			return nil
		}

		for _, w := range watches {
			fmt.Printf("%-4s %s\n", w.Emoticon(), w.Address)
		}
		return nil
	},
}

var watchInspectCmd = &cobra.Command{
	Use:   "inspect ADDRESS URL",
	Short: "Show a watch and its rules",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("InspectWatch")
		if err != nil {
			return err
		}
		defer a.Close()

		w, err := a.InspectWatch(args[0], args[1])
		if err != nil {
			return err
		}

		lastUpdate := "never"
		if w.LastUpdate != nil {
			lastUpdate = w.LastUpdate.Local().Format("2006-01-02 15:04:05")
		}

		fmt.Printf("%s %s\n", w.Emoticon(), w.Address)
		fmt.Printf("Status:  %s\n", w.StatusString())
		fmt.Printf("Checked: %s\n", lastUpdate)
		fmt.Printf("Quiet:   %s\n", formatQuiet(w.QuietUntil))
		for _, r := range w.Rules {
			fmt.Printf("%s %s\n", r.Kind, r.Pattern)
		}
		return nil
	},
}

var watchDeleteCmd = &cobra.Command{
	Use:   "delete ADDRESS URL",
	Short: "Stop watching a URL",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("DeleteWatch")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.DeleteWatch(args[0], args[1]); err != nil {
			return err
		}

		fmt.Printf("No longer watching %s\n", args[1])
		return nil
	},
}

var watchQuietCmd = &cobra.Command{
	Use:   "quiet ADDRESS URL DURATION",
	Short: "Silence notifications for one watch (\"off\" clears)",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("QuietWatch")
		if err != nil {
			return err
		}
		defer a.Close()

		until, err := a.QuietWatch(args[0], args[1], args[2])
		if err != nil {
			return err
		}

		fmt.Printf("%s: %s\n", args[1], formatQuiet(until))
		return nil
	},
}

func watchActiveCmd(use, short string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ADDRESS URL",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp("SetWatchActive")
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.SetWatchActive(args[0], args[1], active); err != nil {
				return err
			}

			fmt.Printf("%s: %sd\n", args[1], use)
			return nil
		},
	}
}

// rule command
var ruleCmd = &cobra.Command{
	Use:   "rule",
	Short: "Manage content rules",
}

var ruleAddCmd = &cobra.Command{
	Use:   "add ADDRESS URL PATTERN",
	Short: "Require (or with --exclude forbid) a pattern in the page",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		exclude, _ := cmd.Flags().GetBool("exclude")

		a, err := newApp("AddRule")
		if err != nil {
			return err
		}
		defer a.Close()

		r, err := a.AddRule(args[0], args[1], args[2], exclude)
		if err != nil {
			return fmt.Errorf("adding rule: %w", err)
		}

		fmt.Printf("%s %s\n", r.Kind, r.Pattern)
		return nil
	},
}

// get command
var getCmd = &cobra.Command{
	Use:   "get URL",
	Short: "Fetch a page once and report its size",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Get")
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Get(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("error getting the page: %w", err)
		}

		fmt.Printf("Got %d bytes in %.2fs\n", res.Bytes, res.Elapsed.Seconds())
		return nil
	},
}

// check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one check cycle and wait for it to finish",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Check")
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.CheckOnce(cmd.Context())
		if err != nil {
			return fmt.Errorf("check failed: %w", err)
		}

		fmt.Printf("Checked %d of %d due watch(es), %d already in flight\n",
			res.Dispatched, res.Selected, res.Skipped)
		return nil
	},
}

// run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Check watches until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Run")
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return a.Run(ctx)
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View check cycle history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("GetHistory")
		if err != nil {
			return err
		}
		defer a.Close()

		runs, err := a.GetHistory(limit)
		if err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Println("No check cycles recorded.")
			return nil
		}

		for _, r := range runs {
			status := "ok"
			if r.Error != "" {
				status = "error: " + r.Error
			}
			fmt.Printf("#%d  %s  selected:%d  dispatched:%d  skipped:%d  %s\n",
				r.ID,
				r.StartedAt.Local().Format("2006-01-02 15:04:05"),
				r.Selected,
				r.Dispatched,
				r.Skipped,
				status,
			)
		}
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// db subcommands
	dbCmd.AddCommand(dbMigrateCmd)

	// user subcommands
	userCmd.AddCommand(userAddCmd)
	userCmd.AddCommand(userPresenceCmd)
	userCmd.AddCommand(userQuietCmd)
	userCmd.AddCommand(userStatusCmd)
	userCmd.AddCommand(userActiveCmd("activate", "Resume checks for a user", true))
	userCmd.AddCommand(userActiveCmd("deactivate", "Pause all checks for a user", false))

	// watch subcommands
	watchCmd.AddCommand(watchAddCmd)
	watchCmd.AddCommand(watchListCmd)
	watchCmd.AddCommand(watchInspectCmd)
	watchCmd.AddCommand(watchDeleteCmd)
	watchCmd.AddCommand(watchQuietCmd)
	watchCmd.AddCommand(watchActiveCmd("enable", "Resume checks for a watch", true))
	watchCmd.AddCommand(watchActiveCmd("disable", "Pause checks for a watch", false))

	// rule subcommands
	ruleCmd.AddCommand(ruleAddCmd)
	ruleAddCmd.Flags().BoolP("exclude", "x", false, "Fail the check when the pattern is found")

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(ruleCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of cycles to show")
}
