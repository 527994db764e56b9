package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"elearn-monitor/internal/config"
	"elearn-monitor/internal/coursecache"
	"elearn-monitor/internal/database"
	"elearn-monitor/internal/email"
	"elearn-monitor/internal/monitor"
	"elearn-monitor/internal/portal"
	"elearn-monitor/internal/scheduler"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "elearn-monitor",
	Short:   "Course announcement monitor for the university e-learning portal",
	Long:    "elearn-monitor watches the announcement forums of your enrolled courses and emails you when something new is posted.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Credentials live in the environment; a .env next to the binary is
		// a convenience for development and optional everywhere else.
		_ = godotenv.Load()

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(coursesCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("elearn-monitor", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/elearn-monitor/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
		} else {
			if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
				return fmt.Errorf("creating config directory: %w", err)
			}
			if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
				return fmt.Errorf("writing config: %w", err)
			}
			fmt.Printf("Created config: %s\n", target)
		}

		store, err := config.NewMonitorStore(monitorConfigPath())
		if err != nil {
			return err
		}
		fmt.Printf("Monitor settings: %s\n", store.Path())
		fmt.Println("Set ELEARN_EMAIL, ELEARN_PASSWORD, SMTP_USER and SMTP_PASS in the environment or a .env file.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and monitoring status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Println("Store:")
		fmt.Printf("  Courses: %d\n", stats.TotalCourses)
		fmt.Printf("  Announcements: %d\n", stats.TotalAnnouncements)
		fmt.Printf("  Awaiting notification: %d\n", stats.Unnotified)

		watermark, err := db.LastCheckTime()
		if err != nil {
			return fmt.Errorf("reading last check time: %w", err)
		}
		if watermark != nil {
			fmt.Printf("\nLast check: %s (%.0f min ago)\n",
				watermark.Local().Format("2006-01-02 15:04:05"),
				time.Since(*watermark).Minutes())
		} else {
			fmt.Println("\nLast check: never")
		}

		store, err := config.NewMonitorStore(monitorConfigPath())
		if err != nil {
			return err
		}
		mc, err := store.Load()
		if err != nil {
			return err
		}
		fmt.Println("\nMonitoring:")
		if mc.MonitorAllCourses {
			fmt.Printf("  All courses (excluding %d)\n", len(mc.ExcludedCourseIDs))
		} else {
			fmt.Printf("  %d selected course(s)\n", len(mc.MonitoredCourseIDs))
		}
		fmt.Printf("  Interval: %s\n", mc.CheckInterval())
		fmt.Printf("  Email: %v\n", mc.Notifications.SendEmail)
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run a single check cycle and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		m, err := buildMonitor(db)
		if err != nil {
			return err
		}

		stats := m.RunCheck(cmd.Context())
		fmt.Printf("\nChecked %d of %d course(s): %d new announcement(s) in %d course(s)\n",
			stats.MonitoredCourses, stats.TotalCourses, stats.TotalNewAnnouncements, stats.CoursesWithNew)
		for _, e := range stats.Errors {
			fmt.Printf("  error: %s\n", e)
		}
		if !stats.Success {
			return fmt.Errorf("check failed")
		}
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Check on the configured interval until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		m, err := buildMonitor(db)
		if err != nil {
			return err
		}
		store, err := config.NewMonitorStore(monitorConfigPath())
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Println("Monitoring started. Press Ctrl+C to stop.")
		err = scheduler.New(m, store).Run(ctx)
		if errors.Is(err, context.Canceled) {
			fmt.Println("\nShutting down.")
			return nil
		}
		return err
	},
}

var refreshCourses bool

var coursesCmd = &cobra.Command{
	Use:   "courses",
	Short: "List enrolled courses",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		var courses []database.Course
		if refreshCourses {
			m, err := buildMonitor(db)
			if err != nil {
				return err
			}
			courses, err = m.RefreshCourses(cmd.Context())
			if err != nil {
				return err
			}
		} else {
			courses, err = db.GetCourses()
			if err != nil {
				return err
			}
			if len(courses) == 0 {
				fmt.Println("No courses known yet. Run with --refresh to fetch from the portal.")
				return nil
			}
		}

		store, err := config.NewMonitorStore(monitorConfigPath())
		if err != nil {
			return err
		}
		for _, c := range courses {
			monitored, err := store.ShouldMonitor(c.ID)
			if err != nil {
				return err
			}
			mark := " "
			if monitored {
				mark = "*"
			}
			fmt.Printf("  [%s] %s %s\n", c.ID, mark, c.Name)
		}
		fmt.Printf("\n%d course(s); * = monitored. Edit %s to change the selection.\n",
			len(courses), monitorConfigPath())
		return nil
	},
}

func init() {
	coursesCmd.Flags().BoolVar(&refreshCourses, "refresh", false, "Fetch the course list from the portal instead of the database")
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return database.Open(filepath.Join(dataDir, "elearn-monitor.db"))
}

// buildMonitor wires the portal client, notifier, cache, and store into a
// monitor. Portal credentials are required; missing SMTP credentials fall
// back to a logging mock so checks still record announcements.
func buildMonitor(db *database.DB) (*monitor.Monitor, error) {
	username := os.Getenv(cfg.Portal.UsernameEnv)
	password := os.Getenv(cfg.Portal.PasswordEnv)
	if username == "" || password == "" {
		return nil, fmt.Errorf("portal credentials missing: set %s and %s", cfg.Portal.UsernameEnv, cfg.Portal.PasswordEnv)
	}

	client := portal.NewClient(cfg.Portal.BaseURL, username, password,
		time.Duration(cfg.Portal.TimeoutSeconds)*time.Second)

	var provider email.Provider
	smtpUser := os.Getenv(cfg.SMTP.UserEnv)
	smtpPass := os.Getenv(cfg.SMTP.PasswordEnv)
	recipient := cfg.SMTP.Recipient
	if recipient == "" {
		recipient = smtpUser
	}
	if smtpUser == "" || smtpPass == "" {
		log.Printf("SMTP credentials missing (%s/%s): emails will be logged, not sent", cfg.SMTP.UserEnv, cfg.SMTP.PasswordEnv)
		provider = email.NewMockProvider()
	} else {
		provider = email.NewSMTPProvider(cfg.SMTP.Host, cfg.SMTP.Port, smtpUser, smtpPass)
	}
	notifier := email.NewSender(provider, recipient)

	store, err := config.NewMonitorStore(monitorConfigPath())
	if err != nil {
		return nil, err
	}
	cache := coursecache.New(filepath.Join(cfg.GetDataDir(), "courses.json"))

	return monitor.New(db, cache, store, client, client, client, notifier), nil
}

func monitorConfigPath() string {
	return filepath.Join(config.ConfigDir(), "monitor.json")
}
