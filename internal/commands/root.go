package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/balkashynov/smgantt/internal/calendar"
	"github.com/balkashynov/smgantt/internal/config"
	"github.com/balkashynov/smgantt/internal/db"
	"github.com/balkashynov/smgantt/internal/lock"
	"github.com/balkashynov/smgantt/internal/logger"
	"github.com/balkashynov/smgantt/internal/models"
	"github.com/balkashynov/smgantt/internal/notify"
	"github.com/balkashynov/smgantt/internal/schedule"
)

const dateLayout = "Mon 02/01/2006"

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"

	cfgFile string
	userID  uint

	// serving keeps logs on stderr; other commands log to a file so output stays readable
	serving bool
)

var rootCmd = &cobra.Command{
	Use:   "smgantt",
	Short: "Construction schedule cascade engine",
	Long: `smgantt keeps construction schedules consistent. Moving a task re-dates every
dependent task on the job's working-day calendar, holds freeze everything downstream,
and a daily rollover pushes unfinished work forward to today.`,
}

// app is everything a command needs to talk to the engine
type app struct {
	cfg    config.Config
	log    *zap.Logger
	db     *gorm.DB
	redis  *redis.Client
	engine *schedule.Engine
}

// newApp loads configuration and wires the engine
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if !serving && cfg.Log.Filename == "" {
		if cfg.Log.Filename, err = defaultLogPath(cfg.Database.Path); err != nil {
			return nil, err
		}
	}
	log, err := logger.Init(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise logger: %w", err)
	}

	if err := db.Initialize(cfg.Database.Path); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, db: db.DB}
	days, err := calendar.ParseWorkingDays(cfg.Calendar.WorkingDays...)
	if err != nil {
		return nil, fmt.Errorf("calendar.working_days: %w", err)
	}

	notifiers := notify.Multi{notify.LogNotifier{Log: log}}
	if cfg.Lock.Backend == "redis" || cfg.Notify.RedisChannel != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	if cfg.Notify.RedisChannel != "" {
		notifiers = append(notifiers, notify.NewRedisNotifier(a.redis, cfg.Notify.RedisChannel, log))
	}

	var locker lock.Locker = lock.NewMemoryLocker(cfg.Lock.Wait)
	if cfg.Lock.Backend == "redis" {
		locker = lock.NewRedisLocker(a.redis, cfg.Lock.TTL, cfg.Lock.Wait, log)
	}

	a.engine = schedule.NewEngine(a.db,
		schedule.WithLogger(log),
		schedule.WithLocker(locker),
		schedule.WithNotifier(notifiers),
		schedule.WithWorkingDays(days),
		schedule.WithTimezone(cfg.Rollover.Timezone),
		schedule.WithRegion(cfg.Calendar.Region),
	)
	return a, nil
}

// defaultLogPath puts the log next to the database
func defaultLogPath(dbPath string) (string, error) {
	if dbPath == "" || strings.HasPrefix(dbPath, "file:") || dbPath == ":memory:" {
		p, err := db.DefaultPath()
		if err != nil {
			return "", fmt.Errorf("failed to get log path: %w", err)
		}
		dbPath = p
	}
	return filepath.Join(filepath.Dir(dbPath), "smgantt.log"), nil
}

func (a *app) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	_ = db.Close()
	logger.Sync()
}

func (a *app) actor() models.Actor {
	if userID == 0 {
		return models.SystemActor()
	}
	return models.UserActor(userID)
}

// withEngine wraps a command so it runs with a wired engine and prints its error
func withEngine(fn func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		a, err := newApp()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		defer a.close()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if err := fn(ctx, a, cmd, args); err != nil {
			printError(err)
		}
	}
}

// printError adds the hint that goes with each error kind
func printError(err error) {
	fmt.Printf("Error: %v\n", err)
	var cycle *schedule.CyclicDependencyError
	switch schedule.KindOf(err) {
	case schedule.KindConcurrentModification:
		fmt.Println("Another change to this job is in progress. Try again in a moment.")
	case schedule.KindTaskHeld:
		fmt.Println("Release the hold first: smgantt release <task>")
	case schedule.KindCyclicDependency:
		if errors.As(err, &cycle) {
			fmt.Printf("Task ids in the loop: %v\n", cycle.TaskIDs)
		}
	}
}

// bindFlag lets a command flag override a config key
func bindFlag(key string, cmd *cobra.Command, name string) {
	_ = viper.BindPFlag(key, cmd.Flags().Lookup(name))
}

// parseID parses a positive numeric id argument
func parseID(what, arg string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimPrefix(arg, "#"), 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s id '%s'. Please provide a valid numeric id", what, arg)
	}
	return uint(id), nil
}

func initConfig() {
	if err := config.LoadDotEnv(""); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".smgantt")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
	}
	config.BindEnv()

	// It's fine if no config file is found; we use defaults.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && cfgFile == "" {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		} else if cfgFile != "" {
			fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", cfgFile, err)
		}
	}
}

// SetVersion sets the version information
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default .smgantt.yaml)")
	rootCmd.PersistentFlags().String("db", "", "SQLite database path (default ~/.smgantt/smgantt.db)")
	rootCmd.PersistentFlags().UintVar(&userID, "user", 0, "user id recorded on changes")
	_ = viper.BindPFlag("database.path", rootCmd.PersistentFlags().Lookup("db"))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(rolloverCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(moveCmd)
	rootCmd.AddCommand(holdCmd)
	rootCmd.AddCommand(releaseCmd)
	rootCmd.AddCommand(depsCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(criticalPathCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(helpCmd)
	rootCmd.AddCommand(versionCmd)
}
