// Command notifyctl is the operator CLI for the notification engine. It talks
// to the database directly and uses the same config as the gateway.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/TheJudgeY/FoodDiary-sub001/internal/config"
	"github.com/TheJudgeY/FoodDiary-sub001/internal/db"
	"github.com/TheJudgeY/FoodDiary-sub001/internal/events"
	"github.com/TheJudgeY/FoodDiary-sub001/internal/notification"
	"github.com/TheJudgeY/FoodDiary-sub001/internal/observ"
	"github.com/TheJudgeY/FoodDiary-sub001/internal/sqs"
	"github.com/TheJudgeY/FoodDiary-sub001/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// env is built once per invocation by the root command's pre-run hook.
type env struct {
	cfg    *config.Config
	logger *zap.Logger

	database    *db.DB
	prefs       *db.PreferencesRepository
	clock       notification.Clock
	service     *notification.Service
	serviceErr  error
	serviceInit bool
}

func (e *env) notificationService(ctx context.Context) (*notification.Service, error) {
	if e.serviceInit {
		return e.service, e.serviceErr
	}
	e.serviceInit = true

	database, err := db.New(ctx, db.Config{
		Host:     e.cfg.DBHost,
		Port:     e.cfg.DBPort,
		User:     e.cfg.DBUser,
		Password: e.cfg.DBPassword,
		Database: e.cfg.DBName,
		SSLMode:  e.cfg.DBSSLMode,
		MaxConns: 4,
	}, e.logger)
	if err != nil {
		e.serviceErr = fmt.Errorf("connect to database: %w", err)
		return nil, e.serviceErr
	}

	e.database = database
	e.prefs = db.NewPreferencesRepository(database, e.logger)
	e.clock = notification.SystemClock{Location: e.cfg.Location}
	// same event sinks as the gateway, so CLI-created notifications are published too
	sinks := events.Build(ctx, e.cfg, e.logger)
	e.service = notification.NewService(db.NewNotificationRepository(database, e.logger), e.prefs, e.clock, e.logger, sinks.ServiceOptions()...)
	return e.service, nil
}

func (e *env) close() {
	if e.database != nil {
		e.database.Close()
	}
	if e.logger != nil {
		_ = e.logger.Sync()
	}
}

func newRootCmd() *cobra.Command {
	e := &env{}

	root := &cobra.Command{
		Use:           "notifyctl",
		Short:         "Operate the FoodDiary notification engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			verbose, _ := cmd.Flags().GetBool("verbose")
			level := "warn"
			if verbose {
				level = "debug"
			}
			logger, err := observ.NewLogger(cfg.Env, level)
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			e.cfg, e.logger = cfg, logger
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			e.close()
		},
	}
	root.PersistentFlags().BoolP("verbose", "v", false, "debug logging")

	root.AddCommand(
		newSendCmd(e),
		newUnreadCmd(e),
		newCleanupCmd(e),
		newPrefsCmd(e),
		newTickCmd(e),
		newEventsCmd(e),
	)
	return root
}

func userFlag(cmd *cobra.Command) (uuid.UUID, error) {
	raw, _ := cmd.Flags().GetString("user")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("--user must be a UUID: %w", err)
	}
	return id, nil
}

func addUserFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("user", "u", "", "user id")
	_ = cmd.MarkFlagRequired("user")
}

// Kinds accepted by send, in help order.
var sendKinds = []string{"water", "meal", "calorie-limit", "goal-achievement", "weekly-progress", "daily-summary"}

// Generator is the part of notification.Service that send drives.
type Generator interface {
	CreateWaterReminder(ctx context.Context, userID uuid.UUID) (*notification.Notification, error)
	CreateMealReminder(ctx context.Context, userID uuid.UUID, localTime notification.TimeOfDay) (*notification.Notification, error)
	CreateCalorieLimitWarning(ctx context.Context, userID uuid.UUID) (*notification.Notification, error)
	CreateGoalAchievementNotification(ctx context.Context, userID uuid.UUID) (*notification.Notification, error)
	CreateWeeklyProgressNotification(ctx context.Context, userID uuid.UUID) (*notification.Notification, error)
	CreateDailySummaryNotification(ctx context.Context, userID uuid.UUID) (*notification.Notification, error)
}

// generate dispatches kind to its creator. mealTime is only read for meal.
func generate(ctx context.Context, g Generator, kind string, userID uuid.UUID, mealTime string) (*notification.Notification, error) {
	switch kind {
	case "water":
		return g.CreateWaterReminder(ctx, userID)
	case "meal":
		at, err := notification.ParseTimeOfDay(mealTime)
		if err != nil {
			return nil, err
		}
		return g.CreateMealReminder(ctx, userID, at)
	case "calorie-limit":
		return g.CreateCalorieLimitWarning(ctx, userID)
	case "goal-achievement":
		return g.CreateGoalAchievementNotification(ctx, userID)
	case "weekly-progress":
		return g.CreateWeeklyProgressNotification(ctx, userID)
	case "daily-summary":
		return g.CreateDailySummaryNotification(ctx, userID)
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", notification.ErrInvalidInput, kind)
	}
}

func newSendCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:       "send <kind>",
		Short:     "Generate one notification through the preference gate",
		Long:      fmt.Sprintf("Generate one notification. kind is one of %v.", sendKinds),
		Args:      cobra.ExactArgs(1),
		ValidArgs: sendKinds,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := userFlag(cmd)
			if err != nil {
				return err
			}
			svc, err := e.notificationService(cmd.Context())
			if err != nil {
				return err
			}
			mealTime, _ := cmd.Flags().GetString("time")

			n, err := generate(cmd.Context(), svc, args[0], userID, mealTime)
			if err != nil {
				return err
			}
			if n == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "suppressed by user preferences")
				return nil
			}
			return printJSON(cmd.OutOrStdout(), n)
		},
	}
	addUserFlag(cmd)
	cmd.Flags().String("time", "", "local meal time HH:MM (meal only)")
	return cmd
}

func newUnreadCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unread",
		Short: "Show a user's unread count and newest unread notifications",
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := userFlag(cmd)
			if err != nil {
				return err
			}
			svc, err := e.notificationService(cmd.Context())
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")

			count, err := svc.GetUnreadNotificationCount(cmd.Context(), userID)
			if err != nil {
				return err
			}
			items, err := svc.GetUserNotifications(cmd.Context(), userID, 1, limit, false)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d unread\n", count)
			for _, n := range items {
				fmt.Fprintf(out, "%s  %-8s  %-22s  %s\n", n.CreatedAt.Format(time.RFC3339), n.Priority, n.Type, n.Title)
			}
			return nil
		},
	}
	addUserFlag(cmd)
	cmd.Flags().Int("limit", notification.DefaultPageSize, "notifications to list")
	return cmd
}

func newCleanupCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete a user's read notifications past the retention window",
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := userFlag(cmd)
			if err != nil {
				return err
			}
			svc, err := e.notificationService(cmd.Context())
			if err != nil {
				return err
			}
			deleted, err := svc.CleanupOldReadNotifications(cmd.Context(), userID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d notifications read before %s\n",
				deleted, e.clock.Now().Add(-notification.RetentionWindow).Format(time.RFC3339))
			return nil
		},
	}
	addUserFlag(cmd)
	return cmd
}

func newPrefsCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show a user's notification preferences, provisioning defaults if needed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := userFlag(cmd)
			if err != nil {
				return err
			}
			svc, err := e.notificationService(cmd.Context())
			if err != nil {
				return err
			}
			prefs, err := svc.GetPreferences(cmd.Context(), userID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), prefs)
		},
	}
	addUserFlag(cmd)
	return cmd
}

func newTickCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "tick",
		Short: "Run one scheduler pass now, without slot claims",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := e.notificationService(cmd.Context())
			if err != nil {
				return err
			}
			scheduler := worker.New(e.prefs, svc, e.clock, worker.Config{
				Interval:    e.cfg.SchedulerInterval,
				BatchSize:   e.cfg.SchedulerBatchSize,
				Concurrency: e.cfg.SchedulerConcurrency,
				Rate:        e.cfg.SchedulerRate,
				MaxCatchUp:  e.cfg.SchedulerMaxCatchUp,
				Schedule: worker.Schedule{
					DailySummaryAt:    e.cfg.DailySummaryTime,
					WeeklyProgressAt:  e.cfg.WeeklyProgressTime,
					WeeklyProgressDay: time.Sunday,
					CleanupAt:         e.cfg.CleanupTime,
				},
			}, e.logger)
			return scheduler.Tick(cmd.Context())
		},
	}
}

func newEventsCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print notification.created events waiting on the SQS queue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if e.cfg.SQSQueueURL == "" {
				return fmt.Errorf("SQS_QUEUE_URL is not set")
			}
			client, err := sqs.NewClient(cmd.Context(), sqs.Config{
				Region:   e.cfg.AWSRegion,
				QueueURL: e.cfg.SQSQueueURL,
				Endpoint: e.cfg.AWSEndpoint,
			})
			if err != nil {
				return err
			}
			consumer := sqs.NewConsumer(client, e.cfg.SQSQueueURL, e.logger)

			maxMessages, _ := cmd.Flags().GetInt32("max")
			ack, _ := cmd.Flags().GetBool("ack")

			received, err := consumer.Receive(cmd.Context(), maxMessages)
			if err != nil {
				return err
			}
			for _, msg := range received {
				if err := printJSON(cmd.OutOrStdout(), msg.Event); err != nil {
					return err
				}
				if ack {
					if err := consumer.Delete(cmd.Context(), msg.ReceiptHandle); err != nil {
						return err
					}
				}
			}
			if len(received) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no events")
			}
			return nil
		},
	}
	cmd.Flags().Int32("max", 10, "messages to receive (1-10)")
	cmd.Flags().Bool("ack", false, "delete messages after printing")
	return cmd
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
