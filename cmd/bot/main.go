package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"ctfbot/internal/adapters/ctftime"
	"ctfbot/internal/adapters/discord"
	"ctfbot/internal/application"
	"ctfbot/internal/config"
	"ctfbot/internal/infrastructure/database"
	"ctfbot/internal/infrastructure/i18n"
	"ctfbot/internal/settings"
)

var rootCmd = &cobra.Command{
	Use:   "ctfbot",
	Short: "CTF event tracker bot",
	Long:  `Tracks CTFTime events, manages per-event Discord channels and keeps both in sync.`,
	RunE:  runBot,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if level, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && level != zerolog.NoLevel {
		zerolog.SetGlobalLevel(level)
	}

	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("Failed to execute command")
	}
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	return database.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath)
}

func runBot(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	logger := log.Logger

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := database.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		return err
	}
	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	leases := database.NewLeaseStore(pool)
	events := database.NewEventRepository(pool, leases)
	settingsRepo := database.NewSettingsRepository(pool)

	snap, err := settingsRepo.Load(ctx)
	if err != nil {
		return err
	}
	store := settings.NewStore(snap)

	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return err
	}
	session.Identify.Intents = discordgo.IntentsGuilds

	tr := i18n.NewTranslator("en")
	directory := discord.NewDirectory(session, cfg.GuildID, store, logger)
	notifier := discord.NewNotifier(session, store)
	feed := ctftime.NewClient(cfg.CTFTimeAPIURL, cfg.SearchDays, nil)

	eventService := application.NewEventService(events, leases, directory, notifier, feed, tr, cfg.LockTTL, logger)
	settingsService := application.NewSettingsService(settingsRepo, store, directory)
	scanner := application.NewScanner(events, feed, notifier, eventService, tr, cfg.RetentionDays, logger)

	handler := discord.NewHandler(eventService, settingsService, store, tr, logger)
	bot := discord.NewBot(session, cfg.GuildID, handler, logger)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return bot.Start(ctx)
	})

	g.Go(func() error {
		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return err
		}
		_, err = scheduler.NewJob(
			gocron.DurationJob(cfg.CheckInterval),
			gocron.NewTask(func() {
				logger.Info().Msg("running reconciliation passes")
				started := time.Now()
				scanner.RunAll(ctx)
				logger.Info().Dur("took", time.Since(started)).Msg("reconciliation passes finished")
			}),
		)
		if err != nil {
			return err
		}
		scheduler.Start()
		<-ctx.Done()
		return scheduler.Shutdown()
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	logger.Info().Msg("bot shutting down gracefully")
	return nil
}
