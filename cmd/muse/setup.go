package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sandevgo/muse/internal/config"
	"github.com/sandevgo/muse/internal/core"
	"github.com/sandevgo/muse/internal/providers/imagegen"
	"github.com/sandevgo/muse/internal/providers/llm"
	"github.com/sandevgo/muse/internal/service/chat"
	"github.com/sandevgo/muse/internal/service/command"
	"github.com/sandevgo/muse/internal/service/conversation"
	"github.com/sandevgo/muse/internal/service/dedup"
	"github.com/sandevgo/muse/internal/service/imagine"
	"github.com/sandevgo/muse/internal/storage/sqlite"
	"github.com/sandevgo/muse/internal/transport/cli"
	"github.com/sandevgo/muse/internal/transport/discord"
	"github.com/sandevgo/muse/internal/transport/telegram"
	"github.com/sandevgo/muse/pkg/log"
	"github.com/sandevgo/muse/pkg/srv"
)

// NewServices builds every component in dependency order. The returned slice
// is started in order and shut down in reverse: the console and image queue
// stop first, while transports can still deliver, then the transports.
// stop cancels the process context; the console calls it on "exit".
func NewServices(ctx context.Context, stop func()) []srv.Service {
	logger := log.FromCtx(ctx)

	initEnv(ctx)

	appCfg := config.NewAppConfig(ctx)
	llmCfg := config.NewLLMConfig(ctx)
	imgCfg := config.NewImageConfig(ctx)

	var services []srv.Service

	// Transcript
	var transcript *sqlite.TranscriptRepo
	if appCfg.TranscriptEnabled {
		db, err := sqlite.NewDB(ctx, appCfg.GetDatabasePath())
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to open database")
		}
		services = append(services, srv.NewCleanup(db.Close))
		transcript = sqlite.NewTranscriptRepo(db)
	}

	// LLM
	ai, err := llm.NewProvider(ctx, llmCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create llm provider")
	}

	// Image queue
	var queue *imagine.Queue
	if imgCfg.Enabled {
		gen, err := imagegen.NewGenerator(ctx, imgCfg, appCfg.GetImagesPath())
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create image generator")
		}

		opts := []imagine.Option{
			imagine.WithSettleDelay(imgCfg.SettleDelay),
			imagine.WithDefaultTimeout(imgCfg.Timeout),
			imagine.WithShutdownTimeout(imgCfg.ShutdownTimeout),
		}
		if transcript != nil {
			opts = append(opts, imagine.WithObserver(transcript))
		}
		queue = imagine.NewQueue(gen, opts...)
		services = append(services, gen)
	}

	// Conversation
	filter := dedup.New(appCfg.DedupTTL)
	store := conversation.NewStore(appCfg.SystemPrompt, appCfg.HistoryLimit)

	chatOpts := []chat.Option{chat.WithMaxLength(appCfg.MaxMessageLength)}
	if transcript != nil {
		chatOpts = append(chatOpts, chat.WithTranscript(transcript))
	}
	chatSvc := chat.NewService(filter, store, ai, chatOpts...)
	services = append(services, filter)

	// Transports
	var dirs []core.ChannelDirectory

	if appCfg.EnableDiscord {
		dcCfg := config.NewDiscordConfig(ctx)
		bot, err := discord.NewBot(ctx, dcCfg, chatSvc, queue, appCfg.ResolveMaxDepth)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create discord bot")
		}
		services = append(services, bot)
		dirs = append(dirs, bot)
	}

	if appCfg.EnableTelegram {
		tgCfg := config.NewTelegramConfig(ctx)
		bot, err := telegram.NewBot(ctx, tgCfg, chatSvc, queue, appCfg.ResolveMaxDepth)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create telegram bot")
		}
		services = append(services, bot)
		dirs = append(dirs, bot)
	}

	if queue != nil {
		services = append(services, queue)
	}

	if appCfg.EnableConsole {
		var status command.QueueStatusProvider
		if queue != nil {
			status = queue
		}
		router := command.New(command.NewCommands(store, status, dirs))

		console, err := cli.NewConsole(router, appCfg.GetHistoryFilePath(), stop)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create console")
		}
		services = append(services, console)
	}

	if len(dirs) == 0 && !appCfg.EnableConsole {
		logger.Warn().Msg("no transport enabled, nothing will be answered")
	}

	return services
}

func initEnv(ctx context.Context) {
	envPath := filepath.Join(config.GetRuntimePath(), ".env")
	if _, err := os.Stat(envPath); err != nil {
		log.FromCtx(ctx).Debug().Str("path", envPath).Msg("no .env file, using process environment")
		return
	}
	if err := godotenv.Load(envPath); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Str("path", envPath).Msg("failed to load .env")
	}
}
