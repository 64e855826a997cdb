package setup

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/NethermindEth/holiday-dalle/pkg/studio/debug"
	"github.com/NethermindEth/holiday-dalle/pkg/studio/holiday"
	"github.com/NethermindEth/holiday-dalle/pkg/studio/library"
)

type SetupResult struct {
	OpenAiApiKey     string
	OpenAiBaseUrl    string
	OpenAiChatModel  string
	OpenAiImageModel string
	PicturesDir      string
	BaseSaveFolder   string
	DefaultHoliday   holiday.Holiday
	ApiIpPort        string
	PinataJwtKey     string
	LogLevel         slog.Level
}

// LogValue keeps credentials out of the logs.
func (r *SetupResult) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("openAiApiKeySet", r.OpenAiApiKey != ""),
		slog.String("openAiBaseUrl", r.OpenAiBaseUrl),
		slog.String("openAiChatModel", r.OpenAiChatModel),
		slog.String("openAiImageModel", r.OpenAiImageModel),
		slog.String("picturesDir", r.PicturesDir),
		slog.String("baseSaveFolder", r.BaseSaveFolder),
		slog.String("defaultHoliday", r.DefaultHoliday.String()),
		slog.String("apiIpPort", r.ApiIpPort),
		slog.Bool("pinataJwtKeySet", r.PinataJwtKey != ""),
		slog.String("logLevel", r.LogLevel.String()),
	)
}

func Setup(ctx context.Context, configFile string) (*SetupResult, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	config, err := NewConfigFromEnv(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to get config from env: %w", err)
	}

	setupResult, err := generateSetup(config)
	if err != nil {
		return nil, fmt.Errorf("failed to generate setup: %w", err)
	}

	InitializeLogger(setupResult.LogLevel)

	if debug.IsDebugShowSetup() {
		slog.Info("setup output", "setupOutput", setupResult)
	}

	return setupResult, nil
}

func generateSetup(config *Config) (*SetupResult, error) {
	defaultHoliday, err := holiday.Parse(config.DefaultHoliday)
	if err != nil {
		return nil, err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(config.LogLevel)); err != nil {
		return nil, fmt.Errorf("failed to parse log level: %w", err)
	}

	picturesDir := config.PicturesDir
	if picturesDir == "" {
		picturesDir = library.PicturesRoot()
		slog.Debug("no pictures dir configured, using platform default", "picturesDir", picturesDir)
	}

	return &SetupResult{
		OpenAiApiKey:     config.OpenAiApiKey,
		OpenAiBaseUrl:    config.OpenAiBaseUrl,
		OpenAiChatModel:  config.OpenAiChatModel,
		OpenAiImageModel: config.OpenAiImageModel,
		PicturesDir:      picturesDir,
		BaseSaveFolder:   config.BaseSaveFolder,
		DefaultHoliday:   defaultHoliday,
		ApiIpPort:        config.ApiIpPort,
		PinataJwtKey:     config.PinataJwtKey,
		LogLevel:         level,
	}, nil
}

// InitializeLogger installs a text logger on stderr as the default logger.
func InitializeLogger(level slog.Level) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}
