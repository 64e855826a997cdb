package studio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/NethermindEth/holiday-dalle/pkg/studio/art"
	"github.com/NethermindEth/holiday-dalle/pkg/studio/filestorage"
	"github.com/NethermindEth/holiday-dalle/pkg/studio/holiday"
	"github.com/NethermindEth/holiday-dalle/pkg/studio/library"
	"github.com/NethermindEth/holiday-dalle/pkg/studio/session"
	"github.com/NethermindEth/holiday-dalle/pkg/studio/setup"
	"github.com/NethermindEth/holiday-dalle/pkg/studio/share"
)

var (
	ErrEmptyPrompt      = errors.New("prompt is empty")
	ErrBusy             = errors.New("a generation is already running")
	ErrSaveUnavailable  = errors.New("nothing to save yet, generate an image first")
	ErrShareUnavailable = errors.New("sharing is not configured")
)

type Studio struct {
	promptExpander art.PromptExpander
	artGenerator   art.ArtGenerator
	library        *library.Library
	publisher      *share.Publisher
	session        *session.Session
	apiRouter      *gin.Engine

	// one worker, so generations and saves run strictly one after another
	pool pond.Pool

	history *expirable.LRU[string, Generation]
	now     func() time.Time

	apiIpPort string
}

type StudioConfig struct {
	PromptExpander art.PromptExpander
	ArtGenerator   art.ArtGenerator
	Writer         filestorage.Writer
	Uploader       filestorage.Uploader
	HttpClient     *http.Client

	PicturesDir    string
	BaseSaveFolder string
	DefaultHoliday holiday.Holiday
	ApiIpPort      string
}

// Generation is a completed generation kept for the history view.
type Generation struct {
	Id             string          `json:"id"`
	Holiday        holiday.Holiday `json:"holiday"`
	RawPrompt      string          `json:"rawPrompt"`
	ExpandedPrompt string          `json:"expandedPrompt"`
	ImageUrl       string          `json:"imageUrl"`
	CreatedAt      time.Time       `json:"createdAt"`
}

const (
	historySize = 100
	// provider image urls stop resolving after about an hour
	historyTTL = 1 * time.Hour
)

func NewStudio(ctx context.Context, config *StudioConfig) (*Studio, error) {
	if config == nil {
		return nil, errors.New("config is nil")
	}
	if config.PromptExpander == nil {
		return nil, errors.New("prompt expander is nil")
	}
	if config.ArtGenerator == nil {
		return nil, errors.New("art generator is nil")
	}

	writer := config.Writer
	if writer == nil {
		writer = filestorage.NewLocalStore(config.HttpClient)
	}

	lib, err := library.NewLibrary(library.LibraryOptions{
		Writer:     writer,
		Root:       config.PicturesDir,
		BaseFolder: config.BaseSaveFolder,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create library: %w", err)
	}

	var publisher *share.Publisher
	if config.Uploader != nil {
		publisher = share.NewPublisher(config.Uploader)
	}

	if !config.DefaultHoliday.Valid() {
		return nil, fmt.Errorf("invalid default holiday %d", config.DefaultHoliday)
	}

	studio := &Studio{
		promptExpander: config.PromptExpander,
		artGenerator:   config.ArtGenerator,
		library:        lib,
		publisher:      publisher,
		session:        session.New(config.DefaultHoliday),
		apiRouter:      nil,

		pool: pond.NewPool(1, pond.WithContext(ctx)),

		history: expirable.NewLRU[string, Generation](historySize, nil, historyTTL),
		now:     time.Now,

		apiIpPort: config.ApiIpPort,
	}

	studio.apiRouter = studio.generateRouter()

	return studio, nil
}

func NewStudioConfigFromSetupResult(setupResult *setup.SetupResult) (*StudioConfig, error) {
	if setupResult == nil {
		return nil, errors.New("setup result is nil")
	}

	httpClient := http.DefaultClient

	openAiOptions := func(model string) art.OpenAiOptions {
		return art.OpenAiOptions{
			ApiKey:     setupResult.OpenAiApiKey,
			BaseUrl:    setupResult.OpenAiBaseUrl,
			Model:      model,
			HttpClient: httpClient,
		}
	}

	var uploader filestorage.Uploader
	if setupResult.PinataJwtKey != "" {
		uploader = filestorage.NewPinataUploader(setupResult.PinataJwtKey)
	}

	return &StudioConfig{
		PromptExpander: art.NewOpenAiPromptExpander(openAiOptions(setupResult.OpenAiChatModel)),
		ArtGenerator:   art.NewOpenAiGenerator(openAiOptions(setupResult.OpenAiImageModel)),
		Writer:         filestorage.NewLocalStore(httpClient),
		Uploader:       uploader,
		HttpClient:     httpClient,

		PicturesDir:    setupResult.PicturesDir,
		BaseSaveFolder: setupResult.BaseSaveFolder,
		DefaultHoliday: setupResult.DefaultHoliday,
		ApiIpPort:      setupResult.ApiIpPort,
	}, nil
}

// Start serves the API, if an address is configured, until ctx is done.
func (s *Studio) Start(ctx context.Context) error {
	if err := s.StartServer(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	s.pool.StopAndWait()

	return ctx.Err()
}

// Generate runs the whole pipeline and waits for it to finish.
func (s *Studio) Generate(ctx context.Context, rawPrompt string) (session.Snapshot, error) {
	task, err := s.StartGeneration(ctx, rawPrompt)
	if err != nil {
		return s.session.Snapshot(), err
	}

	err = task.Wait()
	return s.session.Snapshot(), err
}

// StartGeneration checks and claims the session right away, then runs the
// pipeline on the studio worker. The returned task completes with the
// pipeline's error.
func (s *Studio) StartGeneration(ctx context.Context, rawPrompt string) (pond.Task, error) {
	return s.startGeneration(ctx, rawPrompt, nil)
}

// StartGenerationFor is StartGeneration for a given holiday. The selection
// only changes if the generation is accepted.
func (s *Studio) StartGenerationFor(ctx context.Context, rawPrompt string, h holiday.Holiday) (pond.Task, error) {
	return s.startGeneration(ctx, rawPrompt, &h)
}

func (s *Studio) startGeneration(ctx context.Context, rawPrompt string, h *holiday.Holiday) (pond.Task, error) {
	if strings.TrimSpace(rawPrompt) == "" {
		return nil, ErrEmptyPrompt
	}

	var err error
	if h != nil {
		err = s.session.BeginGenerationFor(rawPrompt, *h)
	} else {
		err = s.session.BeginGeneration(rawPrompt)
	}
	if err != nil {
		if errors.Is(err, session.ErrInvalidTransition) {
			return nil, ErrBusy
		}
		return nil, err
	}

	selected := s.session.Holiday()
	if h != nil {
		selected = *h
	}

	task := s.pool.SubmitErr(func() error {
		return s.runGeneration(ctx, rawPrompt, selected)
	})

	return task, nil
}

func (s *Studio) runGeneration(ctx context.Context, rawPrompt string, selected holiday.Holiday) error {
	slog.Info("generating", "holiday", selected.String(), "prompt", rawPrompt)

	expandedPrompt, err := s.promptExpander.ExpandPrompt(ctx, rawPrompt, selected)
	if err != nil {
		return s.failGeneration(err)
	}
	if strings.TrimSpace(expandedPrompt) == "" {
		return s.failGeneration(&art.UpstreamError{Op: "prompt expansion", Err: art.ErrEmptyExpansion})
	}

	if err := s.session.PromptExpanded(expandedPrompt); err != nil {
		return s.failGeneration(err)
	}

	imageUrl, err := s.artGenerator.GenerateUrl(ctx, expandedPrompt)
	if err != nil {
		return s.failGeneration(err)
	}

	if err := s.session.CompleteGeneration(imageUrl); err != nil {
		return s.failGeneration(err)
	}

	generation := Generation{
		Id:             uuid.NewString(),
		Holiday:        selected,
		RawPrompt:      rawPrompt,
		ExpandedPrompt: expandedPrompt,
		ImageUrl:       imageUrl,
		CreatedAt:      s.now(),
	}
	s.history.Add(generation.Id, generation)

	slog.Info("generated image", "id", generation.Id, "holiday", selected.String())

	return nil
}

func (s *Studio) failGeneration(err error) error {
	slog.Error("failed to generate image", "error", err)

	if failErr := s.session.FailGeneration(err); failErr != nil {
		slog.Error("failed to record generation failure", "error", failErr)
	}

	return err
}

// Save writes the current image and its expanded prompt into the pictures
// library, under the currently selected holiday.
func (s *Studio) Save(ctx context.Context) (*library.SaveResult, error) {
	if err := s.session.CheckSave(); err != nil {
		return nil, ErrSaveUnavailable
	}

	var result *library.SaveResult

	err := s.pool.SubmitErr(func() error {
		var err error
		result, err = s.save(ctx)
		return err
	}).Wait()
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (s *Studio) save(ctx context.Context) (*library.SaveResult, error) {
	current, ok := s.session.Result()
	if !ok {
		return nil, ErrSaveUnavailable
	}

	result, err := s.library.Save(ctx, library.Artifact{
		ImageUrl:       current.ImageUrl,
		ExpandedPrompt: current.ExpandedPrompt,
		Name:           current.RawPrompt,
		Holiday:        current.Holiday,
	})
	if err != nil {
		slog.Error("failed to save image", "error", err)
		s.session.Notify(session.NotificationError, "Error", err.Error())
		return nil, err
	}

	s.session.Notify(session.NotificationSaved, "Image saved", result.ImagePath)

	return result, nil
}

// Share pins the current image and its metadata to IPFS.
func (s *Studio) Share(ctx context.Context) (string, error) {
	if s.publisher == nil {
		return "", ErrShareUnavailable
	}

	current, ok := s.session.Result()
	if !ok {
		return "", ErrSaveUnavailable
	}

	hash, err := s.publisher.Publish(ctx, current.Holiday.String(), current.ExpandedPrompt, current.ImageUrl)
	if err != nil {
		slog.Error("failed to share image", "error", err)
		return "", err
	}

	return hash, nil
}

func (s *Studio) SelectHoliday(h holiday.Holiday) {
	s.session.SelectHoliday(h)
}

func (s *Studio) Reset() error {
	if err := s.session.Reset(); err != nil {
		if errors.Is(err, session.ErrInvalidTransition) {
			return ErrBusy
		}
		return err
	}
	return nil
}

func (s *Studio) Snapshot() session.Snapshot {
	return s.session.Snapshot()
}

func (s *Studio) Subscribe(l session.Listener) {
	s.session.Subscribe(l)
}

// History returns the unexpired generations, newest first.
func (s *Studio) History() []Generation {
	keys := s.history.Keys()
	generations := make([]Generation, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		if generation, ok := s.history.Peek(keys[i]); ok {
			generations = append(generations, generation)
		}
	}
	return generations
}

func (s *Studio) Library() *library.Library {
	return s.library
}

func (s *Studio) ApiIpPort() string {
	return s.apiIpPort
}
