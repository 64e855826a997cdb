package studio_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NethermindEth/holiday-dalle/pkg/studio"
	"github.com/NethermindEth/holiday-dalle/pkg/studio/art"
	"github.com/NethermindEth/holiday-dalle/pkg/studio/holiday"
	"github.com/NethermindEth/holiday-dalle/pkg/studio/session"
	"github.com/NethermindEth/holiday-dalle/pkg/studio/setup"
)

const cabinExpansion = "A rustic log cabin half buried in fresh snow, smoke curling from the chimney, warm light in the windows, twinkling fairy lights on a pine tree"

type mockPromptExpander struct {
	expandPrompt func(ctx context.Context, prompt string, h holiday.Holiday) (string, error)
}

func (m *mockPromptExpander) ExpandPrompt(ctx context.Context, prompt string, h holiday.Holiday) (string, error) {
	return m.expandPrompt(ctx, prompt, h)
}

type mockArtGenerator struct {
	generateUrl func(ctx context.Context, prompt string) (string, error)
}

func (m *mockArtGenerator) GenerateUrl(ctx context.Context, prompt string) (string, error) {
	return m.generateUrl(ctx, prompt)
}

type mockUploader struct {
	uploadUrl  func(ctx context.Context, url string) (string, error)
	uploadJson func(ctx context.Context, json interface{}) (string, error)
}

func (m *mockUploader) UploadUrl(ctx context.Context, url string) (string, error) {
	return m.uploadUrl(ctx, url)
}

func (m *mockUploader) UploadJson(ctx context.Context, json interface{}) (string, error) {
	return m.uploadJson(ctx, json)
}

// newImageServer hosts the "generated" images the mocks point at.
func newImageServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/expired") {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png:" + r.URL.Path))
	}))
	t.Cleanup(server.Close)
	return server
}

func setupTestStudio(t *testing.T, imageServer *httptest.Server, opts ...func(*studio.StudioConfig)) (*studio.Studio, string) {
	t.Helper()

	picturesDir := t.TempDir()

	studioConfig := &studio.StudioConfig{
		PromptExpander: &mockPromptExpander{
			expandPrompt: func(ctx context.Context, prompt string, h holiday.Holiday) (string, error) {
				return cabinExpansion, nil
			},
		},
		ArtGenerator: &mockArtGenerator{
			generateUrl: func(ctx context.Context, prompt string) (string, error) {
				return imageServer.URL + "/cabin.png", nil
			},
		},
		HttpClient:     imageServer.Client(),
		PicturesDir:    picturesDir,
		BaseSaveFolder: "Holiday DALLE",
		DefaultHoliday: holiday.Christmas,
	}

	for _, opt := range opts {
		opt(studioConfig)
	}

	s, err := studio.NewStudio(context.Background(), studioConfig)
	require.NoError(t, err)
	return s, picturesDir
}

func TestNewStudio(t *testing.T) {
	expander := &mockPromptExpander{}
	generator := &mockArtGenerator{}

	tests := []struct {
		name         string
		studioConfig *studio.StudioConfig
		wantErr      bool
	}{
		{
			name: "valid config",
			studioConfig: &studio.StudioConfig{
				PromptExpander: expander,
				ArtGenerator:   generator,
				PicturesDir:    t.TempDir(),
				DefaultHoliday: holiday.Easter,
			},
		},
		{
			name:         "nil config",
			studioConfig: nil,
			wantErr:      true,
		},
		{
			name: "missing expander",
			studioConfig: &studio.StudioConfig{
				ArtGenerator: generator,
				PicturesDir:  t.TempDir(),
			},
			wantErr: true,
		},
		{
			name: "missing generator",
			studioConfig: &studio.StudioConfig{
				PromptExpander: expander,
				PicturesDir:    t.TempDir(),
			},
			wantErr: true,
		},
		{
			name: "invalid default holiday",
			studioConfig: &studio.StudioConfig{
				PromptExpander: expander,
				ArtGenerator:   generator,
				PicturesDir:    t.TempDir(),
				DefaultHoliday: holiday.Holiday(99),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := studio.NewStudio(context.Background(), tt.studioConfig)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, s)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, s)
				assert.Equal(t, holiday.Easter, s.Snapshot().Holiday)
			}
		})
	}
}

func TestNewStudioConfigFromSetupResult(t *testing.T) {
	_, err := studio.NewStudioConfigFromSetupResult(nil)
	assert.Error(t, err)

	config, err := studio.NewStudioConfigFromSetupResult(&setup.SetupResult{
		OpenAiApiKey:     "sk-abcdefghijklmnopqrstuvwxyz",
		OpenAiChatModel:  "gpt-4",
		OpenAiImageModel: "dall-e-3",
		PicturesDir:      t.TempDir(),
		BaseSaveFolder:   "Holiday DALLE",
		DefaultHoliday:   holiday.Birthday,
	})
	require.NoError(t, err)
	assert.NotNil(t, config.PromptExpander)
	assert.NotNil(t, config.ArtGenerator)
	assert.NotNil(t, config.Writer)
	assert.Nil(t, config.Uploader, "sharing stays off without a pinata key")
	assert.Equal(t, holiday.Birthday, config.DefaultHoliday)

	config, err = studio.NewStudioConfigFromSetupResult(&setup.SetupResult{PinataJwtKey: "jwt"})
	require.NoError(t, err)
	assert.NotNil(t, config.Uploader)
}

func TestStudio_GenerateAndSave(t *testing.T) {
	imageServer := newImageServer(t)

	var gotPrompt string
	var gotHoliday holiday.Holiday
	var gotImagePrompt string

	s, picturesDir := setupTestStudio(t, imageServer, func(config *studio.StudioConfig) {
		config.PromptExpander = &mockPromptExpander{
			expandPrompt: func(ctx context.Context, prompt string, h holiday.Holiday) (string, error) {
				gotPrompt, gotHoliday = prompt, h
				return cabinExpansion, nil
			},
		}
		config.ArtGenerator = &mockArtGenerator{
			generateUrl: func(ctx context.Context, prompt string) (string, error) {
				gotImagePrompt = prompt
				return imageServer.URL + "/cabin.png", nil
			},
		}
	})

	snapshot, err := s.Generate(context.Background(), "Snowy Cabin")
	require.NoError(t, err)

	assert.Equal(t, "Snowy Cabin", gotPrompt)
	assert.Equal(t, holiday.Christmas, gotHoliday)
	assert.Equal(t, cabinExpansion, gotImagePrompt, "the image is generated from the expanded prompt")

	assert.Equal(t, session.StateReady, snapshot.State)
	assert.NotEmpty(t, snapshot.ExpandedPrompt)
	assert.NotEqual(t, "Snowy Cabin", snapshot.ExpandedPrompt)
	assert.NotEmpty(t, snapshot.ImageUrl)
	assert.True(t, snapshot.CanSave)
	assert.True(t, snapshot.CanGenerate)

	result, err := s.Save(context.Background())
	require.NoError(t, err)

	dir := filepath.Join(picturesDir, "Holiday DALLE", "Christmas")
	assert.Equal(t, dir, result.Directory)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := []string{}
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"Snowy Cabin.png", "Snowy Cabin.txt"}, names)

	text, err := os.ReadFile(filepath.Join(dir, "Snowy Cabin.txt"))
	require.NoError(t, err)
	assert.Equal(t, cabinExpansion+"\n", string(text))

	image, err := os.ReadFile(filepath.Join(dir, "Snowy Cabin.png"))
	require.NoError(t, err)
	assert.Equal(t, "png:/cabin.png", string(image))

	after := s.Snapshot()
	assert.Equal(t, session.StateReady, after.State, "saving keeps the session ready")
	require.NotNil(t, after.Notification)
	assert.Equal(t, session.NotificationSaved, after.Notification.Kind)
	assert.Equal(t, result.ImagePath, after.Notification.Message)

	// saving again overwrites the same two files
	_, err = s.Save(context.Background())
	require.NoError(t, err)
	entries, err = os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestStudio_PromptReadyIsObservable(t *testing.T) {
	imageServer := newImageServer(t)
	s, _ := setupTestStudio(t, imageServer)

	var mu sync.Mutex
	var states []session.State
	var pending string
	s.Subscribe(session.ListenerFunc(func(snapshot session.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, snapshot.State)
		if snapshot.State == session.StatePromptReady {
			pending = snapshot.PendingPrompt
		}
	}))

	_, err := s.Generate(context.Background(), "Snowy Cabin")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []session.State{
		session.StateGenerating,
		session.StatePromptReady,
		session.StateGenerating,
		session.StateReady,
	}, states)
	assert.Equal(t, cabinExpansion, pending)
}

func TestStudio_SaveBeforeGenerate(t *testing.T) {
	imageServer := newImageServer(t)
	s, picturesDir := setupTestStudio(t, imageServer)

	_, err := s.Save(context.Background())
	assert.ErrorIs(t, err, studio.ErrSaveUnavailable)
	assert.NoDirExists(t, filepath.Join(picturesDir, "Holiday DALLE"))
}

func TestStudio_SaveWhileGenerating(t *testing.T) {
	imageServer := newImageServer(t)
	release := make(chan struct{})
	entered := make(chan struct{})

	s, _ := setupTestStudio(t, imageServer, func(config *studio.StudioConfig) {
		config.PromptExpander = &mockPromptExpander{
			expandPrompt: func(ctx context.Context, prompt string, h holiday.Holiday) (string, error) {
				close(entered)
				<-release
				return cabinExpansion, nil
			},
		}
	})

	task, err := s.StartGeneration(context.Background(), "Snowy Cabin")
	require.NoError(t, err)
	<-entered

	snapshot := s.Snapshot()
	assert.True(t, snapshot.Busy)
	assert.False(t, snapshot.CanGenerate)
	assert.False(t, snapshot.CanSave)

	_, err = s.Save(context.Background())
	assert.ErrorIs(t, err, studio.ErrSaveUnavailable)

	_, err = s.StartGeneration(context.Background(), "Another")
	assert.ErrorIs(t, err, studio.ErrBusy)

	assert.ErrorIs(t, s.Reset(), studio.ErrBusy)

	close(release)
	require.NoError(t, task.Wait())
	assert.Equal(t, session.StateReady, s.Snapshot().State)
}

func TestStudio_UpstreamFailureDuringExpansion(t *testing.T) {
	imageServer := newImageServer(t)
	generatorCalled := false

	s, _ := setupTestStudio(t, imageServer, func(config *studio.StudioConfig) {
		config.PromptExpander = &mockPromptExpander{
			expandPrompt: func(ctx context.Context, prompt string, h holiday.Holiday) (string, error) {
				return "", &art.UpstreamError{Op: "prompt expansion", Err: errors.New("service unavailable")}
			},
		}
		config.ArtGenerator = &mockArtGenerator{
			generateUrl: func(ctx context.Context, prompt string) (string, error) {
				generatorCalled = true
				return "", nil
			},
		}
	})

	before := s.Snapshot()

	snapshot, err := s.Generate(context.Background(), "Snowy Cabin")
	require.Error(t, err)
	assert.True(t, art.IsUpstreamError(err))
	assert.False(t, generatorCalled)

	assert.False(t, snapshot.CanSave)
	assert.True(t, snapshot.CanGenerate)
	assert.False(t, snapshot.Busy)
	require.NotNil(t, snapshot.Notification)
	assert.Equal(t, session.NotificationError, snapshot.Notification.Kind)
	assert.Contains(t, snapshot.Notification.Message, "service unavailable")

	snapshot.Notification = nil
	assert.Equal(t, before, snapshot, "session is unchanged apart from the notification")

	_, err = s.Save(context.Background())
	assert.ErrorIs(t, err, studio.ErrSaveUnavailable)
	assert.Empty(t, s.History())
}

func TestStudio_ConfigurationErrorSurfaces(t *testing.T) {
	imageServer := newImageServer(t)

	s, _ := setupTestStudio(t, imageServer, func(config *studio.StudioConfig) {
		config.PromptExpander = art.NewOpenAiPromptExpander(art.OpenAiOptions{ApiKey: ""})
	})

	snapshot, err := s.Generate(context.Background(), "Snowy Cabin")
	require.Error(t, err)
	assert.True(t, art.IsConfigurationError(err))
	require.NotNil(t, snapshot.Notification)
	assert.Contains(t, snapshot.Notification.Message, "api key")
	assert.Equal(t, session.StateIdle, snapshot.State)
}

func TestStudio_EmptyExpansionSkipsImageRequest(t *testing.T) {
	imageServer := newImageServer(t)
	generatorCalled := false

	s, _ := setupTestStudio(t, imageServer, func(config *studio.StudioConfig) {
		config.PromptExpander = &mockPromptExpander{
			expandPrompt: func(ctx context.Context, prompt string, h holiday.Holiday) (string, error) {
				return " ", nil
			},
		}
		config.ArtGenerator = &mockArtGenerator{
			generateUrl: func(ctx context.Context, prompt string) (string, error) {
				generatorCalled = true
				return imageServer.URL + "/cabin.png", nil
			},
		}
	})

	snapshot, err := s.Generate(context.Background(), "Snowy Cabin")
	require.Error(t, err)
	assert.True(t, art.IsUpstreamError(err))
	assert.ErrorIs(t, err, art.ErrEmptyExpansion)
	assert.False(t, generatorCalled)

	assert.Equal(t, session.StateIdle, snapshot.State)
	require.NotNil(t, snapshot.Notification)
	assert.Contains(t, snapshot.Notification.Message, "prompt expansion failed")
}

func TestStudio_StartGenerationFor(t *testing.T) {
	imageServer := newImageServer(t)
	var expandedFor holiday.Holiday

	s, _ := setupTestStudio(t, imageServer, func(config *studio.StudioConfig) {
		config.PromptExpander = &mockPromptExpander{
			expandPrompt: func(ctx context.Context, prompt string, h holiday.Holiday) (string, error) {
				expandedFor = h
				return cabinExpansion, nil
			},
		}
	})

	_, err := s.StartGenerationFor(context.Background(), "", holiday.Halloween)
	assert.ErrorIs(t, err, studio.ErrEmptyPrompt)
	assert.Equal(t, holiday.Christmas, s.Snapshot().Holiday)

	task, err := s.StartGenerationFor(context.Background(), "pumpkins", holiday.Halloween)
	require.NoError(t, err)
	require.NoError(t, task.Wait())

	assert.Equal(t, holiday.Halloween, expandedFor)
	assert.Equal(t, holiday.Halloween, s.Snapshot().Holiday)
}

func TestStudio_FailureAfterSuccessKeepsOldResult(t *testing.T) {
	imageServer := newImageServer(t)
	fail := false

	s, _ := setupTestStudio(t, imageServer, func(config *studio.StudioConfig) {
		config.ArtGenerator = &mockArtGenerator{
			generateUrl: func(ctx context.Context, prompt string) (string, error) {
				if fail {
					return "", &art.UpstreamError{Op: "image generation", Err: errors.New("quota exceeded")}
				}
				return imageServer.URL + "/first.png", nil
			},
		}
	})

	_, err := s.Generate(context.Background(), "Snowy Cabin")
	require.NoError(t, err)

	fail = true
	snapshot, err := s.Generate(context.Background(), "Reindeer")
	require.Error(t, err)

	assert.Equal(t, session.StateIdle, snapshot.State)
	assert.False(t, snapshot.CanSave)
	assert.Equal(t, "Snowy Cabin", snapshot.RawPrompt)
	assert.Contains(t, snapshot.Notification.Message, "quota exceeded")
}

func TestStudio_EmptyPrompt(t *testing.T) {
	imageServer := newImageServer(t)
	s, _ := setupTestStudio(t, imageServer)

	for _, prompt := range []string{"", "   "} {
		_, err := s.Generate(context.Background(), prompt)
		assert.ErrorIs(t, err, studio.ErrEmptyPrompt)
	}
	assert.Equal(t, session.StateIdle, s.Snapshot().State)
}

func TestStudio_SaveUsesSelectedHoliday(t *testing.T) {
	imageServer := newImageServer(t)
	var expandedFor holiday.Holiday

	s, picturesDir := setupTestStudio(t, imageServer, func(config *studio.StudioConfig) {
		config.PromptExpander = &mockPromptExpander{
			expandPrompt: func(ctx context.Context, prompt string, h holiday.Holiday) (string, error) {
				expandedFor = h
				return "a birthday cake with candles", nil
			},
		}
	})

	s.SelectHoliday(holiday.Birthday)
	_, err := s.Generate(context.Background(), "cake")
	require.NoError(t, err)
	assert.Equal(t, holiday.Birthday, expandedFor)

	s.SelectHoliday(holiday.ValentinesDay)
	result, err := s.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(picturesDir, "Holiday DALLE", "Valentine's Day"), result.Directory)
}

func TestStudio_SaveDownloadFailure(t *testing.T) {
	imageServer := newImageServer(t)
	s, _ := setupTestStudio(t, imageServer, func(config *studio.StudioConfig) {
		config.ArtGenerator = &mockArtGenerator{
			generateUrl: func(ctx context.Context, prompt string) (string, error) {
				return imageServer.URL + "/expired.png", nil
			},
		}
	})

	_, err := s.Generate(context.Background(), "Snowy Cabin")
	require.NoError(t, err)

	_, err = s.Save(context.Background())
	require.Error(t, err)

	snapshot := s.Snapshot()
	assert.Equal(t, session.StateReady, snapshot.State)
	require.NotNil(t, snapshot.Notification)
	assert.Equal(t, session.NotificationError, snapshot.Notification.Kind)
}

func TestStudio_History(t *testing.T) {
	imageServer := newImageServer(t)
	s, _ := setupTestStudio(t, imageServer)

	for _, prompt := range []string{"one", "two", "three"} {
		_, err := s.Generate(context.Background(), prompt)
		require.NoError(t, err)
	}

	history := s.History()
	require.Len(t, history, 3)
	assert.Equal(t, "three", history[0].RawPrompt)
	assert.Equal(t, "one", history[2].RawPrompt)
	for _, generation := range history {
		assert.NotEmpty(t, generation.Id)
		assert.Equal(t, holiday.Christmas, generation.Holiday)
		assert.Equal(t, cabinExpansion, generation.ExpandedPrompt)
		assert.WithinDuration(t, time.Now(), generation.CreatedAt, time.Minute)
	}
}

func TestStudio_Share(t *testing.T) {
	imageServer := newImageServer(t)

	t.Run("not configured", func(t *testing.T) {
		s, _ := setupTestStudio(t, imageServer)
		_, err := s.Share(context.Background())
		assert.ErrorIs(t, err, studio.ErrShareUnavailable)
	})

	t.Run("nothing generated", func(t *testing.T) {
		s, _ := setupTestStudio(t, imageServer, func(config *studio.StudioConfig) {
			config.Uploader = &mockUploader{}
		})
		_, err := s.Share(context.Background())
		assert.ErrorIs(t, err, studio.ErrSaveUnavailable)
	})

	t.Run("pins image and metadata", func(t *testing.T) {
		s, _ := setupTestStudio(t, imageServer, func(config *studio.StudioConfig) {
			config.Uploader = &mockUploader{
				uploadUrl: func(ctx context.Context, url string) (string, error) {
					require.Equal(t, imageServer.URL+"/cabin.png", url)
					return "QmImage", nil
				},
				uploadJson: func(ctx context.Context, json interface{}) (string, error) {
					require.Equal(t, map[string]string{
						"name":        "Christmas",
						"description": cabinExpansion,
						"image":       "QmImage",
					}, json)
					return "QmMetadata", nil
				},
			}
		})

		_, err := s.Generate(context.Background(), "Snowy Cabin")
		require.NoError(t, err)

		hash, err := s.Share(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "QmMetadata", hash)
	})
}

func TestStudio_Start(t *testing.T) {
	imageServer := newImageServer(t)
	s, _ := setupTestStudio(t, imageServer)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := s.Start(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
