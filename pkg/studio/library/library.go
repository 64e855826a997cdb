package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/adrg/xdg"

	"github.com/NethermindEth/holiday-dalle/pkg/studio/filestorage"
	"github.com/NethermindEth/holiday-dalle/pkg/studio/holiday"
)

const (
	DefaultBaseFolder = "Holiday DALLE"

	dirPermissions  = 0755
	fallbackName    = "image"
	imageExtension  = ".png"
	promptExtension = ".txt"
)

// Artifact is one generated image together with the prompt that produced it.
type Artifact struct {
	ImageUrl       string
	ExpandedPrompt string
	Name           string
	Holiday        holiday.Holiday
}

type SaveResult struct {
	Directory string `json:"directory"`
	ImagePath string `json:"imagePath"`
	TextPath  string `json:"textPath"`
	ImageSize int64  `json:"imageSize"`
}

// Library lays generated artifacts out as
// <root>/<baseFolder>/<holiday>/<name>.{png,txt}.
type Library struct {
	writer     filestorage.Writer
	root       string
	baseFolder string
}

type LibraryOptions struct {
	Writer     filestorage.Writer
	Root       string
	BaseFolder string
}

func NewLibrary(opts LibraryOptions) (*Library, error) {
	if opts.Writer == nil {
		return nil, errors.New("writer is nil")
	}

	if opts.Root == "" {
		opts.Root = PicturesRoot()
	}
	if opts.Root == "" {
		return nil, errors.New("could not resolve pictures directory")
	}

	if opts.BaseFolder == "" {
		opts.BaseFolder = DefaultBaseFolder
	}

	return &Library{
		writer:     opts.Writer,
		root:       opts.Root,
		baseFolder: opts.BaseFolder,
	}, nil
}

// PicturesRoot returns the platform pictures directory.
func PicturesRoot() string {
	return xdg.UserDirs.Pictures
}

func (l *Library) Root() string {
	return l.root
}

func (l *Library) HolidayDir(h holiday.Holiday) string {
	return filepath.Join(l.root, l.baseFolder, h.String())
}

// EnsureHolidayDir creates the holiday folder if needed and returns its path.
func (l *Library) EnsureHolidayDir(h holiday.Holiday) (string, error) {
	dir := l.HolidayDir(h)
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return "", fmt.Errorf("failed to create holiday folder: %w", err)
	}
	return dir, nil
}

// Save downloads the image, then writes the prompt next to it. Both files
// replace any earlier save with the same name. If the prompt write fails the
// image stays in place and the error is returned.
func (l *Library) Save(ctx context.Context, artifact Artifact) (*SaveResult, error) {
	if artifact.ImageUrl == "" {
		return nil, errors.New("image url is empty")
	}

	dir, err := l.EnsureHolidayDir(artifact.Holiday)
	if err != nil {
		return nil, err
	}

	name := FileBaseName(artifact.Name)
	result := &SaveResult{
		Directory: dir,
		ImagePath: filepath.Join(dir, name+imageExtension),
		TextPath:  filepath.Join(dir, name+promptExtension),
	}

	size, err := l.writer.WriteUrl(ctx, result.ImagePath, artifact.ImageUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to save image: %w", err)
	}
	result.ImageSize = size

	if err := l.writer.WriteText(result.TextPath, artifact.ExpandedPrompt); err != nil {
		return nil, fmt.Errorf("failed to save prompt: %w", err)
	}

	slog.Info("saved artifact", "directory", dir, "name", name, "bytes", size)

	return result, nil
}

// FileBaseName turns a raw prompt into a usable file name. Separators and
// control characters become underscores; leading and trailing spaces and dots
// are dropped.
func FileBaseName(prompt string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\' || r == 0:
			return '_'
		case unicode.IsControl(r):
			return '_'
		}
		return r
	}, prompt)

	name = strings.Trim(name, " .")
	if name == "" {
		return fallbackName
	}
	return name
}
