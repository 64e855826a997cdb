package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/NethermindEth/holiday-dalle/pkg/studio"
	"github.com/NethermindEth/holiday-dalle/pkg/studio/holiday"
	"github.com/NethermindEth/holiday-dalle/pkg/studio/session"
	"github.com/NethermindEth/holiday-dalle/pkg/studio/setup"
)

var holidaysCmd = &cobra.Command{
	Use:   "holidays",
	Short: "List the holidays an image can be themed for",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, label := range holiday.Labels() {
			fmt.Fprintln(cmd.OutOrStdout(), label)
		}
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate [prompt]",
	Short: "Generate one holiday image",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runGenerate,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the studio over HTTP until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	generateCmd.Flags().String("holiday", "", "holiday theme, defaults to DEFAULT_HOLIDAY")
	generateCmd.Flags().Bool("save", false, "save the image and prompt into the pictures library")
}

func newStudio(ctx context.Context) (*studio.Studio, error) {
	setupResult, err := setup.Setup(ctx, configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to setup: %w", err)
	}

	studioConfig, err := studio.NewStudioConfigFromSetupResult(setupResult)
	if err != nil {
		return nil, fmt.Errorf("failed to create studio config: %w", err)
	}

	s, err := studio.NewStudio(ctx, studioConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create studio: %w", err)
	}

	return s, nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := newStudio(ctx)
	if err != nil {
		return err
	}

	if label, _ := cmd.Flags().GetString("holiday"); label != "" {
		h, err := holiday.Parse(label)
		if err != nil {
			return err
		}
		s.SelectHoliday(h)
	}

	out := cmd.OutOrStdout()

	s.Subscribe(session.ListenerFunc(func(snapshot session.Snapshot) {
		if snapshot.State == session.StatePromptReady {
			fmt.Fprintf(out, "Prompt: %s\n", snapshot.PendingPrompt)
		}
	}))

	snapshot, err := s.Generate(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Image: %s\n", snapshot.ImageUrl)

	if save, _ := cmd.Flags().GetBool("save"); !save {
		return nil
	}

	result, err := s.Save(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Saved: %s\n", result.ImagePath)
	fmt.Fprintf(out, "Saved: %s\n", result.TextPath)

	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := newStudio(ctx)
	if err != nil {
		return err
	}
	if s.ApiIpPort() == "" {
		return fmt.Errorf("%s must be set to serve", setup.EnvApiIpPort)
	}

	notifications := make(chan session.Notification, 16)
	s.Subscribe(session.ListenerFunc(func(snapshot session.Snapshot) {
		if snapshot.Notification == nil {
			return
		}
		select {
		case notifications <- *snapshot.Notification:
		default:
		}
	}))

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.Start(ctx)
	})

	g.Go(func() error {
		var last session.Notification
		for {
			select {
			case <-ctx.Done():
				return nil
			case n := <-notifications:
				if n == last {
					continue
				}
				last = n
				slog.Info("notification", "kind", n.Kind, "title", n.Title, "message", n.Message)
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	slog.Info("studio stopped")
	return nil
}
