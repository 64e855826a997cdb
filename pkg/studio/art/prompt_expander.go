package art

import (
	"context"

	"github.com/NethermindEth/holiday-dalle/pkg/studio/holiday"
)

// PromptExpander turns a short user prompt into a richer image prompt themed
// for a holiday.
type PromptExpander interface {
	ExpandPrompt(ctx context.Context, prompt string, h holiday.Holiday) (string, error)
}
