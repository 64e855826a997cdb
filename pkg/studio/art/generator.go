package art

import "context"

type ArtGenerator interface {
	GenerateUrl(ctx context.Context, prompt string) (string, error)
}
