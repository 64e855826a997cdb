package filestorage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zde37/pinata-go-sdk/pinata"
)

type PinataUploader struct {
	jwtKey string

	client *pinata.Client
}

var _ Uploader = (*PinataUploader)(nil)

func NewPinataUploader(jwtKey string) *PinataUploader {
	return &PinataUploader{
		jwtKey: jwtKey,
		client: pinata.New(pinata.NewAuthWithJWT(jwtKey)),
	}
}

// UploadUrl pins the resource behind a provider image url. The url is short
// lived, so this has to happen while the generation is still fresh.
func (u *PinataUploader) UploadUrl(ctx context.Context, fileUrl string) (string, error) {
	// the sdk calls take no context
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("failed to pin image to pinata: %w", err)
	}

	pinResponse, err := u.client.PinURL(fileUrl, nil)
	if err != nil {
		return "", fmt.Errorf("failed to pin image to pinata: %w", err)
	}

	slog.Info("pinned image", "ipfsHash", pinResponse.IpfsHash)

	return pinResponse.IpfsHash, nil
}

func (u *PinataUploader) UploadJson(ctx context.Context, json interface{}) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("failed to pin metadata to pinata: %w", err)
	}

	pinResponse, err := u.client.PinJSON(json, nil)
	if err != nil {
		return "", fmt.Errorf("failed to pin metadata to pinata: %w", err)
	}

	slog.Info("pinned metadata", "ipfsHash", pinResponse.IpfsHash)

	return pinResponse.IpfsHash, nil
}
