package share

import (
	"context"
	"errors"
	"fmt"

	"github.com/NethermindEth/holiday-dalle/pkg/studio/filestorage"
)

// Publisher pins a generated image and a small metadata document describing
// it, returning the metadata hash.
type Publisher struct {
	uploader filestorage.Uploader
}

func NewPublisher(uploader filestorage.Uploader) *Publisher {
	return &Publisher{
		uploader: uploader,
	}
}

func (p *Publisher) Publish(ctx context.Context, name, description, imageUrl string) (string, error) {
	if imageUrl == "" {
		return "", errors.New("image url is empty")
	}

	imageIpfsHash, err := p.uploader.UploadUrl(ctx, imageUrl)
	if err != nil {
		return "", fmt.Errorf("failed to upload image to ipfs: %w", err)
	}

	metadataIpfsHash, err := p.uploader.UploadJson(ctx, map[string]string{
		"name":        name,
		"description": description,
		"image":       imageIpfsHash,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload metadata to ipfs: %w", err)
	}

	return metadataIpfsHash, nil
}
