package filestorage

import "context"

// Uploader pins content to a remote store and returns its content hash.
type Uploader interface {
	UploadUrl(ctx context.Context, fileUrl string) (string, error)
	UploadJson(ctx context.Context, json interface{}) (string, error)
}

// Writer places content at a local path, replacing any existing file.
type Writer interface {
	WriteUrl(ctx context.Context, path string, fileUrl string) (int64, error)
	WriteText(path string, text string) error
}
