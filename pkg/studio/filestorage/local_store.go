package filestorage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

const filePermissions = 0644

// LocalStore writes files through a temp file in the destination directory
// followed by a rename, so a destination path is either the old file or the
// complete new one.
type LocalStore struct {
	httpClient *http.Client
}

var _ Writer = (*LocalStore)(nil)

func NewLocalStore(httpClient *http.Client) *LocalStore {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &LocalStore{httpClient: httpClient}
}

// WriteUrl downloads fileUrl to path and returns the number of bytes written.
func (s *LocalStore) WriteUrl(ctx context.Context, path string, fileUrl string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileUrl, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create GET request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to perform GET request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("failed to download %s: unexpected status %s", fileUrl, resp.Status)
	}

	var written int64
	err = writeAtomic(path, func(w io.Writer) error {
		n, err := io.Copy(w, resp.Body)
		written = n
		return err
	})
	if err != nil {
		return 0, err
	}

	return written, nil
}

// WriteText writes text followed by a single newline.
func (s *LocalStore) WriteText(path string, text string) error {
	return writeAtomic(path, func(w io.Writer) error {
		_, err := io.WriteString(w, text+"\n")
		return err
	})
}

func writeAtomic(path string, write func(w io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = write(tmp); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err = tmp.Chmod(filePermissions); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move file into place: %w", err)
	}

	return nil
}
