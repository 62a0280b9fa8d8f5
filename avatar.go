package users

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	goerrors "github.com/goliatone/go-errors"
)

// AvatarStorage persists user avatar images. Both operations are
// best-effort from the lifecycle's perspective: callers log failures and
// carry on with the primary operation.
type AvatarStorage interface {
	Store(ctx context.Context, name string, r io.Reader) (string, error)
	Delete(ctx context.Context, ref string) error
}

// FSAvatarStorage keeps avatar files under a single directory
type FSAvatarStorage struct {
	dir string
}

var _ AvatarStorage = (*FSAvatarStorage)(nil)

func NewFSAvatarStorage(dir string) (*FSAvatarStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create avatar directory")
	}
	return &FSAvatarStorage{dir: dir}, nil
}

func (s *FSAvatarStorage) Store(ctx context.Context, name string, r io.Reader) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	// flatten whatever the upload layer passed as a name
	name = filepath.Base(name)
	path := filepath.Join(s.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create avatar file")
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to write avatar file")
	}

	return path, nil
}

func (s *FSAvatarStorage) Delete(ctx context.Context, ref string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if ref == "" {
		return nil
	}

	if err := os.Remove(ref); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	return nil
}

// removeAvatar deletes a stored avatar file without failing the caller
func removeAvatar(ctx context.Context, storage AvatarStorage, logger Logger, ref string) {
	if storage == nil || ref == "" {
		return
	}

	if err := storage.Delete(ctx, ref); err != nil {
		if logger == nil {
			logger = defLogger{}
		}
		logger.Warn("failed to delete avatar file", "ref", ref, "error", err)
	}
}
