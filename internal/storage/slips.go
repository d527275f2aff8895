package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/sooksun/tablebooking/internal/config"
)

// Slip uploads are bank-transfer screenshots reviewed by hand, so the store
// only needs to keep the bytes and hand back a URL the admin dashboard can
// render.

const MaxSlipBytes = 5 * 1024 * 1024

var (
	ErrUnsupportedType = errors.New("only JPG, PNG and WebP images are accepted")
	ErrTooLarge        = errors.New("slip image exceeds 5 MB")
)

var extByContentType = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// SlipStore writes slip images to local disk and serves them by URL.
type SlipStore struct {
	dir     string
	baseURL string
}

func NewSlipStore(cfg config.StorageConfig) (*SlipStore, error) {
	if err := os.MkdirAll(cfg.SlipDir, 0755); err != nil {
		return nil, fmt.Errorf("create slip dir: %w", err)
	}
	return &SlipStore{
		dir:     cfg.SlipDir,
		baseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}, nil
}

// Save validates and stores one slip image, returning its public URL.
// size is the declared content length; the copy is capped at MaxSlipBytes+1
// regardless, so a lying client cannot fill the disk.
func (s *SlipStore) Save(r io.Reader, contentType string, size int64) (string, error) {
	ext, ok := extByContentType[contentType]
	if !ok {
		return "", ErrUnsupportedType
	}
	if size > MaxSlipBytes {
		return "", ErrTooLarge
	}

	name := fmt.Sprintf("%s.%s", uuid.NewString(), ext)
	path := filepath.Join(s.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create slip file: %w", err)
	}
	defer f.Close()

	written, err := io.Copy(f, io.LimitReader(r, MaxSlipBytes+1))
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write slip file: %w", err)
	}
	if written > MaxSlipBytes {
		os.Remove(path)
		return "", ErrTooLarge
	}

	return s.baseURL + "/" + name, nil
}

// Dir exposes the storage directory for the static file route.
func (s *SlipStore) Dir() string {
	return s.dir
}
