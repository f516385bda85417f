// Package audiostore archives the audio samples enrollments were built from,
// keyed by their content hash, so that a voiceprint can be traced back to
// its source.
package audiostore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/voicepay/internal/filex"
)

// ErrInvalidKey is returned for keys that are empty or escape the archive.
var ErrInvalidKey = errors.New("audiostore: invalid key")

type Archive interface {
	Put(ctx context.Context, key string, data []byte) error
	// Locate returns where key can be fetched from: a path or a temporary URL.
	Locate(ctx context.Context, key string) (string, error)
}

// SampleKey is the archive key of a sample with the given content hash.
func SampleKey(hash string) string {
	if len(hash) < 2 {
		return "samples/" + hash
	}
	return fmt.Sprintf("samples/%s/%s", hash[:2], hash)
}

func checkKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// Nop discards every sample.
type Nop struct{}

func (Nop) Put(context.Context, string, []byte) error { return nil }

func (Nop) Locate(context.Context, string) (string, error) { return "", nil }

// Local stores samples below a root directory.
type Local struct {
	root string
}

func NewLocal(root string) (*Local, error) {
	abs, err := filex.EnsureDir(root)
	if err != nil {
		return nil, err
	}
	return &Local{root: abs}, nil
}

func (l *Local) path(key string) string {
	return filepath.Join(l.root, filepath.FromSlash(key))
}

func (l *Local) Put(ctx context.Context, key string, data []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	return filex.WriteFileAtomic(l.path(key), data, 0o600)
}

func (l *Local) Locate(ctx context.Context, key string) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}
	p := l.path(key)
	if _, err := os.Stat(p); err != nil {
		return "", err
	}
	return p, nil
}
