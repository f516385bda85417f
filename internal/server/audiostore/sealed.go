package audiostore

import (
	"context"

	"github.com/dmitrijs2005/voicepay/internal/cryptox"
)

// sealSalt is fixed so that the same passphrase opens samples written by
// any replica.
var sealSalt = []byte("voicepay/audiostore/v1")

// Sealed encrypts samples before handing them to the wrapped archive.
type Sealed struct {
	inner Archive
	key   []byte
}

func NewSealed(inner Archive, passphrase string) *Sealed {
	return &Sealed{inner: inner, key: SealKey(passphrase)}
}

// SealKey derives the archive key for passphrase.
func SealKey(passphrase string) []byte {
	return cryptox.DeriveKey([]byte(passphrase), sealSalt)
}

func (s *Sealed) Put(ctx context.Context, key string, data []byte) error {
	sealed, err := cryptox.Seal(s.key, data)
	if err != nil {
		return err
	}
	return s.inner.Put(ctx, key, sealed)
}

func (s *Sealed) Locate(ctx context.Context, key string) (string, error) {
	return s.inner.Locate(ctx, key)
}

// Unseal decrypts a sample fetched from the archive.
func Unseal(passphrase string, sealed []byte) ([]byte, error) {
	return cryptox.Open(SealKey(passphrase), sealed)
}
