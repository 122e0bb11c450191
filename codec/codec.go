// Package codec provides the chunk codecs a COPC file's point data region is
// written through. A codec turns a block of raw little-endian point records
// into a compressed chunk and back; which codec a file uses is recorded in a
// VLR and resolved against the registry here.
package codec

import (
	"sync"

	"github.com/pkg/errors"
)

// Codec compresses and decompresses chunks of raw point records.
type Codec interface {
	// Name identifies the codec inside a file's codec VLR.
	Name() string

	// Encode compresses a block of raw point records.
	Encode(records []byte) ([]byte, error)

	// Decode decompresses a chunk back into recordCount records of
	// recordLength bytes each. Implementations must verify the decompressed
	// size matches.
	Decode(data []byte, recordCount, recordLength int) ([]byte, error)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Codec{}
)

// Register makes a codec resolvable by name. Registering the same name twice
// panics, as duplicate registrations are programmer error.
func Register(c Codec) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[c.Name()]; ok {
		panic(errors.Errorf("codec %q registered twice", c.Name()))
	}
	registry[c.Name()] = c
}

// Lookup resolves a codec by the name stored in a file.
func Lookup(name string) (Codec, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	c, ok := registry[name]
	return c, ok
}

func checkDecodedSize(got, recordCount, recordLength int) error {
	if want := recordCount * recordLength; got != want {
		return errors.Errorf("decoded %d bytes, expected %d records of %d bytes", got, recordCount, recordLength)
	}
	return nil
}
