// Package tracefile reads and writes trace files. A file is a header
// followed by one frame per window: the window encoded with the codec named
// in the header, length-prefixed, then the blake2b-256 digest of the encoded
// window.
package tracefile

import (
	"encoding/hex"
	"fmt"
	"path/filepath"

	"golang.org/x/crypto/blake2b"
)

const (
	Version   uint16 = 1
	Extension        = ".trace"
)

var magic = [8]byte{'U', 'O', 'P', 'T', 'R', 'A', 'C', 'E'}

// Header is always written with the compact codec.
type Header struct {
	Magic   [8]byte
	Version uint16
	Codec   string
	Core    uint32
}

type Digest [blake2b.Size256]byte

func digestOf(payload []byte) Digest {
	return blake2b.Sum256(payload)
}

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Short returns the first eight hex digits, enough for dumps.
func (d Digest) Short() string {
	return hex.EncodeToString(d[:4])
}

// PathFor returns the trace file path of core inside dir.
func PathFor(dir string, core uint32) string {
	return filepath.Join(dir, fmt.Sprintf("core-%d%s", core, Extension))
}
