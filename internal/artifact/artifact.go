// Package artifact serializes machine code taken from execution images so it
// can be inspected outside the process.
package artifact

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"jitcc/internal/engine"
)

// SchemaVersion is bumped whenever the Artifact layout changes.
const SchemaVersion uint16 = 1

// ErrSchema reports an artifact written by another layout version.
var ErrSchema = errors.New("artifact: schema mismatch")

// Artifact is a snapshot of generated code. Code is position dependent only
// through absolute addresses baked into it, so Base records where it ran.
type Artifact struct {
	Schema  uint16   `msgpack:"schema"`
	Name    string   `msgpack:"name"`
	Arch    string   `msgpack:"arch"`
	Base    uint64   `msgpack:"base"`
	Code    []byte   `msgpack:"code"`
	Symbols []Symbol `msgpack:"symbols"`
}

// Symbol locates one function inside Code. Stub is -1 without an entry stub.
type Symbol struct {
	Name   string `msgpack:"name"`
	Offset int    `msgpack:"offset"`
	Size   int    `msgpack:"size"`
	Stub   int    `msgpack:"stub"`
}

// FromImage captures a live image.
func FromImage(name string, img *engine.Image) *Artifact {
	a := &Artifact{
		Schema: SchemaVersion,
		Name:   name,
		Arch:   "amd64",
		Base:   uint64(img.Base()),
		Code:   img.Code(),
	}
	for _, s := range img.Symbols() {
		a.Symbols = append(a.Symbols, Symbol{Name: s.Name, Offset: s.Offset, Size: s.Size, Stub: s.Stub})
	}
	return a
}

// FromCode wraps the body of a single function.
func FromCode(name string, code []byte) *Artifact {
	return &Artifact{
		Schema:  SchemaVersion,
		Name:    name,
		Arch:    "amd64",
		Code:    code,
		Symbols: []Symbol{{Name: name, Size: len(code), Stub: -1}},
	}
}

// Lookup returns the bytes of the named function.
func (a *Artifact) Lookup(name string) ([]byte, bool) {
	for _, s := range a.Symbols {
		if s.Name == name {
			if s.Offset < 0 || s.Offset+s.Size > len(a.Code) {
				return nil, false
			}
			return a.Code[s.Offset : s.Offset+s.Size], true
		}
	}
	return nil, false
}

// Encode writes a as msgpack.
func Encode(w io.Writer, a *Artifact) error {
	if a.Schema == 0 {
		a.Schema = SchemaVersion
	}
	return msgpack.NewEncoder(w).Encode(a)
}

// Decode reads one artifact and checks its schema.
func Decode(r io.Reader) (*Artifact, error) {
	var a Artifact
	if err := msgpack.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("artifact: %w", err)
	}
	if a.Schema != SchemaVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSchema, a.Schema, SchemaVersion)
	}
	return &a, nil
}

// WriteFile stores a at path, replacing any previous file atomically.
func WriteFile(path string, a *Artifact) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()
	if err = Encode(f, a); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}

// ReadFile loads an artifact written by WriteFile.
func ReadFile(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}
