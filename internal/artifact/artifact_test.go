package artifact

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

func TestFileKeepsSymbols(t *testing.T) {
	a := &Artifact{
		Name: "unit",
		Arch: "amd64",
		Base: 0x7f0000001000,
		Code: []byte{0x55, 0x48, 0x89, 0xe5, 0xc3, 0x90, 0xc3},
		Symbols: []Symbol{
			{Name: "f", Offset: 0, Size: 5, Stub: -1},
			{Name: "g", Offset: 5, Size: 2, Stub: 5},
		},
	}
	path := filepath.Join(t.TempDir(), "unit.mp")
	if err := WriteFile(path, a); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Schema != SchemaVersion || got.Base != a.Base || len(got.Symbols) != 2 {
		t.Fatalf("unexpected artifact: %+v", got)
	}
	g, ok := got.Lookup("g")
	if !ok || !bytes.Equal(g, []byte{0x90, 0xc3}) {
		t.Fatalf("lookup g = % x, %v", g, ok)
	}
	if _, ok := got.Lookup("h"); ok {
		t.Fatalf("lookup of absent symbol succeeded")
	}
}

func TestFromCodeCoversBody(t *testing.T) {
	a := FromCode("expr", []byte{0xc3})
	body, ok := a.Lookup("expr")
	if !ok || len(body) != 1 || a.Symbols[0].Stub != -1 {
		t.Fatalf("unexpected artifact: %+v", a)
	}
}

func TestDecodeRejectsOtherSchema(t *testing.T) {
	var buf bytes.Buffer
	if err := msgpack.NewEncoder(&buf).Encode(&Artifact{Schema: SchemaVersion + 1, Name: "x"}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := Decode(&buf); !errors.Is(err, ErrSchema) {
		t.Fatalf("expected schema error, got %v", err)
	}
}

func TestLookupRejectsBrokenBounds(t *testing.T) {
	a := &Artifact{Code: []byte{1, 2}, Symbols: []Symbol{{Name: "f", Offset: 1, Size: 4}}}
	if _, ok := a.Lookup("f"); ok {
		t.Fatalf("out of range symbol resolved")
	}
}
