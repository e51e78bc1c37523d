package types

import "testing"

func TestInternerBuiltins(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	if b.Unit == NoTypeID || b.Bool == NoTypeID || b.Long == NoTypeID {
		t.Fatalf("builtins not initialized")
	}
	unit, _ := in.Lookup(b.Unit)
	if unit.Kind != KindUnit {
		t.Fatalf("expected unit kind, got %v", unit.Kind)
	}
	if elem, ok := in.ElemOf(b.String); !ok || elem != b.Char {
		t.Fatalf("string must be an array of char")
	}
}

func TestInternerDeduplicatesDescriptors(t *testing.T) {
	in := NewInterner()
	elem := in.Builtins().Long
	arr1 := in.Array(elem)
	arr2 := in.Intern(MakeArray(elem))
	if arr1 != arr2 {
		t.Fatalf("array types should be deduplicated")
	}
	f1 := in.RegisterFn([]TypeID{elem, elem}, elem)
	f2 := in.RegisterFn([]TypeID{elem, elem}, elem)
	if f1 != f2 {
		t.Fatalf("function types should be deduplicated")
	}
	if f3 := in.RegisterFn([]TypeID{elem}, elem); f3 == f1 {
		t.Fatalf("different arity must give a different type")
	}
}

func TestTypeStrings(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	fn := in.RegisterFn([]TypeID{in.Array(b.Long), b.String}, b.Double)
	if got := in.String(fn); got != "([long], string) -> double" {
		t.Fatalf("unexpected rendering %q", got)
	}
	if got := in.String(in.Var(1)); got != "t1" {
		t.Fatalf("unexpected variable rendering %q", got)
	}
}

func TestLayoutOf(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	cases := []struct {
		id   TypeID
		size uint64
	}{
		{b.Bool, 1}, {b.Char, 1}, {b.Short, 2}, {b.Int, 4},
		{b.Float, 4}, {b.Long, 8}, {b.Double, 8}, {b.String, 8},
	}
	for _, tc := range cases {
		if got := in.LayoutOf(tc.id); got.Size != tc.size || got.Align != tc.size {
			t.Fatalf("%s: layout %+v, want size %d", in.String(tc.id), got, tc.size)
		}
	}
}
