package jit

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"jitcc/internal/mir"
	"jitcc/internal/symbols"
)

// Dump writes the symbol tables, every image and the open units. It does
// not change compilation state.
func (c *Compiler) Dump(w io.Writer) error {
	var rows [][3]string
	for _, g := range c.globals.All() {
		kind, where := "var", c.location(g.Addr)
		if r, ok := g.Ref.(symbols.FuncRef); ok {
			kind, where = "fn", c.funcLocation(r.Fn, g.Addr)
		}
		rows = append(rows, [3]string{g.Name, kind + " " + c.typeName(g.Type), where})
	}
	for _, k := range c.consts.All() {
		rows = append(rows, [3]string{k.Name, "const " + c.typeName(k.Type), c.location(k.Ref.Addr)})
	}
	for _, name := range c.OpNames() {
		p, _ := c.env.Lookup(name)
		rows = append(rows, [3]string{name, "op " + c.typeName(p.Body), ""})
	}
	if err := writeTable(w, "symbols", rows); err != nil {
		return err
	}
	if err := c.dumpScopes(w); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "region %d bytes, heap %d of %d bytes\n",
		c.region.Used(), c.eng.Heap().Used(), c.eng.Heap().Cap()); err != nil {
		return err
	}
	return c.eng.Dump(w)
}

// location tells region storage from bound host memory.
func (c *Compiler) location(addr uintptr) string {
	if c.region.Contains(addr) {
		return fmt.Sprintf("%#x region", addr)
	}
	return fmt.Sprintf("%#x host", addr)
}

func (c *Compiler) funcLocation(v mir.Value, addr uintptr) string {
	f, ok := v.(*mir.Func)
	if !ok {
		return c.location(addr)
	}
	if img, ok := c.eng.ImageOf(f.Module); ok {
		if addr, ok := img.FuncAddr(f); ok {
			return fmt.Sprintf("%#x image #%d", addr, img.ID)
		}
	}
	return "pending in " + f.Module.Name
}

// dumpScopes lists the open lexical scopes, innermost first. Only the
// root scope is open between operations, so it is skipped when empty.
func (c *Compiler) dumpScopes(w io.Writer) error {
	var rows [][3]string
	all := c.scopes.Names()
	for i, names := range all {
		if len(names) == 0 {
			continue
		}
		slices.Sort(names)
		rows = append(rows, [3]string{"#" + strconv.Itoa(len(all)-1-i), strings.Join(names, " "), ""})
	}
	if len(rows) == 0 {
		return nil
	}
	return writeTable(w, "scopes", rows)
}

// writeTable aligns columns by display width; names may be any unicode.
func writeTable(w io.Writer, title string, rows [][3]string) error {
	if _, err := fmt.Fprintf(w, "%s (%d)\n", title, len(rows)); err != nil {
		return err
	}
	var width [2]int
	for _, r := range rows {
		width[0] = max(width[0], runewidth.StringWidth(r[0]))
		width[1] = max(width[1], runewidth.StringWidth(r[1]))
	}
	for _, r := range rows {
		line := "  " + runewidth.FillRight(r[0], width[0]) + "  " + r[1]
		if r[2] != "" {
			line = "  " + runewidth.FillRight(r[0], width[0]) + "  " + runewidth.FillRight(r[1], width[1]) + "  " + r[2]
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
