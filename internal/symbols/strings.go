package symbols

import "strconv"

// StringPool maps string contents to the name of the constant holding them.
type StringPool struct {
	names  map[string]string
	order  []string
	prefix string
}

// NewStringPool names constants prefix0, prefix1, ...
func NewStringPool(prefix string) *StringPool {
	return &StringPool{names: make(map[string]string), prefix: prefix}
}

// Intern returns the constant name for s, and whether it was just created.
func (p *StringPool) Intern(s string) (name string, fresh bool) {
	if name, ok := p.names[s]; ok {
		return name, false
	}
	name = p.prefix + strconv.Itoa(len(p.order))
	p.names[s] = name
	p.order = append(p.order, s)
	return name, true
}

func (p *StringPool) Lookup(s string) (string, bool) {
	name, ok := p.names[s]
	return name, ok
}

func (p *StringPool) Len() int {
	return len(p.order)
}

// Truncate forgets strings interned after the pool had n entries.
func (p *StringPool) Truncate(n int) {
	for _, s := range p.order[n:] {
		delete(p.names, s)
	}
	p.order = p.order[:n]
}
