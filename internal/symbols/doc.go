// Package symbols holds the name tables the JIT resolves against: the
// lexical scope stack, global definitions, the constant pool and the
// interned string pool.
//
// Names are stored in Unicode NFC so that differently composed spellings
// of the same identifier resolve to one entry.
package symbols
