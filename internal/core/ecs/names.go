package ecs

import (
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MaxEntityNameLength is the size of a name buffer including its terminator, so names
// keep at most MaxEntityNameLength-1 bytes.
const MaxEntityNameLength = 32

// normalizeName puts s in NFC and cuts it to the name buffer on a rune boundary.
func normalizeName(s string) string {
	s = norm.NFC.String(s)
	if len(s) < MaxEntityNameLength {
		return s
	}
	cut := MaxEntityNameLength - 1
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// SetEntityName names e. Naming an unnamed entity "" is a no-op; renaming a named
// one overwrites its entry in place.
func (w *World) SetEntityName(e EntityRef, name string) {
	d := w.entities.must(e)
	name = normalizeName(name)
	if d.name < 0 {
		if name == "" {
			return
		}
		d.name = w.names.add(e, name)
		return
	}
	*w.names.at(d.name) = name
}

// EntityName returns e's name or "".
func (w *World) EntityName(e EntityRef) string {
	d := w.entities.must(e)
	if d.name < 0 {
		return ""
	}
	return *w.names.at(d.name)
}

// FindByName looks for an entity called name. With a valid parent only its direct
// children are searched; otherwise only root entities match.
func (w *World) FindByName(parent EntityPtr, name string) EntityPtr {
	name = normalizeName(name)
	if p, ok := parent.Ref(); ok {
		for c := range w.Children(p) {
			if n := w.entities.data[c].name; n >= 0 && *w.names.at(n) == name {
				return c.Ptr()
			}
		}
		return InvalidEntity
	}

	for i := 0; i < w.names.len(); i++ {
		if *w.names.at(int32(i)) != name {
			continue
		}
		owner := w.names.owner(int32(i))
		if n := w.node(owner); n == nil || !n.parent.IsValid() {
			return owner.Ptr()
		}
	}
	return InvalidEntity
}

// NamedCount returns the number of entries in the name table.
func (w *World) NamedCount() int {
	return w.names.len()
}
