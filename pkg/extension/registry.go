// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package extension implements the named, typed capability registry of
// §4.5: nodes look up cross-cutting services (e.g. bearer token providers)
// by name without owning them. The teacher's design note (§9 "Extension
// registry safety") offers a safe alternative to trait-object cast tables
// for languages without stable type identifiers — a map keyed by the
// capability's type identifier to a closure that downcasts the owner. Go's
// reflect.Type values are exactly that stable identifier, so this package
// implements that alternative directly instead of emulating vtable casts.
package extension

import (
	"fmt"
	"reflect"
)

// NotFoundError is returned by Get when no extension is registered under
// the requested name.
type NotFoundError struct{ Name string }

func (e *NotFoundError) Error() string { return fmt.Sprintf("extension: not found: %q", e.Name) }

// TraitNotImplementedError is returned by Get[T] when the named extension
// exists but does not implement the requested capability.
type TraitNotImplementedError struct {
	Name     string
	Expected string
}

func (e *TraitNotImplementedError) Error() string {
	return fmt.Sprintf("extension: %q does not implement %s", e.Name, e.Expected)
}

type entry struct {
	owner any
	// casts maps a capability interface's reflect.Type to a closure that
	// downcasts owner to that interface. Populated at Builder.Implement
	// time; only traits registered through Implement can ever be looked up,
	// which is this package's runtime stand-in for the teacher's
	// compile-time marker-interface opt-in (§4.5 invariants).
	casts map[reflect.Type]func(owner any) (any, bool)
}

// Registry is an immutable, named capability lookup table. The zero value
// is not usable; build one with NewBuilder.
type Registry struct {
	entries map[string]entry
}

// Builder accumulates extension instances and their capability casts before
// Build() freezes them into a Registry.
type Builder struct {
	entries map[string]entry
}

// NewBuilder creates an empty extension registry builder.
func NewBuilder() *Builder {
	return &Builder{entries: map[string]entry{}}
}

// Register adds an extension instance under name and returns an
// EntryBuilder for declaring which capability interfaces it implements.
// Registering the same name twice replaces the previous entry.
func (b *Builder) Register(name string, owner any) *EntryBuilder {
	e := entry{owner: owner, casts: map[reflect.Type]func(owner any) (any, bool){}}
	b.entries[name] = e
	return &EntryBuilder{builder: b, name: name}
}

// EntryBuilder declares the capability interfaces one registered extension
// implements.
type EntryBuilder struct {
	builder *Builder
	name    string
}

// Implement registers that the owner under construction implements
// capability interface T, by attempting a type assertion against T at
// lookup time. T must be an interface type; Implement panics otherwise,
// since that is a programmer error caught immediately rather than a
// runtime-data condition.
func Implement[T any](eb *EntryBuilder) *EntryBuilder {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if t.Kind() != reflect.Interface {
		panic("extension: Implement requires an interface type parameter")
	}
	e := eb.builder.entries[eb.name]
	e.casts[t] = func(owner any) (any, bool) {
		v, ok := owner.(T)
		return v, ok
	}
	eb.builder.entries[eb.name] = e
	return eb
}

// Build freezes the accumulated entries into an immutable Registry. The
// Builder must not be used afterward.
func (b *Builder) Build() *Registry {
	return &Registry{entries: b.entries}
}

// Clone returns a reference to the same underlying registry — extension
// registries are immutable after Build, so clones legitimately share state
// rather than copy it (§4.5 invariants).
func (r *Registry) Clone() *Registry {
	return r
}

// Names returns the registered extension names, for diagnostics.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for n := range r.entries {
		names = append(names, n)
	}
	return names
}

// Get looks up a capability of type T on the extension registered under
// name. Returns NotFoundError if no such extension exists, or
// TraitNotImplementedError if it exists but never registered T via
// Implement (§4.5 failure semantics).
func Get[T any](r *Registry, name string) (T, error) {
	var zero T
	e, ok := r.entries[name]
	if !ok {
		return zero, &NotFoundError{Name: name}
	}
	t := reflect.TypeOf((*T)(nil)).Elem()
	cast, ok := e.casts[t]
	if !ok {
		return zero, &TraitNotImplementedError{Name: name, Expected: t.String()}
	}
	v, ok := cast(e.owner)
	if !ok {
		// Registered as implementing T but the owner no longer satisfies
		// it (e.g. wrong value swapped in at Register time) — treat the
		// same as not implemented rather than panicking a caller.
		return zero, &TraitNotImplementedError{Name: name, Expected: t.String()}
	}
	return v, nil
}
