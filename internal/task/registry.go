package task

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Registration is an immutable, resolved task entry.
type Registration struct {
	Name        string
	DisplayName string
	Description string
	Schema      ArgumentSchema
	Handler     Handler
}

// validateArguments applies the declared schema, or passes arguments
// through unchanged when none is declared.
func (r Registration) validateArguments(raw json.RawMessage) (any, error) {
	if r.Schema == nil {
		return decodeUntyped(raw)
	}
	return r.Schema.Validate(raw)
}

// FunctionInfo is the discovery view of a registration.
type FunctionInfo struct {
	Name        string      `json:"name"`
	DisplayName string      `json:"display_name"`
	Description string      `json:"description,omitempty"`
	Arguments   []FieldInfo `json:"arguments,omitempty"`
}

// Builder collects definitions at startup. It is not safe for concurrent use;
// call Build once every group has been discovered.
type Builder struct {
	entries map[string]Registration
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{entries: make(map[string]Registration)}
}

// Register adds a single definition.
func (b *Builder) Register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidDefinition)
	}
	if def.Handler == nil {
		return fmt.Errorf("%w: task %q has no handler", ErrInvalidDefinition, def.Name)
	}
	if _, exists := b.entries[def.Name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, def.Name)
	}

	b.entries[def.Name] = Registration{
		Name:        def.Name,
		DisplayName: displayName(def.Name, def.Doc),
		Description: strings.TrimSpace(def.Doc),
		Schema:      def.Schema,
		Handler:     def.Handler,
	}
	return nil
}

// Discover registers every definition of every group, stopping at the first failure.
func (b *Builder) Discover(groups ...Group) error {
	for _, g := range groups {
		for _, def := range g.Tasks() {
			if err := b.Register(def); err != nil {
				return err
			}
		}
	}
	return nil
}

// Build freezes the collected definitions into a Registry.
func (b *Builder) Build() *Registry {
	entries := make(map[string]Registration, len(b.entries))
	listing := make([]FunctionInfo, 0, len(b.entries))
	for name, reg := range b.entries {
		entries[name] = reg
		info := FunctionInfo{
			Name:        reg.Name,
			DisplayName: reg.DisplayName,
			Description: reg.Description,
		}
		if reg.Schema != nil {
			info.Arguments = reg.Schema.Fields()
		}
		listing = append(listing, info)
	}
	sort.Slice(listing, func(i, j int) bool { return listing[i].Name < listing[j].Name })

	return &Registry{entries: entries, listing: listing}
}

// Registry is the immutable name to handler table. It requires no
// synchronization after Build.
type Registry struct {
	entries map[string]Registration
	listing []FunctionInfo
}

// NewRegistry discovers the given groups and builds a Registry in one step.
func NewRegistry(groups ...Group) (*Registry, error) {
	b := NewBuilder()
	if err := b.Discover(groups...); err != nil {
		return nil, err
	}
	return b.Build(), nil
}

// Resolve looks a task up by name.
func (r *Registry) Resolve(name string) (Registration, error) {
	reg, ok := r.entries[name]
	if !ok {
		return Registration{}, taskNameNotFound(name)
	}
	return reg, nil
}

// ListTaskFunctions returns every registered task sorted by name.
func (r *Registry) ListTaskFunctions() []FunctionInfo {
	out := make([]FunctionInfo, len(r.listing))
	copy(out, r.listing)
	return out
}

// Len returns the number of registered tasks.
func (r *Registry) Len() int {
	return len(r.entries)
}

// displayName uses the first non-empty line of the documentation as written,
// falling back to the name with separators replaced and words title-cased.
func displayName(name, doc string) string {
	for _, line := range strings.Split(doc, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	words := strings.Fields(strings.NewReplacer("_", " ", "-", " ").Replace(name))
	return cases.Title(language.English).String(strings.Join(words, " "))
}
