package plugin

import (
	"fmt"
	"strings"
)

// Type is the kind of a plugin, used as the first segment of its lockfile path.
type Type string

const (
	TypeExtractors    Type = "extractors"
	TypeLoaders       Type = "loaders"
	TypeTransformers  Type = "transformers"
	TypeUtilities     Type = "utilities"
	TypeOrchestrators Type = "orchestrators"
	TypeMappers       Type = "mappers"
	TypeFiles         Type = "files"
)

var validTypes = map[Type]struct{}{
	TypeExtractors:    {},
	TypeLoaders:       {},
	TypeTransformers:  {},
	TypeUtilities:     {},
	TypeOrchestrators: {},
	TypeMappers:       {},
	TypeFiles:         {},
}

// Valid reports whether t is a known plugin type.
func (t Type) Valid() bool {
	_, ok := validTypes[t]
	return ok
}

// ParseType accepts a plugin type name, case-insensitively.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown plugin type %q", s)
	}
	return t, nil
}

// Ref identifies a plugin independent of variant.
type Ref struct {
	Type Type
	Name string
}

func (r Ref) String() string {
	return string(r.Type) + "/" + r.Name
}

// Setting is a configurable value a variant declares.
type Setting struct {
	Name        string `yaml:"name" json:"name"`
	Kind        string `yaml:"kind,omitempty" json:"kind,omitempty"`
	Label       string `yaml:"label,omitempty" json:"label,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Value       any    `yaml:"value,omitempty" json:"value,omitempty"`
	Sensitive   bool   `yaml:"sensitive,omitempty" json:"sensitive,omitempty"`
}

// Variant is one named implementation of a plugin definition.
type Variant struct {
	Name         string    `yaml:"name"`
	Original     bool      `yaml:"original,omitempty"`
	Deprecated   bool      `yaml:"deprecated,omitempty"`
	Namespace    string    `yaml:"namespace,omitempty"`
	PipURL       string    `yaml:"pip_url,omitempty"`
	Repo         string    `yaml:"repo,omitempty"`
	Docs         string    `yaml:"docs,omitempty"`
	Executable   string    `yaml:"executable,omitempty"`
	Capabilities []string  `yaml:"capabilities,omitempty"`
	Settings     []Setting `yaml:"settings,omitempty"`
}

// Definition is a plugin as published in a hub: identity plus its variants.
type Definition struct {
	Type        Type      `yaml:"plugin_type"`
	Name        string    `yaml:"name"`
	Namespace   string    `yaml:"namespace,omitempty"`
	Label       string    `yaml:"label,omitempty"`
	Description string    `yaml:"description,omitempty"`
	Variants    []Variant `yaml:"variants"`
}

// Ref returns the definition's identity.
func (d *Definition) Ref() Ref {
	return Ref{Type: d.Type, Name: d.Name}
}

const (
	VariantDefault  = "default"
	VariantOriginal = "original"
)

// VariantNotFoundError is returned when a definition has no variant by the
// requested name.
type VariantNotFoundError struct {
	Plugin  Ref
	Variant string
}

func (e *VariantNotFoundError) Error() string {
	return fmt.Sprintf("%s has no variant named %q", e.Plugin, e.Variant)
}

// FindVariant resolves a variant by name. "" and "default" select the first
// declared variant; "original" selects the one flagged original, falling back
// to the first.
func (d *Definition) FindVariant(name string) (*Variant, error) {
	if len(d.Variants) == 0 {
		return nil, &VariantNotFoundError{Plugin: d.Ref(), Variant: name}
	}

	switch name {
	case "", VariantDefault:
		return &d.Variants[0], nil
	case VariantOriginal:
		for i := range d.Variants {
			if d.Variants[i].Original {
				return &d.Variants[i], nil
			}
		}
		return &d.Variants[0], nil
	}

	for i := range d.Variants {
		if d.Variants[i].Name == name {
			return &d.Variants[i], nil
		}
	}
	return nil, &VariantNotFoundError{Plugin: d.Ref(), Variant: name}
}

func (d *Definition) validate() error {
	if !d.Type.Valid() {
		return fmt.Errorf("invalid plugin_type %q", d.Type)
	}
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if len(d.Variants) == 0 {
		return fmt.Errorf("at least one variant must be declared")
	}
	seen := make(map[string]struct{}, len(d.Variants))
	for _, v := range d.Variants {
		if strings.TrimSpace(v.Name) == "" {
			return fmt.Errorf("variant name is required")
		}
		if strings.ContainsAny(v.Name, `/\`) {
			return fmt.Errorf("variant name %q must not contain path separators", v.Name)
		}
		if _, dup := seen[v.Name]; dup {
			return fmt.Errorf("duplicate variant %q", v.Name)
		}
		seen[v.Name] = struct{}{}
	}
	return nil
}

// ProjectPlugin is a plugin as added to a project: its definition plus the
// variant the project asked for.
type ProjectPlugin struct {
	Type       Type
	Name       string
	Variant    string
	Definition *Definition
}

// Ref returns the plugin's identity.
func (p *ProjectPlugin) Ref() Ref {
	return Ref{Type: p.Type, Name: p.Name}
}
