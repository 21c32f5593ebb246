// Package schema loads the JSON schemas of the Timebutler streams and coerces
// aligned string records into the types they declare.
package schema

import "slices"

// FormatDateTime is the JSON Schema format that needs parsing during coercion.
const FormatDateTime = "date-time"

// Property is one schema property in declaration order.
type Property struct {
	Name   string
	Types  []string
	Format string
	// Derived properties are computed by the pipeline and never aligned from the feed.
	Derived bool
}

// Nullable reports whether null is an accepted type.
func (p Property) Nullable() bool {
	return slices.Contains(p.Types, "null")
}

// PrimaryType returns the first non-null type, or "string" when none is declared.
func (p Property) PrimaryType() string {
	for _, t := range p.Types {
		if t != "null" {
			return t
		}
	}
	return "string"
}

// IsDateTime reports whether the property carries the date-time format.
func (p Property) IsDateTime() bool {
	return p.Format == FormatDateTime
}

// Descriptor is the read-only view of one stream schema.
type Descriptor struct {
	Stream     string
	Properties []Property
	// Raw is the decoded schema document, emitted as-is in SCHEMA messages.
	Raw map[string]any

	index map[string]int
}

func newDescriptor(stream string, props []Property, raw map[string]any) *Descriptor {
	d := &Descriptor{
		Stream:     stream,
		Properties: props,
		Raw:        raw,
		index:      make(map[string]int, len(props)),
	}
	for i, p := range props {
		d.index[p.Name] = i
	}
	return d
}

// Property looks a property up by name.
func (d *Descriptor) Property(name string) (Property, bool) {
	i, ok := d.index[name]
	if !ok {
		return Property{}, false
	}
	return d.Properties[i], true
}

// Names returns every property name in declaration order.
func (d *Descriptor) Names() []string {
	out := make([]string, 0, len(d.Properties))
	for _, p := range d.Properties {
		out = append(out, p.Name)
	}
	return out
}

// SourceProperties returns the names the feed columns align to, in order.
func (d *Descriptor) SourceProperties() []string {
	out := make([]string, 0, len(d.Properties))
	for _, p := range d.Properties {
		if !p.Derived {
			out = append(out, p.Name)
		}
	}
	return out
}

// DateTimeProperties returns the names declared with the date-time format.
func (d *Descriptor) DateTimeProperties() []string {
	var out []string
	for _, p := range d.Properties {
		if p.IsDateTime() {
			out = append(out, p.Name)
		}
	}
	return out
}
