package schema

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"

	"gopkg.in/yaml.v3"
)

//go:embed schemas/*.json
var embedded embed.FS

// ErrUnknownStream is returned when no schema file exists for a stream.
var ErrUnknownStream = errors.New("unknown stream")

// Provider loads stream descriptors from a filesystem of <stream>.json files.
type Provider struct {
	fsys fs.FS
	dir  string
}

// NewProvider returns a provider backed by the schemas compiled into the binary.
func NewProvider() *Provider {
	return &Provider{fsys: embedded, dir: "schemas"}
}

// NewProviderFS returns a provider reading <dir>/<stream>.json from fsys.
func NewProviderFS(fsys fs.FS, dir string) *Provider {
	return &Provider{fsys: fsys, dir: dir}
}

// Load reads and parses the schema for stream.
// JSON is decoded through yaml.v3 nodes so property order survives, which positional
// alignment depends on.
func (p *Provider) Load(stream string) (*Descriptor, error) {
	data, err := fs.ReadFile(p.fsys, path.Join(p.dir, stream+".json"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownStream, stream)
		}
		return nil, fmt.Errorf("failed to read schema %s: %w", stream, err)
	}
	return Parse(stream, data)
}

type propertyNode struct {
	Type    yaml.Node `yaml:"type"`
	Format  string    `yaml:"format"`
	Derived bool      `yaml:"x-derived"`
}

// Parse builds a descriptor from a raw JSON schema document.
func Parse(stream string, data []byte) (*Descriptor, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse schema %s: %w", stream, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("schema %s: top level must be an object", stream)
	}
	root := doc.Content[0]

	var raw map[string]any
	if err := root.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode schema %s: %w", stream, err)
	}

	propsNode := mappingValue(root, "properties")
	if propsNode == nil || propsNode.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("schema %s: missing properties object", stream)
	}

	props := make([]Property, 0, len(propsNode.Content)/2)
	for i := 0; i+1 < len(propsNode.Content); i += 2 {
		name := propsNode.Content[i].Value
		var pn propertyNode
		if err := propsNode.Content[i+1].Decode(&pn); err != nil {
			return nil, fmt.Errorf("schema %s: property %s: %w", stream, name, err)
		}
		types, err := decodeTypes(&pn.Type)
		if err != nil {
			return nil, fmt.Errorf("schema %s: property %s: %w", stream, name, err)
		}
		props = append(props, Property{
			Name:    name,
			Types:   types,
			Format:  pn.Format,
			Derived: pn.Derived,
		})
	}
	return newDescriptor(stream, props, raw), nil
}

func mappingValue(n *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}

func decodeTypes(n *yaml.Node) ([]string, error) {
	switch n.Kind {
	case 0:
		return nil, nil
	case yaml.ScalarNode:
		return []string{n.Value}, nil
	case yaml.SequenceNode:
		var out []string
		if err := n.Decode(&out); err != nil {
			return nil, err
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported type declaration")
	}
}
