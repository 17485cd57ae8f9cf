package content

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ParseYAML parses a YAML (or JSON) document into a Value. Scalars keep
// their YAML typing; timestamps stay strings so no precision is lost.
func ParseYAML(data []byte) (Value, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if node.Kind == 0 {
		return Null{}, nil
	}
	return FromYAMLNode(&node)
}

// FromYAMLNode converts a yaml.v3 node tree into a Value.
func FromYAMLNode(n *yaml.Node) (Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return Null{}, nil
		}
		return FromYAMLNode(n.Content[0])
	case yaml.AliasNode:
		return FromYAMLNode(n.Alias)
	case yaml.SequenceNode:
		arr := &Array{Items: make([]Value, 0, len(n.Content))}
		for _, c := range n.Content {
			v, err := FromYAMLNode(c)
			if err != nil {
				return nil, err
			}
			arr.Items = append(arr.Items, v)
		}
		return arr, nil
	case yaml.MappingNode:
		obj := &Object{Fields: make(map[string]Value, len(n.Content)/2)}
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if k.Tag == "!!merge" {
				merged, err := FromYAMLNode(v)
				if err != nil {
					return nil, err
				}
				if mo, ok := merged.(*Object); ok {
					for mk, mv := range mo.Fields {
						if _, exists := obj.Fields[mk]; !exists {
							obj.Fields[mk] = mv
						}
					}
				}
				continue
			}
			cv, err := FromYAMLNode(v)
			if err != nil {
				return nil, err
			}
			obj.Fields[k.Value] = cv
		}
		return obj, nil
	case yaml.ScalarNode:
		return scalarFromYAML(n)
	default:
		return nil, fmt.Errorf("line %d: unsupported yaml node kind %d", n.Line, n.Kind)
	}
}

func scalarFromYAML(n *yaml.Node) (Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return Null{}, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return Bool(b), nil
	case "!!int", "!!float":
		f, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			var decoded float64
			if derr := n.Decode(&decoded); derr != nil {
				return nil, fmt.Errorf("line %d: %w", n.Line, derr)
			}
			f = decoded
		}
		return Number(f), nil
	default:
		return String(n.Value), nil
	}
}

// MarshalYAML encodes v with yaml.v3.
func MarshalYAML(v Value) ([]byte, error) {
	return yaml.Marshal(ToAny(v))
}

// Decode converts v into a typed Go value using its yaml struct tags.
func Decode(v Value, out any) error {
	data, err := MarshalYAML(v)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, out)
}
