package wire

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// MarshalYAML renders the object as a YAML mapping in key order.
func (o *Object) MarshalYAML() (any, error) {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	if o == nil {
		return n, nil
	}
	for _, k := range o.keys {
		vn := &yaml.Node{}
		if err := vn.Encode(yamlValue(o.vals[k])); err != nil {
			return nil, err
		}
		n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}, vn)
	}
	return n, nil
}

func yamlValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		return Plain(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = yamlValue(t[i])
		}
		return out
	}
	return v
}
