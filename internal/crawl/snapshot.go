package crawl

import (
	"errors"
	"io"

	yaml "go.yaml.in/yaml/v3"
)

// EncodeSnapshot writes the tree rooted at root as YAML. The format is the
// stable wire shape of the tagged node variant: task nodes carry kind,
// state, template, url and children; data nodes carry kind and data.
func EncodeSnapshot(w io.Writer, root *Node) error {
	if root == nil {
		return ErrEmptySnapshot
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

// DecodeSnapshot reads a tree previously written by EncodeSnapshot. The
// root must be a task node; node kinds, states, child order and payload
// values round-trip without loss.
func DecodeSnapshot(r io.Reader) (*Node, error) {
	var n Node
	if err := yaml.NewDecoder(r).Decode(&n); err != nil {
		return nil, err
	}
	if n.Kind != KindTask {
		return nil, errors.New("snapshot root must be a task node")
	}
	return &n, nil
}
