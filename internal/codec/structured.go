package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dgallion1/doxnav/internal/navtree"
	"gopkg.in/yaml.v3"
)

// JSON stores the tree in the script's tuple shape inside a JSON document.
type JSON struct{}

func (JSON) Decode(r io.Reader) (*navtree.Data, error) {
	var d navtree.Data
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return &d, nil
}

func (JSON) Encode(w io.Writer, d *navtree.Data) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

func (JSON) ContentType() string {
	return "application/json"
}

// YAML stores the tree as nested mappings.
type YAML struct{}

func (YAML) Decode(r io.Reader) (*navtree.Data, error) {
	var d navtree.Data
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return &d, nil
}

func (YAML) Encode(w io.Writer, d *navtree.Data) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return nil
}

func (YAML) ContentType() string {
	return "application/yaml"
}
