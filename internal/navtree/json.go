package navtree

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MarshalJSON encodes the node in the same tuple shape the script uses:
// [title, href|null, children|part|null].
func (n *Node) MarshalJSON() ([]byte, error) {
	var third any
	switch {
	case n.Part != "":
		third = n.Part
	case n.Children != nil:
		third = n.Children
	}
	return json.Marshal([]any{n.Title, n.Href, third})
}

// UnmarshalJSON decodes the tuple shape produced by MarshalJSON.
func (n *Node) UnmarshalJSON(b []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(b, &tuple); err != nil {
		return fmt.Errorf("navigation entry: %w", err)
	}
	if len(tuple) != 3 {
		return fmt.Errorf("navigation entry: want 3 elements, got %d", len(tuple))
	}

	*n = Node{}
	if err := json.Unmarshal(tuple[0], &n.Title); err != nil {
		return fmt.Errorf("navigation entry title: %w", err)
	}
	if err := json.Unmarshal(tuple[1], &n.Href); err != nil {
		return fmt.Errorf("navigation entry %q href: %w", n.Title, err)
	}

	third := bytes.TrimSpace(tuple[2])
	switch {
	case bytes.Equal(third, []byte("null")):
	case len(third) > 0 && third[0] == '"':
		if err := json.Unmarshal(third, &n.Part); err != nil {
			return fmt.Errorf("navigation entry %q part: %w", n.Title, err)
		}
	default:
		n.Children = []*Node{}
		if err := json.Unmarshal(third, &n.Children); err != nil {
			return fmt.Errorf("navigation entry %q children: %w", n.Title, err)
		}
	}
	return nil
}
