// Package codec converts navigation data between the generator's script
// form and structured data files.
package codec

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/doxnav/internal/navtree"
)

// Codec reads and writes navigation data in one file format.
type Codec interface {
	Decode(r io.Reader) (*navtree.Data, error)
	Encode(w io.Writer, d *navtree.Data) error
	// ContentType is the media type used when serving the format.
	ContentType() string
}

// Formats lists the format names accepted by ForFormat.
var Formats = []string{"js", "json", "yaml", "markdown"}

// ForFormat returns the codec registered under name.
func ForFormat(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case "js", "script", "":
		return Script{}, nil
	case "json":
		return JSON{}, nil
	case "yaml", "yml":
		return YAML{}, nil
	case "markdown", "md":
		return Markdown{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", name)
	}
}

// ForFile returns the appropriate codec for a filename.
func ForFile(filename string) (Codec, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".js":
		return Script{}, nil
	case ".json":
		return JSON{}, nil
	case ".yaml", ".yml":
		return YAML{}, nil
	case ".md", ".markdown":
		return Markdown{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// Script is the generator's own navtreedata.js form.
type Script struct{}

func (Script) Decode(r io.Reader) (*navtree.Data, error) {
	return navtree.Parse(r)
}

func (Script) Encode(w io.Writer, d *navtree.Data) error {
	return navtree.Write(w, d)
}

func (Script) ContentType() string {
	return "text/javascript; charset=utf-8"
}
