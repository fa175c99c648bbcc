package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ddddddO/gtree"
	"github.com/dgallion1/doxnav/internal/codec"
	"github.com/dgallion1/doxnav/internal/linkcheck"
	"github.com/dgallion1/doxnav/internal/navtree"
	"github.com/dgallion1/doxnav/internal/site"
	"github.com/spf13/cobra"
)

// input is a PATH argument: a loaded site directory or a single file.
type input struct {
	path  string
	data  *navtree.Data
	site  *site.Site
	raw   []byte
	codec codec.Codec
}

func openInput(path string) (*input, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, err
		}
		s, err := site.Load(filepath.Base(abs), path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		slog.Debug("site loaded", "dir", path, "parts", len(s.Parts), "missing", len(s.Missing))
		return &input{path: path, data: s.Data, site: s}, nil
	}

	c, err := codec.ForFile(path)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	d, err := c.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &input{path: path, data: d, raw: raw, codec: c}, nil
}

// tree returns the data to show; directories are expanded unless asked not
// to be.
func (in *input) tree(expand bool) *navtree.Data {
	if expand && in.site != nil {
		return in.site.Expanded()
	}
	return in.data
}

func (in *input) requireSite() error {
	if in.site == nil {
		return fmt.Errorf("%s: a documentation directory is required", in.path)
	}
	return nil
}

func newValidateCmd() *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "validate PATH...",
		Short: "Check navigation data for well-formedness",
		Long: `Check that every entry is well formed: children lists are non-empty or
null, hrefs and index entries are relative URLs with at most one fragment,
and referenced part and sub-index scripts exist.

Script files are also checked for the canonical layout that fmt writes.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			failed := false
			for _, path := range args {
				in, err := openInput(path)
				if err != nil {
					return err
				}
				var problems []navtree.Problem
				if in.site != nil {
					problems = in.site.Problems()
				} else {
					problems = navtree.Validate(in.data)
				}
				if _, ok := in.codec.(codec.Script); ok && navtree.Format(in.data) != string(in.raw) {
					problems = append(problems, navtree.Problem{
						Severity: navtree.SeverityWarning,
						Path:     filepath.Base(path),
						Message:  "not in canonical layout; run doxnav fmt -w",
					})
				}
				for _, p := range problems {
					fmt.Fprintf(out, "%s: %s\n", path, p)
				}
				if navtree.HasErrors(problems) || (strict && len(problems) > 0) {
					failed = true
				} else if len(problems) == 0 {
					fmt.Fprintf(out, "%s: ok\n", path)
				}
			}
			if failed {
				return errProblems
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "treat warnings as failures")
	return cmd
}

var subIndexFile = regexp.MustCompile(`^navtreeindex\d+\.js$`)

// formatScript rewrites one script file in canonical layout. The file name
// selects between navtreedata.js, sub-index and part scripts.
func formatScript(name string, raw []byte) (string, error) {
	var buf bytes.Buffer
	base := filepath.Base(name)
	switch {
	case base == site.DataFile:
		d, err := navtree.Parse(bytes.NewReader(raw))
		if err != nil {
			return "", err
		}
		if err := navtree.Write(&buf, d); err != nil {
			return "", err
		}
	case subIndexFile.MatchString(base):
		sub, err := navtree.ParseSubIndex(bytes.NewReader(raw))
		if err != nil {
			return "", err
		}
		if err := navtree.WriteSubIndex(&buf, sub); err != nil {
			return "", err
		}
	default:
		p, err := navtree.ParsePart(bytes.NewReader(raw))
		if err != nil {
			return "", err
		}
		if err := navtree.WritePart(&buf, p); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func newFmtCmd() *cobra.Command {
	var write, check bool
	cmd := &cobra.Command{
		Use:   "fmt FILE...",
		Short: "Rewrite navigation scripts in canonical layout",
		Long: `Parse navtreedata.js, part scripts or navtreeindexN.js files and print
them in the generator's layout. Comments before and after the declarations
are kept.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if write && check {
				return fmt.Errorf("-w and --check are mutually exclusive")
			}
			out := cmd.OutOrStdout()
			changed := false
			for _, path := range args {
				raw, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				formatted, err := formatScript(path, raw)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				switch {
				case check:
					if formatted != string(raw) {
						fmt.Fprintln(out, path)
						changed = true
					}
				case write:
					if formatted != string(raw) {
						if err := os.WriteFile(path, []byte(formatted), 0o644); err != nil {
							return err
						}
						slog.Info("reformatted", "file", path)
					}
				default:
					io.WriteString(out, formatted)
				}
			}
			if changed {
				return errProblems
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&write, "write", "w", false, "write result to the source file")
	cmd.Flags().BoolVar(&check, "check", false, "list files whose layout differs and exit non-zero")
	return cmd
}

func writeOutput(cmd *cobra.Command, path string, fn func(w io.Writer) error) error {
	if path == "" || path == "-" {
		return fn(cmd.OutOrStdout())
	}
	var buf bytes.Buffer
	if err := fn(&buf); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func newExportCmd() *cobra.Command {
	var format, output string
	var expand bool
	cmd := &cobra.Command{
		Use:   "export PATH",
		Short: "Convert navigation data to JSON, YAML, Markdown or script form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := codec.ForFormat(format)
			if err != nil {
				return err
			}
			in, err := openInput(args[0])
			if err != nil {
				return err
			}
			d := in.tree(expand)
			return writeOutput(cmd, output, func(w io.Writer) error {
				return c.Encode(w, d)
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: "+strings.Join(codec.Formats, ", "))
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&expand, "expand", true, "inline part scripts when PATH is a directory")
	return cmd
}

func newImportCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Write navtreedata.js from a JSON, YAML or Markdown file",
		Long: `Read navigation data from a structured file and write it as a
navtreedata.js script. Missing toggle labels get the generator defaults.
Problems are reported on stderr; errors stop the import.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := openInput(args[0])
			if err != nil {
				return err
			}
			if in.site != nil {
				return fmt.Errorf("%s: import takes a file, not a directory", args[0])
			}
			d := in.data
			d.EnsureSyncVars()
			problems := navtree.Validate(d)
			for _, p := range problems {
				fmt.Fprintln(cmd.ErrOrStderr(), p)
			}
			if navtree.HasErrors(problems) {
				return errProblems
			}
			return writeOutput(cmd, output, func(w io.Writer) error {
				return navtree.Write(w, d)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

// treeLabel is the text shown for a node. gtree merges siblings with equal
// text, so the URL is part of the label.
func treeLabel(n *navtree.Node) string {
	switch {
	case n.Part != "":
		return fmt.Sprintf("%s -> %s.js", n.Title, n.Part)
	case n.Href == nil:
		return n.Title
	case n.IsExternal():
		return fmt.Sprintf("%s <%s>", n.Title, n.URL())
	default:
		return fmt.Sprintf("%s (%s)", n.Title, n.URL())
	}
}

func renderTree(w io.Writer, rootName string, nodes []*navtree.Node, maxDepth int) error {
	var root *gtree.Node
	if len(nodes) == 1 {
		root = gtree.NewRoot(treeLabel(nodes[0]))
		nodes = nodes[0].Children
	} else {
		root = gtree.NewRoot(rootName)
	}

	var add func(parent *gtree.Node, list []*navtree.Node, depth int)
	add = func(parent *gtree.Node, list []*navtree.Node, depth int) {
		if maxDepth > 0 && depth > maxDepth {
			return
		}
		for _, n := range list {
			add(parent.Add(treeLabel(n)), n.Children, depth+1)
		}
	}
	add(root, nodes, 1)
	return gtree.OutputFromRoot(w, root)
}

func newTreeCmd() *cobra.Command {
	var depth int
	var expand bool
	cmd := &cobra.Command{
		Use:   "tree PATH",
		Short: "Print the navigation tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := openInput(args[0])
			if err != nil {
				return err
			}
			return renderTree(cmd.OutOrStdout(), filepath.Base(args[0]), in.tree(expand).Tree, depth)
		},
	}
	cmd.Flags().IntVarP(&depth, "depth", "d", 0, "levels to show below the root (0 = all)")
	cmd.Flags().BoolVar(&expand, "expand", true, "inline part scripts when PATH is a directory")
	return cmd
}

func newLocateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "locate DIR URL",
		Short: "Show where a page sits in the navigation tree",
		Long: `Resolve URL the way the documentation viewer does: the anchor index picks
a navtreeindex script and that script holds the path to the entry.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := openInput(args[0])
			if err != nil {
				return err
			}
			if err := in.requireSite(); err != nil {
				return err
			}
			bc, err := in.site.Resolve(args[1])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "url:    %s\n", bc.URL)
			fmt.Fprintf(out, "script: navtreeindex%d.js\n", bc.Chunk)
			if bc.Fallback {
				fmt.Fprintln(out, "note:   sorts before every index entry; the viewer shows the root page")
			}
			for i, title := range bc.Titles {
				fmt.Fprintf(out, "%s%s", strings.Repeat("  ", i), title)
				if bc.Hrefs[i] != "" {
					fmt.Fprintf(out, " (%s)", bc.Hrefs[i])
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
}

func newCheckCmd() *cobra.Command {
	var concurrency int
	cmd := &cobra.Command{
		Use:   "check DIR",
		Short: "Check that every navigation URL points at an existing page and anchor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := openInput(args[0])
			if err != nil {
				return err
			}
			if err := in.requireSite(); err != nil {
				return err
			}

			links := in.site.Links()
			var broken []linkcheck.Result
			checker := linkcheck.NewChecker(in.site.Dir)
			linkcheck.Run(cmd.Context(), checker, links, concurrency, func(r linkcheck.Result) {
				if r.Err != "" {
					broken = append(broken, r)
				}
			})

			out := cmd.OutOrStdout()
			for _, r := range broken {
				fmt.Fprintf(out, "%s: %s: %s\n", r.Source, r.URL, r.Err)
			}
			fmt.Fprintf(out, "%d links checked, %d broken\n", len(links), len(broken))
			if len(broken) > 0 {
				return errProblems
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 8, "pages checked in parallel")
	return cmd
}

func newQueryCmd() *cobra.Command {
	var expand bool
	cmd := &cobra.Command{
		Use:   "query PATH JSONPATH",
		Short: "Evaluate a JSONPath expression against the navigation data",
		Long: `Evaluate JSONPATH against the data in the shape

  {"navtree": [{"title", "href", "children", "part"}...], "index": [...], "vars": {...}}

and print each match as one line of JSON.`,
		Example: `  doxnav query html '$.navtree[0].children[*].title'
  doxnav query navtreedata.js '$.index[0]'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := openInput(args[0])
			if err != nil {
				return err
			}
			results, err := codec.Query(in.tree(expand), args[1])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetEscapeHTML(false)
			for _, r := range results {
				if err := enc.Encode(r); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&expand, "expand", true, "inline part scripts when PATH is a directory")
	return cmd
}
