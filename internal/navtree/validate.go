package navtree

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"unicode"
)

// Severity classifies a validation problem.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Problem is a single well-formedness finding.
type Problem struct {
	Severity Severity `json:"severity"`
	Path     string   `json:"path"`
	Message  string   `json:"message"`
}

func (p Problem) String() string {
	return fmt.Sprintf("%s: %s: %s", p.Severity, p.Path, p.Message)
}

// HasErrors reports whether any problem has error severity.
func HasErrors(problems []Problem) bool {
	for _, p := range problems {
		if p.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate checks the structural well-formedness of d.
func Validate(d *Data) []Problem {
	var problems []Problem
	if len(d.Tree) == 0 {
		problems = append(problems, Problem{SeverityError, TreeVar, "navigation tree is empty"})
	}
	problems = append(problems, ValidateNodes(TreeVar, d.Tree)...)

	for i, u := range d.Index {
		if err := CheckRelativeURL(u); err != nil {
			problems = append(problems, Problem{SeverityError, fmt.Sprintf("%s[%d]", IndexVar, i), err.Error()})
		}
	}
	for i := 1; i < len(d.Index); i++ {
		if d.Index[i] < d.Index[i-1] {
			problems = append(problems, Problem{
				Severity: SeverityWarning,
				Path:     fmt.Sprintf("%s[%d]", IndexVar, i),
				Message:  fmt.Sprintf("index not in ascending order (%q after %q)", d.Index[i], d.Index[i-1]),
			})
			break
		}
	}

	for _, name := range []string{SyncOnVar, SyncOffVar} {
		if _, ok := d.Var(name); !ok {
			problems = append(problems, Problem{SeverityWarning, name, "declaration missing"})
		}
	}
	return problems
}

// ValidateNodes checks a node list. prefix names the list in problem paths,
// e.g. NAVTREE or the name of a part script.
func ValidateNodes(prefix string, nodes []*Node) []Problem {
	var problems []Problem
	var check func(path string, n *Node)
	check = func(path string, n *Node) {
		if n == nil {
			problems = append(problems, Problem{SeverityError, path, "missing entry"})
			return
		}
		if strings.TrimSpace(n.Title) == "" {
			problems = append(problems, Problem{SeverityWarning, path, "empty title"})
		}
		if n.Href != nil {
			if err := CheckHref(*n.Href); err != nil {
				problems = append(problems, Problem{SeverityError, path, err.Error()})
			}
		}
		if n.Children != nil && n.Part != "" {
			problems = append(problems, Problem{SeverityError, path, "entry has both children and a part script"})
		}
		if n.Children != nil && len(n.Children) == 0 {
			problems = append(problems, Problem{SeverityError, path, "children list is empty; use null for a leaf"})
		}
		if n.Part != "" {
			if err := CheckPartRef(n.Part); err != nil {
				problems = append(problems, Problem{SeverityError, path, err.Error()})
			}
		}
		for i, c := range n.Children {
			check(fmt.Sprintf("%s[%d]", path, i), c)
		}
	}
	for i, n := range nodes {
		check(fmt.Sprintf("%s[%d]", prefix, i), n)
	}
	return problems
}

// PartVar returns the variable a part script declares. With subdirectories
// enabled a reference is a path such as "d5/d00/namespacequanta"; the
// variable is named after the last segment with dashes turned into
// underscores.
func PartVar(ref string) string {
	return strings.ReplaceAll(path.Base(ref), "-", "_")
}

// CheckPartRef validates a part reference: a relative slash-separated
// script path without the .js suffix that stays inside the site directory.
func CheckPartRef(ref string) error {
	if ref == "" {
		return errors.New("empty part reference")
	}
	if strings.ContainsAny(ref, "\\:?#") || strings.HasPrefix(ref, "/") {
		return fmt.Errorf("part reference %q is not a relative path", ref)
	}
	for seg := range strings.SplitSeq(ref, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return fmt.Errorf("part reference %q is not a relative path", ref)
		}
	}
	if !IsIdentifier(PartVar(ref)) {
		return fmt.Errorf("invalid part name %q", ref)
	}
	return nil
}

// CheckHref validates a node href: a relative URL, optionally with a
// fragment, or a caret-prefixed absolute URL for external links.
func CheckHref(href string) error {
	if ext, ok := strings.CutPrefix(href, "^"); ok {
		return checkExternalURL(ext)
	}
	return CheckRelativeURL(href)
}

// CheckRelativeURL validates a relative URL or URL#fragment.
func CheckRelativeURL(s string) error {
	if s == "" {
		return errors.New("empty url")
	}
	if err := checkChars(s); err != nil {
		return err
	}
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("malformed url %q: %w", s, unwrapURLError(err))
	}
	if u.Scheme != "" || u.Host != "" || strings.HasPrefix(s, "//") {
		return fmt.Errorf("url %q is not relative", s)
	}
	if strings.Contains(u.Fragment, "#") {
		return fmt.Errorf("url %q has more than one fragment", s)
	}
	return nil
}

func checkExternalURL(s string) error {
	if err := checkChars(s); err != nil {
		return err
	}
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("malformed external url %q: %w", s, unwrapURLError(err))
	}
	if u.Scheme == "" {
		return fmt.Errorf("external url %q has no scheme", s)
	}
	return nil
}

func checkChars(s string) error {
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return fmt.Errorf("url %q contains whitespace or control characters", s)
		}
	}
	return nil
}

func unwrapURLError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Err
	}
	return err
}
