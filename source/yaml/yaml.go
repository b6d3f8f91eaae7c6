// Package yaml decodes YAML load outputs into JSON-compatible values,
// rejecting or reporting duplicate mapping keys with their positions.
package yaml

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	y "gopkg.in/yaml.v3"

	eng "github.com/reoring/loadgate/internal/engine"
)

// Decode parses the first YAML document in data. Mappings become
// map[string]any, sequences []any, and numeric scalars json.Number so that
// YAML and JSON inputs produce the same tree. An empty document yields nil.
func Decode(data []byte, lim eng.Limits) (any, error) {
	if lim.MaxBytes > 0 && int64(len(data)) > lim.MaxBytes {
		return nil, eng.IssueError{SimpleIssue: eng.SimpleIssue{Code: "truncated", Path: "/", Message: "max bytes exceeded"}}
	}
	var root y.Node
	if err := y.Unmarshal(data, &root); err != nil {
		return nil, eng.IssueError{SimpleIssue: eng.SimpleIssue{Code: "parse_error", Path: "/", Message: err.Error()}}
	}
	if len(root.Content) == 0 {
		return nil, nil
	}
	c := &converter{lim: lim}
	return c.node(root.Content[0], "", 0)
}

// maxNodes caps the number of values built from one document. Aliases are
// expanded in place, so each expansion counts again.
const maxNodes = 1 << 17

type converter struct {
	lim   eng.Limits
	nodes int
}

func (c *converter) node(n *y.Node, path string, depth int) (any, error) {
	c.nodes++
	if c.nodes > maxNodes {
		p := path
		if p == "" {
			p = "/"
		}
		return nil, eng.IssueError{SimpleIssue: eng.SimpleIssue{Code: "parse_error", Path: p, Message: "document expands to too many nodes"}}
	}
	switch n.Kind {
	case y.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return c.node(n.Content[0], path, depth)
	case y.AliasNode:
		return c.node(n.Alias, path, depth)
	case y.MappingNode:
		if err := c.enter(path, depth); err != nil {
			return nil, err
		}
		m := make(map[string]any, len(n.Content)/2)
		first := make(map[string][2]int, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			kpath := eng.JoinPointer(path, k.Value)
			if pos, dup := first[k.Value]; dup && c.lim.OnDuplicate != eng.DupIgnore {
				si := eng.SimpleIssue{
					Code:    "duplicate_key",
					Path:    kpath,
					Message: fmt.Sprintf("key '%s' duplicated at %d:%d (first at %d:%d)", k.Value, k.Line, k.Column, pos[0], pos[1]),
				}
				if c.lim.OnDuplicate == eng.DupError {
					return nil, eng.IssueError{SimpleIssue: si}
				}
				if c.lim.IssueSink != nil {
					c.lim.IssueSink(si)
				}
			}
			first[k.Value] = [2]int{k.Line, k.Column}
			val, err := c.node(v, kpath, depth+1)
			if err != nil {
				return nil, err
			}
			m[k.Value] = val
		}
		return m, nil
	case y.SequenceNode:
		if err := c.enter(path, depth); err != nil {
			return nil, err
		}
		arr := make([]any, 0, len(n.Content))
		for i, e := range n.Content {
			v, err := c.node(e, eng.JoinPointer(path, strconv.Itoa(i)), depth+1)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, nil
	case y.ScalarNode:
		return scalar(n), nil
	default:
		return nil, nil
	}
}

func (c *converter) enter(path string, depth int) error {
	if c.lim.MaxDepth > 0 && depth+1 > c.lim.MaxDepth {
		p := path
		if p == "" {
			p = "/"
		}
		return eng.IssueError{SimpleIssue: eng.SimpleIssue{Code: "parse_error", Path: p, Message: "max depth exceeded"}}
	}
	return nil
}

func scalar(n *y.Node) any {
	switch n.ShortTag() {
	case "!!null":
		return nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err == nil {
			return b
		}
	case "!!int":
		if i, err := strconv.ParseInt(n.Value, 0, 64); err == nil {
			return json.Number(strconv.FormatInt(i, 10))
		}
	case "!!float":
		var f float64
		if err := n.Decode(&f); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
			return json.Number(strconv.FormatFloat(f, 'g', -1, 64))
		}
	}
	return n.Value
}
