// Package symbols finds the declaration enclosing a source line with tree-sitter.
package symbols

import (
	"context"
	"strings"

	"github.com/maxbolgarin/errm"
	sitter "github.com/smacker/go-tree-sitter"
)

var ErrUnsupportedLanguage = errm.New("unsupported language")

// Symbol is a named declaration
type Symbol struct {
	Name      string
	Kind      string
	StartLine int
	EndLine   int
}

// String renders the symbol as "kind Name".
func (s Symbol) String() string {
	return s.Kind + " " + s.Name
}

// Index is a parsed file that answers enclosing symbol queries
type Index struct {
	root *sitter.Node
	src  []byte
}

// Parse builds an index for the file. Files without a grammar return ErrUnsupportedLanguage.
func Parse(ctx context.Context, filename, content string) (*Index, error) {
	language, ok := Detect(filename)
	if !ok {
		return nil, ErrUnsupportedLanguage
	}

	parser := sitter.NewParser()
	parser.SetLanguage(grammars[language])

	src := []byte(content)
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, errm.Wrap(err, "failed to parse", "file", filename)
	}

	return &Index{root: tree.RootNode(), src: src}, nil
}

// Enclosing returns the innermost named declaration containing the 1-based line.
func (ix *Index) Enclosing(line int) (Symbol, bool) {
	if ix == nil || line < 1 {
		return Symbol{}, false
	}
	row := uint32(line - 1)

	var (
		best  Symbol
		found bool
	)
	for cur := ix.root; cur != nil; {
		if kind, ok := symbolKinds[cur.Type()]; ok {
			if name := ix.name(cur); name != "" {
				best = Symbol{
					Name:      name,
					Kind:      kind,
					StartLine: int(cur.StartPoint().Row) + 1,
					EndLine:   int(cur.EndPoint().Row) + 1,
				}
				found = true
			}
		}

		var next *sitter.Node
		for i := 0; i < int(cur.NamedChildCount()); i++ {
			child := cur.NamedChild(i)
			if child != nil && child.StartPoint().Row <= row && row <= child.EndPoint().Row {
				next = child
				break
			}
		}
		cur = next
	}

	return best, found
}

// ForLines returns the distinct symbols enclosing the lines, in first-seen order.
func (ix *Index) ForLines(lines []int) []Symbol {
	var (
		out  []Symbol
		seen = make(map[Symbol]struct{})
	)
	for _, l := range lines {
		s, ok := ix.Enclosing(l)
		if !ok {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func (ix *Index) name(node *sitter.Node) string {
	var name string
	if n := node.ChildByFieldName("name"); n != nil {
		name = n.Content(ix.src)
	} else {
		name = ix.firstIdentifier(node)
	}
	if name == "" {
		return ""
	}

	if node.Type() == "method_declaration" {
		if recv := node.ChildByFieldName("receiver"); recv != nil {
			if t := receiverType(recv.Content(ix.src)); t != "" {
				return t + "." + name
			}
		}
	}
	return name
}

func (ix *Index) firstIdentifier(node *sitter.Node) string {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child != nil && strings.Contains(child.Type(), "identifier") {
			return child.Content(ix.src)
		}
	}
	return ""
}

// receiverType extracts "Server" from "(s *Server)" or "(Server[T])".
func receiverType(recv string) string {
	recv = strings.Trim(recv, "()")
	fields := strings.Fields(recv)
	if len(fields) == 0 {
		return ""
	}
	t := strings.TrimLeft(fields[len(fields)-1], "*")
	if i := strings.IndexByte(t, '['); i > 0 {
		t = t[:i]
	}
	return t
}
