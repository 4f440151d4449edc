// Package phylo provides a minimal rooted phylogenetic tree read from
// Newick text. The tree is a fixed external input, never derived from
// the data.
package phylo

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Node is one vertex of a rooted tree. Length is the branch length to
// the parent; the root's length is zero.
type Node struct {
	Name     string
	Length   float64
	Children []*Node
}

// Tree is a rooted phylogenetic tree with named tips.
type Tree struct {
	Root *Node
}

// Tips returns the tip labels of the tree in sorted order.
func (t *Tree) Tips() []string {
	var res []string
	var walk func(n *Node)
	walk = func(n *Node) {
		if len(n.Children) == 0 {
			res = append(res, n.Name)
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	if t.Root != nil {
		walk(t.Root)
	}
	sort.Strings(res)
	return res
}

// Validate checks that every species label appears among the tree's
// tips and that every tip is used by at least one label. A mismatch in
// either direction makes the comparative fit misalign data silently,
// so it is a fatal precondition here.
func (t *Tree) Validate(species []string) error {
	tips := make(map[string]bool)
	for _, tip := range t.Tips() {
		tips[tip] = false
	}
	for _, sp := range species {
		if _, ok := tips[sp]; !ok {
			return fmt.Errorf("phylo: species %q is not a tip of the tree", sp)
		}
		tips[sp] = true
	}
	for tip, used := range tips {
		if !used {
			return fmt.Errorf("phylo: tree tip %q has no samples", tip)
		}
	}
	return nil
}

// Newick serializes the tree back to Newick text, terminated with a
// semicolon.
func (t *Tree) Newick() string {
	var b strings.Builder
	var walk func(n *Node)
	walk = func(n *Node) {
		if len(n.Children) > 0 {
			b.WriteByte('(')
			for i, c := range n.Children {
				if i > 0 {
					b.WriteByte(',')
				}
				walk(c)
			}
			b.WriteByte(')')
		}
		b.WriteString(n.Name)
		if n.Length != 0 {
			b.WriteByte(':')
			b.WriteString(strconv.FormatFloat(n.Length, 'g', -1, 64))
		}
	}
	if t.Root != nil {
		walk(t.Root)
	}
	b.WriteByte(';')
	return b.String()
}

type parser struct {
	s   string
	pos int
}

// ParseNewick parses a single rooted tree from Newick text, for
// example "((A:0.1,B:0.2):0.05,C:0.3);". Branch lengths are optional.
func ParseNewick(s string) (*Tree, error) {
	p := &parser{s: strings.TrimSpace(s)}
	root, err := p.node()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.s) && p.s[p.pos] == ';' {
		p.pos++
	}
	p.skipSpace()
	if p.pos != len(p.s) {
		return nil, fmt.Errorf("phylo: trailing data at offset %d", p.pos)
	}
	return &Tree{Root: root}, nil
}

func (p *parser) skipSpace() {
	for p.pos < len(p.s) &&
		(p.s[p.pos] == ' ' || p.s[p.pos] == '\t' || p.s[p.pos] == '\n' ||
			p.s[p.pos] == '\r') {
		p.pos++
	}
}

func (p *parser) node() (*Node, error) {
	p.skipSpace()
	n := &Node{}
	if p.pos < len(p.s) && p.s[p.pos] == '(' {
		p.pos++
		for {
			child, err := p.node()
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, child)
			p.skipSpace()
			if p.pos >= len(p.s) {
				return nil, fmt.Errorf("phylo: unbalanced parentheses")
			}
			if p.s[p.pos] == ',' {
				p.pos++
				continue
			}
			if p.s[p.pos] == ')' {
				p.pos++
				break
			}
			return nil, fmt.Errorf(
				"phylo: unexpected %q at offset %d", p.s[p.pos], p.pos,
			)
		}
	}
	n.Name = p.label()
	if p.pos < len(p.s) && p.s[p.pos] == ':' {
		p.pos++
		length, err := p.number()
		if err != nil {
			return nil, err
		}
		n.Length = length
	}
	if len(n.Children) == 0 && n.Name == "" {
		return nil, fmt.Errorf("phylo: unnamed tip at offset %d", p.pos)
	}
	return n, nil
}

func (p *parser) label() string {
	start := p.pos
	for p.pos < len(p.s) {
		switch p.s[p.pos] {
		case ',', ')', '(', ':', ';':
			return strings.TrimSpace(p.s[start:p.pos])
		}
		p.pos++
	}
	return strings.TrimSpace(p.s[start:])
}

func (p *parser) number() (float64, error) {
	start := p.pos
	for p.pos < len(p.s) {
		c := p.s[p.pos]
		if (c >= '0' && c <= '9') || c == '.' || c == '-' || c == '+' ||
			c == 'e' || c == 'E' {
			p.pos++
			continue
		}
		break
	}
	v, err := strconv.ParseFloat(p.s[start:p.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("phylo: bad branch length at offset %d", start)
	}
	return v, nil
}
