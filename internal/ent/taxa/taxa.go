// Package taxa simplifies QIIME-style taxonomic classification strings
// into short human-readable labels.
package taxa

import (
	"regexp"
	"strings"

	"github.com/gnames/gnparser"
)

// Unclassified is the label assigned when a classification string
// carries no usable rank segment at all.
const Unclassified = "unclassified"

// Label is the simplified form of one classification string.
type Label struct {
	// Value is the human-readable label with rank prefixes stripped.
	Value string

	// Rank is the rank the label was taken from ("s", "g", or the
	// deepest available rank when neither is present).
	Rank string

	// Unclassified is true when no rank segment could be extracted.
	Unclassified bool
}

// rankPrefix matches a single-lowercase-letter rank marker such as
// "s__" or "g__" at the start of a segment.
var rankPrefix = regexp.MustCompile(`^([a-z])__`)

// Simplifier turns full classification strings into labels. The
// confidence threshold decides whether the species or the genus
// segment is preferred.
type Simplifier struct {
	confThreshold float64
	gnp           gnparser.GNparser
}

// NewSimplifier creates a Simplifier with the given confidence
// threshold for species-level labels.
func NewSimplifier(confThreshold float64) *Simplifier {
	cfg := gnparser.NewConfig()
	return &Simplifier{
		confThreshold: confThreshold,
		gnp:           gnparser.New(cfg),
	}
}

// segments splits a semicolon-delimited classification string into
// rank-tagged segments. Segments without a rank marker keep an empty
// rank.
func segments(classification string) []struct{ rank, value string } {
	parts := strings.Split(classification, ";")
	res := make([]struct{ rank, value string }, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		m := rankPrefix.FindStringSubmatch(p)
		if m == nil {
			res = append(res, struct{ rank, value string }{"", p})
			continue
		}
		val := strings.TrimSpace(p[len(m[0]):])
		res = append(res, struct{ rank, value string }{m[1], val})
	}
	return res
}

// Simplify extracts a short label from a classification string.
//
// When confidence is at or above the threshold the species segment is
// preferred; otherwise the genus segment. When the preferred segment
// is absent or empty the deepest non-empty rank is used instead, and a
// string with no usable segment at all becomes "unclassified" rather
// than passing through verbatim. Species labels are run through
// gnparser and replaced by their simple canonical form when they parse
// as scientific names.
func (s *Simplifier) Simplify(classification string, confidence float64) Label {
	segs := segments(classification)

	var species, genus, deepest string
	var deepestRank string
	for _, seg := range segs {
		if seg.value == "" {
			continue
		}
		switch seg.rank {
		case "s":
			species = seg.value
		case "g":
			genus = seg.value
		}
		deepest = seg.value
		deepestRank = seg.rank
	}

	if deepest == "" {
		return Label{Value: Unclassified, Unclassified: true}
	}

	if confidence >= s.confThreshold && species != "" {
		return Label{Value: s.canonical(species, genus), Rank: "s"}
	}
	if genus != "" {
		return Label{Value: genus, Rank: "g"}
	}
	return Label{Value: deepest, Rank: deepestRank}
}

// canonical normalizes a species label through gnparser. Labels that
// arrive as bare epithets are joined with the genus first; labels that
// do not parse stay verbatim.
func (s *Simplifier) canonical(species, genus string) string {
	name := strings.ReplaceAll(species, "_", " ")
	if !strings.Contains(name, " ") && genus != "" {
		name = genus + " " + name
	}
	p := s.gnp.ParseName(name)
	if p.Parsed && p.Canonical.Simple != "" {
		return p.Canonical.Simple
	}
	return name
}
