// Package grouping builds the City → Address → Unit hierarchy of
// synthesis rows with per-room and per-zone views of each unit.
package grouping

import (
	"strings"

	"liciel/internal/synthesis"
)

// Defaults for rows missing a grouping key.
const (
	DefaultCity    = "Ville non précisée"
	DefaultAddress = "Adresse non précisée"
	DefaultUnit    = "UG non précisée"
	Unspecified    = "Non précisé"
)

// Level is the depth of a node.
type Level string

const (
	LevelCity    Level = "city"
	LevelAddress Level = "address"
	LevelUnit    Level = "unit"
)

// Node is a group of rows. Unit nodes carry a Unit summary.
type Node struct {
	Key      string          `json:"key"`
	Level    Level           `json:"level"`
	Status   GroupStatus     `json:"status"`
	Counts   Counts          `json:"counts"`
	Rows     []synthesis.Row `json:"-"`
	Children []*Node         `json:"children,omitempty"`
	Unit     *Unit           `json:"unit,omitempty"`

	index map[string]*Node
}

// Size is the number of rows in the group.
func (n *Node) Size() int { return len(n.Rows) }

// Child returns the child with key, or nil.
func (n *Node) Child(key string) *Node {
	return n.index[key]
}

func (n *Node) child(key string, level Level) *Node {
	if c, ok := n.index[key]; ok {
		return c
	}
	c := &Node{Key: key, Level: level}
	if n.index == nil {
		n.index = make(map[string]*Node)
	}
	n.index[key] = c
	n.Children = append(n.Children, c)
	return c
}

func (n *Node) finish() {
	n.Status = Aggregate(n.Rows)
	n.Counts = Count(n.Rows)
	for _, c := range n.Children {
		c.finish()
	}
	if n.Level == LevelUnit {
		n.Unit = summarize(n.Rows)
	}
}

// Tree is the grouping of a dataset. It is rebuilt in full for each
// dataset and never updated in place.
type Tree struct {
	root Node
}

// Cities returns the city nodes in first-seen order.
func (t *Tree) Cities() []*Node { return t.root.Children }

// Rows returns every row of the dataset.
func (t *Tree) Rows() []synthesis.Row { return t.root.Rows }

// Find returns the unit node for the given keys, or nil.
func (t *Tree) Find(city, address, unit string) *Node {
	c := t.root.Child(city)
	if c == nil {
		return nil
	}
	a := c.Child(address)
	if a == nil {
		return nil
	}
	return a.Child(unit)
}

// MarshalJSON encodes the city list.
func (t *Tree) MarshalJSON() ([]byte, error) {
	return marshalNodes(t.root.Children)
}

// Build groups rows by commune, address and unit number, in first-seen
// order.
func Build(rows []synthesis.Row) *Tree {
	t := &Tree{root: Node{Rows: rows}}
	for _, r := range rows {
		city := t.root.child(orDefault(r.Commune, DefaultCity), LevelCity)
		addr := city.child(orDefault(r.NomEI, DefaultAddress), LevelAddress)
		unit := addr.child(orDefault(r.NumUG, DefaultUnit), LevelUnit)

		city.Rows = append(city.Rows, r)
		addr.Rows = append(addr.Rows, r)
		unit.Rows = append(unit.Rows, r)
	}
	t.root.finish()
	return t
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}

// SplitRooms cleans a room or zone field: it splits on ";", keeps what
// follows the last "-" of each part and drops empty parts. An empty field
// yields Unspecified.
//
// Room names that contain a hyphen themselves ("Salle-de-bain") lose
// their head; the export gives no way to tell them apart from a
// "floor - room" pair.
func SplitRooms(field string) []string {
	if strings.TrimSpace(field) == "" {
		return []string{Unspecified}
	}
	var out []string
	for _, seg := range strings.Split(field, ";") {
		seg = strings.TrimSpace(seg)
		if i := strings.LastIndex(seg, "-"); i >= 0 {
			seg = strings.TrimSpace(seg[i+1:])
		}
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}
