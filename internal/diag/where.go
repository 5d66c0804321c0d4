package diag

import "fmt"

// Format picks how a Where's coordinates are rendered.
type Format int

const (
	// FormatPlain renders "<name> <value>" pairs generically.
	FormatPlain Format = iota
	// FormatCUDie renders the conventional ".debug_info: CU <n>: DIE 0x<off>"
	// shape used throughout spec.md §8's worked examples.
	FormatCUDie
)

// Coord is one numeric breadcrumb coordinate (addr1/addr2/addr3 in spec.md's
// terms), carrying its own display name and whether it prints in hex.
type Coord struct {
	Name  string
	Value uint64
	Hex   bool
}

// ID identifies a Where node inside an Arena. None (-1) means "no
// breadcrumb"; the zero value is the first node an Arena allocates.
type ID int32

// None is the absence of a Where breadcrumb.
const None ID = -1

// whereNode is the arena-resident representation of a Where. Ref and Next
// are IDs into the same Arena rather than pointers; WithCoord, WithRef and
// WithNext update a node in place, and any ID may be linked, so the
// links are not checked for cycles.
type whereNode struct {
	section string
	format  Format
	coords  []Coord
	ref     ID
	next    ID
}

// Arena owns a set of Where breadcrumbs. Nothing is ever freed individually;
// the whole arena is dropped with the file being processed, matching the
// per-file resource lifetime in spec.md §5.
type Arena struct {
	nodes []whereNode
	index map[uint64][]ID
}

// NewArena creates an empty breadcrumb arena.
func NewArena() *Arena {
	return &Arena{}
}

// New allocates a fresh Where with the given section name and format, and
// no coordinates, reference or next link yet. Use the With* methods to
// attach those — each returns a (possibly) new ID, so callers must use the
// returned value.
func (a *Arena) New(section string, format Format) ID {
	a.nodes = append(a.nodes, whereNode{section: section, format: format, ref: None, next: None})
	return ID(len(a.nodes) - 1)
}

func (a *Arena) node(id ID) *whereNode {
	return &a.nodes[id]
}

// WithCoord appends one numeric coordinate to id's breadcrumb. Coordinates
// are appended in the order supplied; spec.md allows at most three
// (addr1/addr2/addr3), which callers are expected to respect.
func (a *Arena) WithCoord(id ID, name string, value uint64, hex bool) ID {
	n := a.node(id)
	n.coords = append(n.coords, Coord{Name: name, Value: value, Hex: hex})
	return id
}

// WithRef attaches an inner "caused by a reference to here" breadcrumb.
func (a *Arena) WithRef(id, ref ID) ID {
	a.node(id).ref = ref
	return id
}

// WithNext chains id to the next breadcrumb in a reference-fan-out report
// (spec.md's "next link for reference-chain reporting").
func (a *Arena) WithNext(id, next ID) ID {
	a.node(id).next = next
	return id
}

// Section returns the section name a Where refers to.
func (a *Arena) Section(id ID) string {
	if id == None {
		return ""
	}
	return a.node(id).section
}

// Format renders id as the breadcrumb text that appears between the
// section name and the message in spec.md §6's diagnostic line format:
// "<section-name>[: <coord-name> <coord-value>]*[ (<ref-where>)]".
// If withRefChain is true, the --ref flag's behavior is honored: the chain
// of Ref breadcrumbs is printed recursively.
func (a *Arena) Format(id ID, withRefChain bool) string {
	if id == None {
		return ""
	}
	n := a.node(id)
	s := n.section
	switch n.format {
	case FormatCUDie:
		for _, c := range n.coords {
			if c.Hex {
				s += fmt.Sprintf(": %s 0x%x", c.Name, c.Value)
			} else {
				s += fmt.Sprintf(": %s %d", c.Name, c.Value)
			}
		}
	default:
		for _, c := range n.coords {
			if c.Hex {
				s += fmt.Sprintf(": %s 0x%x", c.Name, c.Value)
			} else {
				s += fmt.Sprintf(": %s %d", c.Name, c.Value)
			}
		}
	}
	if withRefChain && n.ref != None {
		s += fmt.Sprintf(" (%s)", a.Format(n.ref, withRefChain))
	}
	return s
}

// Chain walks the Next links starting at id, visiting id itself first.
func (a *Arena) Chain(id ID) []ID {
	var out []ID
	for cur := id; cur != None; cur = a.node(cur).next {
		out = append(out, cur)
	}
	return out
}
