// Package container defines the contract the core checkers use to read an
// ELF object's sections, symbols and relocations, independent of how the
// object was actually opened or decompressed. elfcontainer is the concrete
// implementation; internal/reloc, internal/abbrev, internal/dieinfo and
// internal/tables only ever see this interface, which keeps the structural
// checkers free of debug/elf's unsafe-pointer plumbing.
package container // import "github.com/dwarflint/dwarflint/internal/container"

import "encoding/binary"

// RelWidth classifies a relocation type by the width of the field it
// patches, independent of the target architecture's own enumeration of
// relocation type numbers.
type RelWidth int

const (
	RelWidthUnknown RelWidth = iota
	RelWidth8
	RelWidth16
	RelWidth32
	RelWidth64
)

// Symbol is an ELF symbol table entry resolved for relocation purposes.
type Symbol struct {
	Name string
	// Value is the symbol's own st_value as read from the symbol table;
	// the container does not adjust it.
	Value uint64
	// SectionName is the name of the section the symbol is defined in, or
	// "" for STN_UNDEF.
	SectionName string
	// SectionAddr is the owning section's sh_addr, used as the base value
	// when IsSection is true (STT_SECTION symbols carry no offset of
	// their own; the addend supplies it).
	SectionAddr uint64
	Abs         bool // SHN_ABS: Value is absolute, not section-relative.
	Undef       bool // SHN_UNDEF: symbol has no defining section.
	Common      bool // SHN_COMMON: a tentative definition, no fixed address.
	IsSection   bool // STT_SECTION: the symbol names its owning section.
}

// Section is one ELF section as the structural checkers need it: already
// decompressed if SHF_COMPRESSED was set, and with only the flags that
// matter to validation surfaced.
type Section struct {
	Name  string
	Data  []byte
	Addr  uint64
	Size  uint64
	Alloc bool // SHF_ALLOC
	Exec  bool // SHF_EXECINSTR
}

// Relocation is one relocation table entry, already widened from Rel or
// Rela form to a uniform shape. Addend is zero for SHT_REL entries that
// carry no explicit addend.
type Relocation struct {
	Offset  uint64
	Type    uint32
	Symndx  uint32
	Addend  int64
	// Invalid marks an entry the container could already tell was
	// malformed (an entry it could not read) so relocate_one
	// does not have to fail the whole relocation table over one bad entry.
	Invalid bool
}

// Source is the external ELF collaborator contract (spec.md §1): the set of
// operations a checker needs from the containing object file, independent
// of compression, byte order or word size.
type Source interface {
	ByteOrder() binary.ByteOrder
	// AddressSize is 4 or 8, from the ELF class (ELFCLASS32/ELFCLASS64).
	AddressSize() int
	// IsRelocatable reports whether this is an ET_REL object, in which
	// case relocations must be applied before section-relative values are
	// meaningful addresses.
	IsRelocatable() bool
	// Section looks up a section by name (".debug_info", ".debug_abbrev",
	// ...), already decompressed.
	Section(name string) (Section, bool)
	// Sections returns every section in the object, ordered by sh_addr
	// ascending, for internal/covmap's section-indexed coverage map.
	Sections() []Section
	// Symbol resolves a symbol table index. ok is false if index is
	// out-of-bounds or no symbol table was loaded.
	Symbol(index uint32) (Symbol, bool)
	// ClassifyRelocation maps an architecture-specific relocation type
	// number to the width of field it patches.
	ClassifyRelocation(relType uint32) RelWidth
	// Relocations returns the relocation entries that apply to the named
	// section, sorted by Offset ascending.
	Relocations(sectionName string) []Relocation
}
