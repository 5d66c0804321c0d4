package elfcontainer_test

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwarflint/dwarflint/elfcontainer"
	"github.com/dwarflint/dwarflint/internal/container"
)

// rawSection is the input to buildELF64: one section's header fields plus
// its already-materialized file bytes (the test builds compressed/symtab
// payloads by hand so the parser is exercised the same way it would be
// against a real object).
type rawSection struct {
	name    string
	shType  uint32
	flags   uint64
	addr    uint64
	data    []byte
	link    uint32
	info    uint32
	entsize uint64
}

const (
	shtNull    = 0
	shtProgbit = 1
	shtSymtab  = 2
	shtStrtab  = 3
	shtRela    = 4
	shtNobits  = 8

	shfAlloc      = 0x2
	shfExecinstr  = 0x4
	shfCompressed = 0x800
)

// buildELF64 assembles a little-endian ELF64 object file from scratch: an
// Elf64_Ehdr, one Elf64_Shdr per section (plus an implicit NULL section 0
// and a .shstrtab section appended last), and the raw section bytes laid
// out back to back. Returns the complete file image and the index each
// named input section ended up at (0 is reserved for NULL).
func buildELF64(t *testing.T, etype uint16, machine uint16, secs []rawSection) ([]byte, map[string]int) {
	t.Helper()

	all := append([]rawSection{{name: "", shType: shtNull}}, secs...)
	names := make([]string, len(all))
	for i, s := range all {
		names[i] = s.name
	}
	shstrtabIdx := len(all)
	all = append(all, rawSection{name: ".shstrtab", shType: shtStrtab})

	// Build the section name string table up front so sh_name offsets are
	// known before the section headers are written.
	var strtab bytes.Buffer
	strtab.WriteByte(0)
	nameOff := make([]uint32, len(all))
	for i, s := range all {
		nameOff[i] = uint32(strtab.Len())
		strtab.WriteString(s.name)
		strtab.WriteByte(0)
	}
	all[shstrtabIdx].data = strtab.Bytes()

	const ehdrSize = 64
	const shdrSize = 64

	dataOff := make([]uint64, len(all))
	var body bytes.Buffer
	cursor := uint64(ehdrSize)
	for i, s := range all {
		if s.shType == shtNull || s.shType == shtNobits {
			dataOff[i] = 0
			continue
		}
		dataOff[i] = cursor
		body.Write(s.data)
		cursor += uint64(len(s.data))
	}
	shoff := cursor

	var buf bytes.Buffer
	ident := []byte{0x7f, 'E', 'L', 'F', 2 /* ELFCLASS64 */, 1 /* ELFDATA2LSB */, 1, 0}
	buf.Write(ident)
	buf.Write(make([]byte, 8)) // e_ident padding

	writeU16 := func(v uint16) { binary.Write(&buf, binary.LittleEndian, v) }
	writeU32 := func(v uint32) { binary.Write(&buf, binary.LittleEndian, v) }
	writeU64 := func(v uint64) { binary.Write(&buf, binary.LittleEndian, v) }

	writeU16(etype)
	writeU16(machine)
	writeU32(1) // e_version
	writeU64(0) // e_entry
	writeU64(0) // e_phoff
	writeU64(shoff)
	writeU32(0) // e_flags
	writeU16(ehdrSize)
	writeU16(0) // e_phentsize
	writeU16(0) // e_phnum
	writeU16(shdrSize)
	writeU16(uint16(len(all)))
	writeU16(uint16(shstrtabIdx))

	buf.Write(body.Bytes())

	for i, s := range all {
		writeU32(nameOff[i])
		writeU32(s.shType)
		writeU64(s.flags)
		writeU64(s.addr)
		writeU64(dataOff[i])
		writeU64(uint64(len(s.data)))
		writeU32(s.link)
		writeU32(s.info)
		writeU64(0) // sh_addralign
		writeU64(s.entsize)
	}

	idx := make(map[string]int, len(names))
	for i, n := range names {
		if n != "" {
			idx[n] = i
		}
	}
	return buf.Bytes(), idx
}

func sym64(name uint32, info uint8, shndx uint16, value, size uint64) []byte {
	var b bytes.Buffer
	binary.Write(&b, binary.LittleEndian, name)
	b.WriteByte(info)
	b.WriteByte(0) // st_other
	binary.Write(&b, binary.LittleEndian, shndx)
	binary.Write(&b, binary.LittleEndian, value)
	binary.Write(&b, binary.LittleEndian, size)
	return b.Bytes()
}

func writeTemp(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "obj.elf")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestOpenParsesSectionsAndSymbols(t *testing.T) {
	strtab := append([]byte{0}, []byte("main\x00")...)
	symtab := bytes.Join([][]byte{
		sym64(0, 0, 0, 0, 0),
		sym64(1, 0x12 /* STB_GLOBAL<<4|STT_FUNC */, 1, 0x1000, 0x10),
	}, nil)

	data, idx := buildELF64(t, 2 /* ET_EXEC */, 62 /* EM_X86_64 */, []rawSection{
		{name: ".text", shType: shtProgbit, flags: shfAlloc | shfExecinstr, addr: 0x1000, data: make([]byte, 0x20)},
		{name: ".debug_info", shType: shtProgbit, data: []byte{0xde, 0xad, 0xbe, 0xef}},
		{name: ".symtab", shType: shtSymtab, data: symtab, link: 0, info: 1, entsize: 24},
		{name: ".strtab", shType: shtStrtab, data: strtab},
	})
	// .symtab's sh_link must point at .strtab's section index.
	data = patchSectionField(data, idx[".symtab"], 40, uint32(idx[".strtab"]))

	f, err := elfcontainer.Open(writeTemp(t, data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, binary.LittleEndian, f.ByteOrder())
	assert.Equal(t, 8, f.AddressSize())
	assert.False(t, f.IsRelocatable())

	text, ok := f.Section(".text")
	require.True(t, ok)
	assert.Equal(t, uint64(0x1000), text.Addr)
	assert.True(t, text.Alloc)
	assert.True(t, text.Exec)

	dbg, ok := f.Section(".debug_info")
	require.True(t, ok)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, dbg.Data)

	sym, ok := f.Symbol(1)
	require.True(t, ok)
	assert.Equal(t, "main", sym.Name)
	assert.Equal(t, uint64(0x1000), sym.Value)
	assert.False(t, sym.Undef)

	sections := f.Sections()
	require.NotEmpty(t, sections)
	for i := 1; i < len(sections); i++ {
		assert.LessOrEqual(t, sections[i-1].Addr, sections[i].Addr)
	}

	var zero [32]byte
	assert.NotEqual(t, zero, f.ContentHash())
}

func TestOpenRelocatableObjectExposesRelocations(t *testing.T) {
	strtab := append([]byte{0}, []byte("sym\x00")...)
	symtab := bytes.Join([][]byte{
		sym64(0, 0, 0, 0, 0),
		sym64(1, 0x03 /* STT_SECTION */, 1, 0, 0), // shndx 1 == .debug_info itself
	}, nil)

	var rela bytes.Buffer
	writeRela := func(off uint64, symndx uint32, relType uint32, addend int64) {
		info := uint64(symndx)<<32 | uint64(relType)
		binary.Write(&rela, binary.LittleEndian, off)
		binary.Write(&rela, binary.LittleEndian, info)
		binary.Write(&rela, binary.LittleEndian, addend)
	}
	writeRela(8, 1, 2 /* R_X86_64_PC32 */, 0x10)
	writeRela(0, 1, 1 /* R_X86_64_64 */, 0x40)

	data, idx := buildELF64(t, 1 /* ET_REL */, 62, []rawSection{
		{name: ".debug_info", shType: shtProgbit, data: make([]byte, 16)},
		{name: ".rela.debug_info", shType: shtRela, data: rela.Bytes(), info: 0 /* patched below */, entsize: 24},
		{name: ".symtab", shType: shtSymtab, data: symtab, info: 1, entsize: 24},
		{name: ".strtab", shType: shtStrtab, data: strtab},
	})
	debugInfoIdx := idx[".debug_info"]
	data = patchSectionField(data, idx[".rela.debug_info"], 44, uint32(debugInfoIdx)) // sh_info -> target section
	data = patchSectionField(data, idx[".symtab"], 40, uint32(idx[".strtab"]))        // sh_link -> string table

	f, err := elfcontainer.Open(writeTemp(t, data))
	require.NoError(t, err)
	defer f.Close()

	assert.True(t, f.IsRelocatable())
	assert.Equal(t, container.RelWidth64, f.ClassifyRelocation(1))
	assert.Equal(t, container.RelWidth32, f.ClassifyRelocation(2))

	rels := f.Relocations(".debug_info")
	require.Len(t, rels, 2)
	assert.Equal(t, uint64(0), rels[0].Offset, "relocations must come back sorted by offset")
	assert.Equal(t, int64(0x40), rels[0].Addend)
	assert.Equal(t, uint64(8), rels[1].Offset)
}

func patchSectionField(data []byte, secIdx int, fieldOff uint64, v uint32) []byte {
	const shdrSize = 64
	shoffOff := 0x28
	shoff := binary.LittleEndian.Uint64(data[shoffOff : shoffOff+8])
	hdrOff := shoff + uint64(secIdx)*shdrSize
	binary.LittleEndian.PutUint32(data[hdrOff+fieldOff:hdrOff+fieldOff+4], v)
	return data
}

func TestOpenRejectsNonELFFile(t *testing.T) {
	path := writeTemp(t, []byte("not an elf file at all"))
	_, err := elfcontainer.Open(path)
	assert.ErrorIs(t, err, elfcontainer.ErrNotELF)
}

func TestOpenDecompressesSHFCompressedSection(t *testing.T) {
	payload := bytes.Repeat([]byte{0xab}, 256)
	var zbuf bytes.Buffer
	zw := zlib.NewWriter(&zbuf)
	_, err := zw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	var chdr bytes.Buffer
	binary.Write(&chdr, binary.LittleEndian, uint32(1)) // ELFCOMPRESS_ZLIB
	binary.Write(&chdr, binary.LittleEndian, uint32(0)) // ch_reserved
	binary.Write(&chdr, binary.LittleEndian, uint64(len(payload)))
	binary.Write(&chdr, binary.LittleEndian, uint64(8))
	compressed := append(chdr.Bytes(), zbuf.Bytes()...)

	data, _ := buildELF64(t, 2, 62, []rawSection{
		{name: ".debug_str", shType: shtProgbit, flags: shfCompressed, data: compressed},
	})

	f, err := elfcontainer.Open(writeTemp(t, data))
	require.NoError(t, err)
	defer f.Close()

	sec, ok := f.Section(".debug_str")
	require.True(t, ok)
	assert.Equal(t, payload, sec.Data)
}

func TestOpenEmptyFileErrors(t *testing.T) {
	path := writeTemp(t, nil)
	_, err := elfcontainer.Open(path)
	assert.Error(t, err)
}
