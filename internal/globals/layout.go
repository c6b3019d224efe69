package globals

// DataSegment is one global's initializer, ready for the MASM emitter to
// commit with Rescue-Prime and load via pipe_preimage_to_memory (§4.7).
type DataSegment struct {
	Name   string
	Offset uint32
	Bytes  []byte
}

// Layout is the linear-memory placement computed for one module's
// globals: every global's byte offset, and the data segments for those
// with a constant initializer.
type Layout struct {
	Offsets  map[string]uint32
	Segments []DataSegment
	// NextOffset is the first byte after every laid-out global, where a
	// caller (e.g. the shadow stack's initial top) may continue placing
	// its own data.
	NextOffset uint32
}

// DefaultReservedBytes is the size of the low region set aside before any
// global is placed: space for the symbol table's own bookkeeping plus the
// shadow stack spec.md §3 requires reserved pages for.
const DefaultReservedBytes = 2 * 65536 // two 64KiB Wasm pages

// Layout assigns ascending, alignment-padded offsets to every global in
// st, starting after reservedBytes (see DefaultReservedBytes), and
// collects a DataSegment for each with a non-nil initializer (§3/§4.7:
// "Globals are laid out in linear memory at ascending offsets with
// alignment padding; the first pages of linear memory are reserved for
// this table and a shadow stack").
func (st *SymbolTable) Layout(reservedBytes uint32) *Layout {
	l := &Layout{
		Offsets:    make(map[string]uint32),
		NextOffset: reservedBytes,
	}
	for _, g := range st.order {
		align := g.Type.Align()
		offset := alignUp(l.NextOffset, align)
		size := g.Type.SizeAligned()

		l.Offsets[g.Name] = offset
		if g.Init != nil {
			l.Segments = append(l.Segments, DataSegment{Name: g.Name, Offset: offset, Bytes: g.Init})
		}
		l.NextOffset = offset + size
	}
	return l
}

func alignUp(v, align uint32) uint32 {
	if align <= 1 {
		return v
	}
	return (v + align - 1) &^ (align - 1)
}
