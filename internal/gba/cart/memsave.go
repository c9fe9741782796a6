package cart

// MemSave is a trivial in-process SaveBackend used by the windowed
// front end (cmd/gbacore) and tests. Real front ends back SaveBackend with a file on
// disk instead (spec.md §1 keeps cartridge save backends out of the
// core's scope).
type MemSave struct {
	data []byte
}

// NewMemSave allocates a zeroed backing store of the given size (e.g.
// 0x10000 for 64 KiB SRAM/Flash, 0x2000 for an EEPROM).
func NewMemSave(size int) *MemSave {
	return &MemSave{data: make([]byte, size)}
}

func (m *MemSave) Read8(addr uint32) byte {
	i := int(addr) % len(m.data)
	return m.data[i]
}

func (m *MemSave) Write8(addr uint32, value byte) {
	i := int(addr) % len(m.data)
	m.data[i] = value
}

// Bytes exposes the backing store for save-file persistence.
func (m *MemSave) Bytes() []byte { return m.data }

// LoadBytes replaces the backing store's content (sized copy).
func (m *MemSave) LoadBytes(b []byte) { copy(m.data, b) }
