package cart

import "testing"

func TestSniffBackendFromIDString(t *testing.T) {
	rom := make([]byte, 0x1000)
	copy(rom[0x500:], []byte("EEPROM_V120"))
	c, err := New(rom)
	if err != nil {
		t.Fatal(err)
	}
	if c.Kind() != BackendEEPROM {
		t.Fatalf("Kind() = %v, want BackendEEPROM", c.Kind())
	}
}

func TestDefaultsToSRAMWithoutIDString(t *testing.T) {
	rom := make([]byte, 0x1000)
	c, _ := New(rom)
	if c.Kind() != BackendSRAM {
		t.Fatalf("Kind() = %v, want BackendSRAM", c.Kind())
	}
}

func TestReadOutOfBoundsReturnsZero(t *testing.T) {
	c, _ := New(make([]byte, 0x100))
	if v := c.Read8(0x08000200); v != 0 {
		t.Fatalf("Read8 out of range = %d, want 0", v)
	}
}

func TestWriteIsIgnored(t *testing.T) {
	rom := make([]byte, 0x100)
	c, _ := New(rom)
	c.Write8(0x08000010, 0xFF)
	if v := c.Read8(0x08000010); v != 0 {
		t.Fatalf("ROM write was not ignored: read back %d", v)
	}
}

func TestSaveBackendRoundTrip(t *testing.T) {
	c, _ := New(make([]byte, 0x100))
	c.AttachSave(NewMemSave(0x8000))
	c.WriteSave(0x0E000010, 0x42)
	if v := c.ReadSave(0x0E000010); v != 0x42 {
		t.Fatalf("ReadSave = %#x, want 0x42", v)
	}
}

func TestMissingSaveBackendReadsZero(t *testing.T) {
	c, _ := New(make([]byte, 0x100))
	if v := c.ReadSave(0x0E000000); v != 0 {
		t.Fatalf("ReadSave without backend = %d, want 0", v)
	}
}
