package fdd

import (
	"testing"

	"github.com/spf13/afero"
)

func TestDrive_LoadBytesAndReadWrite(t *testing.T) {
	d := New()
	img := make([]byte, ImageSize)
	img[100] = 0x42
	if err := d.LoadBytes(img); err != nil {
		t.Fatalf("LoadBytes: %v", err)
	}
	if !d.Present() {
		t.Error("expected Present() true after LoadBytes")
	}
	if d.Dirty() {
		t.Error("expected a freshly loaded disk not to be dirty")
	}
	v, err := d.ReadByte(100)
	if err != nil || v != 0x42 {
		t.Errorf("expected ReadByte(100)=0x42, got %#02x err=%v", v, err)
	}
}

func TestDrive_LoadBytesRejectsWrongSize(t *testing.T) {
	d := New()
	if err := d.LoadBytes(make([]byte, 10)); err == nil {
		t.Error("expected an error loading an undersized image")
	}
}

func TestDrive_WriteByteMarksDirty(t *testing.T) {
	d := New()
	d.LoadBytes(make([]byte, ImageSize))
	if err := d.WriteByte(5, 0x99); err != nil {
		t.Fatalf("WriteByte: %v", err)
	}
	if !d.Dirty() {
		t.Error("expected Dirty() true after a write")
	}
	v, _ := d.ReadByte(5)
	if v != 0x99 {
		t.Errorf("expected 0x99, got %#02x", v)
	}
}

func TestDrive_ReadWriteWithoutDiskIsAnError(t *testing.T) {
	d := New()
	if _, err := d.ReadByte(0); err == nil {
		t.Error("expected an error reading with no disk present")
	}
	if err := d.WriteByte(0, 0); err == nil {
		t.Error("expected an error writing with no disk present")
	}
}

func TestDrive_OutOfRangeOffsetIsAnError(t *testing.T) {
	d := New()
	d.LoadBytes(make([]byte, ImageSize))
	if _, err := d.ReadByte(-1); err == nil {
		t.Error("expected an error for a negative offset")
	}
	if _, err := d.ReadByte(ImageSize); err == nil {
		t.Error("expected an error for an offset at the image length")
	}
}

func TestDrive_LoadSaveRoundtripThroughFs(t *testing.T) {
	fs := afero.NewMemMapFs()
	img := make([]byte, ImageSize)
	img[0] = 0xAB
	afero.WriteFile(fs, "/disk.img", img, 0o644)

	d := New()
	if err := d.Load(fs, "/disk.img"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if d.Path != "/disk.img" {
		t.Errorf("expected Path set to /disk.img, got %q", d.Path)
	}

	d.WriteByte(1, 0xCD)
	if err := d.Save(fs, ""); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if d.Dirty() {
		t.Error("expected Dirty() false after Save")
	}

	got, err := afero.ReadFile(fs, "/disk.img")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got[0] != 0xAB || got[1] != 0xCD {
		t.Errorf("expected saved image to reflect the write, got [0]=%#02x [1]=%#02x", got[0], got[1])
	}
}

func TestDrive_LoadRejectsWrongSizeFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/bad.img", []byte{0x01, 0x02}, 0o644)
	d := New()
	if err := d.Load(fs, "/bad.img"); err == nil {
		t.Error("expected an error loading an undersized file")
	}
}

func TestDrive_Eject(t *testing.T) {
	d := New()
	d.LoadBytes(make([]byte, ImageSize))
	d.Eject()
	if d.Present() {
		t.Error("expected Present() false after Eject")
	}
	if d.Image() != nil {
		t.Error("expected Image() nil after Eject")
	}
}
