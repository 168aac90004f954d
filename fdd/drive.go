// Package fdd implements a minimal floppy-disk-image driver: a raw byte
// image with a fixed geometry and a dirty flag, persisted through an
// afero.Fs so the hardware coordinator can be tested against an in-memory
// filesystem.
package fdd

import (
	"fmt"

	"github.com/spf13/afero"
)

// Standard Vector-06C 5.25" single-sided image geometry: 80 tracks, 1 side,
// 5 sectors/track, 1024 bytes/sector.
const (
	Tracks        = 80
	Sides         = 1
	SectorsPerTrk = 5
	SectorSize    = 1024
	ImageSize     = Tracks * Sides * SectorsPerTrk * SectorSize
)

// Drive holds one floppy image in memory plus the path it was loaded from
// (if any) and whether it has unsaved changes.
type Drive struct {
	Path    string
	image   []byte
	dirty   bool
	present bool
}

// New constructs an empty, unmounted drive.
func New() *Drive { return &Drive{} }

// Load reads path through fs and mounts it as this drive's image. The image
// must be exactly ImageSize bytes.
func (d *Drive) Load(fs afero.Fs, path string) error {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return fmt.Errorf("fdd: read %s: %w", path, err)
	}
	if len(data) != ImageSize {
		return fmt.Errorf("fdd: %s: image is %d bytes, want %d", path, len(data), ImageSize)
	}
	d.image = data
	d.Path = path
	d.present = true
	d.dirty = false
	return nil
}

// LoadBytes mounts data directly (e.g. received over the request channel
// rather than read from a path), without requiring it come from a file.
func (d *Drive) LoadBytes(data []byte) error {
	if len(data) != ImageSize {
		return fmt.Errorf("fdd: image is %d bytes, want %d", len(data), ImageSize)
	}
	d.image = append([]byte(nil), data...)
	d.present = true
	d.dirty = false
	return nil
}

// Present reports whether a disk is mounted.
func (d *Drive) Present() bool { return d.present }

// Dirty reports whether the image has unsaved changes.
func (d *Drive) Dirty() bool { return d.dirty }

// Image returns the current raw image bytes (nil if no disk is mounted).
func (d *Drive) Image() []byte { return d.image }

// ReadByte reads one byte at a flat offset into the image.
func (d *Drive) ReadByte(offset int) (uint8, error) {
	if !d.present {
		return 0, fmt.Errorf("fdd: no disk present")
	}
	if offset < 0 || offset >= len(d.image) {
		return 0, fmt.Errorf("fdd: offset %d out of range", offset)
	}
	return d.image[offset], nil
}

// WriteByte writes one byte at a flat offset into the image and marks it
// dirty.
func (d *Drive) WriteByte(offset int, v uint8) error {
	if !d.present {
		return fmt.Errorf("fdd: no disk present")
	}
	if offset < 0 || offset >= len(d.image) {
		return fmt.Errorf("fdd: offset %d out of range", offset)
	}
	d.image[offset] = v
	d.dirty = true
	return nil
}

// Save writes the current image back to Path (or to path, if given) through
// fs and clears the dirty flag.
func (d *Drive) Save(fs afero.Fs, path string) error {
	if !d.present {
		return fmt.Errorf("fdd: no disk present")
	}
	if path == "" {
		path = d.Path
	}
	if err := afero.WriteFile(fs, path, d.image, 0o644); err != nil {
		return fmt.Errorf("fdd: write %s: %w", path, err)
	}
	d.Path = path
	d.dirty = false
	return nil
}

// Eject unmounts the current image.
func (d *Drive) Eject() {
	d.image = nil
	d.present = false
	d.dirty = false
	d.Path = ""
}
