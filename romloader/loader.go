// Package romloader loads boot-ROM, RAM-disk, and FDD payloads from either a
// plain binary file or a supported archive, including ZIP, 7z, gzip, RAR,
// and xz. Vector-06C images carry no reliable file-extension convention, so
// a detected archive's first non-directory entry is extracted regardless of
// its name.
package romloader

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/klauspost/compress/flate"
	kgzip "github.com/klauspost/compress/gzip"
	"github.com/nwaples/rardecode/v2"
	"github.com/ulikunitz/xz"
)

// Magic bytes for format detection.
var (
	magicZIP    = []byte{0x50, 0x4B, 0x03, 0x04}
	magicZIPEnd = []byte{0x50, 0x4B, 0x05, 0x06} // empty zip
	magic7z     = []byte{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C}
	magicGzip   = []byte{0x1F, 0x8B}
	magicRAR    = []byte{0x52, 0x61, 0x72, 0x21} // "Rar!"
	magicXZ     = []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}
)

// maxPayloadSize bounds an extracted payload: the largest Vector-06C RAM
// disk in original_source is 512KB per page set, so 8MB leaves ample room
// for multi-disk images.
const maxPayloadSize = 8 * 1024 * 1024

var (
	ErrNoPayload         = errors.New("romloader: archive contains no usable entry")
	ErrUnsupportedFormat = errors.New("romloader: unsupported file format")
	ErrPayloadTooLarge   = errors.New("romloader: payload exceeds maximum size limit")
)

type formatType int

const (
	formatUnknown formatType = iota
	formatRaw
	formatZIP
	format7z
	formatGzip
	formatRAR
	formatXZ
)

func init() {
	// Registering klauspost's flate gives archive/zip a faster deflate
	// decompressor than the standard library's, without changing the zip
	// container parsing itself.
	zip.RegisterDecompressor(zip.Deflate, func(r io.Reader) io.ReadCloser {
		return flate.NewReader(r)
	})
}

// LoadPayload loads a boot-ROM, RAM-disk, or FDD image from path. Archives
// are detected by magic bytes (falling back to extension) and their first
// non-directory entry is extracted. Returns the payload bytes, the name it
// was extracted under (for display), and any error.
func LoadPayload(path string) ([]byte, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("romloader: open %s: %w", path, err)
	}
	defer f.Close()

	header := make([]byte, 16)
	n, err := f.Read(header)
	if err != nil && err != io.EOF {
		return nil, "", fmt.Errorf("romloader: read header of %s: %w", path, err)
	}
	header = header[:n]

	format := detectFormat(header, path)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, "", fmt.Errorf("romloader: seek %s: %w", path, err)
	}

	switch format {
	case formatRaw:
		data, err := limitedRead(f)
		if err != nil {
			return nil, "", fmt.Errorf("romloader: read %s: %w", path, err)
		}
		return data, filepath.Base(path), nil
	case formatZIP:
		return extractFromZIP(path)
	case format7z:
		return extractFrom7z(path)
	case formatGzip:
		return extractFromGzip(f, path)
	case formatRAR:
		return extractFromRAR(path)
	case formatXZ:
		return extractFromXZ(f, path)
	default:
		return nil, "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

func detectFormat(header []byte, path string) formatType {
	if len(header) >= 4 {
		if bytes.HasPrefix(header, magicZIP) || bytes.HasPrefix(header, magicZIPEnd) {
			return formatZIP
		}
		if bytes.HasPrefix(header, magicRAR) {
			return formatRAR
		}
	}
	if len(header) >= 6 && bytes.HasPrefix(header, magic7z) {
		return format7z
	}
	if len(header) >= 6 && bytes.HasPrefix(header, magicXZ) {
		return formatXZ
	}
	if len(header) >= 2 && bytes.HasPrefix(header, magicGzip) {
		return formatGzip
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip":
		return formatZIP
	case ".7z":
		return format7z
	case ".gz", ".tgz":
		return formatGzip
	case ".rar":
		return formatRAR
	case ".xz":
		return formatXZ
	}
	if len(header) > 0 {
		return formatRaw
	}
	return formatUnknown
}

func limitedRead(r io.Reader) ([]byte, error) {
	lr := io.LimitReader(r, maxPayloadSize+1)
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if len(data) > maxPayloadSize {
		return nil, ErrPayloadTooLarge
	}
	return data, nil
}

func extractFromZIP(path string) ([]byte, string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, "", fmt.Errorf("romloader: open zip: %w", err)
	}
	defer r.Close()

	for _, entry := range r.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			return nil, "", fmt.Errorf("romloader: open %s in zip: %w", entry.Name, err)
		}
		data, err := limitedRead(rc)
		rc.Close()
		if err != nil {
			return nil, "", fmt.Errorf("romloader: read %s: %w", entry.Name, err)
		}
		return data, filepath.Base(entry.Name), nil
	}
	return nil, "", ErrNoPayload
}

func extractFrom7z(path string) ([]byte, string, error) {
	r, err := sevenzip.OpenReader(path)
	if err != nil {
		return nil, "", fmt.Errorf("romloader: open 7z: %w", err)
	}
	defer r.Close()

	for _, entry := range r.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			return nil, "", fmt.Errorf("romloader: open %s in 7z: %w", entry.Name, err)
		}
		data, err := limitedRead(rc)
		rc.Close()
		if err != nil {
			return nil, "", fmt.Errorf("romloader: read %s: %w", entry.Name, err)
		}
		return data, filepath.Base(entry.Name), nil
	}
	return nil, "", ErrNoPayload
}

func extractFromGzip(r io.Reader, path string) ([]byte, string, error) {
	gr, err := kgzip.NewReader(r)
	if err != nil {
		return nil, "", fmt.Errorf("romloader: open gzip: %w", err)
	}
	defer gr.Close()

	data, err := limitedRead(gr)
	if err != nil {
		return nil, "", fmt.Errorf("romloader: read gzip payload: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if gr.Name != "" {
		name = gr.Name
	}
	return data, name, nil
}

func extractFromXZ(r io.Reader, path string) ([]byte, string, error) {
	xr, err := xz.NewReader(r)
	if err != nil {
		return nil, "", fmt.Errorf("romloader: open xz: %w", err)
	}
	data, err := limitedRead(xr)
	if err != nil {
		return nil, "", fmt.Errorf("romloader: read xz payload: %w", err)
	}
	return data, strings.TrimSuffix(filepath.Base(path), ".xz"), nil
}

func extractFromRAR(path string) ([]byte, string, error) {
	r, err := rardecode.OpenReader(path)
	if err != nil {
		return nil, "", fmt.Errorf("romloader: open rar: %w", err)
	}
	defer r.Close()

	for {
		header, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, "", fmt.Errorf("romloader: read rar entry: %w", err)
		}
		if header.IsDir {
			continue
		}
		data, err := limitedRead(r)
		if err != nil {
			return nil, "", fmt.Errorf("romloader: read %s: %w", header.Name, err)
		}
		return data, filepath.Base(header.Name), nil
	}
	return nil, "", ErrNoPayload
}
