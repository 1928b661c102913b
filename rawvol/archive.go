package rawvol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"

	"github.com/janelia-flyem/cvdf/cvdf"
	"github.com/janelia-flyem/cvdf/field"
)

// Compression is the codec used for archived volumes.
type Compression uint8

const (
	Uncompressed Compression = iota
	Snappy
	Zstd
)

func (c Compression) String() string {
	switch c {
	case Uncompressed:
		return "none"
	case Snappy:
		return "snappy"
	case Zstd:
		return "zstd"
	default:
		return "unknown"
	}
}

// ParseCompression accepts "none", "snappy" or "zstd".  An empty string is zstd.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "zstd":
		return Zstd, nil
	case "snappy":
		return Snappy, nil
	case "none":
		return Uncompressed, nil
	default:
		return 0, fmt.Errorf("unknown archive codec %q (want zstd, snappy or none)", s)
	}
}

var (
	zstdEncoder, _ = zstd.NewWriter(nil)
	zstdDecoder, _ = zstd.NewReader(nil)
)

// Archived volumes start with a format byte and a CRC32 of the compressed
// payload.
const archiveHeaderSize = 5

func compress(data []byte, c Compression) ([]byte, error) {
	var payload []byte
	switch c {
	case Uncompressed:
		payload = data
	case Snappy:
		payload = snappy.Encode(nil, data)
	case Zstd:
		payload = zstdEncoder.EncodeAll(data, make([]byte, 0, len(data)/2))
	default:
		return nil, fmt.Errorf("illegal compression %d", c)
	}
	var buf bytes.Buffer
	buf.Grow(archiveHeaderSize + len(payload))
	buf.WriteByte(byte(c))
	binary.Write(&buf, binary.LittleEndian, crc32.ChecksumIEEE(payload))
	buf.Write(payload)
	return buf.Bytes(), nil
}

func decompress(b []byte) ([]byte, error) {
	if len(b) < archiveHeaderSize {
		return nil, fmt.Errorf("archived volume too short (%d bytes)", len(b))
	}
	c := Compression(b[0])
	payload := b[archiveHeaderSize:]
	if crc := binary.LittleEndian.Uint32(b[1:archiveHeaderSize]); crc != crc32.ChecksumIEEE(payload) {
		return nil, fmt.Errorf("archived volume has bad checksum")
	}
	switch c {
	case Uncompressed:
		return payload, nil
	case Snappy:
		return snappy.Decode(nil, payload)
	case Zstd:
		return zstdDecoder.DecodeAll(payload, nil)
	default:
		return nil, fmt.Errorf("archived volume has illegal compression %d", c)
	}
}

// Archive keeps a compressed copy of every serialized volume.
type Archive struct {
	dir   string
	codec Compression
}

// NewArchive returns an archive writing into dir, which is created if needed.
func NewArchive(dir string, codec Compression) (*Archive, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating archive directory %s: %v", dir, err)
	}
	return &Archive{dir: dir, codec: codec}, nil
}

// Name returns the archive file name for a timestep's volume.
func (a *Archive) Name(variable string, timestep int, descriptor string) string {
	return fmt.Sprintf("%s_%06d_%s.bin.%s", variable, timestep, descriptor, a.codec)
}

// Store compresses a volume into the archive and returns its path.
func (a *Archive) Store(variable string, timestep int, f *field.Field) (string, error) {
	raw := Encode(make([]byte, 0, len(f.Data)*bytesPerVoxel), f.Data)
	data, err := compress(raw, a.codec)
	if err != nil {
		return "", err
	}
	path := filepath.Join(a.dir, a.Name(variable, timestep, f.Dims.Descriptor()))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("archiving timestep %d: %v", timestep, err)
	}
	cvdf.Debugf("archived timestep %d: %s -> %s (%s)\n", timestep,
		humanize.Bytes(uint64(len(raw))), humanize.Bytes(uint64(len(data))), a.codec)
	return path, nil
}

// Load reads an archived volume back.  The shape comes from the file name.
func Load(path string) (*field.Field, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	raw, err := decompress(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	data, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	// <variable>_<timestep>_<descriptor>.bin.<codec>
	name := filepath.Base(path)
	if i := strings.Index(name, ".bin."); i >= 0 {
		name = name[:i]
	}
	parts := strings.Split(name, "_")
	if len(parts) < 3 {
		return nil, fmt.Errorf("archive file name %s is not <variable>_<timestep>_<shape>", path)
	}
	dims, err := cvdf.ParseDescriptor(parts[len(parts)-1])
	if err != nil {
		return nil, fmt.Errorf("archive file name %s: %v", path, err)
	}
	return field.FromData(strings.Join(parts[:len(parts)-2], "_"), dims, data)
}
