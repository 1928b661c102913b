/*
	Package rawvol writes output volumes as flat little-endian float32 files in
	native (z, y, x) order, the raw layout imported by raw2vdf.
*/
package rawvol

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/janelia-flyem/cvdf/cvdf"
	"github.com/janelia-flyem/cvdf/field"
)

const bytesPerVoxel = 4

// Encode appends the raw little-endian float32 bytes of a volume.
func Encode(dst []byte, data []float32) []byte {
	var buf [bytesPerVoxel]byte
	for _, v := range data {
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
		dst = append(dst, buf[:]...)
	}
	return dst
}

// Decode converts raw little-endian float32 bytes into values.
func Decode(b []byte) ([]float32, error) {
	if len(b)%bytesPerVoxel != 0 {
		return nil, fmt.Errorf("raw volume of %d bytes is not a whole number of float32", len(b))
	}
	out := make([]float32, len(b)/bytesPerVoxel)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*bytesPerVoxel:]))
	}
	return out, nil
}

// Write stores the volume at path and returns its shape descriptor
// "NXxNYxNZ" and the number of bytes written.  The file appears at path only
// once it is complete.
func Write(path string, f *field.Field) (descriptor string, written int64, err error) {
	if len(f.Data) != f.Dims.NumVoxels() {
		return "", 0, fmt.Errorf("volume %q has %d values for shape %s", f.Name, len(f.Data), f.Dims)
	}
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return "", 0, err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w := bufio.NewWriterSize(tmp, 1<<20)
	var buf [bytesPerVoxel]byte
	for _, v := range f.Data {
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
		if _, err = w.Write(buf[:]); err != nil {
			return "", 0, fmt.Errorf("writing %s: %v", path, err)
		}
	}
	if err = w.Flush(); err != nil {
		return "", 0, fmt.Errorf("writing %s: %v", path, err)
	}
	if err = tmp.Sync(); err != nil {
		return "", 0, fmt.Errorf("syncing %s: %v", path, err)
	}
	if err = tmp.Close(); err != nil {
		return "", 0, fmt.Errorf("closing %s: %v", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return "", 0, fmt.Errorf("renaming volume into place at %s: %v", path, err)
	}
	written = int64(len(f.Data)) * bytesPerVoxel
	return f.Dims.Descriptor(), written, nil
}

// Read loads a raw volume given its shape descriptor.
func Read(path, descriptor string) (*field.Field, error) {
	dims, err := cvdf.ParseDescriptor(descriptor)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	expected := int64(dims.NumVoxels()) * bytesPerVoxel
	info, err := file.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() != expected {
		return nil, fmt.Errorf("raw volume %s has %d bytes, shape %s needs %d", path, info.Size(), descriptor, expected)
	}
	b := make([]byte, expected)
	if _, err := io.ReadFull(file, b); err != nil {
		return nil, err
	}
	data, err := Decode(b)
	if err != nil {
		return nil, err
	}
	return field.FromData(filepath.Base(path), dims, data)
}
