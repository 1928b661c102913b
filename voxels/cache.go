package voxels

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/coocood/freecache"
	"github.com/tinylib/msgp/msgp"

	"github.com/janelia-flyem/cvdf/cvdf"
)

// freecache rejects entries larger than about 1/1024 of the cache, so encoded
// tables are split into chunks stored under "<path>#<n>".
const (
	freecacheEntryOverhead = 24
	minCacheBytes          = 512 * 1024
)

// Cache holds decoded voxel tables in a fixed-size, GC-friendly cache so that
// the processing pass does not re-read tables already decoded during the
// extrema pass.  A nil *Cache is valid and caches nothing.
type Cache struct {
	fc       *freecache.Cache
	maxChunk int
}

// NewCache returns a cache of the given size in megabytes or nil if sizeMB <= 0.
func NewCache(sizeMB int) *Cache {
	if sizeMB <= 0 {
		return nil
	}
	return newCacheBytes(sizeMB * 1024 * 1024)
}

func newCacheBytes(numBytes int) *Cache {
	if numBytes < minCacheBytes {
		numBytes = minCacheBytes
	}
	return &Cache{
		fc:       freecache.NewCache(numBytes),
		maxChunk: numBytes/1024 - freecacheEntryOverhead,
	}
}

func chunkKey(path string, i int) []byte {
	return []byte(path + "#" + strconv.Itoa(i))
}

// Put stores a table under its source path.  Tables that cannot be stored
// are simply not cached.
func (c *Cache) Put(t *Table) {
	if c == nil {
		return
	}
	data := encodeTable(t)
	chunkSize := c.maxChunk - len(chunkKey(t.Source, 1<<30))
	if chunkSize <= 0 {
		return
	}
	numChunks := (len(data) + chunkSize - 1) / chunkSize
	for i := 0; i < numChunks; i++ {
		end := (i + 1) * chunkSize
		if end > len(data) {
			end = len(data)
		}
		if err := c.fc.Set(chunkKey(t.Source, i), data[i*chunkSize:end], 0); err != nil {
			cvdf.Debugf("not caching voxel table %s: %v\n", t.Source, err)
			return
		}
	}
	header := msgp.AppendUint32(nil, uint32(numChunks))
	header = msgp.AppendUint32(header, uint32(len(data)))
	if err := c.fc.Set([]byte(t.Source), header, 0); err != nil {
		cvdf.Debugf("not caching voxel table %s: %v\n", t.Source, err)
	}
}

// Get returns a cached table or nil if any part of it has been evicted.
func (c *Cache) Get(path string) *Table {
	if c == nil {
		return nil
	}
	header, err := c.fc.Get([]byte(path))
	if err != nil {
		return nil
	}
	numChunks, rest, err := msgp.ReadUint32Bytes(header)
	if err != nil {
		return nil
	}
	total, _, err := msgp.ReadUint32Bytes(rest)
	if err != nil {
		return nil
	}
	data := make([]byte, 0, total)
	for i := 0; i < int(numChunks); i++ {
		chunk, err := c.fc.Get(chunkKey(path, i))
		if err != nil {
			return nil
		}
		data = append(data, chunk...)
	}
	t, err := decodeTable(path, data)
	if err != nil {
		cvdf.Errorf("corrupt cached voxel table %s: %v\n", path, err)
		return nil
	}
	return t
}

// Stats returns cache hit and miss counts.
func (c *Cache) Stats() (hits, misses int64) {
	if c == nil {
		return 0, 0
	}
	return c.fc.HitCount(), c.fc.MissCount()
}

func encodeTable(t *Table) []byte {
	n := t.NumRows()
	b := make([]byte, 0, 5+n*20)
	b = msgp.AppendArrayHeader(b, uint32(n))
	for i := 0; i < n; i++ {
		b = msgp.AppendInt32(b, t.X[i])
		b = msgp.AppendInt32(b, t.Y[i])
		b = msgp.AppendInt32(b, t.Z[i])
		b = msgp.AppendInt64(b, t.CloudID[i])
		b = msgp.AppendUint8(b, uint8(t.Type[i]))
	}
	return b
}

func decodeTable(source string, b []byte) (*Table, error) {
	n, b, err := msgp.ReadArrayHeaderBytes(b)
	if err != nil {
		return nil, err
	}
	t := &Table{
		Source:  source,
		X:       make([]int32, n),
		Y:       make([]int32, n),
		Z:       make([]int32, n),
		CloudID: make([]int64, n),
		Type:    make([]cvdf.MembershipType, n),
	}
	for i := 0; i < int(n); i++ {
		if t.X[i], b, err = msgp.ReadInt32Bytes(b); err != nil {
			return nil, err
		}
		if t.Y[i], b, err = msgp.ReadInt32Bytes(b); err != nil {
			return nil, err
		}
		if t.Z[i], b, err = msgp.ReadInt32Bytes(b); err != nil {
			return nil, err
		}
		if t.CloudID[i], b, err = msgp.ReadInt64Bytes(b); err != nil {
			return nil, err
		}
		var code uint8
		if code, b, err = msgp.ReadUint8Bytes(b); err != nil {
			return nil, err
		}
		t.Type[i] = cvdf.MembershipType(code)
		if !t.Type[i].Valid() {
			return nil, fmt.Errorf("row %d: %w", i, cvdf.ErrUnknownType)
		}
	}
	if len(b) != 0 {
		return nil, errors.New("trailing bytes after encoded voxel table")
	}
	return t, nil
}
