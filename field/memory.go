package field

import (
	"context"
	"sort"
	"sync"

	"github.com/janelia-flyem/cvdf/cvdf"
)

// MemorySource serves fields held in memory, keyed by path and variable.
// Read returns a copy so callers may modify it.
type MemorySource struct {
	mu     sync.RWMutex
	fields map[string]map[string]*Field
}

// NewMemorySource returns an empty in-memory source.
func NewMemorySource() *MemorySource {
	return &MemorySource{fields: make(map[string]map[string]*Field)}
}

// Put stores a field under the given path using the field's name as variable.
func (m *MemorySource) Put(path string, f *Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	vars, found := m.fields[path]
	if !found {
		vars = make(map[string]*Field)
		m.fields[path] = vars
	}
	vars[f.Name] = f
}

func (m *MemorySource) get(path, variable string) (*Field, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	vars := m.fields[path]
	if f, found := vars[variable]; found {
		return f, nil
	}
	available := make([]string, 0, len(vars))
	for name := range vars {
		available = append(available, name)
	}
	sort.Strings(available)
	return nil, &cvdf.VariableNotFoundError{Name: variable, Path: path, Available: available}
}

// Shape implements Source.
func (m *MemorySource) Shape(ctx context.Context, path, variable string) (cvdf.Dims3d, error) {
	f, err := m.get(path, variable)
	if err != nil {
		return cvdf.Dims3d{}, err
	}
	return f.Dims, nil
}

// Read implements Source.
func (m *MemorySource) Read(ctx context.Context, path, variable string) (*Field, error) {
	f, err := m.get(path, variable)
	if err != nil {
		return nil, err
	}
	return f.Clone(), nil
}
