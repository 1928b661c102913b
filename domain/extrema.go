package domain

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/janelia-flyem/cvdf/cvdf"
	"github.com/janelia-flyem/cvdf/voxels"
)

// AxisExtrema holds the bounds of a coordinate set along one axis.  For
// horizontal axes it also keeps the smallest coordinate strictly above half
// the periodic length and the largest coordinate at or below it, which is
// enough to derive the bounds after a wrap shift without revisiting voxels.
type AxisExtrema struct {
	Min, Max int32

	MinAboveHalf     int32
	MaxAtOrBelowHalf int32
	HasAboveHalf     bool
	HasAtOrBelowHalf bool

	valid bool
}

// Valid returns false if no coordinate has been observed.
func (e AxisExtrema) Valid() bool {
	return e.valid
}

// Span returns Max - Min.
func (e AxisExtrema) Span() int32 {
	if !e.valid {
		return 0
	}
	return e.Max - e.Min
}

func (e AxisExtrema) String() string {
	if !e.valid {
		return "[]"
	}
	return fmt.Sprintf("[%d,%d]", e.Min, e.Max)
}

func (e *AxisExtrema) add(c, n int32) {
	if !e.valid {
		e.Min, e.Max = c, c
		e.valid = true
	} else {
		if c < e.Min {
			e.Min = c
		}
		if c > e.Max {
			e.Max = c
		}
	}
	if n <= 0 {
		return
	}
	if aboveHalf(c, n) {
		if !e.HasAboveHalf || c < e.MinAboveHalf {
			e.MinAboveHalf = c
			e.HasAboveHalf = true
		}
	} else {
		if !e.HasAtOrBelowHalf || c > e.MaxAtOrBelowHalf {
			e.MaxAtOrBelowHalf = c
			e.HasAtOrBelowHalf = true
		}
	}
}

// merge widens e to cover o.
func (e *AxisExtrema) merge(o AxisExtrema) {
	if !o.valid {
		return
	}
	if !e.valid {
		*e = o
		return
	}
	if o.Min < e.Min {
		e.Min = o.Min
	}
	if o.Max > e.Max {
		e.Max = o.Max
	}
	if o.HasAboveHalf && (!e.HasAboveHalf || o.MinAboveHalf < e.MinAboveHalf) {
		e.MinAboveHalf = o.MinAboveHalf
		e.HasAboveHalf = true
	}
	if o.HasAtOrBelowHalf && (!e.HasAtOrBelowHalf || o.MaxAtOrBelowHalf > e.MaxAtOrBelowHalf) {
		e.MaxAtOrBelowHalf = o.MaxAtOrBelowHalf
		e.HasAtOrBelowHalf = true
	}
}

// Shifted returns the bounds after applying a wrap offset produced by Resolve
// for periodic length n.  The half-domain bookkeeping is not carried over.
func (e AxisExtrema) Shifted(offset, n int32) AxisExtrema {
	if offset == 0 || !e.valid {
		return e
	}
	// Resolve sets offset = n - m where m is the smallest upper-half
	// coordinate over all timesteps.  Upper-half coordinates land in
	// [0, n-1-m] and the rest in [n-m, n), so the two groups never interleave.
	m := n - offset
	out := AxisExtrema{valid: true}
	if e.HasAboveHalf {
		out.Min = e.MinAboveHalf - m
	} else {
		out.Min = e.Min + offset
	}
	if e.HasAtOrBelowHalf {
		out.Max = e.MaxAtOrBelowHalf + offset
	} else {
		out.Max = e.Max - m
	}
	return out
}

// Extrema are the per-axis bounds of one timestep's full table and of its
// subtype subset.
type Extrema struct {
	Timestep int
	CloudID  int64
	Full     [3]AxisExtrema
	Sub      [3]AxisExtrema
	NumFull  int
	NumSub   int
}

func (e Extrema) String() string {
	return fmt.Sprintf("t=%d cloud %d: full x%s y%s z%s (%d voxels), subset x%s y%s z%s (%d voxels)",
		e.Timestep, e.CloudID, e.Full[0], e.Full[1], e.Full[2], e.NumFull,
		e.Sub[0], e.Sub[1], e.Sub[2], e.NumSub)
}

func coordsExtrema(dom Domain, c voxels.Coords) (ext [3]AxisExtrema, err error) {
	for _, axis := range []cvdf.Axis{cvdf.AxisX, cvdf.AxisY, cvdf.AxisZ} {
		n := dom.Length(axis)
		for _, v := range c.Axis(axis) {
			if v < 0 || (n > 0 && v >= n) {
				return ext, fmt.Errorf("%s coordinate %d outside domain %s", axis, v, dom)
			}
			ext[axis].add(v, n)
		}
	}
	return ext, nil
}

// Tracker accumulates extrema over all timesteps.  Observe may be called
// concurrently; the result does not depend on the order of observation.
type Tracker struct {
	dom Domain

	mu    sync.Mutex
	steps map[int]Extrema
}

// NewTracker returns a tracker for the given periodic domain.
func NewTracker(dom Domain) *Tracker {
	return &Tracker{dom: dom, steps: make(map[int]Extrema)}
}

// Observe records the extrema of one timestep's classified table.
func (t *Tracker) Observe(timestep int, s *voxels.Subset) (Extrema, error) {
	ext := Extrema{
		Timestep: timestep,
		CloudID:  s.CloudID,
		NumFull:  s.Full.Len(),
		NumSub:   s.Sub.Len(),
	}
	var err error
	if ext.Full, err = coordsExtrema(t.dom, s.Full); err != nil {
		return ext, fmt.Errorf("timestep %d: %v", timestep, err)
	}
	if ext.Sub, err = coordsExtrema(t.dom, s.Sub); err != nil {
		return ext, fmt.Errorf("timestep %d: %v", timestep, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, found := t.steps[timestep]; found {
		return ext, fmt.Errorf("timestep %d observed twice", timestep)
	}
	t.steps[timestep] = ext
	return ext, nil
}

// Aggregate is the immutable result of observing every timestep.
type Aggregate struct {
	Domain Domain
	Full   [3]AxisExtrema
	Sub    [3]AxisExtrema

	// Steps holds the per-timestep extrema indexed by timestep.
	Steps []Extrema
}

// Aggregate reduces the observations once all timesteps in [0, numTimesteps)
// have been observed.  It returns an error naming any missing timesteps.
func (t *Tracker) Aggregate(numTimesteps int) (*Aggregate, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var missing []string
	for ts := 0; ts < numTimesteps; ts++ {
		if _, found := t.steps[ts]; !found {
			missing = append(missing, fmt.Sprintf("%d", ts))
		}
	}
	if len(missing) != 0 {
		return nil, fmt.Errorf("extrema not observed for timesteps %s", strings.Join(missing, ", "))
	}
	if len(t.steps) != numTimesteps {
		var extra []int
		for ts := range t.steps {
			if ts < 0 || ts >= numTimesteps {
				extra = append(extra, ts)
			}
		}
		sort.Ints(extra)
		return nil, fmt.Errorf("extrema observed for unexpected timesteps %v", extra)
	}

	agg := &Aggregate{Domain: t.dom, Steps: make([]Extrema, numTimesteps)}
	for ts := 0; ts < numTimesteps; ts++ {
		ext := t.steps[ts]
		agg.Steps[ts] = ext
		for a := range ext.Full {
			agg.Full[a].merge(ext.Full[a])
			agg.Sub[a].merge(ext.Sub[a])
		}
	}
	return agg, nil
}

// MaxZ returns the largest z over every voxel of every timestep.
func (a *Aggregate) MaxZ() int32 {
	return a.Full[cvdf.AxisZ].Max
}
