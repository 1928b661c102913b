/*
	Package pipeline sequences a run: stage inputs, reduce extrema over every
	timestep, resolve the wrap offset, create the VAPOR container, then mask,
	serialize and import each timestep.
*/
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/twinj/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/janelia-flyem/cvdf/config"
	"github.com/janelia-flyem/cvdf/cvdf"
	"github.com/janelia-flyem/cvdf/domain"
	"github.com/janelia-flyem/cvdf/field"
	"github.com/janelia-flyem/cvdf/ledger"
	"github.com/janelia-flyem/cvdf/mask"
	"github.com/janelia-flyem/cvdf/rawvol"
	"github.com/janelia-flyem/cvdf/stage"
	"github.com/janelia-flyem/cvdf/vapor"
	"github.com/janelia-flyem/cvdf/voxels"
)

// Pipeline runs one configuration.  Create it with New.
type Pipeline struct {
	cfg   *config.Config
	runID string

	sel   cvdf.Selector
	fill  mask.FillValue
	codec rawvol.Compression
	dom   domain.Domain
	tools vapor.Tools

	loader *voxels.Loader
	fields field.Source

	// local copies of the inputs after staging
	tablePaths []string
	fieldPaths []string
}

// New validates the configuration and returns a pipeline that reads fields
// through the given source, or from netCDF-4/HDF5 files if fields is nil.
func New(cfg *config.Config, fields field.Source) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sel, err := cfg.Selector()
	if err != nil {
		return nil, err
	}
	fill, err := cfg.Fill()
	if err != nil {
		return nil, err
	}
	codec, err := cfg.ArchiveCodec()
	if err != nil {
		return nil, err
	}
	if fields == nil {
		fields = field.HDF5Source{}
	}
	return &Pipeline{
		cfg:   cfg,
		runID: uuid.NewV4().String(),
		sel:   sel,
		fill:  fill,
		codec: codec,
		dom:   cfg.PeriodicDomain(),
		tools: vapor.Tools{
			ContainerTool: cfg.ContainerToolPath,
			ImportTool:    cfg.ImportToolPath,
			Timeout:       cfg.Run.ToolTimeout.Duration,
		},
		loader: voxels.NewLoader(voxels.NewCache(cfg.Run.TableCacheMB)),
		fields: fields,
	}, nil
}

// RunID returns the unique id of this pipeline's run.
func (p *Pipeline) RunID() string {
	return p.runID
}

func (p *Pipeline) numTimesteps() int {
	return p.cfg.NumTimesteps()
}

// stageInputs makes every input available locally.
func (p *Pipeline) stageInputs(ctx context.Context) error {
	if p.tablePaths != nil {
		return nil
	}
	remote := false
	for _, ref := range append(append([]string{}, p.cfg.InputTablePaths...), p.cfg.InputFieldPaths...) {
		if stage.IsRemote(ref) {
			remote = true
			break
		}
	}
	if !remote {
		p.tablePaths = p.cfg.InputTablePaths
		p.fieldPaths = p.cfg.InputFieldPaths
		return nil
	}
	dir := p.cfg.Run.StagingDir
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "cvdf-staging")
	}
	stager, err := stage.New(dir)
	if err != nil {
		return err
	}
	if p.tablePaths, err = stager.StageAll(ctx, p.cfg.InputTablePaths); err != nil {
		return err
	}
	if p.fieldPaths, err = stager.StageAll(ctx, p.cfg.InputFieldPaths); err != nil {
		return err
	}
	return nil
}

func (p *Pipeline) load(ctx context.Context, timestep int) (*voxels.Table, error) {
	tbl, err := p.loader.Load(ctx, p.tablePaths[timestep])
	if err != nil {
		return nil, fmt.Errorf("timestep %d: %w", timestep, err)
	}
	return tbl, nil
}

// classify loads and classifies one timestep's table.
func (p *Pipeline) classify(ctx context.Context, timestep int) (*voxels.Subset, error) {
	tbl, err := p.load(ctx, timestep)
	if err != nil {
		return nil, err
	}
	sub, err := voxels.Classify(tbl, p.sel)
	if err != nil {
		return nil, fmt.Errorf("timestep %d: %w", timestep, err)
	}
	return sub, nil
}

// Extrema is the result of the extrema pass.  Counts holds the voxels of
// each membership type per timestep.
type Extrema struct {
	Aggregate *domain.Aggregate
	Offset    domain.WrapOffset
	Counts    []map[cvdf.MembershipType]int
}

// Extrema stages the inputs, observes every timestep's table and resolves
// the wrap offset.  No output is written.
func (p *Pipeline) Extrema(ctx context.Context) (*Extrema, error) {
	if err := p.stageInputs(ctx); err != nil {
		return nil, err
	}
	timedLog := cvdf.NewTimeLog()
	tracker := domain.NewTracker(p.dom)
	counts := make([]map[cvdf.MembershipType]int, p.numTimesteps())
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Run.Workers)
	for ts := 0; ts < p.numTimesteps(); ts++ {
		ts := ts
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tbl, err := p.load(gctx, ts)
			if err != nil {
				return err
			}
			counts[ts] = voxels.CountByType(tbl)
			sub, err := voxels.Classify(tbl, p.sel)
			if err != nil {
				return fmt.Errorf("timestep %d: %w", ts, err)
			}
			ext, err := tracker.Observe(ts, sub)
			if err != nil {
				return err
			}
			cvdf.Debugf("%s\n", ext)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	agg, err := tracker.Aggregate(p.numTimesteps())
	if err != nil {
		return nil, err
	}
	off := domain.Resolve(agg)
	timedLog.Infof("extrema of %d timesteps: x%s y%s max z %d, wrap offset %s",
		p.numTimesteps(), agg.Full[cvdf.AxisX], agg.Full[cvdf.AxisY], agg.MaxZ(), off)
	return &Extrema{Aggregate: agg, Offset: off, Counts: counts}, nil
}

// Outcome is the result of one timestep.
type Outcome struct {
	Timestep int
	Window   domain.Window
	Bytes    int64
	Archive  string
	Imported bool
	ExitCode int
	Output   string
	Err      error
	Duration time.Duration
}

// Report summarizes a run.
type Report struct {
	RunID     string
	Container string
	Offset    domain.WrapOffset
	Size      cvdf.Dims3d
	Outcomes  []Outcome
}

// Gaps returns the timesteps that were not imported.
func (r *Report) Gaps() []int {
	var gaps []int
	for _, o := range r.Outcomes {
		if !o.Imported {
			gaps = append(gaps, o.Timestep)
		}
	}
	sort.Ints(gaps)
	return gaps
}

// Run performs the whole pipeline.  Errors loading or transforming any
// timestep, or creating the container, abort the run.  Failed imports do
// not; they appear as gaps in the report.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	timedLog := cvdf.NewTimeLog()
	ext, err := p.Extrema(ctx)
	if err != nil {
		return nil, err
	}

	fieldDims, err := p.fields.Shape(ctx, p.fieldPaths[0], p.cfg.Output.Variable)
	if err != nil {
		return nil, fmt.Errorf("timestep 0: %w", err)
	}
	planner, err := domain.NewPlanner(ext.Aggregate, ext.Offset, p.cfg.Output.Crop, fieldDims)
	if err != nil {
		return nil, err
	}

	container, err := p.createContainer(ctx, planner)
	if err != nil {
		return nil, err
	}

	report := &Report{
		RunID:     p.runID,
		Container: container,
		Offset:    ext.Offset,
		Size:      planner.Size,
		Outcomes:  make([]Outcome, p.numTimesteps()),
	}

	var led *ledger.Ledger
	if p.cfg.Run.Ledger != "" {
		if led, err = ledger.Open(p.cfg.Run.Ledger); err != nil {
			return nil, err
		}
		defer led.Close()
		err = led.StartRun(ctx, ledger.Run{
			ID:           p.runID,
			Variable:     p.cfg.Output.Variable,
			Selector:     p.sel.String(),
			Container:    container,
			NumTimesteps: p.numTimesteps(),
			OffsetX:      ext.Offset.X,
			OffsetY:      ext.Offset.Y,
			Consistent:   ext.Offset.Consistent,
			Window:       planner.Size.Descriptor(),
		})
		if err != nil {
			return nil, err
		}
	}

	scratch, err := rawvol.NewScratch(p.cfg.Run.StagingDir, p.runID)
	if err != nil {
		return nil, err
	}
	defer scratch.Close()

	var archive *rawvol.Archive
	if p.cfg.Output.ArchiveDir != "" {
		if archive, err = rawvol.NewArchive(p.cfg.Output.ArchiveDir, p.codec); err != nil {
			return nil, err
		}
	}

	params := mask.Params{
		Selector: p.sel,
		Offset:   ext.Offset,
		Domain:   p.dom,
		Planner:  planner,
		Fill:     p.fill,
	}
	var written int64
	var writtenMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Run.Workers)
	for ts := 0; ts < p.numTimesteps(); ts++ {
		ts := ts
		g.Go(func() error {
			out := &report.Outcomes[ts]
			out.Timestep = ts
			err := p.processTimestep(gctx, ts, params, container, scratch, archive, out)
			if led != nil {
				rec := ledger.Timestep{
					RunID:    p.runID,
					Timestep: ts,
					Status:   ledger.StatusImported,
					ExitCode: out.ExitCode,
					Output:   out.Output,
					Bytes:    out.Bytes,
					Duration: out.Duration,
				}
				switch {
				case err != nil:
					rec.Status = ledger.StatusFailed
					rec.Output = err.Error()
				case !out.Imported:
					rec.Status = ledger.StatusImportFailed
				}
				if lerr := led.RecordTimestep(ctx, rec); lerr != nil {
					cvdf.Errorf("ledger: %v\n", lerr)
				}
			}
			if err == nil {
				writtenMu.Lock()
				written += out.Bytes
				writtenMu.Unlock()
			}
			return err
		})
	}
	runErr := g.Wait()

	status := "complete"
	if runErr != nil {
		status = "failed"
	} else if gaps := report.Gaps(); len(gaps) != 0 {
		status = "incomplete"
	}
	if led != nil {
		if err := led.FinishRun(ctx, p.runID, status); err != nil {
			cvdf.Errorf("ledger: %v\n", err)
		}
	}
	if runErr != nil {
		return report, runErr
	}
	timedLog.Infof("run %s %s: %d timesteps, %s serialized, %d gaps",
		p.runID, status, p.numTimesteps(), humanize.Bytes(uint64(written)), len(report.Gaps()))
	return report, nil
}

// createContainer writes the coordinate files and runs vdfcreate.
func (p *Pipeline) createContainer(ctx context.Context, planner domain.Planner) (string, error) {
	outDir := p.cfg.Output.Dir
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", err
	}
	xs, ys, zs := planner.Coordinates(p.cfg.Domain.SpacingM)
	coords, err := vapor.WriteCoordinates(outDir, xs, ys, zs)
	if err != nil {
		return "", err
	}
	container := p.cfg.ContainerPath()
	spec := vapor.ContainerSpec{
		Coords:       coords,
		Dims:         planner.Size,
		Variable:     p.cfg.Output.Variable,
		NumTimesteps: p.numTimesteps(),
		Path:         container,
	}
	if _, err := p.tools.CreateContainer(ctx, spec); err != nil {
		return "", fmt.Errorf("creating container %s: %w", container, err)
	}
	cvdf.Infof("created %s for %q with %d timesteps of %s\n", container, p.cfg.Output.Variable,
		p.numTimesteps(), planner.Size.Descriptor())
	return container, nil
}

// processTimestep masks, serializes and imports one timestep.  Only errors
// that must abort the run are returned; import failures are left in out.
func (p *Pipeline) processTimestep(ctx context.Context, ts int, params mask.Params, container string,
	scratch *rawvol.Scratch, archive *rawvol.Archive, out *Outcome) error {

	start := time.Now()
	defer func() { out.Duration = time.Since(start) }()

	sub, err := p.classify(ctx, ts)
	if err != nil {
		return err
	}
	fld, err := p.fields.Read(ctx, p.fieldPaths[ts], p.cfg.Output.Variable)
	if err != nil {
		return fmt.Errorf("timestep %d: %w", ts, err)
	}
	vol, window, err := mask.Transform(fld, sub.Sub, params)
	if err != nil {
		return fmt.Errorf("timestep %d: %w", ts, err)
	}
	out.Window = window

	raw := scratch.Path(ts)
	defer scratch.Release(ts)
	desc, n, err := rawvol.Write(raw, vol)
	if err != nil {
		return fmt.Errorf("timestep %d: %w", ts, err)
	}
	if desc != params.Planner.Size.Descriptor() {
		return fmt.Errorf("timestep %d: volume %s does not match container %s", ts, desc, params.Planner.Size.Descriptor())
	}
	out.Bytes = n
	if archive != nil {
		if out.Archive, err = archive.Store(p.cfg.Output.Variable, ts, vol); err != nil {
			return err
		}
	}

	res, err := p.tools.Import(ctx, p.cfg.Output.Variable, ts, container, raw)
	if res != nil {
		out.ExitCode = res.ExitCode
		out.Output = res.Output
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !errors.Is(err, cvdf.ErrExternalTool) {
			return fmt.Errorf("timestep %d: %w", ts, err)
		}
		out.Err = err
		cvdf.Warningf("timestep %d not imported into %s: %v\n", ts, container, err)
		return nil
	}
	out.Imported = true
	cvdf.Debugf("timestep %d: imported %s (%s) window %s\n", ts, desc, humanize.Bytes(uint64(n)), window)
	return nil
}
