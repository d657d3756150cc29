package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chazu/quadsplit/pkg/clean"
	"github.com/chazu/quadsplit/pkg/config"
	"github.com/chazu/quadsplit/pkg/engine"
	"github.com/chazu/quadsplit/pkg/kernel"
	"github.com/chazu/quadsplit/pkg/kernel/manifold"
	"github.com/chazu/quadsplit/pkg/kernel/sdfx"
	"github.com/chazu/quadsplit/pkg/mesh"
	"github.com/chazu/quadsplit/pkg/meshio"
	"github.com/chazu/quadsplit/pkg/refine"
	"github.com/chazu/quadsplit/pkg/topology"
	"go.uber.org/zap"
)

// App carries the settings and collaborators the commands share.
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	kernel kernel.Kernel
}

// RefineResult describes one refine run.
type RefineResult struct {
	Input  topology.Summary `json:"input"`
	Output topology.Summary `json:"output"`
	Weld   clean.Report     `json:"weld"`
}

// ScriptResult lists the files a script run wrote and the errors it hit.
type ScriptResult struct {
	Written []string           `json:"written"`
	Errors  []engine.EvalError `json:"errors"`
}

// NewApp creates an App with the configured kernel backend.
func NewApp(cfg *config.Config, logger *zap.Logger) (*App, error) {
	k, err := newKernel(cfg.Kernel)
	if err != nil {
		return nil, err
	}
	return &App{cfg: cfg, logger: logger, kernel: k}, nil
}

func newKernel(c config.Kernel) (kernel.Kernel, error) {
	switch c.Backend {
	case config.BackendSDFX:
		return sdfx.New(sdfx.WithCells(c.Cells)), nil
	case config.BackendManifold:
		return manifold.New(c.Segments)
	}
	return nil, fmt.Errorf("unknown kernel backend %q", c.Backend)
}

// load reads a mesh and prepares it for refinement: optional welding, then
// fresh per-vertex normals.
func (a *App) load(path string) (*mesh.Mesh, clean.Report, error) {
	m, err := meshio.Load(path)
	if err != nil {
		return nil, clean.Report{}, err
	}
	a.logger.Debug("loaded mesh",
		zap.String("path", path),
		zap.Int("vertices", m.VertexCount()),
		zap.Int("faces", m.FaceCount()))

	var rep clean.Report
	if a.cfg.Clean.Weld {
		rep = clean.Weld(m, a.cfg.Clean.Tolerance)
		if rep.Changed() {
			a.logger.Info("welded mesh",
				zap.String("path", path),
				zap.Int("duplicates", rep.Duplicates),
				zap.Int("degenerate", rep.Degenerate),
				zap.Int("unreferenced", rep.Unreferenced))
		}
	}
	if !m.HasNormals() {
		m.UpdateNormals()
	}
	return m, rep, nil
}

func (a *App) save(path string, m *mesh.Mesh) error {
	if a.cfg.Output.Normals {
		m.UpdateNormals()
	}
	if a.cfg.Output.Format == "" {
		return meshio.Save(path, m)
	}
	f, err := meshio.ParseFormat(a.cfg.Output.Format)
	if err != nil {
		return err
	}
	return meshio.SaveAs(path, m, f)
}

// Refine loads in, refines it once and writes the result to out.
func (a *App) Refine(in, out string) (*RefineResult, error) {
	start := time.Now()
	src, rep, err := a.load(in)
	if err != nil {
		return nil, err
	}
	res, err := refine.Run(src, refine.WithRequireNormals(a.cfg.Refine.RequireNormals))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", in, err)
	}
	if err := a.save(out, res.Mesh); err != nil {
		return nil, err
	}
	a.logger.Info("refined mesh",
		zap.String("input", in),
		zap.String("output", out),
		zap.Int("vertices", res.Mesh.VertexCount()),
		zap.Int("quads", res.Mesh.FaceCount()),
		zap.Int("edge_points", res.EdgePoints.Len()),
		zap.Duration("elapsed", time.Since(start)))

	return &RefineResult{
		Input:  topology.Summarize(src),
		Output: topology.Summarize(res.Mesh),
		Weld:   rep,
	}, nil
}

// Clean welds in with the configured tolerance and writes it to out.
func (a *App) Clean(in, out string) (clean.Report, error) {
	m, err := meshio.Load(in)
	if err != nil {
		return clean.Report{}, err
	}
	rep := clean.Weld(m, a.cfg.Clean.Tolerance)
	if err := a.save(out, m); err != nil {
		return clean.Report{}, err
	}
	a.logger.Info("cleaned mesh",
		zap.String("input", in),
		zap.String("output", out),
		zap.Int("duplicates", rep.Duplicates),
		zap.Int("degenerate", rep.Degenerate),
		zap.Int("unreferenced", rep.Unreferenced))
	return rep, nil
}

// Stats loads in as stored, without welding, and summarizes its topology.
func (a *App) Stats(in string) (topology.Summary, error) {
	m, err := meshio.Load(in)
	if err != nil {
		return topology.Summary{}, err
	}
	return topology.Summarize(m), nil
}

// Run evaluates the script at path and writes every emitted mesh into dir
// as <name>.<ext>. Scripts load files relative to their own directory.
// Script errors are returned in the result, not as an error.
func (a *App) Run(path, dir string) (*ScriptResult, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}
	timeout, err := a.cfg.Engine.TimeoutDuration()
	if err != nil {
		return nil, err
	}
	eng := engine.NewEngine(
		engine.WithKernel(a.kernel),
		engine.WithTimeout(timeout),
		engine.WithBaseDir(filepath.Dir(path)),
	)

	res, evalErrs, err := eng.Evaluate(string(source))
	if err != nil {
		a.logger.Error("script failed", zap.String("script", path), zap.Error(err))
		return nil, err
	}
	out := &ScriptResult{Written: []string{}, Errors: evalErrs}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			a.logger.Warn("script error",
				zap.String("script", path),
				zap.Int("line", e.Line),
				zap.String("message", e.Message))
		}
		return out, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}
	format := meshio.FormatOFF
	if a.cfg.Output.Format != "" {
		if format, err = meshio.ParseFormat(a.cfg.Output.Format); err != nil {
			return nil, fmt.Errorf("run: %w", err)
		}
	}
	for _, o := range res.Outputs {
		if o.Name == "" || o.Name != filepath.Base(o.Name) || strings.HasPrefix(o.Name, ".") {
			return nil, fmt.Errorf("run: output name %q is not a plain file name", o.Name)
		}
		p := filepath.Join(dir, o.Name+"."+string(format))
		if err := a.save(p, o.Mesh); err != nil {
			return nil, fmt.Errorf("run: output %q: %w", o.Name, err)
		}
		a.logger.Info("wrote output",
			zap.String("name", o.Name),
			zap.String("path", p),
			zap.Int("vertices", o.Mesh.VertexCount()),
			zap.Int("faces", o.Mesh.FaceCount()))
		out.Written = append(out.Written, p)
	}
	return out, nil
}
