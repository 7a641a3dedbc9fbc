// Package session owns the pipeline state: at most one loaded RGBDE asset
// and at most one reconstructed mesh, replaced atomically on success.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/amariichi/Image-To-DepthWebViewer/camera"
	"github.com/amariichi/Image-To-DepthWebViewer/depth"
	"github.com/amariichi/Image-To-DepthWebViewer/mesh"
	"github.com/amariichi/Image-To-DepthWebViewer/rgbde"
)

// Options configure a session.
type Options struct {
	// FOVDegrees forces the reconstruction field of view. Zero means
	// "derive from CameraOffset".
	FOVDegrees float64
	// CameraOffset in [0, 1] feeds the derived default field of view.
	CameraOffset float64
	// VertexBudget / VertexTolerance override the tessellation target;
	// zero values fall back to the package defaults.
	VertexBudget    int
	VertexTolerance int
}

func (o Options) fov() float64 {
	if o.FOVDegrees != 0 {
		return mesh.ClampFOV(o.FOVDegrees)
	}
	return camera.FOVForOffset(o.CameraOffset)
}

func (o Options) budget() (int, int) {
	budget, tol := mesh.DefaultVertexBudget, mesh.DefaultVertexTolerance
	if o.VertexBudget > 0 {
		budget = o.VertexBudget
	}
	if o.VertexTolerance > 0 {
		tol = o.VertexTolerance
	}
	return budget, tol
}

// Session is the single owner of the decoded asset and reconstructed mesh.
// A failed load or reconstruction leaves the previously held state intact.
type Session struct {
	opts    Options
	decoder *rgbde.Decoder

	mu    sync.Mutex
	asset *rgbde.Asset
	mesh  *mesh.Mesh
}

// New creates a session decoding with the given inflater (nil uses the
// default zlib inflater).
func New(opts Options, inflater rgbde.Inflater) *Session {
	if inflater == nil {
		inflater = rgbde.NewZlibInflater()
	}
	return &Session{opts: opts, decoder: rgbde.NewDecoder(inflater)}
}

// Load decodes raw container bytes, denoises the depth field and rebuilds
// the mesh. The held asset and mesh are replaced together, only after every
// stage has succeeded.
func (s *Session) Load(ctx context.Context, raw []byte) error {
	pb, err := s.decoder.Decode(ctx, raw)
	if err != nil {
		return fmt.Errorf("decode container: %w", err)
	}
	asset, err := rgbde.Split(pb)
	if err != nil {
		return fmt.Errorf("split channels: %w", err)
	}
	asset.Depth = depth.Denoise(asset.Depth, asset.Color)

	m, err := s.reconstruct(asset)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.asset = asset
	s.mesh = m
	s.mu.Unlock()

	slog.Debug("asset loaded",
		"width", asset.Width, "height", asset.Height,
		"depthMin", asset.Stats.Min, "depthMax", asset.Stats.Max,
		"vertices", m.VertexCount)
	return nil
}

// Reconfigure rebuilds the mesh from the held asset with a new field of
// view. Fails without touching held state when no asset is loaded or no
// tessellation qualifies; on tessellation failure the held asset stays
// valid and displayed.
func (s *Session) Reconfigure(fovDegrees float64) error {
	s.mu.Lock()
	asset := s.asset
	if asset != nil {
		s.opts.FOVDegrees = fovDegrees
	}
	s.mu.Unlock()
	if asset == nil {
		return fmt.Errorf("no asset loaded")
	}

	m, err := s.reconstruct(asset)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.mesh = m
	s.mu.Unlock()
	return nil
}

func (s *Session) reconstruct(asset *rgbde.Asset) (*mesh.Mesh, error) {
	s.mu.Lock()
	opts := s.opts
	s.mu.Unlock()

	budget, tol := opts.budget()
	columns, rows := mesh.FindBestMeshSize(asset.Width, asset.Height, budget, tol)
	if columns == 0 || rows == 0 {
		return nil, mesh.TessellationError(
			fmt.Sprintf("no grid within %d±%d vertices for %dx%d", budget, tol, asset.Width, asset.Height))
	}
	m, err := mesh.Reconstruct(asset.Depth, asset.Stats, columns, rows, opts.fov())
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Remap rewrites the held mesh's position buffer for the given display
// parameters. A no-op when nothing is loaded.
func (s *Session) Remap(opts mesh.TransformOptions) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mesh != nil {
		mesh.Remap(s.mesh, opts)
	}
}

// Asset returns the currently held asset, nil when nothing is loaded.
func (s *Session) Asset() *rgbde.Asset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.asset
}

// Mesh returns the currently held mesh, nil when nothing is reconstructed.
func (s *Session) Mesh() *mesh.Mesh {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mesh
}
