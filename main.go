package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/amariichi/Image-To-DepthWebViewer/mesh"
	"github.com/amariichi/Image-To-DepthWebViewer/rgbde"
	"github.com/amariichi/Image-To-DepthWebViewer/session"
	"github.com/amariichi/Image-To-DepthWebViewer/util"
)

func main() {
	input := flag.String("input", "input/sample_RGBDE.png", "RGBDE container path or URL, or a directory with -batch")
	outputDir := flag.String("output", "./output", "output directory")
	fov := flag.Float64("fov", 0, "reconstruction vertical FOV in degrees (0 = derived default)")
	offset := flag.Float64("offset", 0.5, "camera-center offset in [0,1] feeding the derived FOV")
	magnification := flag.Float64("magnification", 1, "depth magnification")
	batch := flag.Bool("batch", false, "treat -input as a directory of RGBDE containers")
	flag.Parse()

	if err := os.MkdirAll(*outputDir, os.ModePerm); err != nil {
		log.Fatal("Failed to create output dir:", err)
	}

	opts := session.Options{FOVDegrees: *fov, CameraOffset: *offset}

	if *batch {
		err := filepath.Walk(*input, func(path string, info os.FileInfo, err error) error {
			if err != nil || info.IsDir() || !strings.HasSuffix(strings.ToLower(path), ".png") {
				return err
			}
			if err := convert(path, *outputDir, opts, *magnification); err != nil {
				log.Printf("failed to convert %s: %v", path, err)
			}
			return nil
		})
		if err != nil {
			log.Fatal("Batch walk failed:", err)
		}
		return
	}

	if err := convert(*input, *outputDir, opts, *magnification); err != nil {
		log.Fatal("Failed to convert:", err)
	}
}

func convert(input, outputDir string, opts session.Options, magnification float64) error {
	defer util.Trace("convert " + filepath.Base(input))()

	raw, err := util.ReadInput(input)
	if err != nil {
		return fmt.Errorf("load input: %w", err)
	}

	sess := session.New(opts, nil)
	if err := sess.Load(context.Background(), raw); err != nil {
		return err
	}
	if magnification != 1 {
		sess.Remap(mesh.TransformOptions{
			Magnification: magnification,
			FarClip:       1000,
			Mode:          mesh.ModeLinear,
			LogPower:      1,
		})
	}

	asset := sess.Asset()
	m := sess.Mesh()
	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))

	texturePath := filepath.Join(outputDir, stem+"_texture.png")
	if err := util.SavePNG(texturePath, asset.Color); err != nil {
		return fmt.Errorf("write texture: %w", err)
	}
	previewPath := filepath.Join(outputDir, stem+"_depth.png")
	if err := util.SavePNG(previewPath, rgbde.DepthPreview(asset.Depth, asset.Stats, 1024)); err != nil {
		return fmt.Errorf("write depth preview: %w", err)
	}

	log.Printf("%s: %dx%d, depth %.3f-%.3f m, mesh %dx%d (%d vertices, %d triangles), z [%.3f, %.3f]",
		input, asset.Width, asset.Height, asset.Stats.Min, asset.Stats.Max,
		m.Columns, m.Rows, m.VertexCount, len(m.Indices)/3, m.ZMin, m.ZMax)
	log.Println("Done! Texture:", texturePath, "Depth preview:", previewPath)
	return nil
}
