// RGBDE web service: upload an RGBDE container and get back a mesh summary
// plus texture/depth-preview artifacts, or proxy a flat 2D image to the
// remote depth-inference service.
package main

import (
	"errors"
	"flag"
	"io"
	"log"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"github.com/segmentio/ksuid"

	"github.com/amariichi/Image-To-DepthWebViewer/inference"
	"github.com/amariichi/Image-To-DepthWebViewer/mesh"
	"github.com/amariichi/Image-To-DepthWebViewer/rgbde"
	"github.com/amariichi/Image-To-DepthWebViewer/session"
	"github.com/amariichi/Image-To-DepthWebViewer/util"
)

const artifactMaxAge = 24 * time.Hour

type server struct {
	outputDir string
	depthSvc  *inference.Client
}

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	outputDir := flag.String("output", "./output", "artifact directory")
	depthURL := flag.String("depth-service", "http://127.0.0.1:8000", "depth inference service base URL")
	flag.Parse()

	if err := os.MkdirAll(*outputDir, os.ModePerm); err != nil {
		log.Fatal("Failed to create output dir:", err)
	}

	s := &server{
		outputDir: *outputDir,
		depthSvc:  inference.NewClient(*depthURL, nil),
	}

	c := cron.New()
	if _, err := c.AddFunc("@hourly", s.purgeArtifacts); err != nil {
		log.Fatal("Failed to schedule cleanup:", err)
	}
	c.Start()
	defer c.Stop()

	r := gin.Default()
	r.GET("/api/status", s.handleStatus)
	r.POST("/api/mesh", s.handleMesh)
	r.POST("/api/process", s.handleProcess)

	log.Println("Listening on", *addr)
	if err := r.Run(*addr); err != nil {
		log.Fatal("Server stopped:", err)
	}
}

func (s *server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type meshSummary struct {
	ID            string  `json:"id"`
	Width         int     `json:"width"`
	Height        int     `json:"height"`
	DepthMin      float32 `json:"depthMin"`
	DepthMax      float32 `json:"depthMax"`
	Columns       int     `json:"columns"`
	Rows          int     `json:"rows"`
	VertexCount   int     `json:"vertexCount"`
	TriangleCount int     `json:"triangleCount"`
	ZMin          float32 `json:"zMin"`
	ZMax          float32 `json:"zMax"`
	TexturePath   string  `json:"texturePath"`
	PreviewPath   string  `json:"previewPath"`
}

// handleMesh decodes an uploaded RGBDE container through the full pipeline
// and reports the reconstruction. Format problems map to 400, missing
// capabilities and tessellation failures to 422.
func (s *server) handleMesh(c *gin.Context) {
	raw, err := readUpload(c, "image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess := session.New(session.Options{}, nil)
	if err := sess.Load(c.Request.Context(), raw); err != nil {
		c.JSON(statusForPipelineError(err), gin.H{"error": err.Error()})
		return
	}
	asset := sess.Asset()
	m := sess.Mesh()

	id := ksuid.New().String()
	texturePath := filepath.Join(s.outputDir, id+"_texture.png")
	previewPath := filepath.Join(s.outputDir, id+"_depth.png")
	if err := writeArtifacts(asset, texturePath, previewPath); err != nil {
		slog.Error("write artifacts", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to write artifacts"})
		return
	}

	c.JSON(http.StatusOK, meshSummary{
		ID:            id,
		Width:         asset.Width,
		Height:        asset.Height,
		DepthMin:      asset.Stats.Min,
		DepthMax:      asset.Stats.Max,
		Columns:       m.Columns,
		Rows:          m.Rows,
		VertexCount:   m.VertexCount,
		TriangleCount: len(m.Indices) / 3,
		ZMin:          m.ZMin,
		ZMax:          m.ZMax,
		TexturePath:   texturePath,
		PreviewPath:   previewPath,
	})
}

// handleProcess forwards a flat 2D image to the depth service and streams
// the generated RGBDE container back. One attempt, no retry.
func (s *server) handleProcess(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no image payload received"})
		return
	}
	raw, err := readFormFile(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	out, err := s.depthSvc.Process(c.Request.Context(), file.Filename, raw)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.Header("X-RGBDE-Filename", rgbdeFilename(file.Filename))
	c.Data(http.StatusOK, "image/png", out)
}

// rgbdeFilename derives the download name from the uploaded filename the
// same way the depth service names its results: "<stem>_RGBDE.png", reduced
// to an ASCII-safe form for the header.
func rgbdeFilename(upload string) string {
	base := filepath.Base(upload)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	var b strings.Builder
	for _, r := range stem {
		switch {
		case r > unicode.MaxASCII, r == '"', r == '\'':
		default:
			b.WriteRune(r)
		}
	}
	cleaned := strings.TrimLeft(strings.TrimSpace(b.String()), ".")
	if cleaned == "" {
		cleaned = "rgbde_result"
	}
	return cleaned + "_RGBDE.png"
}

func (s *server) purgeArtifacts() {
	cutoff := time.Now().Add(-artifactMaxAge)
	entries, err := os.ReadDir(s.outputDir)
	if err != nil {
		slog.Error("read output dir", "error", err)
		return
	}
	removed := 0
	for _, e := range entries {
		info, err := e.Info()
		if err != nil || info.IsDir() {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(s.outputDir, e.Name())); err == nil {
				removed++
			}
		}
	}
	if removed > 0 {
		slog.Info("purged artifacts", "count", removed)
	}
}

func readUpload(c *gin.Context, field string) ([]byte, error) {
	file, err := c.FormFile(field)
	if err != nil {
		return nil, errors.New("no image payload received")
	}
	return readFormFile(file)
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()
	return io.ReadAll(f)
}

func writeArtifacts(asset *rgbde.Asset, texturePath, previewPath string) error {
	if err := util.SavePNG(texturePath, asset.Color); err != nil {
		return err
	}
	return util.SavePNG(previewPath, rgbde.DepthPreview(asset.Depth, asset.Stats, 1024))
}

func statusForPipelineError(err error) int {
	var formatErr rgbde.FormatError
	if errors.As(err, &formatErr) {
		return http.StatusBadRequest
	}
	var encErr rgbde.UnsupportedEncodingError
	if errors.As(err, &encErr) {
		return http.StatusUnprocessableEntity
	}
	var tessErr mesh.TessellationError
	if errors.As(err, &tessErr) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
