package pipeline

import (
	"context"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/pagescan/internal/detector"
	"github.com/MeKo-Tech/pagescan/internal/ocr"
	"github.com/MeKo-Tech/pagescan/internal/rectify"
	"github.com/MeKo-Tech/pagescan/internal/testutil"
	"github.com/MeKo-Tech/pagescan/internal/utils"
)

type stubRecognizer struct{ text string }

func (s stubRecognizer) Recognize(_ context.Context, img image.Image) (ocr.Text, error) {
	return ocr.NewText(s.text, []ocr.Word{{Text: s.text, Confidence: 0.9}}, ocr.LowConfidence), nil
}

func newTestPipeline(t *testing.T, configure func(*Builder)) *Pipeline {
	t.Helper()
	b := NewBuilder().WithParallelWorkers(2)
	if configure != nil {
		configure(b)
	}
	p, err := b.Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func syntheticPage() *image.Gray {
	return testutil.WhiteRectangle(200, 200, image.Rect(40, 40, 160, 160))
}

func TestProcessImage_SyntheticPage(t *testing.T) {
	var mu sync.Mutex
	stages := map[string]int{}
	p := newTestPipeline(t, func(b *Builder) {
		b.WithStageObserver(func(stage string, _ time.Duration) {
			mu.Lock()
			stages[stage]++
			mu.Unlock()
		})
	})

	res, err := p.ProcessImage(context.Background(), syntheticPage())
	require.NoError(t, err)

	assert.True(t, res.Found)
	require.Len(t, res.Quads, 1)
	assert.InEpsilon(t, 14400, res.Quads[0].Area, 0.05)
	require.NotNil(t, res.Rectified)
	assert.InDelta(t, 120, res.Rectified.Width, 2)
	assert.InDelta(t, 120, res.Rectified.Height, 2)
	assert.Equal(t, rectify.ModeVisible, res.Rectified.Mode)
	assert.True(t, res.Rectified.Parallel)
	require.NotNil(t, res.Image)
	assert.Equal(t, res.Rectified.Width, res.Image.Bounds().Dx())
	assert.Nil(t, res.Text)
	assert.Positive(t, res.Processing.TotalNs)
	assert.Equal(t, map[string]int{StageDetect: 1, StageRectify: 1}, stages)
}

func TestProcessImage_NoPage(t *testing.T) {
	p := newTestPipeline(t, nil)
	blank := image.NewGray(image.Rect(0, 0, 100, 80))

	res, err := p.ProcessImage(context.Background(), blank)
	require.NoError(t, err)
	assert.False(t, res.Found)
	assert.Nil(t, res.Rectified)
	assert.Nil(t, res.Image)
}

func TestProcessImage_FullFrameFallback(t *testing.T) {
	p := newTestPipeline(t, func(b *Builder) { b.WithFullFrameFallback(true).WithPostprocess(false) })
	blank := image.NewGray(image.Rect(0, 0, 100, 80))

	res, err := p.ProcessImage(context.Background(), blank)
	require.NoError(t, err)
	assert.False(t, res.Found)
	require.NotNil(t, res.Rectified)
	assert.True(t, res.Rectified.FullFrame)
	assert.Equal(t, 99, res.Rectified.Width)
	assert.Equal(t, 79, res.Rectified.Height)
}

func TestProcessImageWithCorners(t *testing.T) {
	p := newTestPipeline(t, nil)
	corners := utils.FourPoints{{X: 159, Y: 159}, {X: 40, Y: 159}, {X: 40, Y: 40}, {X: 159, Y: 40}}

	res, err := p.ProcessImageWithCorners(context.Background(), syntheticPage(), corners)
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Empty(t, res.Quads)
	require.NotNil(t, res.Corners)
	assert.Equal(t, utils.Point{X: 40, Y: 40}, res.Corners[0])
	assert.Equal(t, 119, res.Rectified.Width)
}

func TestProcessImage_WithOCR(t *testing.T) {
	pool, err := ocr.NewPool(2, func() (ocr.Recognizer, error) { return stubRecognizer{text: "invoice"}, nil })
	require.NoError(t, err)
	defer pool.Close()

	p := newTestPipeline(t, func(b *Builder) { b.WithOCRPool(pool).WithAutoOrient(true) })
	res, err := p.ProcessImage(context.Background(), syntheticPage())
	require.NoError(t, err)

	require.NotNil(t, res.Text)
	assert.Equal(t, "invoice", res.Text.Content)
	require.NotNil(t, res.Orientation)
	assert.Equal(t, 0, res.Orientation.Degrees)
	assert.Zero(t, pool.InUse())
	assert.Equal(t, true, p.Info()["ocr"].(map[string]any)["enabled"])
}

func TestProcessImage_Errors(t *testing.T) {
	p := newTestPipeline(t, nil)
	_, err := p.ProcessImage(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNilImage)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.ProcessImage(ctx, syntheticPage())
	assert.ErrorIs(t, err, context.Canceled)

	var zero *Pipeline
	_, err = zero.ProcessImage(context.Background(), syntheticPage())
	assert.ErrorIs(t, err, ErrNotInitialized)

	_, err = p.ProcessImageWithCorners(context.Background(), syntheticPage(),
		utils.FourPoints{{X: 1, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 1}})
	assert.ErrorIs(t, err, rectify.ErrDegenerateOutput)
}

func TestBuilder(t *testing.T) {
	b := NewBuilder().
		WithEdgeMode(detector.EdgeThreshold).
		WithApproxEpsilon(0.03).
		WithMaxQuads(2).
		WithParallelTolerance(0.02).
		WithPostprocess(false).
		WithParallelWorkers(3)
	cfg := b.Config()
	assert.Equal(t, detector.EdgeThreshold, cfg.Detector.EdgeMode)
	assert.InDelta(t, 0.03, cfg.Detector.ApproxEpsilon, 1e-12)
	assert.Equal(t, 2, cfg.Detector.MaxQuads)
	assert.InDelta(t, 0.02, cfg.Rectify.ParallelTolerance, 1e-12)
	assert.False(t, cfg.Rectify.PostProcess)
	assert.Equal(t, 3, cfg.Parallel.MaxWorkers)

	// zero values leave defaults alone
	def := NewBuilder().WithApproxEpsilon(0).WithMaxQuads(0).WithEdgeMode("").Config()
	assert.Equal(t, DefaultConfig().Detector, def.Detector)

	bad := NewBuilder().WithApproxEpsilon(0.5)
	_, err := bad.Build()
	assert.Error(t, err)

	noPool := NewBuilder()
	cfg = noPool.Config()
	cfg.OCR.Enabled = true
	_, err = noPool.WithConfig(cfg).Build()
	assert.Error(t, err)
}
