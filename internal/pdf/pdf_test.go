package pdf

import (
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/pagescan/internal/testutil"
)

func TestParsePageRange(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []int
		wantErr bool
	}{
		{"empty", "", nil, false},
		{"blank", "  ", nil, false},
		{"single", "3", []int{3}, false},
		{"range", "1-3", []int{1, 2, 3}, false},
		{"mixed", "1, 4-5 ,7", []int{1, 4, 5, 7}, false},
		{"reversed", "5-1", nil, true},
		{"zero", "0", nil, true},
		{"zero start", "0-2", nil, true},
		{"garbage", "a", nil, true},
		{"bad end", "1-x", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePageRange(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePageFromFilename(t *testing.T) {
	tests := []struct {
		filename string
		want     int
		wantErr  bool
	}{
		{"scan_1_Im0.png", 1, false},
		{"my_scan_12_17.jpg", 12, false},
		{"page_10_image_2.jpg", 10, false},
		{"image_1.png", 0, true},
		{"scan_x_Im0.png", 0, true},
		{"scan_0_Im0.png", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			got, err := parsePageFromFilename(tt.filename)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCollectExtractedImages(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	small := image.NewGray(image.Rect(0, 0, 4, 4))
	wide := image.NewGray(image.Rect(0, 0, 8, 4))
	testutil.WriteImage(t, dir, "doc_10_Im0.png", small)
	testutil.WriteImage(t, dir, "doc_2_Im1.png", wide)
	testutil.WriteImage(t, dir, "doc_2_Im0.png", small)
	testutil.WriteImage(t, dir, "cover.png", small)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "doc_3_Im0.png"), []byte("corrupt"), 0o600))

	got, err := collectExtractedImages(dir)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, 2, got[0].Page)
	assert.Equal(t, 0, got[0].Index)
	assert.Equal(t, 4, got[0].Image.Bounds().Dx())
	assert.Equal(t, 2, got[1].Page)
	assert.Equal(t, 1, got[1].Index)
	assert.Equal(t, 8, got[1].Image.Bounds().Dx())
	assert.Equal(t, 10, got[2].Page)
	assert.Equal(t, 0, got[2].Index)
}

func TestExtractImages_Errors(t *testing.T) {
	_, err := ExtractImages("/does/not/exist.pdf", "")
	assert.Error(t, err)

	_, err = ExtractImages("/does/not/exist.pdf", "3-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid page range")
}

func TestWriteImages(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	out := filepath.Join(dir, "out.pdf")
	pages := []image.Image{
		testutil.WhiteRectangle(60, 80, image.Rect(0, 0, 60, 80)),
		testutil.WhiteRectangle(80, 60, image.Rect(0, 0, 80, 60)),
	}

	require.NoError(t, WriteImages(pages, out))
	n, err := PageCount(out)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	encrypted, err := IsEncrypted(out)
	require.NoError(t, err)
	assert.False(t, encrypted)

	path, cleanup, err := Decrypt(out, nil)
	require.NoError(t, err)
	cleanup()
	assert.Equal(t, out, path)
	assert.True(t, testutil.FileExists(out))

	assert.Error(t, WriteImages(nil, out))
	assert.Error(t, WriteImages([]image.Image{nil}, filepath.Join(dir, "nil.pdf")))
}

func TestIsPasswordError(t *testing.T) {
	assert.False(t, IsPasswordError(nil))
	assert.True(t, IsPasswordError(errors.New("pdfcpu: please provide the correct password")))
	assert.False(t, IsPasswordError(os.ErrNotExist))
}
