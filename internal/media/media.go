// Package media stores uploaded profile pictures.
package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"myblog/internal/models"

	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
)

const (
	// ThumbnailSize bounds both sides of a stored profile picture.
	ThumbnailSize   = 125
	JPEGQuality     = 82
	MaxUploadSizeMB = 4
	// MaxImagePixels caps width*height of an upload before it is decoded.
	MaxImagePixels = 4096 * 4096
	// MaxImageSide caps either side of an upload before it is decoded.
	MaxImageSide = 8192
)

// AllowedExtensions lists the accepted picture extensions, without dot.
var AllowedExtensions = []string{"jpg", "png"}

// ErrInvalidImage is returned for uploads that are not a decodable jpg or png.
var ErrInvalidImage = errors.New("invalid image file")

// Store writes pictures below one directory that is served publicly under urlPrefix.
type Store struct {
	dir       string
	urlPrefix string
	maxBytes  int64
}

func NewStore(dir, urlPrefix string) *Store {
	return &Store{
		dir:       dir,
		urlPrefix: strings.TrimRight(urlPrefix, "/"),
		maxBytes:  MaxUploadSizeMB * 1024 * 1024,
	}
}

func (s *Store) Dir() string { return s.dir }

// URL returns the public path of a stored picture.
func (s *Store) URL(name string) string {
	if name == "" {
		name = models.DefaultImageFile
	}
	return s.urlPrefix + "/" + path.Base(name)
}

// FileName builds "<username>_<16 hex chars><ext>" for an uploaded file name.
func FileName(username, uploaded string) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	return username + "_" + hex + strings.ToLower(filepath.Ext(uploaded))
}

func allowed(ext string) bool {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	for _, a := range AllowedExtensions {
		if ext == a {
			return true
		}
	}
	return false
}

// SaveProfilePicture shrinks the upload to fit ThumbnailSize and stores it in
// the format its extension names. It returns the stored file name.
func (s *Store) SaveProfilePicture(username, uploaded string, r io.Reader) (string, error) {
	if !allowed(filepath.Ext(uploaded)) {
		return "", models.NewFieldError("picture",
			"File does not have an approved extension: "+strings.Join(AllowedExtensions, ", "))
	}

	content, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return "", models.NewInternalError(err)
	}
	if int64(len(content)) > s.maxBytes {
		return "", models.NewFieldError("picture", fmt.Sprintf("File too large (max %dMB)", MaxUploadSizeMB))
	}

	invalid := models.NewFieldError("picture", "Invalid image file")
	// The header is enough to refuse decompression bombs before pixels are allocated.
	cfg, format, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil || (format != "jpeg" && format != "png") {
		return "", invalid
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > MaxImageSide || cfg.Height > MaxImageSide ||
		cfg.Width*cfg.Height > MaxImagePixels {
		return "", invalid
	}

	decoded, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return "", invalid
	}

	thumb := Thumbnail(decoded, ThumbnailSize, ThumbnailSize)
	encoded, err := encode(thumb, formatForExt(filepath.Ext(uploaded)))
	if err != nil {
		return "", models.NewInternalError(err)
	}

	name := FileName(username, uploaded)
	if err := writeBytesToFile(filepath.Join(s.dir, name), encoded); err != nil {
		return "", models.NewInternalError(err)
	}
	return name, nil
}

// Remove deletes a stored picture. The shared default picture is never removed.
func (s *Store) Remove(name string) error {
	if name == "" || name == models.DefaultImageFile {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, filepath.Base(name)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// EnsurePlaceholder writes the default picture when it is missing.
func (s *Store) EnsurePlaceholder() error {
	target := filepath.Join(s.dir, models.DefaultImageFile)
	if _, err := os.Stat(target); err == nil {
		return nil
	}
	img := image.NewRGBA(image.Rect(0, 0, ThumbnailSize, ThumbnailSize))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{R: 0xc8, G: 0xd1, B: 0xdb, A: 0xff}}, image.Point{}, draw.Src)
	encoded, err := encode(img, "jpeg")
	if err != nil {
		return err
	}
	return writeBytesToFile(target, encoded)
}

// Thumbnail scales src down to fit within maxWidth x maxHeight, keeping the
// aspect ratio. Smaller images are returned unchanged.
func Thumbnail(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := float64(maxWidth) / float64(w)
	if scaleH := float64(maxHeight) / float64(h); scaleH < scale {
		scale = scaleH
	}
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

// formatForExt maps a file extension to the encoder that matches it.
func formatForExt(ext string) string {
	if strings.EqualFold(ext, ".png") {
		return "png"
	}
	return "jpeg"
}

func encode(img image.Image, format string) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	var err error
	switch format {
	case "png":
		err = png.Encode(buf, img)
	default:
		err = jpeg.Encode(buf, img, &jpeg.Options{Quality: JPEGQuality})
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeBytesToFile(target string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return err
	}
	return os.WriteFile(target, data, 0o644)
}
