// Package media validates uploaded images and prepares them for storage.
package media

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"mime"
	"net/http"
	"strings"

	"bloh/internal/models"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	// MinAvatarSide is the smallest accepted avatar edge in pixels.
	MinAvatarSide = 100
	// AvatarSide is the edge of the stored square avatar.
	AvatarSide = 256
	// WebPQuality is the lossy quality used for re-encoded images.
	WebPQuality = 85
)

// Upload is a file received from a multipart form.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Image is an upload that passed validation.
type Image struct {
	Data        []byte
	ContentType string
	Ext         string
	Width       int
	Height      int
}

// Validator applies the size ceiling and content checks shared by every image field.
type Validator struct {
	MaxBytes int64
}

// Validate checks size, sniffed type, decodability and declared type of u.
// Errors are VALIDATION_ERROR AppErrors keyed by field.
func (v Validator) Validate(field string, u Upload) (*Image, error) {
	if len(u.Data) == 0 {
		return nil, models.NewFieldValidationError(field, "No file uploaded")
	}
	if err := v.CheckSize(field, int64(len(u.Data))); err != nil {
		return nil, err
	}

	detected := normalizeContentType(http.DetectContentType(u.Data))
	if !isAllowedImageMIME(detected) {
		return nil, models.NewFieldValidationError(field, "Invalid image type")
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(u.Data))
	if err != nil {
		return nil, models.NewFieldValidationError(field, "Invalid image file")
	}
	sourceMime := decodedFormatToMime(format)
	if sourceMime == "" {
		return nil, models.NewFieldValidationError(field, "Unsupported image format")
	}
	if provided := normalizeContentType(u.ContentType); strings.HasPrefix(provided, "image/") && !isMatchingContentType(provided, sourceMime) {
		return nil, models.NewFieldValidationError(field, "Image content type mismatch")
	}

	return &Image{
		Data:        u.Data,
		ContentType: sourceMime,
		Ext:         extensionFor(sourceMime),
		Width:       cfg.Width,
		Height:      cfg.Height,
	}, nil
}

// CheckSize rejects uploads larger than MaxBytes. Handlers call it with the
// declared part size before reading the body.
func (v Validator) CheckSize(field string, size int64) error {
	if v.MaxBytes > 0 && size > v.MaxBytes {
		return models.NewFieldValidationError(field, fmt.Sprintf("File too large (max %dMB)", v.MaxBytes>>20))
	}
	return nil
}

// ValidateAvatar additionally requires both sides to be at least MinAvatarSide pixels.
func (v Validator) ValidateAvatar(field string, u Upload) (*Image, error) {
	img, err := v.Validate(field, u)
	if err != nil {
		return nil, err
	}
	if img.Width < MinAvatarSide || img.Height < MinAvatarSide {
		return nil, models.NewFieldValidationError(field,
			fmt.Sprintf("Image must be at least %dx%d pixels", MinAvatarSide, MinAvatarSide))
	}
	return img, nil
}

// SquareWebP center-crops img to a square, scales it up or down to side pixels and
// encodes it as WebP.
func SquareWebP(img *Image, side int) (*Image, error) {
	decoded, _, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	b := decoded.Bounds()
	edge := min(b.Dx(), b.Dy())
	x := b.Min.X + (b.Dx()-edge)/2
	y := b.Min.Y + (b.Dy()-edge)/2
	cropped := image.NewRGBA(image.Rect(0, 0, edge, edge))
	draw.Draw(cropped, cropped.Bounds(), decoded, image.Point{X: x, Y: y}, draw.Src)

	out := image.Image(cropped)
	if edge != side {
		scaled := image.NewRGBA(image.Rect(0, 0, side, side))
		xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), cropped, cropped.Bounds(), xdraw.Src, nil)
		out = scaled
	}

	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, out, &webp.Options{Quality: WebPQuality}); err != nil {
		return nil, fmt.Errorf("encode webp: %w", err)
	}
	return &Image{
		Data:        buf.Bytes(),
		ContentType: "image/webp",
		Ext:         ".webp",
		Width:       side,
		Height:      side,
	}, nil
}

func isAllowedImageMIME(contentType string) bool {
	switch contentType {
	case "image/jpeg", "image/png", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isMatchingContentType(provided, detected string) bool {
	if provided == detected {
		return true
	}
	return provided == "image/jpg" && detected == "image/jpeg"
}

func decodedFormatToMime(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	default:
		return ""
	}
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}
