package media

import (
	"bytes"
	"image"
	"image/gif"
	"image/jpeg"
	"testing"

	"bloh/internal/models"
	"bloh/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tinyJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	buf := bytes.NewBuffer(nil)
	require.NoError(t, jpeg.Encode(buf, image.NewRGBA(image.Rect(0, 0, w, h)), nil))
	return buf.Bytes()
}

func tinyGIF(t *testing.T) []byte {
	t.Helper()
	buf := bytes.NewBuffer(nil)
	require.NoError(t, gif.Encode(buf, image.NewRGBA(image.Rect(0, 0, 120, 120)), nil))
	return buf.Bytes()
}

func assertFieldError(t *testing.T, err error, field, msg string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeValidation, appErr.Code)
	assert.Equal(t, msg, appErr.Fields[field])
}

func TestValidator_Validate(t *testing.T) {
	v := Validator{MaxBytes: 1 << 20}

	img, err := v.Validate("cover_image", Upload{Filename: "a.png", ContentType: "image/png", Data: testutil.TinyPNG(t, 20, 10)})
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.ContentType)
	assert.Equal(t, ".png", img.Ext)
	assert.Equal(t, 20, img.Width)
	assert.Equal(t, 10, img.Height)

	img, err = v.Validate("cover_image", Upload{ContentType: "image/jpg", Data: tinyJPEG(t, 8, 8)})
	require.NoError(t, err)
	assert.Equal(t, ".jpg", img.Ext)
}

func TestValidator_Rejections(t *testing.T) {
	png := testutil.TinyPNG(t, 10, 10)

	tests := []struct {
		name   string
		v      Validator
		upload Upload
		msg    string
	}{
		{"empty", Validator{}, Upload{}, "No file uploaded"},
		{"too large", Validator{MaxBytes: 10}, Upload{Data: png}, "File too large (max 0MB)"},
		{"not an image", Validator{}, Upload{Data: []byte("hello, plain text")}, "Invalid image type"},
		{"truncated image", Validator{}, Upload{Data: png[:20]}, "Invalid image file"},
		{"gif", Validator{}, Upload{ContentType: "image/gif", Data: tinyGIF(t)}, "Invalid image type"},
		{"declared type mismatch", Validator{}, Upload{ContentType: "image/jpeg", Data: png}, "Image content type mismatch"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.v.Validate("step_images_0", tt.upload)
			assertFieldError(t, err, "step_images_0", tt.msg)
		})
	}
}

func TestValidator_ValidateAvatar(t *testing.T) {
	v := Validator{MaxBytes: 5 << 20}

	_, err := v.ValidateAvatar("avatar", Upload{Data: testutil.TinyPNG(t, 99, 200)})
	assertFieldError(t, err, "avatar", "Image must be at least 100x100 pixels")

	img, err := v.ValidateAvatar("avatar", Upload{Data: testutil.TinyPNG(t, 100, 100)})
	require.NoError(t, err)
	assert.Equal(t, 100, img.Width)
}

func TestSquareWebP(t *testing.T) {
	v := Validator{}
	src, err := v.Validate("avatar", Upload{Data: testutil.TinyPNG(t, 600, 300)})
	require.NoError(t, err)

	out, err := SquareWebP(src, AvatarSide)
	require.NoError(t, err)
	assert.Equal(t, "image/webp", out.ContentType)
	assert.Equal(t, AvatarSide, out.Width)

	decoded, err := v.Validate("avatar", Upload{Data: out.Data})
	require.NoError(t, err)
	assert.Equal(t, AvatarSide, decoded.Width)
	assert.Equal(t, AvatarSide, decoded.Height)

	small, err := v.Validate("avatar", Upload{Data: testutil.TinyPNG(t, 120, 140)})
	require.NoError(t, err)
	out, err = SquareWebP(small, AvatarSide)
	require.NoError(t, err)
	assert.Equal(t, AvatarSide, out.Width, "small avatars are scaled up")

	decoded, err = v.Validate("avatar", Upload{Data: out.Data})
	require.NoError(t, err)
	assert.Equal(t, AvatarSide, decoded.Width)
	assert.Equal(t, AvatarSide, decoded.Height)
}

func TestValidator_CheckSize(t *testing.T) {
	v := Validator{MaxBytes: 1 << 20}
	assert.NoError(t, v.CheckSize("cover_image", 1<<20))
	assertFieldError(t, v.CheckSize("cover_image", 1<<20+1), "cover_image", "File too large (max 1MB)")
	assert.NoError(t, Validator{}.CheckSize("cover_image", 1<<40), "zero MaxBytes disables the ceiling")
}
