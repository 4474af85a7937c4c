package media

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"myblog/internal/models"
	"myblog/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeFile(t *testing.T, p string) (image.Image, string) {
	t.Helper()
	raw, err := os.ReadFile(p)
	require.NoError(t, err)
	img, format, err := image.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	return img, format
}

func TestFileName(t *testing.T) {
	name := FileName("alice", "Holiday.PNG")
	assert.Regexp(t, regexp.MustCompile(`^alice_[0-9a-f]{16}\.png$`), name)
	assert.NotEqual(t, name, FileName("alice", "Holiday.PNG"))
}

func TestSaveProfilePicture_ThumbnailKeepsAspect(t *testing.T) {
	store := NewStore(t.TempDir(), "/static/profile_pics/")

	name, err := store.SaveProfilePicture("alice", "wide.png", bytes.NewReader(testutil.TinyPNG(t, 500, 250)))
	require.NoError(t, err)

	img, format := decodeFile(t, filepath.Join(store.Dir(), name))
	assert.Equal(t, "png", format)
	assert.Equal(t, 125, img.Bounds().Dx())
	assert.Equal(t, 62, img.Bounds().Dy())
	assert.Equal(t, "/static/profile_pics/"+name, store.URL(name))
}

func TestSaveProfilePicture_SmallJPEGUnchanged(t *testing.T) {
	store := NewStore(t.TempDir(), "/static/profile_pics")

	name, err := store.SaveProfilePicture("bobby", "me.jpg", bytes.NewReader(testutil.TinyJPEG(t, 40, 30)))
	require.NoError(t, err)

	img, format := decodeFile(t, filepath.Join(store.Dir(), name))
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 40, img.Bounds().Dx())
	assert.Equal(t, 30, img.Bounds().Dy())
}

func TestSaveProfilePicture_Rejects(t *testing.T) {
	store := NewStore(t.TempDir(), "/static/profile_pics")

	_, err := store.SaveProfilePicture("alice", "anim.gif", bytes.NewReader([]byte("GIF89a")))
	assert.True(t, models.IsValidation(err))

	_, err = store.SaveProfilePicture("alice", "fake.png", bytes.NewReader([]byte("not an image")))
	assert.True(t, models.IsValidation(err))

	store.maxBytes = 10
	_, err = store.SaveProfilePicture("alice", "big.png", bytes.NewReader(testutil.TinyPNG(t, 50, 50)))
	assert.True(t, models.IsValidation(err))

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestThumbnail_Tall(t *testing.T) {
	img := Thumbnail(image.NewRGBA(image.Rect(0, 0, 100, 1000)), ThumbnailSize, ThumbnailSize)
	assert.Equal(t, 12, img.Bounds().Dx())
	assert.Equal(t, 125, img.Bounds().Dy())
}

func TestPlaceholderAndRemove(t *testing.T) {
	store := NewStore(t.TempDir(), "/static/profile_pics")

	require.NoError(t, store.EnsurePlaceholder())
	_, format := decodeFile(t, filepath.Join(store.Dir(), models.DefaultImageFile))
	assert.Equal(t, "jpeg", format)
	require.NoError(t, store.EnsurePlaceholder())

	assert.NoError(t, store.Remove(models.DefaultImageFile))
	assert.FileExists(t, filepath.Join(store.Dir(), models.DefaultImageFile))

	name, err := store.SaveProfilePicture("alice", "a.png", bytes.NewReader(testutil.TinyPNG(t, 10, 10)))
	require.NoError(t, err)
	require.NoError(t, store.Remove(name))
	assert.NoFileExists(t, filepath.Join(store.Dir(), name))
	assert.NoError(t, store.Remove("missing.png"))

	assert.Equal(t, "/static/profile_pics/default.jpg", store.URL(""))
}

// withPNGSize rewrites the IHDR dimensions of a PNG and fixes its checksum.
func withPNGSize(t *testing.T, raw []byte, width, height uint32) []byte {
	t.Helper()
	out := append([]byte(nil), raw...)
	require.Equal(t, "IHDR", string(out[12:16]))
	binary.BigEndian.PutUint32(out[16:20], width)
	binary.BigEndian.PutUint32(out[20:24], height)
	binary.BigEndian.PutUint32(out[29:33], crc32.ChecksumIEEE(out[12:29]))
	return out
}

func TestSaveProfilePicture_RejectsOversizedDimensions(t *testing.T) {
	store := NewStore(t.TempDir(), "/static/profile_pics")
	small := testutil.TinyPNG(t, 8, 8)

	for _, size := range [][2]uint32{{30000, 30000}, {MaxImageSide + 1, 10}, {4097, 4097}} {
		bomb := withPNGSize(t, small, size[0], size[1])
		_, err := store.SaveProfilePicture("alice", "bomb.png", bytes.NewReader(bomb))
		require.Error(t, err, "%dx%d", size[0], size[1])
		assert.True(t, models.IsValidation(err))
		assert.Contains(t, err.Error(), "Invalid image file")
	}

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSaveProfilePicture_EncodesByExtension(t *testing.T) {
	store := NewStore(t.TempDir(), "/static/profile_pics")

	name, err := store.SaveProfilePicture("alice", "actually-png.jpg", bytes.NewReader(testutil.TinyPNG(t, 20, 20)))
	require.NoError(t, err)
	assert.Equal(t, ".jpg", filepath.Ext(name))
	_, format := decodeFile(t, filepath.Join(store.Dir(), name))
	assert.Equal(t, "jpeg", format)

	name, err = store.SaveProfilePicture("alice", "actually-jpeg.PNG", bytes.NewReader(testutil.TinyJPEG(t, 20, 20)))
	require.NoError(t, err)
	assert.Equal(t, ".png", filepath.Ext(name))
	_, format = decodeFile(t, filepath.Join(store.Dir(), name))
	assert.Equal(t, "png", format)
}
