package media

import (
	"bytes"
	"context"
	"encoding/binary"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStorage struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemStorage() *memStorage { return &memStorage{files: map[string][]byte{}} }

func (s *memStorage) Save(_ context.Context, path, _ string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = data
	return nil
}

func (s *memStorage) URL(path string) string { return "/m/" + path }

func (s *memStorage) get(path string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.files[path]
	return b, ok
}

func smallPNG(t *testing.T) []byte {
	t.Helper()
	img := imaging.New(2, 1, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

func TestUploaderStoresImageAndThumbnail(t *testing.T) {
	st := newMemStorage()
	th := NewThumbnailer(st, 4)
	stop := th.Start(1)
	u := NewUploader(st, th, 1<<20, 1<<20)

	key, err := u.Store(context.Background(), "small.PNG", smallPNG(t))
	require.NoError(t, err)
	assert.Regexp(t, `^posts/[0-9a-f-]{36}\.png$`, key)
	_, ok := st.get(key)
	assert.True(t, ok)

	require.NoError(t, stop(context.Background()))
	thumb, ok := st.get(ThumbPath(key))
	require.True(t, ok)
	img, err := imaging.Decode(bytes.NewReader(thumb))
	require.NoError(t, err)
	assert.Equal(t, ThumbWidth, img.Bounds().Dx())
	assert.Equal(t, ThumbHeight, img.Bounds().Dy())
	assert.Equal(t, "/m/"+key, u.URL(key))
	assert.Empty(t, u.URL(""))
}

func TestUploaderRejectsNonImage(t *testing.T) {
	st := newMemStorage()
	u := NewUploader(st, nil, 0, 0)

	_, err := u.Store(context.Background(), "small.gif", []byte("not an image"))
	assert.ErrorIs(t, err, ErrNotImage)
	_, err = u.Store(context.Background(), "empty.gif", nil)
	assert.ErrorIs(t, err, ErrNotImage)
	assert.Empty(t, st.files)
}

func TestUploaderRejectsOversized(t *testing.T) {
	u := NewUploader(newMemStorage(), nil, 10, 0)
	_, err := u.Store(context.Background(), "small.png", smallPNG(t))
	assert.ErrorIs(t, err, ErrNotImage)
}

func TestUploaderRejectsHugeDimensions(t *testing.T) {
	img := imaging.New(1, 1, color.White)
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.GIF))
	data := buf.Bytes()
	// logical screen 30000x30000, little endian
	binary.LittleEndian.PutUint16(data[6:8], 30000)
	binary.LittleEndian.PutUint16(data[8:10], 30000)

	st := newMemStorage()
	u := NewUploader(st, nil, 1<<20, 40_000_000)
	_, err := u.Store(context.Background(), "bomb.gif", data)
	assert.ErrorIs(t, err, ErrNotImage)
	assert.Contains(t, err.Error(), "30000x30000")
	assert.Empty(t, st.files)
}

func TestThumbnailerDropsWhenFull(t *testing.T) {
	th := NewThumbnailer(newMemStorage(), 1)
	img := imaging.New(1, 1, color.White)

	assert.True(t, th.Enqueue(img, "a_thumb.jpg"))
	assert.False(t, th.Enqueue(img, "b_thumb.jpg"))
	assert.Equal(t, 1, th.QueueLen())

	stop := th.Start(1)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, stop(ctx))
	assert.Zero(t, th.QueueLen())
}

func TestThumbnailerEnqueueAfterStop(t *testing.T) {
	th := NewThumbnailer(newMemStorage(), 4)
	stop := th.Start(1)
	require.NoError(t, stop(context.Background()))
	require.NoError(t, stop(context.Background()))

	assert.NotPanics(t, func() {
		assert.False(t, th.Enqueue(imaging.New(1, 1, color.White), "late_thumb.jpg"))
	})
	assert.Zero(t, th.QueueLen())
}

func TestLocalStorage(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStorage(dir, "/media/")

	require.NoError(t, s.Save(context.Background(), "posts/a.png", "image/png", []byte("x")))
	b, err := os.ReadFile(filepath.Join(dir, "posts", "a.png"))
	require.NoError(t, err)
	assert.Equal(t, "x", string(b))
	assert.Equal(t, "/media/posts/a.png", s.URL("posts/a.png"))
}

func TestThumbPath(t *testing.T) {
	assert.Equal(t, "posts/abc_thumb.jpg", ThumbPath("posts/abc.png"))
}
