package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"net/http"
	"path"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// ErrNotImage is returned when an upload cannot be decoded as an image.
var ErrNotImage = errors.New("upload is not a valid image")

var allowedExt = map[string]string{
	".jpg":  ".jpg",
	".jpeg": ".jpg",
	".png":  ".png",
	".gif":  ".gif",
	".bmp":  ".bmp",
	".tif":  ".tif",
	".tiff": ".tif",
}

// Uploader validates post images and writes them to Storage.
type Uploader struct {
	storage     Storage
	thumbnailer *Thumbnailer
	maxBytes    int64
	maxPixels   int64
}

// NewUploader; thumbnailer may be nil, in which case no thumbnails are made.
// Zero limits disable the corresponding check.
func NewUploader(storage Storage, thumbnailer *Thumbnailer, maxBytes, maxPixels int64) *Uploader {
	return &Uploader{storage: storage, thumbnailer: thumbnailer, maxBytes: maxBytes, maxPixels: maxPixels}
}

// Store saves data as posts/<uuid><ext> and returns that path.
func (u *Uploader) Store(ctx context.Context, filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrNotImage
	}
	if u.maxBytes > 0 && int64(len(data)) > u.maxBytes {
		return "", fmt.Errorf("%w: larger than %d bytes", ErrNotImage, u.maxBytes)
	}
	// 只读头部，先校验尺寸再完整解码
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	if u.maxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > u.maxPixels {
		return "", fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrNotImage, cfg.Width, cfg.Height, u.maxPixels)
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotImage, err)
	}

	ext, ok := allowedExt[strings.ToLower(path.Ext(filename))]
	if !ok {
		ext = ".jpg"
	}
	id := uuid.NewString()
	key := "posts/" + id + ext
	if err := u.storage.Save(ctx, key, http.DetectContentType(data), data); err != nil {
		return "", err
	}
	if u.thumbnailer != nil {
		u.thumbnailer.Enqueue(img, ThumbPath(key))
	}
	return key, nil
}

// URL resolves a stored path for templates and API responses.
func (u *Uploader) URL(p string) string {
	if p == "" {
		return ""
	}
	return u.storage.URL(p)
}

// ThumbPath maps posts/<id><ext> to posts/<id>_thumb.jpg.
func ThumbPath(p string) string {
	return strings.TrimSuffix(p, path.Ext(p)) + "_thumb.jpg"
}
