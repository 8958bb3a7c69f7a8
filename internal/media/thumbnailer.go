package media

import (
	"bytes"
	"context"
	"image"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/d60-Lab/yatube/internal/metrics"
	"github.com/d60-Lab/yatube/pkg/logger"
)

const (
	ThumbWidth  = 960
	ThumbHeight = 339
)

type thumbJob struct {
	src   image.Image
	path  string
	enqAt time.Time
}

// Thumbnailer 本地异步生成缩略图，队列满时丢弃任务
type Thumbnailer struct {
	storage Storage
	ch      chan thumbJob

	mu     sync.RWMutex
	closed bool // guarded by mu; set before ch is closed
}

func NewThumbnailer(storage Storage, queueSize int) *Thumbnailer {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Thumbnailer{storage: storage, ch: make(chan thumbJob, queueSize)}
}

// Start launches the workers. The returned stop func stops intake, lets the
// workers drain the queue and waits for them or for ctx.
func (t *Thumbnailer) Start(workers int) func(context.Context) error {
	if workers <= 0 {
		workers = 2
	}
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range t.ch {
				t.process(job)
			}
		}()
	}
	var once sync.Once
	return func(ctx context.Context) error {
		once.Do(func() {
			t.mu.Lock()
			t.closed = true
			close(t.ch)
			t.mu.Unlock()
		})
		finished := make(chan struct{})
		go func() {
			wg.Wait()
			close(finished)
		}()
		select {
		case <-finished:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Enqueue schedules a thumbnail of src at path. It never blocks; after stop
// it drops the job.
func (t *Thumbnailer) Enqueue(src image.Image, path string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		metrics.ThumbnailJobs.WithLabelValues("dropped").Inc()
		logger.Warn("thumbnailer stopped, drop job", zap.String("path", path))
		return false
	}
	select {
	case t.ch <- thumbJob{src: src, path: path, enqAt: time.Now()}:
		return true
	default:
		metrics.ThumbnailJobs.WithLabelValues("dropped").Inc()
		logger.Warn("thumbnail queue full, drop job", zap.String("path", path))
		return false
	}
}

// QueueLen 当前排队数（采样值）
func (t *Thumbnailer) QueueLen() int { return len(t.ch) }

func (t *Thumbnailer) process(job thumbJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	data, err := Thumbnail(job.src)
	if err == nil {
		err = t.storage.Save(ctx, job.path, "image/jpeg", data)
	}
	if err != nil {
		metrics.ThumbnailJobs.WithLabelValues("failed").Inc()
		logger.Warn("thumbnail failed", zap.String("path", job.path), zap.Error(err))
		return
	}
	metrics.ThumbnailJobs.WithLabelValues("done").Inc()
	logger.Debug("thumbnail stored", zap.String("path", job.path), zap.Duration("latency", time.Since(job.enqAt)))
}

// Thumbnail center-crops src to 960x339 and encodes it as JPEG.
func Thumbnail(src image.Image) ([]byte, error) {
	dst := imaging.Fill(src, ThumbWidth, ThumbHeight, imaging.Center, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, dst, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
