package features

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/tphakala/sift-go/internal/datastore"
	"github.com/tphakala/sift-go/internal/logger"
	"github.com/tphakala/sift-go/internal/observability/metrics"
)

const progressInterval = 2 * time.Second

// detectFunc computes the features of one decoded image. An error is fatal for the run.
type detectFunc func(data *ImageData) (*Features, error)

type extracted struct {
	data     *ImageData
	features *Features
	started  time.Time
}

// pipeline reads images on one goroutine, detects features on a pool of
// workers and writes results from a single goroutine.
type pipeline struct {
	backend string
	reader  ReaderOptions
	workers int
	queue   int
	detect  detectFunc
	metrics *metrics.ExtractionMetrics
	log     logger.Logger
}

// Summary counts the images of a finished run
type Summary struct {
	Processed int
	Skipped   int
	Failed    int
	Keypoints int
}

func (p *pipeline) run() (Summary, error) {
	var summary Summary

	store, err := datastore.Open(p.reader.DatabasePath, datastore.GetLogger())
	if err != nil {
		return summary, backendError(err, p.backend, "open_database")
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			p.log.Warn("failed to close database", logger.Error(cerr))
		}
	}()

	reader, err := NewImageReader(p.reader, store)
	if err != nil {
		return summary, err
	}
	total := reader.NumImages()
	p.log.Info("extracting features",
		logger.Int("images", total),
		logger.Int("workers", p.workers),
		logger.String("database", store.Location()))

	g, ctx := errgroup.WithContext(context.Background())
	jobs := make(chan *ImageData, p.queue)
	results := make(chan extracted, p.queue)

	var mu sync.Mutex
	count := func(update func(*Summary)) {
		mu.Lock()
		update(&summary)
		mu.Unlock()
	}

	g.Go(func() error {
		defer close(jobs)
		for {
			data, status, ok, err := reader.Next()
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			switch status {
			case ReadSkipped:
				count(func(s *Summary) { s.Skipped++ })
				p.recordImage(metrics.StatusSkipped, 0, 0)
				continue
			case ReadFailed:
				count(func(s *Summary) { s.Failed++ })
				p.recordImage(metrics.StatusFailed, 0, 0)
				continue
			}
			select {
			case jobs <- data:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})

	var workers sync.WaitGroup
	for range p.workers {
		workers.Add(1)
		g.Go(func() error {
			defer workers.Done()
			for data := range jobs {
				started := time.Now()
				feats, err := p.detect(data)
				if err != nil {
					return err
				}
				scaleKeypoints(feats.Keypoints, data.ScaleX, data.ScaleY)
				data.Gray = nil
				select {
				case results <- extracted{data: data, features: feats, started: started}:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})
	}
	g.Go(func() error {
		workers.Wait()
		close(results)
		return nil
	})

	progress := rate.Sometimes{First: 1, Interval: progressInterval}
	done := 0
	g.Go(func() error {
		for r := range results {
			keypoints, descriptors := r.features.ToRecords()
			if err := store.WriteImageFeatures(&r.data.Record, keypoints, descriptors); err != nil {
				return err
			}
			n := r.features.Len()
			count(func(s *Summary) {
				s.Processed++
				s.Keypoints += n
			})
			p.recordImage(metrics.StatusProcessed, n, time.Since(r.started))
			p.log.Debug("features extracted",
				logger.String("image", r.data.Record.Name),
				logger.Int("width", r.data.Width),
				logger.Int("height", r.data.Height),
				logger.Uint64("camera_id", uint64(r.data.Record.CameraID)),
				logger.Int("features", n))

			done++
			progress.Do(func() {
				p.log.Info("extraction progress", logger.Int("written", done), logger.Int("total", total))
			})
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		if p.metrics != nil {
			p.metrics.RecordBackendError(p.backend, err)
		}
		return summary, backendError(err, p.backend, "extract")
	}

	p.log.Info("feature extraction finished",
		logger.Int("processed", summary.Processed),
		logger.Int("skipped", summary.Skipped),
		logger.Int("failed", summary.Failed),
		logger.Int("keypoints", summary.Keypoints))
	return summary, nil
}

func (p *pipeline) recordImage(status string, features int, elapsed time.Duration) {
	if p.metrics == nil {
		return
	}
	p.metrics.RecordImage(p.backend, status, features, elapsed)
}
