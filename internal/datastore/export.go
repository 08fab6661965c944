package datastore

import (
	"bytes"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tphakala/sift-go/internal/logger"
)

// DefaultExportBatchSize is the number of rows copied per insert
const DefaultExportBatchSize = 500

// ExportOptions controls a database export
type ExportOptions struct {
	BatchSize int  // rows per insert, <= 0 uses DefaultExportBatchSize
	Clean     bool // delete all target rows before copying
}

// TableStats counts the rows of one exported table
type TableStats struct {
	Name     string
	Copied   int64
	Skipped  int64 // rows whose key already existed in the target
	Duration time.Duration
}

// ExportStats summarizes an export
type ExportStats struct {
	Tables  []TableStats
	Elapsed time.Duration
}

// Export copies every camera, image, keypoint and descriptor row from src into
// dst, keeping the ids. Rows whose key already exists in dst are skipped, so an
// interrupted export can be rerun.
func Export(src, dst *Store, opts ExportOptions) (*ExportStats, error) {
	start := time.Now()
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultExportBatchSize
	}

	if opts.Clean {
		if err := dst.clean(); err != nil {
			return nil, err
		}
	}

	stats := &ExportStats{}
	copies := []func() (TableStats, error){
		func() (TableStats, error) { return copyTable[Camera](src, dst, "cameras", batchSize) },
		func() (TableStats, error) { return copyTable[Image](src, dst, "images", batchSize) },
		func() (TableStats, error) { return copyTable[Keypoints](src, dst, "keypoints", batchSize) },
		func() (TableStats, error) { return copyTable[Descriptors](src, dst, "descriptors", batchSize) },
	}
	for _, copyFn := range copies {
		ts, err := copyFn()
		if err != nil {
			return stats, err
		}
		stats.Tables = append(stats.Tables, ts)
	}

	stats.Elapsed = time.Since(start)
	dst.log.Info("database export finished",
		logger.String("source", src.location),
		logger.String("target", dst.location),
		logger.Duration("elapsed", stats.Elapsed))
	return stats, nil
}

// clean deletes all rows, dependents first
func (s *Store) clean() error {
	session := s.db.Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, model := range []any{&Descriptors{}, &Keypoints{}, &Image{}, &Camera{}} {
		if err := session.Delete(model).Error; err != nil {
			return dbError(fmt.Errorf("failed to clean %T: %w", model, err), "clean")
		}
	}
	s.log.Info("target database cleaned", logger.String("location", s.location))
	return nil
}

func copyTable[T any](src, dst *Store, table string, batchSize int) (TableStats, error) {
	start := time.Now()
	stats := TableStats{Name: table}

	var total int64
	if err := src.db.Model(new(T)).Count(&total).Error; err != nil {
		return stats, dbError(fmt.Errorf("failed to count %s: %w", table, err), "export")
	}

	var processed int64
	err := src.db.Model(new(T)).FindInBatches(new([]T), batchSize, func(tx *gorm.DB, batch int) error {
		records := tx.Statement.Dest.(*[]T)
		result := dst.db.Clauses(clause.OnConflict{DoNothing: true}).Create(records)
		if result.Error != nil {
			return result.Error
		}
		stats.Copied += result.RowsAffected
		stats.Skipped += int64(len(*records)) - result.RowsAffected
		processed += int64(len(*records))

		dst.log.Debug("export batch written",
			logger.String("table", table),
			logger.Int("batch", batch),
			logger.Int64("processed", processed),
			logger.Int64("total", total))
		return nil
	}).Error
	if err != nil {
		return stats, dbError(fmt.Errorf("failed to export %s: %w", table, err), "export")
	}

	stats.Duration = time.Since(start)
	dst.log.Info("table exported",
		logger.String("table", table),
		logger.Int64("copied", stats.Copied),
		logger.Int64("skipped", stats.Skipped))
	return stats, nil
}

// VerifyExport compares the row counts of every table and the features of the
// first samples images of src with dst.
func VerifyExport(src, dst *Store, samples int) error {
	for _, t := range []struct {
		name  string
		model any
	}{
		{"cameras", &Camera{}},
		{"images", &Image{}},
		{"keypoints", &Keypoints{}},
		{"descriptors", &Descriptors{}},
	} {
		var srcCount, dstCount int64
		if err := src.db.Model(t.model).Count(&srcCount).Error; err != nil {
			return dbError(fmt.Errorf("failed to count source %s: %w", t.name, err), "verify")
		}
		if err := dst.db.Model(t.model).Count(&dstCount).Error; err != nil {
			return dbError(fmt.Errorf("failed to count target %s: %w", t.name, err), "verify")
		}
		if srcCount != dstCount {
			return dbError(fmt.Errorf("%w: %s has %d rows in the source and %d in the target",
				ErrExportMismatch, t.name, srcCount, dstCount), "verify")
		}
	}

	var images []Image
	if err := src.db.Order("id").Limit(samples).Find(&images).Error; err != nil {
		return dbError(fmt.Errorf("failed to fetch sample images: %w", err), "verify")
	}
	for i := range images {
		if err := verifyImage(src, dst, &images[i]); err != nil {
			return err
		}
	}
	return nil
}

func verifyImage(src, dst *Store, img *Image) error {
	mismatch := func(what string) error {
		return dbError(fmt.Errorf("%w: image %d (%s) %s differ", ErrExportMismatch, img.ID, img.Name, what), "verify")
	}

	var target Image
	if err := dst.db.First(&target, img.ID).Error; err != nil {
		return dbError(fmt.Errorf("%w: image %d missing in the target: %w", ErrExportMismatch, img.ID, err), "verify")
	}
	if target.Name != img.Name || target.CameraID != img.CameraID {
		return mismatch("records")
	}

	srcKp, srcErr := src.ReadKeypoints(img.ID)
	dstKp, dstErr := dst.ReadKeypoints(img.ID)
	if (srcErr == nil) != (dstErr == nil) || (srcErr == nil && !bytes.Equal(srcKp.Data, dstKp.Data)) {
		return mismatch("keypoints")
	}
	srcDesc, srcErr := src.ReadDescriptors(img.ID)
	dstDesc, dstErr := dst.ReadDescriptors(img.ID)
	if (srcErr == nil) != (dstErr == nil) || (srcErr == nil && !bytes.Equal(srcDesc.Data, dstDesc.Data)) {
		return mismatch("descriptors")
	}
	return nil
}
