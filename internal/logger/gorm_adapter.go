package logger

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"
)

// maxLoggedSQL caps the statement text in log records. Keypoint and descriptor
// inserts carry their blobs inline and run to megabytes.
const maxLoggedSQL = 512

// blobTables hold feature matrices; slow writes to them are expected for
// large images and are logged at INFO instead of WARN
var blobTables = map[string]bool{"keypoints": true, "descriptors": true}

var statementPattern = regexp.MustCompile("(?i)^\\s*(INSERT\\s+INTO|UPDATE|DELETE\\s+FROM|SELECT\\b.*?\\bFROM|CREATE\\s+TABLE(?:\\s+IF\\s+NOT\\s+EXISTS)?)\\s+[`\"]?(\\w+)")

// GormLoggerAdapter routes gorm's statement log into the datastore module
// logger. Every statement record carries the table and operation it touched;
// statements are logged at TRACE unless they fail or run slow.
type GormLoggerAdapter struct {
	logger        Logger
	slowThreshold time.Duration
}

// NewGormLoggerAdapter returns an adapter logging to logger. Statements slower
// than slowThreshold are reported, 0 disables the check.
func NewGormLoggerAdapter(logger Logger, slowThreshold time.Duration) *GormLoggerAdapter {
	if logger == nil {
		logger = NewSlogLogger(nil, LogLevelInfo, nil)
	}
	return &GormLoggerAdapter{logger: logger, slowThreshold: slowThreshold}
}

// LogMode is a no-op, levels come from the logging settings
func (a *GormLoggerAdapter) LogMode(_ gorm_logger.LogLevel) gorm_logger.Interface {
	return a
}

// Info maps gorm's chatty info output to DEBUG
func (a *GormLoggerAdapter) Info(ctx context.Context, msg string, data ...any) {
	a.logger.WithContext(ctx).Debug(fmt.Sprintf(msg, data...))
}

func (a *GormLoggerAdapter) Warn(ctx context.Context, msg string, data ...any) {
	a.logger.WithContext(ctx).Warn(fmt.Sprintf(msg, data...))
}

func (a *GormLoggerAdapter) Error(ctx context.Context, msg string, data ...any) {
	a.logger.WithContext(ctx).Error(fmt.Sprintf(msg, data...))
}

// Trace logs one executed statement. Missing records are not errors, the
// datastore maps them to its own not-found errors.
func (a *GormLoggerAdapter) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	elapsed := time.Since(begin)
	sql, rows := fc()
	op, table := classifyStatement(sql)
	fields := []Field{
		String("op", op),
		String("table", table),
		Int64("rows_affected", rows),
		Duration("elapsed", elapsed),
		String("sql", truncateSQL(sql)),
	}
	log := a.logger.WithContext(ctx)

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		log.Warn("statement failed", append(fields, Error(err))...)
	case a.slowThreshold > 0 && elapsed > a.slowThreshold:
		fields = append(fields, Duration("threshold", a.slowThreshold))
		if blobTables[table] {
			log.Info("slow feature write", fields...)
			return
		}
		log.Warn("slow statement", fields...)
	default:
		log.Trace("statement", fields...)
	}
}

// classifyStatement returns the operation and the table of a SQL statement,
// "other" and "" when it does not look like a single-table statement
func classifyStatement(sql string) (op, table string) {
	m := statementPattern.FindStringSubmatch(sql)
	if m == nil {
		return "other", ""
	}
	verb := strings.ToLower(strings.Fields(m[1])[0])
	return verb, strings.ToLower(m[2])
}

func truncateSQL(sql string) string {
	if len(sql) <= maxLoggedSQL {
		return sql
	}
	return fmt.Sprintf("%s... (%d bytes)", sql[:maxLoggedSQL], len(sql))
}
