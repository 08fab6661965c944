package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestGormAdapterTrace(t *testing.T) {
	t.Parallel()

	insert := func() (string, int64) { return "INSERT INTO `keypoints` (`image_id`,`rows`) VALUES (1,3)", 3 }
	selectImage := func() (string, int64) { return "SELECT * FROM `images` WHERE name = \"a.png\" LIMIT 1", 0 }

	tests := []struct {
		name      string
		level     LogLevel
		threshold time.Duration
		begin     time.Time
		query     func() (string, int64)
		err       error
		want      []string // empty means nothing logged
	}{
		{name: "normal statement only at trace", level: LogLevelDebug, begin: time.Now(), query: insert},
		{
			name:  "trace level shows table and op",
			level: LogLevelTrace, begin: time.Now(), query: selectImage,
			want: []string{"table=images", "op=select"},
		},
		{name: "record not found is not an error", level: LogLevelInfo, begin: time.Now(), query: selectImage, err: gorm.ErrRecordNotFound},
		{
			name:  "statement error logged at warn",
			level: LogLevelInfo, begin: time.Now(), query: insert, err: gorm.ErrInvalidData,
			want: []string{"level=WARN", "statement failed", "rows_affected=3", "table=keypoints", "op=insert"},
		},
		{
			name:  "slow feature write logged at info",
			level: LogLevelInfo, threshold: time.Millisecond, begin: time.Now().Add(-time.Second), query: insert,
			want: []string{"level=INFO", "slow feature write"},
		},
		{
			name:  "slow statement logged at warn",
			level: LogLevelInfo, threshold: time.Millisecond, begin: time.Now().Add(-time.Second), query: selectImage,
			want: []string{"level=WARN", "slow statement", "table=images"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			a := NewGormLoggerAdapter(NewSlogLogger(&buf, tt.level, time.UTC), tt.threshold)
			a.Trace(context.Background(), tt.begin, tt.query, tt.err)
			if len(tt.want) == 0 {
				assert.Empty(t, buf.String())
				return
			}
			for _, w := range tt.want {
				assert.Contains(t, buf.String(), w)
			}
		})
	}
}

func TestClassifyStatement(t *testing.T) {
	t.Parallel()
	tests := []struct {
		sql   string
		op    string
		table string
	}{
		{"INSERT INTO `descriptors` (`image_id`) VALUES (?)", "insert", "descriptors"},
		{"UPDATE `cameras` SET `params`=?", "update", "cameras"},
		{"DELETE FROM `keypoints` WHERE image_id = 4", "delete", "keypoints"},
		{"SELECT count(*) FROM \"images\"", "select", "images"},
		{"CREATE TABLE `cameras` (`id` integer)", "create", "cameras"},
		{"PRAGMA journal_mode=WAL", "other", ""},
	}
	for _, tt := range tests {
		op, table := classifyStatement(tt.sql)
		assert.Equal(t, tt.op, op, tt.sql)
		assert.Equal(t, tt.table, table, tt.sql)
	}
}

func TestTruncateSQL(t *testing.T) {
	t.Parallel()
	short := "SELECT 1"
	assert.Equal(t, short, truncateSQL(short))

	long := "INSERT INTO `descriptors` VALUES (" + strings.Repeat("ff", 4096) + ")"
	got := truncateSQL(long)
	assert.Less(t, len(got), len(long))
	assert.True(t, strings.HasPrefix(got, long[:maxLoggedSQL]))
	assert.Contains(t, got, "bytes)")
}
