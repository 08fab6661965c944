// Package imagelist reads image list files that restrict an extraction run to
// an explicit, ordered set of images.
//
// The format is one path per line, relative to the image root. Surrounding
// whitespace is trimmed, and lines that are empty or start with '#' are ignored:
//
//	# first flight
//	DJI_0001.JPG
//	DJI_0002.JPG
//
//	second/DJI_0101.JPG
package imagelist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/tphakala/sift-go/internal/errors"
	"github.com/tphakala/sift-go/internal/logger"
)

// commentPrefix marks a line as a comment
const commentPrefix = "#"

// maxLineLength bounds a single list entry
const maxLineLength = 64 * 1024

// Read opens listPath and resolves every entry against imageRoot, preserving file order.
// A list file that cannot be opened is a precondition failure: the returned error has
// category errors.CategoryPrecondition and the run must not continue.
func Read(listPath, imageRoot string) ([]string, error) {
	f, err := os.Open(listPath)
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to open image list: %w", err)).
			Component("imagelist").
			Category(errors.CategoryPrecondition).
			Context("list_path", listPath).
			Build()
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			GetLogger().Warn("failed to close image list", logger.String("path", listPath), logger.Error(cerr))
		}
	}()

	paths, err := Parse(f, imageRoot)
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to read image list: %w", err)).
			Component("imagelist").
			Category(errors.CategoryFileIO).
			FileContext(listPath).
			Build()
	}

	GetLogger().Debug("image list resolved",
		logger.String("path", listPath),
		logger.Int("entries", len(paths)))
	return paths, nil
}

// utf8BOM is stripped without decoding, entries keep their raw bytes
const utf8BOM = "\xef\xbb\xbf"

// Parse resolves the entries of a list read from r. A UTF-8 byte order mark is
// removed and a UTF-16 one selects UTF-16 decoding. Without a UTF-16 mark the
// bytes of an entry are passed through unchanged, valid UTF-8 or not.
func Parse(r io.Reader, imageRoot string) ([]string, error) {
	br := bufio.NewReader(r)
	if head, _ := br.Peek(len(utf8BOM)); string(head) == utf8BOM {
		if _, err := br.Discard(len(utf8BOM)); err != nil {
			return nil, err
		}
	}
	decoder := unicode.BOMOverride(transform.Nop)
	scanner := bufio.NewScanner(transform.NewReader(br, decoder))
	scanner.Buffer(make([]byte, 0, 4096), maxLineLength)

	paths := make([]string, 0)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, commentPrefix) {
			continue
		}
		paths = append(paths, filepath.Join(imageRoot, line))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return paths, nil
}

// GetLogger returns the imagelist package logger
func GetLogger() logger.Logger {
	return logger.Global().Module("imagelist")
}
