package export

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/sift-go/internal/datastore"
	"github.com/tphakala/sift-go/internal/errors"
	"github.com/tphakala/sift-go/internal/testutil"
)

func TestRunExportsAndVerifies(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "source.db")
	target := filepath.Join(dir, "target.db")

	src, err := datastore.Open(source, testutil.DiscardLogger())
	require.NoError(t, err)
	camID, err := src.AddCamera(&datastore.Camera{ModelID: 0, Width: 32, Height: 32, Params: []float64{38.4, 16, 16}})
	require.NoError(t, err)
	require.NoError(t, src.WriteImageFeatures(&datastore.Image{Name: "a.png", CameraID: camID},
		&datastore.Keypoints{Rows: 1, Cols: 4, Data: make([]byte, 16)},
		&datastore.Descriptors{Rows: 1, Cols: 128, Data: make([]byte, 128)}))
	require.NoError(t, src.Close())

	t.Setenv("SIFTGO_TEST_SOURCE", source)
	var out bytes.Buffer
	err = Run(&Options{Source: "${SIFTGO_TEST_SOURCE}", Target: target, BatchSize: 10, Samples: 5}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "images")
	assert.Contains(t, out.String(), "Verification passed")

	dst, err := datastore.Open(target, testutil.DiscardLogger())
	require.NoError(t, err)
	defer dst.Close()
	_, err = dst.ImageByName("a.png")
	require.NoError(t, err)
}

func TestRunMissingSource(t *testing.T) {
	dir := t.TempDir()
	err := Run(&Options{Source: filepath.Join(dir, "missing.db"), Target: filepath.Join(dir, "target.db")}, &bytes.Buffer{})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))
	assert.NoFileExists(t, filepath.Join(dir, "missing.db"))
}

func TestRunRejectsPasswordFileForSQLite(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "source.db")
	src, err := datastore.Open(source, testutil.DiscardLogger())
	require.NoError(t, err)
	require.NoError(t, src.Close())

	err = Run(&Options{
		Source:             source,
		Target:             filepath.Join(dir, "target.db"),
		TargetPasswordFile: filepath.Join(dir, "password"),
	}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mysql://")
}

func TestCommandRequiresSourceAndTarget(t *testing.T) {
	cmd := Command()
	cmd.SetArgs([]string{})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source")
}
