package raster

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageImageName(t *testing.T) {
	assert.Equal(t, "scan_p001_z.png", PageImageName("scan", 1, ZoomedSuffix))
	assert.Equal(t, "scan_p042_r.png", PageImageName("scan", 42, RegularSuffix))
	assert.Equal(t, "scan_p1234_r.png", PageImageName("scan", 1234, RegularSuffix))
}

func TestStem(t *testing.T) {
	assert.Equal(t, "report_1", Stem("/data/docs/report_1.pdf"))
	assert.Equal(t, "archive.v2", Stem("archive.v2.pdf"))
	assert.Equal(t, "noext", Stem("noext"))
}

func TestRegularZoomedRoundTrip(t *testing.T) {
	z := filepath.Join("/data/pages", PageImageName("a_z", 3, ZoomedSuffix))
	r, err := RegularPath(z)
	require.NoError(t, err)
	assert.Equal(t, "/data/pages/a_z_p003_r.png", r)

	back, err := ZoomedPath(r)
	require.NoError(t, err)
	assert.Equal(t, z, back)
}

func TestRegularPathRejectsOtherNames(t *testing.T) {
	_, err := RegularPath("/data/pages/a_p001_r.png")
	assert.Error(t, err)
	_, err = ZoomedPath("/data/pages/a_p001.png")
	assert.Error(t, err)
}
