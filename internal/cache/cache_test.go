package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUrlToCacheFileName(t *testing.T) {
	cases := map[string]string{
		"/ql/map/3/mylocation/obs.zarr?frame=pix&colormap=greyscale": "qlmap3mylocationobszarr_framepixcolormapgreyscale",
		"/ql/spectrum/10/20/archive/aug21.fits":                      "qlspectrum1020archiveaug21fits",
	}
	for url, want := range cases {
		assert.Equal(t, want, UrlToCacheFileName(url))
	}
}

func TestPutAndGetItem(t *testing.T) {
	c := &Cache{Location: t.TempDir()}
	data := []byte{1, 2, 3, 4}

	assert.NoError(t, c.PutItemInCache("qltest", "plots/", data))

	got, err := c.GetDataFromCache("qltest", "plots/")
	assert.NoError(t, err)
	assert.Equal(t, data, got)

	_, err = c.GetDataFromCache("qlmissing", "plots/")
	assert.Error(t, err)
}
