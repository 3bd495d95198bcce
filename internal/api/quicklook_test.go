package api_test

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/GlasgowSolarPhysics/crispy/internal/api"
	"github.com/GlasgowSolarPhysics/crispy/internal/config"
)

// writeZarrObs writes a small rank-3 (wave, y, x) observation store.
func writeZarrObs(t *testing.T, dir string) {
	t.Helper()
	root := filepath.Join(dir, "obs.zarr")
	dataDir := filepath.Join(root, "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		t.Fatal(err)
	}

	attrs := `{"date_obs": "2014-08-21", "time_obs": "07:35:28", "element": "Halpha",
 "crval": [6563.0, -100.0, 200.0], "pixel_scale": 0.057}`
	if err := os.WriteFile(filepath.Join(root, ".zattrs"), []byte(attrs), 0o644); err != nil {
		t.Fatal(err)
	}

	meta := `{"zarr_format": 2, "shape": [3, 2, 2], "chunks": [3, 2, 2],
 "dtype": "<f8", "order": "C", "fill_value": 0, "compressor": null}`
	if err := os.WriteFile(filepath.Join(dataDir, ".zarray"), []byte(meta), 0o644); err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, 8*12)
	for i := 0; i < 12; i++ {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(float64(i)))
	}
	if err := os.WriteFile(filepath.Join(dataDir, "0.0.0"), buf, 0o644); err != nil {
		t.Fatal(err)
	}
}

func testAPI(t *testing.T) *api.API {
	t.Helper()
	dir := t.TempDir()
	writeZarrObs(t, dir)
	cfg := config.Config{
		LocationDetails: []config.Location{
			{LocationName: "TestDir", LocationType: "localFile", Path: dir},
			{LocationName: "remote", LocationType: "minio", MinioBucket: "obs"},
		},
	}
	return api.NewAPI(&cfg, zap.NewNop())
}

func request(t *testing.T, a *api.API, url string, names, values []string) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("The request could not be created because of: %v", err)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames(names...)
	c.SetParamValues(values...)
	return rec, c
}

func TestGetLocations(t *testing.T) {
	a := testAPI(t)
	rec, c := request(t, a, "/ql/locations", nil, nil)

	if assert.NoError(t, a.GetLocations(c)) {
		assert.Equal(t, http.StatusOK, rec.Code)
		var locations []config.Location
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &locations))
		assert.Len(t, locations, 2)
		assert.Equal(t, "TestDir", locations[0].LocationName)
	}
}

func TestGetObsListing(t *testing.T) {
	a := testAPI(t)
	rec, c := request(t, a, "/ql/fs/TestDir/", []string{"location", "*"}, []string{"TestDir", ""})

	if assert.NoError(t, a.GetObsListing(c)) {
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "obs.zarr")
		assert.Contains(t, rec.Body.String(), "directory")
	}

	rec, c = request(t, a, "/ql/fs/remote/", []string{"location", "*"}, []string{"remote", ""})
	if assert.NoError(t, a.GetObsListing(c)) {
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

func TestGetObsInfo(t *testing.T) {
	a := testAPI(t)
	rec, c := request(t, a, "/ql/info/TestDir/obs.zarr", []string{"location", "*"}, []string{"TestDir", "obs.zarr"})

	if assert.NoError(t, a.GetObsInfo(c)) {
		assert.Equal(t, http.StatusOK, rec.Code)
		var info api.ObsInfo
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
		assert.Equal(t, "2014-08-21", info.Date)
		assert.Equal(t, "Halpha", info.Line)
		assert.Equal(t, []int{3, 2, 2}, info.Shape)
		assert.Equal(t, 6563.0, info.CentreWavelength)
	}
}

func TestGetObsInfoBadRequests(t *testing.T) {
	a := testAPI(t)

	rec, c := request(t, a, "/ql/info/nowhere/obs.zarr", []string{"location", "*"}, []string{"nowhere", "obs.zarr"})
	if assert.NoError(t, a.GetObsInfo(c)) {
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "unknown location")
	}

	rec, c = request(t, a, "/ql/info/TestDir/obs.zarr?kind=widestband", []string{"location", "*"}, []string{"TestDir", "obs.zarr"})
	if assert.NoError(t, a.GetObsInfo(c)) {
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "kind")
	}
}

func TestGetSpectrumPNG(t *testing.T) {
	a := testAPI(t)
	rec, c := request(t, a, "/ql/spectrum/1/0/TestDir/obs.zarr",
		[]string{"y", "x", "location", "*"},
		[]string{"1", "0", "TestDir", "obs.zarr"})

	if assert.NoError(t, a.GetSpectrum(c)) {
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))
		assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
	}
}

func TestGetSpectrumBadPixel(t *testing.T) {
	a := testAPI(t)
	rec, c := request(t, a, "/ql/spectrum/-1/0/TestDir/obs.zarr",
		[]string{"y", "x", "location", "*"},
		[]string{"-1", "0", "TestDir", "obs.zarr"})

	if assert.NoError(t, a.GetSpectrum(c)) {
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "y must be")
	}
}

func TestGetMapPNG(t *testing.T) {
	a := testAPI(t)
	rec, c := request(t, a, "/ql/map/2/TestDir/obs.zarr?frame=pix",
		[]string{"wave", "location", "*"},
		[]string{"2", "TestDir", "obs.zarr"})

	if assert.NoError(t, a.GetMap(c)) {
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
	}
}

func TestGetMapBadFrame(t *testing.T) {
	a := testAPI(t)
	rec, c := request(t, a, "/ql/map/0/TestDir/obs.zarr?frame=galactic",
		[]string{"wave", "location", "*"},
		[]string{"0", "TestDir", "obs.zarr"})

	if assert.NoError(t, a.GetMap(c)) {
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

func TestGetMapCachesRenderedPlot(t *testing.T) {
	a := testAPI(t)
	a.Cfg.UseCache = true
	a.Cfg.CacheLocation = t.TempDir()
	a.Cache.Location = a.Cfg.CacheLocation
	if err := os.MkdirAll(filepath.Join(a.Cfg.CacheLocation, "plots"), 0o755); err != nil {
		t.Fatal(err)
	}

	// Pre-seed the cache under the name this URL maps to; the handler
	// must return the seeded bytes rather than re-render.
	seeded := []byte("\x89PNGnot-really")
	name := "qlmap0TestDirobszarr_framepix"
	if err := a.Cache.PutItemInCache(name, "plots/", seeded); err != nil {
		t.Fatal(err)
	}

	rec, c := request(t, a, "/ql/map/0/TestDir/obs.zarr?frame=pix",
		[]string{"wave", "location", "*"},
		[]string{"0", "TestDir", "obs.zarr"})
	if assert.NoError(t, a.GetMap(c)) {
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, seeded, rec.Body.Bytes())
	}
}
