package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"

	"github.com/GlasgowSolarPhysics/crispy/crisp"
	"github.com/GlasgowSolarPhysics/crispy/cube"
	"github.com/GlasgowSolarPhysics/crispy/internal/cache"
	"github.com/GlasgowSolarPhysics/crispy/internal/datasource"
	"github.com/GlasgowSolarPhysics/crispy/quicklook"
)

const plotsSubDir = "plots/"

// ObsInfo is the JSON metadata view of an observation.
type ObsInfo struct {
	Info             string  `json:"info"`
	Date             string  `json:"date,omitempty"`
	Time             string  `json:"time,omitempty"`
	Line             string  `json:"line,omitempty"`
	CentreWavelength float64 `json:"centre_wavelength,omitempty"`
	Samples          int     `json:"samples,omitempty"`
	PointingX        float64 `json:"pointing_x,omitempty"`
	PointingY        float64 `json:"pointing_y,omitempty"`
	Shape            []int   `json:"shape,omitempty"`
	NonUniform       bool    `json:"non_uniform,omitempty"`
	Rotated          bool    `json:"rotated,omitempty"`
}

func (a *API) resolveObsPath(c echo.Context) (string, error) {
	locationName := c.Param("location")
	filePath := c.Param("*")
	return datasource.Resolve(a.Cfg, a.Cache, a.Logger, locationName, filePath)
}

// openObs opens the observation named by the URL, honouring the `kind`
// query parameter (narrowband, wideband, nonu). The info string differs
// per kind; the data wrapper is the same underneath.
func (a *API) openObs(c echo.Context) (*crisp.Crisp, string, error) {
	path, err := a.resolveObsPath(c)
	if err != nil {
		return nil, "", err
	}

	switch kind := c.QueryParam("kind"); kind {
	case "", "narrowband":
		obs, err := crisp.Open(path, crisp.Options{})
		if err != nil {
			return nil, "", err
		}
		return obs, obs.Info(), nil
	case "wideband":
		obs, err := crisp.OpenWideband(path, crisp.Options{})
		if err != nil {
			return nil, "", err
		}
		return &obs.Crisp, obs.Info(), nil
	case "nonu":
		obs, err := crisp.OpenNonU(path, crisp.Options{})
		if err != nil {
			return nil, "", err
		}
		return &obs.Crisp, obs.Info(), nil
	default:
		return nil, "", fmt.Errorf("unknown observation kind %q; expected narrowband, wideband or nonu", kind)
	}
}

// GetObsInfo handles /ql/info/:location/*
func (a *API) GetObsInfo(c echo.Context) error {
	obs, info, err := a.openObs(c)
	if err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}

	hdr := obs.Header()
	resp := ObsInfo{
		Info:       info,
		Date:       hdr.Date(),
		Time:       hdr.Time(),
		Line:       hdr.Line(),
		Shape:      obs.Shape(),
		NonUniform: obs.NonUniform(),
		Rotated:    obs.Rotated(),
	}
	if cw, ok := hdr.CentreWavelength(); ok {
		resp.CentreWavelength = cw
	}
	if n, ok := hdr.SampleCount(); ok {
		resp.Samples = n
	}
	if x, y, ok := hdr.Pointing(); ok {
		resp.PointingX = x
		resp.PointingY = y
	}

	return c.JSON(http.StatusOK, resp)
}

// GetSpectrum handles /ql/spectrum/:y/:x/:location/*
//
// For polarimetric (rank 4) observations the `stokes` query parameter
// selects the component, defaulting to I.
func (a *API) GetSpectrum(c echo.Context) error {
	y, err := strconv.Atoi(c.Param("y"))
	if err != nil || y < 0 {
		return c.String(http.StatusBadRequest, fmt.Sprintf("y must be a non-negative pixel index; given %q", c.Param("y")))
	}
	x, err := strconv.Atoi(c.Param("x"))
	if err != nil || x < 0 {
		return c.String(http.StatusBadRequest, fmt.Sprintf("x must be a non-negative pixel index; given %q", c.Param("x")))
	}

	cacheFileName := cache.UrlToCacheFileName(c.Request().URL.String())
	if a.Cfg.UseCache {
		if data, err := a.Cache.GetDataFromCache(cacheFileName, plotsSubDir); err == nil {
			return c.Blob(http.StatusOK, "image/png", data)
		}
	}

	obs, _, err := a.openObs(c)
	if err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}

	var sels []cube.Sel
	switch obs.Data().Rank() {
	case 3:
		sels = []cube.Sel{cube.All(), cube.At(y), cube.At(x)}
	case 4:
		stokes := queryInt(c, "stokes", 0)
		if stokes < 0 || stokes > 3 {
			return c.String(http.StatusBadRequest, fmt.Sprintf("stokes must be in 0 to 3; given %d", stokes))
		}
		sels = []cube.Sel{cube.At(stokes), cube.All(), cube.At(y), cube.At(x)}
	default:
		err := fmt.Errorf("spectra need a rank 3 or 4 observation; this one has rank %d", obs.Data().Rank())
		return c.String(http.StatusBadRequest, err.Error())
	}

	profile, err := obs.Section(sels...)
	if err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}
	p, err := profile.SpectrumPlot()
	if err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}

	data, err := a.renderPNG(p)
	if err != nil {
		return err
	}
	if a.Cfg.UseCache {
		go a.Cache.PutItemInCache(cacheFileName, plotsSubDir, data)
	}
	return c.Blob(http.StatusOK, "image/png", data)
}

// GetMap handles /ql/map/:wave/:location/*
//
// Query parameters: `frame` (wcs, arcsec, pix), `colormap`, and `stokes`
// for polarimetric observations.
func (a *API) GetMap(c echo.Context) error {
	wave, err := strconv.Atoi(c.Param("wave"))
	if err != nil || wave < 0 {
		return c.String(http.StatusBadRequest, fmt.Sprintf("wave must be a non-negative spectral index; given %q", c.Param("wave")))
	}

	cacheFileName := cache.UrlToCacheFileName(c.Request().URL.String())
	if a.Cfg.UseCache {
		if data, err := a.Cache.GetDataFromCache(cacheFileName, plotsSubDir); err == nil {
			return c.Blob(http.StatusOK, "image/png", data)
		}
	}

	obs, _, err := a.openObs(c)
	if err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}

	img := obs
	switch obs.Data().Rank() {
	case 2:
		// Already a single frame; the wave index picks nothing.
	case 3:
		img, err = obs.Section(cube.At(wave), cube.All(), cube.All())
	case 4:
		stokes := queryInt(c, "stokes", 0)
		if stokes < 0 || stokes > 3 {
			return c.String(http.StatusBadRequest, fmt.Sprintf("stokes must be in 0 to 3; given %d", stokes))
		}
		img, err = obs.Section(cube.At(stokes), cube.At(wave), cube.All(), cube.All())
	default:
		err = fmt.Errorf("maps need a rank 2 to 4 observation; this one has rank %d", obs.Data().Rank())
	}
	if err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}

	frame := c.QueryParam("frame")
	colormap := c.QueryParam("colormap")
	p, err := img.IntensityMapPlot(frame, colormap)
	if err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}

	data, err := a.renderPNG(p)
	if err != nil {
		return err
	}
	if a.Cfg.UseCache {
		go a.Cache.PutItemInCache(cacheFileName, plotsSubDir, data)
	}
	return c.Blob(http.StatusOK, "image/png", data)
}

func (a *API) renderPNG(p *plot.Plot) ([]byte, error) {
	w, h := a.Cfg.PlotWidthInches, a.Cfg.PlotHeightInches
	if w <= 0 {
		w = 6
	}
	if h <= 0 {
		h = 4
	}
	var buf bytes.Buffer
	if err := quicklook.WritePNG(&buf, p, vg.Length(w)*vg.Inch, vg.Length(h)*vg.Inch); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func queryInt(c echo.Context, key string, dflt int) int {
	v := c.QueryParam(key)
	if v == "" {
		return dflt
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return -1
	}
	return n
}
