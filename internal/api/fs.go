package api

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/labstack/echo/v4"
)

// GetLocations returns the configured data locations.
func (a *API) GetLocations(c echo.Context) error {
	return c.JSON(http.StatusOK, a.Cfg.LocationDetails)
}

// GetObsListing lists observations under a path at a local location.
// Remote locations are not listable; their contents are addressed
// directly by object path.
func (a *API) GetObsListing(c echo.Context) error {
	locationName := c.Param("location")
	subPath := c.Param("*")

	currentLocation, ok := a.Cfg.FindLocation(locationName)
	if !ok {
		return c.String(http.StatusBadRequest, fmt.Sprintf("unknown location %s", locationName))
	}
	if currentLocation.LocationType != "localFile" {
		err := fmt.Errorf("listing files only supported for localFile location types")
		return c.String(http.StatusBadRequest, err.Error())
	}

	dirPath := filepath.Join(currentLocation.Path, subPath)
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}

	type fileObj struct {
		Filename string `json:"filename"`
		Type     string `json:"type"`
	}
	filelist := make([]fileObj, len(entries))
	for i, entry := range entries {
		filelist[i].Filename = entry.Name()
		if entry.IsDir() {
			filelist[i].Type = "directory"
		} else {
			filelist[i].Type = "file"
		}
	}

	return c.JSON(http.StatusOK, filelist)
}
