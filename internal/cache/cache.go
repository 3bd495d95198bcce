package cache

import (
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Cache struct {
	Location string
}

// UrlToCacheFileName flattens a request URL and query string
// into a single cache file name.
func UrlToCacheFileName(url string) string {
	response := strings.Replace(url, "?", "_", 1)
	replacer := strings.NewReplacer("&", "", "=", "", ".", "", "/", "")
	cacheFileName := replacer.Replace(response)
	return cacheFileName
}

// GetDataFromCache retrieves data from a provided `cacheFileName`
// within a `subDir` directory
func (c *Cache) GetDataFromCache(cacheFileName string, subDir string) ([]byte, error) {
	fullPath := filepath.Join(c.Location, subDir, cacheFileName)
	outData, err := ioutil.ReadFile(fullPath)
	return outData, err
}

// CachedFilePath returns the path a cached item would live at,
// whether or not it exists yet.
func (c *Cache) CachedFilePath(cacheFileName string, subDir string) string {
	return filepath.Join(c.Location, subDir, cacheFileName)
}

// PutItemInCache places `data` into file denoted by `cacheFileName`
// within `subDir`
func (c *Cache) PutItemInCache(cacheFileName string, subDir string, data []byte) error {
	fullPath := filepath.Join(c.Location, subDir, cacheFileName)
	fullPathDirectory := filepath.Dir(fullPath)
	if _, err := os.Stat(fullPathDirectory); os.IsNotExist(err) {
		if mkdirErr := os.MkdirAll(fullPathDirectory, 0755); mkdirErr != nil {
			return mkdirErr
		}
	}
	file, err := os.Create(fullPath)
	if err != nil {
		return err
	}
	defer file.Close()
	num, err := file.Write(data)
	if err != nil || num != len(data) {
		return err
	}

	return nil
}

// CheckCache runs a check every `checkInterval` seconds
// and purges the oldest entry when the current cache size
// exceeds `maxBytes`
func CheckCache(cachePath string, checkInterval int, maxBytes int64) {
	nextRun := time.Now()
	for {
		if nextRun.Before(time.Now()) {

			files, err := ioutil.ReadDir(cachePath)
			if err != nil {
				log.Println("CheckCache Error: ", err)
				time.Sleep(5 * time.Second)
				continue
			}

			var currentBytes int64 = 0
			var oldestFile os.FileInfo
			if len(files) > 0 {
				oldestFile = files[0]
			}
			for _, file := range files {
				if !(file.IsDir()) {
					currentBytes += file.Size()
					if file.ModTime().Before(oldestFile.ModTime()) {
						oldestFile = file
					}
				}
			}
			if currentBytes > maxBytes {
				path := filepath.Join(cachePath, oldestFile.Name())

				// Only evict files this service wrote; every quicklook
				// URL starts with /ql so its cache name starts with ql.
				if strings.HasPrefix(oldestFile.Name(), "ql") {
					log.Println("Cache over Maximum. Removing Old File", oldestFile.Name())
					err = os.Remove(path)
					if err != nil {
						log.Println("Error remove cache file", err)
					}
				} else {
					log.Println("Skipping eviction of unrecognised file in cache dir. Don't put other files in the cache dir", oldestFile.Name())
				}

			} else {
				nextRun = nextRun.Add(time.Second * time.Duration(checkInterval))
			}
		} else {
			time.Sleep(5 * time.Second)
		}
	}
}
