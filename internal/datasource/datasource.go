package datasource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/GlasgowSolarPhysics/crispy/internal/cache"
	"github.com/GlasgowSolarPhysics/crispy/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// Resolve maps a location name and relative observation path to a
// local filesystem path the readers can open. Remote objects are
// fetched into the object cache on first use; zarr stores are mirrored
// whole since their chunks are separate objects.
func Resolve(
	cfg *config.Config,
	c *cache.Cache,
	logger *zap.Logger,
	locationName string,
	filePath string,
) (string, error) {
	currentLocation, ok := cfg.FindLocation(locationName)
	if !ok {
		return "", fmt.Errorf("unknown location %s", locationName)
	}

	switch currentLocation.LocationType {
	case "localFile":
		fullFilepath := filepath.Join(currentLocation.Path, filePath)
		logger.Info(
			"Reading local file",
			zap.String("location_name", locationName),
			zap.String("filename", filePath),
			zap.String("path", fullFilepath),
		)
		if _, err := os.Stat(fullFilepath); err != nil {
			logger.Error("Error opening file", zap.Error(err))
			return "", err
		}
		return fullFilepath, nil
	case "minio":
		start := time.Now()
		objectPath := filepath.Join(currentLocation.Path, filePath)
		cachedPath := c.CachedFilePath(
			cache.UrlToCacheFileName(fmt.Sprintf("ql_%s_%s", currentLocation.MinioBucket, objectPath)),
			"objectcache/",
		)
		if _, err := os.Stat(cachedPath); err == nil {
			return cachedPath, nil
		}

		logger.Info(
			"Observation not in local object cache, fetching",
			zap.String("bucket", currentLocation.MinioBucket),
			zap.String("object", objectPath),
		)
		minioClient, err := minio.New(
			currentLocation.Location,
			&minio.Options{
				Creds:  credentials.NewStaticV4(currentLocation.MinioAccessKey, currentLocation.MinioSecretKey, ""),
				Secure: false,
			},
		)
		if err != nil {
			logger.Error("Error establishing connection to minio", zap.Error(err))
			return "", err
		}

		ctx := context.Background()
		if strings.HasSuffix(filePath, ".zarr") || strings.HasSuffix(filePath, ".zarr/") {
			if err := mirrorZarrStore(ctx, minioClient, currentLocation.MinioBucket, objectPath, cachedPath); err != nil {
				logger.Error("Error mirroring zarr store from minio", zap.Error(err))
				return "", err
			}
		} else {
			err = minioClient.FGetObject(ctx, currentLocation.MinioBucket, objectPath, cachedPath, minio.GetObjectOptions{})
			if err != nil {
				logger.Error("Error fetching object from minio", zap.Error(err))
				return "", err
			}
		}
		logger.Info(
			"Fetched observation from minio",
			zap.String("object", objectPath),
			zap.Duration("elapsed", time.Since(start)),
		)
		return cachedPath, nil

	default:
		err := fmt.Errorf("unsupported location type %s in %s", currentLocation.LocationType, currentLocation.LocationName)
		logger.Error("Unsupported location type", zap.Error(err))
		return "", err
	}
}

// mirrorZarrStore copies every object under the store prefix into a
// local directory so the chunk reader can address it like any other
// zarr directory.
func mirrorZarrStore(ctx context.Context, client *minio.Client, bucket string, prefix string, dest string) error {
	prefix = strings.TrimSuffix(prefix, "/") + "/"
	found := false
	for object := range client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if object.Err != nil {
			return object.Err
		}
		found = true
		rel := strings.TrimPrefix(object.Key, prefix)
		local := filepath.Join(dest, filepath.FromSlash(rel))
		if _, err := os.Stat(local); err == nil {
			continue
		}
		if err := client.FGetObject(ctx, bucket, object.Key, local, minio.GetObjectOptions{}); err != nil {
			return err
		}
	}
	if !found {
		return fmt.Errorf("no objects under %s in bucket %s", prefix, bucket)
	}
	return nil
}
