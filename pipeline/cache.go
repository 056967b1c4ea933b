package pipeline

import (
	"bytes"
	"encoding/binary"
	"io/fs"
	"log/slog"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/vkngwrapper/core/v3/core1_0"
)

var ErrCacheMismatch = errors.New("pipeline cache data does not match this device")

const (
	cacheHeaderVersionOne = 1
	// length, version, vendor ID and device ID, followed by the cache UUID
	cacheHeaderSize = 4*4 + 16
)

// CacheIdentity is what a cache blob must have been produced by to be reusable.
type CacheIdentity struct {
	VendorID uint32
	DeviceID uint32
	UUID     uuid.UUID
}

func IdentityOf(props *core1_0.PhysicalDeviceProperties) CacheIdentity {
	return CacheIdentity{
		VendorID: uint32(props.VendorID),
		DeviceID: uint32(props.DeviceID),
		UUID:     props.PipelineCacheUUID,
	}
}

type cacheHeader struct {
	Length   uint32
	Version  uint32
	VendorID uint32
	DeviceID uint32
	UUID     uuid.UUID
}

// ValidateCacheHeader checks the little-endian header at the start of a pipeline cache
// blob against id.
func ValidateCacheHeader(data []byte, id CacheIdentity) error {
	if len(data) < cacheHeaderSize {
		return errors.Wrapf(ErrCacheMismatch, "%d bytes is shorter than the header", len(data))
	}

	var header cacheHeader
	err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &header)
	if err != nil {
		return errors.Wrap(ErrCacheMismatch, err.Error())
	}

	switch {
	case header.Length < uint32(cacheHeaderSize) || int(header.Length) > len(data):
		return errors.Wrapf(ErrCacheMismatch, "bad header length 0x%x", header.Length)
	case header.Version != cacheHeaderVersionOne:
		return errors.Wrapf(ErrCacheMismatch, "unsupported header version 0x%x", header.Version)
	case header.VendorID != id.VendorID:
		return errors.Wrapf(ErrCacheMismatch, "vendor ID 0x%x, driver expects 0x%x", header.VendorID, id.VendorID)
	case header.DeviceID != id.DeviceID:
		return errors.Wrapf(ErrCacheMismatch, "device ID 0x%x, driver expects 0x%x", header.DeviceID, id.DeviceID)
	case header.UUID != id.UUID:
		return errors.Wrapf(ErrCacheMismatch, "cache UUID %s, driver expects %s", header.UUID, id.UUID)
	}

	return nil
}

// readCacheFile returns the reusable contents of path, or nil. Data from another driver
// or device is thrown away along with the file, so the next save starts clean.
func readCacheFile(path string, id CacheIdentity, logger *slog.Logger) []byte {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Debug("no pipeline cache file yet", "path", path)
		return nil
	} else if err != nil {
		logger.Warn("unreadable pipeline cache file", "path", path, "error", err)
		return nil
	}

	err = ValidateCacheHeader(data, id)
	if err != nil {
		logger.Info("discarding pipeline cache", "path", path, "reason", err.Error())
		// not important if this fails
		_ = os.Remove(path)
		return nil
	}

	logger.Debug("loaded pipeline cache", "path", path, "bytes", len(data))
	return data
}

// Cache is a pipeline cache optionally backed by a file.
type Cache struct {
	driver core1_0.CoreDeviceDriver
	handle core1_0.PipelineCache
	path   string
	logger *slog.Logger
}

// OpenCache creates a pipeline cache seeded from path. An empty path keeps the cache in
// memory only.
func OpenCache(driver core1_0.CoreDeviceDriver, path string, id CacheIdentity, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var initialData []byte
	if path != "" {
		initialData = readCacheFile(path, id, logger)
	}

	handle, _, err := driver.CreatePipelineCache(nil, core1_0.PipelineCacheCreateInfo{
		InitialData: initialData,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create pipeline cache")
	}

	return &Cache{
		driver: driver,
		handle: handle,
		path:   path,
		logger: logger,
	}, nil
}

// Handle is nil-safe so a missing cache can be passed straight to pipeline creation.
func (c *Cache) Handle() *core1_0.PipelineCache {
	if c == nil || !c.handle.Initialized() {
		return nil
	}
	return &c.handle
}

// Save writes the cache contents back to its file.
func (c *Cache) Save() error {
	if c == nil || c.path == "" || !c.handle.Initialized() {
		return nil
	}

	data, _, err := c.driver.GetPipelineCacheData(c.handle)
	if err != nil {
		return errors.Wrap(err, "read pipeline cache data")
	}

	err = os.WriteFile(c.path, data, 0666)
	if err != nil {
		return errors.Wrapf(err, "write pipeline cache %s", c.path)
	}

	c.logger.Debug("pipeline cache written", "path", c.path, "bytes", len(data))
	return nil
}

func (c *Cache) Destroy() {
	if c != nil && c.handle.Initialized() {
		c.driver.DestroyPipelineCache(c.handle, nil)
		c.handle = core1_0.PipelineCache{}
	}
}
