package pricing

import (
	"bufio"
	"bytes"
	"crypto/sha1"
	"fmt"
	"net/http"
	"net/http/httputil"
	"os"
	"path/filepath"

	"github.com/etnz/orderledger/date"
	"go.uber.org/zap"
)

// diskCache is a RoundTripper keeping successful responses on disk. Keys
// include the day, so entries expire every day.
type diskCache struct {
	base   http.RoundTripper
	dir    string
	logger *zap.Logger
	today  func() date.Date
}

// newDiskCache caches the responses of base in dir, os.TempDir() when empty.
func newDiskCache(base http.RoundTripper, dir string, logger *zap.Logger) *diskCache {
	if dir == "" {
		dir = os.TempDir()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &diskCache{base: base, dir: dir, logger: logger, today: date.Today}
}

func (c *diskCache) key(req *http.Request) string {
	key := fmt.Sprintf("%s %s %s", c.today(), req.Method, req.URL)
	return fmt.Sprintf("%x", sha1.Sum([]byte(key)))
}

func (c *diskCache) RoundTrip(req *http.Request) (*http.Response, error) {
	key := c.key(req)
	if resp, err := c.get(key, req); err == nil {
		c.logger.Debug("cache hit", zap.Stringer("url", req.URL))
		return resp, nil
	}

	resp, err := c.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("fetched", zap.Stringer("url", req.URL), zap.String("status", resp.Status))
	if resp.StatusCode >= 300 {
		return resp, nil
	}
	if err := c.put(key, resp); err != nil {
		c.logger.Warn("cannot write cache (ignored)", zap.Error(err))
	}
	return resp, nil
}

func (c *diskCache) get(key string, req *http.Request) (*http.Response, error) {
	content, err := os.ReadFile(filepath.Join(c.dir, key))
	if err != nil {
		return nil, err
	}
	return http.ReadResponse(bufio.NewReader(bytes.NewReader(content)), req)
}

func (c *diskCache) put(key string, resp *http.Response) error {
	content, err := httputil.DumpResponse(resp, true)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.dir, key), content, 0o644)
}
