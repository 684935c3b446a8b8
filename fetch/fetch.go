// Package fetch downloads asset source directories from a remote repository into
// a local cache, where they become valid source directories for publishing.
package fetch

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	getter "github.com/hashicorp/go-getter"
	"github.com/shirou/gopsutil/v3/cpu"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/teranos/assetstage/asset"
	"github.com/teranos/assetstage/errors"
	"github.com/teranos/assetstage/internal/httpclient"
	"github.com/teranos/assetstage/logger"
)

// IDPlaceholder is replaced by the asset id in Config.SourceTemplate.
const IDPlaceholder = "{id}"

// Config describes where assets come from and where they are cached.
type Config struct {
	// SourceTemplate is a go-getter source address containing {id}, e.g.
	// "https://assets.example.org/{id}.tar.gz" or "s3::https://s3.amazonaws.com/bucket/{id}.zip".
	SourceTemplate string
	CacheDir       string

	// RequestsPerSecond paces HTTP requests. Zero means unlimited.
	RequestsPerSecond float64

	AllowPrivateNetworks bool
}

// Fetcher downloads assets with bounded parallelism.
type Fetcher struct {
	cfg     Config
	getters map[string]getter.Getter
	logger  *zap.SugaredLogger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithLogger sets the fetcher's logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// New creates a Fetcher. HTTP sources go through the download client. Local
// archives are copied and unpacked into the cache. Local directories are not
// copied: the cache entry becomes a symlink to the source directory.
func New(cfg Config, opts ...Option) *Fetcher {
	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	client := httpclient.New(httpclient.Options{
		AllowPrivateNetworks: cfg.AllowPrivateNetworks,
		Limiter:              limiter,
	})

	f := &Fetcher{
		cfg:     cfg,
		getters: defaultGetters(client),
		logger:  logger.ComponentLogger("fetch"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func defaultGetters(client *http.Client) map[string]getter.Getter {
	getters := make(map[string]getter.Getter, len(getter.Getters))
	for scheme, g := range getter.Getters {
		getters[scheme] = g
	}
	httpGetter := &getter.HttpGetter{Client: client, Netrc: true}
	getters["http"] = httpGetter
	getters["https"] = httpGetter
	getters["file"] = &getter.FileGetter{Copy: true}
	return getters
}

// Source is the go-getter source address for id.
func (f *Fetcher) Source(id asset.ID) string {
	return strings.ReplaceAll(f.cfg.SourceTemplate, IDPlaceholder, string(id))
}

// Destination is the cache entry for id. The entry may be a symlink left by an
// earlier fetch of a local directory, so the path is joined without resolving it.
func (f *Fetcher) Destination(id asset.ID) (string, error) {
	if err := id.Validate(); err != nil {
		return "", err
	}
	return filepath.Join(f.cfg.CacheDir, string(id)), nil
}

// DefaultParallelism is the number of logical CPUs.
func DefaultParallelism() int {
	n, err := cpu.Counts(true)
	if err != nil || n < 1 {
		return runtime.NumCPU()
	}
	return n
}

// Fetch makes every id available as a source directory in the cache and returns
// the directory per id. Ids already holding a record in the cache are not fetched
// again. At most parallelism fetches run at once; parallelism <= 0 uses
// DefaultParallelism. Failed ids are missing from the result and their errors are
// joined into the returned error.
func (f *Fetcher) Fetch(ctx context.Context, ids []asset.ID, parallelism int) (map[asset.ID]string, error) {
	if f.cfg.SourceTemplate == "" {
		return nil, errors.NewInvalidRequestError("fetch source template is not configured")
	}
	if !strings.Contains(f.cfg.SourceTemplate, IDPlaceholder) {
		return nil, errors.NewInvalidRequestError("fetch source template %q has no %s placeholder", f.cfg.SourceTemplate, IDPlaceholder)
	}
	if parallelism <= 0 {
		parallelism = DefaultParallelism()
	}

	start := time.Now()
	f.logger.Infow("Fetching assets", logger.FieldCount, len(ids), logger.FieldParallelism, parallelism)

	var (
		mu      sync.Mutex
		results = make(map[asset.ID]string, len(ids))
		errs    []error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for _, id := range ids {
		g.Go(func() error {
			dir, err := f.fetchOne(gctx, id)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return nil
			}
			results[id] = dir
			return nil
		})
	}
	_ = g.Wait()

	f.logger.Infow("Fetch finished",
		logger.FieldCount, len(results),
		"failed", len(errs),
		logger.FieldDurationMS, time.Since(start).Milliseconds())

	return results, errors.Join(errs...)
}

func (f *Fetcher) fetchOne(ctx context.Context, id asset.ID) (string, error) {
	dst, err := f.Destination(id)
	if err != nil {
		return "", err
	}

	if asset.Exists(dst, id) {
		f.logger.Debugw("Using cached asset", logger.FieldAssetID, string(id), logger.FieldTarget, dst)
		return dst, nil
	}

	// Drop partial leftovers of an earlier failed fetch.
	if err := os.RemoveAll(dst); err != nil {
		return "", errors.Wrapf(err, "failed to clear cache dir %s", dst)
	}

	src := f.Source(id)
	pwd, err := os.Getwd()
	if err != nil {
		return "", errors.Wrap(err, "failed to get working directory")
	}

	client := &getter.Client{
		Ctx:     ctx,
		Src:     src,
		Dst:     dst,
		Pwd:     pwd,
		Mode:    getter.ClientModeDir,
		Getters: f.getters,
	}
	f.logger.Debugw("Fetching asset", logger.FieldAssetID, string(id), logger.FieldSource, src)
	if err := client.Get(); err != nil {
		return "", errors.Wrapf(err, "failed to fetch %s from %s", id, src)
	}

	if !asset.Exists(dst, id) {
		return "", errors.NewAssetNotFoundError("fetched %s from %s but it holds no record for the asset", id, src)
	}
	return dst, nil
}
