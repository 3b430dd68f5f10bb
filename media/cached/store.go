// Package cached provides a local-disk caching decorator for media stores.
// Voice payloads are immutable once uploaded, which makes them ideal cache
// material: entries only ever expire, never invalidate.
package cached

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/voicelink/voicelink/media"
)

// Store wraps a media.FileStore with local file caching of Load results.
type Store struct {
	backend  media.FileStore
	cacheDir string
	maxSize  int64
	ttl      time.Duration
	logger   *slog.Logger

	stop     chan struct{}
	stopOnce sync.Once

	mu        sync.RWMutex
	cacheSize int64
}

// Ensure Store implements FileStore.
var _ media.FileStore = (*Store)(nil)

// New creates a caching store wrapping the given backend.
func New(backend media.FileStore, opts ...Option) (*Store, error) {
	o := newOptions(opts...)

	cacheDir := filepath.Join(o.cacheDir, "voicelink-media")
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	s := &Store{
		backend:  backend,
		cacheDir: cacheDir,
		maxSize:  o.maxSize,
		ttl:      o.ttl,
		logger:   o.logger,
		stop:     make(chan struct{}),
	}
	s.recalculateSize()

	if o.ttl > 0 {
		go s.cleanupLoop()
	}
	return s, nil
}

// Upload passes through to the backend; caching happens on Load.
func (s *Store) Upload(ctx context.Context, filename, contentType string, content io.Reader) (string, error) {
	return s.backend.Upload(ctx, filename, contentType, content)
}

// Load returns the payload, serving from the local cache when possible.
func (s *Store) Load(ctx context.Context, uri string) (io.ReadCloser, error) {
	cachePath := filepath.Join(s.cacheDir, cacheKey(uri))

	if info, err := os.Stat(cachePath); err == nil {
		if time.Since(info.ModTime()) < s.ttl {
			if f, err := os.Open(cachePath); err == nil {
				s.logger.Debug("media cache hit", "uri", uri)
				now := time.Now()
				_ = os.Chtimes(cachePath, now, now)
				return f, nil
			}
		} else {
			os.Remove(cachePath)
			s.addSize(-info.Size())
		}
	}

	s.logger.Debug("media cache miss", "uri", uri)
	reader, err := s.backend.Load(ctx, uri)
	if err != nil {
		return nil, err
	}
	return s.teeToCache(reader, cachePath), nil
}

// Delete removes the payload from the cache and the backend.
func (s *Store) Delete(ctx context.Context, uri string) error {
	cachePath := filepath.Join(s.cacheDir, cacheKey(uri))
	if info, err := os.Stat(cachePath); err == nil {
		os.Remove(cachePath)
		s.addSize(-info.Size())
	}
	return s.backend.Delete(ctx, uri)
}

// Close stops the background eviction loop. Cached files stay on disk so a
// later Store over the same directory picks them up again. Safe to call more
// than once.
func (s *Store) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}

// ClearCache removes all cached files.
func (s *Store) ClearCache() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.cacheDir)
	if err != nil {
		return fmt.Errorf("read cache dir: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			os.Remove(filepath.Join(s.cacheDir, entry.Name()))
		}
	}
	s.cacheSize = 0
	return nil
}

func cacheKey(uri string) string {
	h := sha256.Sum256([]byte(uri))
	return hex.EncodeToString(h[:])
}

// teeToCache writes the stream to a temp file while the caller reads it, and
// promotes the temp file into the cache on a clean close. Cache failures are
// logged and otherwise invisible to the caller.
func (s *Store) teeToCache(source io.ReadCloser, cachePath string) io.ReadCloser {
	tmp, err := os.CreateTemp(s.cacheDir, "tmp-*")
	if err != nil {
		s.logger.Warn("create cache temp file", "error", err)
		return source
	}
	return &teeReader{source: source, tmp: tmp, cachePath: cachePath, store: s}
}

type teeReader struct {
	source    io.ReadCloser
	tmp       *os.File
	cachePath string
	store     *Store
	size      int64
	closed    bool
}

func (r *teeReader) Read(p []byte) (n int, err error) {
	n, err = r.source.Read(p)
	if n > 0 {
		if _, writeErr := r.tmp.Write(p[:n]); writeErr != nil {
			r.store.logger.Warn("write cache temp file", "error", writeErr)
		}
		r.size += int64(n)
	}
	return n, err
}

func (r *teeReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	sourceErr := r.source.Close()

	if err := r.tmp.Close(); err != nil {
		os.Remove(r.tmp.Name())
		return sourceErr
	}

	if r.store.hasSpace(r.size) {
		if err := os.Rename(r.tmp.Name(), r.cachePath); err != nil {
			os.Remove(r.tmp.Name())
			r.store.logger.Warn("promote cache temp file", "error", err)
		} else {
			r.store.addSize(r.size)
		}
	} else {
		os.Remove(r.tmp.Name())
		r.store.logger.Debug("media cache full, not caching", "size", r.size)
	}
	return sourceErr
}

func (s *Store) hasSpace(size int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cacheSize+size <= s.maxSize
}

func (s *Store) addSize(delta int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cacheSize += delta
	if s.cacheSize < 0 {
		s.cacheSize = 0
	}
}

func (s *Store) recalculateSize() {
	s.mu.Lock()
	defer s.mu.Unlock()

	var size int64
	if err := filepath.Walk(s.cacheDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	}); err != nil {
		s.logger.Warn("calculate cache size", "error", err)
	}
	s.cacheSize = size
}

// cleanupLoop evicts expired entries every ttl/2 until Close.
func (s *Store) cleanupLoop() {
	ticker := time.NewTicker(s.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.evictExpired()
		case <-s.stop:
			return
		}
	}
}

func (s *Store) evictExpired() {
	entries, err := os.ReadDir(s.cacheDir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if time.Since(info.ModTime()) >= s.ttl {
			if os.Remove(filepath.Join(s.cacheDir, entry.Name())) == nil {
				s.addSize(-info.Size())
			}
		}
	}
}
