package memory

import (
	"context"
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/vinayprograms/reverie/errors"
	"github.com/vinayprograms/reverie/logging"
	"github.com/vinayprograms/reverie/telemetry"
)

// FileStore keeps one file per record in a single directory.
// It holds no locks: each save writes a temp file and renames it into
// place, so concurrent saves that land on the same key leave one whole
// file behind, last write wins.
type FileStore struct {
	dir    string
	codec  Codec
	keys   KeyStrategy
	now    func() time.Time
	tracer *telemetry.Tracer
	logger *logging.Logger
}

// FileStoreConfig configures a FileStore.
type FileStoreConfig struct {
	// Dir is the storage directory. Created if missing.
	Dir string

	// Codec encodes record files (default: JSONCodec).
	Codec Codec

	// Keys derives storage keys (default: TimestampKeys).
	Keys KeyStrategy

	// Now overrides the clock used for keys (default: time.Now).
	Now func() time.Time

	Tracer *telemetry.Tracer
	Logger *logging.Logger
}

// NewFileStore creates the storage directory and returns a store over it.
func NewFileStore(cfg FileStoreConfig) (*FileStore, error) {
	if cfg.Dir == "" {
		return nil, errors.InvalidInput("storage directory is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, errors.Storage("failed to create storage directory", err,
			errors.WithMetadata("path", cfg.Dir))
	}
	if cfg.Codec == nil {
		cfg.Codec = JSONCodec{}
	}
	if cfg.Keys == nil {
		cfg.Keys = TimestampKeys{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Tracer == nil {
		cfg.Tracer = telemetry.GetTracer()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}

	return &FileStore{
		dir:    cfg.Dir,
		codec:  cfg.Codec,
		keys:   cfg.Keys,
		now:    cfg.Now,
		tracer: cfg.Tracer,
		logger: cfg.Logger.WithComponent("store"),
	}, nil
}

// Dir returns the storage directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Path returns the file path for a storage key.
func (s *FileStore) Path(key string) string {
	return filepath.Join(s.dir, key+s.codec.Ext())
}

// Save implements Store.
func (s *FileStore) Save(ctx context.Context, rec *Record) (key string, err error) {
	_, span := s.tracer.StartStoreSpan(ctx, "save")
	defer func() {
		opts := telemetry.StoreSpanOptions{Backend: "file", Key: key}
		if err == nil {
			opts.Count = 1
			opts.Prompt = rec.Prompt
		}
		s.tracer.EndStoreSpan(span, opts, err)
	}()

	if rec == nil {
		return "", errors.InvalidInput("record is required")
	}
	if err := rec.Validate(); err != nil {
		return "", err
	}
	rec.applyDefaults()

	data, err := s.codec.Encode(rec)
	if err != nil {
		return "", errors.Wrap(err, "encoding memory")
	}

	key = s.keys.Next(s.now())
	path := s.Path(key)
	if err := s.writeFile(key, path, data); err != nil {
		return "", errors.Storage("failed to write memory", err,
			errors.WithKey(key), errors.WithMetadata("path", path))
	}
	return key, nil
}

// writeFile replaces path atomically. The temp name never carries the
// codec extension, so keyList skips it while it exists.
func (s *FileStore) writeFile(key, path string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, "."+key+"-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// List implements Store.
func (s *FileStore) List(ctx context.Context, limit int) (entries []Entry, err error) {
	_, span := s.tracer.StartStoreSpan(ctx, "list")
	start := time.Now()
	defer func() {
		s.tracer.EndStoreSpan(span, telemetry.StoreSpanOptions{Backend: "file", Count: len(entries)}, err)
		s.logger.RecordsRead("list", len(entries), time.Since(start))
	}()

	if limit <= 0 {
		limit = DefaultListLimit
	}

	keys, err := s.keyList()
	if err != nil {
		return nil, err
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	if len(keys) > limit {
		keys = keys[:limit]
	}
	return s.readAll(keys)
}

// Get implements Store.
func (s *FileStore) Get(ctx context.Context, key string) (entry *Entry, err error) {
	_, span := s.tracer.StartStoreSpan(ctx, "get")
	defer func() {
		opts := telemetry.StoreSpanOptions{Backend: "file", Key: key}
		if entry != nil {
			opts.Count = 1
		}
		s.tracer.EndStoreSpan(span, opts, err)
	}()

	if !ValidKey(key) {
		return nil, errors.NotFound("memory not found", errors.WithKey(key))
	}
	return s.read(key)
}

// ScanAll implements Store.
func (s *FileStore) ScanAll(ctx context.Context) (entries []Entry, err error) {
	_, span := s.tracer.StartStoreSpan(ctx, "scan")
	start := time.Now()
	defer func() {
		s.tracer.EndStoreSpan(span, telemetry.StoreSpanOptions{Backend: "file", Count: len(entries)}, err)
		s.logger.RecordsRead("scan", len(entries), time.Since(start))
	}()

	keys, err := s.keyList()
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return s.readAll(keys)
}

// Close implements Store. A FileStore holds no open handles.
func (s *FileStore) Close() error {
	return nil
}

// keyList returns the stems of every file carrying the codec's extension.
// A missing directory reads as empty.
func (s *FileStore) keyList() ([]string, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, errors.Storage("failed to read storage directory", err,
			errors.WithMetadata("path", s.dir))
	}

	ext := s.codec.Ext()
	keys := make([]string, 0, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		name := de.Name()
		if !strings.HasSuffix(name, ext) || len(name) == len(ext) {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, ext))
	}
	return keys, nil
}

// readAll decodes keys in order; the first failure aborts the read.
func (s *FileStore) readAll(keys []string) ([]Entry, error) {
	entries := make([]Entry, 0, len(keys))
	for _, key := range keys {
		entry, err := s.read(key)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

func (s *FileStore) read(key string) (*Entry, error) {
	path := s.Path(key)
	data, err := os.ReadFile(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.NotFound("memory not found", errors.WithKey(key))
		}
		return nil, errors.Storage("failed to read memory", err,
			errors.WithKey(key), errors.WithMetadata("path", path))
	}

	rec, err := s.codec.Decode(data)
	if err != nil {
		return nil, errors.Corruption(key, err, errors.WithMetadata("path", path))
	}
	return &Entry{Key: key, Record: *rec}, nil
}
