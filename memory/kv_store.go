package memory

import (
	"context"
	stderrors "errors"
	"regexp"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/vinayprograms/reverie/errors"
	"github.com/vinayprograms/reverie/logging"
	"github.com/vinayprograms/reverie/telemetry"
)

// DefaultKVBucket is the JetStream bucket used when none is configured.
const DefaultKVBucket = "reverie-memories"

// kvKeyPattern is the key alphabet NATS KV accepts.
var kvKeyPattern = regexp.MustCompile(`\A[-/_=.a-zA-Z0-9]+\z`)

// KVStoreConfig configures a KVStore.
type KVStoreConfig struct {
	// Conn is the NATS connection. The store does not close it.
	Conn *nats.Conn

	// Bucket is the KV bucket name (default DefaultKVBucket).
	Bucket string

	// MaxValueSize caps an encoded record (default 1MB).
	MaxValueSize int32

	// Timeout bounds each KV call (default 5s).
	Timeout time.Duration

	Codec  Codec
	Keys   KeyStrategy
	Now    func() time.Time
	Tracer *telemetry.Tracer
	Logger *logging.Logger
}

// KVStore implements Store on a NATS JetStream key-value bucket, one
// entry per record. Storage keys are stored with ':' mapped to '=' since
// KV keys may not contain colons.
type KVStore struct {
	kv      jetstream.KeyValue
	codec   Codec
	keys    KeyStrategy
	now     func() time.Time
	timeout time.Duration
	tracer  *telemetry.Tracer
	logger  *logging.Logger
	closed  atomic.Bool
}

// NewKVStore creates the bucket if needed and returns a store over it.
func NewKVStore(ctx context.Context, cfg KVStoreConfig) (*KVStore, error) {
	if cfg.Conn == nil {
		return nil, errors.InvalidInput("nats connection required")
	}
	if cfg.Bucket == "" {
		cfg.Bucket = DefaultKVBucket
	}
	if cfg.MaxValueSize <= 0 {
		cfg.MaxValueSize = 1024 * 1024
	}

	js, err := jetstream.New(cfg.Conn)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrCodeUnavailable, "jetstream unavailable")
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:       cfg.Bucket,
		Description:  "reverie memory records",
		History:      1,
		MaxValueSize: cfg.MaxValueSize,
	})
	if err != nil {
		return nil, errors.Storage("failed to create kv bucket", err,
			errors.WithMetadata("bucket", cfg.Bucket))
	}
	return newKVStore(kv, cfg), nil
}

func newKVStore(kv jetstream.KeyValue, cfg KVStoreConfig) *KVStore {
	if cfg.Codec == nil {
		cfg.Codec = JSONCodec{}
	}
	if cfg.Keys == nil {
		cfg.Keys = TimestampKeys{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Tracer == nil {
		cfg.Tracer = telemetry.GetTracer()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	return &KVStore{
		kv:      kv,
		codec:   cfg.Codec,
		keys:    cfg.Keys,
		now:     cfg.Now,
		timeout: cfg.Timeout,
		tracer:  cfg.Tracer,
		logger:  cfg.Logger.WithComponent("store"),
	}
}

// Bucket returns the KV bucket name.
func (s *KVStore) Bucket() string {
	return s.kv.Bucket()
}

// Save implements Store.
func (s *KVStore) Save(ctx context.Context, rec *Record) (key string, err error) {
	ctx, span := s.tracer.StartStoreSpan(ctx, "save")
	defer func() {
		opts := telemetry.StoreSpanOptions{Backend: "nats", Key: key}
		if err == nil {
			opts.Count = 1
			opts.Prompt = rec.Prompt
		}
		s.tracer.EndStoreSpan(span, opts, err)
	}()

	if s.closed.Load() {
		return "", errors.New(errors.ErrCodeUnavailable, "store closed")
	}
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
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if _, err := s.kv.Put(ctx, toKVKey(key), data); err != nil {
		return "", errors.Storage("failed to write memory", err,
			errors.WithKey(key), errors.WithMetadata("bucket", s.kv.Bucket()))
	}
	return key, nil
}

// List implements Store.
func (s *KVStore) List(ctx context.Context, limit int) (entries []Entry, err error) {
	ctx, span := s.tracer.StartStoreSpan(ctx, "list")
	start := time.Now()
	defer func() {
		s.tracer.EndStoreSpan(span, telemetry.StoreSpanOptions{Backend: "nats", Count: len(entries)}, err)
		s.logger.RecordsRead("list", len(entries), time.Since(start))
	}()

	if limit <= 0 {
		limit = DefaultListLimit
	}
	keys, err := s.keyList(ctx)
	if err != nil {
		return nil, err
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	if len(keys) > limit {
		keys = keys[:limit]
	}
	return s.readAll(ctx, keys)
}

// Get implements Store.
func (s *KVStore) Get(ctx context.Context, key string) (entry *Entry, err error) {
	ctx, span := s.tracer.StartStoreSpan(ctx, "get")
	defer func() {
		opts := telemetry.StoreSpanOptions{Backend: "nats", Key: key}
		if entry != nil {
			opts.Count = 1
		}
		s.tracer.EndStoreSpan(span, opts, err)
	}()

	if !ValidKey(key) || !kvKeyPattern.MatchString(toKVKey(key)) {
		return nil, errors.NotFound("memory not found", errors.WithKey(key))
	}
	return s.read(ctx, key)
}

// ScanAll implements Store.
func (s *KVStore) ScanAll(ctx context.Context) (entries []Entry, err error) {
	ctx, span := s.tracer.StartStoreSpan(ctx, "scan")
	start := time.Now()
	defer func() {
		s.tracer.EndStoreSpan(span, telemetry.StoreSpanOptions{Backend: "nats", Count: len(entries)}, err)
		s.logger.RecordsRead("scan", len(entries), time.Since(start))
	}()

	keys, err := s.keyList(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return s.readAll(ctx, keys)
}

// Close implements Store. Later saves fail; the connection stays open.
func (s *KVStore) Close() error {
	s.closed.Store(true)
	return nil
}

// keyList returns every storage key in the bucket. An empty bucket reads
// as empty.
func (s *KVStore) keyList(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	lister, err := s.kv.ListKeys(ctx)
	if err != nil {
		if stderrors.Is(err, jetstream.ErrNoKeysFound) {
			return []string{}, nil
		}
		return nil, errors.Storage("failed to list memories", err,
			errors.WithMetadata("bucket", s.kv.Bucket()))
	}
	defer lister.Stop()

	keys := []string{}
	for k := range lister.Keys() {
		keys = append(keys, fromKVKey(k))
	}
	return keys, nil
}

func (s *KVStore) readAll(ctx context.Context, keys []string) ([]Entry, error) {
	entries := make([]Entry, 0, len(keys))
	for _, key := range keys {
		entry, err := s.read(ctx, key)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

func (s *KVStore) read(ctx context.Context, key string) (*Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	kve, err := s.kv.Get(ctx, toKVKey(key))
	if err != nil {
		if stderrors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, errors.NotFound("memory not found", errors.WithKey(key))
		}
		return nil, errors.Storage("failed to read memory", err,
			errors.WithKey(key), errors.WithMetadata("bucket", s.kv.Bucket()))
	}

	rec, err := s.codec.Decode(kve.Value())
	if err != nil {
		return nil, errors.Corruption(key, err, errors.WithMetadata("bucket", s.kv.Bucket()))
	}
	return &Entry{Key: key, Record: *rec}, nil
}

func toKVKey(key string) string {
	return strings.ReplaceAll(key, ":", "=")
}

func fromKVKey(k string) string {
	return strings.ReplaceAll(k, "=", ":")
}
