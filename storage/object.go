package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/time/rate"
)

// ObjectConfig holds MinIO connection settings.
type ObjectConfig struct {
	Endpoint        string // e.g. "minio:9000" or "localhost:9000"
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	Region          string

	// RequestsPerSecond paces calls to the endpoint; 0 disables pacing.
	RequestsPerSecond float64
	Retry             *Retrier
	Logger            *slog.Logger
}

// ObjectStore is a FileSystem over an S3-compatible object store.
// Paths are "bucket/key"; directories are key prefixes and need not exist.
type ObjectStore struct {
	mc      *minio.Client
	limiter *rate.Limiter
	retry   *Retrier
}

// NewObjectStore creates a MinIO-backed filesystem.
func NewObjectStore(cfg ObjectConfig) (*ObjectStore, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("object store: endpoint is required")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return newObjectStore(mc, cfg), nil
}

func newObjectStore(mc *minio.Client, cfg ObjectConfig) *ObjectStore {
	o := &ObjectStore{mc: mc, retry: cfg.Retry}
	if o.retry == nil {
		o.retry = DefaultRetrier()
	}
	if o.retry.Logger == nil {
		o.retry.Logger = cfg.Logger
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		o.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return o
}

// SplitPath splits "bucket/key/parts" into bucket and key.
func SplitPath(p string) (bucket, key string, err error) {
	p = strings.TrimPrefix(p, "/")
	bucket, key, _ = strings.Cut(p, "/")
	if bucket == "" || bucket == "." {
		return "", "", fmt.Errorf("object store: path %q has no bucket", p)
	}
	return bucket, key, nil
}

func (o *ObjectStore) call(ctx context.Context, op string, fn func() error) error {
	return o.retry.Do(ctx, op, func() error {
		if o.limiter != nil {
			if err := o.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		return fn()
	})
}

func (o *ObjectStore) List(ctx context.Context, dir string) ([]string, error) {
	bucket, prefix, err := SplitPath(dir)
	if err != nil {
		return nil, err
	}
	prefix = strings.Trim(prefix, "/")

	var out []string
	err = o.call(ctx, "list", func() error {
		out = out[:0]
		exists, err := o.mc.BucketExists(ctx, bucket)
		if err != nil || !exists {
			return err
		}
		opts := minio.ListObjectsOptions{Recursive: true}
		if prefix != "" {
			opts.Prefix = prefix + "/"
		}
		for obj := range o.mc.ListObjects(ctx, bucket, opts) {
			if obj.Err != nil {
				return obj.Err
			}
			if strings.HasSuffix(obj.Key, "/") {
				continue
			}
			out = append(out, bucket+"/"+obj.Key)
		}
		if prefix == "" {
			return nil
		}
		// dir may name a single object rather than a prefix.
		if _, err := o.mc.StatObject(ctx, bucket, prefix, minio.StatObjectOptions{}); err == nil {
			out = append(out, bucket+"/"+prefix)
		} else if minio.ToErrorResponse(err).Code != "NoSuchKey" {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	return sortedUnique(out), nil
}

func (o *ObjectStore) Exists(ctx context.Context, p string) (bool, error) {
	bucket, key, err := SplitPath(p)
	if err != nil {
		return false, err
	}
	if key == "" {
		return false, nil
	}
	var found bool
	err = o.call(ctx, "stat", func() error {
		_, err := o.mc.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
		if err == nil {
			found = true
			return nil
		}
		switch minio.ToErrorResponse(err).Code {
		case "NoSuchKey", "NoSuchBucket":
			found = false
			return nil
		}
		return err
	})
	return found, err
}

func (o *ObjectStore) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	bucket, key, err := SplitPath(p)
	if err != nil {
		return nil, err
	}
	var obj *minio.Object
	err = o.call(ctx, "get", func() error {
		got, err := o.mc.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
		if err != nil {
			return err
		}
		if _, err := got.Stat(); err != nil {
			got.Close()
			return err
		}
		obj = got
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", p, err)
	}
	return obj, nil
}

// Create buffers the object in memory and uploads it on Close.
func (o *ObjectStore) Create(ctx context.Context, p string) (io.WriteCloser, error) {
	bucket, key, err := SplitPath(p)
	if err != nil {
		return nil, err
	}
	if key == "" {
		return nil, fmt.Errorf("object store: path %q has no key", p)
	}
	return &objectWriter{ctx: ctx, o: o, bucket: bucket, key: key}, nil
}

// MkdirAll creates the bucket if it does not exist; prefixes need no creation.
func (o *ObjectStore) MkdirAll(ctx context.Context, dir string) error {
	bucket, _, err := SplitPath(dir)
	if err != nil {
		return err
	}
	return o.call(ctx, "mkdir", func() error {
		exists, err := o.mc.BucketExists(ctx, bucket)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
		return o.mc.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
	})
}

type objectWriter struct {
	ctx    context.Context
	o      *ObjectStore
	bucket string
	key    string
	buf    bytes.Buffer
	closed bool
}

func (w *objectWriter) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *objectWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	data := w.buf.Bytes()
	return w.o.call(w.ctx, "put", func() error {
		_, err := w.o.mc.PutObject(w.ctx, w.bucket, w.key, bytes.NewReader(data), int64(len(data)),
			minio.PutObjectOptions{ContentType: "application/octet-stream"})
		return err
	})
}

func (w *objectWriter) Abort() error {
	w.closed = true
	w.buf.Reset()
	return nil
}
