package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/graphkb/blobstore"
	"github.com/hupe1980/graphkb/blobstore/minio"
	"github.com/hupe1980/graphkb/blobstore/s3"
	"github.com/hupe1980/graphkb/config"
)

// store opens the blob store selected by the config.
func (a *app) store(ctx context.Context) (blobstore.BlobStore, error) {
	sc := a.cfg.Store

	switch sc.Backend {
	case config.BackendLocal:
		return blobstore.NewLocalStore(sc.Root), nil
	case config.BackendMinIO:
		if sc.Bucket == "" {
			return nil, errors.New("minio backend requires a bucket")
		}
		st, err := minio.Dial(minio.Config{
			Endpoint:  sc.MinIO.Endpoint,
			AccessKey: sc.MinIO.AccessKey,
			SecretKey: sc.MinIO.SecretKey,
			Region:    sc.MinIO.Region,
			Secure:    sc.MinIO.Secure,
		}, sc.Bucket, sc.Prefix)
		if err != nil {
			return nil, err
		}
		if err := st.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return st, nil
	case config.BackendS3:
		if sc.Bucket == "" {
			return nil, errors.New("s3 backend requires a bucket")
		}
		st, err := s3.New(ctx, sc.Bucket, sc.Prefix, sc.S3.Region)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", sc.Backend)
	}
}
