// Package minio provides a BlobStore implementation using the MinIO client.
//
// It works against MinIO and any other S3-compatible server (Ceph, Garage,
// SeaweedFS) without pulling in the AWS SDK.
//
// # Basic Usage
//
//	store, err := minio.Dial(minio.Config{
//	    Endpoint:  "localhost:9000",
//	    AccessKey: "minioadmin",
//	    SecretKey: "minioadmin",
//	}, "kb", "prod/")
//	if err != nil {
//	    return err
//	}
//	if err := store.EnsureBucket(ctx); err != nil {
//	    return err
//	}
//	_, err = blobstore.Publish(ctx, store, "kb.ttlplus", "out/kb.ttlplus")
package minio
