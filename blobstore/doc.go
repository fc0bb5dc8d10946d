// Package blobstore moves knowledge base containers between the local file
// system and object storage.
//
// BlobStore is the storage contract. Implementations must be safe for
// concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local directory, blobs are memory mapped on Open
//   - MemoryStore: in-process map, for tests and staging
//   - minio.Store: MinIO and other S3-compatible servers
//   - s3.Store: Amazon S3 with range reads and multipart uploads
//
// # Transfers
//
// Publish streams a local container into a store. Fetch downloads a blob into
// a cache directory using concurrent range reads. The cached copy is reused
// while the blob's version (ETag or checksum) is unchanged:
//
//	store := minio.NewStore(client, "kb", "prod/")
//	if _, err := blobstore.Publish(ctx, store, "kb.ttlplus", "out/kb.ttlplus"); err != nil {
//	    return err
//	}
//	path, err := blobstore.Fetch(ctx, store, "kb.ttlplus", cacheDir)
package blobstore
