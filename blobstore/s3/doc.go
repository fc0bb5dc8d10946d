// Package s3 provides an Amazon S3 implementation of blobstore.BlobStore.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket", "kb/", "eu-central-1")
//	if err != nil {
//	    return err
//	}
//	path, err := blobstore.Fetch(ctx, store, "kb.ttlplus", cacheDir)
//
// # Features
//
//   - Range reads for concurrent downloads
//   - Multipart streaming uploads with CRC32C checksums
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
