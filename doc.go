// Package docvault stores generated documents behind a single storage
// abstraction and hands out stable retrieval URLs for them.
//
// Documents live in a flat namespace keyed by name. The active storage backend
// is chosen by configuration and is one of three variants:
//
//   - KindLocal: a directory relative to the working directory, lost on reset
//   - KindDisk: a mounted volume that outlives the process
//   - KindS3: an S3-compatible bucket
//
// # Key Components
//
//   - Service: validates names and wraps a Backend with deadlines, retries and tracing
//   - Backend: interface implemented by the filesystem, s3 and minio packages
//   - Catalog: optional metadata index (PostgreSQL, SQLite) kept in sync on writes
//   - Workspace: get, mutate and put-back workflow over private scratch copies
//   - SignatureVerifier: AWS Signature V4 presigned URL verification
//
// # Example Usage
//
//	store, err := filesystem.Open(docvault.KindDisk, "/mnt/disk/documents")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	service, err := docvault.NewService(store, nil, docvault.ServiceConfig{
//	    BaseURL: "https://docs.example.com",
//	    Timeout: 30 * time.Second,
//	    Retry:   docvault.RetryConfig{MaxAttempts: 3},
//	})
//
//	doc, err := service.Put(ctx, "report.docx", reader, docvault.PutOptions{})
//	fmt.Println(doc.URL) // https://docs.example.com/documents/report.docx
//
// See the http package for the REST API and the backend package for opening
// a Backend from configuration.
package docvault
