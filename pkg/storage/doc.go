// Package storage removes document objects from blob storage.
//
// A document row records its file as a public URL. The object path is the
// part after "/documents/":
//
//	path, ok := storage.ObjectPath("https://cdn.example.com/storage/v1/object/public/documents/org1/report.pdf")
//	// path == "org1/report.pdf"
//
// Three backends implement BlobStore:
//
//   - NoopBlobStore: nothing is stored (the default).
//   - FileSystemBlobStore: objects live under a local root directory. Paths
//     that escape the root are rejected with ErrInvalidPath.
//   - S3BlobStore: objects live in an S3 compatible bucket and are removed
//     with batched DeleteObjects calls, traced with OpenTelemetry.
//
// New picks the backend from Config.Type. The postgres subpackage opens the
// database and Redis connections described by the same Config.
package storage
