// Package internaldefs holds the metric names, label keys and bucket
// boundaries shared by the Prometheus and OTel exporters. Latency is one
// histogram labelled by endpoint; bucket bounds come from the client.
//
// Both exporters render from these tables, so a rename here changes every
// exporter at once.
//
// # What this package must NOT do
//
//   - Import an exporter package.
//   - Perform I/O.
package internaldefs
