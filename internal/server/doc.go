// Package server implements the HTTP server for File Drop: the upload page,
// the upload and listing endpoints, and the operational endpoints (health,
// readiness, metrics, recent uploads). It wires the storage directory, the
// optional object storage mirror and the optional audit trail together and
// provides lifecycle helpers used by tests and the production binary.
package server
