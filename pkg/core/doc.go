// Package core defines the shared language of the InsightQL system.
//
// This package contains:
//   - Domain entities (Value, Record, Dataset, Row)
//   - Service interfaces (DatasetStore, Ingestor)
//   - The error taxonomy (ValidationError, NotFoundError, ResultTooLargeError)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
