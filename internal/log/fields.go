// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldCorrelationID = "correlation_id"
	FieldRequestID     = "request_id"
	FieldRunID         = "run_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Domain fields
	FieldTitle      = "title"
	FieldRawID      = "raw_id"
	FieldFamily     = "family"
	FieldTotalUsers = "total_users"
	FieldBackend    = "backend"

	// Path / URL fields
	FieldPath    = "path"
	FieldFeedURL = "feed_url"
)
