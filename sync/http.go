package sync

import "time"

// HTTPRequestTimeout is the default timeout for all HTTP requests to NetBox.
const HTTPRequestTimeout = 60 * time.Second

// DefaultPageSize is used when the configuration does not set pageSize.
const DefaultPageSize = 1000

// maxErrorBody caps how much of an error response body is kept for logging.
const maxErrorBody = 4096
