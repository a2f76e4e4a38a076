package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter      ErrorCode = 100
	ErrCodeInvalidConfiguration  ErrorCode = 101
	ErrCodeInvalidDurationFormat ErrorCode = 102
	ErrCodeMissingKeyColumn      ErrorCode = 103
	ErrCodeMissingTimezone       ErrorCode = 104
	ErrCodeInvalidSecurityType   ErrorCode = 105
	ErrCodeInvalidDataType       ErrorCode = 106
	ErrCodeMissingParameter      ErrorCode = 107
	ErrCodeInvalidTimeRange      ErrorCode = 108
	ErrCodeInvalidVersion        ErrorCode = 109
	ErrCodeInvalidTimestamp      ErrorCode = 110

	// Cache errors (200-299)
	ErrCodeCacheUnavailable      ErrorCode = 200
	ErrCodeCacheWriteFailed      ErrorCode = 201
	ErrCodeQueryFailed           ErrorCode = 202
	ErrCodeSchemaVersionMismatch ErrorCode = 203
	ErrCodeCacheInitFailed       ErrorCode = 204

	// Gap planner errors (300-399)
	ErrCodeUnsupportedGranularity ErrorCode = 300

	// Provider errors (400-499)
	ErrCodeProviderFetchFailed  ErrorCode = 400
	ErrCodeInvalidProvider      ErrorCode = 401
	ErrCodeProviderParseFailed  ErrorCode = 402
	ErrCodeTimezoneLookupFailed ErrorCode = 403
	ErrCodeUnsupportedBarSize   ErrorCode = 404

	// Connection errors (500-599)
	ErrCodePoolClosed ErrorCode = 500
)
