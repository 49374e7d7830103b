package server

const (
	// Validation (1xxx)
	ErrCodeInvalidArgument = 1000
	ErrCodeNoFileProvided  = 1001
	ErrCodeRequestTooLarge = 1002

	// Domain state (2xxx)
	ErrCodeCatNotFound = 2001

	// Internal/system (4xxx)
	ErrCodeInternal     = 4001
	ErrCodeStoreFailure = 4002
)

func defaultErrorCodeByStatus(status int) int {
	switch status {
	case 400:
		return ErrCodeInvalidArgument
	case 404:
		return ErrCodeCatNotFound
	case 500:
		return ErrCodeInternal
	default:
		return 0
	}
}
