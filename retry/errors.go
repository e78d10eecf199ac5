package retry

import (
	"fmt"
	"time"
)

// ErrInvalidMaxAttempts returns an error for an invalid attempt count
func ErrInvalidMaxAttempts(attempts int) error {
	return fmt.Errorf("retry: invalid max attempts: %d (must be >= 1)", attempts)
}

// ErrInvalidDelay returns an error for an invalid backoff delay
func ErrInvalidDelay(delay time.Duration) error {
	return fmt.Errorf("retry: invalid delay: %v (must be >= 0)", delay)
}
