package mapping

import "errors"

var (
	// ErrMapSizeZero is returned when a zero or negative mapping size is
	// requested. It is checked before any syscall is made.
	ErrMapSizeZero = errors.New("shmem: mapping size must be larger than zero")

	// ErrMappingIDExists is returned by the create path when the identifier
	// already names a region. Callers using random identifiers retry on this
	// error and only on this error.
	ErrMappingIDExists = errors.New("shmem: a mapping with this identifier already exists")

	// ErrMapCreateFailed wraps any other failure while reserving, sizing or
	// mapping a new region.
	ErrMapCreateFailed = errors.New("shmem: creating the mapping failed")

	// ErrMapOpenFailed wraps failures while locating or mapping an existing
	// region, including a region that does not exist yet.
	ErrMapOpenFailed = errors.New("shmem: opening the mapping failed")

	// ErrFsBackedDisabled is returned when filesystem-backed mode is
	// requested on a platform that does not support it.
	ErrFsBackedDisabled = errors.New("shmem: filesystem-backed mode is not available on this platform")

	// ErrUnknownOS wraps unexpected OS failures outside the create/open
	// classification, such as a failed ftruncate.
	ErrUnknownOS = errors.New("shmem: unexpected os failure")
)
