package shmem

import (
	"errors"

	"github.com/srediag/shmem/internal/mapping"
)

// Region-level errors are defined by the backing-store drivers and aliased
// here so the public surface is complete.
var (
	// ErrMapSizeZero is returned by Create when the configured size is zero.
	ErrMapSizeZero = mapping.ErrMapSizeZero

	// ErrMappingIDExists is returned by Create when the explicit identifier
	// already names a region. Colliding on an explicit name is the caller's
	// bug; random identifiers are retried internally.
	ErrMappingIDExists = mapping.ErrMappingIDExists

	// ErrMapCreateFailed wraps OS failures while creating a region.
	ErrMapCreateFailed = mapping.ErrMapCreateFailed

	// ErrMapOpenFailed wraps OS failures while opening a region, including
	// a region that does not exist.
	ErrMapOpenFailed = mapping.ErrMapOpenFailed

	// ErrFsBackedDisabled is returned when filesystem-backed mode is not
	// supported on this platform.
	ErrFsBackedDisabled = mapping.ErrFsBackedDisabled

	// ErrUnknownOS wraps OS failures outside the create/open classification.
	ErrUnknownOS = mapping.ErrUnknownOS
)

var (
	// ErrLinkExists is returned by Create when the configured reference file
	// already exists and overwriting was not requested.
	ErrLinkExists = errors.New("shmem: reference file already exists")

	// ErrLinkCreateFailed wraps failures while creating the reference file.
	ErrLinkCreateFailed = errors.New("shmem: creating the reference file failed")

	// ErrLinkWriteFailed wraps failures while writing the identifier into
	// the reference file. The partial file is removed before returning.
	ErrLinkWriteFailed = errors.New("shmem: writing the reference file failed")

	// ErrLinkOpenFailed wraps failures while opening the reference file.
	ErrLinkOpenFailed = errors.New("shmem: opening the reference file failed")

	// ErrLinkReadFailed wraps failures while reading the reference file.
	ErrLinkReadFailed = errors.New("shmem: reading the reference file failed")

	// ErrNoLinkOrOSID is returned by Open when neither an identifier nor a
	// reference file path was configured.
	ErrNoLinkOrOSID = errors.New("shmem: open requires an identifier or a reference file path")

	// ErrNoFsBaseDir is returned when filesystem-backed mode is enabled
	// without a base directory to resolve paths in.
	ErrNoFsBaseDir = errors.New("shmem: filesystem-backed mode requires a base directory")
)
