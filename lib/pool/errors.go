package pool

import apperrors "github.com/go-i2p/respool/lib/errors"

// Pool errors are aliases of the central definitions in lib/errors.
var (
	// ErrPoolExhausted is returned by Acquire when every resource is in use
	// and the pool is at its maximum size.
	ErrPoolExhausted = apperrors.ErrPoolExhausted
	// ErrInvalidRelease is returned when releasing nil or a resource this
	// pool did not create.
	ErrInvalidRelease = apperrors.ErrInvalidRelease
	// ErrDoubleRelease is returned by strict pools when releasing an idle resource.
	ErrDoubleRelease = apperrors.ErrDoubleRelease
	// ErrPoolClosed is returned when acquiring from a closed pool.
	ErrPoolClosed = apperrors.ErrPoolClosed
	// ErrTimeout is returned when AcquireWait runs past its deadline.
	ErrTimeout = apperrors.ErrPoolTimeout
	// ErrInvalidSize is returned when the maximum size is not positive.
	ErrInvalidSize = apperrors.ErrPoolInvalidSize
)
