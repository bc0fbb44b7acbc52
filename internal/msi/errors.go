package msi

import "errors"

// Allocator errors are invalid-argument and resource-exhaustion only; the
// sentinels for singleton and missing-resource failures at attach time
// live in internal/imsic instead, since those are attach concerns rather
// than allocation concerns, and the unsupported-operation sentinel that
// CreateDomain returns is internal/irq.ErrUnsupported.
var (
	// ErrInvalidArgument covers a nil device, min == 0, min > max, max
	// exceeding MaxVectors, or no power-of-two block fitting between min
	// and max.
	ErrInvalidArgument = errors.New("msi: invalid argument")
	// ErrResourceExhausted covers the IRQ domain failing to provide a
	// contiguous hwirq range, or mapping creation failing partway through
	// population — always surfaced only after full rollback.
	ErrResourceExhausted = errors.New("msi: resource exhausted")
)
