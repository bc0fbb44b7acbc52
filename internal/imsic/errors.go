package imsic

import "errors"

var (
	// ErrAlreadyInitialized is returned by Attach when a primary controller
	// already exists — the singleton invariant.
	ErrAlreadyInitialized = errors.New("imsic: controller already initialized")
	// ErrMissingResource is returned by Attach when the device carries no
	// memory-mapped resource at index 0.
	ErrMissingResource = errors.New("imsic: device has no MMIO resource")
)
