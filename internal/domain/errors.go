package domain

import "errors"

var (
	// ErrInvalidOutputExtension is returned when an output filename does not
	// carry the extension its format requires.
	ErrInvalidOutputExtension = errors.New("invalid output extension")

	// ErrUnsupportedInputFormat is returned for CAD files that are neither
	// STEP nor ACIS.
	ErrUnsupportedInputFormat = errors.New("unsupported input format")

	// ErrFileNotFound is returned when an input CAD file does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrKernelUnavailable is returned when the geometry kernel cannot be
	// located or its binding fails to import.
	ErrKernelUnavailable = errors.New("geometry kernel unavailable")

	// ErrTagTooLong is returned for material tags longer than
	// MaxMaterialTagLength.
	ErrTagTooLong = errors.New("material tag too long")

	// ErrInvalidTransform is returned for malformed transform specs.
	ErrInvalidTransform = errors.New("invalid transform")

	// ErrKernelCommand is returned when the kernel rejects a command.
	ErrKernelCommand = errors.New("kernel command failed")

	// ErrGraveyard is returned when the graveyard shell cannot be identified.
	ErrGraveyard = errors.New("graveyard synthesis failed")
)
