package fonts

import "errors"

// Sentinel errors for the fonts package.
var (
	// ErrUnknownFamily is returned when a family was never registered.
	ErrUnknownFamily = errors.New("fonts: unknown font family")

	// ErrNotLoaded is returned when a family is registered but its font
	// file has not finished loading.
	ErrNotLoaded = errors.New("fonts: font family not loaded")

	// ErrEmptyFamily is returned when registering a family without a name.
	ErrEmptyFamily = errors.New("fonts: empty family name")
)
