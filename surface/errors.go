package surface

import "errors"

var (
	// ErrNoTerrainProvider is returned by New without a terrain provider.
	ErrNoTerrainProvider = errors.New("surface: terrain provider is required")
	// ErrNoImageryLayers is returned by New without a layer collection.
	ErrNoImageryLayers = errors.New("surface: imagery layer collection is required")
	// ErrNoShaderSet is returned by New without a shader set.
	ErrNoShaderSet = errors.New("surface: shader set is required")
	// ErrNilParameter is returned by setters given a missing or invalid
	// value. The provider is left unchanged.
	ErrNilParameter = errors.New("surface: nil parameter")
)
