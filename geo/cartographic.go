package geo

import "fmt"

// Cartographic is a geodetic position: longitude and latitude in radians,
// height in meters above the ellipsoid.
type Cartographic struct {
	Longitude float64
	Latitude  float64
	Height    float64
}

// CartographicFromDegrees builds a Cartographic from degrees.
func CartographicFromDegrees(lon, lat, height float64) Cartographic {
	return Cartographic{Longitude: ToRadians(lon), Latitude: ToRadians(lat), Height: height}
}

func (c Cartographic) String() string {
	return fmt.Sprintf("(%.6f°, %.6f°, %.1fm)", ToDegrees(c.Longitude), ToDegrees(c.Latitude), c.Height)
}
