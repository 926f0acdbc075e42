// Package geo holds the planar geometry shared by the estimation layers.
//
// Positions are UTM coordinates packed into a complex128 with the
// northing in the real part and the easting in the imaginary part, so
// that a bearing is simply the argument of the difference of two points.
// The UTM zone is carried separately and only attached when positions
// cross a storage boundary.
package geo
