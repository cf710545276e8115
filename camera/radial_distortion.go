package camera

// Two-coefficient radial distortion on the normalized image plane:
// a point at radius-squared r2 from the optical axis is scaled by
// 1 + k1*r2 + k2*r2*r2.

// undistortIterations bounds the fixed point iteration in
// RadialUndistortPoint. The iteration normally converges to machine
// precision much earlier for realistic coefficients.
const undistortIterations = 100

// RadialDistortPoint applies radial distortion to a point on the normalized
// image plane.
func RadialDistortPoint(x, y, k1, k2 float64) (float64, float64) {
	r2 := x*x + y*y
	d := 1 + k1*r2 + k2*r2*r2
	return x * d, y * d
}

// RadialUndistortPoint inverts the radial distortion of a point on the
// normalized image plane by fixed point iteration, stopping early once the
// estimate stops moving.
func RadialUndistortPoint(x, y, k1, k2 float64) (float64, float64) {
	xu, yu := x, y
	for i := 0; i < undistortIterations; i++ {
		r2 := xu*xu + yu*yu
		d := 1 + k1*r2 + k2*r2*r2
		xNext, yNext := x/d, y/d
		if xNext == xu && yNext == yu {
			break
		}
		xu, yu = xNext, yNext
	}
	return xu, yu
}
