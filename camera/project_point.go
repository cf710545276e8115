package camera

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"github.com/reconlab/sfm/spatialmath"
)

// ProjectPointToImage runs the full forward projection pipeline on the raw
// parameter blocks: the homogeneous world point is moved into the camera's
// local frame, divided onto the normalized plane, radially distorted, and
// mapped to pixels by the calibration matrix. It operates directly on the
// flat extrinsics and intrinsics blocks so optimizers can evaluate residuals
// without going through the semantic accessors.
//
// The returned depth is the point's coordinate along the viewing axis divided
// by the homogeneous weight: negative behind the camera, infinite for points
// at infinity.
func ProjectPointToImage(
	extrinsics, intrinsics []float64,
	sharedToLocal *spatialmath.RotationMatrix,
	point [4]float64,
) (r2.Point, float64) {
	worldToShared := spatialmath.R3ToR4(r3.Vector{
		X: extrinsics[ExtrinsicsOrientation],
		Y: extrinsics[ExtrinsicsOrientation+1],
		Z: extrinsics[ExtrinsicsOrientation+2],
	}).RotationMatrix()
	position := r3.Vector{
		X: extrinsics[ExtrinsicsPosition],
		Y: extrinsics[ExtrinsicsPosition+1],
		Z: extrinsics[ExtrinsicsPosition+2],
	}

	// Shift by -w*C rather than dividing by w so that points at infinity
	// (w == 0) stay representable.
	adjusted := r3.Vector{X: point[0], Y: point[1], Z: point[2]}.Sub(position.Mul(point[3]))
	local := sharedToLocal.RotateVector(worldToShared.RotateVector(adjusted))

	xNormalized := local.X / local.Z
	yNormalized := local.Y / local.Z
	xDistorted, yDistorted := RadialDistortPoint(
		xNormalized, yNormalized,
		intrinsics[RadialDistortion1], intrinsics[RadialDistortion2])

	pixel := r2.Point{
		X: intrinsics[FocalLength]*xDistorted + intrinsics[Skew]*yDistorted + intrinsics[PrincipalPointX],
		Y: intrinsics[FocalLength]*intrinsics[AspectRatio]*yDistorted + intrinsics[PrincipalPointY],
	}
	return pixel, local.Z / point[3]
}
