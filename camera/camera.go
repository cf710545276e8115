// Package camera implements a pinhole camera model with radial lens
// distortion for structure from motion pipelines.
//
// Intrinsics of the camera are modeled such that:
//
//	K = [f     s     px]
//	    [0   f * a   py]
//	    [0     0      1]
//
// where f = focal length, px and py is the principal point, s = skew, and
// a = aspect ratio.
//
// Extrinsic parameters transform the homogeneous 3D point X to the image
// point p such that:
//
//	p = R * (X[0..2] / X[3] - C);
//	p = p[0,1] / p[2];
//	r = p[0] * p[0] + p[1] * p[1];
//	d = 1 + k1 * r + k2 * r * r;
//	p *= d;
//	p = K * p;
//
// where R = orientation, C = camera position, and k1, k2 are the radial
// distortion parameters.
//
// The orientation and position live in a SharedExtrinsics block that several
// cameras may reference at once. Each camera additionally carries a fixed
// shared-to-local rotation relating the shared rig frame to its own frame, so
// the effective world-to-local rotation is always
// sharedToLocal * R_world_shared.
package camera

import (
	"github.com/edaniels/golog"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"github.com/reconlab/sfm/spatialmath"
)

var logger = golog.NewLogger("camera")

// Indices into the flat intrinsics parameter block.
const (
	FocalLength = iota
	AspectRatio
	Skew
	PrincipalPointX
	PrincipalPointY
	RadialDistortion1
	RadialDistortion2
)

// IntrinsicsSize is the number of values in an intrinsics parameter block.
const IntrinsicsSize = 7

// Camera contains the full camera pose information including extrinsic
// parameters as well as intrinsic parameters. Methods are provided for common
// transformations and projections.
type Camera struct {
	intrinsics    [IntrinsicsSize]float64
	extrinsics    *SharedExtrinsics
	sharedToLocal *spatialmath.RotationMatrix

	// The image size as width then height.
	imageWidth  int
	imageHeight int
}

// NewCamera creates a camera with a fresh, exclusively owned SharedExtrinsics,
// i.e. a camera that is not part of any rig.
func NewCamera() *Camera {
	return NewCameraWithExtrinsics(NewSharedExtrinsics())
}

// NewCameraWithExtrinsics creates a camera bound to the given shared
// extrinsics. A nil extrinsics is a programmer error and panics.
func NewCameraWithExtrinsics(extrinsics *SharedExtrinsics) *Camera {
	if extrinsics == nil {
		panic("camera: shared extrinsics must not be nil")
	}
	c := &Camera{
		extrinsics:    extrinsics,
		sharedToLocal: spatialmath.NewIdentityRotationMatrix(),
	}
	c.SetFocalLength(1.0)
	c.SetAspectRatio(1.0)
	c.SetSkew(0.0)
	c.SetPrincipalPoint(0.0, 0.0)
	c.SetRadialDistortion(0.0, 0.0)
	return c
}

// InitializeFromProjectionMatrix initializes the camera intrinsic and
// extrinsic parameters from a 3x4 projection matrix by decomposing it. Image
// dimensions must be positive; violating that is a programmer error and
// panics.
//
// If a focal length term of the decomposed calibration matrix is zero, an
// error is returned with the intrinsics left unset. The extrinsics and image
// size have been written by that point and remain valid.
//
// NOTE: The projection matrix does not contain information about radial
// distortion, so those parameters will need to be set separately.
func (c *Camera) InitializeFromProjectionMatrix(imageWidth, imageHeight int, pmat mat.Matrix) error {
	if imageWidth <= 0 || imageHeight <= 0 {
		panic("camera: image dimensions must be positive")
	}
	c.imageWidth = imageWidth
	c.imageHeight = imageHeight

	kmat, worldToLocal, position := DecomposeProjectionMatrix(pmat)

	worldToShared := c.sharedToLocal.Transpose().Mul(worldToLocal)
	aa := worldToShared.AxisAngles().ToR3()
	ext := c.extrinsics.MutableExtrinsics()
	ext[ExtrinsicsOrientation] = aa.X
	ext[ExtrinsicsOrientation+1] = aa.Y
	ext[ExtrinsicsOrientation+2] = aa.Z
	ext[ExtrinsicsPosition] = position.X
	ext[ExtrinsicsPosition+1] = position.Y
	ext[ExtrinsicsPosition+2] = position.Z

	focalLength, skew, aspectRatio, ppx, ppy, err := CalibrationMatrixToIntrinsics(kmat)
	if err != nil {
		logger.Debugw("cannot set intrinsics from degenerate calibration matrix", "error", err)
		return err
	}
	c.SetFocalLength(focalLength)
	c.SetSkew(skew)
	c.SetAspectRatio(aspectRatio)
	c.SetPrincipalPoint(ppx, ppy)
	return nil
}

// GetProjectionMatrix returns the 3x4 projection matrix composed from the
// current intrinsics and extrinsics. It does not include radial distortion.
func (c *Camera) GetProjectionMatrix() *mat.Dense {
	return ComposeProjectionMatrix(
		c.GetCalibrationMatrix(),
		c.GetOrientationAsRotationMatrix(),
		c.GetPosition(),
	)
}

// GetCalibrationMatrix returns the calibration matrix in the form specified in
// the package documentation.
func (c *Camera) GetCalibrationMatrix() *mat.Dense {
	return IntrinsicsToCalibrationMatrix(
		c.FocalLength(),
		c.Skew(),
		c.AspectRatio(),
		c.PrincipalPointX(),
		c.PrincipalPointY(),
	)
}

// ProjectPoint projects the homogeneous 3D point into the image plane and
// distorts the result according to the radial distortion parameters. The
// returned depth lets callers detect points that project behind the camera
// (negative depth); points at infinity return a depth of infinity.
func (c *Camera) ProjectPoint(point [4]float64) (r2.Point, float64) {
	return ProjectPointToImage(
		c.extrinsics.Extrinsics(),
		c.intrinsics[:],
		c.sharedToLocal,
		point,
	)
}

// PixelToUnitDepthRay converts the pixel to a ray in 3D space such that the
// origin of the ray is at the camera center and the direction is the pixel
// direction rotated according to the camera orientation in 3D space.
//
// NOTE: The depth of the ray is set to 1. This is so that we can remain
// consistent with ProjectPoint. That is, if we have
//
//	pixel, depth = ProjectPoint(point)
//	ray = PixelToUnitDepthRay(pixel)
//
// then it will be the case that point = position + ray * depth.
func (c *Camera) PixelToUnitDepthRay(pixel r2.Point) r3.Vector {
	// First, undo the calibration.
	focalLengthY := c.FocalLength() * c.AspectRatio()
	yNormalized := (pixel.Y - c.PrincipalPointY()) / focalLengthY
	xNormalized := (pixel.X - c.PrincipalPointX() - yNormalized*c.Skew()) / c.FocalLength()

	// Undo radial distortion.
	xUndistorted, yUndistorted := RadialUndistortPoint(
		xNormalized, yNormalized, c.RadialDistortion1(), c.RadialDistortion2())

	// Rotate back from the local frame into world space.
	rotation := c.GetOrientationAsRotationMatrix()
	return rotation.Transpose().RotateVector(r3.Vector{X: xUndistorted, Y: yUndistorted, Z: 1})
}

// SetPosition sets the camera position in world coordinates.
func (c *Camera) SetPosition(position r3.Vector) {
	ext := c.extrinsics.MutableExtrinsics()
	ext[ExtrinsicsPosition] = position.X
	ext[ExtrinsicsPosition+1] = position.Y
	ext[ExtrinsicsPosition+2] = position.Z
}

// GetPosition returns the camera position in world coordinates.
func (c *Camera) GetPosition() r3.Vector {
	ext := c.extrinsics.Extrinsics()
	return r3.Vector{X: ext[ExtrinsicsPosition], Y: ext[ExtrinsicsPosition+1], Z: ext[ExtrinsicsPosition+2]}
}

// SetOrientationFromRotationMatrix sets the camera orientation from a
// world-to-local rotation. The stored shared orientation is derived by
// removing the shared-to-local offset, so reading the orientation back
// composes to the same world-to-local rotation.
func (c *Camera) SetOrientationFromRotationMatrix(worldToLocal *spatialmath.RotationMatrix) {
	worldToShared := c.sharedToLocal.Transpose().Mul(worldToLocal)
	aa := worldToShared.AxisAngles().ToR3()
	ext := c.extrinsics.MutableExtrinsics()
	ext[ExtrinsicsOrientation] = aa.X
	ext[ExtrinsicsOrientation+1] = aa.Y
	ext[ExtrinsicsOrientation+2] = aa.Z
}

// SetOrientationFromAngleAxis sets the camera orientation from a
// world-to-local rotation in compact angle-axis form.
func (c *Camera) SetOrientationFromAngleAxis(worldToLocal r3.Vector) {
	c.SetOrientationFromRotationMatrix(spatialmath.R3ToR4(worldToLocal).RotationMatrix())
}

// GetOrientationAsRotationMatrix returns the world-to-local rotation,
// composing the stored shared orientation with the shared-to-local offset.
func (c *Camera) GetOrientationAsRotationMatrix() *spatialmath.RotationMatrix {
	ext := c.extrinsics.Extrinsics()
	worldToShared := spatialmath.R3ToR4(r3.Vector{
		X: ext[ExtrinsicsOrientation],
		Y: ext[ExtrinsicsOrientation+1],
		Z: ext[ExtrinsicsOrientation+2],
	}).RotationMatrix()
	return c.sharedToLocal.Mul(worldToShared)
}

// GetOrientationAsAngleAxis returns the world-to-local rotation in compact
// angle-axis form.
func (c *Camera) GetOrientationAsAngleAxis() r3.Vector {
	return c.GetOrientationAsRotationMatrix().AxisAngles().ToR3()
}

// SetFocalLength sets the focal length in pixels.
func (c *Camera) SetFocalLength(focalLength float64) {
	c.intrinsics[FocalLength] = focalLength
}

// FocalLength returns the focal length in pixels.
func (c *Camera) FocalLength() float64 {
	return c.intrinsics[FocalLength]
}

// SetAspectRatio sets the ratio of the focal length in y to the focal length in x.
func (c *Camera) SetAspectRatio(aspectRatio float64) {
	c.intrinsics[AspectRatio] = aspectRatio
}

// AspectRatio returns the ratio of the focal length in y to the focal length in x.
func (c *Camera) AspectRatio() float64 {
	return c.intrinsics[AspectRatio]
}

// SetSkew sets the skew between the x and y pixel axes.
func (c *Camera) SetSkew(skew float64) {
	c.intrinsics[Skew] = skew
}

// Skew returns the skew between the x and y pixel axes.
func (c *Camera) Skew() float64 {
	return c.intrinsics[Skew]
}

// SetPrincipalPoint sets the principal point in pixels.
func (c *Camera) SetPrincipalPoint(principalPointX, principalPointY float64) {
	c.intrinsics[PrincipalPointX] = principalPointX
	c.intrinsics[PrincipalPointY] = principalPointY
}

// PrincipalPointX returns the x coordinate of the principal point.
func (c *Camera) PrincipalPointX() float64 {
	return c.intrinsics[PrincipalPointX]
}

// PrincipalPointY returns the y coordinate of the principal point.
func (c *Camera) PrincipalPointY() float64 {
	return c.intrinsics[PrincipalPointY]
}

// SetRadialDistortion sets the two radial distortion coefficients.
func (c *Camera) SetRadialDistortion(radialDistortion1, radialDistortion2 float64) {
	c.intrinsics[RadialDistortion1] = radialDistortion1
	c.intrinsics[RadialDistortion2] = radialDistortion2
}

// RadialDistortion1 returns the first radial distortion coefficient.
func (c *Camera) RadialDistortion1() float64 {
	return c.intrinsics[RadialDistortion1]
}

// RadialDistortion2 returns the second radial distortion coefficient.
func (c *Camera) RadialDistortion2() float64 {
	return c.intrinsics[RadialDistortion2]
}

// SetImageSize sets the image dimensions in pixels.
func (c *Camera) SetImageSize(imageWidth, imageHeight int) {
	c.imageWidth = imageWidth
	c.imageHeight = imageHeight
}

// ImageWidth returns the image width in pixels.
func (c *Camera) ImageWidth() int {
	return c.imageWidth
}

// ImageHeight returns the image height in pixels.
func (c *Camera) ImageHeight() int {
	return c.imageHeight
}

// Intrinsics returns the intrinsics parameter block for reading. Callers must
// not modify the returned slice; use MutableIntrinsics to write.
func (c *Camera) Intrinsics() []float64 {
	return c.intrinsics[:]
}

// MutableIntrinsics returns the raw intrinsics parameter block for writing.
// Optimizers perturb this block directly; no validation runs on such updates.
func (c *Camera) MutableIntrinsics() []float64 {
	return c.intrinsics[:]
}

// Extrinsics returns the shared extrinsics instance this camera references.
func (c *Camera) Extrinsics() *SharedExtrinsics {
	return c.extrinsics
}

// SetSharedExtrinsics rebinds the camera to a different shared extrinsics
// instance, changing which rig the camera participates in. Intrinsics and the
// shared-to-local offset are unaffected.
func (c *Camera) SetSharedExtrinsics(extrinsics *SharedExtrinsics) {
	if extrinsics == nil {
		panic("camera: shared extrinsics must not be nil")
	}
	c.extrinsics = extrinsics
}

// GetSharedToLocalTransform returns the fixed rotation from the shared rig
// frame to this camera's local frame.
func (c *Camera) GetSharedToLocalTransform() *spatialmath.RotationMatrix {
	return c.sharedToLocal
}

// SetSharedToLocalTransform sets the fixed rotation from the shared rig frame
// to this camera's local frame. This offset is rig calibration; it is not
// touched by pose optimization.
func (c *Camera) SetSharedToLocalTransform(sharedToLocal *spatialmath.RotationMatrix) {
	c.sharedToLocal = sharedToLocal
}
