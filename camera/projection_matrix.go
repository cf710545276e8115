package camera

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/reconlab/sfm/spatialmath"
)

// DecomposeProjectionMatrix decomposes a 3x4 projection matrix into a
// calibration matrix, a world-to-local rotation, and a world position, using
// an RQ decomposition of the leftmost 3x3 block. The calibration matrix comes
// back with a non-negative diagonal and the rotation with determinant +1.
//
// If the leftmost 3x3 block is singular the rotation is still returned but
// the position is not recoverable and comes back as NaN.
func DecomposeProjectionMatrix(pmat mat.Matrix) (*mat.Dense, *spatialmath.RotationMatrix, r3.Vector) {
	rows, cols := pmat.Dims()
	if rows != 3 || cols != 4 {
		panic("camera: projection matrix must be 3x4")
	}
	left := mat.DenseCopyOf(pmat).Slice(0, 3, 0, 3)

	kmat, rotDense := rqDecomposition(mat.DenseCopyOf(left))

	// The RQ factors are only determined up to sign; flip so the calibration
	// diagonal is non-negative.
	for i := 0; i < 3; i++ {
		if kmat.At(i, i) < 0 {
			for j := 0; j < 3; j++ {
				kmat.Set(j, i, -kmat.At(j, i))
				rotDense.Set(i, j, -rotDense.At(i, j))
			}
		}
	}
	// A projection matrix is homogeneous, so negating the whole rotation picks
	// the equivalent factorization with determinant +1.
	if mat.Det(rotDense) < 0 {
		rotDense.Scale(-1, rotDense)
	}
	rotation, err := spatialmath.NewRotationMatrix(rotDense.RawMatrix().Data)
	if err != nil {
		panic(err) // rqDecomposition always yields 9 values
	}

	// The fourth column satisfies p4 = -M * C with M the leftmost block, so
	// the position is independent of how the factor signs were resolved.
	position := r3.Vector{X: math.NaN(), Y: math.NaN(), Z: math.NaN()}
	p4 := mat.NewVecDense(3, []float64{-pmat.At(0, 3), -pmat.At(1, 3), -pmat.At(2, 3)})
	var center mat.VecDense
	if err := center.SolveVec(left, p4); err == nil {
		position = r3.Vector{X: center.AtVec(0), Y: center.AtVec(1), Z: center.AtVec(2)}
	} else {
		logger.Debugw("projection matrix has singular left block, position unrecoverable", "error", err)
	}
	return kmat, rotation, position
}

// rqDecomposition factors a into an upper triangular matrix times an
// orthogonal matrix by running a QR decomposition on the row-reversed
// transpose.
func rqDecomposition(a *mat.Dense) (*mat.Dense, *mat.Dense) {
	flip := mat.NewDense(3, 3, []float64{0, 0, 1, 0, 1, 0, 1, 0, 0})

	var reversed mat.Dense
	reversed.Mul(flip, a)

	var qr mat.QR
	qr.Factorize(reversed.T())
	var qmat, rmat mat.Dense
	qr.QTo(&qmat)
	qr.RTo(&rmat)

	// a = (flip * r^T * flip) * (flip * q^T); the first factor is upper
	// triangular and the second is orthogonal.
	var flipped, upper, ortho mat.Dense
	flipped.Mul(flip, rmat.T())
	upper.Mul(&flipped, flip)
	ortho.Mul(flip, qmat.T())
	return &upper, &ortho
}

// ComposeProjectionMatrix composes the 3x4 projection matrix
// K * R * [I | -C] from a calibration matrix, a world-to-local rotation, and
// a world position.
func ComposeProjectionMatrix(kmat *mat.Dense, rotation *spatialmath.RotationMatrix, position r3.Vector) *mat.Dense {
	rotDense := mat.NewDense(3, 3, rotation.Values())
	var kr mat.Dense
	kr.Mul(kmat, rotDense)

	translation := rotation.RotateVector(position.Mul(-1))
	krt := mat.NewVecDense(3, []float64{translation.X, translation.Y, translation.Z})
	var kt mat.VecDense
	kt.MulVec(kmat, krt)

	pmat := mat.NewDense(3, 4, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			pmat.Set(i, j, kr.At(i, j))
		}
		pmat.Set(i, 3, kt.AtVec(i))
	}
	return pmat
}

// IntrinsicsToCalibrationMatrix builds the calibration matrix from the
// individual intrinsic fields.
func IntrinsicsToCalibrationMatrix(focalLength, skew, aspectRatio, ppx, ppy float64) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		focalLength, skew, ppx,
		0, focalLength * aspectRatio, ppy,
		0, 0, 1,
	})
}

// CalibrationMatrixToIntrinsics extracts the intrinsic fields from a
// calibration matrix, normalizing by the lower-right term. An error is
// returned when a focal length term is zero; intrinsics cannot be derived
// from such a matrix.
func CalibrationMatrixToIntrinsics(kmat *mat.Dense) (focalLength, skew, aspectRatio, ppx, ppy float64, err error) {
	scale := kmat.At(2, 2)
	if scale == 0 {
		return 0, 0, 0, 0, 0, errors.New("calibration matrix is not normalizable")
	}
	if kmat.At(0, 0) == 0 || kmat.At(1, 1) == 0 {
		return 0, 0, 0, 0, 0, errors.New("cannot set focal lengths to zero")
	}
	focalLength = kmat.At(0, 0) / scale
	skew = kmat.At(0, 1) / scale
	aspectRatio = kmat.At(1, 1) / kmat.At(0, 0)
	ppx = kmat.At(0, 2) / scale
	ppy = kmat.At(1, 2) / scale
	return focalLength, skew, aspectRatio, ppx, ppy, nil
}
