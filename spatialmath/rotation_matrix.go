package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"
)

// RotationMatrix is a 3x3 matrix in row major order.
// m[3*r + c] is the element at row r, column c.
type RotationMatrix struct {
	mat [9]float64
}

// NewRotationMatrix creates the rotation matrix from a slice of floats in row
// major order.
func NewRotationMatrix(m []float64) (*RotationMatrix, error) {
	if len(m) != 9 {
		return nil, errors.Errorf("input slice has %d elements, need exactly 9", len(m))
	}
	mat := [9]float64{m[0], m[1], m[2], m[3], m[4], m[5], m[6], m[7], m[8]}
	return &RotationMatrix{mat}, nil
}

// NewIdentityRotationMatrix returns the identity rotation.
func NewIdentityRotationMatrix() *RotationMatrix {
	return &RotationMatrix{[9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}}
}

// At returns the float corresponding to the element at row r, column c.
func (rm *RotationMatrix) At(row, col int) float64 {
	return rm.mat[3*row+col]
}

// Row returns the a specified row of the matrix.
func (rm *RotationMatrix) Row(row int) r3.Vector {
	return r3.Vector{X: rm.mat[3*row], Y: rm.mat[3*row+1], Z: rm.mat[3*row+2]}
}

// Values returns the values of the matrix in row major order as a new slice,
// usable as input to NewRotationMatrix.
func (rm *RotationMatrix) Values() []float64 {
	values := make([]float64, 9)
	copy(values, rm.mat[:])
	return values
}

// Mul returns the matrix product rm * other.
func (rm *RotationMatrix) Mul(other *RotationMatrix) *RotationMatrix {
	var out [9]float64
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			sum := 0.0
			for k := 0; k < 3; k++ {
				sum += rm.mat[3*r+k] * other.mat[3*k+c]
			}
			out[3*r+c] = sum
		}
	}
	return &RotationMatrix{out}
}

// Transpose returns the transpose of the matrix, which for a rotation matrix
// is also its inverse.
func (rm *RotationMatrix) Transpose() *RotationMatrix {
	m := rm.mat
	return &RotationMatrix{[9]float64{m[0], m[3], m[6], m[1], m[4], m[7], m[2], m[5], m[8]}}
}

// RotateVector returns the vector rotated by the matrix.
func (rm *RotationMatrix) RotateVector(v r3.Vector) r3.Vector {
	return r3.Vector{
		X: rm.mat[0]*v.X + rm.mat[1]*v.Y + rm.mat[2]*v.Z,
		Y: rm.mat[3]*v.X + rm.mat[4]*v.Y + rm.mat[5]*v.Z,
		Z: rm.mat[6]*v.X + rm.mat[7]*v.Y + rm.mat[8]*v.Z,
	}
}

// AxisAngles returns the orientation in axis angle representation.
func (rm *RotationMatrix) AxisAngles() *R4AA {
	return QuatToR4AA(rm.Quaternion())
}

// RotationMatrix returns the orientation in rotation matrix representation.
func (rm *RotationMatrix) RotationMatrix() *RotationMatrix {
	return rm
}

// Quaternion returns the orientation in quaternion representation. The branch
// is chosen by the largest diagonal term to keep the conversion stable.
// See: https://www.euclideanspace.com/maths/geometry/rotations/conversions/matrixToQuaternion/
func (rm *RotationMatrix) Quaternion() quat.Number {
	m := rm.mat
	tr := m[0] + m[4] + m[8]
	switch {
	case tr > 0:
		s := 2 * math.Sqrt(tr+1)
		return quat.Number{
			Real: 0.25 * s,
			Imag: (m[7] - m[5]) / s,
			Jmag: (m[2] - m[6]) / s,
			Kmag: (m[3] - m[1]) / s,
		}
	case m[0] > m[4] && m[0] > m[8]:
		s := 2 * math.Sqrt(1+m[0]-m[4]-m[8])
		return quat.Number{
			Real: (m[7] - m[5]) / s,
			Imag: 0.25 * s,
			Jmag: (m[1] + m[3]) / s,
			Kmag: (m[2] + m[6]) / s,
		}
	case m[4] > m[8]:
		s := 2 * math.Sqrt(1+m[4]-m[0]-m[8])
		return quat.Number{
			Real: (m[2] - m[6]) / s,
			Imag: (m[1] + m[3]) / s,
			Jmag: 0.25 * s,
			Kmag: (m[5] + m[7]) / s,
		}
	default:
		s := 2 * math.Sqrt(1+m[8]-m[0]-m[4])
		return quat.Number{
			Real: (m[3] - m[1]) / s,
			Imag: (m[2] + m[6]) / s,
			Jmag: (m[5] + m[7]) / s,
			Kmag: 0.25 * s,
		}
	}
}

// QuatToRotationMatrix converts a unit quaternion to a rotation matrix such
// that RotateVector matches QuatRotateVector.
func QuatToRotationMatrix(q quat.Number) *RotationMatrix {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	mat := [9]float64{
		1 - 2*y*y - 2*z*z, 2*x*y - 2*z*w, 2*x*z + 2*y*w,
		2*x*y + 2*z*w, 1 - 2*x*x - 2*z*z, 2*y*z - 2*x*w,
		2*x*z - 2*y*w, 2*y*z + 2*x*w, 1 - 2*x*x - 2*y*y,
	}
	return &RotationMatrix{mat}
}

// MatrixAlmostEqual returns whether two rotation matrices are equal within the
// given tolerance, elementwise.
func MatrixAlmostEqual(a, b *RotationMatrix, tol float64) bool {
	for i := 0; i < 9; i++ {
		if math.Abs(a.mat[i]-b.mat[i]) > tol {
			return false
		}
	}
	return true
}
