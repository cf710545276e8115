package camera

import (
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// TriangulatePoint recovers the homogeneous world point observed at the given
// pixel in each camera, by the linear (DLT) method: each observation
// contributes two rows to a homogeneous system built from the cameras'
// projection matrices, and the point is the smallest singular vector.
//
// Projection matrices are linear, so radial distortion is not modeled here;
// undistort observations first for cameras with distortion.
func TriangulatePoint(cameras []*Camera, pixels []r2.Point) ([4]float64, error) {
	if len(cameras) != len(pixels) {
		return [4]float64{}, errors.Errorf("have %d cameras but %d pixels", len(cameras), len(pixels))
	}
	if len(cameras) < 2 {
		return [4]float64{}, errors.New("triangulation needs at least two views")
	}

	a := mat.NewDense(2*len(cameras), 4, nil)
	for i, c := range cameras {
		pmat := c.GetProjectionMatrix()
		for j := 0; j < 4; j++ {
			a.Set(2*i, j, pixels[i].X*pmat.At(2, j)-pmat.At(0, j))
			a.Set(2*i+1, j, pixels[i].Y*pmat.At(2, j)-pmat.At(1, j))
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return [4]float64{}, errors.New("failed to factorize triangulation system")
	}
	var v mat.Dense
	svd.VTo(&v)

	// smallest singular vector, scaled to unit homogeneous weight
	var point [4]float64
	w := v.At(3, 3)
	if w == 0 {
		return [4]float64{}, errors.New("triangulated point is at infinity")
	}
	for j := 0; j < 4; j++ {
		point[j] = v.At(j, 3) / w
	}
	return point, nil
}
