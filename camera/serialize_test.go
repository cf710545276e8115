package camera

import (
	"bytes"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/reconlab/sfm/spatialmath"
)

func TestSerializeCameraRoundTrip(t *testing.T) {
	src := newTestCamera()
	src.SetRadialDistortion(0.01, 0.001)
	src.SetSharedToLocalTransform(testOffsets[2])

	var buf bytes.Buffer
	test.That(t, NewEncoder(&buf).EncodeCamera(src), test.ShouldBeNil)

	got, err := NewDecoder(&buf).DecodeCamera()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got.Intrinsics(), test.ShouldResemble, src.Intrinsics())
	test.That(t, got.Extrinsics().Extrinsics(), test.ShouldResemble, src.Extrinsics().Extrinsics())
	test.That(t, got.GetSharedToLocalTransform().Values(), test.ShouldResemble,
		src.GetSharedToLocalTransform().Values())
	test.That(t, got.ImageWidth(), test.ShouldEqual, src.ImageWidth())
	test.That(t, got.ImageHeight(), test.ShouldEqual, src.ImageHeight())
	// decoded cameras do not share state with the source
	test.That(t, got.Extrinsics() == src.Extrinsics(), test.ShouldBeFalse)
}

func TestSerializePreservesSharedIdentity(t *testing.T) {
	shared := NewSharedExtrinsics()
	left := NewCameraWithExtrinsics(shared)
	right := NewCameraWithExtrinsics(shared)
	right.SetSharedToLocalTransform(testOffsets[1])
	loner := NewCamera()
	loner.SetPosition(r3.Vector{X: 7, Y: 8, Z: 9})

	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	test.That(t, enc.EncodeCamera(left), test.ShouldBeNil)
	test.That(t, enc.EncodeCamera(right), test.ShouldBeNil)
	test.That(t, enc.EncodeCamera(loner), test.ShouldBeNil)

	dec := NewDecoder(&buf)
	gotLeft, err := dec.DecodeCamera()
	test.That(t, err, test.ShouldBeNil)
	gotRight, err := dec.DecodeCamera()
	test.That(t, err, test.ShouldBeNil)
	gotLoner, err := dec.DecodeCamera()
	test.That(t, err, test.ShouldBeNil)

	// rig-mates come back sharing one instance, not two equal copies
	test.That(t, gotLeft.Extrinsics(), test.ShouldEqual, gotRight.Extrinsics())
	test.That(t, gotLeft.Extrinsics() == gotLoner.Extrinsics(), test.ShouldBeFalse)

	// mutations through one camera stay visible to its rig-mate
	gotLeft.SetPosition(r3.Vector{X: 1, Y: 2, Z: 3})
	test.That(t, gotRight.GetPosition(), test.ShouldResemble, r3.Vector{X: 1, Y: 2, Z: 3})
	test.That(t, gotLoner.GetPosition(), test.ShouldResemble, r3.Vector{X: 7, Y: 8, Z: 9})

	// per-camera offsets survive independently
	test.That(t, spatialmath.MatrixAlmostEqual(
		gotLeft.GetSharedToLocalTransform(), spatialmath.NewIdentityRotationMatrix(), 0), test.ShouldBeTrue)
	test.That(t, spatialmath.MatrixAlmostEqual(
		gotRight.GetSharedToLocalTransform(), testOffsets[1], 0), test.ShouldBeTrue)
}

func TestSerializeSharedExtrinsicsStandalone(t *testing.T) {
	src := NewSharedExtrinsics()
	copy(src.MutableExtrinsics(), []float64{1, 2, 3, 0.1, 0.2, 0.3})

	var buf bytes.Buffer
	test.That(t, NewEncoder(&buf).EncodeSharedExtrinsics(src), test.ShouldBeNil)
	// 6 float64s, nothing else
	test.That(t, buf.Len(), test.ShouldEqual, 48)

	got, err := NewDecoder(&buf).DecodeSharedExtrinsics()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got.Extrinsics(), test.ShouldResemble, src.Extrinsics())
}

func TestDecodeTruncatedStream(t *testing.T) {
	var buf bytes.Buffer
	test.That(t, NewEncoder(&buf).EncodeCamera(newTestCamera()), test.ShouldBeNil)
	truncated := bytes.NewReader(buf.Bytes()[:buf.Len()-4])
	_, err := NewDecoder(truncated).DecodeCamera()
	test.That(t, err, test.ShouldNotBeNil)
}
