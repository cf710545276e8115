package camera

// Indices into the flat extrinsics parameter block. Collecting the pose into a
// single contiguous array keeps the interface to nonlinear optimizers simple:
// the whole block can be handed over as one parameter vector.
const (
	// ExtrinsicsPosition is the index of the rig center in world coordinates (3 values).
	ExtrinsicsPosition = 0
	// ExtrinsicsOrientation is the index of the world-to-shared rotation as a
	// compact angle-axis vector (3 values).
	ExtrinsicsOrientation = 3
)

// ExtrinsicsSize is the number of values in an extrinsics parameter block.
const ExtrinsicsSize = 6

// SharedExtrinsics holds the rigid pose of a camera rig: the rig center in
// world coordinates and the world-to-shared-frame rotation in angle-axis form.
// Multiple Camera instances may point at one SharedExtrinsics, in which case
// they form a rigid rig and move together. Pointer identity, not value
// equality, determines whether two cameras share a rig.
//
// It is a pure storage primitive: no validation is performed on the values.
type SharedExtrinsics struct {
	parameters [ExtrinsicsSize]float64
}

// NewSharedExtrinsics returns a zeroed pose: identity orientation at the world origin.
func NewSharedExtrinsics() *SharedExtrinsics {
	return &SharedExtrinsics{}
}

// Extrinsics returns the parameter block for reading. Callers must not modify
// the returned slice; use MutableExtrinsics to write.
func (se *SharedExtrinsics) Extrinsics() []float64 {
	return se.parameters[:]
}

// MutableExtrinsics returns the raw parameter block for writing. Optimizers
// perturb this block directly; no validation runs on such updates.
func (se *SharedExtrinsics) MutableExtrinsics() []float64 {
	return se.parameters[:]
}
