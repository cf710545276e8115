package camera

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/reconlab/sfm/spatialmath"
)

// Binary layout, little-endian, field order fixed as a compatibility
// contract:
//
//	Camera:            7 float64 intrinsics, shared extrinsics reference,
//	                   9 float64 row-major shared-to-local rotation,
//	                   2 int32 image size (width then height)
//	SharedExtrinsics:  6 float64
//
// A shared extrinsics reference is a uint32 tag. The first time an instance
// is seen it is assigned the next id, written with the high bit set and
// followed by its 6-value block; later references to the same instance write
// the bare id. Cameras that share one SharedExtrinsics therefore decode back
// into cameras sharing one instance rather than two copies.

const newSharedExtrinsicsFlag = uint32(1) << 31

// An Encoder writes cameras and shared extrinsics to a stream, preserving
// shared-reference identity across everything written through it.
type Encoder struct {
	w   io.Writer
	ids map[*SharedExtrinsics]uint32
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w, ids: map[*SharedExtrinsics]uint32{}}
}

// EncodeCamera writes the camera's full persisted form.
func (e *Encoder) EncodeCamera(c *Camera) error {
	if err := binary.Write(e.w, binary.LittleEndian, c.intrinsics[:]); err != nil {
		return errors.Wrap(err, "encoding intrinsics")
	}
	if err := e.encodeSharedRef(c.extrinsics); err != nil {
		return err
	}
	if err := binary.Write(e.w, binary.LittleEndian, c.sharedToLocal.Values()); err != nil {
		return errors.Wrap(err, "encoding shared-to-local rotation")
	}
	size := [2]int32{int32(c.imageWidth), int32(c.imageHeight)}
	if err := binary.Write(e.w, binary.LittleEndian, size[:]); err != nil {
		return errors.Wrap(err, "encoding image size")
	}
	return nil
}

// EncodeSharedExtrinsics writes a standalone shared extrinsics block.
func (e *Encoder) EncodeSharedExtrinsics(se *SharedExtrinsics) error {
	if err := binary.Write(e.w, binary.LittleEndian, se.parameters[:]); err != nil {
		return errors.Wrap(err, "encoding extrinsics")
	}
	return nil
}

func (e *Encoder) encodeSharedRef(se *SharedExtrinsics) error {
	if id, seen := e.ids[se]; seen {
		if err := binary.Write(e.w, binary.LittleEndian, id); err != nil {
			return errors.Wrap(err, "encoding extrinsics reference")
		}
		return nil
	}
	id := uint32(len(e.ids) + 1)
	e.ids[se] = id
	if err := binary.Write(e.w, binary.LittleEndian, id|newSharedExtrinsicsFlag); err != nil {
		return errors.Wrap(err, "encoding extrinsics reference")
	}
	return e.EncodeSharedExtrinsics(se)
}

// A Decoder reads cameras and shared extrinsics written by an Encoder,
// rebuilding shared-reference identity.
type Decoder struct {
	r    io.Reader
	refs map[uint32]*SharedExtrinsics
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r, refs: map[uint32]*SharedExtrinsics{}}
}

// DecodeCamera reads one camera.
func (d *Decoder) DecodeCamera() (*Camera, error) {
	var intrinsics [IntrinsicsSize]float64
	if err := binary.Read(d.r, binary.LittleEndian, intrinsics[:]); err != nil {
		return nil, errors.Wrap(err, "decoding intrinsics")
	}
	extrinsics, err := d.decodeSharedRef()
	if err != nil {
		return nil, err
	}
	rotationValues := make([]float64, 9)
	if err := binary.Read(d.r, binary.LittleEndian, rotationValues); err != nil {
		return nil, errors.Wrap(err, "decoding shared-to-local rotation")
	}
	rotation, err := spatialmath.NewRotationMatrix(rotationValues)
	if err != nil {
		return nil, errors.Wrap(err, "decoding shared-to-local rotation")
	}
	var size [2]int32
	if err := binary.Read(d.r, binary.LittleEndian, size[:]); err != nil {
		return nil, errors.Wrap(err, "decoding image size")
	}

	c := NewCameraWithExtrinsics(extrinsics)
	c.intrinsics = intrinsics
	c.sharedToLocal = rotation
	c.SetImageSize(int(size[0]), int(size[1]))
	return c, nil
}

// DecodeSharedExtrinsics reads one standalone shared extrinsics block.
func (d *Decoder) DecodeSharedExtrinsics() (*SharedExtrinsics, error) {
	se := NewSharedExtrinsics()
	if err := binary.Read(d.r, binary.LittleEndian, se.parameters[:]); err != nil {
		return nil, errors.Wrap(err, "decoding extrinsics")
	}
	return se, nil
}

func (d *Decoder) decodeSharedRef() (*SharedExtrinsics, error) {
	var tag uint32
	if err := binary.Read(d.r, binary.LittleEndian, &tag); err != nil {
		return nil, errors.Wrap(err, "decoding extrinsics reference")
	}
	if tag&newSharedExtrinsicsFlag == 0 {
		se, known := d.refs[tag]
		if !known {
			return nil, errors.Errorf("reference to unknown shared extrinsics id %d", tag)
		}
		return se, nil
	}
	se, err := d.DecodeSharedExtrinsics()
	if err != nil {
		return nil, err
	}
	d.refs[tag&^newSharedExtrinsicsFlag] = se
	return se, nil
}
