package camera

import (
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// Parameters is the JSON form of a camera's intrinsics and image size, used
// to seed a Camera from a calibration file. Extrinsics are pose state, not
// calibration, and are not part of the file format.
type Parameters struct {
	Width            int       `json:"width_px"`
	Height           int       `json:"height_px"`
	FocalLength      float64   `json:"focal_length"`
	AspectRatio      float64   `json:"aspect_ratio"`
	Skew             float64   `json:"skew"`
	PrincipalPointX  float64   `json:"ppx"`
	PrincipalPointY  float64   `json:"ppy"`
	RadialDistortion []float64 `json:"radial_distortion"`
}

// CheckValid checks if the fields for Parameters have valid inputs.
func (params *Parameters) CheckValid() error {
	if params == nil {
		return errors.New("no camera parameters")
	}
	if params.Width <= 0 || params.Height <= 0 {
		return errors.Errorf("invalid image size (%d, %d)", params.Width, params.Height)
	}
	if params.FocalLength == 0 {
		return errors.New("focal length cannot be zero")
	}
	if len(params.RadialDistortion) > 2 {
		return errors.Errorf("expected at most 2 radial distortion coefficients, got %d",
			len(params.RadialDistortion))
	}
	return nil
}

// NewParametersFromJSONFile reads camera parameters from a JSON file.
func NewParametersFromJSONFile(jsonPath string) (*Parameters, error) {
	//nolint:gosec
	jsonFile, err := os.Open(jsonPath)
	if err != nil {
		return nil, errors.Wrap(err, "error opening JSON file")
	}
	defer utils.UncheckedErrorFunc(jsonFile.Close)
	byteValue, err := io.ReadAll(jsonFile)
	if err != nil {
		return nil, errors.Wrap(err, "error reading JSON data")
	}
	params := &Parameters{}
	if err := json.Unmarshal(byteValue, params); err != nil {
		return nil, errors.Wrap(err, "error parsing JSON string")
	}
	return params, nil
}

// WriteJSONFile writes the parameters out as JSON.
func (params *Parameters) WriteJSONFile(jsonPath string) error {
	data, err := json.MarshalIndent(params, "", "  ")
	if err != nil {
		return errors.Wrap(err, "error encoding JSON")
	}
	//nolint:gosec
	return errors.Wrap(os.WriteFile(jsonPath, data, 0o644), "error writing JSON file")
}

// NewCameraFromParameters creates a camera with its own extrinsics and the
// intrinsics and image size from params. An aspect ratio of zero is treated
// as 1. Missing radial distortion coefficients are zero.
func NewCameraFromParameters(params *Parameters) (*Camera, error) {
	if err := params.CheckValid(); err != nil {
		return nil, err
	}
	c := NewCamera()
	c.SetImageSize(params.Width, params.Height)
	c.SetFocalLength(params.FocalLength)
	if params.AspectRatio != 0 {
		c.SetAspectRatio(params.AspectRatio)
	}
	c.SetSkew(params.Skew)
	c.SetPrincipalPoint(params.PrincipalPointX, params.PrincipalPointY)
	k1, k2 := 0.0, 0.0
	if len(params.RadialDistortion) > 0 {
		k1 = params.RadialDistortion[0]
	}
	if len(params.RadialDistortion) > 1 {
		k2 = params.RadialDistortion[1]
	}
	c.SetRadialDistortion(k1, k2)
	logger.Debugw("created camera from parameters",
		"width", params.Width, "height", params.Height, "focal_length", params.FocalLength)
	return c, nil
}
