// Package camera holds the registry of supported camera models and validates
// configured camera parameters against it.
package camera

import "slices"

// Model identifiers. The values match the ids stored in the cameras table.
const (
	InvalidModelID        = -1
	SimplePinholeID       = 0
	PinholeID             = 1
	SimpleRadialID        = 2
	RadialID              = 3
	OpenCVID              = 4
	OpenCVFisheyeID       = 5
	FullOpenCVID          = 6
	FOVID                 = 7
	SimpleRadialFisheyeID = 8
	RadialFisheyeID       = 9
	ThinPrismFisheyeID    = 10
)

// Model describes a parametric camera model
type Model struct {
	ID         int
	Name       string
	NumParams  int
	ParamsInfo string // comma-separated parameter names, in storage order

	focalIdxs     []int
	principalIdxs []int
}

var models = []Model{
	{SimplePinholeID, "SIMPLE_PINHOLE", 3, "f, cx, cy", []int{0}, []int{1, 2}},
	{PinholeID, "PINHOLE", 4, "fx, fy, cx, cy", []int{0, 1}, []int{2, 3}},
	{SimpleRadialID, "SIMPLE_RADIAL", 3, "f, cx, cy", []int{0}, []int{1, 2}},
	{RadialID, "RADIAL", 5, "f, cx, cy, k1, k2", []int{0}, []int{1, 2}},
	{OpenCVID, "OPENCV", 8, "fx, fy, cx, cy, k1, k2, p1, p2", []int{0, 1}, []int{2, 3}},
	{OpenCVFisheyeID, "OPENCV_FISHEYE", 8, "fx, fy, cx, cy, k1, k2, k3, k4", []int{0, 1}, []int{2, 3}},
	{FullOpenCVID, "FULL_OPENCV", 12, "fx, fy, cx, cy, k1, k2, p1, p2, k3, k4, k5, k6", []int{0, 1}, []int{2, 3}},
	{FOVID, "FOV", 5, "fx, fy, cx, cy, omega", []int{0, 1}, []int{2, 3}},
	{SimpleRadialFisheyeID, "SIMPLE_RADIAL_FISHEYE", 4, "f, cx, cy, k", []int{0}, []int{1, 2}},
	{RadialFisheyeID, "RADIAL_FISHEYE", 5, "f, cx, cy, k1, k2", []int{0}, []int{1, 2}},
	{ThinPrismFisheyeID, "THIN_PRISM_FISHEYE", 12, "fx, fy, cx, cy, k1, k2, p1, p2, k3, k4, sx1, sy1", []int{0, 1}, []int{2, 3}},
}

var (
	modelsByName = make(map[string]Model, len(models))
	modelsByID   = make(map[int]Model, len(models))
)

func init() {
	for _, m := range models {
		modelsByName[m.Name] = m
		modelsByID[m.ID] = m
	}
}

// Lookup returns the model registered under name. Names are case sensitive.
func Lookup(name string) (Model, bool) {
	m, ok := modelsByName[name]
	return m, ok
}

// ModelNameToID returns the id of the named model, or InvalidModelID
func ModelNameToID(name string) (int, bool) {
	m, ok := modelsByName[name]
	if !ok {
		return InvalidModelID, false
	}
	return m.ID, true
}

// ModelIDToName returns the name of the model with the given id, or an empty string
func ModelIDToName(id int) string {
	return modelsByID[id].Name
}

// NumParams returns the parameter count of the model with the given id, or -1
func NumParams(id int) int {
	m, ok := modelsByID[id]
	if !ok {
		return -1
	}
	return m.NumParams
}

// Names lists the registered model names in id order
func Names() []string {
	names := make([]string, 0, len(models))
	for _, m := range models {
		names = append(names, m.Name)
	}
	return names
}

// FocalLengthIdxs returns the indices of the focal length parameters
func (m Model) FocalLengthIdxs() []int {
	return slices.Clone(m.focalIdxs)
}

// PrincipalPointIdxs returns the indices of the principal point parameters
func (m Model) PrincipalPointIdxs() []int {
	return slices.Clone(m.principalIdxs)
}

// InitialParams returns the default parameter vector for an image of the given
// size: every focal length set to focalLength, the principal point at the image
// centre and all distortion terms zero.
func (m Model) InitialParams(focalLength float64, width, height int) []float64 {
	params := make([]float64, m.NumParams)
	for _, idx := range m.focalIdxs {
		params[idx] = focalLength
	}
	params[m.principalIdxs[0]] = float64(width) / 2
	params[m.principalIdxs[1]] = float64(height) / 2
	return params
}
