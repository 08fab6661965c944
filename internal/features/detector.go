package features

import (
	"cmp"
	"image"
	"math"
	"slices"
)

// DescriptorDim is the length of one descriptor row
const DescriptorDim = 128

const (
	baseSigma          = 1.6
	minOctaveSize      = 16
	orientationBins    = 36
	orientationPeak    = 0.8
	descriptorCells    = 4
	descriptorBins     = 8
	descriptorClamp    = 0.2
	descriptorByteGain = 512
)

// Keypoint is a detected feature in the coordinates of the decoded image
type Keypoint struct {
	X           float32
	Y           float32
	Scale       float32
	Orientation float32
}

// Features are the keypoints of one image and their descriptors, one
// DescriptorDim-byte row per keypoint.
type Features struct {
	Keypoints   []Keypoint
	Descriptors []uint8
}

// Len returns the number of features
func (f *Features) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Keypoints)
}

// Detector finds scale-space extrema of a difference-of-Gaussians pyramid and
// describes them with gradient orientation histograms.
type Detector struct {
	opts SiftOptions
}

// NewDetector validates opts and returns a detector bound to them
func NewDetector(opts SiftOptions) (*Detector, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Detector{opts: opts}, nil
}

// Options returns the options of the detector
func (d *Detector) Options() SiftOptions {
	return d.opts
}

type candidate struct {
	gauss    plane
	x, y     int
	sigma    float64
	response float64
	scale    float64 // octave to image coordinates
}

// Extract detects at most MaxNumFeatures features in img, strongest first.
// The result is deterministic for a given image and options.
func (d *Detector) Extract(img *image.Gray) *Features {
	cands := d.detect(planeFromGray(img))
	slices.SortStableFunc(cands, func(a, b candidate) int {
		return cmp.Compare(b.response, a.response)
	})

	limit := d.opts.MaxNumFeatures
	out := &Features{
		Keypoints:   make([]Keypoint, 0, min(limit, len(cands))),
		Descriptors: make([]uint8, 0, min(limit, len(cands))*DescriptorDim),
	}
	for _, c := range cands {
		for _, ori := range d.orientations(c) {
			if len(out.Keypoints) == limit {
				return out
			}
			out.Keypoints = append(out.Keypoints, Keypoint{
				X:           float32(float64(c.x) * c.scale),
				Y:           float32(float64(c.y) * c.scale),
				Scale:       float32(c.sigma * c.scale),
				Orientation: float32(ori),
			})
			out.Descriptors = append(out.Descriptors, d.describe(c, ori)...)
		}
	}
	return out
}

func (d *Detector) detect(base plane) []candidate {
	scale := 1.0
	for i := d.opts.FirstOctave; i < 0; i++ {
		base = base.double()
		scale /= 2
	}
	for i := 0; i < d.opts.FirstOctave; i++ {
		base = base.halve()
		scale *= 2
	}

	levels := d.opts.OctaveResolution + 3
	k := math.Pow(2, 1/float64(d.opts.OctaveResolution))

	var cands []candidate
	for range d.opts.NumOctaves {
		if base.w < minOctaveSize || base.h < minOctaveSize {
			break
		}

		gauss := make([]plane, levels)
		for i := range gauss {
			gauss[i] = base.blur(baseSigma * math.Pow(k, float64(i)))
		}
		dog := make([]plane, levels-1)
		for i := range dog {
			dog[i] = gauss[i+1].sub(gauss[i])
		}

		for s := 1; s < len(dog)-1; s++ {
			for y := 1; y < base.h-1; y++ {
				for x := 1; x < base.w-1; x++ {
					v := dog[s].at(x, y)
					if math.Abs(float64(v)) < d.opts.PeakThreshold {
						continue
					}
					if !isExtremum(dog, s, x, y, v) || onEdge(dog[s], x, y, d.opts.EdgeThreshold) {
						continue
					}
					cands = append(cands, candidate{
						gauss:    gauss[s],
						x:        x,
						y:        y,
						sigma:    baseSigma * math.Pow(k, float64(s)),
						response: math.Abs(float64(v)),
						scale:    scale,
					})
				}
			}
		}

		base = base.halve()
		scale *= 2
	}
	return cands
}

func isExtremum(dog []plane, s, x, y int, v float32) bool {
	isMax, isMin := true, true
	for ds := -1; ds <= 1; ds++ {
		p := dog[s+ds]
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if ds == 0 && dx == 0 && dy == 0 {
					continue
				}
				n := p.at(x+dx, y+dy)
				if n >= v {
					isMax = false
				}
				if n <= v {
					isMin = false
				}
				if !isMax && !isMin {
					return false
				}
			}
		}
	}
	return true
}

// onEdge rejects responses whose principal curvature ratio exceeds r
func onEdge(p plane, x, y int, r float64) bool {
	v := float64(p.at(x, y))
	dxx := float64(p.at(x+1, y)) + float64(p.at(x-1, y)) - 2*v
	dyy := float64(p.at(x, y+1)) + float64(p.at(x, y-1)) - 2*v
	dxy := (float64(p.at(x+1, y+1)) - float64(p.at(x+1, y-1)) -
		float64(p.at(x-1, y+1)) + float64(p.at(x-1, y-1))) / 4
	tr := dxx + dyy
	det := dxx*dyy - dxy*dxy
	if det <= 0 {
		return true
	}
	return tr*tr*r >= (r+1)*(r+1)*det
}

// orientations returns up to MaxNumOrientations dominant gradient directions
// around c, strongest first.
func (d *Detector) orientations(c candidate) []float64 {
	if d.opts.Upright {
		return []float64{0}
	}

	var hist [orientationBins]float64
	sigma := 1.5 * c.sigma
	radius := int(math.Round(3 * sigma))
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			x, y := c.x+dx, c.y+dy
			if x < 1 || y < 1 || x >= c.gauss.w-1 || y >= c.gauss.h-1 {
				continue
			}
			gx, gy := c.gauss.gradient(x, y)
			mag := math.Hypot(gx, gy)
			if mag == 0 {
				continue
			}
			w := math.Exp(-float64(dx*dx+dy*dy) / (2 * sigma * sigma))
			bin := int(angle(gx, gy)/(2*math.Pi)*orientationBins) % orientationBins
			hist[bin] += w * mag
		}
	}

	for range 2 {
		var smoothed [orientationBins]float64
		for i := range hist {
			prev := hist[(i+orientationBins-1)%orientationBins]
			next := hist[(i+1)%orientationBins]
			smoothed[i] = (prev + hist[i] + next) / 3
		}
		hist = smoothed
	}

	peak := slices.Max(hist[:])
	if peak == 0 {
		return []float64{0}
	}

	type orientation struct {
		angle, mag float64
	}
	var found []orientation
	for i, v := range hist {
		prev := hist[(i+orientationBins-1)%orientationBins]
		next := hist[(i+1)%orientationBins]
		if v < orientationPeak*peak || v <= prev || v < next {
			continue
		}
		// parabolic interpolation of the peak position
		offset := 0.5 * (prev - next) / (prev - 2*v + next)
		a := (float64(i) + 0.5 + offset) * 2 * math.Pi / orientationBins
		found = append(found, orientation{angle: math.Mod(a+2*math.Pi, 2*math.Pi), mag: v})
	}
	slices.SortStableFunc(found, func(a, b orientation) int { return cmp.Compare(b.mag, a.mag) })

	n := min(len(found), d.opts.MaxNumOrientations)
	out := make([]float64, n)
	for i := range n {
		out[i] = found[i].angle
	}
	return out
}

// describe builds the 4x4x8 gradient histogram descriptor of c rotated by ori
func (d *Detector) describe(c candidate, ori float64) []uint8 {
	var hist [descriptorCells * descriptorCells * descriptorBins]float64

	cellWidth := 3 * c.sigma
	radius := int(math.Ceil(cellWidth * math.Sqrt2 * (descriptorCells + 1) / 2))
	cosO, sinO := math.Cos(ori), math.Sin(ori)
	half := float64(descriptorCells) / 2

	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			x, y := c.x+dx, c.y+dy
			if x < 1 || y < 1 || x >= c.gauss.w-1 || y >= c.gauss.h-1 {
				continue
			}
			rx := (cosO*float64(dx) + sinO*float64(dy)) / cellWidth
			ry := (-sinO*float64(dx) + cosO*float64(dy)) / cellWidth
			bx := rx + half - 0.5
			by := ry + half - 0.5
			if bx <= -1 || by <= -1 || bx >= descriptorCells || by >= descriptorCells {
				continue
			}

			gx, gy := c.gauss.gradient(x, y)
			mag := math.Hypot(gx, gy)
			if mag == 0 {
				continue
			}
			theta := math.Mod(angle(gx, gy)-ori+4*math.Pi, 2*math.Pi)
			bo := theta / (2 * math.Pi) * descriptorBins
			w := mag * math.Exp(-(rx*rx+ry*ry)/(2*half*half))

			x0, y0, o0 := math.Floor(bx), math.Floor(by), math.Floor(bo)
			fx, fy, fo := bx-x0, by-y0, bo-o0
			for iy := range 2 {
				cy := int(y0) + iy
				if cy < 0 || cy >= descriptorCells {
					continue
				}
				wy := w * lerpWeight(fy, iy)
				for ix := range 2 {
					cx := int(x0) + ix
					if cx < 0 || cx >= descriptorCells {
						continue
					}
					wx := wy * lerpWeight(fx, ix)
					for io := range 2 {
						co := (int(o0) + io) % descriptorBins
						hist[(cy*descriptorCells+cx)*descriptorBins+co] += wx * lerpWeight(fo, io)
					}
				}
			}
		}
	}

	d.normalize(hist[:])

	out := make([]uint8, DescriptorDim)
	for i, v := range hist {
		out[i] = uint8(min(255, math.Round(descriptorByteGain*v)))
	}
	return out
}

func (d *Detector) normalize(desc []float64) {
	switch d.opts.Normalization {
	case NormalizationL2:
		l2Normalize(desc)
		for i, v := range desc {
			desc[i] = min(v, descriptorClamp)
		}
		l2Normalize(desc)
	default:
		var sum float64
		for _, v := range desc {
			sum += math.Abs(v)
		}
		if sum == 0 {
			return
		}
		for i, v := range desc {
			desc[i] = math.Sqrt(math.Abs(v) / sum)
		}
	}
}

func l2Normalize(v []float64) {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return
	}
	n := math.Sqrt(sum)
	for i := range v {
		v[i] /= n
	}
}

func lerpWeight(frac float64, i int) float64 {
	if i == 0 {
		return 1 - frac
	}
	return frac
}

// angle returns the direction of (gx, gy) in [0, 2π)
func angle(gx, gy float64) float64 {
	a := math.Atan2(gy, gx)
	if a < 0 {
		a += 2 * math.Pi
	}
	if a >= 2*math.Pi {
		a = 0
	}
	return a
}
