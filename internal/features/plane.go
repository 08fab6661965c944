package features

import (
	"image"
	"math"
)

// plane is a single-channel float image with intensities in [0, 1]
type plane struct {
	w, h int
	pix  []float32
}

func newPlane(w, h int) plane {
	return plane{w: w, h: h, pix: make([]float32, w*h)}
}

func planeFromGray(img *image.Gray) plane {
	b := img.Bounds()
	p := newPlane(b.Dx(), b.Dy())
	for y := range p.h {
		off := img.PixOffset(b.Min.X, b.Min.Y+y)
		row := img.Pix[off : off+p.w]
		for x, v := range row {
			p.pix[y*p.w+x] = float32(v) / 255
		}
	}
	return p
}

// at clamps the coordinates to the plane border
func (p plane) at(x, y int) float32 {
	x = min(max(x, 0), p.w-1)
	y = min(max(y, 0), p.h-1)
	return p.pix[y*p.w+x]
}

func (p plane) gradient(x, y int) (gx, gy float64) {
	gx = float64(p.at(x+1, y) - p.at(x-1, y))
	gy = float64(p.at(x, y+1) - p.at(x, y-1))
	return gx, gy
}

func (p plane) sub(o plane) plane {
	out := newPlane(p.w, p.h)
	for i := range out.pix {
		out.pix[i] = p.pix[i] - o.pix[i]
	}
	return out
}

// halve downsamples by two with a 2x2 box filter
func (p plane) halve() plane {
	out := newPlane(max(1, p.w/2), max(1, p.h/2))
	for y := range out.h {
		for x := range out.w {
			out.pix[y*out.w+x] = (p.at(2*x, 2*y) + p.at(2*x+1, 2*y) +
				p.at(2*x, 2*y+1) + p.at(2*x+1, 2*y+1)) / 4
		}
	}
	return out
}

// double upsamples by two with bilinear interpolation
func (p plane) double() plane {
	out := newPlane(p.w*2, p.h*2)
	for y := range out.h {
		sy := float64(y) / 2
		y0 := int(sy)
		fy := float32(sy - float64(y0))
		for x := range out.w {
			sx := float64(x) / 2
			x0 := int(sx)
			fx := float32(sx - float64(x0))
			top := p.at(x0, y0)*(1-fx) + p.at(x0+1, y0)*fx
			bottom := p.at(x0, y0+1)*(1-fx) + p.at(x0+1, y0+1)*fx
			out.pix[y*out.w+x] = top*(1-fy) + bottom*fy
		}
	}
	return out
}

// blur applies a separable Gaussian with standard deviation sigma
func (p plane) blur(sigma float64) plane {
	radius := max(1, int(math.Ceil(3*sigma)))
	kernel := make([]float32, 2*radius+1)
	var sum float32
	for i := range kernel {
		d := float64(i - radius)
		kernel[i] = float32(math.Exp(-d * d / (2 * sigma * sigma)))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}

	tmp := newPlane(p.w, p.h)
	for y := range p.h {
		for x := range p.w {
			var acc float32
			for i, k := range kernel {
				acc += k * p.at(x+i-radius, y)
			}
			tmp.pix[y*p.w+x] = acc
		}
	}
	out := newPlane(p.w, p.h)
	for y := range p.h {
		for x := range p.w {
			var acc float32
			for i, k := range kernel {
				acc += k * tmp.at(x, y+i-radius)
			}
			out.pix[y*p.w+x] = acc
		}
	}
	return out
}
