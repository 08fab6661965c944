package features

import (
	"encoding/binary"
	"math"

	"github.com/tphakala/sift-go/internal/datastore"
)

// keypointCols is the number of float32 columns stored per keypoint: x, y, scale, orientation
const keypointCols = 4

// ToRecords converts features into their database rows
func (f *Features) ToRecords() (*datastore.Keypoints, *datastore.Descriptors) {
	data := make([]byte, 0, len(f.Keypoints)*keypointCols*4)
	for _, kp := range f.Keypoints {
		for _, v := range [keypointCols]float32{kp.X, kp.Y, kp.Scale, kp.Orientation} {
			data = binary.LittleEndian.AppendUint32(data, math.Float32bits(v))
		}
	}
	keypoints := &datastore.Keypoints{
		Rows: len(f.Keypoints),
		Cols: keypointCols,
		Data: data,
	}
	descriptors := &datastore.Descriptors{
		Rows: len(f.Keypoints),
		Cols: DescriptorDim,
		Data: f.Descriptors,
	}
	return keypoints, descriptors
}

// DecodeKeypoints reads keypoints back from their database row
func DecodeKeypoints(rec *datastore.Keypoints) []Keypoint {
	if rec == nil || rec.Cols != keypointCols || len(rec.Data) < rec.Rows*keypointCols*4 {
		return nil
	}
	out := make([]Keypoint, rec.Rows)
	for i := range out {
		var v [keypointCols]float32
		for j := range v {
			off := (i*keypointCols + j) * 4
			v[j] = math.Float32frombits(binary.LittleEndian.Uint32(rec.Data[off:]))
		}
		out[i] = Keypoint{X: v[0], Y: v[1], Scale: v[2], Orientation: v[3]}
	}
	return out
}

// scaleKeypoints maps keypoints of a downscaled image back to the original size
func scaleKeypoints(kps []Keypoint, sx, sy float64) {
	if sx == 1 && sy == 1 {
		return
	}
	scale := float32((sx + sy) / 2)
	for i := range kps {
		kps[i].X *= float32(sx)
		kps[i].Y *= float32(sy)
		kps[i].Scale *= scale
	}
}
