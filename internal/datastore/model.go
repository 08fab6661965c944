// model.go defines the feature database schema
package datastore

import (
	"encoding/binary"
	"math"

	"gorm.io/gorm"
)

// Camera is one intrinsic calibration shared by one or more images
type Camera struct {
	ID               uint      `gorm:"primaryKey"`
	ModelID          int       `gorm:"not null"`
	Width            int       `gorm:"not null"`
	Height           int       `gorm:"not null"`
	Params           []float64 `gorm:"-"`
	ParamsData       []byte    `gorm:"column:params"`
	PriorFocalLength bool      `gorm:"not null;default:false"` // true when params came from configuration
}

// TableName pins the table name
func (Camera) TableName() string { return "cameras" }

// BeforeSave encodes Params into the params column
func (c *Camera) BeforeSave(*gorm.DB) error {
	c.ParamsData = encodeFloat64s(c.Params)
	return nil
}

// AfterFind decodes the params column into Params
func (c *Camera) AfterFind(*gorm.DB) error {
	c.Params = decodeFloat64s(c.ParamsData)
	return nil
}

// Image is an image registered in the database, identified by its name
// relative to the image root.
type Image struct {
	ID       uint   `gorm:"primaryKey"`
	Name     string `gorm:"size:512;uniqueIndex;not null"`
	CameraID uint   `gorm:"index;not null"`
}

// TableName pins the table name
func (Image) TableName() string { return "images" }

// Keypoints holds the keypoints of one image as a row-major float32 matrix
type Keypoints struct {
	ImageID uint   `gorm:"primaryKey;autoIncrement:false"`
	Rows    int    `gorm:"column:num_rows;not null"`
	Cols    int    `gorm:"column:num_cols;not null"`
	Data    []byte `gorm:"type:longblob"`
}

// TableName pins the table name
func (Keypoints) TableName() string { return "keypoints" }

// Descriptors holds the descriptors of one image as a row-major uint8 matrix
type Descriptors struct {
	ImageID uint   `gorm:"primaryKey;autoIncrement:false"`
	Rows    int    `gorm:"column:num_rows;not null"`
	Cols    int    `gorm:"column:num_cols;not null"`
	Data    []byte `gorm:"type:longblob"`
}

// TableName pins the table name
func (Descriptors) TableName() string { return "descriptors" }

// allModels lists the tables created by AutoMigrate
func allModels() []any {
	return []any{&Camera{}, &Image{}, &Keypoints{}, &Descriptors{}}
}

func encodeFloat64s(values []float64) []byte {
	if len(values) == 0 {
		return nil
	}
	buf := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

func decodeFloat64s(data []byte) []float64 {
	if len(data) == 0 {
		return nil
	}
	values := make([]float64, len(data)/8)
	for i := range values {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
	}
	return values
}
