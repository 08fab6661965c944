package datastore

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tphakala/sift-go/internal/errors"
)

// AddCamera inserts a camera and returns its id
func (s *Store) AddCamera(camera *Camera) (uint, error) {
	camera.ID = 0
	if err := s.db.Create(camera).Error; err != nil {
		return 0, dbError(fmt.Errorf("failed to add camera: %w", err), "add_camera")
	}
	return camera.ID, nil
}

// Camera returns the camera with the given id
func (s *Store) Camera(id uint) (*Camera, error) {
	var camera Camera
	err := s.db.First(&camera, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCameraNotFound
	}
	if err != nil {
		return nil, dbError(fmt.Errorf("failed to get camera %d: %w", id, err), "get_camera")
	}
	return &camera, nil
}

// ImageByName returns the image registered under name
func (s *Store) ImageByName(name string) (*Image, error) {
	var image Image
	err := s.db.Where("name = ?", name).Take(&image).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrImageNotFound
	}
	if err != nil {
		return nil, dbError(fmt.Errorf("failed to get image %q: %w", name, err), "get_image")
	}
	return &image, nil
}

// AddImage inserts an image and returns its id
func (s *Store) AddImage(image *Image) (uint, error) {
	image.ID = 0
	if err := s.db.Create(image).Error; err != nil {
		return 0, dbError(fmt.Errorf("failed to add image %q: %w", image.Name, err), "add_image")
	}
	return image.ID, nil
}

// WriteKeypoints stores the keypoints of an image, replacing existing ones
func (s *Store) WriteKeypoints(imageID uint, keypoints *Keypoints) error {
	return writeKeypoints(s.db, imageID, keypoints)
}

// WriteDescriptors stores the descriptors of an image, replacing existing ones
func (s *Store) WriteDescriptors(imageID uint, descriptors *Descriptors) error {
	return writeDescriptors(s.db, imageID, descriptors)
}

// WriteImageFeatures registers the image when it has no id yet and stores its
// keypoints and descriptors in a single transaction.
func (s *Store) WriteImageFeatures(image *Image, keypoints *Keypoints, descriptors *Descriptors) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if image.ID == 0 {
			if err := tx.Create(image).Error; err != nil {
				return dbError(fmt.Errorf("failed to add image %q: %w", image.Name, err), "add_image")
			}
		}
		if err := writeKeypoints(tx, image.ID, keypoints); err != nil {
			return err
		}
		return writeDescriptors(tx, image.ID, descriptors)
	})
}

func writeKeypoints(db *gorm.DB, imageID uint, keypoints *Keypoints) error {
	keypoints.ImageID = imageID
	err := db.Clauses(clause.OnConflict{UpdateAll: true}).Create(keypoints).Error
	if err != nil {
		return dbError(fmt.Errorf("failed to write keypoints for image %d: %w", imageID, err), "write_keypoints")
	}
	return nil
}

func writeDescriptors(db *gorm.DB, imageID uint, descriptors *Descriptors) error {
	descriptors.ImageID = imageID
	err := db.Clauses(clause.OnConflict{UpdateAll: true}).Create(descriptors).Error
	if err != nil {
		return dbError(fmt.Errorf("failed to write descriptors for image %d: %w", imageID, err), "write_descriptors")
	}
	return nil
}

// ReadKeypoints returns the keypoints row of an image
func (s *Store) ReadKeypoints(imageID uint) (*Keypoints, error) {
	var keypoints Keypoints
	err := s.db.Where("image_id = ?", imageID).Take(&keypoints).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrFeaturesNotFound
	}
	if err != nil {
		return nil, dbError(fmt.Errorf("failed to read keypoints for image %d: %w", imageID, err), "read_keypoints")
	}
	return &keypoints, nil
}

// ReadDescriptors returns the descriptors row of an image
func (s *Store) ReadDescriptors(imageID uint) (*Descriptors, error) {
	var descriptors Descriptors
	err := s.db.Where("image_id = ?", imageID).Take(&descriptors).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrFeaturesNotFound
	}
	if err != nil {
		return nil, dbError(fmt.Errorf("failed to read descriptors for image %d: %w", imageID, err), "read_descriptors")
	}
	return &descriptors, nil
}

// HasFeatures reports whether both keypoints and descriptors exist for the image
func (s *Store) HasFeatures(imageID uint) (bool, error) {
	var kp, desc int64
	if err := s.db.Model(&Keypoints{}).Where("image_id = ?", imageID).Count(&kp).Error; err != nil {
		return false, dbError(err, "has_features")
	}
	if err := s.db.Model(&Descriptors{}).Where("image_id = ?", imageID).Count(&desc).Error; err != nil {
		return false, dbError(err, "has_features")
	}
	return kp > 0 && desc > 0, nil
}

// NumCameras returns the number of cameras
func (s *Store) NumCameras() (int64, error) {
	var n int64
	if err := s.db.Model(&Camera{}).Count(&n).Error; err != nil {
		return 0, dbError(err, "count_cameras")
	}
	return n, nil
}

// NumImages returns the number of images
func (s *Store) NumImages() (int64, error) {
	var n int64
	if err := s.db.Model(&Image{}).Count(&n).Error; err != nil {
		return 0, dbError(err, "count_images")
	}
	return n, nil
}

// NumKeypoints returns the total number of keypoints over all images
func (s *Store) NumKeypoints() (int64, error) {
	var total int64
	if err := s.db.Model(&Keypoints{}).Select("COALESCE(SUM(num_rows), 0)").Scan(&total).Error; err != nil {
		return 0, dbError(err, "count_keypoints")
	}
	return total, nil
}
