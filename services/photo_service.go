package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/kendall-kelly/hostel-management-api/config"
	"github.com/kendall-kelly/hostel-management-api/models"
	"github.com/kendall-kelly/hostel-management-api/utils"
)

// PhotoService stores photos attached to complaints
type PhotoService interface {
	// UploadPhoto validates and stores a photo, returning its storage key
	UploadPhoto(ctx context.Context, fileHeader *multipart.FileHeader) (string, error)

	// PhotoURL returns a URL the client can load the photo from
	PhotoURL(ctx context.Context, key string) (string, error)

	// DeletePhoto removes a stored photo
	DeletePhoto(ctx context.Context, key string) error
}

// ObjectPhotoService implements PhotoService on top of an ObjectStore
type ObjectPhotoService struct {
	store ObjectStore
}

var photoServiceInstance PhotoService

// InitPhotoService installs a photo service backed by store
func InitPhotoService(store ObjectStore) PhotoService {
	photoServiceInstance = &ObjectPhotoService{store: store}
	return photoServiceInstance
}

// GetPhotoService returns the global photo service; nil when photo storage is
// not configured
func GetPhotoService() PhotoService {
	return photoServiceInstance
}

// SetPhotoService sets the photo service instance (primarily for testing)
func SetPhotoService(service PhotoService) {
	photoServiceInstance = service
}

// UploadPhoto validates the file and stores it under complaints/<uuid><ext>
func (s *ObjectPhotoService) UploadPhoto(ctx context.Context, fileHeader *multipart.FileHeader) (string, error) {
	if err := utils.ValidatePhotoFile(fileHeader); err != nil {
		return "", err
	}
	contentType, _ := utils.PhotoContentType(fileHeader.Filename)

	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			config.Warnf("failed to close uploaded file: %v", closeErr)
		}
	}()

	key := "complaints/" + uuid.NewString() + strings.ToLower(filepath.Ext(fileHeader.Filename))
	if err := s.store.Put(ctx, key, contentType, file, fileHeader.Size); err != nil {
		return "", fmt.Errorf("failed to upload photo: %w", err)
	}
	return key, nil
}

func (s *ObjectPhotoService) PhotoURL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}
	url, err := s.store.PresignGet(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to generate photo URL: %w", err)
	}
	return url, nil
}

func (s *ObjectPhotoService) DeletePhoto(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if err := s.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete photo: %w", err)
	}
	return nil
}

// AttachPhotoURLs fills ImageURL on complaints that carry a photo. A URL that
// cannot be generated is logged and left empty.
func AttachPhotoURLs(ctx context.Context, complaints ...*models.Complaint) {
	photos := GetPhotoService()
	if photos == nil {
		return
	}
	for _, complaint := range complaints {
		if complaint.ImageKey == nil || *complaint.ImageKey == "" {
			continue
		}
		url, err := photos.PhotoURL(ctx, *complaint.ImageKey)
		if err != nil {
			config.Warnf("Failed to generate photo URL for complaint %d: %v", complaint.ID, err)
			continue
		}
		complaint.ImageURL = &url
	}
}

// DeletePhotos removes photos left behind by deleted complaints
func DeletePhotos(ctx context.Context, keys []string) {
	photos := GetPhotoService()
	if photos == nil {
		return
	}
	for _, key := range keys {
		if err := photos.DeletePhoto(ctx, key); err != nil {
			config.Warnf("Failed to delete photo %s: %v", key, err)
		}
	}
}
