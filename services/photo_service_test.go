package services

import (
	"bytes"
	"context"
	"mime/multipart"
	"strings"
	"testing"

	"github.com/kendall-kelly/hostel-management-api/models"
	"github.com/kendall-kelly/hostel-management-api/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func photoHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	form, err := multipart.NewReader(body, writer.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["image"][0]
}

func TestUploadPhoto(t *testing.T) {
	store := NewMockObjectStore()
	svc := InitPhotoService(store)
	defer SetPhotoService(nil)
	ctx := context.Background()

	key, err := svc.UploadPhoto(ctx, photoHeader(t, "Leak.PNG", []byte("png bytes")))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "complaints/"))
	assert.True(t, strings.HasSuffix(key, ".png"))
	assert.True(t, store.Exists(key))

	url, err := svc.PhotoURL(ctx, key)
	require.NoError(t, err)
	assert.Contains(t, url, key)

	require.NoError(t, svc.DeletePhoto(ctx, key))
	assert.False(t, store.Exists(key))
}

func TestUploadPhotoRejectsInvalidFiles(t *testing.T) {
	store := NewMockObjectStore()
	svc := InitPhotoService(store)
	defer SetPhotoService(nil)

	_, err := svc.UploadPhoto(context.Background(), photoHeader(t, "notes.txt", []byte("text")))
	require.Error(t, err)
	fileErr, ok := err.(*utils.FileUploadError)
	require.True(t, ok)
	assert.Equal(t, "INVALID_FILE_FORMAT", fileErr.Code)
	assert.Empty(t, store.Keys())
}

func TestAttachPhotoURLs(t *testing.T) {
	store := NewMockObjectStore()
	store.SetAsMockForTesting()
	defer SetPhotoService(nil)
	ctx := context.Background()

	key, err := GetPhotoService().UploadPhoto(ctx, photoHeader(t, "fan.jpg", []byte("jpg bytes")))
	require.NoError(t, err)
	missing := "complaints/missing.png"

	withPhoto := &models.Complaint{ID: 1, ImageKey: &key}
	withoutPhoto := &models.Complaint{ID: 2}
	brokenPhoto := &models.Complaint{ID: 3, ImageKey: &missing}
	AttachPhotoURLs(ctx, withPhoto, withoutPhoto, brokenPhoto)

	require.NotNil(t, withPhoto.ImageURL)
	assert.Contains(t, *withPhoto.ImageURL, key)
	assert.Nil(t, withoutPhoto.ImageURL)
	assert.Nil(t, brokenPhoto.ImageURL)

	DeletePhotos(ctx, []string{key})
	assert.False(t, store.Exists(key))
}

func TestPhotoHelpersWithoutStorage(t *testing.T) {
	SetPhotoService(nil)
	key := "complaints/a.png"
	complaint := &models.Complaint{ImageKey: &key}

	assert.NotPanics(t, func() {
		AttachPhotoURLs(context.Background(), complaint)
		DeletePhotos(context.Background(), []string{key})
	})
	assert.Nil(t, complaint.ImageURL)
}
