package images

import (
	"errors"
	"time"
)

const MAX_IMAGE_SIZE = 2 * 1024 * 1024 // 2MB

var (
	ErrImageNotFound      = errors.New("image not found")
	ErrImageTooLarge      = errors.New("image size exceeds maximum allowed")
	ErrInvalidContentType = errors.New("invalid content-type")
	ErrInvalidOwner       = errors.New("invalid image owner")
)

var allowedTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// ImageMetadata describes the latest profile image of one identity. Revision
// changes with every upload so the durable url changes with it.
type ImageMetadata struct {
	Owner       string    `json:"owner" bson:"owner"`
	Revision    string    `json:"revision" bson:"revision"`
	ContentType string    `json:"content_type" bson:"content_type"`
	Size        int64     `json:"size" bson:"size"`
	UploadDate  time.Time `json:"upload_date" bson:"upload_date"`
}

func IsAllowedType(contentType string) bool {
	return allowedTypes[contentType]
}
