package images

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"strings"

	"chatey/utils"

	"github.com/asaskevich/govalidator"
)

type ImageController struct {
	repo    I_ImageRepo
	baseURL string
	maxSize int64
}

func NewImageController(repo I_ImageRepo, baseURL string, maxSize int64) *ImageController {
	if maxSize <= 0 {
		maxSize = MAX_IMAGE_SIZE
	}
	return &ImageController{repo, strings.TrimRight(baseURL, "/"), maxSize}
}

// Upload stores the image as the owner's current one and returns its
// durable url.
func (me *ImageController) Upload(owner string, r io.Reader, contentType string) (string, *ImageMetadata, error) {
	if !utils.IsValidExternalID(owner) {
		return "", nil, ErrInvalidOwner
	}

	if !IsAllowedType(contentType) {
		return "", nil, ErrInvalidContentType
	}

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, me.maxSize+1))
	if err != nil {
		return "", nil, fmt.Errorf("error reading image: %w", err)
	}

	if n > me.maxSize {
		Logger.V(2).Error(ErrImageTooLarge, "error while uploading image", "owner", owner)
		return "", nil, ErrImageTooLarge
	}

	if n == 0 {
		return "", nil, fmt.Errorf("image is empty")
	}

	metadata, err := me.repo.SaveImage(owner, &buf, contentType)
	if err != nil {
		return "", nil, err
	}

	link := me.URL(metadata)
	if !govalidator.IsURL(link) {
		return "", nil, fmt.Errorf("invalid image url %q", link)
	}

	Logger.V(2).Info(fmt.Sprintf("image of %s stored, %d bytes", owner, n))
	return link, metadata, nil
}

// URL is the address the image is served at. It carries the revision so a
// new upload gets a new url.
func (me *ImageController) URL(metadata *ImageMetadata) string {
	return fmt.Sprintf("%s/images/%s?v=%s", me.baseURL, url.PathEscape(metadata.Owner), metadata.Revision)
}

func (me *ImageController) Open(owner string) (io.ReadCloser, *ImageMetadata, error) {
	if !utils.IsValidExternalID(owner) {
		return nil, nil, ErrImageNotFound
	}
	return me.repo.OpenImage(owner)
}

func (me *ImageController) Delete(owner string) error {
	if !utils.IsValidExternalID(owner) {
		return ErrImageNotFound
	}
	return me.repo.DeleteImage(owner)
}
