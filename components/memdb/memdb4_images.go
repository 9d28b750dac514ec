package memdb

import (
	"bytes"
	"io"

	"chatey/components/images"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (me *Store) SaveImage(owner string, r io.Reader, contentType string) (*images.ImageMetadata, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	me.mu.Lock()
	defer me.mu.Unlock()

	if err := me.failLocked("SaveImage"); err != nil {
		return nil, err
	}

	metadata := images.ImageMetadata{
		Owner:       owner,
		Revision:    primitive.NewObjectID().Hex(),
		ContentType: contentType,
		Size:        int64(len(data)),
		UploadDate:  me.clock.Now(),
	}
	me.images[owner] = &blob{data: data, metadata: metadata}

	out := metadata
	return &out, nil
}

func (me *Store) OpenImage(owner string) (io.ReadCloser, *images.ImageMetadata, error) {
	me.mu.Lock()
	defer me.mu.Unlock()

	b, ok := me.images[owner]
	if !ok {
		return nil, nil, images.ErrImageNotFound
	}

	metadata := b.metadata
	return io.NopCloser(bytes.NewReader(b.data)), &metadata, nil
}

func (me *Store) DeleteImage(owner string) error {
	me.mu.Lock()
	defer me.mu.Unlock()

	if _, ok := me.images[owner]; !ok {
		return images.ErrImageNotFound
	}
	delete(me.images, owner)
	return nil
}
