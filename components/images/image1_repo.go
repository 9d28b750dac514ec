package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"chatey/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// I_ImageRepo stores one current image per owner. Saving again replaces it.
type I_ImageRepo interface {
	SaveImage(owner string, r io.Reader, contentType string) (*ImageMetadata, error)
	OpenImage(owner string) (io.ReadCloser, *ImageMetadata, error)
	DeleteImage(owner string) error
}

type ImageService struct {
	gridfsBucket *gridfs.Bucket
}

func NewImageService(gridfsBucket *gridfs.Bucket) I_ImageRepo {
	return &ImageService{gridfsBucket}
}

// SaveImage uploads under the owner's id as filename and then drops the
// older revisions.
func (me *ImageService) SaveImage(owner string, r io.Reader, contentType string) (*ImageMetadata, error) {
	imageID := primitive.NewObjectID()
	metadata := &ImageMetadata{
		Owner:       owner,
		Revision:    imageID.Hex(),
		ContentType: contentType,
		UploadDate:  time.Now(),
	}

	doc, err := utils.ToDoc(metadata)
	if err != nil {
		return nil, fmt.Errorf("error creating metadata: %w", err)
	}

	uploadStream, err := me.gridfsBucket.OpenUploadStreamWithID(imageID, owner, options.GridFSUpload().SetMetadata(doc))
	if err != nil {
		return nil, fmt.Errorf("error saving image to GridFS bucket: %w", err)
	}

	n, err := io.Copy(uploadStream, r)
	if err != nil {
		uploadStream.Abort()
		return nil, fmt.Errorf("error copying image to GridFS bucket: %w", err)
	}

	if err := uploadStream.Close(); err != nil {
		return nil, fmt.Errorf("error closing upload: %w", err)
	}
	metadata.Size = n

	me.prune(owner, imageID)
	return metadata, nil
}

func (me *ImageService) prune(owner string, keep primitive.ObjectID) {
	for _, id := range me.revisions(owner) {
		if id == keep {
			continue
		}
		if err := me.gridfsBucket.Delete(id); err != nil {
			Logger.Error(err, "error while deleting old image", "owner", owner)
		}
	}
}

func (me *ImageService) revisions(owner string) []primitive.ObjectID {
	cursor, err := me.gridfsBucket.Find(bson.M{"filename": owner})
	if err != nil {
		Logger.Error(err, "error listing images", "owner", owner)
		return nil
	}
	defer cursor.Close(context.Background())

	var ids []primitive.ObjectID
	for cursor.Next(context.Background()) {
		var file struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cursor.Decode(&file); err != nil {
			Logger.Error(err, "error decoding image file", "owner", owner)
			continue
		}
		ids = append(ids, file.ID)
	}
	return ids
}

func (me *ImageService) OpenImage(owner string) (io.ReadCloser, *ImageMetadata, error) {
	downloadStream, err := me.gridfsBucket.OpenDownloadStreamByName(owner)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, nil, ErrImageNotFound
		}
		return nil, nil, err
	}

	file := downloadStream.GetFile()
	var metadata ImageMetadata
	if err := bson.Unmarshal(file.Metadata, &metadata); err != nil {
		downloadStream.Close()
		return nil, nil, fmt.Errorf("image metadata unavailable: %w", err)
	}
	metadata.Size = file.Length

	return downloadStream, &metadata, nil
}

func (me *ImageService) DeleteImage(owner string) error {
	ids := me.revisions(owner)
	if len(ids) == 0 {
		return ErrImageNotFound
	}

	for _, id := range ids {
		if err := me.gridfsBucket.Delete(id); err != nil {
			return err
		}
	}
	return nil
}
