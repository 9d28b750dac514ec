package images

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"chatey/auth"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/juju/ratelimit"
)

var Logger logr.Logger = logr.Discard()

// I_ProfileUpdater points the signed-in identity at a new profile image.
type I_ProfileUpdater interface {
	UpdateProfileImage(uid, link string) error
}

type ImageRoute struct {
	controller *ImageController
	profile    I_ProfileUpdater
	limiter    *ratelimit.Bucket
}

func NewImageRoute(l logr.Logger, limiter *ratelimit.Bucket, controller *ImageController, profile I_ProfileUpdater) ImageRoute {
	Logger = l
	Logger.V(2).Info("NewImageRoute created")
	return ImageRoute{controller, profile, limiter}
}

func (me *ImageRoute) InitRouteTo(rg *gin.Engine) {
	router := rg.Group("/images")
	router.POST("/upload", me.RateLimit, me.ImageUploadHandler)
	router.GET("/:id", me.RateLimit, me.GetImageHandler)
}

func (me *ImageRoute) RateLimit(ctx *gin.Context) {
	if me.limiter.TakeAvailable(1) == 0 {
		ctx.AbortWithStatus(http.StatusTooManyRequests)
		return
	}
	ctx.Next()
}

func (me *ImageRoute) ImageUploadHandler(c *gin.Context) {
	claims, code := auth.ValidUser(c)
	if claims == nil {
		c.JSON(code, gin.H{"error": "unauthorized"})
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "error retrieving image file: " + err.Error()})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "error opening image file: " + err.Error()})
		return
	}
	defer src.Close()

	link, metadata, err := me.controller.Upload(claims.GetUID(), src, file.Header.Get("Content-Type"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrImageTooLarge) || errors.Is(err, ErrInvalidContentType) || errors.Is(err, ErrInvalidOwner) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": "error uploading image: " + err.Error()})
		return
	}

	if err := me.profile.UpdateProfileImage(claims.GetUID(), link); err != nil {
		Logger.Error(err, "error while updating profile image")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": link, "metadata": metadata})
}

func (me *ImageRoute) GetImageHandler(c *gin.Context) {
	owner := c.Param("id")
	Logger.V(2).Info(fmt.Sprintf("get image %s", owner))

	stream, metadata, err := me.controller.Open(owner)
	if err != nil {
		if errors.Is(err, ErrImageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer stream.Close()

	c.Header("Content-Type", metadata.ContentType)
	c.Header("Content-Length", strconv.FormatInt(metadata.Size, 10))
	if c.Query("v") == metadata.Revision {
		c.Header("Cache-Control", "public, max-age=31536000, immutable")
	} else {
		c.Header("Cache-Control", "no-cache")
	}

	if _, err := io.Copy(c.Writer, stream); err != nil {
		Logger.Error(err, "error sending image", "owner", owner)
	}
}
