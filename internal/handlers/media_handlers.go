package handlers

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/rmitchellscott/marquee/internal/database"
)

var mediaTypeByExt = map[string]string{
	".jpg":  "image",
	".jpeg": "image",
	".png":  "image",
	".gif":  "image",
	".webp": "image",
	".mp4":  "video",
	".webm": "video",
	".mov":  "video",
}

// UploadMediaHandler stores an uploaded file content-addressed and records
// its metadata row.
func UploadMediaHandler(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	mediaType, ok := mediaTypeByExt[ext]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported media type " + ext})
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read upload"})
		return
	}
	defer file.Close()

	stored, err := mediaFiles.Store(file, header.Filename)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store media"})
		return
	}

	name := c.DefaultPostForm("name", header.Filename)
	durationSec := 0
	db := database.GetDB()
	media, err := database.NewMediaService(db).CreateMedia(
		name, mediaType, stored.Path, stored.SizeBytes, stored.Checksum, durationSec)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record media"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"media": media})
}

// ListMediaHandler returns all media rows.
func ListMediaHandler(c *gin.Context) {
	db := database.GetDB()
	media, err := database.NewMediaService(db).ListMedia()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch media"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"media": media})
}

// GetMediaHandler returns one media row.
func GetMediaHandler(c *gin.Context) {
	mediaID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	db := database.GetDB()
	media, err := database.NewMediaService(db).GetMediaByID(mediaID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "media not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch media"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"media": media})
}

// ServeMediaFileHandler streams stored media bytes by relative path. This is
// the endpoint the download URLs in the sync chunks point at.
func ServeMediaFileHandler(c *gin.Context) {
	path := strings.TrimPrefix(c.Param("filepath"), "/")
	clean := filepath.Clean(path)
	if path == "" || strings.Contains(clean, "..") || filepath.IsAbs(clean) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid media path"})
		return
	}

	full := filepath.Join(mediaFiles.BasePath(), clean)
	if _, err := os.Stat(full); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "media file not found"})
		return
	}
	c.File(full)
}

// DeleteMediaHandler removes a media row, its playlist references and the
// stored file.
func DeleteMediaHandler(c *gin.Context) {
	mediaID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	db := database.GetDB()
	service := database.NewMediaService(db)
	media, err := service.GetMediaByID(mediaID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "media not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch media"})
		}
		return
	}

	if err := service.DeleteMedia(mediaID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete media"})
		return
	}
	if err := mediaFiles.Remove(media.Path); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete media file"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
