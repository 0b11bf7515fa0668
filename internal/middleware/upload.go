package middleware

// upload.go decodes multipart image uploads for the generation endpoint
// before the handler runs. Decoded files land on the Echo context under
// the "uploaded_images" key as []nano.InputImage.

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/soragemix/soragemix/internal/nano"
)

const (
	// UploadedImagesKey is the context key the handler reads.
	UploadedImagesKey = "uploaded_images"

	maxUploadFiles    = 5
	maxUploadBytes    = 10 << 20 // 10 MB per file
	uploadedFieldName = "images"
)

var allowedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
	"image/gif":  true,
}

// DecodeUploads reads the "images" file parts of a multipart request
// into memory, sniffing and validating each content type. Non-multipart
// requests (text mode generations) pass through with no images set.
func DecodeUploads() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			form, err := c.MultipartForm()
			if err != nil {
				// Not multipart; nothing to decode.
				return next(c)
			}
			files := form.File[uploadedFieldName]
			if len(files) > maxUploadFiles {
				return c.JSON(http.StatusBadRequest, echo.Map{
					"success": false,
					"message": "too many images; the limit is 5",
				})
			}
			images := make([]nano.InputImage, 0, len(files))
			for _, fh := range files {
				if fh.Size > maxUploadBytes {
					return c.JSON(http.StatusBadRequest, echo.Map{
						"success": false,
						"message": "image exceeds the 10 MB limit",
					})
				}
				f, err := fh.Open()
				if err != nil {
					return c.JSON(http.StatusBadRequest, echo.Map{
						"success": false,
						"message": "could not read uploaded file",
					})
				}
				data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
				_ = f.Close()
				if err != nil || int64(len(data)) > maxUploadBytes {
					return c.JSON(http.StatusBadRequest, echo.Map{
						"success": false,
						"message": "could not read uploaded file",
					})
				}
				// Sniff the real content type; the client header is not
				// trusted.
				mimeType := http.DetectContentType(data)
				if !allowedImageTypes[mimeType] {
					return c.JSON(http.StatusBadRequest, echo.Map{
						"success": false,
						"message": "unsupported image type; use png, jpeg, webp or gif",
					})
				}
				images = append(images, nano.InputImage{MIMEType: mimeType, Data: data})
			}
			c.Set(UploadedImagesKey, images)
			return next(c)
		}
	}
}
