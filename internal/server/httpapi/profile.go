package httpapi

import (
	"io"
	"mime/multipart"
	"net/http"

	"github.com/dmitrijs2005/neurorecall/internal/common"
	"github.com/dmitrijs2005/neurorecall/internal/server/repositories/scores"
	"github.com/dmitrijs2005/neurorecall/internal/server/services"
	"github.com/gin-gonic/gin"
)

func (s *Server) userProfile(c *gin.Context) {
	user := currentUser(c)

	f, err := scores.ParseFilter("", c.Query("test_number"), c.Query("test_time"))
	if err != nil {
		s.fail(c, err, nil)
		return
	}
	rows, err := s.scores.Profile(c.Request.Context(), user.ID, f)
	if err != nil {
		s.fail(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"id":            user.ID,
			"username":      user.UserName,
			"email":         user.Email,
			"profile_photo": user.ProfilePhoto,
		},
		"scores": scoreRows(rows),
	})
}

func (s *Server) uploadPhoto(c *gin.Context) {
	fh, err := c.FormFile("photo")
	if err != nil {
		badRequest(c, "No file part", nil)
		return
	}
	if fh.Size > services.MaxPhotoSize {
		s.fail(c, common.NewValidationError("photo", "file is larger than 5 MB"), nil)
		return
	}
	data, err := readUpload(fh, services.MaxPhotoSize)
	if err != nil {
		s.fail(c, err, nil)
		return
	}

	name, err := s.photos.Upload(c.Request.Context(), currentUser(c).ID, fh.Filename, fh.Header.Get("Content-Type"), data)
	if err != nil {
		s.fail(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Uploaded successfully", "photo": name})
}

func (s *Server) profilePhoto(c *gin.Context) {
	url, err := s.photos.URL(c.Request.Context(), c.Param("filename"))
	if err != nil {
		s.fail(c, err, nil)
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, url)
}

// readUpload reads at most limit+1 bytes so oversized parts are still
// rejected by the services.
func readUpload(fh *multipart.FileHeader, limit int64) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, limit+1))
}
