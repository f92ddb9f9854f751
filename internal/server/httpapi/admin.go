package httpapi

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/neurorecall/internal/common"
	"github.com/dmitrijs2005/neurorecall/internal/server/approval"
	"github.com/dmitrijs2005/neurorecall/internal/server/export"
	"github.com/dmitrijs2005/neurorecall/internal/server/repositories/scores"
	"github.com/gin-gonic/gin"
)

const exportFileName = "user_results.xlsx"

func (s *Server) filteredResults(c *gin.Context) ([]approval.Row, bool) {
	f, err := scores.ParseFilter(c.Query("username"), c.Query("test_number"), c.Query("test_time"))
	if err != nil {
		s.fail(c, err, nil)
		return nil, false
	}
	rows, err := s.scores.AdminResults(c.Request.Context(), f)
	if err != nil {
		s.fail(c, err, nil)
		return nil, false
	}
	return rows, true
}

func (s *Server) adminResults(c *gin.Context) {
	rows, ok := s.filteredResults(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, adminRows(rows))
}

func (s *Server) adminExport(c *gin.Context) {
	rows, ok := s.filteredResults(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.WriteResults(&buf, rows); err != nil {
		s.fail(c, err, nil)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+exportFileName+`"`)
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}

func (s *Server) adminUserEmail(c *gin.Context) {
	email, err := s.users.UserEmail(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		s.fail(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"email": email})
}
