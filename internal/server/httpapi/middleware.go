package httpapi

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/dmitrijs2005/neurorecall/internal/common"
	"github.com/dmitrijs2005/neurorecall/internal/server/auth"
	"github.com/dmitrijs2005/neurorecall/internal/server/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	userKey         = "user"
	refreshCookie   = "refresh_token"
)

func (s *Server) requestID(c *gin.Context) {
	id := c.GetHeader(requestIDHeader)
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}
	c.Set(requestIDKey, id)
	c.Header(requestIDHeader, id)
	c.Next()
}

func (s *Server) requestLogger(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.logger.Info(c.Request.Context(), "request",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", c.Writer.Status(),
		"latency", time.Since(start).String(),
		"request_id", c.GetString(requestIDKey),
	)
}

// cors allows credentialed requests from the configured origins.
func (s *Server) cors(c *gin.Context) {
	origin := c.GetHeader("Origin")
	if origin != "" && slices.Contains(s.corsOrigins, origin) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, "+requestIDHeader)
		h.Add("Vary", "Origin")
	}
	if c.Request.Method == http.MethodOptions {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}
	c.Next()
}

// accessToken takes the token from a Bearer header or the access_token cookie.
func accessToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if token, err := c.Cookie(common.AccessTokenHeaderName); err == nil {
		return token
	}
	return ""
}

func (s *Server) authenticate(c *gin.Context) (*models.User, error) {
	token := accessToken(c)
	if token == "" {
		return nil, common.ErrorUnauthorized
	}
	return s.users.Authenticate(c.Request.Context(), token)
}

func (s *Server) requireUser(c *gin.Context) {
	user, err := s.authenticate(c)
	if err != nil {
		if statusOf(err) == http.StatusInternalServerError {
			s.fail(c, err, nil)
			return
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	c.Set(userKey, user)
	c.Next()
}

// optionalUser resolves the caller when a valid token is present.
func (s *Server) optionalUser(c *gin.Context) {
	if user, err := s.authenticate(c); err == nil {
		c.Set(userKey, user)
	}
	c.Next()
}

func (s *Server) requireAdmin(c *gin.Context) {
	if !auth.IsAdmin(currentUser(c)) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
		return
	}
	c.Next()
}

func currentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}
