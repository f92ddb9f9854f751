package httpapi

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/neurorecall/internal/common"
	"github.com/dmitrijs2005/neurorecall/internal/server/auth"
	"github.com/dmitrijs2005/neurorecall/internal/server/services"
	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	UserName string  `json:"username"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Age      any     `json:"age"`
	Sex      *string `json:"sex"`
}

// age accepts a JSON number, a numeric string or nothing.
func (r registerRequest) age() (*int, error) {
	invalid := common.NewValidationError("age", "Invalid age format")
	switch v := r.Age.(type) {
	case nil:
		return nil, nil
	case float64:
		if v != math.Trunc(v) {
			return nil, invalid
		}
		n := int(v)
		return &n, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, invalid
		}
		return &n, nil
	default:
		return nil, invalid
	}
}

func (s *Server) register(c *gin.Context) {
	failed := gin.H{"register": "failed"}

	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", failed)
		return
	}
	age, err := req.age()
	if err != nil {
		s.fail(c, err, failed)
		return
	}
	sex := req.Sex
	if sex != nil && *sex == "" {
		sex = nil
	}

	user, err := s.users.Register(c.Request.Context(), services.RegisterInput{
		UserName: req.UserName,
		Email:    req.Email,
		Password: req.Password,
		Age:      age,
		Sex:      sex,
	})
	if err != nil {
		s.fail(c, err, failed)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"register": "successful", "user_id": user.ID})
}

type loginRequest struct {
	UserName string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) login(c *gin.Context) {
	failed := gin.H{"login": "failed"}

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", failed)
		return
	}

	res, err := s.users.Login(c.Request.Context(), req.UserName, req.Password, c.ClientIP())
	if err != nil {
		s.fail(c, err, failed)
		return
	}

	setTokenCookies(c, res.Tokens)
	c.JSON(http.StatusOK, gin.H{
		"login":         "successful",
		"user_id":       res.User.ID,
		"isAdmin":       strconv.FormatBool(res.IsAdmin),
		"access_token":  res.Tokens.AccessToken,
		"refresh_token": res.Tokens.RefreshToken,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// refreshTokenOf reads the refresh token from the JSON body or the cookie.
func refreshTokenOf(c *gin.Context) string {
	var req refreshRequest
	if c.Request.ContentLength != 0 {
		_ = c.ShouldBindJSON(&req)
	}
	if req.RefreshToken != "" {
		return req.RefreshToken
	}
	if token, err := c.Cookie(refreshCookie); err == nil {
		return token
	}
	return ""
}

func (s *Server) refresh(c *gin.Context) {
	token := refreshTokenOf(c)
	if token == "" {
		badRequest(c, "refresh_token required", nil)
		return
	}

	pair, err := s.users.RefreshToken(c.Request.Context(), token)
	if err != nil {
		s.fail(c, err, nil)
		return
	}

	setTokenCookies(c, pair)
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

func (s *Server) logout(c *gin.Context) {
	noCache(c)
	if err := s.users.Logout(c.Request.Context(), refreshTokenOf(c)); err != nil {
		s.fail(c, err, gin.H{"logoutStatus": "0"})
		return
	}

	clearTokenCookies(c)
	c.JSON(http.StatusOK, gin.H{"logoutStatus": "1", "message": "Logged out successfully"})
}

type resetRequest struct {
	Email string `json:"email"`
}

func (s *Server) requestReset(c *gin.Context) {
	failed := gin.H{"reset": "failed"}

	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", failed)
		return
	}
	if err := s.resets.RequestReset(c.Request.Context(), req.Email, c.ClientIP()); err != nil {
		s.fail(c, err, failed)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reset": services.ResetSuccessful})
}

type confirmResetRequest struct {
	NewPassword        string `json:"newPassword"`
	ConfirmNewPassword string `json:"confirmNewPassword"`
}

func (s *Server) confirmReset(c *gin.Context) {
	failed := gin.H{"reset": "failed"}

	var req confirmResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", failed)
		return
	}

	outcome, err := s.resets.ConfirmReset(c.Request.Context(), c.Param("token"), req.NewPassword, req.ConfirmNewPassword)
	if err != nil {
		s.fail(c, err, failed)
		return
	}
	if outcome != services.ResetSuccessful {
		c.JSON(http.StatusBadRequest, gin.H{"reset": outcome})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reset": outcome})
}

func (s *Server) checkLogin(c *gin.Context) {
	noCache(c)
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusOK, gin.H{"logged": "false"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"logged": "true", "user_id": user.ID})
}

func (s *Server) checkAdmin(c *gin.Context) {
	noCache(c)
	c.JSON(http.StatusOK, gin.H{"isAdmin": strconv.FormatBool(auth.IsAdmin(currentUser(c)))})
}

func (s *Server) getCurrentUser(c *gin.Context) {
	noCache(c)
	user := currentUser(c)
	c.JSON(http.StatusOK, gin.H{
		"id":            user.ID,
		"username":      user.UserName,
		"profile_photo": user.ProfilePhoto,
	})
}

func setTokenCookies(c *gin.Context, pair *services.TokenPair) {
	secure := c.Request.TLS != nil
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(common.AccessTokenHeaderName, pair.AccessToken, 0, "/", "", secure, true)
	c.SetCookie(refreshCookie, pair.RefreshToken, 0, "/", "", secure, true)
}

func clearTokenCookies(c *gin.Context) {
	secure := c.Request.TLS != nil
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(common.AccessTokenHeaderName, "", -1, "/", "", secure, true)
	c.SetCookie(refreshCookie, "", -1, "/", "", secure, true)
}
