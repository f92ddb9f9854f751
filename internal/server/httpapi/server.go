// Package httpapi exposes the NeuroRecall services as a JSON API under /api.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/neurorecall/internal/logging"
	"github.com/dmitrijs2005/neurorecall/internal/server/approval"
	"github.com/dmitrijs2005/neurorecall/internal/server/config"
	"github.com/dmitrijs2005/neurorecall/internal/server/models"
	"github.com/dmitrijs2005/neurorecall/internal/server/repositories/scores"
	"github.com/dmitrijs2005/neurorecall/internal/server/services"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 10 * time.Second

// UserService is the account side consumed by the API.
type UserService interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
	Login(ctx context.Context, userName, password, clientKey string) (*services.LoginResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	Authenticate(ctx context.Context, accessToken string) (*models.User, error)
	UserEmail(ctx context.Context, id string) (string, error)
}

type ResetService interface {
	RequestReset(ctx context.Context, email, clientKey string) error
	ConfirmReset(ctx context.Context, token, password, confirm string) (string, error)
}

type ScoreService interface {
	Submit(ctx context.Context, user *models.User, in services.SubmitInput) (*services.SubmitResult, error)
	Profile(ctx context.Context, userID string, f scores.Filter) ([]approval.Row, error)
	AdminResults(ctx context.Context, f scores.Filter) ([]approval.Row, error)
}

type PhotoService interface {
	Upload(ctx context.Context, userID, fileName, contentType string, data []byte) (string, error)
	URL(ctx context.Context, fileName string) (string, error)
}

// Services groups the dependencies of Server.
type Services struct {
	Users  UserService
	Resets ResetService
	Scores ScoreService
	Photos PhotoService
}

// Server serves the HTTP API.
type Server struct {
	address        string
	corsOrigins    []string
	trustedProxies []string
	users          UserService
	resets         ResetService
	scores         ScoreService
	photos         PhotoService
	logger         logging.Logger
}

func NewServer(cfg *config.Config, l logging.Logger, svc Services) *Server {
	return &Server{
		address:        cfg.EndpointAddrHTTP,
		corsOrigins:    cfg.CORSOrigins,
		trustedProxies: cfg.TrustedProxies,
		users:          svc.Users,
		resets:         svc.Resets,
		scores:         svc.Scores,
		photos:         svc.Photos,
		logger:         l.With("module", "http_server"),
	}
}

// Handler builds the gin engine with every route registered.
func (s *Server) Handler() *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = 8 << 20
	// Without trusted proxies the client address is the peer address.
	if err := r.SetTrustedProxies(s.trustedProxies); err != nil {
		s.logger.Warn(context.Background(), "invalid trusted proxies", "error", err.Error())
	}
	r.Use(gin.Recovery(), s.requestID, s.requestLogger, s.cors)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", s.register)
	authGroup.POST("/login", s.login)
	authGroup.POST("/refresh", s.refresh)
	authGroup.POST("/logout", s.requireUser, s.logout)
	authGroup.POST("/reset-password", s.requestReset)
	authGroup.POST("/password-reset/:token", s.confirmReset)
	authGroup.GET("/check-login", s.optionalUser, s.checkLogin)
	authGroup.GET("/check-admin", s.optionalUser, s.checkAdmin)
	authGroup.GET("/current-user", s.requireUser, s.getCurrentUser)

	api.GET("/user-profile", s.requireUser, s.userProfile)
	api.POST("/upload-profile-photo", s.requireUser, s.uploadPhoto)
	api.GET("/profile_photos/:filename", s.profilePhoto)
	api.POST("/tests/submit-audio", s.requireUser, s.submitAudio)

	admin := api.Group("/admin", s.requireUser, s.requireAdmin)
	admin.GET("/user-results", s.adminResults)
	admin.GET("/user-results/export", s.adminExport)
	admin.GET("/user/:id", s.adminUserEmail)

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(shutdownCtx, "HTTP server shutdown", "error", err.Error())
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
