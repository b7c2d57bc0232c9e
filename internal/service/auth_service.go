package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/settleup/internal/auth"
	"github.com/mmynk/settleup/internal/middleware"
	"github.com/mmynk/settleup/internal/models"
)

// DeviceTokenStore persists push delivery tokens.
type DeviceTokenStore interface {
	AddDeviceToken(ctx context.Context, token *models.DeviceToken) error
	RemoveDeviceToken(ctx context.Context, userID, token string) error
}

// AuthService implements the AuthService RPC interface.
type AuthService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	tokens        DeviceTokenStore
	logger        *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(authenticator auth.Authenticator, jwtManager *auth.JWTManager, tokens DeviceTokenStore, logger *slog.Logger) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		tokens:        tokens,
		logger:        logger,
	}
}

// Register creates a new user account.
func (s *AuthService) Register(ctx context.Context, req *request) (*response, error) {
	email := getString(req.Msg, "email")
	displayName := getString(req.Msg, "display_name")
	s.logger.Info("Register request", "email", email)

	// Validate input
	if email == "" || displayName == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, invalidArgument("email and display_name are required"))
	}

	// Register user
	user, err := s.authenticator.Register(ctx, email, displayName, getString(req.Msg, "password"))
	if err != nil {
		s.logger.Warn("Registration failed", "email", email, "error", err)
		switch {
		case errors.Is(err, auth.ErrEmailExists):
			return nil, connect.NewError(connect.CodeAlreadyExists, err)
		case errors.Is(err, auth.ErrWeakPassword), errors.Is(err, auth.ErrInvalidEmail):
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	resp, err := s.session(user)
	if err != nil {
		return nil, err
	}
	s.logger.Info("User registered successfully", "user_id", user.ID)
	return resp, nil
}

// Login authenticates a user and returns a JWT token.
func (s *AuthService) Login(ctx context.Context, req *request) (*response, error) {
	email := getString(req.Msg, "email")
	password := getString(req.Msg, "password")
	s.logger.Info("Login request", "email", email)

	// Validate input
	if email == "" || password == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, auth.ErrInvalidCredentials)
	}

	// Authenticate user
	user, err := s.authenticator.Authenticate(ctx, email, password)
	if err != nil {
		s.logger.Warn("Login failed", "email", email, "error", err)
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidCredentials)
	}

	resp, err := s.session(user)
	if err != nil {
		return nil, err
	}
	s.logger.Info("User logged in successfully", "user_id", user.ID)
	return resp, nil
}

// RegisterDeviceToken records a push delivery token for the caller.
func (s *AuthService) RegisterDeviceToken(ctx context.Context, req *request) (*response, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	token := getString(req.Msg, "token")
	if token == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, invalidArgument("token is required"))
	}

	err := s.tokens.AddDeviceToken(ctx, &models.DeviceToken{
		Token:     token,
		UserID:    userID,
		CreatedAt: time.Now().Unix(),
	})
	if err != nil {
		s.logger.Error("Failed to register device token", "user_id", userID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.logger.Info("Device token registered", "user_id", userID)
	return reply(map[string]any{"success": true})
}

// UnregisterDeviceToken removes one of the caller's push delivery tokens.
func (s *AuthService) UnregisterDeviceToken(ctx context.Context, req *request) (*response, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	token := getString(req.Msg, "token")
	if token == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, invalidArgument("token is required"))
	}

	if err := s.tokens.RemoveDeviceToken(ctx, userID, token); err != nil {
		s.logger.Error("Failed to unregister device token", "user_id", userID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.logger.Info("Device token unregistered", "user_id", userID)
	return reply(map[string]any{"success": true})
}

// session issues a token for user and builds the Register/Login response.
func (s *AuthService) session(user *models.User) (*response, error) {
	token, err := s.jwtManager.Generate(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	return reply(map[string]any{
		"user": map[string]any{
			"id":           user.ID,
			"email":        user.Email,
			"display_name": user.DisplayName,
			"created_at":   user.CreatedAt,
		},
		"token": token,
	})
}
