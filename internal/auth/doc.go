// Package auth resolves the calling user for HTTP requests.
//
// It supports two authentication modes:
//   - "none": No authentication required (default), every request acts as AUTH_DEFAULT_USER_ID
//   - "token": API clients send "Authorization: Bearer <token>", resolved against users.token
//
// # Configuration
//
//	AUTH_MODE=none            # Default, single implicit user
//	AUTH_MODE=token           # Bearer tokens required on /api routes
//	AUTH_DEFAULT_USER_ID=1    # User for "none" mode, created on first start
//
// # Usage
//
//	authService := auth.NewService(userRepo, cfg.Auth)
//	authMiddleware := auth.NewMiddleware(authService, cfg.Auth)
//	router.Use(authMiddleware.Handler())
//
// Extract user in handlers:
//
//	userID := auth.GetUserID(c)
package auth
