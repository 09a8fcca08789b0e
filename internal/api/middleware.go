package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ignite/courier/internal/cache"
	"github.com/ignite/courier/internal/domain"
	"github.com/ignite/courier/internal/pkg/httputil"
	"github.com/ignite/courier/internal/pkg/logger"
	"github.com/ignite/courier/internal/store"
)

type contextKey string

const (
	userIDKey  contextKey = "user_id"
	projectKey contextKey = "project"
)

// bearerToken extracts the Bearer credential from the Authorization
// header, or "" when absent.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// requireUser verifies a dashboard JWT (HS256, subject = user id) and
// stores the user id in the request context.
func requireUser(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := bearerToken(r)
			if tokenStr == "" {
				httputil.Unauthorized(w, "missing bearer token")
				return
			}

			claims := &jwt.RegisteredClaims{}
			token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
				return []byte(secret), nil
			}, jwt.WithValidMethods([]string{"HS256"}))
			if err != nil || !token.Valid {
				httputil.Unauthorized(w, "invalid token")
				return
			}

			userID, err := uuid.Parse(claims.Subject)
			if err != nil {
				httputil.Unauthorized(w, "invalid token subject")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requireProject authenticates a project secret key, consulting the
// cache before the database, and stores the project in the request
// context.
func (h *Handlers) requireProject() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			secret := bearerToken(r)
			if secret == "" {
				httputil.Unauthorized(w, "missing api key")
				return
			}

			project, err := h.lookupProjectBySecret(r.Context(), secret)
			if errors.Is(err, store.ErrNotFound) {
				httputil.Unauthorized(w, "invalid api key")
				return
			}
			if err != nil {
				httputil.InternalError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), projectKey, project)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (h *Handlers) lookupProjectBySecret(ctx context.Context, secret string) (*domain.Project, error) {
	if h.cache != nil {
		p, err := h.cache.GetProject(ctx, cache.ProjectSecretKey(secret))
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			logger.Warn("project cache read failed", "error", err.Error())
		}
	}

	p, err := h.store.GetProjectBySecret(ctx, secret)
	if err != nil {
		return nil, err
	}
	if h.cache != nil {
		if err := h.cache.SetProject(ctx, p); err != nil {
			logger.Warn("project cache fill failed", "error", err.Error())
		}
	}
	return p, nil
}

// userIDFrom returns the authenticated user id, or uuid.Nil on anonymous
// routes.
func userIDFrom(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(userIDKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

// projectFrom returns the authenticated project on project-key routes.
func projectFrom(ctx context.Context) *domain.Project {
	p, _ := ctx.Value(projectKey).(*domain.Project)
	return p
}
