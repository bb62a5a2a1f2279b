package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/bankcore/backend/internal/models"
	"github.com/bankcore/backend/internal/services"
)

type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// Identity is the authenticated caller. CustomerID is zero for staff
// accounts that act on behalf of customers.
type Identity struct {
	UserID     string
	CustomerID models.ID
	Role       Role
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// CanAccess reports whether the caller may read data owned by customerID.
func (i Identity) CanAccess(customerID models.ID) bool {
	return i.IsAdmin() || (!i.CustomerID.IsZero() && i.CustomerID == customerID)
}

// Claims is the token payload issued by the auth service.
type Claims struct {
	UserID     string `json:"user_id"`
	CustomerID string `json:"customer_id,omitempty"`
	Role       Role   `json:"role"`
	jwt.RegisteredClaims
}

type contextKey struct{}

var identityKey = contextKey{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom returns the identity placed by AuthMiddleware.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

var errRevoked = errors.New("token has been revoked")

// Auth verifies bearer tokens. Revocation checks are skipped when redis is
// nil.
type Auth struct {
	secret []byte
	redis  *redis.Client
	logger *zap.Logger
}

func NewAuth(secret string, redisClient *redis.Client, logger *zap.Logger) *Auth {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Auth{secret: []byte(secret), redis: redisClient, logger: logger}
}

func (a *Auth) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Get token from Authorization header
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			services.SendErrorResponse(w, "Authorization header required", services.CodeUnauthorized, http.StatusUnauthorized, nil)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			services.SendErrorResponse(w, "Invalid authorization header format", services.CodeUnauthorized, http.StatusUnauthorized, nil)
			return
		}
		token := parts[1]

		identity, err := a.validateToken(token)
		if err != nil {
			a.logger.Debug("rejected token", zap.Error(err))
			services.SendErrorResponse(w, "Invalid token", services.CodeUnauthorized, http.StatusUnauthorized, nil)
			return
		}

		if err := a.checkRevoked(r.Context(), token); err != nil {
			if errors.Is(err, errRevoked) {
				services.SendErrorResponse(w, "Token has been revoked", services.CodeUnauthorized, http.StatusUnauthorized, nil)
				return
			}
			a.logger.Error("token revocation check failed", zap.Error(err))
			w.Header().Set("Retry-After", "1")
			services.SendErrorResponse(w, "Service temporarily unavailable", services.CodeUnavailable, http.StatusServiceUnavailable, nil)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

func (a *Auth) validateToken(tokenString string) (Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Identity{}, err
	}
	if !token.Valid {
		return Identity{}, errors.New("token is not valid")
	}

	identity := Identity{UserID: claims.UserID, Role: claims.Role}
	switch claims.Role {
	case RoleAdmin, RoleUser:
	default:
		return Identity{}, fmt.Errorf("unknown role %q", claims.Role)
	}
	if claims.CustomerID != "" {
		if identity.CustomerID, err = models.ParseID(claims.CustomerID); err != nil {
			return Identity{}, err
		}
	}
	if identity.Role == RoleUser && identity.CustomerID.IsZero() {
		return Identity{}, errors.New("customer token without customer_id")
	}
	return identity, nil
}

func (a *Auth) checkRevoked(ctx context.Context, token string) error {
	if a.redis == nil {
		return nil
	}
	n, err := a.redis.Exists(ctx, "blacklist:"+token).Result()
	if err != nil {
		return err
	}
	if n > 0 {
		return errRevoked
	}
	return nil
}

// RequireAdmin rejects callers without the ADMIN role. It must run after
// AuthMiddleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFrom(r.Context())
		if !ok {
			services.SendErrorResponse(w, "Unauthorized", services.CodeUnauthorized, http.StatusUnauthorized, nil)
			return
		}
		if !identity.IsAdmin() {
			services.SendErrorResponse(w, "Administrator role required", services.CodeAccessDenied, http.StatusForbidden, nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
