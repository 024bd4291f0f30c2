package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"

	"prolific/apierr"
	"prolific/logger"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Identity is who a bearer token belongs to.
type Identity struct {
	UserID string
	Email  string
	Role   string
}

// IdentityProvider turns a bearer token into a stable user id.
type IdentityProvider interface {
	Authenticate(ctx context.Context, token string) (Identity, error)
}

// JWTIdentity issues and checks HS256 tokens signed with a local key.
type JWTIdentity struct {
	key []byte
	ttl time.Duration
}

func NewJWTIdentity(key string) *JWTIdentity {
	return &JWTIdentity{key: []byte(key), ttl: 24 * time.Hour}
}

// GenerateJWT generates a JWT token for the user
func (j *JWTIdentity) GenerateJWT(userID, name, role, email string) (string, error) {
	claims := jwt.MapClaims{
		"userId": userID,
		"name":   name,
		"role":   role,
		"email":  email,
		"iat":    time.Now().Unix(),
		"exp":    time.Now().Add(j.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.key)
}

func (j *JWTIdentity) Authenticate(_ context.Context, tokenString string) (Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.key, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrInvalidToken
	}
	userID, _ := claims["userId"].(string)
	if userID == "" {
		return Identity{}, ErrInvalidToken
	}
	role, _ := claims["role"].(string)
	email, _ := claims["email"].(string)
	return Identity{UserID: userID, Email: email, Role: role}, nil
}

// RestIdentity asks the managed backend who a token belongs to.
type RestIdentity struct {
	client *resty.Client
	log    *logger.Logger
}

func NewRestIdentity(client *resty.Client, baseLog *logger.Logger) *RestIdentity {
	return &RestIdentity{client: client, log: baseLog.With("identity", "rest")}
}

func (r *RestIdentity) Authenticate(ctx context.Context, token string) (Identity, error) {
	var user struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	resp, err := r.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&user).
		Get("/auth/v1/user")
	if err != nil {
		r.log.Warn("identity lookup failed", "error", err)
		return Identity{}, fmt.Errorf("identity lookup: %w", err)
	}
	if resp.StatusCode() == fiber.StatusUnauthorized || resp.StatusCode() == fiber.StatusForbidden {
		return Identity{}, ErrInvalidToken
	}
	if resp.IsError() {
		r.log.Warn("identity lookup failed", "status", resp.StatusCode())
		return Identity{}, fmt.Errorf("identity lookup: backend responded %d", resp.StatusCode())
	}
	if user.ID == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: user.ID, Email: user.Email, Role: user.Role}, nil
}

// AuthGate checks the bearer token and stores the caller in c.Locals
// ("userId", "role", "token").
func AuthGate(p IdentityProvider, timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return JsonResponse(c, fiber.StatusUnauthorized, false, "Missing or invalid Authorization header", nil)
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid Authorization header format", nil)
		}
		tokenString := authHeader[len("Bearer "):]

		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()

		id, err := p.Authenticate(ctx, tokenString)
		if errors.Is(err, ErrInvalidToken) {
			return JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid or expired token", nil)
		}
		if err != nil {
			return ErrorResponse(c, apierr.New(fiber.StatusBadGateway, "identity_unavailable", err))
		}

		c.Locals("userId", id.UserID)
		c.Locals("role", id.Role)
		c.Locals("token", tokenString)
		return c.Next()
	}
}

// UserID returns the caller set by AuthGate, or "" on an open route.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals("userId").(string)
	return id
}

func JsonResponse(c *fiber.Ctx, statusCode int, status bool, message string, data interface{}) error {
	return c.Status(statusCode).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"data":    data,
	})
}

func ValidationErrorResponse(c *fiber.Ctx, errors map[string]string) error {
	return JsonResponse(c, fiber.StatusUnprocessableEntity, false, "Validation failed!", errors)
}

// ErrorResponse writes err in the standard envelope with the status apierr
// assigns it. The error code goes in data.
func ErrorResponse(c *fiber.Ctx, err error) error {
	ae := apierr.From(err)
	message := ae.Error()
	if ae.Status >= fiber.StatusInternalServerError {
		message = "Failed to process your request!"
	}
	return JsonResponse(c, ae.Status, false, message, fiber.Map{"code": ae.Code})
}
