package middleware

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"

	"lawgpt/internal/logging"
	"lawgpt/internal/model"
	"lawgpt/internal/pkg/jwtutil"
	"lawgpt/internal/transport/http/response"
)

const ContextOperatorKey = "operator"

// OperatorLookup resolves the operator a token was issued to.
type OperatorLookup interface {
	GetByID(ctx context.Context, id uint) (*model.Operator, error)
}

// OperatorAuth admits admin requests whose bearer token is valid and whose
// operator still exists under the same username. Removing or renaming an
// operator revokes their outstanding tokens.
func OperatorAuth(secret string, operators OperatorLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			unauthorized(c, "missing or malformed bearer token")
			return
		}
		claims, err := jwtutil.ParseToken(secret, token)
		if err != nil {
			unauthorized(c, "invalid or expired token")
			return
		}

		ctx := c.Request.Context()
		op, err := operators.GetByID(ctx, claims.OperatorID)
		if err != nil {
			logging.FromContext(ctx).Error("operator lookup failed",
				slog.Uint64("operator_id", uint64(claims.OperatorID)),
				slog.String("error", err.Error()),
			)
			response.Error(c, 500, response.CodeInternalServer, "internal server error")
			c.Abort()
			return
		}
		if op == nil || op.Username != claims.Username {
			unauthorized(c, "operator no longer exists")
			return
		}

		c.Set(ContextOperatorKey, op)
		c.Next()
	}
}

// CurrentOperator returns the operator admitted by OperatorAuth, or nil.
func CurrentOperator(c *gin.Context) *model.Operator {
	v, ok := c.Get(ContextOperatorKey)
	if !ok {
		return nil
	}
	op, _ := v.(*model.Operator)
	return op
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(c *gin.Context, message string) {
	response.Error(c, 401, response.CodeUnauthorized, message)
	c.Abort()
}
