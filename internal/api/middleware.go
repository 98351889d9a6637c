package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/denzelpenzel/battery-marketplace/internal/apperr"
	"github.com/denzelpenzel/battery-marketplace/internal/services"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const (
	userIDKey    = "user_id"
	requestIDKey = "request_id"

	requestIDHeader = "X-Request-ID"
)

// errorResponse is the body of every failed request
type errorResponse struct {
	Error     bool                `json:"error"`
	Message   string              `json:"message"`
	Errors    []apperr.FieldError `json:"errors,omitempty"`
	Timestamp string              `json:"timestamp"`
}

// loggingMiddleware assigns a request id and logs the request once it completes.
// Headers and bodies are never logged.
func (s *Server) loggingMiddleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()

		requestID := string(ctx.Request.Header.Peek(requestIDHeader))
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		ctx.SetUserValue(requestIDKey, requestID)
		ctx.Response.Header.Set(requestIDHeader, requestID)

		next(ctx)

		s.logger.Info("HTTP request",
			zap.String("request_id", requestID),
			zap.String("method", string(ctx.Method())),
			zap.String("path", string(ctx.Path())),
			zap.Int("status", ctx.Response.StatusCode()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

// recoverMiddleware turns a panicking handler into a 500 response
func (s *Server) recoverMiddleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("Handler panic",
					zap.String("request_id", requestID(ctx)),
					zap.Any("panic", r),
					zap.ByteString("stack", debug.Stack()))
				ctx.Response.ResetBody()
				s.sendErrorResponse(ctx, fasthttp.StatusInternalServerError, "Internal server error", nil)
			}
		}()

		next(ctx)
	}
}

// securityMiddleware adds security and CORS headers
func (s *Server) securityMiddleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		ctx.Response.Header.Set("X-Content-Type-Options", "nosniff")
		ctx.Response.Header.Set("X-Frame-Options", "DENY")
		ctx.Response.Header.Set("X-XSS-Protection", "1; mode=block")
		ctx.Response.Header.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		ctx.Response.Header.Set("Content-Security-Policy", "default-src 'self'")
		ctx.Response.Header.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		ctx.Response.Header.Del("Server")
		s.setCORSHeaders(ctx)

		next(ctx)
	}
}

// authMiddleware resolves the bearer token through the session registry
func (s *Server) authMiddleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		token, ok := bearerToken(ctx)
		if !ok {
			s.sendError(ctx, apperr.Unauthenticated("Authentication required"))
			return
		}

		userID, err := s.sessions.Resolve(ctx, token)
		if err != nil {
			s.sendError(ctx, apperr.Unauthenticated("Invalid or expired session"))
			return
		}

		ctx.SetUserValue(userIDKey, userID)

		next(ctx)
	}
}

// adminMiddleware must run after authMiddleware
func (s *Server) adminMiddleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if _, err := s.userService.RequireAdmin(ctx, currentUserID(ctx)); err != nil {
			if apperr.KindOf(err) == apperr.KindNotFound {
				err = apperr.Forbidden("Admin access required")
			}
			s.sendError(ctx, err)
			return
		}

		next(ctx)
	}
}

// bearerToken extracts the token from "Authorization: Bearer <token>"
func bearerToken(ctx *fasthttp.RequestCtx) (string, bool) {
	header := strings.TrimSpace(string(ctx.Request.Header.Peek(fasthttp.HeaderAuthorization)))
	if len(header) < len("Bearer ") || !strings.EqualFold(header[:len("Bearer ")], "Bearer ") {
		return "", false
	}

	token := strings.TrimSpace(header[len("Bearer "):])
	return token, token != ""
}

func currentUserID(ctx *fasthttp.RequestCtx) int64 {
	id, _ := ctx.UserValue(userIDKey).(int64)
	return id
}

func requestID(ctx *fasthttp.RequestCtx) string {
	id, _ := ctx.UserValue(requestIDKey).(string)
	return id
}

func clientInfo(ctx *fasthttp.RequestCtx) services.ClientInfo {
	return services.ClientInfo{
		IPAddress: ctx.RemoteIP().String(),
		UserAgent: string(ctx.UserAgent()),
	}
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return fasthttp.StatusBadRequest
	case apperr.KindNotFound:
		return fasthttp.StatusNotFound
	case apperr.KindUnauthenticated:
		return fasthttp.StatusUnauthorized
	case apperr.KindForbidden:
		return fasthttp.StatusForbidden
	case apperr.KindConflict:
		return fasthttp.StatusConflict
	default:
		return fasthttp.StatusInternalServerError
	}
}

// sendError converts err into a JSON error response. Internal errors are
// logged with their cause and reported generically.
func (s *Server) sendError(ctx *fasthttp.RequestCtx, err error) {
	kind := apperr.KindOf(err)

	var (
		message = "Internal server error"
		fields  []apperr.FieldError
		appErr  *apperr.Error
	)
	if errors.As(err, &appErr) && kind != apperr.KindInternal {
		message = appErr.Message
		fields = appErr.Fields
	} else if kind == apperr.KindNotFound {
		message = "Not found"
	} else if kind == apperr.KindConflict {
		message = "Resource already exists"
	}

	if kind == apperr.KindInternal {
		s.logger.Error("Request failed",
			zap.String("request_id", requestID(ctx)),
			zap.String("method", string(ctx.Method())),
			zap.String("path", string(ctx.Path())),
			zap.Error(err))
	}

	s.sendErrorResponse(ctx, statusFor(kind), message, fields)
}

// sendErrorResponse sends a JSON error response
func (s *Server) sendErrorResponse(ctx *fasthttp.RequestCtx, statusCode int, message string, fields []apperr.FieldError) {
	response := errorResponse{
		Error:     true,
		Message:   message,
		Errors:    fields,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	jsonData, _ := json.Marshal(response)
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(statusCode)
	ctx.SetBody(jsonData)
}

// sendJSON sends data as the JSON response body
func (s *Server) sendJSON(ctx *fasthttp.RequestCtx, statusCode int, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		s.sendError(ctx, apperr.Internal(fmt.Errorf("failed to marshal response: %w", err)))
		return
	}

	ctx.SetContentType("application/json")
	ctx.SetStatusCode(statusCode)
	ctx.SetBody(jsonData)
}

// parseJSONBody parses a JSON request body into dest
func (s *Server) parseJSONBody(ctx *fasthttp.RequestCtx, dest interface{}) error {
	if !ctx.IsPost() && !ctx.IsPut() {
		return apperr.Validation("Method does not accept a body")
	}

	contentType := string(ctx.Request.Header.ContentType())
	if !strings.Contains(contentType, "application/json") {
		return apperr.Validation("Content-Type must be application/json")
	}

	body := ctx.PostBody()
	if len(body) == 0 {
		return apperr.Validation("Request body is empty")
	}

	if err := json.Unmarshal(body, dest); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return apperr.Validation("Invalid request body", apperr.FieldError{
				Field:   typeErr.Field,
				Message: "must be of type " + typeErr.Type.String(),
			})
		}
		return apperr.Validation("Invalid JSON")
	}

	return nil
}
