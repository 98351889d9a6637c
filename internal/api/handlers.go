package api

import (
	"strconv"

	"github.com/denzelpenzel/battery-marketplace/internal/apperr"
	"github.com/denzelpenzel/battery-marketplace/internal/models"
	"github.com/denzelpenzel/battery-marketplace/internal/search"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// registerHandler handles user registration and opens a session
func (s *Server) registerHandler(ctx *fasthttp.RequestCtx) {
	var req models.UserRegistration
	if err := s.parseJSONBody(ctx, &req); err != nil {
		s.sendError(ctx, err)
		return
	}

	user, token, err := s.authService.Register(ctx, &req, clientInfo(ctx))
	if err != nil {
		s.sendError(ctx, err)
		return
	}

	s.sendJSON(ctx, fasthttp.StatusCreated, models.AuthResponse{
		UserResponse: *user.ToResponse(),
		Token:        token,
	})
}

// loginHandler handles user login
func (s *Server) loginHandler(ctx *fasthttp.RequestCtx) {
	var req models.UserLogin
	if err := s.parseJSONBody(ctx, &req); err != nil {
		s.sendError(ctx, err)
		return
	}

	user, token, err := s.authService.Login(ctx, &req, clientInfo(ctx))
	if err != nil {
		s.sendError(ctx, err)
		return
	}

	s.sendJSON(ctx, fasthttp.StatusOK, models.AuthResponse{
		UserResponse: *user.ToResponse(),
		Token:        token,
	})
}

// logoutHandler revokes the presented token. It succeeds even when the
// token is missing or unknown.
func (s *Server) logoutHandler(ctx *fasthttp.RequestCtx) {
	if token, ok := bearerToken(ctx); ok {
		if err := s.authService.Logout(ctx, token); err != nil {
			s.logger.Error("Failed to revoke session",
				zap.String("request_id", requestID(ctx)),
				zap.Error(err))
		}
	}

	s.sendJSON(ctx, fasthttp.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// meHandler returns the authenticated user
func (s *Server) meHandler(ctx *fasthttp.RequestCtx) {
	user, err := s.userService.GetUserByID(ctx, currentUserID(ctx))
	if err != nil {
		s.sendError(ctx, err)
		return
	}

	s.sendJSON(ctx, fasthttp.StatusOK, user.ToResponse())
}

// createUserHandler registers a user without opening a session
func (s *Server) createUserHandler(ctx *fasthttp.RequestCtx) {
	var req models.UserRegistration
	if err := s.parseJSONBody(ctx, &req); err != nil {
		s.sendError(ctx, err)
		return
	}

	user, err := s.authService.CreateUser(ctx, &req)
	if err != nil {
		s.sendError(ctx, err)
		return
	}

	s.sendJSON(ctx, fasthttp.StatusCreated, user.ToResponse())
}

// getUserHandler returns a user's public profile
func (s *Server) getUserHandler(ctx *fasthttp.RequestCtx) {
	id, err := pathID(ctx, "User not found")
	if err != nil {
		s.sendError(ctx, err)
		return
	}

	user, err := s.userService.GetUserByID(ctx, id)
	if err != nil {
		s.sendError(ctx, err)
		return
	}

	s.sendJSON(ctx, fasthttp.StatusOK, user.ToResponse())
}

// adminLoginsHandler returns the login history, most recent first
func (s *Server) adminLoginsHandler(ctx *fasthttp.RequestCtx) {
	page, err := search.ParsePage(queryGetter(ctx), search.MaxLimit)
	if err != nil {
		s.sendError(ctx, err)
		return
	}

	events, err := s.authService.ListLogins(ctx, page.Limit)
	if err != nil {
		s.sendError(ctx, err)
		return
	}

	s.sendJSON(ctx, fasthttp.StatusOK, events)
}

// adminInquiriesHandler returns every inquiry, most recent first
func (s *Server) adminInquiriesHandler(ctx *fasthttp.RequestCtx) {
	page, err := search.ParsePage(queryGetter(ctx), search.MaxLimit)
	if err != nil {
		s.sendError(ctx, err)
		return
	}

	inquiries, err := s.inquiryService.ListInquiries(ctx, page.Limit)
	if err != nil {
		s.sendError(ctx, err)
		return
	}

	s.sendJSON(ctx, fasthttp.StatusOK, inquiries)
}

// createInquiryHandler records an inquiry from the authenticated user
func (s *Server) createInquiryHandler(ctx *fasthttp.RequestCtx) {
	var req models.CreateInquiryRequest
	if err := s.parseJSONBody(ctx, &req); err != nil {
		s.sendError(ctx, err)
		return
	}

	inquiry, err := s.inquiryService.CreateInquiry(ctx, currentUserID(ctx), &req)
	if err != nil {
		s.sendError(ctx, err)
		return
	}

	s.sendJSON(ctx, fasthttp.StatusCreated, inquiry)
}

// pathParam returns a named route parameter
func pathParam(ctx *fasthttp.RequestCtx, name string) string {
	v, _ := ctx.UserValue(name).(string)
	return v
}

// pathID parses the numeric {id} route parameter. Anything else is reported
// as a missing entity.
func pathID(ctx *fasthttp.RequestCtx, notFound string) (int64, error) {
	id, err := strconv.ParseInt(pathParam(ctx, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.NotFound(notFound)
	}
	return id, nil
}

func queryGetter(ctx *fasthttp.RequestCtx) search.Getter {
	args := ctx.QueryArgs()
	return func(key string) string {
		return string(args.Peek(key))
	}
}
