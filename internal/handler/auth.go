package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ekinsu/auth-service/internal/auth"
	"github.com/ekinsu/auth-service/internal/metrics"
	"github.com/ekinsu/auth-service/internal/model"
	"github.com/ekinsu/auth-service/internal/queue"
)

// AuthHandler bundles the dependencies of the auth endpoints. Events
// and Metrics may be nil; both are best-effort side channels.
type AuthHandler struct {
	Svc     *auth.Service
	Metrics *metrics.Collector
	Events  *queue.Publisher
}

func NewAuthHandler(svc *auth.Service, m *metrics.Collector, ev *queue.Publisher) *AuthHandler {
	return &AuthHandler{Svc: svc, Metrics: m, Events: ev}
}

// ----- DTOs -----

type signUpReq struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phone_number"`
}
type signInReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type authResp struct {
	User    model.PublicUser `json:"user"`
	Access  tokenPart        `json:"access"`
	Refresh tokenPart        `json:"refresh"`
}

func pairResp(u *model.User, pair auth.TokenPair) authResp {
	return authResp{
		User:    u.Public(),
		Access:  tokenPart{Token: pair.Access.Raw, Expires: pair.Access.ExpiresAt},
		Refresh: tokenPart{Token: pair.Refresh.Raw, Expires: pair.Refresh.ExpiresAt},
	}
}

// SignUp registers a user and returns tokens immediately.
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req signUpReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, pair, err := h.Svc.SignUp(ctx, auth.SignUpRequest{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		h.fail(err)
		return respondError(c, err)
	}
	h.count(func(m *metrics.Collector) { m.RecordSignUp() })
	h.publish(c, queue.EventUserRegistered, u.Email, "")
	return c.JSON(http.StatusCreated, pairResp(u, pair))
}

// SignIn verifies credentials and returns a fresh pair. The previous
// token set dies with this call.
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req signInReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, pair, err := h.Svc.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		h.fail(err)
		return respondError(c, err)
	}
	h.count(func(m *metrics.Collector) { m.RecordSignIn() })
	h.publish(c, queue.EventUserSignedIn, u.Email, "")
	return c.JSON(http.StatusOK, pairResp(u, pair))
}

// Refresh exchanges the refresh token in the Authorization header for a
// new access token. The refresh token is returned unchanged.
func (h *AuthHandler) Refresh(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, pair, err := h.Svc.Refresh(ctx, c.Request().Header.Get("Authorization"))
	if err != nil {
		h.fail(err)
		return respondError(c, err)
	}
	h.count(func(m *metrics.Collector) { m.RecordRefresh() })
	return c.JSON(http.StatusOK, pairResp(u, pair))
}

// Logout revokes the caller's whole token set.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	subject, err := h.Svc.Logout(ctx, c.Request().Header.Get("Authorization"))
	if err != nil {
		h.fail(err)
		return respondError(c, err)
	}
	h.count(func(m *metrics.Collector) { m.RecordRevocation() })
	h.publish(c, queue.EventTokensRevoked, subject, "")
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) count(fn func(*metrics.Collector)) {
	if h.Metrics != nil {
		fn(h.Metrics)
	}
}

func (h *AuthHandler) fail(err error) {
	if h.Metrics != nil {
		h.Metrics.RecordFailure(failureReason(err))
	}
}

func (h *AuthHandler) publish(c echo.Context, event, subject, actor string) {
	if h.Events == nil {
		return
	}
	// Fire and forget; a broker outage must not fail the request.
	_ = h.Events.Publish(c.Request().Context(), queue.AuthEvent{
		Type:       event,
		Subject:    subject,
		Actor:      actor,
		RemoteAddr: c.RealIP(),
		OccurredAt: nowRFC3339(),
	})
}

// reqCtx bounds the duration of the database work behind a request.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}
