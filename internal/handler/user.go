package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ekinsu/auth-service/internal/auth"
	"github.com/ekinsu/auth-service/internal/middleware"
	"github.com/ekinsu/auth-service/internal/model"
	"github.com/ekinsu/auth-service/internal/queue"
)

// UserHandler exposes the user directory: profile access for any
// authenticated caller, management operations for administrators.
type UserHandler struct {
	Svc    *auth.Service
	Events *queue.Publisher
}

func NewUserHandler(svc *auth.Service, ev *queue.Publisher) *UserHandler {
	return &UserHandler{Svc: svc, Events: ev}
}

type createUserReq struct {
	FirstName   string   `json:"first_name"`
	LastName    string   `json:"last_name"`
	Email       string   `json:"email"`
	Password    string   `json:"password"`
	PhoneNumber string   `json:"phone_number"`
	Roles       []string `json:"roles"`
}
type updateUserReq struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
}
type changePasswordReq struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Me returns the authenticated caller's own record.
func (h *UserHandler) Me(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Svc.GetUser(ctx, middleware.Subject(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, u.Public())
}

// Get returns a user by email.
func (h *UserHandler) Get(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Svc.GetUser(ctx, c.Param("email"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, u.Public())
}

// List returns a page of users. Query params page and size follow the
// original API's defaults (page 0, five per page).
func (h *UserHandler) List(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))

	ctx, cancel := reqCtx(c)
	defer cancel()

	users, err := h.Svc.ListUsers(ctx, page, size)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]model.PublicUser, 0, len(users))
	for i := range users {
		out = append(out, users[i].Public())
	}
	return c.JSON(http.StatusOK, echo.Map{"users": out, "page": page})
}

// Create registers a user with an explicit role set on behalf of the
// authenticated administrator.
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	roles := make([]model.Role, 0, len(req.Roles))
	for _, r := range req.Roles {
		roles = append(roles, model.Role(r))
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Svc.CreateUser(ctx, middleware.Subject(c), auth.CreateUserRequest{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
		Roles:       roles,
	})
	if err != nil {
		return respondError(c, err)
	}
	h.publish(c, queue.EventUserRegistered, u.Email, middleware.Subject(c))
	return c.JSON(http.StatusCreated, u.Public())
}

// Update rewrites the profile of the user at :email. The caller becomes
// the audit author of the change.
func (h *UserHandler) Update(c echo.Context) error {
	var req updateUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Svc.UpdateUser(ctx, middleware.Subject(c), c.Param("email"), auth.UpdateUserRequest{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, u.Public())
}

// ChangePassword rotates the caller's own password and revokes all of
// their tokens; the client must sign in again.
func (h *UserHandler) ChangePassword(c echo.Context) error {
	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	subject := middleware.Subject(c)
	if err := h.Svc.ChangePassword(ctx, subject, req.CurrentPassword, req.NewPassword); err != nil {
		return respondError(c, err)
	}
	h.publish(c, queue.EventTokensRevoked, subject, subject)
	return c.NoContent(http.StatusNoContent)
}

// Delete hard-removes the user at :email along with their tokens.
func (h *UserHandler) Delete(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	email := c.Param("email")
	if err := h.Svc.DeleteUser(ctx, email); err != nil {
		return respondError(c, err)
	}
	h.publish(c, queue.EventUserDeleted, auth.NormalizeEmail(email), middleware.Subject(c))
	return c.NoContent(http.StatusNoContent)
}

func (h *UserHandler) publish(c echo.Context, event, subject, actor string) {
	if h.Events == nil {
		return
	}
	_ = h.Events.Publish(c.Request().Context(), queue.AuthEvent{
		Type:       event,
		Subject:    subject,
		Actor:      actor,
		RemoteAddr: c.RealIP(),
		OccurredAt: nowRFC3339(),
	})
}
