package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JuanMolinaNavarro/Metricas-WhatsApp/internal/auth"
	"github.com/JuanMolinaNavarro/Metricas-WhatsApp/internal/db"
)

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// @Summary Log in with username and password
// @Tags auth
// @Accept json
// @Produce json
// @Success 200 {object} models.User
// @Failure 401 {object} map[string]any
// @Router /api/auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_BODY", "Malformed login body", err.Error())
		return
	}
	if err := h.Validator.Struct(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_BODY", "username and password are required", nil)
		return
	}

	user, hash, err := h.Store.GetActiveUserCredentials(c.Request.Context(), req.Username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to look up user", err.Error())
		return
	}
	if !auth.VerifyPassword(req.Password, hash) {
		writeError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials", nil)
		return
	}
	c.JSON(http.StatusOK, user)
}

type createUserRequest struct {
	Username  string `json:"username" validate:"required"`
	Password  string `json:"password" validate:"required"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Role      string `json:"role" validate:"required,oneof=admin supervisor sa"`
}

// @Summary Create a user
// @Tags users
// @Accept json
// @Produce json
// @Param X-Admin-Key header string false "Admin key"
// @Success 201 {object} models.User
// @Failure 409 {object} map[string]any
// @Router /api/users [post]
func (h *Handler) UserCreate(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_BODY", "Malformed user body", err.Error())
		return
	}
	if err := h.Validator.Struct(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_BODY", "Invalid user body", err.Error())
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "INTERNAL", "Failed to hash password", nil)
		return
	}

	user, err := h.Store.CreateUser(c.Request.Context(), req.Username, hash, req.FirstName, req.LastName, req.Role)
	if err != nil {
		if isUniqueViolation(err) {
			writeError(c, http.StatusConflict, "USERNAME_TAKEN", "Username already exists", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to create user", err.Error())
		return
	}
	c.JSON(http.StatusCreated, user)
}

// @Summary List users
// @Tags users
// @Produce json
// @Param X-Admin-Key header string false "Admin key"
// @Success 200 {array} models.User
// @Router /api/users [get]
func (h *Handler) UserList(c *gin.Context) {
	users, err := h.Store.ListUsers(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list users", err.Error())
		return
	}
	c.JSON(http.StatusOK, users)
}

type updateUserRequest struct {
	Username  *string `json:"username"`
	Password  *string `json:"password"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Role      *string `json:"role" validate:"omitempty,oneof=admin supervisor sa"`
}

// @Summary Update a user
// @Tags users
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param X-Admin-Key header string false "Admin key"
// @Success 200 {object} models.User
// @Failure 404 {object} map[string]any
// @Router /api/users/{id} [put]
func (h *Handler) UserUpdate(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_USER_ID", "User id must be numeric", nil)
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_BODY", "Malformed user body", err.Error())
		return
	}
	if err := h.Validator.Struct(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_BODY", "Invalid user body", err.Error())
		return
	}
	if req.Username == nil && req.Password == nil && req.FirstName == nil && req.LastName == nil && req.Role == nil {
		writeError(c, http.StatusBadRequest, "INVALID_BODY", "At least one field is required", nil)
		return
	}

	upd := db.UserUpdate{
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
	}
	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			writeError(c, http.StatusInternalServerError, "INTERNAL", "Failed to hash password", nil)
			return
		}
		upd.PasswordHash = &hash
	}

	user, err := h.Store.UpdateUser(c.Request.Context(), id, upd)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "User not found", nil)
			return
		}
		if isUniqueViolation(err) {
			writeError(c, http.StatusConflict, "USERNAME_TAKEN", "Username already exists", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to update user", err.Error())
		return
	}
	c.JSON(http.StatusOK, user)
}

// @Summary Deactivate a user
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Param X-Admin-Key header string false "Admin key"
// @Success 200 {object} models.User
// @Failure 404 {object} map[string]any
// @Router /api/users/{id}/deactivate [patch]
func (h *Handler) UserDeactivate(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_USER_ID", "User id must be numeric", nil)
		return
	}

	user, err := h.Store.DeactivateUser(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "User not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to deactivate user", err.Error())
		return
	}
	c.JSON(http.StatusOK, user)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
