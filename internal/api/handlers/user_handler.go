package handlers

import (
	"net/http"
	"strconv"

	"users-service/internal/api/apierror"
	"users-service/internal/api/response"
	"users-service/internal/domain/user"
	"users-service/pkg/validator"

	"github.com/gin-gonic/gin"
)

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	userService user.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService user.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// Create handles POST /users
func (h *UserHandler) Create(c *gin.Context) {
	var req user.CreateUserRequest

	if err := validator.DecodeJSON(c.Request.Body, &req); err != nil {
		c.Error(err)
		return
	}

	created, err := h.userService.Create(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, response.APIResponse{
		Success: true,
		Message: "User created successfully",
		Data:    created,
	})
}

// CreateBatch handles POST /users/batch
func (h *UserHandler) CreateBatch(c *gin.Context) {
	var req user.BatchCreateRequest

	if err := validator.DecodeJSON(c.Request.Body, &req); err != nil {
		c.Error(err)
		return
	}

	users := req.ToUsers()
	createMany := h.userService.CreateMany
	if req.Mode == user.BatchModeScoped {
		createMany = h.userService.CreateManyScoped
	}

	if err := createMany(c.Request.Context(), users); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, response.APIResponse{
		Success: true,
		Message: "Users created successfully",
		Data:    users,
	})
}

// FindAll handles GET /users
func (h *UserHandler) FindAll(c *gin.Context) {
	users, err := h.userService.FindAll(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, response.APIResponse{
		Success: true,
		Data:    users,
	})
}

// FindOne handles GET /users/:id
func (h *UserHandler) FindOne(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}

	found, err := h.userService.FindOne(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, response.APIResponse{
		Success: true,
		Data:    found,
	})
}

// Update handles PATCH /users/:id
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}

	var req user.UpdateUserRequest
	if err := validator.DecodeJSON(c.Request.Body, &req); err != nil {
		c.Error(err)
		return
	}

	updated, err := h.userService.Update(c.Request.Context(), id, &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, response.APIResponse{
		Success: true,
		Message: "User updated successfully",
		Data:    updated,
	})
}

// Remove handles DELETE /users/:id
func (h *UserHandler) Remove(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}

	if err := h.userService.Remove(c.Request.Context(), id); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, response.APIResponse{
		Success: true,
		Message: "User deleted successfully",
	})
}

// userID parses the :id path parameter, recording a 400 when it is not an integer.
func userID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(apierror.BadRequest("Invalid user ID format", err))
		return 0, false
	}
	return id, true
}
