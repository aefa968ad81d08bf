package controllers

import (
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/OrderFox/app/models"
	"github.com/ManuelReschke/OrderFox/app/repository"
	"github.com/ManuelReschke/OrderFox/internal/pkg/usercontext"
	"github.com/ManuelReschke/OrderFox/internal/pkg/utils"
)

type registerUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegisterUser creates an account and returns its API key. The raw
// key is only ever returned here; we store the hash.
func HandleRegisterUser(c *fiber.Ctx) error {
	var req registerUserRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "Malformed JSON body"})
	}

	user, err := models.CreateUser(strings.TrimSpace(req.Name), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": err.Error()})
	}

	rawKey, err := user.IssueAPIKey()
	if err != nil {
		log.Printf("register: api key generation failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "registration_failed"})
	}

	if err := repository.GetGlobalFactory().GetUserRepository().Create(user); err != nil {
		log.Printf("register: user create failed: %v", err)
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "registration_failed", "message": "Email may already be registered"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":      user.ID,
		"name":    user.Name,
		"email":   user.Email,
		"api_key": rawKey,
	})
}

// HandleGetAccount returns account information for the authenticated user.
func HandleGetAccount(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	user, err := repository.GetGlobalFactory().GetUserRepository().GetByID(userCtx.UserID)
	if err != nil {
		log.Printf("account: lookup failed for user %d: %v", userCtx.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "account_lookup_failed"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"id":                   user.ID,
		"name":                 user.Name,
		"email":                user.Email,
		"avatar_url":           utils.GetGravatarURL(user.Email, 200),
		"status":               user.Status,
		"api_key_prefix":       user.APIKeyPrefix,
		"api_key_last_used_at": formatTimePtr(user.APIKeyLastUsedAt),
		"created_at":           user.CreatedAt.UTC().Format(time.RFC3339),
	})
}
