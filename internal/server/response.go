package server

import (
	"github.com/gofiber/fiber/v2"
)

// ErrorResponse is the transport-level error schema. Per-item batch errors
// never use it; it covers failures of the batch call itself.
type ErrorResponse struct {
	Code    string `json:"code"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// OK sends an HTTP 200 OK response with a custom body.
func OK(c *fiber.Ctx, body any) error {
	return c.Status(fiber.StatusOK).JSON(body)
}

// BadRequest writes a 400 Bad Request error response.
func BadRequest(c *fiber.Ctx, code, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Code:    code,
		Title:   "Bad Request",
		Message: message,
	})
}

// Unauthorized writes a 401 Unauthorized error response.
func Unauthorized(c *fiber.Ctx, code, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
		Code:    code,
		Title:   "Unauthorized",
		Message: message,
	})
}

// InternalServerError writes a 500 response with a generic message so
// internal detail never leaks.
func InternalServerError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Code:    "internal_error",
		Title:   "Internal Server Error",
		Message: "an unexpected error occurred while processing the request",
	})
}
