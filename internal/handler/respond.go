package handler

import "github.com/labstack/echo/v4"

// Every endpoint answers with the same envelope:
// { success, data?, error?: { code, message, details? } }.

type errBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type envelope struct {
	Success bool     `json:"success"`
	Data    any      `json:"data,omitempty"`
	Error   *errBody `json:"error,omitempty"`
}

func ok(c echo.Context, status int, data any) error {
	return c.JSON(status, envelope{Success: true, Data: data})
}

func fail(c echo.Context, status int, code, message string) error {
	return c.JSON(status, envelope{Success: false, Error: &errBody{Code: code, Message: message}})
}

func failDetails(c echo.Context, status int, code, message string, details any) error {
	return c.JSON(status, envelope{Success: false, Error: &errBody{Code: code, Message: message, Details: details}})
}
