package handler

import "github.com/labstack/echo/v4"

// Envelope is the body shape shared by every successful response.
type Envelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// respond writes data wrapped in the success envelope.
func respond(c echo.Context, status int, data any, message string) error {
	if data == nil {
		data = struct{}{}
	}
	return c.JSON(status, Envelope{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < 400,
	})
}
