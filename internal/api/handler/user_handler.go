package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/otpchat/chat-api/internal/api/metrics"
	"github.com/otpchat/chat-api/internal/core/domain"
	"github.com/otpchat/chat-api/internal/core/ports"
)

type UserHandler struct {
	auth ports.AuthService
	log  zerolog.Logger
}

func NewUserHandler(auth ports.AuthService, log zerolog.Logger) *UserHandler {
	return &UserHandler{auth: auth, log: log}
}

type registerRequest struct {
	PhoneNumber string `json:"phoneNumber" validate:"required,phone"`
	FullName    string `json:"fullname"`
}

type verifyOTPRequest struct {
	PhoneNumber string `json:"phoneNumber" validate:"required"`
	OTP         string `json:"otp"         validate:"required,otp"`
}

type loginRequest struct {
	PhoneNumber string `json:"phoneNumber" validate:"required,phone"`
}

type registerResponse struct {
	PhoneNumber string `json:"phoneNumber"`
	FullName    string `json:"fullname"`
}

type verifiedUser struct {
	ID          string `json:"id"`
	PhoneNumber string `json:"phoneNumber"`
	IsVerified  bool   `json:"isVerified"`
}

type loggedInUser struct {
	ID          string `json:"id"`
	PhoneNumber string `json:"phoneNumber"`
	IsVerified  bool   `json:"isVerified"`
	FullName    string `json:"fullname"`
}

type tokenResponse struct {
	User        any    `json:"user"`
	AccessToken string `json:"accessToken"`
}

// bindAndValidate decodes the JSON body into req and runs the registered
// validator, if any.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return domain.NewValidationError("body", "invalid payload")
	}
	if c.Echo().Validator == nil {
		return nil
	}
	return c.Validate(req)
}

// Register creates or refreshes a pending registration and issues an OTP.
// Calling it again for an unverified number is the resend path.
//
// @Summary      Register a phone number
// @Tags         user
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Phone number and full name"
// @Success      201   {object}  Envelope
// @Failure      400   {object}  Envelope
// @Failure      409   {object}  Envelope
// @Router       /user/register [post]
func (h *UserHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		return err
	}

	user, err := h.auth.Register(c.Request().Context(), req.PhoneNumber, req.FullName)
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues(resultLabel(err)).Inc()
		return err
	}
	metrics.RegistrationsTotal.WithLabelValues("ok").Inc()

	return respond(c, http.StatusCreated,
		registerResponse{PhoneNumber: user.PhoneNumber, FullName: user.FullName},
		"OTP sent successfully. Please verify your phone number.")
}

// VerifyOTP checks the code for a pending registration and returns a token.
//
// @Summary      Verify an OTP
// @Tags         user
// @Accept       json
// @Produce      json
// @Param        body  body      verifyOTPRequest  true  "Phone number and code"
// @Success      200   {object}  Envelope
// @Failure      400   {object}  Envelope
// @Failure      404   {object}  Envelope
// @Router       /user/verify-otp [post]
func (h *UserHandler) VerifyOTP(c echo.Context) error {
	var req verifyOTPRequest
	if err := bindAndValidate(c, &req); err != nil {
		metrics.OTPVerificationsTotal.WithLabelValues("invalid").Inc()
		if strings.TrimSpace(req.PhoneNumber) == "" || strings.TrimSpace(req.OTP) == "" {
			return domain.NewValidationError("otp", "phone number and OTP are required")
		}
		return err
	}

	res, err := h.auth.VerifyOTP(c.Request().Context(), req.PhoneNumber, req.OTP)
	if err != nil {
		label := "error"
		switch {
		case errors.Is(err, domain.ErrInvalidOTP), errors.Is(err, domain.ErrValidation):
			label = "rejected"
		case errors.Is(err, domain.ErrUserNotFound):
			label = "not_found"
		}
		metrics.OTPVerificationsTotal.WithLabelValues(label).Inc()
		return err
	}
	metrics.OTPVerificationsTotal.WithLabelValues("verified").Inc()

	return respond(c, http.StatusOK, tokenResponse{
		User: verifiedUser{
			ID:          res.User.ID,
			PhoneNumber: res.User.PhoneNumber,
			IsVerified:  res.User.IsVerified,
		},
		AccessToken: res.AccessToken,
	}, "Phone number verified successfully")
}

// Login issues a token for an already verified phone number.
//
// @Summary      Login
// @Tags         user
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Phone number"
// @Success      200   {object}  Envelope
// @Failure      400   {object}  Envelope
// @Failure      404   {object}  Envelope
// @Router       /user/login [post]
func (h *UserHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		metrics.LoginsTotal.WithLabelValues("invalid").Inc()
		return err
	}

	res, err := h.auth.Login(c.Request().Context(), req.PhoneNumber)
	if err != nil {
		label := "error"
		switch {
		case errors.Is(err, domain.ErrUserNotVerified):
			label = "unverified"
		case errors.Is(err, domain.ErrUserNotFound):
			label = "not_found"
		case errors.Is(err, domain.ErrValidation):
			label = "invalid"
		}
		metrics.LoginsTotal.WithLabelValues(label).Inc()
		return err
	}
	metrics.LoginsTotal.WithLabelValues("ok").Inc()

	return respond(c, http.StatusOK, tokenResponse{
		User: loggedInUser{
			ID:          res.User.ID,
			PhoneNumber: res.User.PhoneNumber,
			IsVerified:  res.User.IsVerified,
			FullName:    res.User.FullName,
		},
		AccessToken: res.AccessToken,
	}, "Login successful")
}

// CurrentUser returns the record resolved by the Auth middleware.
//
// @Summary      Current user
// @Tags         user
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  Envelope
// @Failure      401  {object}  Envelope
// @Router       /user/current-user [get]
func (h *UserHandler) CurrentUser(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, user.Public(), "Current user fetched successfully")
}

// Logout acknowledges the request. Tokens are stateless and stay valid
// until they expire; the client drops its own copy.
//
// @Summary      Logout
// @Tags         user
// @Produce      json
// @Success      200  {object}  Envelope
// @Router       /user/logout [post]
func (h *UserHandler) Logout(c echo.Context) error {
	if user, err := currentUser(c); err == nil {
		h.log.Info().Str("user_id", user.ID).Msg("user logged out")
	}
	return respond(c, http.StatusOK, nil, "Logged out successfully")
}

// Health reports that the user API is serving.
//
// @Summary      User API health
// @Tags         user
// @Produce      json
// @Success      200  {object}  Envelope
// @Router       /user/health [get]
func (h *UserHandler) Health(c echo.Context) error {
	return respond(c, http.StatusOK, nil, "Server is running")
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrUserExists):
		return "conflict"
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	default:
		return "error"
	}
}
