package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/dock-scheduler/middlewares"
	"github.com/yeremiapane/dock-scheduler/services"
	"github.com/yeremiapane/dock-scheduler/utils"
)

type AuthController struct {
	Auth     *services.AuthService
	Bookings *services.BookingService
}

func NewAuthController(auth *services.AuthService, bookings *services.BookingService) *AuthController {
	return &AuthController{Auth: auth, Bookings: bookings}
}

// Signup registers a driver by phone number.
func (ac *AuthController) Signup(c *gin.Context) {
	var req struct {
		Phone    string `json:"phone" binding:"required"`
		Name     string `json:"name"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	driver, err := ac.Auth.Signup(c.Request.Context(), services.SignupInput{
		Phone:    req.Phone,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Driver registered", driver)
}

// Login accepts JSON {phone, password} or the OAuth2 password form
// (username, password).
func (ac *AuthController) Login(c *gin.Context) {
	var phone, password string
	if strings.HasPrefix(c.ContentType(), "application/json") {
		var req struct {
			Phone    string `json:"phone" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondError(c, http.StatusBadRequest, err)
			return
		}
		phone, password = req.Phone, req.Password
	} else {
		phone, password = c.PostForm("username"), c.PostForm("password")
		if phone == "" || password == "" {
			utils.RespondError(c, http.StatusBadRequest, errors.New("username and password are required"))
			return
		}
	}

	token, err := ac.Auth.Login(c.Request.Context(), phone, password)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.InfoLogger.Printf("Login successful for driver: %s", phone)
	utils.RespondJSON(c, http.StatusOK, "Login successful", gin.H{
		"access_token": token,
		"token_type":   "bearer",
	})
}

func (ac *AuthController) Me(c *gin.Context) {
	driver, ok := middlewares.CurrentDriver(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("Could not validate credentials"))
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Driver profile", driver)
}

// MyBookings -> booking milik driver yang sedang login
func (ac *AuthController) MyBookings(c *gin.Context) {
	phone := c.GetString(middlewares.ContextDriverPhone)
	bookings, err := ac.Bookings.ForDriver(c.Request.Context(), phone)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Driver bookings", bookings)
}

func (ac *AuthController) Logout(c *gin.Context) {
	if err := ac.Auth.Logout(c.GetString(middlewares.ContextToken)); err != nil {
		utils.RespondError(c, http.StatusUnauthorized, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Logged out", nil)
}
