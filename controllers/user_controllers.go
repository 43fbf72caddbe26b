package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/pos-terminal/middlewares"
	"github.com/yeremiapane/pos-terminal/services"
	"github.com/yeremiapane/pos-terminal/utils"
)

type UserController struct {
	Auth   *services.AuthService
	Shifts *services.ShiftManager
}

func NewUserController(auth *services.AuthService, shifts *services.ShiftManager) *UserController {
	return &UserController{Auth: auth, Shifts: shifts}
}

// Login user -> return session token
func (uc *UserController) Login(c *gin.Context) {
	var input struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	res, err := uc.Auth.Login(c.Request.Context(), input.Username, input.Password)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	// Sinkronkan shift aktif dari server; saat offline pakai cache lokal
	shift, err := uc.Shifts.Refresh(c.Request.Context(), res.Operator())
	if err != nil {
		utils.ErrorLogger.WithError(err).Warn("shift refresh after login failed")
	}

	utils.RespondJSON(c, http.StatusOK, "Login successful", gin.H{
		"token":        res.Token,
		"user":         res.User,
		"offline":      res.Offline,
		"active_shift": shift,
	})
}

func (uc *UserController) Logout(c *gin.Context) {
	claims, ok := middlewares.Claims(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("session not found in context"))
		return
	}
	uc.Auth.Logout(claims)
	utils.RespondJSON(c, http.StatusOK, "Logged out", nil)
}

// GetProfile -> memeriksa user dari token sesi
func (uc *UserController) GetProfile(c *gin.Context) {
	claims, ok := middlewares.Claims(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("session not found in context"))
		return
	}

	user, err := uc.Auth.Me(c.Request.Context(), claims)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Profile data retrieved successfully", gin.H{
		"user":    user,
		"offline": claims.RemoteToken == "",
	})
}
