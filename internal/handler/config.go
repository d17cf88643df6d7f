package handler

import (
	"net/http"

	"aiproxy/internal/model"
	"aiproxy/internal/service"

	"github.com/gin-gonic/gin"
)

type ConfigHandler struct {
	promptService   *service.PromptService
	settingsService *service.SettingsService
}

func NewConfigHandler(promptService *service.PromptService, settingsService *service.SettingsService) *ConfigHandler {
	return &ConfigHandler{
		promptService:   promptService,
		settingsService: settingsService,
	}
}

func (h *ConfigHandler) GetPromptConfig(c *gin.Context) {
	cfg, err := h.promptService.Get()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取提示词配置失败"})
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (h *ConfigHandler) UpdatePromptConfig(c *gin.Context) {
	var req model.PromptConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "请求参数错误",
			"details": err.Error(),
		})
		return
	}

	cfg, err := h.promptService.Update(&req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "更新提示词配置失败"})
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (h *ConfigHandler) GetSettings(c *gin.Context) {
	settings, err := h.settingsService.Get()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取应用设置失败"})
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *ConfigHandler) UpdateSettings(c *gin.Context) {
	var req model.AppSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "请求参数错误",
			"details": err.Error(),
		})
		return
	}

	settings, err := h.settingsService.Update(&req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "更新应用设置失败"})
		return
	}
	c.JSON(http.StatusOK, settings)
}
