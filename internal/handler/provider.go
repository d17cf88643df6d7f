package handler

import (
	"errors"
	"net/http"

	"aiproxy/internal/model"
	"aiproxy/internal/service"

	"github.com/gin-gonic/gin"
)

type ProviderHandler struct {
	providerService *service.ProviderService
}

func NewProviderHandler(providerService *service.ProviderService) *ProviderHandler {
	return &ProviderHandler{providerService: providerService}
}

func (h *ProviderHandler) List(c *gin.Context) {
	providers, err := h.providerService.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取供应商列表失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"providers": providers})
}

func (h *ProviderHandler) Get(c *gin.Context) {
	id := c.Param("id")

	provider, err := h.providerService.GetByID(id)
	if err != nil {
		if errors.Is(err, service.ErrProviderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取供应商失败"})
		return
	}
	c.JSON(http.StatusOK, provider)
}

func (h *ProviderHandler) Create(c *gin.Context) {
	var req model.ProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "请求参数错误",
			"details": err.Error(),
		})
		return
	}

	provider, err := h.providerService.Create(&req)
	if err != nil {
		if errors.Is(err, service.ErrProviderNameTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "创建供应商失败"})
		return
	}
	c.JSON(http.StatusCreated, provider)
}

func (h *ProviderHandler) Update(c *gin.Context) {
	id := c.Param("id")

	var req model.ProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "请求参数错误",
			"details": err.Error(),
		})
		return
	}

	provider, err := h.providerService.Update(id, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrProviderNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrProviderNameTaken):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "更新供应商失败"})
		}
		return
	}
	c.JSON(http.StatusOK, provider)
}

func (h *ProviderHandler) Delete(c *gin.Context) {
	id := c.Param("id")

	if err := h.providerService.Delete(id); err != nil {
		if errors.Is(err, service.ErrProviderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "删除供应商失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "供应商已删除"})
}

func (h *ProviderHandler) SetActive(c *gin.Context) {
	id := c.Param("id")

	if err := h.providerService.SetActive(id); err != nil {
		if errors.Is(err, service.ErrProviderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "激活供应商失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "供应商已激活"})
}

func (h *ProviderHandler) Test(c *gin.Context) {
	id := c.Param("id")

	result, err := h.providerService.Test(id)
	if err != nil {
		if errors.Is(err, service.ErrProviderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "测试供应商失败"})
		return
	}
	c.JSON(http.StatusOK, result)
}
