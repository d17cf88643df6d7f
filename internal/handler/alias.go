package handler

import (
	"errors"
	"net/http"

	"aiproxy/internal/model"
	"aiproxy/internal/service"

	"github.com/gin-gonic/gin"
)

type AliasHandler struct {
	aliasService *service.AliasService
}

func NewAliasHandler(aliasService *service.AliasService) *AliasHandler {
	return &AliasHandler{aliasService: aliasService}
}

func (h *AliasHandler) List(c *gin.Context) {
	aliases, err := h.aliasService.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取别名列表失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"aliases": aliases})
}

func (h *AliasHandler) Create(c *gin.Context) {
	var req model.AliasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "请求参数错误",
			"details": err.Error(),
		})
		return
	}

	alias, err := h.aliasService.Create(&req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAliasTaken), errors.Is(err, service.ErrAliasReserved):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrProviderNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "创建别名失败"})
		}
		return
	}
	c.JSON(http.StatusCreated, alias)
}

func (h *AliasHandler) Update(c *gin.Context) {
	id := c.Param("id")

	var req model.AliasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "请求参数错误",
			"details": err.Error(),
		})
		return
	}

	alias, err := h.aliasService.Update(id, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAliasNotFound), errors.Is(err, service.ErrProviderNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrAliasTaken), errors.Is(err, service.ErrAliasReserved):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "更新别名失败"})
		}
		return
	}
	c.JSON(http.StatusOK, alias)
}

func (h *AliasHandler) Delete(c *gin.Context) {
	id := c.Param("id")

	if err := h.aliasService.Delete(id); err != nil {
		if errors.Is(err, service.ErrAliasNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "删除别名失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "别名已删除"})
}
