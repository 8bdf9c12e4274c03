// internal/handlers/product.go
package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/suppleit/suppleit-backend/internal/i18n"
	"github.com/suppleit/suppleit-backend/internal/services"
	"github.com/suppleit/suppleit-backend/internal/utils"
)

type ProductHandler struct {
	productService *services.ProductService
}

func NewProductHandler(productService *services.ProductService) *ProductHandler {
	return &ProductHandler{
		productService: productService,
	}
}

// GET /products/search?keyword=
func (h *ProductHandler) SearchProducts(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.SearchProductsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "query"), err.Error())
		return
	}
	req.Keyword = strings.TrimSpace(req.Keyword)

	// Validate request
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	result := h.productService.SearchProducts(c.Request.Context(), req.Keyword)

	meta := gin.H{
		"keyword": result.Keyword,
		"source":  result.Source,
		"count":   len(result.Products),
	}
	if result.FallbackReason != "" {
		meta["fallback_reason"] = result.FallbackReason
	}
	if len(result.Skipped) > 0 {
		meta["skipped"] = result.Skipped
	}

	utils.SuccessResponseWithMeta(c, gin.H{
		"products": result.Products,
	}, meta)
}

// GET /products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyProductInvalidID), nil)
		return
	}

	product, err := h.productService.GetProductByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrProductNotFound) {
			utils.NotFoundResponse(c, i18n.KeyProductNotFound)
			return
		}
		c.Error(err)
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"product": product,
	})
}
