package handler

import (
	"net/http"
	"strconv"

	"invoicegen/internal/model"
	"invoicegen/internal/service"
	"invoicegen/pkg/pagination"
	"invoicegen/pkg/response"

	"github.com/gin-gonic/gin"
)

// CatalogHandler serves the product catalogue and its categories.
type CatalogHandler struct {
	productService  service.ProductService
	categoryService service.CategoryService
}

func NewCatalogHandler(productService service.ProductService, categoryService service.CategoryService) *CatalogHandler {
	return &CatalogHandler{productService: productService, categoryService: categoryService}
}

func (h *CatalogHandler) RegisterRoutes(router *gin.RouterGroup) {
	products := router.Group("/api/products")
	{
		products.POST("", h.CreateProduct)
		products.GET("", h.ListProducts)
		products.GET("/:id", h.GetProduct)
		products.PUT("/:id", h.UpdateProduct)
		products.DELETE("/:id", h.DeleteProduct)
		products.POST("/:id/stock", h.AdjustStock)
		products.POST("/:id/duplicate", h.DuplicateProduct)
	}
	categories := router.Group("/api/categories")
	{
		categories.POST("", h.CreateCategory)
		categories.GET("", h.ListCategories)
		categories.PUT("/:id", h.UpdateCategory)
		categories.DELETE("/:id", h.DeleteCategory)
	}
}

func queryBool(c *gin.Context, name string) bool {
	v, _ := strconv.ParseBool(c.Query(name))
	return v
}

// requiredBusinessID reads business_id from the query and rejects requests without it.
func requiredBusinessID(c *gin.Context) (*service.ProductListQuery, bool) {
	businessID, ok := optionalQueryID(c, "business_id")
	if !ok {
		return nil, false
	}
	if businessID == nil {
		badRequest(c, "business_id is required")
		return nil, false
	}
	return &service.ProductListQuery{BusinessID: *businessID}, true
}

// CreateProduct adds a product to one of the caller's businesses
// @Summary      Create product
// @Tags         products
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateProductRequest  true  "Product Payload"
// @Success      201      {object}  response.Response{data=service.ProductView}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/products [post]
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req service.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	product, err := h.productService.CreateProduct(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, product))
}

// ListProducts returns a page of a business's catalogue ordered by name
// @Summary      List products
// @Tags         products
// @Security     BearerAuth
// @Produce      json
// @Param        business_id       query     string  true   "Business ID"
// @Param        category_id       query     string  false  "Category ID"
// @Param        search            query     string  false  "Matches name, SKU or description"
// @Param        include_inactive  query     bool    false  "Include deactivated products"
// @Param        low_stock         query     bool    false  "Only tracked products at or below their threshold"
// @Param        skip              query     int     false  "Rows to skip (default 0)"
// @Param        limit             query     int     false  "Page size (default 10, max 100)"
// @Success      200               {object}  response.Response{data=service.ProductPage}
// @Failure      404               {object}  response.Response
// @Router       /api/products [get]
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	q, ok := requiredBusinessID(c)
	if !ok {
		return
	}
	if q.CategoryID, ok = optionalQueryID(c, "category_id"); !ok {
		return
	}
	page := pagination.Parse(c)
	q.Search = c.Query("search")
	q.IncludeInactive = queryBool(c, "include_inactive")
	q.LowStockOnly = queryBool(c, "low_stock")
	q.Skip, q.Limit = page.Skip, page.Limit

	products, err := h.productService.ListProducts(c.Request.Context(), userID, *q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, products))
}

// GetProduct returns one product
// @Summary      Get product
// @Tags         products
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  response.Response{data=service.ProductView}
// @Failure      404  {object}  response.Response
// @Router       /api/products/{id} [get]
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	product, err := h.productService.GetProduct(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

// UpdateProduct changes the fields present in the payload
// @Summary      Update product
// @Tags         products
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Product ID"
// @Param        payload  body      service.UpdateProductRequest  true  "Product Payload"
// @Success      200      {object}  response.Response{data=service.ProductView}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/products/{id} [put]
func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	product, err := h.productService.UpdateProduct(c.Request.Context(), userID, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

// DeleteProduct deactivates a product
// @Summary      Delete product
// @Tags         products
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/products/{id} [delete]
func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.productService.DeleteProduct(c.Request.Context(), userID, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"id": id}))
}

// AdjustStock sets, adds to or subtracts from the stock of a tracked product
// @Summary      Adjust product stock
// @Tags         products
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Product ID"
// @Param        payload  body      service.AdjustStockRequest  true  "Stock Payload"
// @Success      200      {object}  response.Response{data=service.ProductView}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/products/{id}/stock [post]
func (h *CatalogHandler) AdjustStock(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	product, err := h.productService.AdjustStock(c.Request.Context(), userID, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

// DuplicateProduct copies a product without its SKU and stock
// @Summary      Duplicate product
// @Tags         products
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Product ID"
// @Success      201  {object}  response.Response{data=service.ProductView}
// @Failure      404  {object}  response.Response
// @Router       /api/products/{id}/duplicate [post]
func (h *CatalogHandler) DuplicateProduct(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	product, err := h.productService.DuplicateProduct(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, product))
}

// CreateCategory adds a category, optionally nested under a parent of the same type
// @Summary      Create category
// @Tags         categories
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateCategoryRequest  true  "Category Payload"
// @Success      201      {object}  response.Response{data=service.CategoryView}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/categories [post]
func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req service.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	category, err := h.categoryService.CreateCategory(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, category))
}

// ListCategories returns the categories of a business
// @Summary      List categories
// @Tags         categories
// @Security     BearerAuth
// @Produce      json
// @Param        business_id       query     string  true   "Business ID"
// @Param        category_type     query     string  false  "invoice, product or expense"
// @Param        include_inactive  query     bool    false  "Include deactivated categories"
// @Success      200               {object}  response.Response{data=[]service.CategoryView}
// @Failure      400               {object}  response.Response
// @Failure      404               {object}  response.Response
// @Router       /api/categories [get]
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	q, ok := requiredBusinessID(c)
	if !ok {
		return
	}
	var categoryType *model.CategoryType
	if raw := c.Query("category_type"); raw != "" {
		t := model.CategoryType(raw)
		categoryType = &t
	}
	categories, err := h.categoryService.ListCategories(c.Request.Context(), userID, q.BusinessID, categoryType, queryBool(c, "include_inactive"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, categories))
}

// UpdateCategory changes the fields present in the payload
// @Summary      Update category
// @Tags         categories
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                         true  "Category ID"
// @Param        payload  body      service.UpdateCategoryRequest  true  "Category Payload"
// @Success      200      {object}  response.Response{data=service.CategoryView}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/categories/{id} [put]
func (h *CatalogHandler) UpdateCategory(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	category, err := h.categoryService.UpdateCategory(c.Request.Context(), userID, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, category))
}

// DeleteCategory removes an unused category and deactivates one that products still reference
// @Summary      Delete category
// @Tags         categories
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Category ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/categories/{id} [delete]
func (h *CatalogHandler) DeleteCategory(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	removed, err := h.categoryService.DeleteCategory(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"id": id, "removed": removed}))
}
