package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flicky/mm2-store/internal/dto"
	"github.com/flicky/mm2-store/internal/service"
	"github.com/flicky/mm2-store/internal/upload"
)

type ProductHandler struct {
	productService *service.ProductService
	images         *upload.Store
}

func NewProductHandler(productService *service.ProductService, images *upload.Store) *ProductHandler {
	return &ProductHandler{productService: productService, images: images}
}

func (h *ProductHandler) List(c *gin.Context) {
	var req dto.ListProductsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.productService.List(c.Request.Context(), req.Category)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *ProductHandler) GetByID(c *gin.Context) {
	resp, err := h.productService.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *ProductHandler) Create(c *gin.Context) {
	var req dto.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.productService.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *ProductHandler) Update(c *gin.Context) {
	var req dto.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.productService.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *ProductHandler) Delete(c *gin.Context) {
	if err := h.productService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Seed imports the posted products, or the built-in catalog when the body is empty.
func (h *ProductHandler) Seed(c *gin.Context) {
	var req dto.SeedProductsRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
	}

	resp, err := h.productService.Seed(c.Request.Context(), req.Products)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *ProductHandler) UploadImage(c *gin.Context) {
	limitBody(c, h.images.MaxBytes())
	fh, err := c.FormFile("image")
	if err != nil {
		respondError(c, formFileError(err))
		return
	}

	ref, err := h.images.Save(fh)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.UploadResponse{URL: ref})
}

// limitBody caps a multipart request at the file limit plus room for the
// surrounding form encoding.
func limitBody(c *gin.Context, maxFile int64) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxFile+64<<10)
}

// formFileError keeps size errors and reports every other form problem as
// a missing file.
func formFileError(err error) error {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return err
	}
	return upload.ErrEmpty
}
