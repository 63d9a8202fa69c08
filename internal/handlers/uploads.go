package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yishak-cs/bundle-miner/internal/apierr"
	"github.com/yishak-cs/bundle-miner/internal/ingest"
)

// Multipart field names.
const (
	fieldTransactions = "transactions"
	fieldProducts     = "products"
	fieldHistorical   = "historical"
)

// readUpload decodes the multipart file in field. A missing optional file yields (nil, nil).
func readUpload(c *gin.Context, field string, required bool) (*ingest.Table, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		if required {
			return nil, apierr.New(http.StatusBadRequest, "missing_file", fmt.Errorf("file %q is required", field))
		}
		return nil, nil
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, apierr.New(http.StatusBadRequest, "invalid_upload", err)
	}
	if !ingest.SupportedExtension(fh.Filename) {
		return nil, apierr.New(http.StatusBadRequest, "unsupported_file_type",
			fmt.Errorf("file %q must be .csv or .xlsx", fh.Filename))
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()

	t, err := ingest.ReadTable(f, fh.Filename)
	if err != nil {
		if errors.Is(err, ingest.ErrEmptyTable) {
			return nil, apierr.New(http.StatusBadRequest, "empty_file", err)
		}
		return nil, err
	}
	return t, nil
}

// limitBody caps the request body before multipart parsing.
func (h *APIHandler) limitBody(c *gin.Context) {
	if h.cfg.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxUploadBytes)
	}
}
