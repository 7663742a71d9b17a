package extraction

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/medmatch/medmatch/internal/platform/pdftext"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/extract", h.Extract)
}

type extractRequest struct {
	Text string `json:"text" form:"text"`
}

type extractResponse struct {
	Features *FeatureSet      `json:"features"`
	Concise  *ConciseFeatures `json:"concise_features"`
	Strategy string           `json:"strategy"`
}

// Extract accepts a clinical narrative as a multipart PDF upload (field
// "file"), a form field or a JSON body, and returns the structured and
// concise feature sets.
func (h *Handler) Extract(c echo.Context) error {
	text, err := ReadClinicalText(c)
	if err != nil {
		return err
	}

	fs, strategy := h.svc.ExtractFeatures(c.Request().Context(), text)
	return c.JSON(http.StatusOK, extractResponse{
		Features: fs,
		Concise:  Concise(fs),
		Strategy: strategy,
	})
}

// ReadClinicalText resolves the clinical narrative from a request: a PDF
// upload takes precedence, then a plain text field. Shared with the
// matching handler, which accepts the same input shapes.
func ReadClinicalText(c echo.Context) (string, error) {
	if file, err := c.FormFile("file"); err == nil && file != nil {
		src, err := file.Open()
		if err != nil {
			return "", echo.NewHTTPError(http.StatusBadRequest, "cannot open uploaded file")
		}
		defer src.Close()

		data, err := io.ReadAll(src)
		if err != nil {
			return "", echo.NewHTTPError(http.StatusBadRequest, "cannot read uploaded file")
		}
		text, err := pdftext.ExtractText(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return "", echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		}
		return text, nil
	}

	var req extractRequest
	if err := c.Bind(&req); err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	text := strings.TrimSpace(req.Text)
	if err := Validate(text); err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return text, nil
}
