package matching

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medmatch/medmatch/internal/domain/extraction"
)

type Handler struct {
	svc        *Service
	extraction *extraction.Service
}

func NewHandler(svc *Service, extractionSvc *extraction.Service) *Handler {
	return &Handler{svc: svc, extraction: extractionSvc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/process", h.Process)
}

type processResponse struct {
	Features *extraction.FeatureSet      `json:"features"`
	Concise  *extraction.ConciseFeatures `json:"concise_features"`
	Matches  []TrialMatch                `json:"matches"`
	Strategy string                      `json:"strategy"`
}

// Process is the end-to-end operation: read the clinical narrative (PDF
// upload or text), extract features and rank the trial catalog. An empty
// match list is a valid outcome, never an error.
func (h *Handler) Process(c echo.Context) error {
	text, err := extraction.ReadClinicalText(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	features, strategy := h.extraction.ExtractFeatures(ctx, text)

	matches, _, err := h.svc.MatchPatient(ctx, features)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if matches == nil {
		matches = []TrialMatch{}
	}

	return c.JSON(http.StatusOK, processResponse{
		Features: features,
		Concise:  extraction.Concise(features),
		Matches:  matches,
		Strategy: strategy,
	})
}
