package controllers

import (
	"net/http"

	"github.com/launchbase-io/launchbase-backend/api/responses"
	"github.com/launchbase-io/launchbase-backend/internal/plans"
	pkgerrors "github.com/launchbase-io/launchbase-backend/pkg/errors"
	"github.com/launchbase-io/launchbase-backend/pkg/logger"
)

// PlansController serves the public plan catalog.
type PlansController struct {
	repo   plans.Repository
	logger *logger.Logger
}

func NewPlansController(repo plans.Repository, logg *logger.Logger) *PlansController {
	return &PlansController{repo: repo, logger: logg}
}

// List returns every catalog plan, default plan first.
func (c *PlansController) List(w http.ResponseWriter, r *http.Request) {
	rows, err := c.repo.ListPlans(r.Context())
	if err != nil {
		responses.WriteError(r.Context(), c.logger, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list plans"))
		return
	}
	responses.WriteSuccess(w, plans.FromModels(rows))
}
