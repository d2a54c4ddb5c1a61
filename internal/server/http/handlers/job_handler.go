package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/polkiloo/storefront/internal/domain/model"
	"github.com/polkiloo/storefront/internal/domain/repository"
	"github.com/polkiloo/storefront/internal/server/http/dto"
)

const maxJobListLimit = 500

// JobHandler exposes queue introspection.
type JobHandler struct {
	facade JobFacade
}

func NewJobHandler(facade JobFacade) *JobHandler {
	return &JobHandler{facade: facade}
}

// Get handles GET /api/jobs/:id.
func (h *JobHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Code: "INVALID_REQUEST", Message: "malformed job id"})
		return
	}
	job, err := h.facade.Job(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toJobResponse(*job))
}

// List handles GET /api/jobs?state=&limit=.
func (h *JobHandler) List(c *gin.Context) {
	filter := repository.JobFilter{State: model.JobState(c.Query("state"))}
	if filter.State != "" && !filter.State.Valid() {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Code: "INVALID_REQUEST", Message: "unknown job state"})
		return
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 || limit > maxJobListLimit {
			c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Code: "INVALID_REQUEST", Message: "limit must be between 1 and 500"})
			return
		}
		filter.Limit = limit
	}

	jobs, err := h.facade.Jobs(c.Request.Context(), filter)
	if err != nil {
		abortWithError(c, err)
		return
	}
	resp := make([]dto.JobResponse, 0, len(jobs))
	for _, j := range jobs {
		resp = append(resp, toJobResponse(j))
	}
	c.JSON(http.StatusOK, resp)
}

func toJobResponse(j model.Job) dto.JobResponse {
	return dto.JobResponse{
		ID:          j.ID.String(),
		Kind:        string(j.Kind),
		State:       string(j.State),
		Attempts:    j.Attempts,
		MaxAttempts: j.MaxAttempts,
		LastError:   j.LastError,
		RunAt:       j.RunAt,
		CreatedAt:   j.CreatedAt,
		FinishedAt:  j.FinishedAt,
	}
}
