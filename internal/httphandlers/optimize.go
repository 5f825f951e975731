package httphandlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kthendral/optimizehub/internal/catalog"
	"github.com/kthendral/optimizehub/internal/domain"
	"github.com/kthendral/optimizehub/internal/httpresponse"
	"github.com/kthendral/optimizehub/internal/jobstore"
	"github.com/kthendral/optimizehub/internal/platform/logger"
)

// Submitter is the capability OptimizeHandler needs from the Worker
// Pool: enqueue an already-created job id, singly or as an all-or-
// nothing batch. Declared on the consumer side, mirroring
// worker.Runner's narrow-interface pattern, so this package depends on
// worker through two methods instead of the whole package.
type Submitter interface {
	Submit(id uuid.UUID) error
	SubmitBatch(ids []uuid.UUID) error
}

// OptimizeHandler serves POST /async/optimize, GET /async/tasks/{id},
// and GET /async/groups/{group_id} (§6).
type OptimizeHandler struct {
	log      *logger.Logger
	store    *jobstore.Store
	pool     Submitter
	registry *catalog.Registry
}

// NewOptimizeHandler builds an OptimizeHandler.
func NewOptimizeHandler(log *logger.Logger, store *jobstore.Store, pool Submitter, registry *catalog.Registry) *OptimizeHandler {
	return &OptimizeHandler{
		log:      log.With("component", "OptimizeHandler"),
		store:    store,
		pool:     pool,
		registry: registry,
	}
}

// Submit implements POST /async/optimize: validates the request,
// allocates one job id per algorithm sharing a single group id, writes
// each initial PENDING record, and enqueues it onto the Worker Pool.
func (h *OptimizeHandler) Submit(c *gin.Context) {
	var req optimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpresponse.RespondErrorStatus(c, http.StatusBadRequest, domain.KindValidation, "malformed request body: "+err.Error())
		return
	}

	if len(req.Algorithms) == 0 {
		httpresponse.RespondErrorStatus(c, http.StatusUnprocessableEntity, domain.KindValidation, "algorithms must name at least one algorithm")
		return
	}
	for _, name := range req.Algorithms {
		if _, ok := h.registry.Get(name); !ok {
			httpresponse.RespondErrorStatus(c, http.StatusUnprocessableEntity, domain.KindValidation, "unknown algorithm "+name)
			return
		}
	}

	domain.NormalizeFitnessKey(req.Problem)
	raw, err := json.Marshal(req.Problem)
	if err != nil {
		httpresponse.RespondErrorStatus(c, http.StatusBadRequest, domain.KindValidation, "malformed problem descriptor")
		return
	}
	var pr problemRequest
	if err := json.Unmarshal(raw, &pr); err != nil {
		httpresponse.RespondErrorStatus(c, http.StatusBadRequest, domain.KindValidation, "malformed problem descriptor: "+err.Error())
		return
	}
	problem, err := pr.toDomain()
	if err != nil {
		httpresponse.RespondErrorStatus(c, http.StatusUnprocessableEntity, domain.KindValidation, err.Error())
		return
	}
	if problem.FitnessKind == domain.FitnessUserSupplied {
		httpresponse.RespondErrorStatus(c, http.StatusUnprocessableEntity, domain.KindValidation,
			"user-supplied fitness must be submitted via POST /api/optimize/custom")
		return
	}

	groupID := uuid.New()
	ids := make([]uuid.UUID, len(req.Algorithms))
	for i := range ids {
		ids[i] = uuid.New()
	}

	// Create every record before enqueueing any of them: the batch
	// submit below is all-or-nothing, so a job must never be visible to
	// the Worker Pool before its group-mates are guaranteed queueable
	// too (§6 "allocate k ids / return {group_id, task_ids}", §8
	// "existing queued jobs remain intact").
	created := make([]uuid.UUID, 0, len(ids))
	for i, algo := range req.Algorithms {
		job := &domain.Job{
			ID:          ids[i],
			GroupID:     groupID,
			Algorithm:   algo,
			Problem:     problem,
			Params:      req.Params,
			State:       domain.Pending,
			SubmittedAt: time.Now(),
		}
		if err := h.store.Create(job); err != nil {
			h.log.Error("failed to create job record", "job_id", ids[i].String(), "error", err.Error())
			h.discard(created, "failed to create a sibling job in this request")
			httpresponse.RespondErrorStatus(c, http.StatusInternalServerError, domain.KindRuntime, "failed to create job")
			return
		}
		created = append(created, ids[i])
	}

	if err := h.pool.SubmitBatch(ids); err != nil {
		h.discard(created, "submission queue at capacity")
		httpresponse.RespondErrorStatus(c, http.StatusTooManyRequests, domain.KindValidation, "submission queue at capacity, no jobs in this request were queued")
		return
	}

	taskIDs := make([]string, len(ids))
	for i, id := range ids {
		taskIDs[i] = id.String()
	}
	httpresponse.RespondOK(c, optimizeResponse{GroupID: groupID.String(), TaskIDs: taskIDs})
}

// discard transitions already-created-but-never-queued records to
// FAILURE so a batch rejection never leaves zombie PENDING jobs behind
// — they were never handed to the Worker Pool, so nothing is actually
// running for them, but without this they'd sit as PENDING forever
// since eviction only reaps terminal records.
func (h *OptimizeHandler) discard(ids []uuid.UUID, reason string) {
	for _, id := range ids {
		err := h.store.Update(id, func(j *domain.Job) error {
			now := time.Now()
			j.State = domain.Failure
			j.FinishedAt = &now
			j.Error = domain.NewError(domain.KindValidation, reason)
			return nil
		})
		if err != nil {
			h.log.Warn("failed to discard unqueued job", "job_id", id.String(), "error", err.Error())
		}
	}
}

// Poll implements GET /async/tasks/{id}: a single-shot snapshot,
// 404 if the id is unknown or evicted (§6, §7 unknown_job).
func (h *OptimizeHandler) Poll(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpresponse.RespondErrorStatus(c, http.StatusNotFound, domain.KindUnknownJob, "invalid task id")
		return
	}
	job, err := h.store.Get(id)
	if err != nil {
		httpresponse.RespondErrorStatus(c, http.StatusNotFound, domain.KindUnknownJob, "unknown task id")
		return
	}
	httpresponse.RespondOK(c, taskResponse{
		TaskID: job.ID.String(),
		State:  string(job.State),
		Result: job.Result,
		Error:  job.Error,
	})
}

// Group implements GET /async/groups/{group_id} (supplemental, §6).
func (h *OptimizeHandler) Group(c *gin.Context) {
	groupID, err := uuid.Parse(c.Param("group_id"))
	if err != nil {
		httpresponse.RespondErrorStatus(c, http.StatusNotFound, domain.KindUnknownJob, "invalid group id")
		return
	}
	ids, err := h.store.GroupTaskIDs(groupID)
	if err != nil {
		httpresponse.RespondErrorStatus(c, http.StatusNotFound, domain.KindUnknownJob, "unknown or fully evicted group")
		return
	}
	taskIDs := make([]string, len(ids))
	for i, id := range ids {
		taskIDs[i] = id.String()
	}
	httpresponse.RespondOK(c, groupResponse{GroupID: groupID.String(), TaskIDs: taskIDs})
}
