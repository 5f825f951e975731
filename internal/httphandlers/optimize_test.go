package httphandlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/kthendral/optimizehub/internal/catalog"
	"github.com/kthendral/optimizehub/internal/domain"
	"github.com/kthendral/optimizehub/internal/jobstore"
	"github.com/kthendral/optimizehub/internal/platform/logger"
)

type fakeSubmitter struct {
	full bool
	ids  []uuid.UUID
}

func (f *fakeSubmitter) Submit(id uuid.UUID) error {
	if f.full {
		return context.DeadlineExceeded
	}
	f.ids = append(f.ids, id)
	return nil
}

func (f *fakeSubmitter) SubmitBatch(ids []uuid.UUID) error {
	if f.full {
		return context.DeadlineExceeded
	}
	f.ids = append(f.ids, ids...)
	return nil
}

func newTestHandler(t *testing.T) (*OptimizeHandler, *jobstore.Store, *fakeSubmitter) {
	t.Helper()
	log, err := logger.New("development")
	require.NoError(t, err)
	store, err := jobstore.New(log, jobstore.WithRetention(time.Hour))
	require.NoError(t, err)
	reg := catalog.NewRegistry()
	require.NoError(t, catalog.RegisterBuiltins(reg))
	sub := &fakeSubmitter{}
	return NewOptimizeHandler(log, store, sub, reg), store, sub
}

func newTestRouter(setup func(r *gin.Engine)) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	setup(r)
	return r
}

func TestSubmitHappyPathAllocatesSharedGroupID(t *testing.T) {
	h, _, sub := newTestHandler(t)
	r := newTestRouter(func(r *gin.Engine) { r.POST("/async/optimize", h.Submit) })

	body := `{"problem":{"n":2,"bounds":[[-5,5],[-5,5]],"objective":"minimize","fitness":"sphere"},"algorithms":["particle_swarm","genetic_algorithm"],"params":{"swarm_size":30,"max_iterations":50}}`
	req := httptest.NewRequest(http.MethodPost, "/async/optimize", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp optimizeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.TaskIDs, 2)
	require.Len(t, sub.ids, 2)
}

func TestSubmitRejectsUnknownAlgorithm(t *testing.T) {
	h, _, _ := newTestHandler(t)
	r := newTestRouter(func(r *gin.Engine) { r.POST("/async/optimize", h.Submit) })

	body := `{"problem":{"n":1,"bounds":[[0,1]],"objective":"minimize","fitness":"sphere"},"algorithms":["not_a_real_algorithm"]}`
	req := httptest.NewRequest(http.MethodPost, "/async/optimize", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSubmitAcceptsNormalizedFieldNameDrift(t *testing.T) {
	h, _, _ := newTestHandler(t)
	r := newTestRouter(func(r *gin.Engine) { r.POST("/async/optimize", h.Submit) })

	// fitness_function_name is an alias (§9 "Field-name drift") that
	// must be renamed to the canonical "fitness" key before validation.
	body := `{"problem":{"n":1,"bounds":[[0,1]],"objective":"minimize","fitness_function_name":"sphere"},"algorithms":["particle_swarm"]}`
	req := httptest.NewRequest(http.MethodPost, "/async/optimize", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestSubmitRejectsUnknownBenchmark(t *testing.T) {
	h, _, _ := newTestHandler(t)
	r := newTestRouter(func(r *gin.Engine) { r.POST("/async/optimize", h.Submit) })

	body := `{"problem":{"n":1,"bounds":[[0,1]],"objective":"minimize","fitness":"not_a_benchmark"},"algorithms":["particle_swarm"]}`
	req := httptest.NewRequest(http.MethodPost, "/async/optimize", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestPollUnknownTaskReturns404(t *testing.T) {
	h, _, _ := newTestHandler(t)
	r := newTestRouter(func(r *gin.Engine) { r.GET("/async/tasks/:id", h.Poll) })

	req := httptest.NewRequest(http.MethodGet, "/async/tasks/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPollKnownTaskReturnsSnapshot(t *testing.T) {
	h, store, _ := newTestHandler(t)
	r := newTestRouter(func(r *gin.Engine) { r.GET("/async/tasks/:id", h.Poll) })

	job := &domain.Job{ID: uuid.New(), GroupID: uuid.New(), Algorithm: "particle_swarm", State: domain.Pending, SubmittedAt: time.Now()}
	require.NoError(t, store.Create(job))

	req := httptest.NewRequest(http.MethodGet, "/async/tasks/"+job.ID.String(), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp taskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "PENDING", resp.State)
}

func TestGroupUnknownReturns404(t *testing.T) {
	h, _, _ := newTestHandler(t)
	r := newTestRouter(func(r *gin.Engine) { r.GET("/async/groups/:group_id", h.Group) })

	req := httptest.NewRequest(http.MethodGet, "/async/groups/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmitQueueFullDiscardsAlreadyCreatedSiblingsAllOrNothing(t *testing.T) {
	log, err := logger.New("development")
	require.NoError(t, err)
	store, err := jobstore.New(log, jobstore.WithRetention(time.Hour))
	require.NoError(t, err)
	reg := catalog.NewRegistry()
	require.NoError(t, catalog.RegisterBuiltins(reg))
	sub := &fakeSubmitter{full: true}
	h := NewOptimizeHandler(log, store, sub, reg)
	r := newTestRouter(func(r *gin.Engine) { r.POST("/async/optimize", h.Submit) })

	body := `{"problem":{"n":1,"bounds":[[0,1]],"objective":"minimize","fitness":"sphere"},"algorithms":["particle_swarm","genetic_algorithm"]}`
	req := httptest.NewRequest(http.MethodPost, "/async/optimize", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Empty(t, sub.ids)

	var resp optimizeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Empty(t, resp.GroupID)
	require.Empty(t, resp.TaskIDs)
}

func TestGroupReturnsAllTaskIDs(t *testing.T) {
	h, _, sub := newTestHandler(t)
	r := newTestRouter(func(r *gin.Engine) {
		r.POST("/async/optimize", h.Submit)
		r.GET("/async/groups/:group_id", h.Group)
	})
	_ = sub

	body := `{"problem":{"n":1,"bounds":[[0,1]],"objective":"minimize","fitness":"sphere"},"algorithms":["particle_swarm","ant_colony"]}`
	req := httptest.NewRequest(http.MethodPost, "/async/optimize", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp optimizeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	req2 := httptest.NewRequest(http.MethodGet, "/async/groups/"+resp.GroupID, nil)
	rec2 := httptest.NewRecorder()
	r.ServeHTTP(rec2, req2)
	require.Equal(t, http.StatusOK, rec2.Code)
	var groupResp groupResponse
	require.NoError(t, json.Unmarshal(rec2.Body.Bytes(), &groupResp))
	require.ElementsMatch(t, resp.TaskIDs, groupResp.TaskIDs)
}
