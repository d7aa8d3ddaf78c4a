package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/aikalab/scouter/internal/domain/model"
	"github.com/aikalab/scouter/internal/mocks"
)

func newJobsRouter(t *testing.T) (http.Handler, *mocks.MockJobRepository) {
	t.Helper()
	ctrl := gomock.NewController(t)
	mockRepo := mocks.NewMockJobRepository(ctrl)
	router := NewRouter(RouterServices{
		Pipeline: &stubProcessor{},
		Jobs:     mockRepo,
	})
	return router, mockRepo
}

func TestGetJobByID(t *testing.T) {
	router, mockRepo := newJobsRouter(t)
	job := &model.VideoJob{ID: "job1", Status: model.JobStatusCompleted, UserID: "user123"}
	mockRepo.EXPECT().GetByID(gomock.Any(), "job1").Return(job, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/jobs/job1", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"completed"`)
	assert.Contains(t, rec.Body.String(), "user123")
}

func TestGetJobByIDNotFound(t *testing.T) {
	router, mockRepo := newJobsRouter(t)
	mockRepo.EXPECT().GetByID(gomock.Any(), "missing").Return(nil, model.ErrJobNotFound)

	req := httptest.NewRequest(http.MethodGet, "/v1/jobs/missing", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "job_not_found")
}

func TestGetJobByIDRepoError(t *testing.T) {
	router, mockRepo := newJobsRouter(t)
	mockRepo.EXPECT().GetByID(gomock.Any(), "job1").Return(nil, assert.AnError)

	req := httptest.NewRequest(http.MethodGet, "/v1/jobs/job1", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestJobStats(t *testing.T) {
	router, mockRepo := newJobsRouter(t)
	mockRepo.EXPECT().Stats(gomock.Any()).Return(&model.JobStats{Pending: 2, Completed: 9}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/jobs/stats", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"pending":2`)
	assert.Contains(t, rec.Body.String(), `"completed":9`)
}

func TestRouterSetsRequestID(t *testing.T) {
	router, mockRepo := newJobsRouter(t)
	mockRepo.EXPECT().Stats(gomock.Any()).Return(&model.JobStats{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/jobs/stats", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestRouterKeepsSuppliedRequestID(t *testing.T) {
	router, mockRepo := newJobsRouter(t)
	mockRepo.EXPECT().Stats(gomock.Any()).Return(&model.JobStats{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/jobs/stats", nil)
	req.Header.Set("X-Request-Id", "req-42")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-Id"))
}
