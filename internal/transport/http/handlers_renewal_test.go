package http

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"domainflow/internal/domain"
	"domainflow/internal/platform/logger"
	"domainflow/internal/renewal"
	"domainflow/internal/transport/http/mocks"
	dErrors "domainflow/pkg/domain-errors"
)

type RenewalHandlerSuite struct {
	suite.Suite
}

func TestRenewalHandlerSuite(t *testing.T) {
	suite.Run(t, new(RenewalHandlerSuite))
}

func doRequest(router chi.Router, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer test-token")
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func (s *RenewalHandlerSuite) newRouter(t *testing.T, as stubValidator) (*mocks.MockRenewalService, chi.Router) {
	ctrl := gomock.NewController(t)
	mockService := mocks.NewMockRenewalService(ctrl)
	r := chi.NewRouter()
	NewRenewalHandler(mockService, logger.Discard(), as).Register(r)
	return mockService, r
}

func (s *RenewalHandlerSuite) TestRenew() {
	requestedAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	s.T().Run("delegates requester and decoded proof - 201", func(t *testing.T) {
		mockService, router := s.newRouter(t, stubValidator{employeeNo: 41, role: "DRM"})
		proof := []byte("scanned approval form")
		mockService.EXPECT().
			Apply(gomock.Any(), domain.DomainID(7), domain.EmployeeNo(41), renewal.Request{
				NewName:     "hpc.example.org",
				Reason:      "group renamed",
				Proof:       proof,
				PeriodYears: 2,
				Department:  "CSD",
				Centre:      "HQ",
			}).
			Return(&domain.RenewalRecord{
				ID:           3,
				DomainID:     7,
				PreviousName: "old.example.org",
				Reason:       "group renamed",
				RequestedAt:  requestedAt,
			}, nil)

		body := `{"new_name":"hpc.example.org","reason":"group renamed","proof":"` +
			base64.StdEncoding.EncodeToString(proof) +
			`","period_years":2,"department":"CSD","centre":"HQ"}`
		w := doRequest(router, http.MethodPost, "/domains/7/renew", body)

		assert.Equal(t, http.StatusCreated, w.Code)
		var resp struct {
			ID           int64     `json:"id"`
			DomainID     int64     `json:"domain_id"`
			PreviousName string    `json:"previous_name"`
			RequestedAt  time.Time `json:"requested_at"`
		}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, int64(3), resp.ID)
		assert.Equal(t, int64(7), resp.DomainID)
		assert.Equal(t, "old.example.org", resp.PreviousName)
		assert.True(t, requestedAt.Equal(resp.RequestedAt))
	})

	s.T().Run("maps a refused application to its coded status - 409", func(t *testing.T) {
		mockService, router := s.newRouter(t, stubValidator{employeeNo: 41, role: "DRM"})
		mockService.EXPECT().
			Apply(gomock.Any(), domain.DomainID(7), domain.EmployeeNo(41), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeConflict, "renewal already in progress"))

		w := doRequest(router, http.MethodPost, "/domains/7/renew", `{"reason":"routine","department":"CSD","centre":"HQ"}`)

		assert.Equal(t, http.StatusConflict, w.Code)
		var body map[string]string
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "conflict", body["error"])
	})

	s.T().Run("rejects a non-numeric domain id - 400", func(t *testing.T) {
		mockService, router := s.newRouter(t, stubValidator{employeeNo: 41, role: "DRM"})
		mockService.EXPECT().Apply(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		w := doRequest(router, http.MethodPost, "/domains/abc/renew", `{"reason":"routine"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	s.T().Run("rejects malformed proof encoding - 400", func(t *testing.T) {
		mockService, router := s.newRouter(t, stubValidator{employeeNo: 41, role: "DRM"})
		mockService.EXPECT().Apply(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		w := doRequest(router, http.MethodPost, "/domains/7/renew", `{"reason":"routine","proof":"%%not-base64%%"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
