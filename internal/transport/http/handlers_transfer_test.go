package http

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"domainflow/internal/domain"
	"domainflow/internal/platform/logger"
	"domainflow/internal/transfer"
	"domainflow/internal/transport/http/mocks"
	dErrors "domainflow/pkg/domain-errors"
)

type TransferHandlerSuite struct {
	suite.Suite
}

func TestTransferHandlerSuite(t *testing.T) {
	suite.Run(t, new(TransferHandlerSuite))
}

func (s *TransferHandlerSuite) newRouter(t *testing.T, as stubValidator) (*mocks.MockTransferService, chi.Router) {
	ctrl := gomock.NewController(t)
	mockService := mocks.NewMockTransferService(ctrl)
	r := chi.NewRouter()
	NewTransferHandler(mockService, logger.Discard(), as).Register(r)
	return mockService, r
}

func openTransfer() *domain.TransferRecord {
	return &domain.TransferRecord{
		ID:         5,
		DomainID:   7,
		FromNo:     41,
		ToNo:       52,
		ApproverNo: 202,
		Reason:     "project handed over",
		CreatedAt:  time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC),
	}
}

func (s *TransferHandlerSuite) TestOpen() {
	s.T().Run("delegates requester and receiver - 201", func(t *testing.T) {
		mockService, router := s.newRouter(t, stubValidator{employeeNo: 41, role: "DRM"})
		mockService.EXPECT().
			Open(gomock.Any(), domain.DomainID(7), domain.EmployeeNo(41), transfer.Request{
				ToNo:       52,
				Reason:     "project handed over",
				Department: "CSD",
				Centre:     "HQ",
			}).
			Return(openTransfer(), nil)

		w := doRequest(router, http.MethodPost, "/domains/7/transfer",
			`{"to_emp_no":52,"reason":"project handed over","department":"CSD","centre":"HQ"}`)

		assert.Equal(t, http.StatusCreated, w.Code)
		var resp struct {
			ID       int64 `json:"id"`
			FromNo   int64 `json:"from_emp_no"`
			ToNo     int64 `json:"to_emp_no"`
			Approved bool  `json:"approved"`
		}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, int64(5), resp.ID)
		assert.Equal(t, int64(41), resp.FromNo)
		assert.Equal(t, int64(52), resp.ToNo)
		assert.False(t, resp.Approved)
	})

	s.T().Run("maps an open-transfer conflict - 409", func(t *testing.T) {
		mockService, router := s.newRouter(t, stubValidator{employeeNo: 41, role: "DRM"})
		mockService.EXPECT().
			Open(gomock.Any(), domain.DomainID(7), domain.EmployeeNo(41), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeConflict, "transfer 4 is already in process"))

		w := doRequest(router, http.MethodPost, "/domains/7/transfer",
			`{"to_emp_no":52,"reason":"again","department":"CSD","centre":"HQ"}`)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func (s *TransferHandlerSuite) TestApprove() {
	s.T().Run("delegates the signing HOD - 200", func(t *testing.T) {
		mockService, router := s.newRouter(t, stubValidator{employeeNo: 202, role: "HOD"})
		approved := openTransfer()
		approved.Approved = true
		now := time.Date(2026, 4, 3, 9, 0, 0, 0, time.UTC)
		approved.ApprovedAt = &now
		mockService.EXPECT().
			Approve(gomock.Any(), int64(5), domain.EmployeeNo(202)).
			Return(approved, nil)

		w := doRequest(router, http.MethodPost, "/transfers/5/approve", `{}`)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Approved   bool       `json:"approved"`
			ApprovedAt *time.Time `json:"approved_at"`
		}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Approved)
		assert.NotNil(t, resp.ApprovedAt)
	})

	s.T().Run("rejects a non-numeric transfer id - 400", func(t *testing.T) {
		mockService, router := s.newRouter(t, stubValidator{employeeNo: 202, role: "HOD"})
		mockService.EXPECT().Approve(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		w := doRequest(router, http.MethodPost, "/transfers/abc/approve", `{}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func (s *TransferHandlerSuite) TestList() {
	s.T().Run("lists the caller's transfers - 200", func(t *testing.T) {
		mockService, router := s.newRouter(t, stubValidator{employeeNo: 202, role: "HOD"})
		mockService.EXPECT().
			List(gomock.Any(), domain.EmployeeNo(202), domain.RoleHOD).
			Return([]*domain.TransferRecord{openTransfer()}, nil)

		w := doRequest(router, http.MethodGet, "/transfers", "")

		assert.Equal(t, http.StatusOK, w.Code)
		var resp []struct {
			ID int64 `json:"id"`
		}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Len(t, resp, 1)
		assert.Equal(t, int64(5), resp[0].ID)
	})

	s.T().Run("an empty queue renders as an empty list", func(t *testing.T) {
		mockService, router := s.newRouter(t, stubValidator{employeeNo: 202, role: "HOD"})
		mockService.EXPECT().
			List(gomock.Any(), domain.EmployeeNo(202), domain.RoleHOD).
			Return(nil, nil)

		w := doRequest(router, http.MethodGet, "/transfers", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "[]\n", w.Body.String())
	})
}
