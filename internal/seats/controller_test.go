package seats

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cinetix/internal/screenings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSeatService feeds the controller a canned error per call.
type stubSeatService struct {
	holdErr    error
	releaseErr error
	mapErr     error
}

func (s *stubSeatService) QueryMap(context.Context, string, string) (*SeatMapResponse, error) {
	if s.mapErr != nil {
		return nil, s.mapErr
	}
	return &SeatMapResponse{}, nil
}

func (s *stubSeatService) TryHold(context.Context, string, string, []string) (*HoldResponse, error) {
	if s.holdErr != nil {
		return nil, s.holdErr
	}
	return &HoldResponse{}, nil
}

func (s *stubSeatService) Release(context.Context, string, string, []string) (*ReleaseResponse, error) {
	if s.releaseErr != nil {
		return nil, s.releaseErr
	}
	return &ReleaseResponse{}, nil
}

func (s *stubSeatService) Confirm(context.Context, string, string, []string) error { return nil }

func (s *stubSeatService) SweepExpired(context.Context, uuid.UUID) (int, error) { return 0, nil }

func (s *stubSeatService) Rebuild(context.Context, string) (*RebuildResponse, error) {
	return &RebuildResponse{}, nil
}

func (s *stubSeatService) FunctionsWithExpiredHolds(context.Context) ([]uuid.UUID, error) {
	return nil, nil
}

func (s *stubSeatService) SetBroadcaster(Broadcaster) {}

func (s *stubSeatService) SetSoldSeatSource(SoldSeatSource) {}

func holdRequest(t *testing.T, svc Service) *httptest.ResponseRecorder {
	t.Helper()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) { c.Set("user_id", "u1") })
	router.POST("/functions/:id/holds", NewController(svc).HoldSeats)

	req := httptest.NewRequest(http.MethodPost, "/functions/f1/holds", strings.NewReader(`{"seats":["A1"]}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHoldErrorsCarryStableCodes(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", screenings.ErrScreeningNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"sales closed", ErrSalesClosed, http.StatusGone, "SALES_CLOSED"},
		{"too many seats", fmt.Errorf("%w: 9 exceeds the limit of 8", ErrTooManySeats), http.StatusBadRequest, "TOO_MANY_SEATS"},
		{"invalid seat", fmt.Errorf("%w: Z99", ErrInvalidSeat), http.StatusBadRequest, "INVALID_SEAT"},
		{"lock busy", ErrLockBusy, http.StatusServiceUnavailable, "LOCK_BUSY"},
		{"store unavailable", fmt.Errorf("%w: %v", ErrStoreUnavailable, errors.New("dial tcp 10.0.0.12:5432: connect: connection refused")), http.StatusServiceUnavailable, "STORE_UNAVAILABLE"},
		{"unexpected", errors.New("selections insert: duplicate key value violates unique constraint"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := holdRequest(t, &stubSeatService{holdErr: tc.err})
			assert.Equal(t, tc.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tc.wantCode)
		})
	}
}

func TestHoldErrorsDoNotLeakInternalDiagnostics(t *testing.T) {
	storeErr := fmt.Errorf("%w: %v", ErrStoreUnavailable, errors.New("dial tcp 10.0.0.12:5432: connect: connection refused"))
	w := holdRequest(t, &stubSeatService{holdErr: storeErr})

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "STORE_UNAVAILABLE")
	assert.NotContains(t, body, "dial tcp")
	assert.NotContains(t, body, "10.0.0.12")

	w = holdRequest(t, &stubSeatService{holdErr: errors.New("selections insert: duplicate key value violates unique constraint")})
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "duplicate key")
}

func TestSeatConflictsStayVisibleToTheClient(t *testing.T) {
	conflictErr := &SeatUnavailableError{Conflicts: []SeatConflict{
		{Code: "A1", State: SeatHeld},
	}}
	w := holdRequest(t, &stubSeatService{holdErr: conflictErr})

	require.Equal(t, http.StatusConflict, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "SEAT_UNAVAILABLE")
	assert.Contains(t, body, "conflicts")
	assert.Contains(t, body, "A1")
}
