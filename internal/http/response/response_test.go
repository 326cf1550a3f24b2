package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/propplyai/compliance-backend/internal/platform/apierr"
)

func TestRespondAPIError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "taxonomy error keeps its status and code",
			err:        apierr.NotFound("report_not_found", fmt.Errorf("report gone")),
			wantStatus: http.StatusNotFound,
			wantCode:   "report_not_found",
		},
		{
			name:       "wrapped taxonomy error still resolves",
			err:        fmt.Errorf("outer: %w", apierr.Validation("category_city_mismatch", fmt.Errorf("wrong city"))),
			wantStatus: http.StatusBadRequest,
			wantCode:   "category_city_mismatch",
		},
		{
			name:       "plain error falls back to internal",
			err:        fmt.Errorf("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "internal_error",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			RespondAPIError(c, tc.err)

			if w.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tc.wantStatus)
			}
			var envelope ErrorEnvelope
			if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
				t.Fatalf("decode envelope: %v (body %s)", err, w.Body.String())
			}
			if envelope.Error.Code != tc.wantCode {
				t.Fatalf("code = %q, want %q", envelope.Error.Code, tc.wantCode)
			}
			if envelope.Error.Message == "" {
				t.Fatal("empty message")
			}
		})
	}
}
