package shared

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadJSONBody(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{name: "object", body: `{"name":"TestUser","age":30}`, want: `{"name":"TestUser","age":30}`},
		{name: "surrounding whitespace", body: "  null \n", want: "null"},
		{name: "empty", body: "", want: ""},
		{name: "invalid", body: `{"name":`, wantErr: true},
		{name: "too large", body: `"` + strings.Repeat("a", MaxBodyBytes) + `"`, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			raw, err := ReadJSONBody(httptest.NewRecorder(), req)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, string(raw))
		})
	}
}
