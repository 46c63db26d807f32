package health

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckURL(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:8080/-/ready", CheckURL(":8080", "/-/ready"))
	assert.Equal(t, "http://10.0.0.2:9000/-/healthy", CheckURL("10.0.0.2:9000", "/-/healthy"))
}

func TestRunCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/-/ready" {
			w.WriteHeader(521)
			_, _ = w.Write([]byte("Not ready."))
			return
		}
		_, _ = w.Write([]byte("Healthy."))
	}))
	defer srv.Close()

	listen := strings.TrimPrefix(srv.URL, "http://")

	var out bytes.Buffer
	require.NoError(t, runCheck(t.Context(), &out, listen, "/-/healthy", true))
	assert.Contains(t, out.String(), "200 Healthy.")

	err := runCheck(t.Context(), &out, listen, "/-/ready", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "521")
}
