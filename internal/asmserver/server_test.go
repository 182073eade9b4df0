package asmserver_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/crossasm/asmx/internal/asmserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleHealth(t *testing.T) {
	s := asmserver.NewServer(0)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp asmserver.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Contains(t, resp.CPUs, "6502")
}

func TestHandleAssemble_Success(t *testing.T) {
	s := asmserver.NewServer(0)
	body, err := json.Marshal(asmserver.AssembleRequest{
		Source: "CPU 6502\nORG 0\n LDA #$01\n",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/assemble", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp asmserver.AssembleResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, []byte{0xA9, 0x01}, resp.Object)
}

func TestHandleAssemble_RejectsEmptySource(t *testing.T) {
	s := asmserver.NewServer(0)
	body, _ := json.Marshal(asmserver.AssembleRequest{Source: ""})

	req := httptest.NewRequest(http.MethodPost, "/assemble", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleAssemble_RejectsGet(t *testing.T) {
	s := asmserver.NewServer(0)
	req := httptest.NewRequest(http.MethodGet, "/assemble", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
