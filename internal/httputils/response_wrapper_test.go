package httputils

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestResponseWriter_CapturesStatusAndSize(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := NewResponseWriter(rec)

	rw.WriteHeader(http.StatusCreated)
	rw.WriteHeader(http.StatusInternalServerError)
	if _, err := rw.Write([]byte("hello")); err != nil {
		t.Fatal(err)
	}

	if rw.StatusCode != http.StatusCreated || rec.Code != http.StatusCreated {
		t.Errorf("status = %d/%d, want 201", rw.StatusCode, rec.Code)
	}
	if rw.BytesWritten != 5 {
		t.Errorf("BytesWritten = %d, want 5", rw.BytesWritten)
	}
}

func TestResponseWriter_ImplicitOK(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := NewResponseWriter(rec)
	rw.Write([]byte("x"))
	rw.Flush()

	if !rw.HeaderWritten || rw.StatusCode != http.StatusOK {
		t.Errorf("implicit header not recorded: %+v", rw)
	}
	if _, _, err := rw.Hijack(); err == nil {
		t.Error("Hijack on a recorder should fail")
	}
}
