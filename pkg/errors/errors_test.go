package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", ErrDocumentNotFound, http.StatusNotFound},
		{"wrapped invalid input", fmt.Errorf("record 3: %w", ErrInvalidInput), http.StatusBadRequest},
		{"parse", ErrQueryParse, http.StatusBadRequest},
		{"schema", ErrSchemaMismatch, http.StatusConflict},
		{"unavailable", ErrIndexUnavailable, http.StatusServiceUnavailable},
		{"write", fmt.Errorf("commit: %w", ErrWriteFailed), http.StatusInsufficientStorage},
		{"app error wins", New(ErrInternal, http.StatusTeapot, "short and stout"), http.StatusTeapot},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatusCode(tt.err); got != tt.want {
				t.Errorf("HTTPStatusCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	err := Newf(ErrInvalidInput, http.StatusBadRequest, "field %s", "id")
	if err.Error() != "invalid input: field id" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if err.Unwrap() != ErrInvalidInput {
		t.Error("Unwrap should return the sentinel")
	}
}
