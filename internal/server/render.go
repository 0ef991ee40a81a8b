package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func init() {
	// Report fields by their json names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// ErrorResponse is the error envelope every failing route answers with.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// StatusResponse acknowledges a write that has no payload of its own.
type StatusResponse struct {
	Status string `json:"status"`
}

// JSON writes data with status 200.
func JSON(w http.ResponseWriter, data any) {
	JSONWithStatus(w, data, http.StatusOK)
}

// JSONWithStatus sends data as json and enforces status code.
func JSONWithStatus(w http.ResponseWriter, data any, code int) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false) // keep & in next/prev links readable

	if err := enc.Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(buf.Bytes())
}

// RawJSON relays an upstream JSON body unchanged. An empty body is sent as {}.
func RawJSON(w http.ResponseWriter, body []byte, code int) {
	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("{}")
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}

// Error renders the {error, details} envelope.
func Error(w http.ResponseWriter, code int, message, details string) {
	JSONWithStatus(w, ErrorResponse{Error: message, Details: details}, code)
}

// Bind decodes the JSON request body into T and validates it using struct tags.
//
// An empty body decodes to the zero value, so required fields still fail validation.
func Bind[T any](r *http.Request) (T, error) {
	var value T

	if r.Body != nil {
		err := json.NewDecoder(r.Body).Decode(&value)
		if err != nil && !errors.Is(err, io.EOF) {
			return value, fmt.Errorf("failed to parse JSON: %w", err)
		}
	}

	if err := validate.Struct(value); err != nil {
		return value, err
	}
	return value, nil
}

// InvalidFields lists the json names of the fields that failed validation.
func InvalidFields(err error) []string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return nil
	}

	fields := make([]string, 0, len(errs))
	for _, fe := range errs {
		fields = append(fields, fe.Field())
	}
	return fields
}
