package httputil

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// ParsePathString extracts a string path parameter
func ParsePathString(r *http.Request, key string) (string, error) {
	str := mux.Vars(r)[key]
	if str == "" {
		return "", fmt.Errorf("missing path parameter: %s", key)
	}
	return str, nil
}

// ParsePathBool extracts and parses a boolean path parameter
func ParsePathBool(r *http.Request, key string) (bool, error) {
	str, err := ParsePathString(r, key)
	if err != nil {
		return false, err
	}
	val, err := strconv.ParseBool(str)
	if err != nil {
		return false, fmt.Errorf("invalid %s parameter: %w", key, err)
	}
	return val, nil
}

// ReadBody reads the whole request body. Bodies over a MaxBytesMiddleware
// limit fail with *http.MaxBytesError.
func ReadBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	defer r.Body.Close()
	return io.ReadAll(r.Body)
}
