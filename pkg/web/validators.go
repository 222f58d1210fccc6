package web

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
)

// ParseOptionalInt reads an optional integer query parameter. When the
// parameter is absent, fallback is returned. A present but non-numeric or
// out-of-bounds (< min) value is a client error.
func ParseOptionalInt(r *http.Request, w http.ResponseWriter, logger *slog.Logger, key string, fallback, min int) (int, bool) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return fallback, true
	}
	intValue, err := strconv.Atoi(value)
	if err != nil || intValue < min {
		RespondError(w, logger, http.StatusBadRequest, fmt.Sprintf("Invalid %s number: %s", key, value))
		return 0, false
	}
	return intValue, true
}
