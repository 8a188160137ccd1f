package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/naka-gawa/github-insights/internal/dataview"
)

// ErrorResponse is the body of every non-2xx JSON answer.
type ErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	var body ErrorResponse
	body.Error.Code = code
	body.Error.Message = msg
	writeJSON(w, status, body)
}

func writeCSV(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
}

func boolParam(r *http.Request, name string, def bool) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	if err != nil {
		return def
	}
	return v
}

func intParam(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

// parseFilter reads q, from and to. It answers 400 itself on a bad date.
func parseFilter(w http.ResponseWriter, r *http.Request) (dataview.Filter, bool) {
	q := r.URL.Query()
	f := dataview.Filter{Search: q.Get("q"), DateField: "timestamp"}
	from, to := q.Get("from"), q.Get("to")
	if from == "" && to == "" {
		return f, true
	}
	f.DateRange = &dataview.DateRange{}
	for _, p := range []struct {
		raw string
		dst *time.Time
	}{{from, &f.DateRange.From}, {to, &f.DateRange.To}} {
		if p.raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, p.raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_argument", fmt.Sprintf("invalid date %q", p.raw))
			return dataview.Filter{}, false
		}
		*p.dst = t
	}
	return f, true
}
