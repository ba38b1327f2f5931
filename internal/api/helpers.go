package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vytor/fairplay/internal/analysis"
	"github.com/vytor/fairplay/internal/errors"
)

func pathID(r *http.Request) (int64, error) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.NewBadRequestError("invalid game id: " + idStr)
	}
	return id, nil
}

func queryInt(r *http.Request, name string) (int, bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false, errors.NewValidationError(name, "must be an integer")
	}
	return n, true, nil
}

func queryFloat(r *http.Request, name string, dst *float64) (bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return false, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return false, errors.NewValidationError(name, "must be a number")
	}
	*dst = f
	return true, nil
}

// thresholdOverrides applies the forced_eval, critical_spread,
// decisive_eval and long_think query parameters over base. It returns nil
// when none are given. A nil base means the default thresholds.
func thresholdOverrides(r *http.Request, base *analysis.Thresholds) (*analysis.Thresholds, error) {
	th := analysis.DefaultThresholds()
	if base != nil {
		th = *base
	}
	overridden := false
	for _, p := range []struct {
		name string
		dst  *float64
	}{
		{"forced_eval", &th.ForcedEval},
		{"critical_spread", &th.CriticalSpread},
		{"decisive_eval", &th.DecisiveEval},
		{"long_think", &th.LongThinkSeconds},
	} {
		set, err := queryFloat(r, p.name, p.dst)
		if err != nil {
			return nil, err
		}
		overridden = overridden || set
	}
	if !overridden {
		return nil, nil
	}
	return &th, nil
}
