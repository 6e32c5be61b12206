package pipeline

import (
	"encoding/json"
	"net/http"

	"github.com/calibrateai/accuracy/accuracytype"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// runRequest is the POST /v1/accuracy/run request body.
type runRequest struct {
	Query  string `json:"query"`
	Preset string `json:"preset,omitempty"`
}

// HTTPHandler builds an instrumented HTTP front door for Pipeline.Run. The
// returned handler accepts POST /v1/accuracy/run and writes either a
// ResultSignal or ErrorSignal as its JSON body, matching the §6 directive
// surface one-to-one.
func HTTPHandler(p *Pipeline, newGenerator func(preset string) accuracytype.Generator) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/accuracy/run", func(w http.ResponseWriter, r *http.Request) {
		handleRun(p, newGenerator, w, r)
	})
	return otelhttp.NewHandler(mux, "accuracy-pipeline")
}

func handleRun(p *Pipeline, newGenerator func(preset string) accuracytype.Generator, w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	callID := uuid.NewString()
	directive := DirectiveFromSignal(callID, RunSignal{Query: req.Query, Preset: req.Preset})

	opts := RunOptions{Preset: directive.Preset}
	if newGenerator != nil {
		opts.Generator = newGenerator(directive.Preset)
	}

	result, err := p.Run(r.Context(), directive.Query, opts)

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(ErrorSignalFrom(callID, directive.Query, directive.Preset, err))
		return
	}
	json.NewEncoder(w).Encode(ResultSignalFrom(callID, directive.Query, directive.Preset, result))
}
