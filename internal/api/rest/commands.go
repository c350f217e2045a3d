package rest

import (
	"encoding/json"
	"net/http"
)

type runCommandRequest struct {
	CommandID string                 `json:"commandId"`
	Command   string                 `json:"command"`
	Params    map[string]interface{} `json:"params"`
}

// RunCommand handles POST /commands/run. The command executes fire-and-forget:
// the response acknowledges acceptance and all later phases are observed via
// the live stream or the audit log.
func (h *Handler) RunCommand(w http.ResponseWriter, r *http.Request) {
	var req runCommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.CommandID == "" || req.Command == "" {
		respondError(w, http.StatusBadRequest, "commandId and command are required")
		return
	}

	h.runner.Submit(req.CommandID, req.Command, req.Params)

	respondJSON(w, http.StatusAccepted, map[string]string{
		"commandId": req.CommandID,
		"status":    "queued",
	})
}
