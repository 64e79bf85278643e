package api

import (
	"encoding/json"
	"net/http"

	"github.com/AaronLay10/behaviorgraph/internal/command"
	"github.com/AaronLay10/behaviorgraph/internal/events"
)

var (
	commandQueue  command.Producer
	commandDriver string
)

// SetCommandQueue enables POST /commands. driver is reported back to callers
// and on the operator.queued event.
func SetCommandQueue(p command.Producer, driver string) {
	commandQueue = p
	commandDriver = driver
}

type QueuedResponse struct {
	OK     bool   `json:"ok"`
	Driver string `json:"driver"`
}

// enqueueHandler accepts a command for later application. Unknown agents
// are only detected when the command is consumed.
func enqueueHandler(w http.ResponseWriter, r *http.Request) {
	if commandQueue == nil {
		writeError(w, http.StatusServiceUnavailable, "command queue not configured")
		return
	}

	var cmd command.Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := command.Enqueue(r.Context(), commandQueue, &cmd); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	events.Emit("info", "operator.queued", "", map[string]interface{}{
		"agent":  cmd.Agent,
		"op":     cmd.Op,
		"driver": commandDriver,
	})
	writeJSON(w, http.StatusAccepted, QueuedResponse{OK: true, Driver: commandDriver})
}
