package handlers

import (
	"net/http"

	"github.com/sundai/social-agent/internal/api/response"
)

// Trigger starts a background automation run.
type Trigger interface {
	Trigger()
}

// AutomationHandler exposes the manual run trigger.
type AutomationHandler struct {
	runner Trigger
}

// NewAutomationHandler creates an automation handler.
func NewAutomationHandler(runner Trigger) *AutomationHandler {
	return &AutomationHandler{runner: runner}
}

// Run handles POST /v1/automation/run. The run happens in the background;
// the response only acknowledges the trigger.
func (h *AutomationHandler) Run(w http.ResponseWriter, _ *http.Request) {
	h.runner.Trigger()

	response.RespondJSON(w, http.StatusAccepted, map[string]string{
		"status": "Automation started in background",
	})
}
