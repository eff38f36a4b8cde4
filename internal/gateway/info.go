// Read-only informational endpoints.
package gateway

import (
	"net/http"
)

// handleConfig returns the display configuration the frontend needs.
func (g *Gateway) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"appName":        g.cfg.App.Name,
		"appNameEn":      g.cfg.App.NameEn,
		"dailyFreeLimit": g.ledger.Limit(),
	})
}

// handleUsage returns the caller's free-tier standing for today.
func (g *Gateway) handleUsage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, g.quotaSnapshot(r))
}

type modelInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	NameZh string `json:"name_zh,omitempty"`
}

// handleModels returns the static model catalog shown in the UI. The
// gateway forwards whatever model the caller names; this list is advisory.
func (g *Gateway) handleModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]modelInfo{
		"aliyun": {
			{ID: "qwen-plus", Name: "Qwen Plus", NameZh: "通义千问 Plus"},
			{ID: "qwen-turbo", Name: "Qwen Turbo", NameZh: "通义千问 Turbo"},
			{ID: "qwen-max", Name: "Qwen Max", NameZh: "通义千问 Max"},
			{ID: "qwen-long", Name: "Qwen Long", NameZh: "通义千问 Long"},
		},
		"openai": {
			{ID: "gpt-4", Name: "GPT-4"},
			{ID: "gpt-4-turbo", Name: "GPT-4 Turbo"},
			{ID: "gpt-3.5-turbo", Name: "GPT-3.5 Turbo"},
		},
	})
}

// handleHealth is the liveness probe.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"uptime": g.metrics.Uptime(),
	})
}

// handleStats exposes operational counters. Loopback only.
func (g *Gateway) handleStats(w http.ResponseWriter, r *http.Request) {
	if !isLoopback(r.RemoteAddr) {
		writeError(w, "forbidden", http.StatusForbidden)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"uptime":   g.metrics.Uptime(),
		"counters": g.metrics.Stats(),
	})
}
