// Package main is an alert hook that shows a desktop notification when a punch
// alert starts.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"time"
)

// Request represents the input from the hook executor.
type Request struct {
	Event  string          `json:"event"`
	Label  string          `json:"label"`
	At     time.Time       `json:"at"`
	Config json.RawMessage `json:"config"`
}

// Response represents the output to the hook executor.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type settings struct {
	Title string `json:"title"`
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(fmt.Errorf("failed to decode request: %w", err))
		return
	}

	s := settings{Title: "PunchAlert"}
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &s); err != nil {
			writeResponse(fmt.Errorf("invalid config: %w", err))
			return
		}
	}

	if req.Event != "alert_start" {
		writeResponse(nil)
		return
	}

	body := fmt.Sprintf("Punch detected at %s", req.At.Local().Format(time.TimeOnly))
	writeResponse(notify(s.Title, body))
}

func notify(title, body string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("osascript", "-e", fmt.Sprintf("display notification %q with title %q", body, title))
	default:
		cmd = exec.Command("notify-send", title, body)
	}
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%w: %s", err, out)
	}
	return nil
}

func writeResponse(err error) {
	resp := Response{Success: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}
