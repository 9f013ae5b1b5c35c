// Package main is an alert hook that pauses media playback while the punch alert
// sounds and resumes it afterwards.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// Request represents the input from the hook executor.
type Request struct {
	Event string `json:"event"`
	Label string `json:"label"`
}

// Response represents the output to the hook executor.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

var actions = map[string]func() error{
	"alert_start": pause,
	"alert_stop":  resume,
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(fmt.Errorf("failed to decode request: %w", err))
		return
	}

	action, ok := actions[req.Event]
	if !ok {
		writeResponse(fmt.Errorf("unknown event: %s", req.Event))
		return
	}
	writeResponse(action())
}

func pause() error {
	if runtime.GOOS == "darwin" {
		return runAppleScript(`tell application "Music" to pause`)
	}
	return run("playerctl", "pause")
}

func resume() error {
	if runtime.GOOS == "darwin" {
		return runAppleScript(`tell application "Music" to play`)
	}
	return run("playerctl", "play")
}

func runAppleScript(script string) error {
	return run("osascript", "-e", script)
}

func run(name string, args ...string) error {
	out, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
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
