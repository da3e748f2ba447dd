// Package main provides a plugin that runs a configured command when a gesture fires.
// The gesture is passed in NODWATCH_GESTURE and NODWATCH_ACTION.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Request represents the input from the plugin executor.
type Request struct {
	Action  string          `json:"action"`
	Gesture string          `json:"gesture"`
	Config  json.RawMessage `json:"config"`
	Params  json.RawMessage `json:"params"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// CommandConfig is the action configuration bound to a gesture.
type CommandConfig struct {
	Command string   `json:"command"`
	Args    []string `json:"args"`
}

func main() {
	run(os.Stdin, os.Stdout)
}

func run(in io.Reader, out io.Writer) {
	var req Request
	if err := json.NewDecoder(in).Decode(&req); err != nil {
		writeErrorResponse(out, fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	if req.Action != "run" {
		writeErrorResponse(out, fmt.Sprintf("unknown action: %s", req.Action))
		return
	}

	output, err := runCommand(req)
	if err != nil {
		writeErrorResponse(out, fmt.Sprintf("action %s failed: %v", req.Action, err))
		return
	}

	data, _ := json.Marshal(map[string]string{"output": output})
	json.NewEncoder(out).Encode(Response{Success: true, Data: data})
}

func runCommand(req Request) (string, error) {
	var cfg CommandConfig
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			return "", fmt.Errorf("failed to parse config: %w", err)
		}
	}
	if cfg.Command == "" {
		return "", errors.New("command is required")
	}

	cmd := exec.Command(cfg.Command, cfg.Args...)
	cmd.Env = append(os.Environ(),
		"NODWATCH_GESTURE="+req.Gesture,
		"NODWATCH_ACTION="+req.Action,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return strings.TrimSpace(string(output)), nil
}

// writeErrorResponse writes an error response to out.
func writeErrorResponse(out io.Writer, errMsg string) {
	json.NewEncoder(out).Encode(Response{Success: false, Error: errMsg})
}
