// Package main provides a speech plugin that voices committed words.
// It uses say on macOS and espeak-ng or espeak elsewhere.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Request represents the input from the plugin executor.
type Request struct {
	Action string          `json:"action"`
	Word   string          `json:"word"`
	Config json.RawMessage `json:"config"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Config is the optional per-plugin configuration.
type Config struct {
	Voice string `json:"voice"`
	Rate  int    `json:"rate"`
}

var errNoSpeaker = errors.New("no speech program found (tried say, espeak-ng, espeak)")

var lookPath = exec.LookPath

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	if req.Action != "word" {
		writeErrorResponse(fmt.Sprintf("unknown action: %s", req.Action))
		return
	}

	var cfg Config
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeErrorResponse(fmt.Sprintf("invalid config: %v", err))
			return
		}
	}

	name, args, err := speakCommand(runtime.GOOS, req.Word, cfg)
	if err != nil {
		writeErrorResponse(err.Error())
		return
	}

	if out, err := exec.Command(name, args...).CombinedOutput(); err != nil {
		writeErrorResponse(fmt.Sprintf("%s failed: %v: %s", name, err, out))
		return
	}

	writeSuccessResponse()
}

// speakCommand picks the program and arguments that speak word.
func speakCommand(goos, word string, cfg Config) (string, []string, error) {
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" {
		return "", nil, errors.New("word is required")
	}

	if goos == "darwin" {
		args := []string{}
		if cfg.Voice != "" {
			args = append(args, "-v", cfg.Voice)
		}
		if cfg.Rate > 0 {
			args = append(args, "-r", fmt.Sprint(cfg.Rate))
		}
		return "say", append(args, word), nil
	}

	for _, name := range []string{"espeak-ng", "espeak"} {
		if _, err := lookPath(name); err != nil {
			continue
		}
		args := []string{}
		if cfg.Voice != "" {
			args = append(args, "-v", cfg.Voice)
		}
		if cfg.Rate > 0 {
			args = append(args, "-s", fmt.Sprint(cfg.Rate))
		}
		return name, append(args, word), nil
	}

	return "", nil, errNoSpeaker
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

// writeSuccessResponse writes a success response to stdout.
func writeSuccessResponse() {
	json.NewEncoder(os.Stdout).Encode(Response{Success: true})
}
