// Package main provides a keyboard plugin that types committed words into
// the focused window. It uses AppleScript on macOS and xdotool on X11.
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
	// TrailingSpace appends a space after each word. Default: true.
	TrailingSpace *bool `json:"trailing_space"`
	Lowercase     bool  `json:"lowercase"`
}

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

	text, err := textFor(req.Word, cfg)
	if err != nil {
		writeErrorResponse(err.Error())
		return
	}

	name, args, err := typeCommand(runtime.GOOS, text)
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

// textFor applies the configured casing and spacing to word.
func textFor(word string, cfg Config) (string, error) {
	word = strings.TrimSpace(word)
	if word == "" {
		return "", errors.New("word is required")
	}
	if cfg.Lowercase {
		word = strings.ToLower(word)
	}
	if cfg.TrailingSpace == nil || *cfg.TrailingSpace {
		word += " "
	}
	return word, nil
}

// typeCommand returns the program and arguments that type text.
func typeCommand(goos, text string) (string, []string, error) {
	switch goos {
	case "darwin":
		return "osascript", []string{"-e", buildKeystrokeScript(text)}, nil
	case "linux":
		return "xdotool", []string{"type", "--clearmodifiers", "--", text}, nil
	default:
		return "", nil, fmt.Errorf("typing is not supported on %s", goos)
	}
}

// buildKeystrokeScript generates an AppleScript that types text.
func buildKeystrokeScript(text string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(text)
	return fmt.Sprintf(`tell application "System Events" to keystroke "%s"`, escaped)
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

// writeSuccessResponse writes a success response to stdout.
func writeSuccessResponse() {
	json.NewEncoder(os.Stdout).Encode(Response{Success: true})
}
