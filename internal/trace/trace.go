// Package trace loads recorded classifier frame traces and their expected
// fingerspelling output.
package trace

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/mudra/internal/gesture"
)

//go:embed testdata/*.yaml
var tracesFS embed.FS

// Frame is one or more identical classifier frames.
type Frame struct {
	Label      string  `yaml:"label"`
	Confidence float64 `yaml:"confidence"`
	Absent     bool    `yaml:"absent"`
	// Repeat defaults to 1.
	Repeat int `yaml:"repeat"`
}

// Expect is the outcome a trace should produce.
type Expect struct {
	// Raw lists the committed words before correction.
	Raw []string `yaml:"raw"`
	// Words lists the committed words as displayed.
	Words  []string `yaml:"words"`
	Buffer string   `yaml:"buffer"`
}

// Trace is a recorded sequence of classifier frames with its expected result.
type Trace struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Profile     string  `yaml:"profile"`
	Autocorrect bool    `yaml:"autocorrect"`
	Frames      []Frame `yaml:"frames"`
	Expect      Expect  `yaml:"expect"`
}

// Config returns the engine configuration for the trace's profile.
func (t *Trace) Config() gesture.Config {
	if t.Profile == "letters" {
		return gesture.LettersConfig()
	}
	return gesture.DefaultConfig()
}

// Observations expands the frames into one observation per tick.
func (t *Trace) Observations() ([]gesture.Observation, error) {
	var out []gesture.Observation
	for i, f := range t.Frames {
		obs := gesture.NoHand()
		if !f.Absent {
			sym, ok := gesture.ParseLabel(f.Label)
			if !ok {
				return nil, fmt.Errorf("trace %s: frame %d: unknown label %q", t.Name, i, f.Label)
			}
			obs = gesture.Observed(sym, f.Confidence)
		}
		n := f.Repeat
		if n <= 0 {
			n = 1
		}
		for range n {
			out = append(out, obs)
		}
	}
	return out, nil
}

// Ticks returns the total number of frames in the trace.
func (t *Trace) Ticks() int {
	total := 0
	for _, f := range t.Frames {
		total += max(f.Repeat, 1)
	}
	return total
}

// Load loads a trace by name, without the .yaml extension.
func Load(name string) (*Trace, error) {
	data, err := tracesFS.ReadFile(path.Join("testdata", name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("load trace %s: %w", name, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var t Trace
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("decode trace %s: %w", name, err)
	}
	if len(t.Frames) == 0 {
		return nil, errors.New("trace " + name + " has no frames")
	}
	if t.Name == "" {
		t.Name = name
	}
	return &t, nil
}

// Names returns the names of all embedded traces, sorted.
func Names() ([]string, error) {
	entries, err := fs.ReadDir(tracesFS, "testdata")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names, nil
}
