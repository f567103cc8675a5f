package detector

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteFrame(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte{0xff, 0xd8, 0x01, 0x02, 0xff, 0xd9}

	if err := writeFrame(&buf, payload); err != nil {
		t.Fatalf("writeFrame() error = %v", err)
	}

	out := buf.Bytes()
	if n := binary.BigEndian.Uint32(out[:4]); n != uint32(len(payload)) {
		t.Errorf("header length = %d, want %d", n, len(payload))
	}
	if !bytes.Equal(out[4:], payload) {
		t.Errorf("payload = %x, want %x", out[4:], payload)
	}
}

func TestReadHands(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		want    int
		wantErr bool
	}{
		{"no hands", `{"hands": []}`, 0, false},
		{"one hand", `{"hands": [{"points": [{"x": 0.5, "y": 0.8, "z": 0}, {"x": 0.6, "y": 0.7, "z": 0}], "handedness": "Right", "score": 0.93}]}`, 1, false},
		{"service error", `{"hands": [], "error": "model not loaded"}`, 0, true},
		{"garbage", `not json`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hands, err := readHands(bufio.NewReader(strings.NewReader(tt.reply + "\n")))
			if (err != nil) != tt.wantErr {
				t.Fatalf("readHands() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(hands) != tt.want {
				t.Errorf("hands = %d, want %d", len(hands), tt.want)
			}
		})
	}

	t.Run("fields copied", func(t *testing.T) {
		reply := `{"hands": [{"points": [{"x": 0.5, "y": 0.8, "z": 0.1}], "handedness": "Left", "score": 0.8}]}` + "\n"
		hands, err := readHands(bufio.NewReader(strings.NewReader(reply)))
		if err != nil {
			t.Fatal(err)
		}
		h := hands[0]
		if h.Handedness != "Left" || h.Score != 0.8 || h.Points[Wrist] != (Point3D{X: 0.5, Y: 0.8, Z: 0.1}) {
			t.Errorf("hand = %+v", h)
		}
	})

	t.Run("closed stream", func(t *testing.T) {
		if _, err := readHands(bufio.NewReader(strings.NewReader(""))); err == nil {
			t.Error("expected error on EOF")
		}
	})
}

func TestSelectHands(t *testing.T) {
	hand := func(score float64) HandLandmarks { return HandLandmarks{Score: score} }
	in := []HandLandmarks{hand(0.75), hand(0.4), hand(0.95)}

	got := selectHands(in, Config{MaxHands: 1, MinConfidence: 0.7})
	if len(got) != 1 || got[0].Score != 0.95 {
		t.Errorf("selectHands(max 1) = %+v, want the 0.95 hand", got)
	}

	got = selectHands(in, Config{MaxHands: 2, MinConfidence: 0.7})
	if len(got) != 2 || got[0].Score != 0.95 || got[1].Score != 0.75 {
		t.Errorf("selectHands(max 2) = %+v", got)
	}

	if got := selectHands(in, Config{MaxHands: 2, MinConfidence: 0.99}); len(got) != 0 {
		t.Errorf("expected every hand filtered, got %+v", got)
	}
}

func TestLocate(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, serviceScript)
	if err := os.WriteFile(present, []byte("# stub"), 0644); err != nil {
		t.Fatal(err)
	}

	got := locate([]string{filepath.Join(dir, "missing.py"), present})
	if got != present {
		t.Errorf("locate() = %q, want %q", got, present)
	}
	if got := locate([]string{filepath.Join(dir, "missing.py")}); got != "" {
		t.Errorf("locate() = %q, want empty", got)
	}
}
