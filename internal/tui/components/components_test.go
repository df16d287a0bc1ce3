package components

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseHex(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"48656C6C6F", "Hello", false},
		{"48 65 6c 6c 6f", "Hello", false},
		{"0x48 0X69", "Hi", false},
		{"", "", false},
		{"486", "", true},
		{"4G", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseHex(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseHex(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if string(got) != tt.want {
				t.Errorf("ParseHex(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatMessage(t *testing.T) {
	ts := time.Date(2025, 1, 2, 13, 4, 5, 6_000_000, time.UTC)
	msg := DataMsg{Timestamp: ts, Data: []byte("OK\r\n")}

	df := NewDataFormatter(DefaultDisplayMode)
	line := df.FormatMessage(msg)
	for _, want := range []string{"[13:04:05.006]", "RX", "HEX: 4F 4B 0D 0A", "ASCII: OK.."} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}

	df.ToggleHex()
	df.ToggleTimestamps()
	line = df.FormatMessage(msg)
	if strings.Contains(line, "HEX:") || strings.Contains(line, "13:04") {
		t.Errorf("line %q should only show ASCII", line)
	}

	df.ToggleASCII()
	if line := df.FormatMessage(msg); !strings.Contains(line, "BYTES: 4") {
		t.Errorf("line %q should fall back to a byte count", line)
	}
}

func TestFormatMessageSendError(t *testing.T) {
	df := NewDataFormatter(DisplayMode{ShowASCII: true})
	line := df.FormatMessage(DataMsg{Data: []byte("AT"), Dir: TX, Err: errors.New("write timed out")})
	if !strings.Contains(line, "TX ✗") || !strings.Contains(line, "write timed out") {
		t.Errorf("line %q should mark the failed send", line)
	}
}

func TestTerminalScrollback(t *testing.T) {
	term := NewTerminal(40, 5, DisplayMode{ShowASCII: true})
	term.scrollback = 3
	for _, s := range []string{"a", "b", "c", "d"} {
		term.Add(DataMsg{Data: []byte(s)})
	}

	msgs := term.Messages()
	if len(msgs) != 3 || string(msgs[0].Data) != "b" {
		t.Fatalf("messages = %v, want the last three", msgs)
	}
	if !strings.Contains(term.View(), "ASCII: d") {
		t.Errorf("view should end at the newest message:\n%s", term.View())
	}

	term.Clear()
	if len(term.Messages()) != 0 {
		t.Error("Clear should drop all messages")
	}
}

func TestInputHistory(t *testing.T) {
	in := NewInput(SendASCII, true)

	for _, s := range []string{"one", "two", "two"} {
		in.SetValue(s)
		in.Commit()
	}
	if len(in.history) != 2 {
		t.Fatalf("history = %v, repeated entries should collapse", in.history)
	}

	in.SetValue("draft")
	in.HistoryUp()
	if in.Value() != "two" {
		t.Errorf("up = %q, want two", in.Value())
	}
	in.HistoryUp()
	in.HistoryUp()
	if in.Value() != "one" {
		t.Errorf("up at oldest = %q, want one", in.Value())
	}
	in.HistoryDown()
	in.HistoryDown()
	if in.Value() != "draft" {
		t.Errorf("down past newest = %q, want the draft back", in.Value())
	}
}

func TestInputPayload(t *testing.T) {
	in := NewInput(SendASCII, true)
	in.SetValue("AT")
	if got, err := in.Payload(); err != nil || string(got) != "AT\n" {
		t.Errorf("ascii payload = %q, %v", got, err)
	}

	in.ToggleMode()
	if in.Mode() != SendHex {
		t.Fatalf("mode = %v, want HEX", in.Mode())
	}
	in.SetValue("41 54")
	if got, err := in.Payload(); err != nil || string(got) != "AT" {
		t.Errorf("hex payload = %q, %v", got, err)
	}
}
