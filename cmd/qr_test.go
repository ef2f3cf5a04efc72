package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestDisplayQRCode(t *testing.T) {
	var buf bytes.Buffer

	DisplayQRCode(&buf, "ws://192.168.1.20:8000/ws")

	out := buf.String()
	if !strings.Contains(out, "SCAN TO CONNECT") {
		t.Error("output missing header")
	}
	if !strings.Contains(out, "ws://192.168.1.20:8000/ws") {
		t.Error("output missing plain-text URL fallback")
	}
	// Half-block rendering uses the unicode block characters.
	if !strings.ContainsAny(out, "█▀▄") {
		t.Error("output does not look like ASCII QR art")
	}
}
