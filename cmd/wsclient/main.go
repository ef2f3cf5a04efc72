// Command wsclient is a simple WebSocket test client for remotemouse.
// It connects to a control server and translates typed commands into
// action frames, e.g.:
//
//	move 25 -10
//	click right
//	scroll 3
//	press
//	release
//
// Usage: go run ./cmd/wsclient ws://192.168.1.20:8000/ws
// With no argument it browses the LAN via mDNS for a server to use.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/WaniAthar/remote-mouse-server/internal/mdns"
)

func main() {
	url := ""
	if len(os.Args) > 1 {
		url = os.Args[1]
	} else {
		fmt.Println("No URL given, browsing the LAN for a control server...")
		discovered, err := discover()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Discovery failed: %v\n", err)
			os.Exit(1)
		}
		url = discovered
		fmt.Printf("Found %s\n", url)
	}

	fmt.Printf("Connecting to %s...\n", url)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	// The server only ever sends close frames; keep reading until the
	// connection dies so a busy rejection is noticed whenever it arrives,
	// and the user is not left typing into a dead connection.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if closeErr, ok := err.(*websocket.CloseError); ok && closeErr.Code == 4001 {
					fmt.Println("Rejected: another controller is connected")
					os.Exit(1)
				}
				return
			}
		}
	}()

	fmt.Println("Connected. Type commands (move dx dy | click [left|right] | scroll n | hscroll n | press | release | rpress | rrelease | quit):")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}

		frame, err := buildFrame(line)
		if err != nil {
			fmt.Printf("  %v\n", err)
			continue
		}

		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			fmt.Fprintf(os.Stderr, "Write failed: %v\n", err)
			break
		}
	}

	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	time.Sleep(100 * time.Millisecond)
}

// discover browses mDNS for a few seconds and returns the first server's URL.
func discover() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	servers, err := mdns.Discover(ctx)
	if err != nil {
		return "", err
	}
	if len(servers) == 0 {
		return "", fmt.Errorf("no control servers found (is mDNS enabled on the server?)")
	}
	return servers[0].URL(), nil
}

// buildFrame turns one typed command into a wire frame.
func buildFrame(line string) ([]byte, error) {
	fields := strings.Fields(line)

	var action string
	value := map[string]any{}

	switch fields[0] {
	case "move":
		if len(fields) != 3 {
			return nil, fmt.Errorf("usage: move dx dy")
		}
		dx, err1 := strconv.ParseFloat(fields[1], 64)
		dy, err2 := strconv.ParseFloat(fields[2], 64)
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("move deltas must be numbers")
		}
		action = "move"
		value["dx"] = dx
		value["dy"] = dy
	case "click":
		action = "click"
		if len(fields) > 1 {
			value["button"] = fields[1]
		}
	case "scroll", "hscroll":
		if len(fields) != 2 {
			return nil, fmt.Errorf("usage: %s amount", fields[0])
		}
		amount, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("scroll amount must be a number")
		}
		action = fields[0]
		value["amount"] = amount
	case "press":
		action = "left_press"
	case "release":
		action = "left_release"
	case "rpress":
		action = "right_press"
	case "rrelease":
		action = "right_release"
	default:
		return nil, fmt.Errorf("unknown command %q", fields[0])
	}

	return json.Marshal(map[string]any{"action": action, "value": value})
}
