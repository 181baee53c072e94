//go:build ignore

// Gen-paircode emits a pairing-code payload for exercising 'screenscout code'.
//
// The output is the versioned JSON document a device (or its first-party
// app) would render as a QR code. Pipe it straight into the CLI:
//
//	go run tools/gen-paircode.go 192.168.1.50 8080 "Living Room TV" | go run ./cmd/screenscout code
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

func main() {
	if len(os.Args) < 4 {
		fmt.Println("Usage: gen-paircode <addr> <port> <name> [model] [brand]")
		fmt.Println("Example: gen-paircode 192.168.1.50 8080 \"Living Room TV\" KD-55X80J sony")
		os.Exit(1)
	}

	port, err := strconv.Atoi(os.Args[2])
	if err != nil {
		fmt.Printf("Error: invalid port %q\n", os.Args[2])
		os.Exit(1)
	}

	payload := map[string]any{
		"version": 1,
		"address": os.Args[1],
		"port":    port,
		"name":    os.Args[3],
	}
	if len(os.Args) > 4 {
		payload["model"] = os.Args[4]
	}
	if len(os.Args) > 5 {
		payload["brand"] = os.Args[5]
	}

	data, err := json.Marshal(payload)
	if err != nil {
		fmt.Printf("Error encoding payload: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}
