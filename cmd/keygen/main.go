// File: cmd/keygen/main.go
//
// keygen prints a fresh API key together with its stored fingerprint.
// Hand the key to the caller, put the fingerprint in api_keys.
package main

import (
	"flag"
	"fmt"
	"log"

	"video-generation-api/internal/auth"
)

func main() {
	n := flag.Int("n", 1, "number of keys to generate")
	flag.Parse()

	for i := 0; i < *n; i++ {
		key, err := auth.GenerateKey()
		if err != nil {
			log.Fatalf("keygen: %v", err)
		}
		fmt.Printf("api_key:     %s\nfingerprint: %s\n", key, auth.Fingerprint(key))
		if i < *n-1 {
			fmt.Println()
		}
	}
}
