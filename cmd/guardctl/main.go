package main

import (
	"encoding/json"
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitError)
	}
}

// outputJSON writes v to stdout as indented JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
