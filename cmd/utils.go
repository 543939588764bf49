package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/ioutil"
	"os"
)

type configError struct {
	Field string
	Err   error
}

func (e configError) Error() string {
	return fmt.Sprintf("invalid config: %s: %s", e.Field, e.Err)
}

func (e configError) Unwrap() error {
	return e.Err
}

// parseKey decodes a session key given on the command line.
func parseKey(s string) ([]byte, error) {
	if len(s) == 0 {
		return nil, errors.New("no key provided")
	}
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("key is not hex: %w", err)
	}
	return key, nil
}

// readInput reads all of path, or stdin for "" and "-".
func readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return ioutil.ReadAll(os.Stdin)
	}
	return ioutil.ReadFile(path)
}

// writeOutput writes b to path, or stdout for "" and "-".
func writeOutput(path string, b []byte) error {
	if path == "" || path == "-" {
		_, err := os.Stdout.Write(b)
		return err
	}
	return ioutil.WriteFile(path, b, 0o600)
}

