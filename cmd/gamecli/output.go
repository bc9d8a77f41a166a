package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

var errUnknownOutput = errors.New("unknown output format")

// printResult - strings are printed as is in text mode, everything else as indented JSON.
func printResult(w io.Writer, format string, raw json.RawMessage) error {
	var value any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &value); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
	}

	switch format {
	case outputText:
		if text, ok := value.(string); ok {
			_, err := fmt.Fprintln(w, text)
			return err
		}
		return printJSON(w, value)
	case outputJSON:
		return printJSON(w, value)
	case outputYAML:
		out, err := yaml.Marshal(value)
		if err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		_, err = w.Write(out)
		return err
	default:
		return fmt.Errorf("%w: %s", errUnknownOutput, format)
	}
}

func printJSON(w io.Writer, value any) error {
	out, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}

	_, err = fmt.Fprintln(w, string(out))
	return err
}
