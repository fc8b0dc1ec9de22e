package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"github.com/DoyleJ11/boardgame-client/pkg/types"
)

func main() {
	var outPath, kind string
	flag.StringVar(&outPath, "out", "", "path to write the JSON schema")
	flag.StringVar(&kind, "kind", "server", "message direction: client or server")
	flag.Parse()

	if outPath == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	schema, err := buildSchema(kind)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := writeSchema(outPath, schema); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write schema: %v\n", err)
		os.Exit(1)
	}
}

func buildSchema(kind string) (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}

	var schema *jsonschema.Schema
	switch kind {
	case "client":
		schema = reflector.Reflect(new(types.ClientMessage))
		schema.Title = "Client Message"
		schema.Description = "Frames a client sends on the match socket: sync, then moves"
	case "server":
		schema = reflector.Reflect(new(types.ServerMessage))
		schema.Title = "Server Message"
		schema.Description = "Frames the authority sends: sync and update carry a full snapshot"
	default:
		return nil, fmt.Errorf("unknown kind %q", kind)
	}
	return schema, nil
}

// writeSchema replaces outPath atomically so a failed run never leaves a truncated schema.
func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	dir := filepath.Dir(outPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(outPath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp schema: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp schema: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp schema: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod temp schema: %w", err)
	}
	return os.Rename(tmp.Name(), outPath)
}
