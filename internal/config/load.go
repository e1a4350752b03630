package config

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"sheetimport/internal/failure"
)

// isYAML reports whether path should be decoded as YAML. Everything else is
// treated as JSON.
func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		return true
	}
	return false
}

// decodeFile decodes the file at path into v as JSON or YAML. strict rejects
// unknown fields.
func decodeFile(path string, v any, strict bool) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if isYAML(path) {
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(strict)
		if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	if strict {
		dec.DisallowUnknownFields()
	}
	return dec.Decode(v)
}

// LoadJob reads a job file over the built-in defaults.
func LoadJob(path string) (Job, error) {
	j := Default()
	if err := decodeFile(path, &j, true); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return j, failure.Mark(errors.Wrapf(err, "config file %s", path), failure.ErrMissingArgument)
		}
		return j, failure.Mark(errors.Wrapf(err, "decode config %s", path), failure.ErrInvalidConfig)
	}
	return j, nil
}

// LoadMapping reads a mapping file (JSON, or YAML by extension).
func LoadMapping(path string) (*MappingFile, error) {
	var m MappingFile
	if err := decodeFile(path, &m, false); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, failure.Mark(errors.Wrapf(err, "mapping file not found: %s", path), failure.ErrInvalidMapping)
		}
		return nil, failure.Mark(errors.Wrapf(err, "decode mapping %s", path), failure.ErrInvalidMapping)
	}
	return &m, nil
}
