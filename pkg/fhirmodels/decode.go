package fhirmodels

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownResourceType is returned by DecodeTyped for resource types
// without a typed model.
var ErrUnknownResourceType = errors.New("unknown resource type")

// Format is a resource serialization.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// FormatFromPath picks the format from a file extension, defaulting to
// JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

var constructors = map[string]func() interface{}{
	"Patient":     func() interface{} { return &Patient{} },
	"Observation": func() interface{} { return &Observation{} },
}

// New returns an empty typed resource for resourceType.
func New(resourceType string) (interface{}, bool) {
	ctor, ok := constructors[resourceType]
	if !ok {
		return nil, false
	}
	return ctor(), true
}

// Decode parses data into generic maps and slices. JSON numbers are kept
// as json.Number so integers stay integers.
func Decode(data []byte, format Format) (interface{}, error) {
	var v interface{}
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("decoding yaml resource: %w", err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("decoding json resource: %w", err)
		}
	}
	return v, nil
}

// DecodeTyped parses data into the typed model named by its resourceType.
func DecodeTyped(data []byte, format Format) (interface{}, error) {
	if format == FormatYAML {
		generic, err := Decode(data, format)
		if err != nil {
			return nil, err
		}
		if data, err = json.Marshal(generic); err != nil {
			return nil, fmt.Errorf("re-encoding yaml resource: %w", err)
		}
	}

	var head struct {
		ResourceType string `json:"resourceType"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decoding json resource: %w", err)
	}
	res, ok := New(head.ResourceType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownResourceType, head.ResourceType)
	}
	if err := json.Unmarshal(data, res); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", head.ResourceType, err)
	}
	return res, nil
}
