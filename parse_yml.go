package linuxperf

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v2"
)

// The YML documents that we know how to load.
type ymlDocument interface {
	Config | SummarySettings | FilterSettings
}

// Parses (and validates) the contents of one YML document.  `path` is
// only used in error messages.
type ymlBufferParser[T ymlDocument] func(data []byte, path string) (*T, error)

func parseYmlFile[T ymlDocument](path string, parse ymlBufferParser[T]) (*T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read YML '%s': '%s'",
			path, err.Error())
	}

	return parse(data, path)
}

// Decode a YML document into a `T`.  Keys that do not map to a field
// are an error so that a misspelled setting is not silently ignored.
func parseYmlBuffer[T ymlDocument](data []byte, path string) (*T, error) {
	var raw map[interface{}]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("could not parse YAML '%s': '%s'",
			path, err.Error())
	}

	doc := new(T)
	if len(raw) == 0 {
		return doc, nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      doc,
	})
	if err != nil {
		return nil, err
	}

	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("could not decode '%s': '%s'",
			path, err.Error())
	}

	return doc, nil
}
