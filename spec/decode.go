package spec

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DecodeDefinition unmarshals a deployment definition from JSON, detecting
// duplicate keys that encoding/json would silently ignore. A definition
// carrying "git" twice, or a scaling target with two "value" keys, is
// rejected rather than resolved to whichever came last.
func DecodeDefinition(data []byte) (DeploymentDefinition, error) {
	if err := checkObjectDuplicates(json.NewDecoder(bytes.NewReader(data)), "definition"); err != nil {
		return DeploymentDefinition{}, err
	}

	var def DeploymentDefinition
	if err := json.Unmarshal(data, &def); err != nil {
		return DeploymentDefinition{}, err
	}
	return def, nil
}

// checkObjectDuplicates walks one JSON value and returns an error if any
// object inside it, at any depth, repeats a key.
func checkObjectDuplicates(dec *json.Decoder, context string) error {
	t, err := dec.Token()
	if err != nil {
		return nil // let json.Unmarshal report syntax errors
	}
	delim, ok := t.(json.Delim)
	if !ok {
		return nil
	}

	switch delim {
	case '{':
		seen := make(map[string]bool)
		for dec.More() {
			t, err := dec.Token()
			if err != nil {
				return nil
			}
			key, ok := t.(string)
			if !ok {
				return nil
			}
			if seen[key] {
				return fmt.Errorf("duplicate %s key: %q", context, key)
			}
			seen[key] = true

			if err := checkObjectDuplicates(dec, key); err != nil {
				return err
			}
		}
	case '[':
		for dec.More() {
			if err := checkObjectDuplicates(dec, context); err != nil {
				return err
			}
		}
	}

	// Consume the closing delimiter.
	if _, err := dec.Token(); err != nil {
		return nil
	}
	return nil
}
