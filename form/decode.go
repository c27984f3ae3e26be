package form

import (
	"bytes"
	"io"
	"os"

	"dario.cat/mergo"
	"emperror.dev/errors"
	"gopkg.in/yaml.v3"
)

// Decode reads a form from YAML or JSON. Keys the document leaves out keep
// their Defaults value. Zero fields of each port's health check take their
// DefaultHealthCheck value. Unknown keys are an error.
func Decode(r io.Reader) (ServiceForm, error) {
	f := Defaults()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return ServiceForm{}, errors.Wrap(err, "decode service form")
	}

	for i := range f.Ports {
		if err := mergo.Merge(&f.Ports[i].HealthCheck, DefaultHealthCheck()); err != nil {
			return ServiceForm{}, errors.Wrapf(err, "port %d: apply health check defaults", f.Ports[i].PortNumber)
		}
	}

	return f, nil
}

// DecodeFile reads the form at path.
func DecodeFile(path string) (ServiceForm, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ServiceForm{}, errors.Wrap(err, "read service form")
	}
	f, err := Decode(bytes.NewReader(data))
	if err != nil {
		return ServiceForm{}, errors.WithDetails(err, "path", path)
	}
	return f, nil
}

// Encode writes f as YAML.
func Encode(w io.Writer, f ServiceForm) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return errors.Wrap(err, "encode service form")
	}
	return enc.Close()
}
