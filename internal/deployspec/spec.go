// Package deployspec parses the YAML deploy manifest novafnctl deploy -f
// accepts, using a yaml.Decoder over a multi-document stream, reduced to
// the fields this emulator's domain.Function actually has.
package deployspec

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/novafn/novafn/internal/domain"
)

// FunctionSpec is one YAML document describing a function to deploy.
type FunctionSpec struct {
	Name       string            `yaml:"name"`
	Runtime    string            `yaml:"runtime,omitempty"`
	EntryPoint string            `yaml:"entryPoint,omitempty"`
	Code       string            `yaml:"code"`
	TimeoutS   int               `yaml:"timeout,omitempty"`
	Env        map[string]string `yaml:"env,omitempty"`

	Trigger TriggerSpec `yaml:"trigger"`
}

// TriggerSpec is the YAML shape for domain.Trigger.
type TriggerSpec struct {
	HTTP      bool   `yaml:"http,omitempty"`
	Topic     string `yaml:"topic,omitempty"`
	Bucket    string `yaml:"bucket,omitempty"`
	EventType string `yaml:"eventType,omitempty"`
	Resource  string `yaml:"resource,omitempty"`
	Service   string `yaml:"service,omitempty"`
}

// MultiSpec holds every function spec parsed from one manifest file.
type MultiSpec struct {
	Functions []FunctionSpec
}

// ParseFile reads and parses path, resolving Code paths relative to the
// manifest's own directory.
func ParseFile(path string) (*MultiSpec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()
	return Parse(f, filepath.Dir(path))
}

// Parse decodes every YAML document in r as a FunctionSpec.
func Parse(r io.Reader, baseDir string) (*MultiSpec, error) {
	decoder := yaml.NewDecoder(r)
	var specs []FunctionSpec
	for {
		var s FunctionSpec
		err := decoder.Decode(&s)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode manifest: %w", err)
		}
		if s.Name == "" {
			continue
		}
		if s.Code != "" && !filepath.IsAbs(s.Code) {
			s.Code = filepath.Join(baseDir, s.Code)
		}
		specs = append(specs, s)
	}
	if len(specs) == 0 {
		return nil, errors.New("no valid function specs found")
	}
	return &MultiSpec{Functions: specs}, nil
}

// ToFunction converts s into a domain.Function, resolving the
// project/location-qualified name via the caller-supplied fqname.
func (s *FunctionSpec) ToFunction(fqname string) (domain.Function, error) {
	if _, err := os.Stat(s.Code); os.IsNotExist(err) {
		return domain.Function{}, errors.New("Provided directory does not exist.")
	}

	trigger, err := domain.CanonicalizeLegacyFlags(
		s.Trigger.HTTP, s.Trigger.Topic, s.Trigger.Bucket, s.Trigger.EventType, s.Trigger.Resource, s.Trigger.Service,
	)
	if err != nil {
		return domain.Function{}, err
	}

	fn := domain.Function{
		Name:       fqname,
		ShortName:  s.Name,
		Trigger:    trigger,
		SourcePath: s.Code,
		EntryPoint: s.EntryPoint,
		Runtime:    s.Runtime,
		EnvVars:    s.Env,
	}
	if s.TimeoutS > 0 {
		fn.Timeout = time.Duration(s.TimeoutS) * time.Second
	}
	fn.ApplyDefaults()
	return fn, nil
}
