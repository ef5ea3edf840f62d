package model

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/encoding/yaml"

	_ "embed"
)

const (
	DefaultFoundDelay = 120 * time.Second
	DefaultIdleDelay  = 5 * time.Second
	DefaultOCRTimeout = 30 * time.Second
)

//go:embed config.cue
var cueSource []byte

var (
	cueCtx *cue.Context
	schema cue.Value
)

func init() {
	if len(cueSource) == 0 {
		panic("variable cueSource is empty")
	}
	cueCtx = cuecontext.New()
	compiled := cueCtx.CompileBytes(cueSource)
	if compiled.Err() != nil {
		panic(compiled.Err())
	}

	if err := compiled.Validate(); err != nil {
		panic(err)
	}

	schema = compiled.LookupPath(cue.ParsePath("#Config"))
	if schema.Err() != nil {
		panic(schema.Err())
	}
	if err := schema.Validate(); err != nil {
		panic(err)
	}
}

type Config struct {
	Version int      `json:"version" yaml:"version"` // fixed 0 for now
	Phrases []string `json:"phrases" yaml:"phrases"`
	Delays  Delays   `json:"delays" yaml:"delays"`
	OCR     OCR      `json:"ocr" yaml:"ocr"`
	Capture Capture  `json:"capture" yaml:"capture"`
	Server  Server   `json:"server" yaml:"server"`
	Notify  Notify   `json:"notify" yaml:"notify"`
	History History  `json:"history" yaml:"history"`
	Service Service  `json:"service" yaml:"service"`
}

// Delays between two detection cycles. Found is used after a cycle matched
// something, Idle after an empty or failed cycle.
type Delays struct {
	Found string `json:"found" yaml:"found"`
	Idle  string `json:"idle" yaml:"idle"`
}

func (d Delays) FoundDuration() time.Duration { return duration(d.Found, DefaultFoundDelay) }
func (d Delays) IdleDuration() time.Duration  { return duration(d.Idle, DefaultIdleDelay) }

// OCR engine invocation.
type OCR struct {
	Path    string            `json:"path" yaml:"path"`
	Args    []string          `json:"args" yaml:"args"`
	Timeout string            `json:"timeout" yaml:"timeout"`
	Env     map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
}

func (o OCR) TimeoutDuration() time.Duration { return duration(o.Timeout, DefaultOCRTimeout) }

// Environ returns the configured environment in KEY=value form, values starting
// with $ are expanded from the current environment.
func (o OCR) Environ() []string {
	env := make([]string, 0, len(o.Env))
	for k, v := range o.Env {
		if strings.HasPrefix(v, "$") {
			v = os.ExpandEnv(v)
		}
		env = append(env, strings.ToUpper(k)+"="+v)
	}
	return env
}

type Capture struct {
	Displays []int  `json:"displays,omitempty" yaml:"displays,omitempty"` // nil/empty => all displays
	TmpDir   string `json:"tmp_dir" yaml:"tmp_dir"`                       // empty => os.TempDir
}

type Server struct {
	Addr string `json:"addr" yaml:"addr"`
}

type Notify struct {
	Log   bool  `json:"log" yaml:"log"`
	Redis Redis `json:"redis" yaml:"redis"`
}

// Redis publication of notified events.
type Redis struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
	Channel  string `json:"channel" yaml:"channel"`
}

type History struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"` // empty => spotter.db in user config dir
}

type Service struct {
	Verbose   bool   `json:"verbose" yaml:"verbose"`
	Log       string `json:"log" yaml:"log"` // "stderr"|"stdout"|"discard"|path
	Autostart bool   `json:"autostart" yaml:"autostart"`
}

// LoadConfig validates YAML from r against CUE schema and decodes to Config.
func LoadConfig(r io.Reader) (Config, error) {
	yamlFile, err := yaml.Extract("config.yaml", r)
	if err != nil {
		return Config{}, err
	}
	yamlValue := cueCtx.BuildFile(yamlFile)

	unified := schema.Unify(yamlValue)
	if err := unified.Validate(
		cue.All(),          // all constraints
		cue.Concrete(true), // no incomplete values
	); err != nil {
		return Config{}, err
	}

	var out Config
	if err := unified.Decode(&out); err != nil {
		return Config{}, err
	}

	return out, nil
}

// DefaultConfig returns a configuration with all schema defaults applied.
func DefaultConfig() Config {
	cfg, err := LoadConfig(strings.NewReader("version: 0\n"))
	if err != nil {
		panic(fmt.Sprintf("default config does not validate: %v", err))
	}
	return cfg
}

func duration(s string, dflt time.Duration) time.Duration {
	if s == "" {
		return dflt
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return dflt
	}
	return d
}
