// Package config loads bridge startup configuration from CUE files.
//
// Files are unified with each other and with an embedded schema that supplies
// defaults, so a file only needs to state what differs:
//
//	vm: {
//		checkJNI: true
//		options: ["-Dapp.mode=test"]
//	}
//	classes: "demo/Calc": {
//		wasm: "calc.wasm"
//		natives: [{name: "log", signature: "(J)V", script: "def log(n):\n    return None"}]
//	}
//
// Classes are keyed by name, so several files can contribute to one class.
package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"go.uber.org/zap/zapcore"

	vmbridge "github.com/wippyai/vmbridge"
	"github.com/wippyai/vmbridge/errors"
)

//go:embed schema.cue
var schemaSrc []byte

// Config is the decoded configuration.
type Config struct {
	Classes []Class `json:"-"`
	VM      VM      `json:"vm"`
	// Dir is the directory relative paths resolve against: that of the first
	// file loaded.
	Dir string `json:"-"`
}

// VM configures the managed runtime and the bridge around it.
type VM struct {
	Version            string   `json:"version"`
	LogLevel           string   `json:"logLevel"`
	Options            []string `json:"options"`
	TrampolineSlots    int      `json:"trampolineSlots"`
	MemoryLimitPages   uint32   `json:"memoryLimitPages"`
	CheckJNI           bool     `json:"checkJNI"`
	IgnoreUnrecognized bool     `json:"ignoreUnrecognized"`
	MuteExceptions     bool     `json:"muteExceptions"`
}

// Class describes a class to load, optionally backed by a wasm module.
type Class struct {
	Name    string   `json:"name"`
	Super   string   `json:"super"`
	Wasm    string   `json:"wasm"`
	Methods []Method `json:"methods"`
	Natives []Native `json:"natives"`
	Fields  []Field  `json:"fields"`
}

type Method struct {
	Name      string `json:"name"`
	Export    string `json:"export"`
	Signature string `json:"signature"`
}

// Native declares a native method. Script or ScriptFile holds a Starlark
// implementation; natives without one are left for the embedder to bind.
type Native struct {
	Name       string `json:"name"`
	Signature  string `json:"signature"`
	Script     string `json:"script"`
	ScriptFile string `json:"scriptFile"`
}

type Field struct {
	Name      string `json:"name"`
	Export    string `json:"export"`
	Signature string `json:"signature"`
}

type source struct {
	name string
	data []byte
}

// Load reads and unifies the CUE files at paths. With no paths the schema
// defaults are returned.
func Load(paths ...string) (*Config, error) {
	srcs := make([]source, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseConfig, errors.KindNotFound, err, "read "+p)
		}
		srcs = append(srcs, source{name: p, data: data})
	}
	cfg, err := load(srcs)
	if err != nil {
		return nil, err
	}
	if len(paths) > 0 {
		cfg.Dir = filepath.Dir(paths[0])
	}
	return cfg, nil
}

// Parse unifies CUE source held in memory. name is used in error positions.
func Parse(name string, src []byte) (*Config, error) {
	return load([]source{{name: name, data: src}})
}

func load(srcs []source) (*Config, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileBytes(schemaSrc, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "schema")
	}
	v := schema.LookupPath(cue.ParsePath("#Config"))
	for _, s := range srcs {
		f := ctx.CompileBytes(s.data, cue.Filename(s.name))
		if err := f.Err(); err != nil {
			return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "compile "+s.name)
		}
		v = v.Unify(f)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "validate")
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "decode")
	}
	var classes map[string]Class
	if err := v.LookupPath(cue.ParsePath("classes")).Decode(&classes); err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "decode classes")
	}
	names := make([]string, 0, len(classes))
	for name := range classes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cfg.Classes = append(cfg.Classes, classes[name])
	}
	return &cfg, nil
}

var versions = map[string]int32{
	"1.1": vmbridge.Version1_1,
	"1.2": vmbridge.Version1_2,
	"1.4": vmbridge.Version1_4,
	"1.6": vmbridge.Version1_6,
	"1.8": vmbridge.Version1_8,
}

// InitArgs builds the runtime startup arguments. CheckJNI adds -Xcheck:jni
// unless the options already carry it.
func (c *Config) InitArgs() vmbridge.InitArgs {
	opts := append([]string(nil), c.VM.Options...)
	if c.VM.CheckJNI {
		found := false
		for _, o := range opts {
			if o == "-Xcheck:jni" {
				found = true
				break
			}
		}
		if !found {
			opts = append(opts, "-Xcheck:jni")
		}
	}
	return vmbridge.InitArgs{
		Version:            versions[c.VM.Version],
		Options:            opts,
		IgnoreUnrecognized: c.VM.IgnoreUnrecognized,
	}
}

// LogLevel returns the configured zap level.
func (c *Config) LogLevel() zapcore.Level {
	lvl, err := zapcore.ParseLevel(c.VM.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// Path resolves p against Dir unless it is absolute.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) || c.Dir == "" {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// Class returns the configured class with the given name.
func (c *Config) Class(name string) (Class, bool) {
	for _, cl := range c.Classes {
		if cl.Name == name {
			return cl, true
		}
	}
	return Class{}, false
}
