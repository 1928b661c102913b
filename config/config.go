/*
	Package config loads the run configuration from TOML or JSON.

	Relative paths are interpreted relative to the configuration file's
	directory.  JSON documents are checked against an embedded schema, and the
	older JSON layout with "pq_filenames", "var_filenames", "vdfcreate" and
	"raw2vdf" keys is still accepted.
*/
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/blang/semver"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/janelia-flyem/cvdf/cvdf"
	"github.com/janelia-flyem/cvdf/domain"
	"github.com/janelia-flyem/cvdf/mask"
	"github.com/janelia-flyem/cvdf/rawvol"
)

// FormatVersion is the configuration format written by this version.
const FormatVersion = "1.0.0"

//go:embed schema.json
var schemaJSON string

// Duration is a time.Duration read from strings like "10m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("bad duration %q: %v", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// DomainConfig is the [domain] section.
type DomainConfig struct {
	NX       int     `toml:"nx" json:"nx"`
	NY       int     `toml:"ny" json:"ny"`
	SpacingM float64 `toml:"spacing_m" json:"spacing_m"`
}

// OutputConfig is the [output] section.
type OutputConfig struct {
	Variable     string `toml:"variable" json:"variable"`
	Selector     string `toml:"selector" json:"selector"`
	Name         string `toml:"name" json:"name"`
	Dir          string `toml:"dir" json:"dir"`
	Crop         bool   `toml:"crop" json:"crop"`
	FillValue    string `toml:"fill_value" json:"fill_value"`
	ArchiveDir   string `toml:"archive_dir" json:"archive_dir"`
	ArchiveCodec string `toml:"archive_codec" json:"archive_codec"`
}

// RunConfig is the [run] section.
type RunConfig struct {
	Workers      int      `toml:"workers" json:"workers"`
	ToolTimeout  Duration `toml:"tool_timeout" json:"tool_timeout"`
	TableCacheMB int      `toml:"table_cache_mb" json:"table_cache_mb"`
	StagingDir   string   `toml:"staging_dir" json:"staging_dir"`
	Ledger       string   `toml:"ledger" json:"ledger"`
}

// Config is a complete run configuration.
type Config struct {
	FormatVersion     string         `toml:"format_version" json:"format_version"`
	ContainerToolPath string         `toml:"container_tool_path" json:"container_tool_path"`
	ImportToolPath    string         `toml:"import_tool_path" json:"import_tool_path"`
	InputTablePaths   []string       `toml:"input_table_paths" json:"input_table_paths"`
	InputFieldPaths   []string       `toml:"input_field_paths" json:"input_field_paths"`
	Domain            DomainConfig   `toml:"domain" json:"domain"`
	Output            OutputConfig   `toml:"output" json:"output"`
	Run               RunConfig      `toml:"run" json:"run"`
	Logging           cvdf.LogConfig `toml:"logging" json:"logging"`

	location string
}

// Default returns a configuration with every optional setting at its default.
func Default() *Config {
	return &Config{
		FormatVersion:     FormatVersion,
		ContainerToolPath: "vdfcreate",
		ImportToolPath:    "raw2vdf",
		Domain: DomainConfig{
			NX:       domain.BOMEX.NX,
			NY:       domain.BOMEX.NY,
			SpacingM: domain.DefaultSpacing,
		},
		Output: OutputConfig{
			Selector:     "condensed",
			Dir:          ".",
			Crop:         true,
			FillValue:    "zero",
			ArchiveCodec: "zstd",
		},
		Run: RunConfig{
			Workers:      1,
			ToolTimeout:  Duration{10 * time.Minute},
			TableCacheMB: 64,
		},
		Logging: cvdf.LogConfig{MaxSize: 100, MaxAge: 30},
	}
}

// Location returns the file the configuration was loaded from.
func (c *Config) Location() string {
	return c.location
}

// Load reads a configuration file.  Files ending in .json are parsed as JSON,
// everything else as TOML.  The result is not validated so that command-line
// overrides can be applied first; call Validate before use.
func Load(filename string) (*Config, error) {
	if filename == "" {
		return nil, fmt.Errorf("no configuration file provided")
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var c *Config
	if strings.EqualFold(filepath.Ext(filename), ".json") {
		c, err = decodeJSON(data)
	} else {
		c, err = decodeTOML(data)
	}
	if err != nil {
		return nil, fmt.Errorf("could not decode config %s: %v", filename, err)
	}
	c.location = filename
	if err := c.convertPathsToAbsolute(filename); err != nil {
		return nil, fmt.Errorf("could not convert relative paths to absolute paths in config: %v", err)
	}
	cvdf.Debugf("config %s: %+v\n", filename, *c)
	return c, nil
}

func decodeTOML(data []byte) (*Config, error) {
	c := Default()
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown settings: %s", strings.Join(keys, ", "))
	}
	return c, nil
}

// legacyConfig is the JSON layout written by the older metadata scripts.
type legacyConfig struct {
	TableFiles []string `json:"pq_filenames"`
	FieldFiles []string `json:"var_filenames"`
	Vdfcreate  string   `json:"vdfcreate"`
	Raw2vdf    string   `json:"raw2vdf"`
}

func decodeJSON(data []byte) (*Config, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if _, legacy := doc["pq_filenames"]; legacy {
		var lc legacyConfig
		if err := json.Unmarshal(data, &lc); err != nil {
			return nil, err
		}
		c := Default()
		c.InputTablePaths = lc.TableFiles
		c.InputFieldPaths = lc.FieldFiles
		c.ContainerToolPath = lc.Vdfcreate
		c.ImportToolPath = lc.Raw2vdf
		return c, nil
	}

	sch, err := jsonschema.CompileString("schema.json", schemaJSON)
	if err != nil {
		return nil, fmt.Errorf("bad embedded config schema: %v", err)
	}
	if err := sch.Validate(doc); err != nil {
		return nil, err
	}
	c := Default()
	// fill_value may be given as a JSON number.
	if out, ok := doc["output"].(map[string]interface{}); ok {
		if v, ok := out["fill_value"].(float64); ok {
			out["fill_value"] = fmt.Sprintf("%g", v)
			if data, err = json.Marshal(doc); err != nil {
				return nil, err
			}
		}
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Some settings can be given as relative paths.  They are converted in place
// to absolute paths relative to the configuration file's directory.
func (c *Config) convertPathsToAbsolute(configPath string) error {
	configDir := filepath.Dir(configPath)
	var err error
	for _, p := range []*string{
		&c.Output.Dir, &c.Output.ArchiveDir,
		&c.Run.StagingDir, &c.Run.Ledger,
		&c.Logging.Logfile,
	} {
		if *p, err = cvdf.ConvertToAbsolute(*p, configDir); err != nil {
			return err
		}
	}
	// Tool paths without a directory are looked up on PATH.
	for _, p := range []*string{&c.ContainerToolPath, &c.ImportToolPath} {
		if strings.ContainsRune(*p, filepath.Separator) {
			if *p, err = cvdf.ConvertToAbsolute(*p, configDir); err != nil {
				return err
			}
		}
	}
	for _, paths := range [][]string{c.InputTablePaths, c.InputFieldPaths} {
		for i := range paths {
			if paths[i], err = cvdf.ConvertToAbsolute(paths[i], configDir); err != nil {
				return err
			}
		}
	}
	return nil
}

// Validate checks every setting and returns the first problem found.
func (c *Config) Validate() error {
	if c.FormatVersion != "" {
		v, err := semver.Parse(c.FormatVersion)
		if err != nil {
			return fmt.Errorf("bad format_version %q: %v", c.FormatVersion, err)
		}
		supported := semver.MustParse(FormatVersion)
		if v.Major != supported.Major {
			return fmt.Errorf("format_version %s is not supported, expected %d.x", v, supported.Major)
		}
	}
	if c.ContainerToolPath == "" || c.ImportToolPath == "" {
		return fmt.Errorf("container_tool_path and import_tool_path must be set")
	}
	if len(c.InputTablePaths) == 0 {
		return fmt.Errorf("no input_table_paths given")
	}
	if len(c.InputTablePaths) != len(c.InputFieldPaths) {
		return fmt.Errorf("%d input_table_paths but %d input_field_paths; need one of each per timestep",
			len(c.InputTablePaths), len(c.InputFieldPaths))
	}
	if err := c.PeriodicDomain().Validate(); err != nil {
		return err
	}
	if c.Domain.SpacingM <= 0 {
		return fmt.Errorf("domain spacing_m must be positive, got %g", c.Domain.SpacingM)
	}
	if c.Output.Variable == "" {
		return fmt.Errorf("no output variable given")
	}
	if _, err := c.Selector(); err != nil {
		return err
	}
	if _, err := c.Fill(); err != nil {
		return err
	}
	if _, err := c.ArchiveCodec(); err != nil {
		return err
	}
	if c.Run.Workers < 1 {
		return fmt.Errorf("run workers must be at least 1, got %d", c.Run.Workers)
	}
	if c.Run.ToolTimeout.Duration <= 0 {
		return fmt.Errorf("run tool_timeout must be positive")
	}
	return nil
}

// NumTimesteps returns the number of timesteps in the run.
func (c *Config) NumTimesteps() int {
	return len(c.InputTablePaths)
}

// Selector parses the output selector.
func (c *Config) Selector() (cvdf.Selector, error) {
	return cvdf.ParseSelector(c.Output.Selector)
}

// Fill parses the output fill value.
func (c *Config) Fill() (mask.FillValue, error) {
	return mask.ParseFillValue(c.Output.FillValue)
}

// ArchiveCodec parses the archive compression.
func (c *Config) ArchiveCodec() (rawvol.Compression, error) {
	return rawvol.ParseCompression(c.Output.ArchiveCodec)
}

// PeriodicDomain returns the horizontal domain.
func (c *Config) PeriodicDomain() domain.Domain {
	return domain.Domain{NX: c.Domain.NX, NY: c.Domain.NY}
}

// OutputName returns the container base name, defaulting to "<variable>_ID".
func (c *Config) OutputName() string {
	if c.Output.Name != "" {
		return c.Output.Name
	}
	return c.Output.Variable + "_ID"
}

// ContainerPath returns the path of the .vdf container.
func (c *Config) ContainerPath() string {
	return filepath.Join(c.Output.Dir, c.OutputName()+".vdf")
}

// Write encodes the configuration as TOML.
func (c *Config) Write(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}
