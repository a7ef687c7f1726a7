package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	J "cuelang.org/go/encoding/json"
	"cuelang.org/go/encoding/yaml"
)

//go:embed schema.cue
var schemaFile string

//go:embed default.yaml
var DEFAULT []byte

// ProjectFile is the configuration file Process looks for in a project
// directory when no files are given.
const ProjectFile = "resforge.yaml"

func extract(ctx *cue.Context, path string, data []byte) (cue.Value, error) {
	switch filepath.Ext(path) {
	case ".json":
		expr, err := J.Extract(path, data)
		if err != nil {
			return cue.Value{}, err
		}
		value := ctx.BuildExpr(expr)
		return value, value.Err()
	case ".yaml", ".yml", "":
		file, err := yaml.Extract(path, data)
		if err != nil {
			return cue.Value{}, err
		}
		value := ctx.BuildFile(file)
		return value, value.Err()
	}

	return cue.Value{}, fmt.Errorf("not in a valid format")
}

func readFile(ctx *cue.Context, path string) (cue.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cue.Value{}, fmt.Errorf("does not exist")
	}

	return extract(ctx, path, data)
}

func decode(schema cue.Value) (*Config, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}

	data, err := schema.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf(
			"could not aggregate config: %v",
			err,
		)
	}

	config := Config{}
	err = json.Unmarshal(data, &config)
	return &config, err
}

// Process reads the provided configuration files in order and unifies them
// with the schema. Later files may only fill in what earlier ones left
// open. If no files are provided, the default configuration is used.
func Process(configPaths []string) (*Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaFile)
	if err := schema.Err(); err != nil {
		return nil, err
	}

	if len(configPaths) == 0 {
		value, err := extract(ctx, "<default>.yaml", DEFAULT)
		if err != nil {
			return nil, err
		}

		schema = schema.Unify(value)
		if err := schema.Err(); err != nil {
			return nil, fmt.Errorf(
				"invalid default config file: %v",
				err,
			)
		}
	}

	for _, path := range configPaths {
		value, err := readFile(ctx, path)
		if err != nil {
			return nil, fmt.Errorf(
				"could not process config file %s: %v",
				path,
				err,
			)
		}

		schema = schema.Unify(value)
		if err := schema.Err(); err != nil {
			return nil, fmt.Errorf(
				"could not merge config file %s: %v",
				path,
				err,
			)
		}

		if err := schema.Validate(); err != nil {
			return nil, fmt.Errorf(
				"config file %s is not valid: %v",
				path,
				err,
			)
		}
	}

	return decode(schema)
}

// ForProject loads the configuration of the project in dir. Explicit
// configuration files win; otherwise the project's own resforge.yaml is
// used when present. The project root is always set to dir unless a file
// names one.
func ForProject(dir string, configPaths []string) (*Config, error) {
	if len(configPaths) == 0 {
		local := filepath.Join(dir, ProjectFile)
		if _, err := os.Stat(local); err == nil {
			configPaths = []string{local}
		}
	}

	config, err := Process(configPaths)
	if err != nil {
		return nil, err
	}

	if config.Project.Root == "" || config.Project.Root == "." {
		config.Project.Root = dir
	} else if !filepath.IsAbs(config.Project.Root) {
		config.Project.Root = filepath.Join(dir, config.Project.Root)
	}

	return config, nil
}
