package taxonomy

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/teranos/tagtical/errors"
)

// File is the on-disk form of a taxonomy.
//
//	root = "tag"
//
//	[[types]]
//	name = "skill"
//	read = [{ op = "replace", from = "ball", to = "baller" }]
//
//	[[kinds]]
//	name = "taggable_model"
//	contexts = [{ name = "tags" }, { name = "crafts", type = "craft" }]
type File struct {
	Root        string          `toml:"root" yaml:"root"`
	RootStorage []TransformSpec `toml:"root_storage" yaml:"root_storage"`
	RootRead    []TransformSpec `toml:"root_read" yaml:"root_read"`
	Types       []TypeSpec      `toml:"types" yaml:"types"`
	Kinds       []KindSpec      `toml:"kinds" yaml:"kinds"`
}

// TypeSpec declares one tag type.
type TypeSpec struct {
	Name    string          `toml:"name" yaml:"name"`
	Parent  string          `toml:"parent" yaml:"parent"`
	Storage []TransformSpec `toml:"storage" yaml:"storage"`
	Read    []TransformSpec `toml:"read" yaml:"read"`
}

// KindSpec declares one taggable kind and the contexts bound on it.
type KindSpec struct {
	Name     string        `toml:"name" yaml:"name"`
	Parent   string        `toml:"parent" yaml:"parent"`
	Contexts []ContextSpec `toml:"contexts" yaml:"contexts"`
}

// ContextSpec binds a context; Type may be empty.
type ContextSpec struct {
	Name string `toml:"name" yaml:"name"`
	Type string `toml:"type" yaml:"type"`
}

// LoadFile reads a .toml, .yaml or .yml taxonomy file.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read taxonomy file %s", path)
	}

	var f File
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if err := toml.Unmarshal(data, &f); err != nil {
			return nil, errors.Wrapf(err, "failed to parse taxonomy TOML %s", path)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, errors.Wrapf(err, "failed to parse taxonomy YAML %s", path)
		}
	default:
		return nil, errors.WithHint(
			errors.NewInvalidRequestError("unsupported taxonomy file extension %q", ext),
			"use .toml, .yaml or .yml")
	}

	r, err := f.Build()
	if err != nil {
		return nil, errors.Wrapf(err, "invalid taxonomy %s", path)
	}
	return r, nil
}

// Build compiles the file's transforms and assembles the registry.
func (f File) Build() (*Registry, error) {
	rootOpts, err := typeOptions(f.RootStorage, f.RootRead)
	if err != nil {
		return nil, errors.Wrap(err, "root type")
	}
	b := NewBuilder(f.Root, rootOpts...)

	for _, t := range f.Types {
		opts, err := typeOptions(t.Storage, t.Read)
		if err != nil {
			return nil, errors.Wrapf(err, "type %q", t.Name)
		}
		b.Type(t.Name, t.Parent, opts...)
	}
	for _, k := range f.Kinds {
		b.Kind(k.Name, k.Parent)
		for _, c := range k.Contexts {
			b.Context(k.Name, c.Name, c.Type)
		}
	}
	return b.Build()
}

func typeOptions(storage, read []TransformSpec) ([]TypeOption, error) {
	var opts []TypeOption
	st, err := CompileStorage(storage)
	if err != nil {
		return nil, err
	}
	if st != nil {
		opts = append(opts, WithStorageTransform(st))
	}
	rd, err := Compile(read)
	if err != nil {
		return nil, err
	}
	if rd != nil {
		opts = append(opts, WithReadTransform(rd))
	}
	return opts, nil
}

// Default is the taxonomy used when no file is configured: the root type and
// one "item" kind with a "tags" context.
func Default() *Registry {
	r, err := NewBuilder(DefaultRootType).
		Kind("item", "").
		Context("item", "tags", "").
		Build()
	if err != nil {
		panic(err)
	}
	return r
}
