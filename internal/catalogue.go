package internal

import "fmt"

// ToolSpec describes one tool the Dispatcher knows how to turn into an
// external command. The catalogue deliberately says nothing about cargo's
// own subcommand semantics beyond building its argv; it exists only so the
// Dispatcher and Protocol Surface have real tools to register and the
// always-synchronous predicate has real data to consult.
type ToolSpec struct {
	Name        string
	Description string

	// AlwaysSync forces the synchronous path regardless of the caller's
	// enable_async_notification argument.
	AlwaysSync bool

	// BuildArgs turns a tool call's decoded arguments into argv, with argv[0]
	// already supplied by the catalogue (never trusted from caller input).
	BuildArgs func(args map[string]any) ([]string, error)
}

func stringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func boolArg(args map[string]any, key string) bool {
	v, ok := args[key]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

func packageFlag(args map[string]any) []string {
	if pkg, ok := stringArg(args, "package"); ok && pkg != "" {
		return []string{"-p", pkg}
	}
	return nil
}

func releaseFlag(args map[string]any) []string {
	if boolArg(args, "release") {
		return []string{"--release"}
	}
	return nil
}

func cargoBuildArgs(subcommand string) func(map[string]any) ([]string, error) {
	return func(args map[string]any) ([]string, error) {
		argv := []string{"cargo", subcommand}
		argv = append(argv, packageFlag(args)...)
		argv = append(argv, releaseFlag(args)...)
		if extra, ok := args["args"]; ok {
			items, ok := extra.([]any)
			if !ok {
				return nil, fmt.Errorf("%w: args must be a list of strings", ErrInvalidRequest)
			}
			for _, item := range items {
				s, ok := item.(string)
				if !ok {
					return nil, fmt.Errorf("%w: args must be a list of strings", ErrInvalidRequest)
				}
				argv = append(argv, s)
			}
		}
		return argv, nil
	}
}

func cargoDependencyArgs(subcommand string) func(map[string]any) ([]string, error) {
	return func(args map[string]any) ([]string, error) {
		spec, ok := stringArg(args, "spec")
		if !ok || spec == "" {
			return nil, fmt.Errorf("%w: spec is required", ErrInvalidRequest)
		}
		argv := []string{"cargo", subcommand, spec}
		argv = append(argv, packageFlag(args)...)
		return argv, nil
	}
}

func cargoReadOnlyArgs(subcommand string) func(map[string]any) ([]string, error) {
	return func(args map[string]any) ([]string, error) {
		argv := []string{"cargo", subcommand}
		argv = append(argv, packageFlag(args)...)
		return argv, nil
	}
}

// DefaultCatalogue is the production cargo tool set: async-capable build and
// check tools, and always-synchronous mutating and read-back tools. The
// wait/status/cancel control tools are not part of it; GetServer registers
// them separately.
func DefaultCatalogue() []ToolSpec {
	return []ToolSpec{
		{Name: "cargo_build", Description: "Compile the current package and its dependencies.", BuildArgs: cargoBuildArgs("build")},
		{Name: "cargo_test", Description: "Run the package's tests.", BuildArgs: cargoBuildArgs("test")},
		{Name: "cargo_check", Description: "Type-check without producing binaries.", BuildArgs: cargoBuildArgs("check")},
		{Name: "cargo_clippy", Description: "Run the clippy lint suite.", BuildArgs: cargoBuildArgs("clippy")},
		{Name: "cargo_run", Description: "Build and run the package's main binary.", BuildArgs: cargoBuildArgs("run")},
		{Name: "cargo_bench", Description: "Run benchmarks.", BuildArgs: cargoBuildArgs("bench")},
		{Name: "cargo_doc", Description: "Build documentation.", BuildArgs: cargoBuildArgs("doc")},

		{Name: "cargo_add", Description: "Add a dependency to Cargo.toml.", AlwaysSync: true, BuildArgs: cargoDependencyArgs("add")},
		{Name: "cargo_remove", Description: "Remove a dependency from Cargo.toml.", AlwaysSync: true, BuildArgs: cargoDependencyArgs("remove")},
		{Name: "cargo_update", Description: "Update dependencies in Cargo.lock.", AlwaysSync: true, BuildArgs: cargoReadOnlyArgs("update")},
		{Name: "cargo_upgrade", Description: "Upgrade dependency version requirements.", AlwaysSync: true, BuildArgs: cargoReadOnlyArgs("upgrade")},

		{Name: "cargo_tree", Description: "Print the dependency tree.", AlwaysSync: true, BuildArgs: cargoReadOnlyArgs("tree")},
		{Name: "cargo_version", Description: "Print cargo's version.", AlwaysSync: true, BuildArgs: cargoReadOnlyArgs("version")},
		{Name: "cargo_metadata", Description: "Print package metadata as JSON.", AlwaysSync: true, BuildArgs: cargoReadOnlyArgs("metadata")},
	}
}

// Lookup returns the ToolSpec named name, if any.
func Lookup(catalogue []ToolSpec, name string) (ToolSpec, bool) {
	for _, spec := range catalogue {
		if spec.Name == name {
			return spec, true
		}
	}
	return ToolSpec{}, false
}
