package internal

import (
	"testing"

	"github.com/nalgeon/be"
)

func TestCargoBuildArgsBasic(t *testing.T) {
	build := cargoBuildArgs("build")
	argv, err := build(map[string]any{})
	be.Err(t, err, nil)
	be.Equal(t, argv[0], "cargo")
	be.Equal(t, argv[1], "build")
}

func TestCargoBuildArgsWithPackageAndRelease(t *testing.T) {
	build := cargoBuildArgs("test")
	argv, err := build(map[string]any{
		"package": "my-crate",
		"release": true,
	})
	be.Err(t, err, nil)
	be.Equal(t, len(argv), 5)
	be.Equal(t, argv[2], "-p")
	be.Equal(t, argv[3], "my-crate")
	be.Equal(t, argv[4], "--release")
}

func TestCargoBuildArgsWithExtraArgs(t *testing.T) {
	build := cargoBuildArgs("test")
	argv, err := build(map[string]any{
		"args": []any{"--nocapture", "my_test"},
	})
	be.Err(t, err, nil)
	be.Equal(t, argv[len(argv)-2], "--nocapture")
	be.Equal(t, argv[len(argv)-1], "my_test")
}

func TestCargoBuildArgsRejectsNonStringArgs(t *testing.T) {
	build := cargoBuildArgs("test")
	_, err := build(map[string]any{
		"args": []any{1, 2},
	})
	be.True(t, err != nil)
}

func TestCargoDependencyArgsRequiresSpec(t *testing.T) {
	add := cargoDependencyArgs("add")
	_, err := add(map[string]any{})
	be.True(t, err != nil)
}

func TestCargoDependencyArgsBuildsSpecAndPackage(t *testing.T) {
	add := cargoDependencyArgs("add")
	argv, err := add(map[string]any{"spec": "serde@1.0", "package": "my-crate"})
	be.Err(t, err, nil)
	be.Equal(t, argv[0], "cargo")
	be.Equal(t, argv[1], "add")
	be.Equal(t, argv[2], "serde@1.0")
	be.Equal(t, argv[3], "-p")
	be.Equal(t, argv[4], "my-crate")
}

func TestCargoReadOnlyArgs(t *testing.T) {
	tree := cargoReadOnlyArgs("tree")
	argv, err := tree(map[string]any{"package": "my-crate"})
	be.Err(t, err, nil)
	be.Equal(t, argv[0], "cargo")
	be.Equal(t, argv[1], "tree")
	be.Equal(t, argv[2], "-p")
	be.Equal(t, argv[3], "my-crate")
}

func TestDefaultCatalogueHasEveryTool(t *testing.T) {
	catalogue := DefaultCatalogue()
	names := map[string]bool{}
	for _, spec := range catalogue {
		names[spec.Name] = true
	}
	for _, want := range []string{
		"cargo_build", "cargo_test", "cargo_check", "cargo_clippy", "cargo_run",
		"cargo_bench", "cargo_doc", "cargo_add", "cargo_remove", "cargo_update",
		"cargo_upgrade", "cargo_tree", "cargo_version", "cargo_metadata",
	} {
		be.True(t, names[want])
	}
}

func TestDefaultCatalogueAlwaysSyncTools(t *testing.T) {
	catalogue := DefaultCatalogue()
	for _, name := range []string{"cargo_add", "cargo_remove", "cargo_update", "cargo_upgrade", "cargo_tree", "cargo_version", "cargo_metadata"} {
		spec, ok := Lookup(catalogue, name)
		be.True(t, ok)
		be.True(t, spec.AlwaysSync)
	}
}

func TestLookupMissingTool(t *testing.T) {
	_, ok := Lookup(DefaultCatalogue(), "cargo_nonexistent")
	be.True(t, !ok)
}
