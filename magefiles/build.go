//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

const (
	shaderSrcDir = "shaders"
	shaderOutDir = "shaders/compiled"
)

type Build mg.Namespace

// Compiles every compute, vertex and fragment shader to SPIR-V with glslc.
func (Build) Shaders() error {
	return buildShaders()
}

// Builds the engine binary into bin/lumen.
func (Build) Engine() error {
	mg.Deps(Build.Shaders)
	_, err := executeCmd("go", withArgs("build", "-o", "bin/lumen", "."), withStream())
	return err
}

func buildShaders() error {
	if err := os.MkdirAll(shaderOutDir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", shaderOutDir, err)
	}
	var sources []string
	for _, ext := range []string{"comp", "vert", "frag"} {
		matches, err := filepath.Glob(filepath.Join(shaderSrcDir, "*."+ext))
		if err != nil {
			return err
		}
		sources = append(sources, matches...)
	}
	if len(sources) == 0 {
		return fmt.Errorf("no shaders found in %s", shaderSrcDir)
	}
	for _, src := range sources {
		out := filepath.Join(shaderOutDir, filepath.Base(src)+".spv")
		if _, err := executeCmd("glslc", withArgs(src, "-o", out), withStream()); err != nil {
			return err
		}
	}
	return nil
}
