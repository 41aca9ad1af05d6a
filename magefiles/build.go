//go:build mage

package main

import (
	"fmt"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
	"github.com/magefile/mage/target"
)

type Build mg.Namespace

const shaderDir = "assets/shaders"

// Compiles every GLSL stage under assets/shaders into SPIR-V next to it.
// Stages whose output is newer than their sources are skipped.
func (Build) Shaders() error {
	return buildShaders()
}

// Builds the demo binary into bin/.
func (Build) Demo() error {
	mg.Deps(Build.Shaders)
	return sh.RunV("go", "build", "-o", filepath.Join("bin", "lumen"), ".")
}

func buildShaders() error {
	stages, err := filepath.Glob(filepath.Join(shaderDir, "*.vert"))
	if err != nil {
		return err
	}
	frags, err := filepath.Glob(filepath.Join(shaderDir, "*.frag"))
	if err != nil {
		return err
	}
	stages = append(stages, frags...)

	includes, err := filepath.Glob(filepath.Join(shaderDir, "*.glsl"))
	if err != nil {
		return err
	}

	for _, src := range stages {
		out := src + ".spv"
		sources := append([]string{src}, includes...)
		rebuild, err := target.Path(out, sources...)
		if err != nil {
			return err
		}
		if !rebuild {
			continue
		}
		if err := sh.RunV("glslc", "-I", shaderDir, "--target-env=vulkan1.1", src, "-o", out); err != nil {
			return fmt.Errorf("compiling %s: %w", src, err)
		}
	}
	return nil
}

// Removes the compiled shaders and the demo binary.
func Clean() error {
	spv, err := filepath.Glob(filepath.Join(shaderDir, "*.spv"))
	if err != nil {
		return err
	}
	for _, f := range spv {
		if err := sh.Rm(f); err != nil {
			return err
		}
	}
	return sh.Rm("bin")
}
