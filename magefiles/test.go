//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

type Test mg.Namespace

// Runs every package test.
func (Test) All() error {
	return sh.RunV("go", "test", "./...")
}

// Runs the tests that need no GPU or window, with the race detector.
func (Test) Race() error {
	return sh.RunV("go", "test", "-race",
		"./engine/containers/...", "./engine/core/...", "./engine/config/...",
		"./engine/geometry/...", "./engine/math/...", "./engine/assets/...",
		"./engine/systems/...", "./engine/renderer/frame/...", "./engine/renderer/headless/...",
		"./engine/renderer/views/...", "./engine/renderer/metadata/...", "./engine/renderer")
}

// Tidies go.mod and vets the module.
func (Test) Vet() error {
	if err := sh.Run("go", "mod", "tidy"); err != nil {
		return err
	}
	return sh.RunV("go", "vet", "./...")
}
