//go:build mage

package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Builds the gltfload CLI into bin/.
func (Build) CLI() error {
	mg.Deps(Tidy)
	if err := os.MkdirAll("bin", 0o755); err != nil {
		return err
	}
	out := filepath.Join("bin", "gltfload")
	_, err := executeCmd("go", withArgs("build", "-o", out, "./cmd/gltfload"), withStream())
	return err
}

// Installs the gltfload CLI into GOBIN.
func (Build) Install() error {
	mg.Deps(Tidy)
	_, err := executeCmd("go", withArgs("install", "./cmd/gltfload"), withStream())
	return err
}

// Runs go mod tidy.
func Tidy() error {
	_, err := executeCmd("go", withArgs("mod", "tidy"))
	return err
}
