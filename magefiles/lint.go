//go:build mage

package main

import (
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/pkg/errors"
)

type Lint mg.Namespace

// Runs go vet.
func (Lint) Vet() error {
	_, err := executeCmd("go", withArgs("vet", "./..."), withStream())
	return err
}

// Fails when gofmt would change any file.
func (Lint) Fmt() error {
	out, err := executeCmd("gofmt", withArgs("-l", "common", "engine", "cmd", "magefiles"))
	if err != nil {
		return err
	}
	if files := strings.TrimSpace(out); files != "" {
		return errors.Errorf("files need gofmt:\n%s", files)
	}
	return nil
}

// Runs every lint target.
func (Lint) All() {
	mg.SerialDeps(Lint.Vet, Lint.Fmt)
}
