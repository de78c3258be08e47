//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Test mg.Namespace

// Runs every package test.
func (Test) All() error {
	_, err := executeCmd("go", withArgs("test", "./..."), withStream())
	return err
}

// Runs the tests with the race detector, the loader runs requests on a worker pool.
func (Test) Race() error {
	_, err := executeCmd("go", withArgs("test", "-race", "./..."), withStream(), withEnv("CGO_ENABLED=1"))
	return err
}

// Writes a coverage profile to coverage.out and prints the per-function summary.
func (Test) Cover() error {
	if _, err := executeCmd("go", withArgs("test", "-coverprofile=coverage.out", "./..."), withStream()); err != nil {
		return err
	}
	_, err := executeCmd("go", withArgs("tool", "cover", "-func=coverage.out"), withStream())
	return err
}
