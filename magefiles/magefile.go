//go:build mage

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main contains Mage build targets for paper-recommender developer tooling.
package main

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// projectDirs lists the working directories the service expects.
var projectDirs = []string{
	"data",
	".secrets",
}

// Init creates the local data and secrets directories.
func Init() error {
	for _, dir := range projectDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
		fmt.Println("  ", dir)
	}
	fmt.Println("Project directories initialized.")
	return nil
}

const (
	binDir  = "bin"
	binName = "paper-recommender"
	cmdPkg  = "./cmd/paper-recommender"

	qdrantImage     = "qdrant/qdrant:v1.14.0"
	qdrantContainer = "paper-recommender-qdrant"
)

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	if err := sh.RunV("go", "build", "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Test runs the unit tests with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "-count=1", "./...")
}

// Lint runs go vet and checks formatting.
func Lint() error {
	if err := sh.RunV("go", "vet", "./..."); err != nil {
		return err
	}
	out, err := sh.Output("gofmt", "-l", "cmd", "internal", "pkg", "magefiles")
	if err != nil {
		return err
	}
	if out != "" {
		return fmt.Errorf("files need gofmt:\n%s", out)
	}
	return nil
}

// Check runs Lint then Test.
func Check() {
	mg.SerialDeps(Lint, Test)
}

// Qdrant starts a local Qdrant container with the gRPC port exposed.
func Qdrant() error {
	running, _ := sh.Output("docker", "ps", "-q", "--filter", "name="+qdrantContainer)
	if strings.TrimSpace(running) != "" {
		fmt.Println("Qdrant already running.")
		return nil
	}
	return sh.RunV("docker", "run", "-d", "--rm",
		"--name", qdrantContainer,
		"-p", "6333:6333", "-p", "6334:6334",
		qdrantImage)
}

// Stats prints non-blank Go lines split into production and test code, and
// the word count of the Markdown documents.
func Stats() error {
	var prod, tests, words int
	err := filepath.WalkDir(".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != "." && (strings.HasPrefix(d.Name(), ".") || strings.HasPrefix(d.Name(), "_")) {
				return filepath.SkipDir
			}
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".go" && ext != ".md" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		switch {
		case ext == ".md":
			words += len(bytes.Fields(data))
		case strings.HasSuffix(path, "_test.go"):
			tests += nonBlankLines(data)
		default:
			prod += nonBlankLines(data)
		}
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Printf("Lines of code (Go, production): %d\n", prod)
	fmt.Printf("Lines of code (Go, tests):      %d\n", tests)
	fmt.Printf("Words (Markdown):                %d\n", words)
	return nil
}

func nonBlankLines(data []byte) int {
	n := 0
	for line := range bytes.Lines(data) {
		if len(bytes.TrimSpace(line)) > 0 {
			n++
		}
	}
	return n
}
