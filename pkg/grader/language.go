package grader

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedLanguage indicates the submission language has no toolchain.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// Language identifies a submission language.
type Language string

// Supported languages.
const (
	Python     Language = "python"
	JavaScript Language = "javascript"
)

// ParseLanguage normalises s and checks it against the supported languages.
func ParseLanguage(s string) (Language, error) {
	lang := Language(strings.ToLower(strings.TrimSpace(s)))
	switch lang {
	case Python, JavaScript:
		return lang, nil
	case "js", "node":
		return JavaScript, nil
	case "py":
		return Python, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, s)
}

// Suffix returns the source file extension for the language.
func (l Language) Suffix() string {
	switch l {
	case Python:
		return ".py"
	case JavaScript:
		return ".js"
	}
	return ""
}

// Toolchain names the interpreters, linters and container images used per language.
// Run images only need the interpreter; lint images must also carry the linter.
type Toolchain struct {
	PythonBin   string
	NodeBin     string
	PylintBin   string
	ESLintCmd   []string
	PythonImage string
	NodeImage   string
	PylintImage string
	ESLintImage string
}

// DefaultToolchain returns a toolchain resolved through PATH.
func DefaultToolchain() Toolchain {
	return Toolchain{
		PythonBin:   "python3",
		NodeBin:     "node",
		PylintBin:   "pylint",
		ESLintCmd:   []string{"npx", "eslint"},
		PythonImage: "python:3.11-alpine",
		NodeImage:   "node:20-alpine",
		PylintImage: "cytopia/pylint:latest",
		ESLintImage: "cytopia/eslint:latest",
	}
}

// RunArgs returns the argument vector executing the source file at path.
func (t Toolchain) RunArgs(lang Language, path string) ([]string, error) {
	switch lang {
	case Python:
		return []string{t.PythonBin, path}, nil
	case JavaScript:
		return []string{t.NodeBin, path}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, lang)
}

// LintArgs returns the argument vector linting the source file at path.
func (t Toolchain) LintArgs(lang Language, path string) ([]string, error) {
	switch lang {
	case Python:
		return []string{
			t.PylintBin,
			"--score=y",
			"--disable=C0114,C0116,C0304,C0103",
			"--max-line-length=120",
			path,
		}, nil
	case JavaScript:
		args := append([]string{}, t.ESLintCmd...)
		return append(args,
			"--format", "json",
			"--no-eslintrc",
			"--rule", "semi: off",
			"--rule", "quotes: off",
			path,
		), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, lang)
}

// Image returns the container image harness runs use for the language.
func (t Toolchain) Image(lang Language) string {
	switch lang {
	case Python:
		return t.PythonImage
	case JavaScript:
		return t.NodeImage
	}
	return ""
}

// LintImage returns the container image lint runs use for the language.
func (t Toolchain) LintImage(lang Language) string {
	switch lang {
	case Python:
		return t.PylintImage
	case JavaScript:
		return t.ESLintImage
	}
	return ""
}
