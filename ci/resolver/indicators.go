/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package resolver

import (
	"path"
	"slices"
	"strings"

	"chainguard.dev/issuefix/ci"
)

var (
	testDirNames = []string{"test", "tests", "__tests__", "spec", "testing"}

	testConfigNames = []string{
		"pytest.ini", "tox.ini", "conftest.py", "noxfile.py",
		"jest.config.js", "jest.config.ts", "jest.config.mjs", "jest.config.cjs",
		"vitest.config.js", "vitest.config.ts", "vitest.config.mjs",
		"karma.conf.js", "mocha.opts", ".mocharc.json", ".mocharc.yml",
		"phpunit.xml", "phpunit.xml.dist", ".rspec",
	}

	// Glob patterns matched against the base name of files.
	testFilePatterns = []string{
		"test_*.py", "*_test.py",
		"*_test.go",
		"*.test.js", "*.spec.js", "*.test.ts", "*.spec.ts",
		"*.test.jsx", "*.spec.jsx", "*.test.tsx", "*.spec.tsx",
		"*Test.java", "*Tests.java", "*Test.kt",
		"*_spec.rb", "*_test.rb",
		"*Test.php",
		"*_test.rs",
	}
)

// IsTestIndicator reports whether a single entry suggests the repository has tests.
func IsTestIndicator(e ci.Entry) bool {
	base := e.Base()
	if e.Type == ci.EntryDir {
		return slices.Contains(testDirNames, strings.ToLower(base))
	}
	if slices.Contains(testConfigNames, base) {
		return true
	}
	for _, pattern := range testFilePatterns {
		if ok, _ := path.Match(pattern, base); ok {
			return true
		}
	}
	// Files nested under a test directory count even when their names do not.
	for _, dir := range strings.Split(path.Dir(e.Path), "/") {
		if slices.Contains(testDirNames, strings.ToLower(dir)) {
			return true
		}
	}
	return false
}

// HasTestIndicators reports whether any entry of the structure is a test
// file, test directory, or test configuration file.
func HasTestIndicators(s ci.Structure) bool {
	return slices.ContainsFunc(s.Entries, IsTestIndicator)
}
