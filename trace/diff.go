package trace

import "github.com/pmezard/go-difflib/difflib"

// Diff returns a unified diff between an expected and an actual trace, or an
// empty string when they are identical.
func Diff(expected, actual, expectedName, actualName string) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(expected),
		B:        difflib.SplitLines(actual),
		FromFile: expectedName,
		ToFile:   actualName,
		Context:  3,
	})
}
