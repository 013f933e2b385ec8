package grader

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPylintScore(t *testing.T) {
	assert.Equal(t, 10.0, PylintScore("Your code has been rated at 10.0/10"))
	assert.Equal(t, 7.5, PylintScore("************* Module x\nYour code has been rated at 7.50/10 (previous run: 5.00/10, +2.50)"))
	assert.Equal(t, 0.0, PylintScore("No config file found"))
	assert.Equal(t, 0.0, PylintScore(""))
	assert.Equal(t, 0.0, PylintScore("Your code has been rated at -2.50/10"))
}

func TestESLintScore(t *testing.T) {
	clean := `[{"filePath":"/tmp/a.js","messages":[],"errorCount":0,"warningCount":0}]`
	assert.Equal(t, 10.0, ESLintScore(clean))

	mixed := `[{"messages":[{"severity":2},{"severity":1},{"severity":1},{"severity":2}]}]`
	assert.Equal(t, 6.0, ESLintScore(mixed))

	many := `[{"messages":[` +
		`{"severity":2},{"severity":2},{"severity":2},{"severity":2},{"severity":2},{"severity":2},{"severity":2}` +
		`]}]`
	assert.Equal(t, 0.0, ESLintScore(many))

	assert.Equal(t, 0.0, ESLintScore("npx: command not found"))
	assert.Equal(t, 0.0, ESLintScore("[]"))
}
