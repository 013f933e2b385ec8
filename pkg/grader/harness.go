package grader

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"text/template"
)

// ErrInvalidFunctionName indicates the exercise names a function that is not a
// plain identifier of the submission language.
var ErrInvalidFunctionName = errors.New("invalid function name")

const helperPrefix = "__codesnap_"

var (
	pythonIdentifier     = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	javascriptIdentifier = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)
)

var pythonKeywords = setOf(
	"False", "None", "True", "and", "as", "assert", "async", "await", "break", "class", "continue", "def", "del",
	"elif", "else", "except", "finally", "for", "from", "global", "if", "import", "in", "is", "lambda", "nonlocal",
	"not", "or", "pass", "raise", "return", "try", "while", "with", "yield",
)

var javascriptKeywords = setOf(
	"await", "break", "case", "catch", "class", "const", "continue", "debugger", "default", "delete", "do", "else",
	"enum", "export", "extends", "false", "finally", "for", "function", "if", "implements", "import", "in",
	"instanceof", "interface", "let", "new", "null", "package", "private", "protected", "public", "return", "static",
	"super", "switch", "this", "throw", "true", "try", "typeof", "var", "void", "while", "with", "yield",
)

// harnessCase is one rendered test case. Args and Expected are source literals.
type harnessCase struct {
	Index    int
	Args     string
	Expected string
}

type harnessData struct {
	Code         string
	FunctionName string
	Cases        []harnessCase
}

// Generator renders test harnesses around submitted code.
type Generator struct {
	templates map[Language]*template.Template
}

// NewGenerator parses the per-language harness templates.
func NewGenerator() *Generator {
	return &Generator{
		templates: map[Language]*template.Template{
			Python:     template.Must(template.New("python").Parse(pythonHarness)),
			JavaScript: template.Must(template.New("javascript").Parse(javascriptHarness)),
		},
	}
}

// Generate appends a harness to code that calls functionName once per test
// case and prints one "Test <i>: PASSED|FAILED|ERROR" line per case followed by
// a final "RESULTS: <passed>/<total>" line.
func (g *Generator) Generate(code string, lang Language, functionName string, cases []TestCase) (string, error) {
	tmpl, ok := g.templates[lang]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, lang)
	}
	if err := ValidateFunctionName(lang, functionName); err != nil {
		return "", err
	}

	data := harnessData{
		Code:         code,
		FunctionName: functionName,
		Cases:        make([]harnessCase, 0, len(cases)),
	}
	for i, tc := range cases {
		args := make([]string, 0, len(tc.Args))
		for j, arg := range tc.Args {
			lit, err := Literal(lang, arg)
			if err != nil {
				return "", fmt.Errorf("%w: test %d argument %d: %v", ErrInvalidTestCases, i+1, j+1, err)
			}
			args = append(args, lit)
		}
		expected, err := Literal(lang, tc.Expected)
		if err != nil {
			return "", fmt.Errorf("%w: test %d expected value: %v", ErrInvalidTestCases, i+1, err)
		}
		data.Cases = append(data.Cases, harnessCase{
			Index:    i + 1,
			Args:     strings.Join(args, ", "),
			Expected: expected,
		})
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render harness: %w", err)
	}
	return b.String(), nil
}

// ValidateFunctionName checks that name can be spliced into lang source as a bare call target.
func ValidateFunctionName(lang Language, name string) error {
	var pattern *regexp.Regexp
	var keywords map[string]struct{}
	switch lang {
	case Python:
		pattern, keywords = pythonIdentifier, pythonKeywords
	case JavaScript:
		pattern, keywords = javascriptIdentifier, javascriptKeywords
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedLanguage, lang)
	}

	if !pattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidFunctionName, name)
	}
	if _, reserved := keywords[name]; reserved {
		return fmt.Errorf("%w: %q is a reserved word", ErrInvalidFunctionName, name)
	}
	if strings.HasPrefix(name, helperPrefix) {
		return fmt.Errorf("%w: %q collides with harness helpers", ErrInvalidFunctionName, name)
	}
	return nil
}

func setOf(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Both harnesses open with a single line that moves the program's standard
// output to stderr, so only the harness itself can print verdicts and the
// summary. Keeping it on one line shifts user line numbers by one.
const pythonHarness = `import sys as __codesnap_sys; __codesnap_stdout, __codesnap_sys.stdout = __codesnap_sys.stdout, __codesnap_sys.stderr
{{.Code}}


import json as __codesnap_json


def __codesnap_equal(actual, expected):
    if isinstance(actual, bool) or isinstance(expected, bool):
        return isinstance(actual, bool) and isinstance(expected, bool) and actual == expected
    if isinstance(actual, (int, float)) and isinstance(expected, (int, float)):
        return actual == expected
    if actual is None or expected is None:
        return actual is None and expected is None
    if isinstance(actual, str) and isinstance(expected, str):
        return actual == expected
    if isinstance(actual, list) and isinstance(expected, list):
        return len(actual) == len(expected) and all(__codesnap_equal(a, e) for a, e in zip(actual, expected))
    if isinstance(actual, dict) and isinstance(expected, dict):
        return actual.keys() == expected.keys() and all(__codesnap_equal(actual[k], expected[k]) for k in actual)
    return False


def __codesnap_normalize(value):
    try:
        return True, __codesnap_json.loads(__codesnap_json.dumps(value))
    except (TypeError, ValueError, RecursionError):
        return False, None


def __codesnap_describe(error):
    try:
        return str(error)
    except BaseException:
        return type(error).__name__


def __codesnap_show(value):
    try:
        return repr(value)
    except BaseException:
        return "<unrepresentable %s>" % type(value).__name__


def __codesnap_emit(line):
    line = str(line).replace("\r", " ").replace("\n", " ").replace("RESULTS:", "RESULTS -")
    __codesnap_stdout.write(line + "\n")
    __codesnap_stdout.flush()


__codesnap_passed = 0
__codesnap_total = 0
{{range .Cases}}
__codesnap_total += 1
try:
    __codesnap_actual = {{$.FunctionName}}({{.Args}})
    __codesnap_expected = {{.Expected}}
    __codesnap_ok, __codesnap_value = __codesnap_normalize(__codesnap_actual)
    if __codesnap_ok and __codesnap_equal(__codesnap_value, __codesnap_expected):
        __codesnap_passed += 1
        __codesnap_emit("Test {{.Index}}: PASSED")
    else:
        __codesnap_emit("Test {{.Index}}: FAILED - Expected " + __codesnap_show(__codesnap_expected) + ", got " + __codesnap_show(__codesnap_actual))
except BaseException as __codesnap_error:
    __codesnap_emit("Test {{.Index}}: ERROR - " + __codesnap_describe(__codesnap_error))
{{end}}
__codesnap_stdout.write("RESULTS: %d/%d\n" % (__codesnap_passed, __codesnap_total))
__codesnap_stdout.flush()
`

const javascriptHarness = `var __codesnap_stdout = process.stdout.write.bind(process.stdout); process.stdout.write = process.stderr.write.bind(process.stderr);
{{.Code}}

;(function () {
  function __codesnap_emit(line) {
    __codesnap_stdout(String(line).replace(/[\r\n]/g, " ").split("RESULTS:").join("RESULTS -") + "\n");
  }

  function __codesnap_equal(actual, expected) {
    if (actual === null || expected === null) {
      return actual === expected;
    }
    if (Array.isArray(actual) || Array.isArray(expected)) {
      if (!Array.isArray(actual) || !Array.isArray(expected) || actual.length !== expected.length) {
        return false;
      }
      return actual.every(function (value, i) { return __codesnap_equal(value, expected[i]); });
    }
    if (typeof actual === "object" && typeof expected === "object") {
      var actualKeys = Object.keys(actual);
      if (actualKeys.length !== Object.keys(expected).length) {
        return false;
      }
      return actualKeys.every(function (key) {
        return Object.prototype.hasOwnProperty.call(expected, key) && __codesnap_equal(actual[key], expected[key]);
      });
    }
    return typeof actual === typeof expected && actual === expected;
  }

  function __codesnap_normalize(value) {
    try {
      var text = JSON.stringify(value);
      if (text === undefined) {
        return { ok: true, value: null };
      }
      return { ok: true, value: JSON.parse(text) };
    } catch (e) {
      return { ok: false, value: null };
    }
  }

  function __codesnap_show(value) {
    try {
      var text = JSON.stringify(value);
      return text === undefined ? String(value) : text;
    } catch (e) {
      return String(value);
    }
  }

  function __codesnap_describe(error) {
    try {
      return error && error.message !== undefined ? String(error.message) : String(error);
    } catch (e) {
      return "uncaught exception";
    }
  }

  var __codesnap_passed = 0;
  var __codesnap_total = 0;
{{range .Cases}}
  __codesnap_total += 1;
  try {
    var __codesnap_actual = {{$.FunctionName}}({{.Args}});
    var __codesnap_expected = {{.Expected}};
    var __codesnap_value = __codesnap_normalize(__codesnap_actual);
    if (__codesnap_value.ok && __codesnap_equal(__codesnap_value.value, __codesnap_expected)) {
      __codesnap_passed += 1;
      __codesnap_emit("Test {{.Index}}: PASSED");
    } else {
      __codesnap_emit("Test {{.Index}}: FAILED - Expected " + __codesnap_show(__codesnap_expected) + ", got " + __codesnap_show(__codesnap_actual));
    }
  } catch (e) {
    __codesnap_emit("Test {{.Index}}: ERROR - " + __codesnap_describe(e));
  }
{{end}}
  __codesnap_stdout("RESULTS: " + __codesnap_passed + "/" + __codesnap_total + "\n");
})();
`
