// Package evals holds the evaluators referenced by the builtin rules.
package evals

import (
	"regexp"
	"strings"

	"github.com/alpha1e0/kiwi/internal/feature"
	"github.com/alpha1e0/kiwi/internal/model"
	"github.com/alpha1e0/kiwi/internal/source"
)

// Register adds every builtin evaluator to r.
func Register(r *feature.Evaluators) error {
	for _, name := range Names() {
		if err := r.Register(name, builtins[name]); err != nil {
			return err
		}
	}
	return nil
}

// Default returns a fresh registry holding the builtin evaluators.
func Default() *feature.Evaluators {
	r := feature.NewEvaluators()
	if err := Register(r); err != nil {
		panic(err)
	}
	return r
}

func Names() []string {
	return []string{
		"dynamic_argument",
		"go_shell_command",
		"php_file_inclusion_001_evaluate",
		"py_cmd_inject_0002",
		"py_yaml_unsafe_load",
		"sql_string_building",
	}
}

var builtins = map[string]feature.Evaluator{
	"dynamic_argument":                feature.EvaluatorFunc(dynamicArgument),
	"go_shell_command":                feature.EvaluatorFunc(goShellCommand),
	"php_file_inclusion_001_evaluate": feature.EvaluatorFunc(phpFileInclusion),
	"py_cmd_inject_0002":              feature.EvaluatorFunc(pyShellTrue),
	"py_yaml_unsafe_load":             feature.EvaluatorFunc(pyYAMLUnsafeLoad),
	"sql_string_building":             feature.EvaluatorFunc(sqlStringBuilding),
}

func accept(f *feature.Feature) (model.Level, model.Level, bool) {
	return f.Severity, f.Confidence, true
}

func reject() (model.Level, model.Level, bool) { return 0, 0, false }

// subprocess calls only inject when a shell interprets the command.
func pyShellTrue(f *feature.Feature, mc *source.MatchContext) (model.Level, model.Level, bool) {
	if mc.Contains("shell=True") || mc.Contains("shell = True") {
		return accept(f)
	}
	return reject()
}

// include/require of a literal path is harmless.
func phpFileInclusion(f *feature.Feature, mc *source.MatchContext) (model.Level, model.Level, bool) {
	if mc.Contains("$") {
		return accept(f)
	}
	return reject()
}

var literalCall = regexp.MustCompile(`\(\s*(["'])[^"'$]*(["'])\s*\)`)

// dynamicArgument rejects calls whose only argument is a plain string
// literal. Anything else is kept at the feature's levels.
func dynamicArgument(f *feature.Feature, mc *source.MatchContext) (model.Level, model.Level, bool) {
	line := mc.MatchLine()
	if strings.TrimSpace(line) == "" {
		return reject()
	}
	if literalCall.MatchString(line) && !strings.ContainsAny(line, "+%$") {
		return reject()
	}
	return accept(f)
}

var safeYAMLLoader = regexp.MustCompile(`Loader\s*=\s*(yaml\.)?(Safe|CSafe|Base)Loader`)

func pyYAMLUnsafeLoad(f *feature.Feature, mc *source.MatchContext) (model.Level, model.Level, bool) {
	if safeYAMLLoader.MatchString(mc.MatchLine()) {
		return reject()
	}
	return accept(f)
}

var sqlKeyword = regexp.MustCompile(`(?i)\b(select|insert|update|delete|replace)\b`)

// sqlStringBuilding keeps execute calls whose query is assembled from
// strings. Confidence is raised when request data appears nearby.
func sqlStringBuilding(f *feature.Feature, mc *source.MatchContext) (model.Level, model.Level, bool) {
	line := mc.MatchLine()
	built := strings.Contains(line, "%") || strings.Contains(line, "+") ||
		strings.Contains(line, ".format(") || strings.Contains(line, `f"`) ||
		strings.Contains(line, "$")
	if !built {
		return reject()
	}
	if !sqlKeyword.MatchString(mc.Text()) && !strings.Contains(line, "$") {
		return reject()
	}
	confidence := f.Confidence
	for _, src := range []string{"$_GET", "$_POST", "$_REQUEST", "request.", "getParameter("} {
		if mc.ContextContains(src) {
			confidence = model.High
			break
		}
	}
	return f.Severity, confidence, true
}

var goShell = regexp.MustCompile(`exec\.Command(Context)?\s*\((ctx\s*,\s*)?"(/bin/)?(ba|z)?sh"\s*,\s*"-c"`)

func goShellCommand(f *feature.Feature, mc *source.MatchContext) (model.Level, model.Level, bool) {
	if goShell.MatchString(mc.MatchLine()) {
		return accept(f)
	}
	return reject()
}
