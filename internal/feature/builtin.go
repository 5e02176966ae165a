package feature

// Builtins is the rule set used when no feature directory is configured.
func Builtins() []RuleFile {
	return []RuleFile{
		{
			Name:   "python" + FileExt,
			Scopes: []string{"python"},
			Features: []Definition{
				{
					ID:         "PY_CMD_INJECT_0001",
					Name:       "Command injection via os.system/os.popen",
					Patterns:   []string{`os\.system\s*\(`, `os\.popen\d?\s*\(`},
					Severity:   "High",
					Confidence: "Medium",
					References: []string{"https://cwe.mitre.org/data/definitions/78.html"},
				},
				{
					ID:         "PY_CMD_INJECT_0002",
					Name:       "Command injection via subprocess with shell=True",
					Patterns:   []string{`subprocess\.(call|check_call|check_output|run|Popen)\s*\(`},
					Severity:   "High",
					Confidence: "High",
					Evaluate:   "py_cmd_inject_0002",
					References: []string{"https://docs.python.org/3/library/subprocess.html#security-considerations"},
				},
				{
					ID:         "PY_CODE_EXEC_0001",
					Name:       "Dynamic code execution",
					Patterns:   []string{`\beval\s*\(`, `\bexec\s*\(`},
					Severity:   "Medium",
					Confidence: "Low",
					Evaluate:   "dynamic_argument",
				},
				{
					ID:         "PY_DESERIALIZE_0001",
					Name:       "Unsafe deserialization",
					Patterns:   []string{`pickle\.loads?\s*\(`, `cPickle\.loads?\s*\(`, `marshal\.loads\s*\(`},
					Severity:   "High",
					Confidence: "Medium",
				},
				{
					ID:         "PY_DESERIALIZE_0002",
					Name:       "yaml.load without a safe loader",
					Patterns:   []string{`yaml\.load\s*\(`},
					Severity:   "Medium",
					Confidence: "Medium",
					Evaluate:   "py_yaml_unsafe_load",
				},
				{
					ID:         "PY_SQL_INJECT_0001",
					Name:       "SQL built with string formatting",
					Patterns:   []string{`\.execute\s*\(`},
					Severity:   "High",
					Confidence: "Low",
					Evaluate:   "sql_string_building",
				},
			},
		},
		{
			Name:   "php" + FileExt,
			Scopes: []string{"php"},
			Features: []Definition{
				{
					ID:         "PHP_FILE_INCLUSION_001",
					Name:       "File inclusion with a variable path",
					Patterns:   []string{`\b(include|include_once|require|require_once)\b\s*\(?`},
					Severity:   "High",
					Confidence: "Medium",
					Evaluate:   "php_file_inclusion_001_evaluate",
				},
				{
					ID:         "PHP_CMD_INJECT_001",
					Name:       "Command execution function",
					Patterns:   []string{`\b(system|exec|shell_exec|passthru|popen|proc_open)\s*\(`},
					Severity:   "High",
					Confidence: "Low",
					Evaluate:   "dynamic_argument",
				},
				{
					ID:         "PHP_CODE_EXEC_001",
					Name:       "Dynamic code evaluation",
					Patterns:   []string{`\beval\s*\(`, `\bassert\s*\(\s*\$`, `preg_replace\s*\(\s*['"].*/e['"]`},
					Severity:   "High",
					Confidence: "Medium",
				},
				{
					ID:         "PHP_SQL_INJECT_001",
					Name:       "SQL query built from request data",
					Patterns:   []string{`\b(mysql_query|mysqli_query|pg_query)\s*\(`},
					Severity:   "High",
					Confidence: "Low",
					Evaluate:   "sql_string_building",
				},
			},
		},
		{
			Name:   "javascript" + FileExt,
			Scopes: []string{"javascript"},
			Features: []Definition{
				{
					ID:         "JS_CODE_EXEC_001",
					Name:       "Dynamic code evaluation",
					Patterns:   []string{`\beval\s*\(`, `new\s+Function\s*\(`},
					Severity:   "Medium",
					Confidence: "Low",
					Evaluate:   "dynamic_argument",
				},
				{
					ID:         "JS_CMD_INJECT_001",
					Name:       "child_process command execution",
					Patterns:   []string{`child_process`, `\bexecSync\s*\(`},
					Severity:   "Medium",
					Confidence: "Low",
				},
				{
					ID:         "JS_XSS_001",
					Name:       "Unescaped HTML sink",
					Patterns:   []string{`\.innerHTML\s*=`, `document\.write\s*\(`, `dangerouslySetInnerHTML`},
					Severity:   "Medium",
					Confidence: "Low",
				},
			},
		},
		{
			Name:   "java" + FileExt,
			Scopes: []string{"java"},
			Features: []Definition{
				{
					ID:         "JAVA_CMD_INJECT_001",
					Name:       "Runtime command execution",
					Patterns:   []string{`Runtime\.getRuntime\(\)\.exec\s*\(`, `new\s+ProcessBuilder\s*\(`},
					Severity:   "High",
					Confidence: "Low",
				},
				{
					ID:         "JAVA_SQL_INJECT_001",
					Name:       "SQL statement built by concatenation",
					Patterns:   []string{`\.(executeQuery|executeUpdate|execute|prepareStatement)\s*\(`},
					Severity:   "High",
					Confidence: "Low",
					Evaluate:   "sql_string_building",
				},
				{
					ID:         "JAVA_DESERIALIZE_001",
					Name:       "Java native deserialization",
					Patterns:   []string{`new\s+ObjectInputStream\s*\(`, `\.readObject\s*\(\s*\)`},
					Severity:   "Medium",
					Confidence: "Low",
				},
			},
		},
		{
			Name:   "go" + FileExt,
			Scopes: []string{"go"},
			Features: []Definition{
				{
					ID:         "GO_CMD_INJECT_001",
					Name:       "Shell invoked through exec.Command",
					Patterns:   []string{`exec\.Command(Context)?\s*\(`},
					Severity:   "High",
					Confidence: "Medium",
					Evaluate:   "go_shell_command",
				},
				{
					ID:         "GO_TLS_001",
					Name:       "TLS certificate verification disabled",
					Patterns:   []string{`InsecureSkipVerify\s*:\s*true`},
					Severity:   "Medium",
					Confidence: "High",
				},
			},
		},
		{
			Name:   "shell" + FileExt,
			Scopes: []string{"shell"},
			Features: []Definition{
				{
					ID:         "SH_CODE_EXEC_001",
					Name:       "eval of expanded input",
					Patterns:   []string{`\beval\s+`},
					Severity:   "Medium",
					Confidence: "Low",
					Evaluate:   "dynamic_argument",
				},
				{
					ID:         "SH_REMOTE_EXEC_001",
					Name:       "Remote script piped into a shell",
					Patterns:   []string{`(curl|wget)[^|\n]*\|\s*(sudo\s+)?(ba|z)?sh\b`},
					Severity:   "High",
					Confidence: "High",
				},
			},
		},
	}
}
