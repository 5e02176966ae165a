package evals

import (
	"testing"

	"github.com/alpha1e0/kiwi/internal/feature"
	"github.com/alpha1e0/kiwi/internal/model"
)

func TestRegisterIsCompleteAndBuiltinsLoad(t *testing.T) {
	r := Default()
	if got := r.Names(); len(got) != len(Names()) {
		t.Fatalf("expected %d evaluators, got %v", len(Names()), got)
	}
	if err := Register(r); err == nil {
		t.Fatal("expected second registration to fail")
	}
	reg, err := feature.Load(feature.Builtins(), r, feature.LoadOptions{})
	if err != nil {
		t.Fatalf("builtin rules must load against builtin evaluators: %v", err)
	}
	if reg.Len() == 0 {
		t.Fatal("expected builtin features")
	}
}

func TestBuiltinEvaluators(t *testing.T) {
	r := Default()
	reg, err := feature.Load(feature.Builtins(), r, feature.LoadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	byID := map[string]*feature.Feature{}
	for _, f := range reg.Features() {
		byID[f.ID] = f
	}

	tests := []struct {
		name     string
		id       string
		scope    string
		content  string
		accepted bool
		conf     model.Level
	}{
		{name: "shell true", id: "PY_CMD_INJECT_0002", scope: "python", content: "subprocess.check_output(cmd, shell=True)\n", accepted: true, conf: model.High},
		{name: "no shell", id: "PY_CMD_INJECT_0002", scope: "python", content: "subprocess.check_output(['ls'])\n"},
		{name: "php variable include", id: "PHP_FILE_INCLUSION_001", scope: "php", content: "<?php include($_GET['page']); ?>\n", accepted: true, conf: model.Medium},
		{name: "php literal include", id: "PHP_FILE_INCLUSION_001", scope: "php", content: "<?php include('header.php'); ?>\n"},
		{name: "eval of plain literal", id: "PY_CODE_EXEC_0001", scope: "python", content: "eval('x')\n"},
		{name: "eval of variable", id: "PY_CODE_EXEC_0001", scope: "python", content: "eval(user_input)\n", accepted: true, conf: model.Low},
		{name: "safe yaml", id: "PY_DESERIALIZE_0002", scope: "python", content: "yaml.load(s, Loader=yaml.SafeLoader)\n"},
		{name: "unsafe yaml", id: "PY_DESERIALIZE_0002", scope: "python", content: "yaml.load(s)\n", accepted: true, conf: model.Medium},
		{name: "formatted sql", id: "PY_SQL_INJECT_0001", scope: "python", content: "cur.execute(\"SELECT * FROM t WHERE id=%s\" % uid)\n", accepted: true, conf: model.Low},
		{name: "request sql", id: "PY_SQL_INJECT_0001", scope: "python", content: "uid = request.args['id']\ncur.execute(\"SELECT * FROM t WHERE id=\" + uid)\n", accepted: true, conf: model.High},
		{name: "parameterised sql", id: "PY_SQL_INJECT_0001", scope: "python", content: "cur.execute(\"SELECT * FROM t WHERE id=?\", (uid,))\n"},
		{name: "go shell", id: "GO_CMD_INJECT_001", scope: "go", content: "exec.Command(\"sh\", \"-c\", cmd)\n", accepted: true, conf: model.Medium},
		{name: "go argv", id: "GO_CMD_INJECT_001", scope: "go", content: "exec.Command(\"git\", \"status\")\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := byID[tt.id]
			if f == nil {
				t.Fatalf("builtin %s missing", tt.id)
			}
			src := newSource(tt.scope, tt.content)
			mcs := src.Match(f.Patterns, 10)
			if len(mcs) == 0 {
				t.Fatalf("expected %s to match %q", tt.id, tt.content)
			}
			mc := mcs[len(mcs)-1]
			_, conf, ok, err := f.Judge(mc)
			if err != nil {
				t.Fatalf("Judge: %v", err)
			}
			if ok != tt.accepted {
				t.Fatalf("accepted=%v, want %v", ok, tt.accepted)
			}
			if ok && conf != tt.conf {
				t.Fatalf("confidence=%s, want %s", conf, tt.conf)
			}
		})
	}
}
