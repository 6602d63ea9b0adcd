// ./internal/arch/arch_test.go
package arch

import (
	"bytes"
	"encoding/json"
	"io"
	"os/exec"
	"strings"
	"testing"
)

const module = "github.com/PDoakORNL/BetheAnsatz"

type pkg struct {
	ImportPath string
	Imports    []string
}

func internal(names ...string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = module + "/internal/" + n
	}
	return out
}

func TestImportBoundaries(t *testing.T) {
	if testing.Short() {
		t.Skip("runs go list")
	}
	cmd := exec.Command("go", "list", "-json", module+"/...")
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		t.Fatalf("go list: %v", err)
	}
	dec := json.NewDecoder(&out)

	outer := internal("pipeline", "writers", "params", "logging", "appcore", "hubbardcli", "hubbardapp", "appshell")
	outer = append(outer, module+"/cmd/")
	numeric := []string{"kernel", "quadrature", "mesh", "toeplitz", "fixedpoint", "grounded", "grandpotential"}

	bans := map[string][]string{}
	for _, n := range numeric {
		bans[module+"/internal/"+n] = outer
	}
	bans[module+"/internal/pipeline"] = append(internal(
		"grounded", "grandpotential", "params", "writers",
		"appcore", "hubbardcli", "hubbardapp"), module+"/cmd/")
	bans[module+"/internal/writers"] = append(internal(
		"pipeline", "params", "appcore", "hubbardcli", "hubbardapp"), module+"/cmd/")
	bans[module+"/internal/hubbardcli"] = append(internal(
		"grounded", "grandpotential", "pipeline", "appcore", "hubbardapp"), module+"/cmd/")
	bans[module+"/internal/appcore"] = append(internal("hubbardcli", "hubbardapp"), module+"/cmd/")

	var violations []string
	seen := 0
	for {
		var p pkg
		if err := dec.Decode(&p); err == io.EOF {
			break
		} else if err != nil {
			t.Fatalf("decode: %v", err)
		}
		seen++
		forbidden, ok := bans[p.ImportPath]
		if !ok {
			continue
		}
		for _, dep := range p.Imports {
			for _, ban := range forbidden {
				if dep == ban || (strings.HasSuffix(ban, "/") && strings.HasPrefix(dep, ban)) {
					violations = append(violations, p.ImportPath+" → "+dep)
				}
			}
		}
	}
	if seen == 0 {
		t.Fatal("go list returned no packages")
	}
	if len(violations) > 0 {
		t.Fatalf("import boundary violations:\n  %s", strings.Join(violations, "\n  "))
	}
}
