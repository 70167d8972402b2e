package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// hclStackFile is the decoding target for HCL stack files:
//
//	module "tracer" {
//	  pcontrol = "on"
//	  argument "foo" { value = "bar" }
//	  argument "out" { value = "${env.HOME}/trace" }
//	}
//
// Expressions may read environment variables through the env object.
type hclStackFile struct {
	Modules []*hclModule `hcl:"module,block"`
}

type hclModule struct {
	Name      string         `hcl:"name,label"`
	Pcontrol  *string        `hcl:"pcontrol,optional"`
	Arguments []*hclArgument `hcl:"argument,block"`
}

type hclArgument struct {
	Key   string `hcl:"key,label"`
	Value string `hcl:"value"`
}

func parseHCL(data []byte, filename string) (*Stack, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL: %w", diags)
	}

	var parsed hclStackFile
	if diags := gohcl.DecodeBody(file.Body, hclEvalContext(), &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %w", diags)
	}

	stack := &Stack{Modules: make([]Module, 0, len(parsed.Modules))}
	for _, hm := range parsed.Modules {
		m := Module{Name: hm.Name}
		if hm.Pcontrol != nil {
			sw, err := ParseSwitch(*hm.Pcontrol)
			if err != nil {
				return nil, fmt.Errorf("module %s: %w", hm.Name, err)
			}
			m.Pcontrol = sw
		}
		for _, ha := range hm.Arguments {
			m.Arguments = append(m.Arguments, Argument{Key: ha.Key, Value: ha.Value})
		}
		stack.Modules = append(stack.Modules, m)
	}
	return stack, nil
}

// hclEvalContext exposes the process environment as env.NAME. Variables
// whose names are not valid identifiers are left out.
func hclEvalContext() *hcl.EvalContext {
	vars := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if ok && hclsyntax.ValidIdentifier(name) {
			vars[name] = cty.StringVal(value)
		}
	}

	env := cty.EmptyObjectVal
	if len(vars) > 0 {
		env = cty.ObjectVal(vars)
	}
	return &hcl.EvalContext{Variables: map[string]cty.Value{"env": env}}
}
