package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/rulegridgo/internal/binding"
	"github.com/vk/rulegridgo/internal/engine"
	"github.com/vk/rulegridgo/internal/graph"
	"github.com/vk/rulegridgo/internal/schema"
)

// testJob anchors expression and key expansion in build tests.
var testJob = binding.Job{Time: time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)}

func writeGrid(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_MergesFilesFromDirectory(t *testing.T) {
	dir := t.TempDir()
	writeGrid(t, dir, "nodes.hcl", `
		logic "a" {
			tracked = ["x"]
			output "x" { expression = "1" }
		}
		logic "b" {
			depends_on = ["a"]
			output "y" { expression = "x + 1" }
		}
	`)
	writeGrid(t, dir, "engine.hcl", `
		engine {
			workers = 2
			on_no_branch = "skip_branches"
		}
	`)

	cfg, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)

	assert.Len(t, cfg.Logics, 2)
	require.NotNil(t, cfg.Engine)
	assert.Equal(t, 2, cfg.Engine.Workers)
}

func TestLoad_DuplicateEngineBlockFails(t *testing.T) {
	dir := t.TempDir()
	writeGrid(t, dir, "a.hcl", `engine {}`)
	writeGrid(t, dir, "b.hcl", `engine {}`)

	_, err := NewLoader().Load(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate engine block")
}

func TestLoad_NoFilesFails(t *testing.T) {
	_, err := NewLoader().Load(context.Background(), t.TempDir())
	require.Error(t, err)
}

func TestBuild_TranslatesAllBlockKinds(t *testing.T) {
	dir := t.TempDir()
	path := writeGrid(t, dir, "grid.hcl", `
		engine {
			on_no_branch       = "skip_branches"
			on_schema_mismatch = "fail"
		}

		logic "source" {
			tracked = ["x"]
			output "x" { expression = "15" }
		}

		gate "route" {
			depends_on = ["source"]
			branch "hi" {
				condition = "x > 10"
				target    = "hi_handler"
			}
			branch "lo" {
				condition = "x <= 10"
				target    = "lo_handler"
			}
			default_branch = "lo"
		}

		logic "hi_handler" {
			after_branch = ["route:hi"]
			tracked      = ["msg"]
			expect       = { x = "int" }
			output "msg" { expression = "\"high\"" }
		}

		logic "lo_handler" {
			after_branch = ["route:lo"]
			output "msg" { expression = "\"low\"" }
		}

		collection "merge" {
			upstream {
				node  = "hi_handler"
				score = 0.8
			}
			upstream {
				node = "lo_handler"
			}
			tracked = ["n"]
			output "n" { expression = "length(collection)" }
		}

		bindings {
			namespace = "quotes"
			variable "price" {
				shape  = "value"
				prefix = { sym = "AAPL" }
			}
		}
	`)

	loader := NewLoader()
	cfg, err := loader.Load(context.Background(), path)
	require.NoError(t, err)

	build, err := loader.Build(cfg, testJob)
	require.NoError(t, err)

	assert.Equal(t, engine.NoBranchSkipAll, build.Engine.GatePolicy)
	assert.Equal(t, engine.MismatchFail, build.Engine.MismatchPolicy)

	g := build.Graph
	assert.Equal(t, 6, g.Len()) // start + 5 declared nodes

	gate, ok := g.Node("route")
	require.True(t, ok)
	assert.Equal(t, graph.KindGate, gate.Kind)
	assert.Equal(t, "lo", gate.DefaultBranch)
	require.Len(t, gate.Branches, 2)
	assert.Equal(t, "hi", gate.Branches[0].Alias)

	hi, ok := g.Node("hi_handler")
	require.True(t, ok)
	require.Contains(t, hi.Expect, "x")

	merge, ok := g.Node("merge")
	require.True(t, ok)
	assert.Equal(t, graph.KindCollection, merge.Kind)
	assert.InDelta(t, 0.8, merge.Scores["hi_handler"], 1e-9)
	assert.Zero(t, merge.Scores["lo_handler"])
	assert.ElementsMatch(t, []string{"hi_handler", "lo_handler"}, g.PlainDeps("merge"))

	deps := g.BranchDeps("hi_handler")
	require.Len(t, deps, 1)
	assert.Equal(t, graph.BranchEdge{Source: "route", Alias: "hi", Target: "hi_handler"}, deps[0])

	assert.Equal(t, "quotes", build.Namespace)
	require.Len(t, build.Variables, 1)
	assert.Equal(t, binding.ShapeValue, build.Variables[0].Shape)

	ok, errs := g.Validate()
	assert.True(t, ok, "built graph should validate clean: %v", errs)
}

func TestBuild_RejectsBadBlocks(t *testing.T) {
	cases := []struct {
		name string
		cfg  *schema.GridConfig
		want string
	}{
		{
			name: "logic without evaluator",
			cfg: &schema.GridConfig{
				Logics: []*schema.LogicBlock{{Name: "a"}},
			},
			want: "remote endpoint or output blocks",
		},
		{
			name: "logic with remote and outputs",
			cfg: &schema.GridConfig{
				Logics: []*schema.LogicBlock{{
					Name:    "a",
					Remote:  "http://localhost/eval",
					Outputs: []*schema.OutputBlock{{Name: "x", Expression: "1"}},
				}},
			},
			want: "both remote and output",
		},
		{
			name: "gate without branches",
			cfg: &schema.GridConfig{
				Gates: []*schema.GateBlock{{Name: "g"}},
			},
			want: "no branches",
		},
		{
			name: "collection without upstreams",
			cfg: &schema.GridConfig{
				Collections: []*schema.CollectionBlock{{Name: "c"}},
			},
			want: "no upstreams",
		},
		{
			name: "malformed after_branch",
			cfg: &schema.GridConfig{
				Logics: []*schema.LogicBlock{{
					Name:        "a",
					AfterBranch: []string{"not-a-ref"},
					Outputs:     []*schema.OutputBlock{{Name: "x", Expression: "1"}},
				}},
			},
			want: "gate:alias",
		},
		{
			name: "invalid policy",
			cfg: &schema.GridConfig{
				Engine: &schema.EngineBlock{OnNoBranch: "explode"},
			},
			want: "on_no_branch",
		},
		{
			name: "invalid binding shape",
			cfg: &schema.GridConfig{
				Bindings: &schema.BindingsBlock{
					Variables: []*schema.VariableBlock{{Name: "v", Shape: "tensor"}},
				},
			},
			want: "unknown binding shape",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewLoader().Build(tc.cfg, testJob)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestBuild_BadExpectSchemaFails(t *testing.T) {
	cfg := &schema.GridConfig{
		Logics: []*schema.LogicBlock{{
			Name:    "a",
			Expect:  map[string]string{"x": "tensor"},
			Outputs: []*schema.OutputBlock{{Name: "y", Expression: "1"}},
		}},
	}
	_, err := NewLoader().Build(cfg, testJob)
	require.Error(t, err)
}

func TestBuild_ExpandsSourcesAgainstJob(t *testing.T) {
	job := testJob
	job.Placeholders = map[string]string{"mode": "on"}

	cfg := &schema.GridConfig{
		Logics: []*schema.LogicBlock{{
			Name:    "label",
			Tracked: []string{"name"},
			Outputs: []*schema.OutputBlock{{Name: "name", Expression: `"sales_${yyyyMMdd}"`}},
		}},
		Gates: []*schema.GateBlock{{
			Name:      "toggle",
			DependsOn: []string{"label"},
			Branches: []*schema.BranchBlock{{
				Alias:     "enabled",
				Condition: `"${mode}" == "on"`,
				Target:    "handler",
			}},
		}},
	}
	cfg.Logics = append(cfg.Logics, &schema.LogicBlock{
		Name:        "handler",
		AfterBranch: []string{"toggle:enabled"},
		Outputs:     []*schema.OutputBlock{{Name: "done", Expression: "true"}},
	})

	build, err := NewLoader().Build(cfg, job)
	require.NoError(t, err)

	label, ok := build.Graph.Node("label")
	require.True(t, ok)
	out, err := label.Logic.Evaluate(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "sales_20240315", out["name"].AsString())

	toggle, ok := build.Graph.Node("toggle")
	require.True(t, ok)
	selected, err := toggle.Branches[0].Condition.Evaluate(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, selected)
}
