package script

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/stlkit/pkg/kernel/sdfx"
	"github.com/chazu/stlkit/pkg/mesh"
	"github.com/chazu/stlkit/pkg/stl"
	"github.com/go-gl/mathgl/mgl32"
	zygo "github.com/glycerine/zygomys/zygo"
)

const testCells = 40

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

func cubeTriangles() []mesh.Triangle {
	quads := [][4]mgl32.Vec3{
		{{0, 0, 0}, {0, 1, 0}, {1, 1, 0}, {1, 0, 0}},
		{{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1}},
		{{0, 0, 0}, {1, 0, 0}, {1, 0, 1}, {0, 0, 1}},
		{{0, 1, 0}, {0, 1, 1}, {1, 1, 1}, {1, 1, 0}},
		{{0, 0, 0}, {0, 0, 1}, {0, 1, 1}, {0, 1, 0}},
		{{1, 0, 0}, {1, 1, 0}, {1, 1, 1}, {1, 0, 1}},
	}
	var out []mesh.Triangle
	for _, q := range quads {
		out = append(out,
			mesh.Triangle{Vertices: [3]mgl32.Vec3{q[0], q[1], q[2]}},
			mesh.Triangle{Vertices: [3]mgl32.Vec3{q[0], q[2], q[3]}})
	}
	return out
}

// workspace returns a directory holding cube.stl and an engine rooted
// there.
func workspace(t *testing.T) (string, *Engine) {
	t.Helper()
	dir := t.TempDir()
	cube := mesh.New("cube", cubeTriangles(), mesh.Options{})
	if err := stl.WriteFile(filepath.Join(dir, "cube.stl"), cube, stl.SaveOptions{Mode: stl.Binary}); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	eng := NewEngine(dir)
	eng.Kernel = sdfx.New(testCells)
	return dir, eng
}

func run(t *testing.T, eng *Engine, source string) *Result {
	t.Helper()
	res, evalErrs, err := eng.Evaluate(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	return res
}

// evalExpr evaluates a single expression with the builtins installed and
// returns its value.
func evalExpr(t *testing.T, eng *Engine, source string) zygo.Sexp {
	t.Helper()
	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env, &builtins{kernel: eng.kernel(), dir: eng.Dir, result: &Result{}})
	v, err := env.EvalString(preprocessSource(source))
	if err != nil {
		t.Fatalf("EvalString(%q): %v", source, err)
	}
	return v
}

func near(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func vecNear(a, b mgl32.Vec3) bool {
	for i := range a {
		if !near(float64(a[i]), float64(b[i]), 1e-5) {
			return false
		}
	}
	return true
}

// ---------------------------------------------------------------------------
// Preprocessing tests
// ---------------------------------------------------------------------------

func TestPreprocessSource(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "simple keyword",
			input:  `(load "a.stl" :mode :ascii)`,
			expect: `(load "a.stl" "__kw_mode" "__kw_ascii")`,
		},
		{
			name:   "keyword in string preserved",
			input:  `"thing with :keyword inside"`,
			expect: `"thing with :keyword inside"`,
		},
		{
			name:   "assignment operator preserved",
			input:  `(def x := 10)`,
			expect: `(def x := 10)`,
		},
		{
			name:   "kebab-case identifier",
			input:  `(remove-empty m :threshold 0.5)`,
			expect: `(remove_empty m "__kw_threshold" 0.5)`,
		},
		{
			name:   "minus operator preserved",
			input:  `(- 10 5)`,
			expect: `(- 10 5)`,
		},
		{
			name:   "comment converted to // style",
			input:  `;; comment with :keyword`,
			expect: `// comment with :keyword`,
		},
		{
			name:   "hyphen in keyword preserved",
			input:  `:about-point`,
			expect: `"__kw_about-point"`,
		},
		{
			name:   "backtick string preserved",
			input:  "`a-b :c`",
			expect: "`a-b :c`",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessSource(tt.input)
			if got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

func TestParseArgs(t *testing.T) {
	args := []zygo.Sexp{
		&zygo.SexpInt{Val: 1},
		&zygo.SexpStr{S: kwPrefix + "mode"},
		&zygo.SexpStr{S: kwPrefix + "ascii"},
		&zygo.SexpStr{S: "plain"},
		&zygo.SexpStr{S: kwPrefix + "flag"},
	}
	pa := parseArgs(args)
	if len(pa.positional) != 2 {
		t.Fatalf("positional = %d, want 2", len(pa.positional))
	}
	mode, err := toKeywordString(pa.kw["mode"])
	if err != nil || mode != "ascii" {
		t.Errorf("mode = %q, %v", mode, err)
	}
	if pa.kw["flag"] != zygo.SexpNull {
		t.Errorf("trailing keyword should map to SexpNull")
	}
}

// ---------------------------------------------------------------------------
// Mesh builtins
// ---------------------------------------------------------------------------

func TestLoadAndDefine(t *testing.T) {
	_, eng := workspace(t)
	res := run(t, eng, `(defmesh "part" (load "cube.stl" :mode :binary))`)

	if len(res.Meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(res.Meshes))
	}
	m := res.Lookup("part")
	if m == nil {
		t.Fatal("expected mesh named 'part'")
	}
	if m.Len() != 12 {
		t.Errorf("Len = %d, want 12", m.Len())
	}
	if res.Lookup("missing") != nil {
		t.Error("Lookup of unknown name should be nil")
	}
}

func TestDefinitionOrder(t *testing.T) {
	_, eng := workspace(t)
	res := run(t, eng, `
(def c (load "cube.stl"))
(defmesh "b" c)
(defmesh "a" c)
(defmesh "b" (merge c c))
`)
	if len(res.Meshes) != 2 {
		t.Fatalf("expected 2 meshes, got %d", len(res.Meshes))
	}
	if res.Meshes[0].Name != "b" || res.Meshes[1].Name != "a" {
		t.Errorf("order = %s, %s", res.Meshes[0].Name, res.Meshes[1].Name)
	}
	if res.Meshes[0].Len() != 24 {
		t.Errorf("redefined mesh has %d triangles, want 24", res.Meshes[0].Len())
	}
}

func TestMeshLookup(t *testing.T) {
	_, eng := workspace(t)
	res := run(t, eng, `
(defmesh "base" (load "cube.stl"))
(defmesh "moved" (translate (mesh "base") (vec3 5 0 0)))
`)
	moved := res.Lookup("moved")
	if moved == nil {
		t.Fatal("missing 'moved'")
	}
	if got := moved.Min(); got != (mgl32.Vec3{5, 0, 0}) {
		t.Errorf("Min = %v, want [5 0 0]", got)
	}
	if got := res.Lookup("base").Min(); got != (mgl32.Vec3{}) {
		t.Errorf("translate modified its input: Min = %v", got)
	}
}

func TestMeshLookupError(t *testing.T) {
	_, eng := workspace(t)
	_, evalErrs, err := eng.Evaluate(`(mesh "nope")`)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) == 0 || !strings.Contains(evalErrs[0].Message, "nope") {
		t.Fatalf("expected lookup error, got %v", evalErrs)
	}
}

func TestRotate(t *testing.T) {
	_, eng := workspace(t)
	tests := []struct {
		name    string
		expr    string
		wantMin mgl32.Vec3
		wantMax mgl32.Vec3
	}{
		{"keyword axis", `(rotate c :z 180)`, mgl32.Vec3{-1, -1, 0}, mgl32.Vec3{0, 0, 1}},
		{"vec3 axis", `(rotate c (vec3 0 0 1) 180)`, mgl32.Vec3{-1, -1, 0}, mgl32.Vec3{0, 0, 1}},
		{"about point", `(rotate c :z 180 :about (vec3 0.5 0.5 0))`, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 1, 1}},
		{"zero angle", `(rotate c :x 0)`, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := run(t, eng, `(def c (load "cube.stl")) (defmesh "r" `+tt.expr+`)`)
			m := res.Lookup("r")
			if !vecNear(m.Min(), tt.wantMin) {
				t.Errorf("Min = %v, want %v", m.Min(), tt.wantMin)
			}
			if !vecNear(m.Max(), tt.wantMax) {
				t.Errorf("Max = %v, want %v", m.Max(), tt.wantMax)
			}
		})
	}
}

func TestRotateErrors(t *testing.T) {
	_, eng := workspace(t)
	for _, src := range []string{
		`(rotate (load "cube.stl"))`,
		`(rotate (load "cube.stl") :w 90)`,
		`(rotate (load "cube.stl") :q 90)`,
		`(rotate (vec3 1 2 3) :x 90)`,
	} {
		_, evalErrs, err := eng.Evaluate(src)
		if err != nil {
			t.Fatalf("%s: fatal error: %v", src, err)
		}
		if len(evalErrs) == 0 {
			t.Errorf("%s: expected an eval error", src)
		}
	}
}

func TestFilters(t *testing.T) {
	_, eng := workspace(t)
	res := run(t, eng, `
(def c (load "cube.stl"))
(def twice (merge c c :name "twice"))
(defmesh "single" (dedupe twice))
(defmesh "all" (dedupe twice :policy :all))
(defmesh "none" (dedupe twice :policy :none))
(defmesh "big" (remove-empty c :threshold 0.6))
(defmesh "kept" (remove-empty c))
`)
	tests := []struct {
		name string
		want int
	}{
		{"single", 12},
		{"all", 12},
		{"none", 24},
		{"big", 0},
		{"kept", 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := res.Lookup(tt.name).Len(); got != tt.want {
				t.Errorf("Len = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestQueries(t *testing.T) {
	_, eng := workspace(t)

	if v := evalExpr(t, eng, `(triangle-count (load "cube.stl"))`); v.(*zygo.SexpInt).Val != 12 {
		t.Errorf("triangle-count = %s", v.SexpString(nil))
	}
	if v := evalExpr(t, eng, `(volume (load "cube.stl"))`); !near(v.(*zygo.SexpFloat).Val, 1, 1e-6) {
		t.Errorf("volume = %s", v.SexpString(nil))
	}
	if v := evalExpr(t, eng, `(area (load "cube.stl"))`); !near(v.(*zygo.SexpFloat).Val, 6, 1e-6) {
		t.Errorf("area = %s", v.SexpString(nil))
	}
}

func TestSave(t *testing.T) {
	dir, eng := workspace(t)
	res := run(t, eng, `
(def c (load "cube.stl"))
(save c "out.stl" :mode :ascii :name "shiny")
(save (translate c (vec3 1 0 0)) "moved.stl")
`)
	want := []string{filepath.Join(dir, "out.stl"), filepath.Join(dir, "moved.stl")}
	if len(res.Written) != len(want) {
		t.Fatalf("Written = %v", res.Written)
	}
	for i := range want {
		if res.Written[i] != want[i] {
			t.Errorf("Written[%d] = %s, want %s", i, res.Written[i], want[i])
		}
	}

	data, err := os.ReadFile(want[0])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "solid shiny") {
		t.Errorf("ascii output starts with %.20q", data)
	}

	m, err := stl.ReadFile(want[1], stl.Binary, mesh.Options{})
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if m.Min() != (mgl32.Vec3{1, 0, 0}) {
		t.Errorf("Min = %v", m.Min())
	}
}

func TestSaveAfterAbandon(t *testing.T) {
	dir, eng := workspace(t)
	guard := &writeGuard{}
	guard.close()

	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env, &builtins{kernel: eng.kernel(), dir: dir, result: &Result{}, writes: guard})
	if _, err := env.EvalString(`(save (load "cube.stl") "late.stl")`); err == nil {
		t.Fatal("expected save to fail")
	}
	if _, err := os.Stat(filepath.Join(dir, "late.stl")); !os.IsNotExist(err) {
		t.Errorf("late.stl exists or stat failed: %v", err)
	}
}

func TestPathsStayInDir(t *testing.T) {
	dir, eng := workspace(t)
	for _, src := range []string{
		`(load "../cube.stl")`,
		`(save (load "cube.stl") "../escape.stl")`,
		`(load "/etc/passwd")`,
	} {
		_, evalErrs, err := eng.Evaluate(src)
		if err != nil {
			t.Fatalf("%s: fatal error: %v", src, err)
		}
		if len(evalErrs) == 0 {
			t.Errorf("%s: expected an eval error", src)
		}
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(dir), "escape.stl")); err == nil {
		t.Error("save wrote outside its directory")
	}
}

// ---------------------------------------------------------------------------
// Kernel builtins
// ---------------------------------------------------------------------------

func TestKernelSolids(t *testing.T) {
	_, eng := workspace(t)
	res := run(t, eng, `
(def b (box 10 10 10))
(defmesh "box" b)
(defmesh "hole" (difference b (move (box 4 4 20) (vec3 3 3 -5))))
(defmesh "ball" (tessellate (sphere 5) :name "ignored"))
(defmesh "both" (union b (move b (vec3 10 0 0))))
`)
	tests := []struct {
		name string
		want float64
	}{
		{"box", 1000},
		{"hole", 1000 - 160},
		{"ball", 4.0 / 3.0 * math.Pi * 125},
		{"both", 2000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := res.Lookup(tt.name)
			if m == nil {
				t.Fatal("missing mesh")
			}
			if m.IsEmpty() {
				t.Fatal("empty mesh")
			}
			v, _, _ := m.MassProperties()
			if !near(v, tt.want, tt.want*0.05) {
				t.Errorf("volume = %f, want %f within 5%%", v, tt.want)
			}
		})
	}
}

func TestKernelArgumentErrors(t *testing.T) {
	_, eng := workspace(t)
	for _, src := range []string{
		`(box 0 1 1)`,
		`(box 1 1 "x")`,
		`(cylinder 1)`,
		`(sphere -1)`,
		`(union (box 1 1 1))`,
		`(union (box 1 1 1) (load "cube.stl"))`,
		`(move (box 1 1 1) 1 2 3)`,
		`(tessellate (load "cube.stl"))`,
		`(vec3 1 2)`,
	} {
		_, evalErrs, err := eng.Evaluate(src)
		if err != nil {
			t.Fatalf("%s: fatal error: %v", src, err)
		}
		if len(evalErrs) == 0 {
			t.Errorf("%s: expected an eval error", src)
		}
	}
}
