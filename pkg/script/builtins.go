package script

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/chazu/stlkit/pkg/kernel"
	"github.com/chazu/stlkit/pkg/mesh"
	"github.com/chazu/stlkit/pkg/stl"
	"github.com/chazu/stlkit/pkg/threemf"
	"github.com/go-gl/mathgl/mgl64"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource rewrites source before it reaches zygomys:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     so keywords never collide with user variables.
//
//  2. Kebab-case to underscore: remove-empty -> remove_empty
//     zygomys reads a hyphen inside an identifier as subtraction.
//
//  3. ; line comments become // comments.
//
// String literals are left alone.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Double-quoted strings.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Backtick strings.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == ':' && i+1 < len(b) {
			// Preserve :=
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				result = append(result, '"')
				result = append(result, kwPrefix...)
				result = append(result, b[i+1:j]...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// A hyphen between identifier characters is part of a name, not
		// the minus operator.
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

type sexpVec3 struct {
	vec mgl64.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec[0], v.vec[1], v.vec[2])
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpSolid wraps a kernel solid that has not been tessellated yet.
type sexpSolid struct {
	solid kernel.Solid
}

func (s *sexpSolid) SexpString(ps *zygo.PrintState) string {
	lo, hi := s.solid.BoundingBox()
	return fmt.Sprintf("(solid %g,%g,%g %g,%g,%g)", lo[0], lo[1], lo[2], hi[0], hi[1], hi[2])
}
func (s *sexpSolid) Type() *zygo.RegisteredType { return nil }

type sexpMesh struct {
	mesh *mesh.Mesh
}

func (m *sexpMesh) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(mesh %q %d)", m.mesh.Name, m.mesh.Len())
}
func (m *sexpMesh) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW reports whether s is a preprocessed keyword and returns its name.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			i++
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i += 2
		} else {
			result.kw[name] = zygo.SexpNull
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func toPositive(s zygo.Sexp) (float64, error) {
	f, err := toFloat64(s)
	if err != nil {
		return 0, err
	}
	if f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("expected a positive number, got %g", f)
	}
	return f, nil
}

func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString accepts both :ascii and "ascii".
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	return strings.TrimPrefix(str.S, kwPrefix), nil
}

func toVec3(s zygo.Sexp) (mgl64.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return mgl64.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// toAxis accepts :x, :y, :z or an arbitrary vec3.
func toAxis(s zygo.Sexp) (mgl64.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	name, err := toKeywordString(s)
	if err != nil {
		return mgl64.Vec3{}, fmt.Errorf("expected axis (:x, :y, :z or vec3): %w", err)
	}
	switch name {
	case "x":
		return mgl64.Vec3{1, 0, 0}, nil
	case "y":
		return mgl64.Vec3{0, 1, 0}, nil
	case "z":
		return mgl64.Vec3{0, 0, 1}, nil
	}
	return mgl64.Vec3{}, fmt.Errorf("invalid axis %q, expected x, y, or z", name)
}

func toSolid(s zygo.Sexp) (kernel.Solid, error) {
	if v, ok := s.(*sexpSolid); ok {
		return v.solid, nil
	}
	return nil, fmt.Errorf("expected solid, got %T (%s)", s, s.SexpString(nil))
}

func toMesh(s zygo.Sexp) (*mesh.Mesh, error) {
	if v, ok := s.(*sexpMesh); ok {
		return v.mesh, nil
	}
	return nil, fmt.Errorf("expected mesh, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// flatten splices list and array arguments into the argument list, so
// (merge a b) and (merge (list a b)) mean the same.
func flatten(args []zygo.Sexp) ([]zygo.Sexp, error) {
	var out []zygo.Sexp
	for _, a := range args {
		switch a.(type) {
		case *zygo.SexpPair, *zygo.SexpArray:
			items, err := sexpListToSlice(a)
			if err != nil {
				return nil, err
			}
			out = append(out, items...)
		default:
			out = append(out, a)
		}
	}
	return out, nil
}

func float(f float64) zygo.Sexp { return &zygo.SexpFloat{Val: f} }

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// builtins is the state shared by the functions of one evaluation.
type builtins struct {
	kernel kernel.Kernel
	dir    string
	result *Result
	// writes gates save; nil allows every write.
	writes *writeGuard
}

// resolve maps a script path onto the filesystem. Relative paths are
// joined to dir, and no path may leave dir when dir is set.
func (b *builtins) resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty path")
	}
	if b.dir == "" {
		return path, nil
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(b.dir, path)
	}
	rel, err := filepath.Rel(b.dir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q is outside %s", path, b.dir)
	}
	return filepath.Clean(path), nil
}

// meshOf returns the mesh held by s, tessellating solids on the way.
func (b *builtins) meshOf(s zygo.Sexp, name string) (*mesh.Mesh, error) {
	switch v := s.(type) {
	case *sexpMesh:
		return v.mesh, nil
	case *sexpSolid:
		return b.kernel.ToMesh(v.solid, name)
	}
	return nil, fmt.Errorf("expected mesh or solid, got %T (%s)", s, s.SexpString(nil))
}

func (b *builtins) load(path string, mode stl.Mode) (*mesh.Mesh, error) {
	if strings.EqualFold(filepath.Ext(path), ".3mf") {
		meshes, err := threemf.ReadFile(path, mesh.Options{})
		if err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		return mesh.Concat(name, meshes...), nil
	}
	return stl.ReadFile(path, mode, mesh.Options{})
}

// boolean folds op over two or more solids.
func boolean(fn string, op func(a, b kernel.Solid) kernel.Solid) zygo.ZlispUserFunction {
	return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		args, err := flatten(args)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
		}
		if len(args) < 2 {
			return zygo.SexpNull, fmt.Errorf("%s requires at least 2 solids, got %d", fn, len(args))
		}
		acc, err := toSolid(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
		}
		for _, a := range args[1:] {
			s, err := toSolid(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
			}
			acc = op(acc, s)
		}
		return &sexpSolid{solid: acc}, nil
	}
}

// registerBuiltins installs the mesh builtins into env. Source must be
// run through preprocessSource first so that keywords are recognizable.
func registerBuiltins(env *zygo.Zlisp, b *builtins) {

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var v mgl64.Vec3
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %c: %w", "xyz"[i], err)
			}
			v[i] = f
		}
		return &sexpVec3{vec: v}, nil
	})

	// -----------------------------------------------------------------------
	// (load "part.stl" :mode :ascii)
	// -----------------------------------------------------------------------
	env.AddFunction("load", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("load requires a path")
		}
		path, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("load: path: %w", err)
		}
		mode := stl.Automatic
		if v, ok := pa.kw["mode"]; ok {
			s, err := toKeywordString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("load: mode: %w", err)
			}
			if mode, err = stl.ParseMode(s); err != nil {
				return zygo.SexpNull, fmt.Errorf("load: %w", err)
			}
		}
		if path, err = b.resolve(path); err != nil {
			return zygo.SexpNull, fmt.Errorf("load: %w", err)
		}
		m, err := b.load(path, mode)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("load: %w", err)
		}
		return &sexpMesh{mesh: m}, nil
	})

	// -----------------------------------------------------------------------
	// Kernel primitives: (box 10 20 30) (cylinder 10 2) (sphere 5)
	// -----------------------------------------------------------------------
	env.AddFunction("box", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("box requires exactly 3 arguments, got %d", len(args))
		}
		var d [3]float64
		for i, a := range args {
			f, err := toPositive(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("box: %c: %w", "xyz"[i], err)
			}
			d[i] = f
		}
		return &sexpSolid{solid: b.kernel.Box(d[0], d[1], d[2])}, nil
	})

	env.AddFunction("cylinder", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("cylinder requires a height and a radius")
		}
		h, err := toPositive(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: height: %w", err)
		}
		r, err := toPositive(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: radius: %w", err)
		}
		segments := 32
		if v, ok := pa.kw["segments"]; ok {
			if segments, err = toInt(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("cylinder: segments: %w", err)
			}
		}
		return &sexpSolid{solid: b.kernel.Cylinder(h, r, segments)}, nil
	})

	env.AddFunction("sphere", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("sphere requires a radius")
		}
		r, err := toPositive(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sphere: radius: %w", err)
		}
		segments := 32
		if v, ok := pa.kw["segments"]; ok {
			if segments, err = toInt(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("sphere: segments: %w", err)
			}
		}
		return &sexpSolid{solid: b.kernel.Sphere(r, segments)}, nil
	})

	env.AddFunction("union", boolean("union", b.kernel.Union))
	env.AddFunction("difference", boolean("difference", b.kernel.Difference))
	env.AddFunction("intersection", boolean("intersection", b.kernel.Intersection))

	// -----------------------------------------------------------------------
	// (move solid (vec3 1 2 3)) (turn solid (vec3 0 0 90))
	// -----------------------------------------------------------------------
	env.AddFunction("move", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("move requires a solid and a vec3")
		}
		s, err := toSolid(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("move: %w", err)
		}
		v, err := toVec3(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("move: %w", err)
		}
		return &sexpSolid{solid: b.kernel.Translate(s, v[0], v[1], v[2])}, nil
	})

	env.AddFunction("turn", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("turn requires a solid and a vec3 of angles")
		}
		s, err := toSolid(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("turn: %w", err)
		}
		v, err := toVec3(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("turn: %w", err)
		}
		return &sexpSolid{solid: b.kernel.Rotate(s, v[0], v[1], v[2])}, nil
	})

	// -----------------------------------------------------------------------
	// (tessellate solid :name "part")
	// -----------------------------------------------------------------------
	env.AddFunction("tessellate", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("tessellate requires a solid")
		}
		s, err := toSolid(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("tessellate: %w", err)
		}
		meshName := ""
		if v, ok := pa.kw["name"]; ok {
			if meshName, err = toString(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("tessellate: name: %w", err)
			}
		}
		m, err := b.kernel.ToMesh(s, meshName)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("tessellate: %w", err)
		}
		return &sexpMesh{mesh: m}, nil
	})

	// -----------------------------------------------------------------------
	// (rotate mesh :z 90 :about (vec3 1 1 0))
	// The axis is a keyword or a vec3; the angle is in degrees.
	// -----------------------------------------------------------------------
	env.AddFunction("rotate", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("rotate requires a mesh")
		}
		m, err := toMesh(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("rotate: %w", err)
		}

		var axis mgl64.Vec3
		var degrees zygo.Sexp
		switch {
		case len(pa.positional) == 3:
			if axis, err = toAxis(pa.positional[1]); err != nil {
				return zygo.SexpNull, fmt.Errorf("rotate: %w", err)
			}
			degrees = pa.positional[2]
		default:
			// (rotate m :x 90) arrives as a keyword argument.
			for _, k := range []string{"x", "y", "z"} {
				if v, ok := pa.kw[k]; ok {
					axis, _ = toAxis(&zygo.SexpStr{S: k})
					degrees = v
					break
				}
			}
		}
		if degrees == nil {
			return zygo.SexpNull, fmt.Errorf("rotate requires an axis and an angle")
		}
		theta, err := toFloat64(degrees)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("rotate: angle: %w", err)
		}

		out := m.Copy()
		rad := mgl64.DegToRad(theta)
		if v, ok := pa.kw["about"]; ok {
			p, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("rotate: about: %w", err)
			}
			out.RotateAbout(axis, rad, p)
		} else {
			out.Rotate(axis, rad)
		}
		out.Invalidate()
		return &sexpMesh{mesh: out}, nil
	})

	// -----------------------------------------------------------------------
	// (translate mesh (vec3 1 2 3))
	// -----------------------------------------------------------------------
	env.AddFunction("translate", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("translate requires a mesh and a vec3")
		}
		m, err := toMesh(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("translate: %w", err)
		}
		v, err := toVec3(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("translate: %w", err)
		}
		out := m.Copy()
		out.Translate(v)
		out.Invalidate()
		return &sexpMesh{mesh: out}, nil
	})

	// -----------------------------------------------------------------------
	// (merge a b c :name "all")
	// -----------------------------------------------------------------------
	env.AddFunction("merge", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		items, err := flatten(pa.positional)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("merge: %w", err)
		}
		if len(items) == 0 {
			return zygo.SexpNull, fmt.Errorf("merge requires at least one mesh")
		}
		meshes := make([]*mesh.Mesh, len(items))
		for i, it := range items {
			if meshes[i], err = toMesh(it); err != nil {
				return zygo.SexpNull, fmt.Errorf("merge: %w", err)
			}
		}
		meshName := meshes[0].Name
		if v, ok := pa.kw["name"]; ok {
			if meshName, err = toString(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("merge: name: %w", err)
			}
		}
		return &sexpMesh{mesh: mesh.Concat(meshName, meshes...)}, nil
	})

	// -----------------------------------------------------------------------
	// (dedupe mesh :policy :all)
	// -----------------------------------------------------------------------
	env.AddFunction("dedupe", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("dedupe requires a mesh")
		}
		m, err := toMesh(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("dedupe: %w", err)
		}
		policy := mesh.RemoveSingle
		if v, ok := pa.kw["policy"]; ok {
			s, err := toKeywordString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("dedupe: policy: %w", err)
			}
			if policy, err = mesh.ParseRemoveDuplicates(s); err != nil {
				return zygo.SexpNull, fmt.Errorf("dedupe: %w", err)
			}
		}
		out := mesh.New(m.Name, m.Copy().Triangles(), mesh.Options{
			SkipNormals:      true,
			RemoveDuplicates: policy,
		})
		return &sexpMesh{mesh: out}, nil
	})

	// -----------------------------------------------------------------------
	// (remove-empty mesh :threshold 0.001)
	// -----------------------------------------------------------------------
	env.AddFunction("remove_empty", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("remove-empty requires a mesh")
		}
		m, err := toMesh(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("remove-empty: %w", err)
		}
		var threshold float64
		if v, ok := pa.kw["threshold"]; ok {
			if threshold, err = toFloat64(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("remove-empty: threshold: %w", err)
			}
		}
		out := mesh.New(m.Name, m.Copy().Triangles(), mesh.Options{
			SkipNormals:      true,
			RemoveEmptyAreas: true,
			AreaThreshold:    float32(threshold),
		})
		return &sexpMesh{mesh: out}, nil
	})

	// -----------------------------------------------------------------------
	// Queries: (volume m) (area m) (triangle-count m)
	// -----------------------------------------------------------------------
	env.AddFunction("volume", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("volume requires a mesh")
		}
		m, err := toMesh(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("volume: %w", err)
		}
		v, _, _ := m.MassProperties()
		return float(v), nil
	})

	env.AddFunction("area", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("area requires a mesh")
		}
		m, err := toMesh(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("area: %w", err)
		}
		return float(m.Area()), nil
	})

	env.AddFunction("triangle_count", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("triangle-count requires a mesh")
		}
		m, err := toMesh(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("triangle-count: %w", err)
		}
		return &zygo.SexpInt{Val: int64(m.Len())}, nil
	})

	// -----------------------------------------------------------------------
	// (defmesh "name" expr) (mesh "name")
	// -----------------------------------------------------------------------
	env.AddFunction("defmesh", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("defmesh requires a name and a body expression")
		}
		meshName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("defmesh: name: %w", err)
		}
		if meshName == "" {
			return zygo.SexpNull, fmt.Errorf("defmesh: empty name")
		}
		m, err := b.meshOf(args[1], meshName)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("defmesh: %w", err)
		}
		m = m.Copy()
		m.Name = meshName
		b.result.define(m)
		return &sexpMesh{mesh: m}, nil
	})

	env.AddFunction("mesh", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("mesh requires a name argument")
		}
		meshName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("mesh: name: %w", err)
		}
		m := b.result.Lookup(meshName)
		if m == nil {
			return zygo.SexpNull, fmt.Errorf("mesh: no mesh named %q", meshName)
		}
		return &sexpMesh{mesh: m}, nil
	})

	// -----------------------------------------------------------------------
	// (save mesh "out.stl" :mode :ascii :name "part")
	// -----------------------------------------------------------------------
	env.AddFunction("save", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("save requires a mesh and a path")
		}
		path, err := toString(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("save: path: %w", err)
		}
		m, err := b.meshOf(pa.positional[0], strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("save: %w", err)
		}
		opts := stl.SaveOptions{Mode: stl.Binary}
		if v, ok := pa.kw["mode"]; ok {
			s, err := toKeywordString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("save: mode: %w", err)
			}
			if opts.Mode, err = stl.ParseMode(s); err != nil {
				return zygo.SexpNull, fmt.Errorf("save: %w", err)
			}
		}
		if v, ok := pa.kw["name"]; ok {
			if opts.Name, err = toString(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("save: name: %w", err)
			}
		}
		if path, err = b.resolve(path); err != nil {
			return zygo.SexpNull, fmt.Errorf("save: %w", err)
		}
		if err := b.writes.do(func() error { return stl.WriteFile(path, m, opts) }); err != nil {
			return zygo.SexpNull, fmt.Errorf("save: %w", err)
		}
		b.result.Written = append(b.result.Written, path)
		return &zygo.SexpStr{S: path}, nil
	})
}
