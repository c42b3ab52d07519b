package graph

import (
	"strings"

	"codeatlas/internal/model"
)

// Build constructs the dependency graph for an analyzed codebase. Nodes are
// created for every file before any edge is resolved, so imports and
// inheritance can reference files that appear later in discovery order.
func Build(idx *model.CodebaseIndex) *Graph {
	g := New()
	modules := buildModuleIndex(idx)

	for i := range idx.Files {
		addFileNodes(g, &idx.Files[i])
	}
	for i := range idx.Files {
		f := &idx.Files[i]
		addStructureEdges(g, f, idx)
		addImportEdges(g, f, modules)
	}
	return g
}

// buildModuleIndex maps dotted python module paths to file paths, e.g.
// "pkg/models/codebase.py" → "pkg.models.codebase" and
// "pkg/models/__init__.py" → "pkg.models". On collisions the later file in
// discovery order wins.
func buildModuleIndex(idx *model.CodebaseIndex) map[string]string {
	modules := make(map[string]string)
	for i := range idx.Files {
		f := &idx.Files[i]
		if f.Language != model.LangPython {
			continue
		}
		parts := strings.Split(f.Path, "/")
		if last := parts[len(parts)-1]; last == "__init__.py" {
			parts = parts[:len(parts)-1]
		} else {
			parts[len(parts)-1] = strings.TrimSuffix(last, ".py")
		}
		if len(parts) == 0 {
			continue
		}
		modules[strings.Join(parts, ".")] = f.Path
	}
	return modules
}

func addFileNodes(g *Graph, f *model.FileRecord) {
	fileID := FileNodeID(f.Path)
	g.AddNode(&Node{
		ID:       fileID,
		Kind:     KindFile,
		Name:     f.Path,
		FilePath: f.Path,
		Metadata: map[string]interface{}{
			"language": string(f.Language),
			"lines":    f.LineCount,
		},
	})

	for ci := range f.Classes {
		cls := &f.Classes[ci]
		g.AddNode(&Node{
			ID:       ClassNodeID(f.Path, cls.Name),
			Kind:     KindClass,
			Name:     cls.Name,
			FilePath: f.Path,
			Metadata: map[string]interface{}{
				"bases":     cls.Bases,
				"lineStart": cls.LineStart,
			},
		})
		for mi := range cls.Methods {
			m := &cls.Methods[mi]
			g.AddNode(&Node{
				ID:       MethodNodeID(f.Path, cls.Name, m.Name),
				Kind:     KindFunction,
				Name:     cls.Name + "." + m.Name,
				FilePath: f.Path,
				Metadata: map[string]interface{}{
					"isMethod":  true,
					"lineStart": m.LineStart,
				},
			})
		}
	}

	for fi := range f.Functions {
		fn := &f.Functions[fi]
		g.AddNode(&Node{
			ID:       FuncNodeID(f.Path, fn.Name),
			Kind:     KindFunction,
			Name:     fn.Name,
			FilePath: f.Path,
			Metadata: map[string]interface{}{
				"lineStart": fn.LineStart,
			},
		})
	}
}

func addStructureEdges(g *Graph, f *model.FileRecord, idx *model.CodebaseIndex) {
	fileID := FileNodeID(f.Path)
	for ci := range f.Classes {
		cls := &f.Classes[ci]
		clsID := ClassNodeID(f.Path, cls.Name)
		g.AddEdge(&Edge{Source: fileID, Target: clsID, Relation: RelContains})
		for _, base := range cls.Bases {
			addInheritanceEdge(g, clsID, base, idx)
		}
		for mi := range cls.Methods {
			g.AddEdge(&Edge{
				Source:   clsID,
				Target:   MethodNodeID(f.Path, cls.Name, cls.Methods[mi].Name),
				Relation: RelContains,
			})
		}
	}
	for fi := range f.Functions {
		g.AddEdge(&Edge{
			Source:   fileID,
			Target:   FuncNodeID(f.Path, f.Functions[fi].Name),
			Relation: RelContains,
		})
	}
}

func addImportEdges(g *Graph, f *model.FileRecord, modules map[string]string) {
	fileID := FileNodeID(f.Path)
	for i := range f.Imports {
		imp := &f.Imports[i]
		target, ok := resolveImport(imp, f.Path, modules)
		if !ok {
			continue
		}
		targetID := FileNodeID(target)
		if !g.HasNode(targetID) {
			continue
		}
		g.AddEdge(&Edge{
			Source:   fileID,
			Target:   targetID,
			Relation: RelImports,
			Metadata: map[string]interface{}{"names": imp.Names},
		})
	}
}

// resolveImport maps an import statement to a repository file, or reports
// that the target lives outside the repository. Absolute imports look up the
// stated module path directly. Relative imports start from the importing
// file's package, ascend level−1 segments, then append the stated path.
func resolveImport(imp *model.Import, sourcePath string, modules map[string]string) (string, bool) {
	var candidate string
	if imp.Level > 0 {
		parts := strings.Split(sourcePath, "/")
		parts = parts[:len(parts)-1]
		for i := 0; i < imp.Level-1; i++ {
			if len(parts) > 0 {
				parts = parts[:len(parts)-1]
			}
		}
		if imp.Module != "" {
			parts = append(parts, strings.Split(imp.Module, ".")...)
		}
		candidate = strings.Join(parts, ".")
	} else {
		candidate = imp.Module
	}
	path, ok := modules[candidate]
	return path, ok
}

// addInheritanceEdge links a class to its base by simple-name search across
// the whole codebase. The first class whose name equals the base's final
// dotted segment wins, in file-then-declaration order; unresolved bases are
// skipped silently.
func addInheritanceEdge(g *Graph, clsID, base string, idx *model.CodebaseIndex) {
	simple := base
	if i := strings.LastIndex(base, "."); i >= 0 {
		simple = base[i+1:]
	}
	for fi := range idx.Files {
		f := &idx.Files[fi]
		for ci := range f.Classes {
			if f.Classes[ci].Name != simple {
				continue
			}
			if targetID := ClassNodeID(f.Path, simple); g.HasNode(targetID) {
				g.AddEdge(&Edge{Source: clsID, Target: targetID, Relation: RelInherits})
			}
			return
		}
	}
}
