//go:build cgo

package parser

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"codeatlas/internal/errors"
	"codeatlas/internal/model"
)

func init() {
	Register(model.LangPython, pythonAnalyzer{})
}

// pythonAnalyzer is the deep pass for the reference language. It drives an
// explicit visitor over the tree-sitter tree: one callback per construct of
// interest, with the visitor controlling descent into definition bodies.
type pythonAnalyzer struct{}

func (pythonAnalyzer) Analyze(ctx context.Context, path string, source []byte) (*model.FileRecord, error) {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())

	tree, err := p.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, err
	}
	root := tree.RootNode()
	if root == nil || root.HasError() {
		return nil, errors.New(errors.ParseFailure, "source has syntax errors")
	}

	ext := &extractor{source: source, path: path}
	walkTree(root, ext)

	return &model.FileRecord{
		Path:      path,
		Language:  model.LangPython,
		Imports:   ext.imports,
		Functions: ext.functions,
		Classes:   ext.classesOut(),
		Docstring: ext.docstring,
	}, nil
}

// visitor receives one callback per syntactic construct the extraction
// cares about; node kinds not listed here are walked through transparently.
// visitFunction and visitClass return false to stop descent into the
// definition's body.
type visitor interface {
	visitModule(n *sitter.Node)
	visitImport(n *sitter.Node)
	visitImportFrom(n *sitter.Node)
	visitFunction(n *sitter.Node) bool
	visitClass(n *sitter.Node) bool
}

func walkTree(n *sitter.Node, v visitor) {
	switch n.Type() {
	case "module":
		v.visitModule(n)
	case "import_statement":
		v.visitImport(n)
		return
	case "import_from_statement", "future_import_statement":
		v.visitImportFrom(n)
		return
	case "function_definition":
		if !v.visitFunction(n) {
			return
		}
	case "class_definition":
		if !v.visitClass(n) {
			return
		}
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		walkTree(n.Child(i), v)
	}
}

// extractor accumulates symbols in source order. Class bodies are walked by
// visitClass itself so methods land on the enclosing class; function bodies
// are never descended into, which keeps nested defs un-promoted and their
// imports out of the file's import list.
type extractor struct {
	source    []byte
	path      string
	docstring string
	imports   []model.Import
	functions []model.Function
	classes   []*model.Class
	stack     []*model.Class // enclosing classes, innermost last
}

func (e *extractor) classesOut() []model.Class {
	if len(e.classes) == 0 {
		return nil
	}
	out := make([]model.Class, len(e.classes))
	for i, c := range e.classes {
		out[i] = *c
	}
	return out
}

func (e *extractor) visitModule(n *sitter.Node) {
	e.docstring = leadingDocstring(n, e.source)
}

// visitImport handles "import a.b, c as d": one record per target, no
// imported names.
func (e *extractor) visitImport(n *sitter.Node) {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "dotted_name":
			e.imports = append(e.imports, model.Import{Module: nodeText(child, e.source)})
		case "aliased_import":
			imp := model.Import{}
			if name := child.ChildByFieldName("name"); name != nil {
				imp.Module = nodeText(name, e.source)
			}
			if alias := child.ChildByFieldName("alias"); alias != nil {
				imp.Alias = nodeText(alias, e.source)
			}
			e.imports = append(e.imports, imp)
		}
	}
}

// visitImportFrom handles "from X import a, b as c" including relative and
// __future__ forms. Aliased names record the original name, not the alias.
func (e *extractor) visitImportFrom(n *sitter.Node) {
	imp := model.Import{}
	if n.Type() == "future_import_statement" {
		imp.Module = "__future__"
	}
	if mod := n.ChildByFieldName("module_name"); mod != nil {
		if mod.Type() == "relative_import" {
			for i := 0; i < int(mod.ChildCount()); i++ {
				child := mod.Child(i)
				switch child.Type() {
				case "import_prefix":
					imp.Level = strings.Count(nodeText(child, e.source), ".")
				case "dotted_name":
					imp.Module = nodeText(child, e.source)
				}
			}
		} else {
			imp.Module = nodeText(mod, e.source)
		}
	}

	// imported names follow the "import" keyword; the module's own
	// dotted_name sits before it and must not be collected
	seenImport := false
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.Type() == "import" {
			seenImport = true
			continue
		}
		if !seenImport {
			continue
		}
		switch child.Type() {
		case "dotted_name":
			imp.Names = append(imp.Names, nodeText(child, e.source))
		case "aliased_import":
			if name := child.ChildByFieldName("name"); name != nil {
				imp.Names = append(imp.Names, nodeText(name, e.source))
			}
		case "wildcard_import":
			imp.Names = append(imp.Names, "*")
		}
	}

	e.imports = append(e.imports, imp)
}

func (e *extractor) visitFunction(n *sitter.Node) bool {
	fn := model.Function{
		Name:       fieldText(n, "name", e.source),
		FilePath:   e.path,
		LineStart:  int(n.StartPoint().Row) + 1,
		LineEnd:    int(n.EndPoint().Row) + 1,
		Parameters: e.parameters(n.ChildByFieldName("parameters")),
		ReturnType: fieldText(n, "return_type", e.source),
		Decorators: decoratorNames(n, e.source),
		IsAsync:    isAsync(n),
	}

	body := n.ChildByFieldName("body")
	fn.Docstring = leadingDocstring(body, e.source)
	fn.Calls = collectCalls(body, e.source)

	if cls := e.enclosingClass(); cls != nil {
		fn.IsMethod = true
		fn.ClassName = cls.Name
		cls.Methods = append(cls.Methods, fn)
	} else {
		e.functions = append(e.functions, fn)
	}
	return false
}

func (e *extractor) visitClass(n *sitter.Node) bool {
	cls := &model.Class{
		Name:       fieldText(n, "name", e.source),
		FilePath:   e.path,
		LineStart:  int(n.StartPoint().Row) + 1,
		LineEnd:    int(n.EndPoint().Row) + 1,
		Decorators: decoratorNames(n, e.source),
	}

	// superclasses list bases as written; keyword arguments such as
	// metaclass=... are not bases
	if args := n.ChildByFieldName("superclasses"); args != nil {
		for i := 0; i < int(args.NamedChildCount()); i++ {
			base := args.NamedChild(i)
			if base.Type() == "keyword_argument" || base.Type() == "comment" {
				continue
			}
			cls.Bases = append(cls.Bases, nodeText(base, e.source))
		}
	}

	body := n.ChildByFieldName("body")
	cls.Docstring = leadingDocstring(body, e.source)
	cls.Attributes = classAttributes(body, e.source)

	e.classes = append(e.classes, cls)
	e.stack = append(e.stack, cls)
	if body != nil {
		for i := 0; i < int(body.ChildCount()); i++ {
			walkTree(body.Child(i), e)
		}
	}
	e.stack = e.stack[:len(e.stack)-1]
	return false
}

func (e *extractor) enclosingClass() *model.Class {
	if len(e.stack) == 0 {
		return nil
	}
	return e.stack[len(e.stack)-1]
}

// parameters keeps every parameter in declaration order with its written
// annotation and default.
func (e *extractor) parameters(params *sitter.Node) []model.Parameter {
	if params == nil {
		return nil
	}
	var out []model.Parameter
	for i := 0; i < int(params.NamedChildCount()); i++ {
		p := params.NamedChild(i)
		switch p.Type() {
		case "identifier":
			out = append(out, model.Parameter{Name: nodeText(p, e.source)})
		case "typed_parameter":
			param := model.Parameter{Type: fieldText(p, "type", e.source)}
			if p.NamedChildCount() > 0 {
				param.Name = nodeText(p.NamedChild(0), e.source)
			}
			out = append(out, param)
		case "default_parameter":
			out = append(out, model.Parameter{
				Name:    fieldText(p, "name", e.source),
				Default: fieldText(p, "value", e.source),
			})
		case "typed_default_parameter":
			out = append(out, model.Parameter{
				Name:    fieldText(p, "name", e.source),
				Type:    fieldText(p, "type", e.source),
				Default: fieldText(p, "value", e.source),
			})
		case "list_splat_pattern", "dictionary_splat_pattern":
			out = append(out, model.Parameter{Name: nodeText(p, e.source)})
		}
	}
	return out
}

func nodeText(n *sitter.Node, source []byte) string {
	return string(source[n.StartByte():n.EndByte()])
}

func fieldText(n *sitter.Node, field string, source []byte) string {
	child := n.ChildByFieldName(field)
	if child == nil {
		return ""
	}
	return nodeText(child, source)
}

// isAsync checks for the async keyword before def.
func isAsync(n *sitter.Node) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		switch n.Child(i).Type() {
		case "async":
			return true
		case "def":
			return false
		}
	}
	return false
}

// decoratorNames reads decorators off a wrapping decorated_definition,
// keeping the full expression as written minus the leading @.
func decoratorNames(def *sitter.Node, source []byte) []string {
	parent := def.Parent()
	if parent == nil || parent.Type() != "decorated_definition" {
		return nil
	}
	var names []string
	for i := 0; i < int(parent.ChildCount()); i++ {
		child := parent.Child(i)
		if child.Type() != "decorator" {
			continue
		}
		text := strings.TrimSpace(strings.TrimPrefix(nodeText(child, source), "@"))
		names = append(names, text)
	}
	return names
}

// collectCalls gathers callee names from a subtree in first-seen order,
// deduplicated. Identifier callees contribute their name, attribute callees
// their final segment; other callee shapes are skipped.
func collectCalls(body *sitter.Node, source []byte) []string {
	if body == nil {
		return nil
	}
	var calls []string
	seen := map[string]bool{}
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n.Type() == "call" {
			if name := calleeName(n, source); name != "" && !seen[name] {
				seen[name] = true
				calls = append(calls, name)
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(body)
	return calls
}

func calleeName(call *sitter.Node, source []byte) string {
	fn := call.ChildByFieldName("function")
	if fn == nil {
		return ""
	}
	switch fn.Type() {
	case "identifier":
		return nodeText(fn, source)
	case "attribute":
		return fieldText(fn, "attribute", source)
	}
	return ""
}

// leadingDocstring returns the cleaned string literal opening a module or
// block, skipping comments. Any other leading statement means no docstring.
func leadingDocstring(body *sitter.Node, source []byte) string {
	if body == nil {
		return ""
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		stmt := body.NamedChild(i)
		if stmt.Type() == "comment" {
			continue
		}
		if stmt.Type() != "expression_statement" || stmt.NamedChildCount() == 0 {
			return ""
		}
		lit := stmt.NamedChild(0)
		if lit.Type() != "string" {
			return ""
		}
		return cleanDocstring(nodeText(lit, source))
	}
	return ""
}

// classAttributes lists names assigned directly in the class body, plain
// and annotated forms alike. Chained assignments contribute each target.
func classAttributes(body *sitter.Node, source []byte) []string {
	if body == nil {
		return nil
	}
	var attrs []string
	for i := 0; i < int(body.NamedChildCount()); i++ {
		stmt := body.NamedChild(i)
		if stmt.Type() != "expression_statement" {
			continue
		}
		for j := 0; j < int(stmt.NamedChildCount()); j++ {
			child := stmt.NamedChild(j)
			if child.Type() == "assignment" {
				attrs = appendAssignTargets(attrs, child, source)
			}
		}
	}
	return attrs
}

func appendAssignTargets(attrs []string, assign *sitter.Node, source []byte) []string {
	if left := assign.ChildByFieldName("left"); left != nil && left.Type() == "identifier" {
		attrs = append(attrs, nodeText(left, source))
	}
	if right := assign.ChildByFieldName("right"); right != nil && right.Type() == "assignment" {
		attrs = appendAssignTargets(attrs, right, source)
	}
	return attrs
}

// cleanDocstring strips string prefixes and quotes, then dedents the body
// the way Python presents docstrings.
func cleanDocstring(raw string) string {
	s := raw
	for len(s) > 0 {
		switch s[0] | 0x20 {
		case 'r', 'b', 'u', 'f':
			s = s[1:]
			continue
		}
		break
	}
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(s, q) && strings.HasSuffix(s, q) && len(s) >= 2*len(q) {
			s = s[len(q) : len(s)-len(q)]
			break
		}
	}
	return dedent(s)
}

// dedent removes the common indentation of continuation lines and trims
// surrounding blank space.
func dedent(s string) string {
	lines := strings.Split(s, "\n")
	indent := -1
	for _, line := range lines[1:] {
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" {
			continue
		}
		n := len(line) - len(trimmed)
		if indent < 0 || n < indent {
			indent = n
		}
	}
	for i := 1; indent > 0 && i < len(lines); i++ {
		if len(lines[i]) >= indent {
			lines[i] = lines[i][indent:]
		} else {
			lines[i] = strings.TrimLeft(lines[i], " \t")
		}
	}
	lines[0] = strings.TrimLeft(lines[0], " \t")
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
