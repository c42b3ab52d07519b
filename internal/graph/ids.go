package graph

// Node IDs are deterministic composite keys so the same codebase always
// produces the same graph. The query layer accepts partial IDs and resolves
// them against these canonical forms.

// FileNodeID returns the canonical ID for a file node.
func FileNodeID(path string) string {
	return "file:" + path
}

// ClassNodeID returns the canonical ID for a class node.
func ClassNodeID(path, class string) string {
	return "class:" + path + ":" + class
}

// FuncNodeID returns the canonical ID for a top-level function node.
func FuncNodeID(path, fn string) string {
	return "func:" + path + ":" + fn
}

// MethodNodeID returns the canonical ID for a method node. Methods are
// addressed as Class.method to keep same-named methods on different
// classes distinct.
func MethodNodeID(path, class, method string) string {
	return "method:" + path + ":" + class + "." + method
}
