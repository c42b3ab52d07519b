package model

import (
	"path/filepath"
	"strings"
)

// Language identifies the detected source language of a file.
type Language string

const (
	LangPython     Language = "python"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangJava       Language = "java"
	LangGo         Language = "go"
	LangRust       Language = "rust"
	LangC          Language = "c"
	LangCPP        Language = "cpp"
	LangRuby       Language = "ruby"
	LangShell      Language = "shell"
	LangMarkdown   Language = "markdown"
	LangYAML       Language = "yaml"
	LangJSON       Language = "json"
	LangTOML       Language = "toml"
	LangOther      Language = "other"
)

var extensionMap = map[string]Language{
	".py":   LangPython,
	".js":   LangJavaScript,
	".jsx":  LangJavaScript,
	".mjs":  LangJavaScript,
	".ts":   LangTypeScript,
	".tsx":  LangTypeScript,
	".java": LangJava,
	".go":   LangGo,
	".rs":   LangRust,
	".c":    LangC,
	".h":    LangC,
	".cpp":  LangCPP,
	".hpp":  LangCPP,
	".cc":   LangCPP,
	".rb":   LangRuby,
	".sh":   LangShell,
	".bash": LangShell,
	".md":   LangMarkdown,
	".yaml": LangYAML,
	".yml":  LangYAML,
	".json": LangJSON,
	".toml": LangTOML,
}

// DetectLanguage maps a file path to a Language by extension.
// Unknown extensions yield LangOther.
func DetectLanguage(path string) Language {
	ext := strings.ToLower(filepath.Ext(path))
	if lang, ok := extensionMap[ext]; ok {
		return lang
	}
	return LangOther
}
