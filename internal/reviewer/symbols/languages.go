package symbols

import (
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/kotlin"
	"github.com/smacker/go-tree-sitter/php"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/scala"
	"github.com/smacker/go-tree-sitter/swift"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Language is a source language with a grammar
type Language string

const (
	LanguageGo         Language = "go"
	LanguageJavaScript Language = "javascript"
	LanguageTypeScript Language = "typescript"
	LanguageTSX        Language = "tsx"
	LanguagePython     Language = "python"
	LanguageJava       Language = "java"
	LanguageKotlin     Language = "kotlin"
	LanguageC          Language = "c"
	LanguageCpp        Language = "cpp"
	LanguageCSharp     Language = "csharp"
	LanguagePHP        Language = "php"
	LanguageRuby       Language = "ruby"
	LanguageRust       Language = "rust"
	LanguageScala      Language = "scala"
	LanguageSwift      Language = "swift"
)

var grammars = map[Language]*sitter.Language{
	LanguageGo:         golang.GetLanguage(),
	LanguageJavaScript: javascript.GetLanguage(),
	LanguageTypeScript: typescript.GetLanguage(),
	LanguageTSX:        tsx.GetLanguage(),
	LanguagePython:     python.GetLanguage(),
	LanguageJava:       java.GetLanguage(),
	LanguageKotlin:     kotlin.GetLanguage(),
	LanguageC:          c.GetLanguage(),
	LanguageCpp:        cpp.GetLanguage(),
	LanguageCSharp:     csharp.GetLanguage(),
	LanguagePHP:        php.GetLanguage(),
	LanguageRuby:       ruby.GetLanguage(),
	LanguageRust:       rust.GetLanguage(),
	LanguageScala:      scala.GetLanguage(),
	LanguageSwift:      swift.GetLanguage(),
}

var extensions = map[string]Language{
	".go":    LanguageGo,
	".js":    LanguageJavaScript,
	".mjs":   LanguageJavaScript,
	".cjs":   LanguageJavaScript,
	".jsx":   LanguageTSX,
	".ts":    LanguageTypeScript,
	".tsx":   LanguageTSX,
	".py":    LanguagePython,
	".pyi":   LanguagePython,
	".java":  LanguageJava,
	".kt":    LanguageKotlin,
	".kts":   LanguageKotlin,
	".c":     LanguageC,
	".h":     LanguageC,
	".cpp":   LanguageCpp,
	".cc":    LanguageCpp,
	".cxx":   LanguageCpp,
	".hpp":   LanguageCpp,
	".cs":    LanguageCSharp,
	".php":   LanguagePHP,
	".rb":    LanguageRuby,
	".rake":  LanguageRuby,
	".rs":    LanguageRust,
	".scala": LanguageScala,
	".swift": LanguageSwift,
}

// Detect returns the language of a path, false for files without a grammar.
func Detect(path string) (Language, bool) {
	l, ok := extensions[strings.ToLower(filepath.Ext(path))]
	return l, ok
}

// symbolKinds maps declaration node types to a short kind label
var symbolKinds = map[string]string{
	// go
	"function_declaration": "func",
	"method_declaration":   "method",
	"type_spec":            "type",

	// python, c, cpp, php
	"function_definition": "func",
	"class_definition":    "class",

	// java, kotlin, csharp, js, ts
	"class_declaration":       "class",
	"interface_declaration":   "interface",
	"enum_declaration":        "enum",
	"constructor_declaration": "constructor",
	"method_definition":       "method",
	"function":                "func",

	// rust
	"function_item": "func",
	"struct_item":   "type",
	"enum_item":     "enum",
	"trait_item":    "interface",
	"impl_item":     "impl",

	// ruby
	"method":           "method",
	"singleton_method": "method",
	"class":            "class",
	"module":           "module",
}
