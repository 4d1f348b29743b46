package lang

import (
	"path/filepath"
	"strings"
)

// Language represents a supported UI-description source language.
type Language string

const (
	TypeScript Language = "typescript"
	TSX        Language = "tsx"
	JavaScript Language = "javascript"
)

// AllLanguages returns all supported languages.
func AllLanguages() []Language {
	return []Language{TypeScript, TSX, JavaScript}
}

// LanguageSpec defines the tree-sitter node kinds the designer relies on
// when evaluating widget-construction calls in a language.
type LanguageSpec struct {
	Language       Language
	FileExtensions []string

	// CallNodeTypes are call expression kinds (e.g. "call_expression").
	CallNodeTypes []string
	// MemberNodeTypes are property access kinds (a.b).
	MemberNodeTypes []string
	// FunctionNodeTypes are function literal kinds usable as builders or handlers.
	FunctionNodeTypes []string
	// StringNodeTypes are quoted string literal kinds.
	StringNodeTypes []string
	// TemplateNodeTypes are template literal kinds (`...`).
	TemplateNodeTypes []string
	// StatementTerminators are tokens ending an expression statement.
	StatementTerminators []string
}

// registry maps file extensions to language specs.
var registry = map[string]*LanguageSpec{}

// Register adds a LanguageSpec to the global registry.
func Register(spec *LanguageSpec) {
	for _, ext := range spec.FileExtensions {
		registry[ext] = spec
	}
}

// ForExtension returns the LanguageSpec for a file extension (e.g. ".ts").
func ForExtension(ext string) *LanguageSpec {
	return registry[strings.ToLower(ext)]
}

// ForLanguage returns the LanguageSpec for a language.
func ForLanguage(lang Language) *LanguageSpec {
	for _, spec := range registry {
		if spec.Language == lang {
			return spec
		}
	}
	return nil
}

// LanguageForExtension returns the Language for a file extension.
func LanguageForExtension(ext string) (Language, bool) {
	spec := ForExtension(ext)
	if spec == nil {
		return "", false
	}
	return spec.Language, true
}

// LanguageForPath returns the Language for a file path by its extension.
func LanguageForPath(path string) (Language, bool) {
	return LanguageForExtension(filepath.Ext(path))
}

// IsCall reports whether kind is a call expression kind.
func (s *LanguageSpec) IsCall(kind string) bool { return contains(s.CallNodeTypes, kind) }

// IsMember reports whether kind is a member access kind.
func (s *LanguageSpec) IsMember(kind string) bool { return contains(s.MemberNodeTypes, kind) }

// IsFunction reports whether kind is a function literal kind.
func (s *LanguageSpec) IsFunction(kind string) bool { return contains(s.FunctionNodeTypes, kind) }

// IsString reports whether kind is a quoted string literal kind.
func (s *LanguageSpec) IsString(kind string) bool { return contains(s.StringNodeTypes, kind) }

// IsTemplate reports whether kind is a template literal kind.
func (s *LanguageSpec) IsTemplate(kind string) bool { return contains(s.TemplateNodeTypes, kind) }

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
