package lang

func init() {
	Register(&LanguageSpec{
		Language:       TypeScript,
		FileExtensions: []string{".ts", ".mts", ".cts"},
		CallNodeTypes:  []string{"call_expression"},
		MemberNodeTypes: []string{
			"member_expression",
		},
		FunctionNodeTypes: []string{
			"arrow_function",
			"function_expression",
			"function",
			"generator_function",
		},
		StringNodeTypes:      []string{"string"},
		TemplateNodeTypes:    []string{"template_string"},
		StatementTerminators: []string{";"},
	})
}
