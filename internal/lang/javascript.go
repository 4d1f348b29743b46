package lang

func init() {
	Register(&LanguageSpec{
		Language:        JavaScript,
		FileExtensions:  []string{".js", ".jsx", ".mjs", ".cjs"},
		CallNodeTypes:   []string{"call_expression"},
		MemberNodeTypes: []string{"member_expression"},
		// "function" is the pre-0.21 grammar name for function_expression.
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
