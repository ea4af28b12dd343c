package cli

// validateFlags checks flag combinations shared by the streaming commands.
func validateFlags(globals *Globals, maxChecks int, dedupe, dedupeWindow bool) error {
	if globals != nil && globals.Format == "text" && globals.Quiet {
		return outputErrorCommon(globals, "INVALID_FLAGS", "--quiet is only supported with ndjson output", "switch to --format ndjson or drop --quiet")
	}
	if maxChecks < 0 {
		return outputErrorCommon(globals, "INVALID_FLAGS", "--max-checks cannot be negative", "use 0 for no limit")
	}
	if dedupeWindow && !dedupe {
		return outputErrorCommon(globals, "INVALID_FLAGS", "--dedupe-window requires --dedupe", "add --dedupe or drop --dedupe-window")
	}
	return nil
}
