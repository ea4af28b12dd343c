package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/vburojevic/pricewatch/internal/domain"
	"github.com/vburojevic/pricewatch/internal/session"
)

// SchemaCmd outputs JSON Schema for pricewatch output types
type SchemaCmd struct {
	Type []string `short:"t" help:"Output types to include (status,log,stats,error,cutoff_reached,sample,listening,version). Default: all"`
}

type schema = map[string]interface{}

func schemaBuilders() map[string]func() schema {
	return map[string]func() schema{
		"status":         statusSchema,
		"log":            logSchema,
		"stats":          statsSchema,
		"error":          errorSchema,
		"cutoff_reached": cutoffSchema,
		"sample":         sampleSchema,
		"listening":      listeningSchema,
		"version":        versionSchema,
	}
}

// Run executes the schema command
func (c *SchemaCmd) Run(globals *Globals) error {
	builders := schemaBuilders()

	types := lo.Map(c.Type, func(t string, _ int) string { return strings.ToLower(strings.TrimSpace(t)) })
	if len(types) == 0 {
		types = lo.Keys(builders)
		sort.Strings(types)
	}
	if unknown := lo.Reject(types, func(t string, _ int) bool { _, ok := builders[t]; return ok }); len(unknown) > 0 {
		return outputErrorCommon(globals, "INVALID_FLAGS", fmt.Sprintf("unknown schema type(s): %s", strings.Join(unknown, ", ")),
			"run 'pricewatch schema' to list every type")
	}

	defs := schema{}
	for _, t := range types {
		defs[t] = builders[t]()
	}
	out := schema{
		"$schema":     "http://json-schema.org/draft-07/schema#",
		"title":       "pricewatch Output Schemas",
		"description": "JSON Schema definitions for all pricewatch NDJSON output types",
		"definitions": defs,
	}

	encoder := json.NewEncoder(globals.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

func prop(typ, description string) schema {
	return schema{"type": typ, "description": description}
}

func constProp(value string) schema {
	return schema{"type": "string", "const": value}
}

func enumProp(description string, values ...string) schema {
	return schema{"type": "string", "enum": values, "description": description}
}

func record(title, description string, props schema, required ...string) schema {
	props["schemaVersion"] = prop("integer", "Record schema version")
	return schema{
		"type":        "object",
		"title":       title,
		"description": description,
		"properties":  props,
		"required":    append([]string{"type", "schemaVersion"}, required...),
	}
}

func timestampProp() schema {
	return schema{"type": "string", "format": "date-time", "description": "RFC3339 timestamp"}
}

func statuses() []string {
	return []string{
		string(domain.StatusIdle), string(domain.StatusFetching), string(domain.StatusWatching),
		string(domain.StatusStopping), string(domain.StatusStopped), string(domain.StatusFailed),
	}
}

func statusSchema() schema {
	return record("Status", "Session status changed; message is the operator status line", schema{
		"type":       constProp("status"),
		"session_id": prop("string", "Session identifier"),
		"timestamp":  timestampProp(),
		"status":     enumProp("Session status", statuses()...),
		"message":    prop("string", "Status line"),
	}, "timestamp", "status")
}

func logSchema() schema {
	return record("Log Line", "One line of the session activity log", schema{
		"type":       constProp("log"),
		"session_id": prop("string", "Session identifier"),
		"timestamp":  timestampProp(),
		"level":      enumProp("Severity", string(domain.LevelInfo), string(domain.LevelWarn), string(domain.LevelError)),
		"outcome": enumProp("Lifecycle step or cycle result",
			string(domain.OutcomeSessionStart), string(domain.OutcomeSessionEnd), string(domain.OutcomeStartValue),
			string(domain.OutcomeDrop), string(domain.OutcomeRise), string(domain.OutcomeNoChange),
			string(domain.OutcomeFetchFailed), string(domain.OutcomeInitialFetchFailed), string(domain.OutcomeNotifyFailed)),
		"message": prop("string", "Log text"),
		"check":   prop("integer", "Check number the line refers to"),
		"change": schema{
			"type":        "object",
			"description": "Price movement on drop and rise lines",
			"properties": schema{
				"old":   prop("number", "Previous price"),
				"new":   prop("number", "New price"),
				"delta": prop("number", "Absolute difference"),
			},
		},
		"snapshot": schema{"$ref": "#/definitions/stats/properties/snapshot"},
	}, "timestamp", "level", "message")
}

func statsSchema() schema {
	return record("Stats", "Latest session counters and values", schema{
		"type":       constProp("stats"),
		"session_id": prop("string", "Session identifier"),
		"timestamp":  timestampProp(),
		"status":     enumProp("Session status", statuses()...),
		"check":      prop("integer", "Checks performed so far"),
		"snapshot": schema{
			"type":        "object",
			"description": "Consistent view of the session",
			"properties": schema{
				"session_id":       prop("string", "Session identifier"),
				"target":           prop("string", "Product page URL"),
				"recipient":        prop("string", "Alert recipient"),
				"interval_seconds": prop("integer", "Time between checks"),
				"status":           enumProp("Session status", statuses()...),
				"start_value":      prop("number", "First observed price"),
				"last_value":       prop("number", "Most recent price"),
				"check_count":      prop("integer", "Checks performed after the first sample"),
				"drops":            prop("integer", "Drop alerts"),
				"rises":            prop("integer", "Rise alerts"),
				"failures":         prop("integer", "Failed fetches"),
				"started_at":       timestampProp(),
				"ended_at":         timestampProp(),
				"error":            prop("string", "Why the session ended abnormally"),
			},
		},
	}, "timestamp", "snapshot")
}

func errorSchema() schema {
	return record("Error", "Error reported by pricewatch", schema{
		"type": constProp("error"),
		"code": enumProp("Error code",
			session.CodeInvalidTarget, session.CodeInvalidRecipient, session.CodeInvalidInterval,
			"INVALID_FLAGS", "INVALID_PATTERN", "INVALID_EXCLUDE_PATTERN", "INVALID_WHERE", "INVALID_CONFIG",
			"ALREADY_RUNNING", "START_FAILED", "INITIAL_FETCH_FAILED", "FETCH_FAILED", "SESSION_FAILED",
			"OUTPUT_FAILED", "SERVE_FAILED"),
		"message": prop("string", "Human-readable error description"),
		"hint":    prop("string", "Suggested fix"),
	}, "code", "message")
}

func cutoffSchema() schema {
	return record("Cutoff Reached", "The session was stopped by --max-checks", schema{
		"type":       constProp("cutoff_reached"),
		"session_id": prop("string", "Session identifier"),
		"reason":     constProp("max_checks"),
		"checks":     prop("integer", "Checks performed when the cutoff fired"),
	}, "reason", "checks")
}

func sampleSchema() schema {
	return record("Sample", "Result of pricewatch check", schema{
		"type":      constProp("sample"),
		"timestamp": timestampProp(),
		"target":    prop("string", "Product page URL"),
		"price":     prop("number", "Parsed price"),
		"display":   prop("string", "Price with currency symbol"),
		"available": prop("boolean", "Whether a price was found"),
		"reason":    prop("string", "Why no price was found"),
	}, "timestamp", "target", "available")
}

func listeningSchema() schema {
	return record("Listening", "pricewatch serve is accepting connections", schema{
		"type":   constProp("listening"),
		"addr":   prop("string", "Bound address"),
		"events": prop("string", "Websocket URL of the event stream"),
	}, "addr")
}

func versionSchema() schema {
	return record("Version", "Build information", schema{
		"type":       constProp("version"),
		"version":    prop("string", "Release version"),
		"commit":     prop("string", "Source commit"),
		"go_version": prop("string", "Go toolchain"),
		"go_install": prop("string", "Upgrade command"),
	}, "version")
}
