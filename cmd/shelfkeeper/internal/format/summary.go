package format

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cast"

	srv "github.com/shelfkeeper/shelfkeeper/pkg/server"
)

// PrintSuccessSummary prints a standardized success message
// Examples:
//   - "✓ Started scan job 0f5c2a9e"
//   - "✓ Cancel requested"
func (f *formatter) PrintSuccessSummary(operation, subject string, data map[string]any) error {
	if f.mode == ModeJSON {
		out := map[string]any{
			"success":   true,
			"operation": operation,
		}
		for k, v := range data {
			out[k] = v
		}
		return f.PrintJSON(out)
	}

	if f.quiet {
		if subject != "" {
			_, err := fmt.Fprintln(f.stdout, subject)
			return err
		}
		return nil
	}

	message := "✓ " + capitalize(operation)
	if subject != "" {
		message += " " + subject
	}
	if details := describe(data); details != "" {
		message += "  " + details
	}

	if f.color {
		_, err := color.New(color.FgGreen).Fprintln(f.stdout, message)
		return err
	}
	_, err := fmt.Fprintln(f.stdout, message)
	return err
}

// PrintTotalFailureSummary prints total failure with error and suggestions.
// It returns err so commands can `return formatter.PrintTotalFailureSummary(...)`
// and still exit non-zero.
// Example output:
//
//	✗ Failed to start job: a job is already running (JOB_ALREADY_RUNNING)
//
//	💡 Suggestions:
//	  → Follow the running job:  shelfkeeper job watch
//	  → Cancel it first:         shelfkeeper job cancel
func (f *formatter) PrintTotalFailureSummary(operation string, err error, errorCode string) error {
	if f.quiet {
		return err
	}

	if f.mode == ModeJSON {
		if printErr := f.PrintJSON(map[string]any{
			"success":    false,
			"operation":  operation,
			"error":      err.Error(),
			"error_code": errorCode,
		}); printErr != nil {
			return printErr
		}
		return err
	}

	var sb strings.Builder

	errorMsg := fmt.Sprintf("✗ Failed to %s: %v", operation, err)
	if f.color {
		sb.WriteString(color.RedString("%s\n", errorMsg))
	} else {
		sb.WriteString(errorMsg + "\n")
	}

	suggestions := GetSuggestions(errorCode, operation)
	if len(suggestions) == 0 && strings.HasPrefix(errorCode, "SERVER_") {
		suggestions = srv.Suggestions(err)
	}
	if len(suggestions) > 0 {
		sb.WriteString("\n💡 Suggestions:\n")
		for _, s := range suggestions {
			sb.WriteString(fmt.Sprintf("  → %s\n", s))
		}
	}

	if _, writeErr := f.stderr.Write([]byte(sb.String())); writeErr != nil {
		return writeErr
	}
	return err
}

var suggestionGenerators = map[string]func(string) []string{
	"JOB_ALREADY_RUNNING": func(string) []string {
		return []string{
			"Follow the running job:    shelfkeeper job watch",
			"Cancel it first:           shelfkeeper job cancel",
		}
	},
	"JOB_NOT_RUNNING": func(string) []string {
		return []string{
			"Check the current state:   shelfkeeper job status",
		}
	},
	"JOB_SPAWN_FAILED": func(string) []string {
		return []string{
			"Check the server log for the worker start error",
			"Verify jobs.worker_path on the server",
		}
	},
	"JOB_UNKNOWN_KIND": func(string) []string {
		return []string{
			"Valid kinds: scan, update, modify",
		}
	},
	"SHUTTING_DOWN": func(string) []string {
		return []string{
			"Wait for the server to restart and retry",
		}
	},
	"UNAUTHORIZED": func(string) []string {
		return []string{
			"Pass a token:              shelfkeeper job status --client.token <token>",
			"Or set SHELFKEEPER_CLIENT_TOKEN",
		}
	},
	"FORBIDDEN": func(string) []string {
		return []string{
			"Only the admin user may start or cancel jobs",
		}
	},
	"SERVER_UNREACHABLE": func(string) []string {
		return []string{
			"Check that the server is running:  shelfkeeper server start",
			"Point at it:               --client.server http://host:8080",
		}
	},
}

// GetSuggestions returns actionable hints based on error code and operation.
func GetSuggestions(errorCode, operation string) []string {
	if generator, ok := suggestionGenerators[errorCode]; ok {
		return generator(operation)
	}
	return nil
}

func describe(data map[string]any) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+cast.ToString(data[k]))
	}
	return strings.Join(parts, " ")
}

func capitalize(s string) string {
	if len(s) == 0 {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
