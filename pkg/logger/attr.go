package logger

import "log/slog"

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// ProcessID records a checkout attempt correlation id.
func ProcessID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("process_id", id)
}

// PlanID records the plan a checkout attempt or webhook event refers to.
func PlanID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("plan_id", id)
}

// Provider records the billing provider name.
func Provider(name string) slog.Attr {
	if name == "" {
		return slog.Attr{}
	}
	return slog.String("provider", name)
}

// EventID records a webhook event identifier.
func EventID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("event_id", id)
}
