package googletasks

import (
	"fmt"
	"strings"
	"time"

	"taskmaster/internal/service"
)

const trailerPrefix = "[taskmaster "

// Metadata is the task data Google Tasks has no field for.
type Metadata struct {
	Priority service.Priority
	Created  time.Time
}

// EncodeNotes joins a description and its metadata trailer into task notes.
func EncodeNotes(description string, meta Metadata) string {
	var fields []string
	if meta.Priority != "" {
		fields = append(fields, "priority="+string(meta.Priority))
	}
	if !meta.Created.IsZero() {
		fields = append(fields, "created="+meta.Created.UTC().Format(time.RFC3339))
	}
	if len(fields) == 0 {
		return description
	}
	trailer := fmt.Sprintf("%s%s]", trailerPrefix, strings.Join(fields, " "))
	if description == "" {
		return trailer
	}
	return description + "\n\n" + trailer
}

// DecodeNotes splits task notes into the description and the metadata trailer.
// Notes without a trailer are returned unchanged with zero metadata.
func DecodeNotes(notes string) (string, Metadata) {
	var meta Metadata

	body, last := "", notes
	if i := strings.LastIndex(notes, "\n"); i >= 0 {
		body, last = notes[:i], notes[i+1:]
	}
	last = strings.TrimSpace(last)
	if !strings.HasPrefix(last, trailerPrefix) || !strings.HasSuffix(last, "]") {
		return notes, meta
	}

	inner := strings.TrimSuffix(strings.TrimPrefix(last, trailerPrefix), "]")
	for _, field := range strings.Fields(inner) {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		switch key {
		case "priority":
			if p, err := service.ParsePriority(value); err == nil {
				meta.Priority = p
			}
		case "created":
			if t, err := time.Parse(time.RFC3339, value); err == nil {
				meta.Created = t
			}
		}
	}
	// EncodeNotes separates the trailer with a blank line; drop only that.
	return strings.TrimSuffix(body, "\n"), meta
}
