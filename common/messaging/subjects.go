package messaging

import "strings"

// Subjects follow {product}.{component}.{event}.
const (
	// SubjectIngestCompleted carries one BatchCompleted notice per committed batch.
	SubjectIngestCompleted = "pmap.ingest.completed"

	// SubjectIngestDLQPrefix prefixes dead-letter subjects; the failure
	// reason is appended as the final token.
	SubjectIngestDLQPrefix = "pmap.ingest.dlq"

	// SubjectIngestDLQAll matches every dead-letter subject.
	SubjectIngestDLQAll = SubjectIngestDLQPrefix + ".>"
)

// Header keys set on published messages.
const (
	HeaderIngestID  = "Pmap-Ingest-Id"
	HeaderConnector = "Pmap-Connector"
)

// DLQSubject returns the dead-letter subject for reason, e.g.
// pmap.ingest.dlq.missing_field. Characters NATS treats as token
// separators or wildcards are replaced with underscores.
func DLQSubject(reason string) string {
	if reason == "" {
		reason = "unknown"
	}
	clean := strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n':
			return '_'
		}
		return r
	}, reason)
	return SubjectIngestDLQPrefix + "." + clean
}
