package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AuditWriter records the outcome of each processed webhook event as a JSON
// line in a daily file under the configured directory. A nil writer (audit
// disabled) is safe to use; every method is a no-op.
type AuditWriter struct {
	dir   string
	mutex sync.Mutex
}

// AuditRecipient is the per-recipient delivery outcome in an audit record.
type AuditRecipient struct {
	Email     string `json:"email"`
	Delivered bool   `json:"delivered"`
	Error     string `json:"error,omitempty"`
}

// AuditRecord is one processed-event entry in the audit trail.
type AuditRecord struct {
	Timestamp  time.Time        `json:"timestamp"`
	DeliveryID string           `json:"delivery_id"`
	Event      string           `json:"event"`
	Action     string           `json:"action"`
	Repo       string           `json:"repo,omitempty"`
	PRNumber   int              `json:"pr_number,omitempty"`
	Processed  bool             `json:"processed"`
	Reason     string           `json:"reason,omitempty"`
	Attempted  int              `json:"attempted"`
	Succeeded  int              `json:"succeeded"`
	Failed     int              `json:"failed"`
	Recipients []AuditRecipient `json:"recipients,omitempty"`
}

// NewAuditWriter creates an audit writer rooted at dir. An empty dir disables
// auditing and returns nil.
func NewAuditWriter(dir string) *AuditWriter {
	if dir == "" {
		return nil
	}
	return &AuditWriter{dir: dir}
}

// Write appends a record to today's audit file, creating the directory and
// file as needed.
func (w *AuditWriter) Write(rec AuditRecord) error {
	if w == nil {
		return nil
	}

	w.mutex.Lock()
	defer w.mutex.Unlock()

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("failed to create audit directory: %w", err)
	}

	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	fileName := fmt.Sprintf("notify_%s.log", rec.Timestamp.Format("20060102"))
	f, err := os.OpenFile(filepath.Join(w.dir, fileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open audit file: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal audit record: %w", err)
	}

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write audit record: %w", err)
	}
	return nil
}
