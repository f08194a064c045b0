package models

// BackupSchemaVersion is the only schema version Import accepts.
const BackupSchemaVersion = "1"

// Backup is the export file layout. Collections hold wire documents exactly
// as the codec produces them.
type Backup struct {
	SchemaVersion string                          `json:"schemaVersion"`
	ExportedAt    int64                           `json:"exportedAt"`
	Collections   map[Collection][]map[string]any `json:"collections"`
	Settings      map[string][]byte               `json:"settings,omitempty"`
}
