package model

// ChangeKind tags the closed set of record change variants a webhook payload
// can carry for a table.
type ChangeKind int

const (
	// ChangeDeleted is a list of destroyed record ids.
	ChangeDeleted ChangeKind = iota
	// ChangeUpdated is a single record's changed cell values.
	ChangeUpdated
	// ChangeCreated is a list of newly created record ids. Creations are
	// observed and counted but never materialized locally: a record that was
	// not submitted through this service cannot be attributed to a form.
	ChangeCreated
)

// TableChange is one change variant for a single table. Exactly one of the
// variant payloads is populated, selected by Kind: RecordIDs for Deleted and
// Created, RecordID plus FieldValues for Updated.
type TableChange struct {
	Kind        ChangeKind
	RecordIDs   []string
	RecordID    string
	FieldValues map[string]any
}

// DeletedChange builds a deletion variant.
func DeletedChange(recordIDs []string) TableChange {
	return TableChange{Kind: ChangeDeleted, RecordIDs: recordIDs}
}

// UpdatedChange builds an update variant for one record. fieldValues is
// keyed by Airtable field id.
func UpdatedChange(recordID string, fieldValues map[string]any) TableChange {
	return TableChange{Kind: ChangeUpdated, RecordID: recordID, FieldValues: fieldValues}
}

// CreatedChange builds a creation variant.
func CreatedChange(recordIDs []string) TableChange {
	return TableChange{Kind: ChangeCreated, RecordIDs: recordIDs}
}

// TableChanges holds the raw change sets for one table as delivered by the
// webhook payload endpoint.
type TableChanges struct {
	DestroyedRecordIDs []string
	// ChangedRecords maps record id to changed cell values keyed by
	// Airtable field id.
	ChangedRecords   map[string]map[string]any
	CreatedRecordIDs []string
}

// Ordered flattens the change sets into the order the reconciler must apply
// them: deletions first, then updates, then creations. A record that is both
// updated and destroyed in the same payload must end up deleted, and placing
// deletions first guarantees that without comparing ids.
func (tc TableChanges) Ordered() []TableChange {
	changes := make([]TableChange, 0, 2+len(tc.ChangedRecords))
	if len(tc.DestroyedRecordIDs) > 0 {
		changes = append(changes, DeletedChange(tc.DestroyedRecordIDs))
	}
	for recordID, fields := range tc.ChangedRecords {
		changes = append(changes, UpdatedChange(recordID, fields))
	}
	if len(tc.CreatedRecordIDs) > 0 {
		changes = append(changes, CreatedChange(tc.CreatedRecordIDs))
	}
	return changes
}

// Payload is one entry from a webhook payload fetch: the set of table-data
// changes Airtable batched into a single notification, keyed by table id.
type Payload struct {
	ChangedTables map[string]TableChanges
}
