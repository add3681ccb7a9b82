package event_bus

const (
	EntryUpsertedType  EventType = "entry.upserted"
	EntryDeletedType   EventType = "entry.deleted"
	DataClearedType    EventType = "data.cleared"
	DemoSeededType     EventType = "demo.seeded"
	BackupRestoredType EventType = "backup.restored"
)

type EntryUpserted struct {
	EntryId string
	Date    string
	// Created is true when the upsert inserted a new day rather than merging into one.
	Created bool
}

type EntryDeleted struct {
	Date string
}

type DataCleared struct {
	EntriesRemoved int
}

type DemoSeeded struct {
	Month string
	Days  int
}

type BackupRestored struct {
	Entries          int
	SettingsRestored bool
}
