package app

import (
	log "github.com/sirupsen/logrus"
	"github.com/tiffintracker/tiffin/internal/event_bus"
)

// subscribeEventLogging writes an audit line for every committed change.
func subscribeEventLogging(bus *event_bus.EventBus) {
	event_bus.SubscribeTyped(bus, event_bus.EntryUpsertedType, func(e event_bus.EventT[event_bus.EntryUpserted]) error {
		log.WithFields(log.Fields{"event": e.Type, "date": e.Data.Date, "id": e.Data.EntryId, "created": e.Data.Created}).Info("entry saved")
		return nil
	})
	event_bus.SubscribeTyped(bus, event_bus.EntryDeletedType, func(e event_bus.EventT[event_bus.EntryDeleted]) error {
		log.WithFields(log.Fields{"event": e.Type, "date": e.Data.Date}).Info("entry deleted")
		return nil
	})
	event_bus.SubscribeTyped(bus, event_bus.DataClearedType, func(e event_bus.EventT[event_bus.DataCleared]) error {
		log.WithFields(log.Fields{"event": e.Type, "removed": e.Data.EntriesRemoved}).Info("all data cleared")
		return nil
	})
	event_bus.SubscribeTyped(bus, event_bus.DemoSeededType, func(e event_bus.EventT[event_bus.DemoSeeded]) error {
		log.WithFields(log.Fields{"event": e.Type, "month": e.Data.Month, "days": e.Data.Days}).Info("demo data seeded")
		return nil
	})
	event_bus.SubscribeTyped(bus, event_bus.BackupRestoredType, func(e event_bus.EventT[event_bus.BackupRestored]) error {
		log.WithFields(log.Fields{"event": e.Type, "entries": e.Data.Entries, "settings": e.Data.SettingsRestored}).Info("backup restored")
		return nil
	})
}
