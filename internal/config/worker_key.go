package config

type WorkerKeyStruct struct {
	PersistAuditEventsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistAuditEventsQueue: "persist_audit_events_queue",
}
