package config

type WorkerKeyStruct struct {
	StudentAuditQueue string
}

var WorkerKey = &WorkerKeyStruct{
	StudentAuditQueue: "student_audit_queue",
}
