package models

import (
	id "factgate/pkg/domain"
)

// Usage is a reporting snapshot of a tenant's consumption. Counters reset on
// their natural boundaries: documents monthly, queries daily, storage never.
// Limit enforcement is a collaborator's concern; this record only reports.
type Usage struct {
	TenantID           id.TenantID `json:"tenant_id"`
	DocumentsThisMonth int64       `json:"documents_this_month"`
	StorageBytes       int64       `json:"storage_bytes"`
	QueriesToday       int64       `json:"queries_today"`
}
