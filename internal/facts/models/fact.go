// Package models defines the financial fact record that row-level security
// filters are applied against.
package models

import (
	"time"

	"github.com/google/uuid"

	accessmodels "factgate/internal/access/models"
	id "factgate/pkg/domain"
)

// Fact is one row of the tenant-scoped fact table. Every dimension that can
// appear in an RLS constraint is a first-class column.
type Fact struct {
	ID             uuid.UUID                       `json:"id"`
	TenantID       id.TenantID                     `json:"tenant_id"`
	EntityID       string                          `json:"entity_id"`
	PeriodKey      string                          `json:"period_key"`
	CostCenterCode string                          `json:"cost_center_code"`
	Classification accessmodels.DataClassification `json:"classification_level"`
	Metric         string                          `json:"metric"`
	Value          float64                         `json:"value"`
	RecordedAt     time.Time                       `json:"recorded_at"`
}

// Row projects the fact onto the column names the filter constraints use.
func (f *Fact) Row() map[string]any {
	return map[string]any{
		accessmodels.FieldTenantID:       string(f.TenantID),
		accessmodels.FieldClassification: int(f.Classification),
		accessmodels.FieldEntityID:       f.EntityID,
		accessmodels.FieldPeriodKey:      f.PeriodKey,
		accessmodels.FieldCostCenterCode: f.CostCenterCode,
	}
}
