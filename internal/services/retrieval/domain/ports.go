package domain

import (
	"context"

	"echokit/internal/core/table"
)

// ServicePort is consumed by handlers
type ServicePort interface {
	Retrieve(ctx context.Context, in RetrieveInput) (RetrieveResult, error)
	ActiveFacilities(ctx context.Context, in ActiveInput) (FacilitiesResult, error)
	TopViolators(ctx context.Context, in TopViolatorsInput) (TopViolatorsResult, error)
	LastModified(ctx context.Context, program string) (LastModifiedResult, error)
	Programs(ctx context.Context) (ProgramsResult, error)
	Recent(ctx context.Context, in RecentInput) ([]Retrieval, error)
}

// AuditStore persists retrieval records
type AuditStore interface {
	Insert(ctx context.Context, r Retrieval) error
	Recent(ctx context.Context, limit int) ([]Retrieval, error)
}

// RowArchive keeps a copy of fetched rows
type RowArchive interface {
	Archive(ctx context.Context, r Retrieval, t *table.Table) error
}
