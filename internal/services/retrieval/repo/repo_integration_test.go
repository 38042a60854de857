//go:build integration_pg
// +build integration_pg

package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"echokit/internal/platform/store"
	"echokit/internal/services/retrieval/domain"

	"github.com/google/uuid"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "postgres",
				"POSTGRES_DB":       "echokit",
			},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("5432/tcp"),
				wait.ForLog("database system is ready to accept connections"),
			).WithDeadline(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	return fmt.Sprintf("postgres://postgres:postgres@%s:%s/echokit?sslmode=disable", host, port.Port())
}

func TestPGAudit_Integration(t *testing.T) {
	dsn := startPostgres(t)
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	st, err := store.Open(ctx, store.Config{AppName: "echokit-it", PG: store.PGConfig{Enabled: true, URL: dsn, MaxConns: 2}})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close(context.Background()) })

	r := NewPG(st.PG)
	if err := r.EnsureSchema(ctx); err != nil {
		t.Fatalf("schema: %v", err)
	}
	if err := r.EnsureSchema(ctx); err != nil {
		t.Fatalf("schema is not idempotent: %v", err)
	}

	base := time.Date(2026, 3, 3, 13, 0, 0, 0, time.UTC)
	for i, prog := range []string{"RCRA Violations", "CAA Violations"} {
		err := r.Insert(ctx, domain.Retrieval{
			ID:           uuid.NewString(),
			Program:      prog,
			RegionKind:   "county",
			RegionValues: []string{"ERIE", "NIAGARA"},
			State:        "NY",
			Query:        "SELECT * FROM \"X\" WHERE FAC_STATE = 'NY'",
			IDsSearched:  120,
			RowsFound:    7 + i,
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("insert %s: %v", prog, err)
		}
	}

	got, err := r.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 || got[0].Program != "CAA Violations" || got[0].RowsFound != 8 {
		t.Fatalf("got %+v", got)
	}
	if len(got[1].RegionValues) != 2 || got[1].RegionValues[1] != "NIAGARA" || got[1].State != "NY" {
		t.Fatalf("region not round tripped: %+v", got[1])
	}
}
