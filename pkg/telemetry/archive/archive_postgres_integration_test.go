//go:build integration

package archive

import (
	"context"
	"testing"

	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/wilhg/ghostd/pkg/snippet"
)

func TestPostgresArchiveFlow(t *testing.T) {
	ctx := context.Background()
	pg, err := tcpostgres.RunContainer(ctx,
		tcpostgres.WithDatabase("ghostd"),
		tcpostgres.WithUsername("ghostd"),
		tcpostgres.WithPassword("ghostd"),
		tcpostgres.WithSQLDriver("pgx"),
	)
	if err != nil {
		t.Skipf("skip: cannot start postgres: %v", err)
	}
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}

	st, err := Open(ctx, dsn)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = st.Close() })

	if err := st.Migrate(ctx); err != nil {
		t.Fatal(err)
	}

	rec := snippet.Record{
		ID:                1,
		Model:             "gpt-4",
		SuggestedText:     "x := 1\n",
		CorrectedText:     "x := 1\n",
		RemainingFraction: 1.0,
		CreatedAt:         10,
		AcceptedAt:        11,
		FinishedAt:        40,
	}
	if err := st.AppendFinalized(ctx, "file:///a.go", rec); err != nil {
		t.Fatal(err)
	}
	// Duplicate id must be ignored, not error.
	if err := st.AppendFinalized(ctx, "file:///a.go", rec); err != nil {
		t.Fatal(err)
	}

	rows, err := st.ListFinalized(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].SnippetID != 1 {
		t.Fatalf("rows=%+v", rows)
	}
}
