package errors

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestDumpDomainError(t *testing.T) {
	err := Wrap(CodeConflict, fmt.Errorf("insert failed"), "duplicate sku")

	dump := Dump(err)
	if dump.Code != CodeConflict {
		t.Fatalf("expected conflict code, got %s", dump.Code)
	}
	if len(dump.Chain) < 2 {
		t.Fatalf("expected wrapped chain, got %v", dump.Chain)
	}
	if dump.Postgres != nil {
		t.Fatal("non-driver error must not carry postgres detail")
	}
}

func TestDumpUnpacksPostgresError(t *testing.T) {
	pg := &pgconn.PgError{
		Code:           "23505",
		ConstraintName: "idx_product_variants_sku",
		TableName:      "product_variants",
		Message:        "duplicate key value violates unique constraint",
	}
	err := Wrap(CodeConflict, pg, "variant exists")

	dump := Dump(err)
	if dump.Postgres == nil {
		t.Fatal("expected postgres detail")
	}
	if dump.Postgres.Code != "23505" || dump.Postgres.Constraint != "idx_product_variants_sku" {
		t.Fatalf("unexpected postgres detail: %+v", dump.Postgres)
	}
	if dump.Postgres.Table != "product_variants" {
		t.Fatalf("unexpected table: %s", dump.Postgres.Table)
	}
}

func TestDumpNil(t *testing.T) {
	dump := Dump(nil)
	if dump.TopMessage != "" || dump.Chain != nil || dump.Postgres != nil {
		t.Fatalf("expected zero dump, got %+v", dump)
	}
}
