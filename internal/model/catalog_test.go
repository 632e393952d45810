package model

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const personYAML = `
table: people
display_name: Person
security:
  read:
    allow_anonymous: true
properties:
  - name: PersonId
    type: int
    role: primary_key
    generated: true
  - name: FirstName
    required: true
  - name: LastName
    nullable: true
`

const caseYAML = `
table: cases
properties:
  - name: CaseKey
    type: int
    role: primary_key
    generated: true
  - name: Title
    required: true
  - name: AssignedToId
    type: int
    role: foreign_key
    principal: Person
    nullable: true
`

const caseSummaryYAML = `
kind: dto
entity: Case
security:
  create:
    roles: [Admin]
properties:
  - name: CaseKey
    type: int
    role: primary_key
    generated: true
  - name: Title
`

func baseSources() map[string][]byte {
	return map[string][]byte{
		"Person":      []byte(personYAML),
		"Case":        []byte(caseYAML),
		"CaseSummary": []byte(caseSummaryYAML),
	}
}

func mustCatalog(t *testing.T, sources map[string][]byte) *Catalog {
	t.Helper()
	c, err := ParseCatalog(sources)
	if err != nil {
		t.Fatalf("ParseCatalog: %v", err)
	}
	return c
}

func TestParseCatalog_DefaultsAndLinks(t *testing.T) {
	c := mustCatalog(t, baseSources())

	kase, ok := c.Lookup("Case")
	if !ok {
		t.Fatalf("Case not found")
	}
	if kase.Kind != KindEntity {
		t.Fatalf("expected entity kind, got %q", kase.Kind)
	}

	fk := kase.PropertyByName("assignedToId")
	if fk == nil {
		t.Fatalf("assignedToId not found by json name")
	}
	if fk != kase.PropertyByName("AssignedToId") {
		t.Fatalf("lookup by name and json name must return the same property")
	}
	if fk != kase.PropertyByName("assignedtoid") {
		t.Fatalf("lookup must ignore case")
	}
	if fk.Column != "assigned_to_id" {
		t.Fatalf("unexpected column: %q", fk.Column)
	}
	if fk.PrincipalType() == nil || fk.PrincipalType().Name != "Person" {
		t.Fatalf("principal not linked: %#v", fk.PrincipalType())
	}

	pk := kase.PrimaryKey()
	if pk == nil || pk.JSONName != "caseKey" {
		t.Fatalf("unexpected primary key: %#v", pk)
	}
	if pk.IsClientWritable() {
		t.Fatalf("generated primary key must not be client writable by default")
	}
	if !fk.IsClientWritable() {
		t.Fatalf("foreign key must be client writable by default")
	}
	if got := kase.DisplayName(); got != "Case" {
		t.Fatalf("unexpected display name %q", got)
	}
}

func TestParseCatalog_GeneratedDto(t *testing.T) {
	c := mustCatalog(t, baseSources())

	b, err := c.Bind("Case")
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if b.Entity.Name != "Case" {
		t.Fatalf("unexpected entity %q", b.Entity.Name)
	}
	if b.Dto.Name != "Case"+GeneratedDtoSuffix || !b.Dto.IsGeneratedDto() {
		t.Fatalf("expected generated dto, got %q", b.Dto.Name)
	}
	if b.DeclaredFor() != b.Entity {
		t.Fatalf("generated dto must declare security on the entity")
	}

	// generated dto properties are copies
	if b.Dto.PropertyByName("title") == b.Entity.PropertyByName("title") {
		t.Fatalf("generated dto must not share property pointers with the entity")
	}
	if _, ok := c.Lookup("Case" + GeneratedDtoSuffix); ok {
		t.Fatalf("generated dtos are not client visible type names")
	}
}

func TestParseCatalog_CustomDto(t *testing.T) {
	c := mustCatalog(t, baseSources())

	b, err := c.Bind("CaseSummary")
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if b.Entity.Name != "Case" || b.Dto.Name != "CaseSummary" {
		t.Fatalf("unexpected binding: %s/%s", b.Entity.Name, b.Dto.Name)
	}
	if b.DeclaredFor() != b.Dto {
		t.Fatalf("custom dto must declare its own security")
	}
	if b.Dto.TableName() != "cases" {
		t.Fatalf("dto must persist to the entity table, got %q", b.Dto.TableName())
	}
	if got := b.Dto.DisplayName(); got != "Case Summary" {
		t.Fatalf("unexpected display name %q", got)
	}
}

func TestBind_Errors(t *testing.T) {
	sources := baseSources()
	sources["AuditEntry"] = []byte(`
table: audit_entries
properties:
  - name: Message
`)
	c := mustCatalog(t, sources)

	if _, err := c.Bind("Nope"); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
	if _, err := c.Bind("case"); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("type names are matched exactly, got %v", err)
	}
	if _, err := c.Bind("AuditEntry"); !errors.Is(err, ErrUnkeyed) {
		t.Fatalf("expected ErrUnkeyed, got %v", err)
	}
}

func TestParseCatalog_RejectsInvalidModels(t *testing.T) {
	cases := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "unknown key",
			yaml:    "table: things\nfoo: bar\n",
			wantErr: "unknown key 'foo'",
		},
		{
			name: "unknown property type",
			yaml: `
table: things
properties:
  - name: Id
    type: decimal
    role: primary_key
`,
			wantErr: "unknown type value 'decimal'",
		},
		{
			name: "foreign key without principal",
			yaml: `
table: things
properties:
  - name: Id
    type: int
    role: primary_key
  - name: OwnerId
    type: int
    role: foreign_key
`,
			wantErr: "must declare 'principal'",
		},
		{
			name: "missing principal type",
			yaml: `
table: things
properties:
  - name: Id
    type: int
    role: primary_key
  - name: OwnerId
    type: int
    role: foreign_key
    principal: Ghost
`,
			wantErr: "type 'Ghost' not found",
		},
		{
			name: "two primary keys",
			yaml: `
table: things
properties:
  - name: Id
    type: int
    role: primary_key
  - name: Code
    role: primary_key
`,
			wantErr: "more than one primary key",
		},
		{
			name: "foreign key type mismatch",
			yaml: `
table: things
properties:
  - name: Id
    type: int
    role: primary_key
  - name: PersonId
    type: string
    role: foreign_key
    principal: Person
`,
			wantErr: "has type \"string\"",
		},
		{
			name: "bad table",
			yaml: `
table: "drop table;"
properties:
  - name: Id
    type: int
    role: primary_key
`,
			wantErr: "valid table name",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sources := baseSources()
			sources["Thing"] = []byte(tc.yaml)
			_, err := ParseCatalog(sources)
			if err == nil {
				t.Fatalf("expected error containing %q", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestParseCatalog_DtoColumnMustExist(t *testing.T) {
	sources := baseSources()
	sources["CaseSummary"] = []byte(`
kind: dto
entity: Case
properties:
  - name: CaseKey
    type: int
    role: primary_key
  - name: Subject
`)
	_, err := ParseCatalog(sources)
	if err == nil || !strings.Contains(err.Error(), "column 'subject'") {
		t.Fatalf("expected missing column error, got %v", err)
	}
}

func TestLoadCatalog_FromDir(t *testing.T) {
	dir := t.TempDir()
	for name, src := range baseSources() {
		if err := os.WriteFile(filepath.Join(dir, name+".yml"), src, 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	c, err := LoadCatalog(dir)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	var names []string
	for _, ty := range c.Types() {
		names = append(names, ty.Name)
	}
	if diff := cmp.Diff([]string{"Case", "CaseSummary", "Person"}, names); diff != "" {
		t.Fatalf("types mismatch (-want +got):\n%s", diff)
	}

	if _, err := LoadCatalog(t.TempDir()); err == nil {
		t.Fatalf("expected error for an empty models dir")
	}
}

func TestRequiredReferenceCycles(t *testing.T) {
	sources := map[string][]byte{
		"Order": []byte(`
table: orders
properties:
  - name: OrderId
    type: int
    role: primary_key
    generated: true
  - name: InvoiceId
    type: int
    role: foreign_key
    principal: Invoice
`),
		"Invoice": []byte(`
table: invoices
properties:
  - name: InvoiceId
    type: int
    role: primary_key
    generated: true
  - name: OrderId
    type: int
    role: foreign_key
    principal: Order
`),
	}
	c := mustCatalog(t, sources)
	if diff := cmp.Diff([]string{"Invoice → Order → Invoice"}, c.RequiredReferenceCycles()); diff != "" {
		t.Fatalf("cycles mismatch (-want +got):\n%s", diff)
	}

	// nullable foreign keys do not form a required cycle
	base := mustCatalog(t, baseSources())
	if got := base.RequiredReferenceCycles(); len(got) != 0 {
		t.Fatalf("expected no cycles, got %v", got)
	}
}

func TestNamingHelpers(t *testing.T) {
	cases := map[string][2]string{
		"CaseKey":      {"case_key", "caseKey"},
		"ID":           {"id", "id"},
		"URLPath":      {"url_path", "urlPath"},
		"AssignedToId": {"assigned_to_id", "assignedToId"},
	}
	for in, want := range cases {
		if got := toSnakeCase(in); got != want[0] {
			t.Errorf("toSnakeCase(%q) = %q, want %q", in, got, want[0])
		}
		if got := toCamelCase(in); got != want[1] {
			t.Errorf("toCamelCase(%q) = %q, want %q", in, got, want[1])
		}
	}
}
