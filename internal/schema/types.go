// Package schema defines the seven fixed interchange targets of the site:
// their domain record shapes, their tabular column sets, and the two
// conversions between rows and records. Adapters register themselves in an
// init-time registry; the orchestrator in internal/core dispatches by
// target key and owns all persistence.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/sunghokim-dev/presbytery-site/internal/tabular"
)

// Kind distinguishes how a target's records are persisted.
type Kind int

const (
	// KindFlat targets live as independent rows in the record store and
	// are replaced wholesale on import.
	KindFlat Kind = iota

	// KindDocument targets live as a single serialized document and are
	// committed read-modify-write so fields absent from the tabular form
	// survive a round trip.
	KindDocument
)

// TargetInfo identifies a registered interchange target.
type TargetInfo struct {
	Key        string // URL identifier: "fees-status"
	Label      string // Display name: "상회비 현황"
	Kind       Kind
	Collection string // record-store table (flat) or document key (document)
}

// FlatRecord is implemented by the row-shaped domain records (committees,
// fees, members). NaturalKey identifies a record during merge restores.
type FlatRecord interface {
	NaturalKey() string
}

// Definition contains everything needed to import or export one target.
// Flat targets leave the document hooks nil; document targets must set all
// three.
type Definition struct {
	Info    TargetInfo
	Headers []string

	// PadShortRows lets the decoder pad hand-edited rows whose trailing
	// cells were dropped. Set on the grouped targets whose rows routinely
	// end in blank child columns.
	PadShortRows bool

	// ToRows renders the domain snapshot as rows. Never fails: domain
	// records are always renderable.
	ToRows func(domain any) []tabular.Row

	// FromRows rebuilds the domain snapshot from parsed rows. Fails closed
	// with *MissingColumnError when a fixed header is absent.
	FromRows func(rows []tabular.Row) (any, error)

	// Sample returns the placeholder snapshot used when nothing is
	// persisted yet, so a downloaded template documents itself.
	Sample func() any

	// DecodeDoc builds the domain snapshot from the stored document bytes.
	// nil raw means nothing stored yet: the hook returns the defaults.
	DecodeDoc func(raw []byte) (any, error)

	// EncodeDoc serializes the domain snapshot for the document store.
	EncodeDoc func(domain any) ([]byte, error)

	// MergeDoc folds an imported snapshot into the existing document,
	// preserving fields the tabular form does not carry.
	MergeDoc func(existing, imported any) any
}

// MissingColumnError reports a required header absent from parsed input.
// Adapters fail closed on it before any persistence call happens.
type MissingColumnError struct {
	Target string
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("%s: required column %q is missing", e.Target, e.Column)
}

// RequireColumns verifies that every fixed header appears in a decoded
// header set. The check runs on the header line itself, not the data rows,
// so a headers-only upload with the wrong columns fails closed instead of
// committing an empty snapshot.
func RequireColumns(target string, required, headers []string) error {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[h] = true
	}
	for _, h := range required {
		if !present[h] {
			return &MissingColumnError{Target: target, Column: h}
		}
	}
	return nil
}

// requireHeaders verifies that every fixed header is present on the first
// row (decoded rows always carry the full header set of their document).
func requireHeaders(target string, headers []string, rows []tabular.Row) error {
	if len(rows) == 0 {
		return nil
	}
	for _, h := range headers {
		if _, ok := rows[0][h]; !ok {
			return &MissingColumnError{Target: target, Column: h}
		}
	}
	return nil
}

// CommitteeRecord is one standing committee (부서) of the assembly.
type CommitteeRecord struct {
	Name          string `json:"name"`
	HeadTitle     string `json:"headTitle"`
	HeadName      string `json:"headName"`
	HeadRole      string `json:"headRole"`
	SecretaryName string `json:"secretaryName"`
	SecretaryRole string `json:"secretaryRole"`
	Members       string `json:"members"` // free-text roster
	Term          string `json:"term"`
	Order         int    `json:"order"` // stable display sort
}

// NaturalKey implements FlatRecord.
func (r CommitteeRecord) NaturalKey() string { return r.Name }

// FeeRecord is one church's assessment line (상회비) under its inspection
// district. District is stored normalized, with the 시찰 suffix stripped.
type FeeRecord struct {
	District   string `json:"district"`
	Church     string `json:"church"`
	Pastor     string `json:"pastor"`
	Assessment int    `json:"assessment"`
	Settlement int    `json:"settlement"`
}

// NaturalKey implements FlatRecord.
func (r FeeRecord) NaturalKey() string { return r.District + "|" + r.Church }

// MemberRecord is one person in the member directory. Role is inferred from
// the free-text Position; Username and Password receive deterministic
// defaults during import when the sheet does not carry them.
type MemberRecord struct {
	Name     string `json:"name"`
	Church   string `json:"church"`
	Position string `json:"position"`
	Role     string `json:"role"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// NaturalKey implements FlatRecord.
func (r MemberRecord) NaturalKey() string { return r.Name + "|" + r.Church }

// OfficerRecord is one current officer of the assembly.
type OfficerRecord struct {
	Position string `json:"position"`
	Name     string `json:"name"`
	Title    string `json:"title"`
	Church   string `json:"church"`
	Photo    string `json:"photo"` // asset reference, may be empty
}

// OfficerBoard is the single current-officer document. Term is not part of
// the tabular form and must survive an export/import round trip.
type OfficerBoard struct {
	Term     string          `json:"term"`
	Officers []OfficerRecord `json:"officers"`
}

// HistoricalOfficerRecord is the officer slate of one past session. The
// eight positions are fixed; empty strings mean the position was vacant or
// unrecorded that year.
type HistoricalOfficerRecord struct {
	Term   string `json:"term"` // session label: "제85회"
	Church string `json:"church"`

	Chair             string `json:"chair"`
	ViceChair         string `json:"viceChair"`
	Secretary         string `json:"secretary"`
	ViceSecretary     string `json:"viceSecretary"`
	MinutesSecretary  string `json:"minutesSecretary"`
	ViceMinutesSec    string `json:"viceMinutesSecretary"`
	Treasurer         string `json:"treasurer"`
	ViceTreasurer     string `json:"viceTreasurer"`
}

// OfficerHistory is the single historical-officers document.
type OfficerHistory struct {
	Years []HistoricalOfficerRecord `json:"years"`
}

// ChurchRecord is one member church inside an inspection district. The
// pointer contact fields are genuinely optional: nil means absent, and
// absent round-trips through the tabular form as an empty cell.
type ChurchRecord struct {
	Name    string  `json:"name"`
	Pastor  string  `json:"pastor"`
	Address string  `json:"address"`
	Phone   *string `json:"phone,omitempty"`
	Mobile  *string `json:"mobile,omitempty"`
	Email   *string `json:"email,omitempty"`
}

// InspectionRecord is one inspection district (시찰) and its ordered member
// churches.
type InspectionRecord struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	LeaderName     string         `json:"leaderName"`
	LeaderTitle    string         `json:"leaderTitle"`
	SecretaryName  string         `json:"secretaryName"`
	SecretaryTitle string         `json:"secretaryTitle"`
	Description    string         `json:"description"`
	Churches       []ChurchRecord `json:"churches"`
}

// InspectionDirectory is the single inspections document.
type InspectionDirectory struct {
	Districts []InspectionRecord `json:"districts"`
}

// OfficerEntry is one officer of an affiliated organization.
type OfficerEntry struct {
	Position string `json:"position"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Church   string `json:"church"`
	Phone    string `json:"phone"`
}

// EventEntry is one scheduled event of an affiliated organization.
type EventEntry struct {
	Month    string `json:"month"`
	Name     string `json:"name"`
	Datetime string `json:"datetime"`
	Location string `json:"location"`
	Notes    string `json:"notes"`
}

// OrganizationRecord is one affiliated organization (기관/단체) with two
// independently-lengthed sub-lists.
type OrganizationRecord struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	President string         `json:"president"`
	Secretary string         `json:"secretary"`
	Officers  []OfficerEntry `json:"officers"`
	Events    []EventEntry   `json:"events"`
}

// OrganizationRoster is the single organizations document.
type OrganizationRoster struct {
	Organizations []OrganizationRecord `json:"organizations"`
}

// decodeDocInto is the shared DecodeDoc body: nil or empty raw yields the
// caller's defaults untouched, anything else must parse as JSON.
func decodeDocInto(raw []byte, into any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, into)
}

// MarshalFlat serializes a flat collection for archiving.
func MarshalFlat(records []FlatRecord) ([]byte, error) {
	return json.MarshalIndent(records, "", "  ")
}

// UnmarshalFlat parses an archived flat collection back into typed records.
// The element type is chosen by collection name.
func UnmarshalFlat(collection string, data []byte) ([]FlatRecord, error) {
	switch collection {
	case CollectionCommittees:
		return unmarshalAs[CommitteeRecord](data)
	case CollectionFees:
		return unmarshalAs[FeeRecord](data)
	case CollectionMembers:
		return unmarshalAs[MemberRecord](data)
	default:
		return nil, fmt.Errorf("unknown flat collection: %s", collection)
	}
}

func unmarshalAs[T FlatRecord](data []byte) ([]FlatRecord, error) {
	var typed []T
	if err := json.Unmarshal(data, &typed); err != nil {
		return nil, err
	}
	records := make([]FlatRecord, len(typed))
	for i, r := range typed {
		records[i] = r
	}
	return records, nil
}

// Flat collection table names. The record store owns one table per name.
const (
	CollectionCommittees = "committees"
	CollectionFees       = "fees"
	CollectionMembers    = "members"
)

// Document store keys.
const (
	DocCurrentOfficers    = "current-officers"
	DocHistoricalOfficers = "historical-officers"
	DocInspections        = "inspections"
	DocOrganizations      = "organizations"
)
