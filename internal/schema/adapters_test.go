package schema

import (
	"errors"
	"reflect"
	"testing"

	"github.com/sunghokim-dev/presbytery-site/internal/tabular"
)

// rowFor builds a full-width row: every header present, unset cells empty.
func rowFor(headers []string, vals map[string]string) tabular.Row {
	row := make(tabular.Row, len(headers))
	for _, h := range headers {
		row[h] = vals[h]
	}
	return row
}

func mustGet(t *testing.T, key string) Definition {
	t.Helper()
	def, ok := Get(key)
	if !ok {
		t.Fatalf("target %s is not registered", key)
	}
	return def
}

func TestRegistry_AllTargets(t *testing.T) {
	want := []string{
		"committees", "current-officers", "fees-status", "historical-officers",
		"inspections", "members", "organizations",
	}
	defs := All()
	if len(defs) != len(want) {
		t.Fatalf("registered %d targets, want %d", len(defs), len(want))
	}
	for i, def := range defs {
		if def.Info.Key != want[i] {
			t.Errorf("target[%d] = %s, want %s", i, def.Info.Key, want[i])
		}
	}
}

func TestCommittees_RoundTrip(t *testing.T) {
	def := mustGet(t, "committees")
	records := []FlatRecord{
		CommitteeRecord{Name: "전도부", HeadTitle: "장로", HeadName: "홍길동", HeadRole: "부장",
			SecretaryName: "김철수", SecretaryRole: "서기", Members: "이영희, 박민수", Term: "제85회", Order: 1},
		CommitteeRecord{Name: "교육부", HeadName: "최지훈", Term: "제85회", Order: 2},
	}

	got, err := def.FromRows(def.ToRows(records))
	if err != nil {
		t.Fatalf("FromRows(ToRows()) error = %v", err)
	}
	if !reflect.DeepEqual(got, records) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, records)
	}
}

func TestCommittees_OrderFallsBackToPosition(t *testing.T) {
	def := mustGet(t, "committees")
	rows := []tabular.Row{
		rowFor(committeeHeaders, map[string]string{"부서명": "전도부", "순서": "첫번째"}),
		rowFor(committeeHeaders, map[string]string{"부서명": "교육부", "순서": ""}),
	}

	got, err := def.FromRows(rows)
	if err != nil {
		t.Fatalf("FromRows() error = %v", err)
	}
	records := got.([]FlatRecord)
	if records[0].(CommitteeRecord).Order != 1 || records[1].(CommitteeRecord).Order != 2 {
		t.Errorf("orders = %d, %d; want sheet positions 1, 2",
			records[0].(CommitteeRecord).Order, records[1].(CommitteeRecord).Order)
	}
}

func TestFees_DistrictNormalizedOnImport(t *testing.T) {
	def := mustGet(t, "fees-status")
	rows := []tabular.Row{
		rowFor(feeHeaders, map[string]string{"시찰": "남부시찰", "교회": "은혜교회", "담임교역자": "홍길동", "상회비": "1,200,000", "결산액": "1150000"}),
		rowFor(feeHeaders, map[string]string{"시찰": "동부", "교회": "제일교회"}),
	}

	got, err := def.FromRows(rows)
	if err != nil {
		t.Fatalf("FromRows() error = %v", err)
	}
	records := got.([]FlatRecord)
	first := records[0].(FeeRecord)
	if first.District != "남부" {
		t.Errorf("District = %q, want %q", first.District, "남부")
	}
	if first.Assessment != 1200000 {
		t.Errorf("Assessment = %d, want 1200000 (comma-grouped digits)", first.Assessment)
	}
	if records[1].(FeeRecord).District != "동부" {
		t.Errorf("already-normalized district changed: %q", records[1].(FeeRecord).District)
	}
}

func TestFees_RoundTrip(t *testing.T) {
	def := mustGet(t, "fees-status")
	records := []FlatRecord{
		FeeRecord{District: "남부", Church: "은혜교회", Pastor: "홍길동", Assessment: 1200000, Settlement: 1150000},
		FeeRecord{District: "동부", Church: "제일교회"},
	}

	got, err := def.FromRows(def.ToRows(records))
	if err != nil {
		t.Fatalf("FromRows(ToRows()) error = %v", err)
	}
	if !reflect.DeepEqual(got, records) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, records)
	}
}

func TestMembers_ImportGeneratesCredentials(t *testing.T) {
	def := mustGet(t, "members")
	rows := []tabular.Row{
		rowFor(memberHeaders, map[string]string{"이름": "김 철수", "교회": "은혜교회", "직분": "담임목사"}),
		rowFor(memberHeaders, map[string]string{"이름": "이영희", "교회": "제일교회", "직분": "권사"}),
	}

	got, err := def.FromRows(rows)
	if err != nil {
		t.Fatalf("FromRows() error = %v", err)
	}
	records := got.([]FlatRecord)

	first := records[0].(MemberRecord)
	if first.Role != RoleLeader {
		t.Errorf("Role = %q, want %q", first.Role, RoleLeader)
	}
	if first.Username != "김철수" {
		t.Errorf("Username = %q, want %q", first.Username, "김철수")
	}
	if first.Password != DefaultPassword {
		t.Errorf("Password = %q, want the default", first.Password)
	}
	if records[1].(MemberRecord).Role != RoleMember {
		t.Errorf("권사 mapped to %q, want %q", records[1].(MemberRecord).Role, RoleMember)
	}
}

func TestMembers_ExportOmitsCredentials(t *testing.T) {
	def := mustGet(t, "members")
	records := []FlatRecord{
		MemberRecord{Name: "김철수", Church: "은혜교회", Position: "담임목사",
			Role: RoleLeader, Username: "김철수", Password: "secret"},
	}

	rows := def.ToRows(records)
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	for key, val := range rows[0] {
		if val == "secret" {
			t.Errorf("credential leaked through column %q", key)
		}
	}
}

func TestCurrentOfficers_RoundTripAndMerge(t *testing.T) {
	def := mustGet(t, "current-officers")
	board := &OfficerBoard{
		Term: "제85회",
		Officers: []OfficerRecord{
			{Position: "노회장", Name: "홍길동", Title: "목사", Church: "은혜교회", Photo: "officers/hong.jpg"},
			{Position: "서기", Name: "김철수", Title: "장로", Church: "제일교회"},
		},
	}

	imported, err := def.FromRows(def.ToRows(board))
	if err != nil {
		t.Fatalf("FromRows(ToRows()) error = %v", err)
	}
	if !reflect.DeepEqual(imported.(*OfficerBoard).Officers, board.Officers) {
		t.Errorf("officers did not round trip:\n got %+v\nwant %+v",
			imported.(*OfficerBoard).Officers, board.Officers)
	}

	// The term label has no column; the merge must preserve the stored one.
	merged := def.MergeDoc(board, imported).(*OfficerBoard)
	if merged.Term != "제85회" {
		t.Errorf("Term = %q after merge, want %q preserved", merged.Term, "제85회")
	}
}

func TestHistoricalOfficers_RoundTrip(t *testing.T) {
	def := mustGet(t, "historical-officers")
	history := &OfficerHistory{Years: []HistoricalOfficerRecord{
		{Term: "제1회", Church: "은혜교회", Chair: "홍길동", ViceChair: "김철수",
			Secretary: "이영희", ViceSecretary: "박민수", MinutesSecretary: "정수진",
			ViceMinutesSec: "최지훈", Treasurer: "강민지", ViceTreasurer: "윤서연"},
		{Term: "제2회", Chair: "김철수"}, // vacancies stay empty
	}}

	got, err := def.FromRows(def.ToRows(history))
	if err != nil {
		t.Fatalf("FromRows(ToRows()) error = %v", err)
	}
	if !reflect.DeepEqual(got, history) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, history)
	}
}

func TestInspections_GroupingByRepeatedID(t *testing.T) {
	def := mustGet(t, "inspections")

	// Three rows share one id; the third has no church data.
	rows := []tabular.Row{
		rowFor(inspectionHeaders, map[string]string{
			"시찰ID": "dongbu", "시찰명": "동부", "시찰장": "홍길동", "시찰장직분": "목사",
			"교회": "은혜교회", "담임교역자": "이영희", "주소": "서울시",
		}),
		rowFor(inspectionHeaders, map[string]string{
			"시찰ID": "dongbu", "교회": "제일교회", "전화": "02-1234-5678",
		}),
		rowFor(inspectionHeaders, map[string]string{"시찰ID": "dongbu"}),
	}

	got, err := def.FromRows(rows)
	if err != nil {
		t.Fatalf("FromRows() error = %v", err)
	}
	dir := got.(*InspectionDirectory)
	if len(dir.Districts) != 1 {
		t.Fatalf("districts = %d, want 1", len(dir.Districts))
	}
	d := dir.Districts[0]
	if len(d.Churches) != 2 {
		t.Fatalf("churches = %d, want 2 (blank church row adds none)", len(d.Churches))
	}
	if d.Name != "동부" || d.LeaderName != "홍길동" {
		t.Errorf("parent fields = %q/%q, want from first row", d.Name, d.LeaderName)
	}
	if d.Churches[1].Phone == nil || *d.Churches[1].Phone != "02-1234-5678" {
		t.Errorf("second church phone = %v, want 02-1234-5678", d.Churches[1].Phone)
	}
	if d.Churches[0].Phone != nil {
		t.Errorf("absent phone deserialized as %q, want nil", *d.Churches[0].Phone)
	}
}

func TestInspections_RoundTrip(t *testing.T) {
	def := mustGet(t, "inspections")
	phone := "02-1234-5678"
	dir := &InspectionDirectory{Districts: []InspectionRecord{
		{
			ID: "nambu", Name: "남부", LeaderName: "홍길동", LeaderTitle: "목사",
			SecretaryName: "김철수", SecretaryTitle: "장로", Description: "남부 지역",
			Churches: []ChurchRecord{
				{Name: "은혜교회", Pastor: "이영희", Address: "서울시", Phone: &phone},
				{Name: "제일교회", Pastor: "박민수", Address: "서울시"},
			},
		},
		{ID: "seobu", Name: "서부"}, // no churches
	}}

	got, err := def.FromRows(def.ToRows(dir))
	if err != nil {
		t.Fatalf("FromRows(ToRows()) error = %v", err)
	}
	if !reflect.DeepEqual(got, dir) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, dir)
	}
}

func TestOrganizations_RoundTrip_UnequalSubLists(t *testing.T) {
	def := mustGet(t, "organizations")
	roster := &OrganizationRoster{Organizations: []OrganizationRecord{
		{
			ID: "men", Name: "남선교회연합회", President: "홍길동", Secretary: "김철수",
			Officers: []OfficerEntry{
				{Position: "회장", Name: "홍길동", Role: "대표", Church: "은혜교회", Phone: "010-1234-5678"},
				{Position: "총무", Name: "김철수", Church: "제일교회"},
				{Position: "회계", Name: "이영희"},
			},
			Events: []EventEntry{
				{Month: "5", Name: "연합 체육대회", Datetime: "2025-05-10 10:00", Location: "시민운동장"},
			},
		},
		{ID: "women", Name: "여전도회연합회"}, // no officers, no events
	}}

	rows := def.ToRows(roster)
	// Longest sub-list wins: 3 rows for the first organization, 1 for the
	// second.
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want 4", len(rows))
	}
	if rows[1]["기관ID"] != "" {
		t.Errorf("continuation row carries id %q, want blank", rows[1]["기관ID"])
	}

	got, err := def.FromRows(rows)
	if err != nil {
		t.Fatalf("FromRows(ToRows()) error = %v", err)
	}
	if !reflect.DeepEqual(got, roster) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, roster)
	}
}

func TestFromRows_MissingColumn(t *testing.T) {
	for _, key := range []string{"committees", "fees-status", "members",
		"current-officers", "historical-officers", "inspections", "organizations"} {
		def := mustGet(t, key)

		// One full-width row minus the first fixed header.
		vals := map[string]string{}
		row := rowFor(def.Headers[1:], vals)
		_, err := def.FromRows([]tabular.Row{row})

		var missing *MissingColumnError
		if !errors.As(err, &missing) {
			t.Errorf("%s: FromRows() error = %v, want *MissingColumnError", key, err)
			continue
		}
		if missing.Column != def.Headers[0] {
			t.Errorf("%s: missing column = %q, want %q", key, missing.Column, def.Headers[0])
		}
	}
}

func TestFromRows_NoRowsIsEmptyDomain(t *testing.T) {
	def := mustGet(t, "fees-status")
	got, err := def.FromRows(nil)
	if err != nil {
		t.Fatalf("FromRows(nil) error = %v", err)
	}
	if len(got.([]FlatRecord)) != 0 {
		t.Errorf("records = %d, want 0", len(got.([]FlatRecord)))
	}
}

func TestSample_RendersOneRow(t *testing.T) {
	for _, def := range All() {
		rows := def.ToRows(def.Sample())
		if len(rows) == 0 {
			t.Errorf("%s: sample renders zero rows", def.Info.Key)
		}
	}
}

func TestEndToEnd_CSVImport(t *testing.T) {
	// The full pipeline: encoded CSV through the codec into the adapter.
	def := mustGet(t, "fees-status")
	csv := tabular.Encode(feeHeaders, []tabular.Row{
		rowFor(feeHeaders, map[string]string{"시찰": "남부시찰", "교회": "은혜교회", "상회비": "100"}),
		rowFor(feeHeaders, map[string]string{"시찰": "동부시찰", "교회": "제일교회", "상회비": "200"}),
	})

	doc, err := tabular.Decode(csv)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	got, err := def.FromRows(doc.Rows)
	if err != nil {
		t.Fatalf("FromRows() error = %v", err)
	}
	records := got.([]FlatRecord)
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0].(FeeRecord).District != "남부" {
		t.Errorf("District = %q, want %q", records[0].(FeeRecord).District, "남부")
	}
}
