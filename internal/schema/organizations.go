package schema

import (
	"encoding/json"

	"github.com/sunghokim-dev/presbytery-site/internal/tabular"
)

func init() {
	registerOrganizations()
}

var organizationHeaders = []string{
	"기관ID", "기관명", "회장", "총무",
	"직책", "이름", "역할", "교회", "연락처",
	"월", "행사명", "일시", "장소", "비고",
}

func registerOrganizations() {
	Register(Definition{
		Info: TargetInfo{
			Key:        "organizations",
			Label:      "기관 및 단체",
			Kind:       KindDocument,
			Collection: DocOrganizations,
		},
		Headers:      organizationHeaders,
		PadShortRows: true,
		ToRows:       organizationsToRows,
		FromRows:     organizationsFromRows,
		Sample: func() any {
			return &OrganizationRoster{Organizations: []OrganizationRecord{{
				ID:        "men",
				Name:      "남선교회연합회",
				President: "홍길동",
				Secretary: "김철수",
				Officers: []OfficerEntry{{
					Position: "회장",
					Name:     "홍길동",
					Role:     "대표",
					Church:   "은혜교회",
					Phone:    "010-1234-5678",
				}},
				Events: []EventEntry{{
					Month:    "5",
					Name:     "연합 체육대회",
					Datetime: "2025-05-10 10:00",
					Location: "시민운동장",
					Notes:    "전 교회 참가",
				}},
			}}}
		},
		DecodeDoc: func(raw []byte) (any, error) {
			roster := &OrganizationRoster{}
			if err := decodeDocInto(raw, roster); err != nil {
				return nil, err
			}
			return roster, nil
		},
		EncodeDoc: func(domain any) ([]byte, error) {
			return json.MarshalIndent(domain.(*OrganizationRoster), "", "  ")
		},
		MergeDoc: func(_, imported any) any { return imported },
	})
}

// organizationsToRows emits max(len(officers), len(events)) rows per
// organization, at least one. Parent columns appear on the first row only;
// continuation rows carry a blank id. The shorter sub-list pads with blank
// cells so the longer one is never truncated.
func organizationsToRows(domain any) []tabular.Row {
	roster := domain.(*OrganizationRoster)
	var rows []tabular.Row
	for _, org := range roster.Organizations {
		n := max(len(org.Officers), len(org.Events), 1)
		for i := 0; i < n; i++ {
			row := tabular.Row{}
			for _, h := range organizationHeaders {
				row[h] = ""
			}
			if i == 0 {
				row["기관ID"] = org.ID
				row["기관명"] = org.Name
				row["회장"] = org.President
				row["총무"] = org.Secretary
			}
			if i < len(org.Officers) {
				o := org.Officers[i]
				row["직책"] = o.Position
				row["이름"] = o.Name
				row["역할"] = o.Role
				row["교회"] = o.Church
				row["연락처"] = o.Phone
			}
			if i < len(org.Events) {
				e := org.Events[i]
				row["월"] = e.Month
				row["행사명"] = e.Name
				row["일시"] = e.Datetime
				row["장소"] = e.Location
				row["비고"] = e.Notes
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// organizationsFromRows opens a new organization on every row with a
// non-empty id and attaches officer/event data from continuation rows to
// the organization currently open, at each row's own index in the two
// independently-lengthed lists.
func organizationsFromRows(rows []tabular.Row) (any, error) {
	if err := requireHeaders("organizations", organizationHeaders, rows); err != nil {
		return nil, err
	}

	roster := &OrganizationRoster{}
	var open *OrganizationRecord
	for _, row := range rows {
		if id := cell(row, "기관ID"); id != "" && (open == nil || open.ID != id) {
			roster.Organizations = append(roster.Organizations, OrganizationRecord{
				ID:        id,
				Name:      cell(row, "기관명"),
				President: cell(row, "회장"),
				Secretary: cell(row, "총무"),
			})
			open = &roster.Organizations[len(roster.Organizations)-1]
		}
		if open == nil {
			continue
		}
		if cell(row, "직책") != "" || cell(row, "이름") != "" {
			open.Officers = append(open.Officers, OfficerEntry{
				Position: cell(row, "직책"),
				Name:     cell(row, "이름"),
				Role:     cell(row, "역할"),
				Church:   cell(row, "교회"),
				Phone:    cell(row, "연락처"),
			})
		}
		if cell(row, "월") != "" || cell(row, "행사명") != "" {
			open.Events = append(open.Events, EventEntry{
				Month:    cell(row, "월"),
				Name:     cell(row, "행사명"),
				Datetime: cell(row, "일시"),
				Location: cell(row, "장소"),
				Notes:    cell(row, "비고"),
			})
		}
	}
	return roster, nil
}
