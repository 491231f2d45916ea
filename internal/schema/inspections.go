package schema

import (
	"encoding/json"

	"github.com/sunghokim-dev/presbytery-site/internal/tabular"
)

func init() {
	registerInspections()
}

var inspectionHeaders = []string{
	"시찰ID", "시찰명", "시찰장", "시찰장직분", "서기", "서기직분", "소개",
	"교회", "담임교역자", "주소", "전화", "휴대폰", "이메일",
}

func registerInspections() {
	Register(Definition{
		Info: TargetInfo{
			Key:        "inspections",
			Label:      "시찰 안내",
			Kind:       KindDocument,
			Collection: DocInspections,
		},
		Headers:      inspectionHeaders,
		PadShortRows: true,
		ToRows:       inspectionsToRows,
		FromRows:     inspectionsFromRows,
		Sample: func() any {
			phone := "02-1234-5678"
			return &InspectionDirectory{Districts: []InspectionRecord{{
				ID:             "nambu",
				Name:           "남부",
				LeaderName:     "홍길동",
				LeaderTitle:    "목사",
				SecretaryName:  "김철수",
				SecretaryTitle: "장로",
				Description:    "남부 지역 교회 시찰",
				Churches: []ChurchRecord{{
					Name:    "은혜교회",
					Pastor:  "이영희",
					Address: "서울시 동작구",
					Phone:   &phone,
				}},
			}}}
		},
		DecodeDoc: func(raw []byte) (any, error) {
			dir := &InspectionDirectory{}
			if err := decodeDocInto(raw, dir); err != nil {
				return nil, err
			}
			return dir, nil
		},
		EncodeDoc: func(domain any) ([]byte, error) {
			return json.MarshalIndent(domain.(*InspectionDirectory), "", "  ")
		},
		MergeDoc: func(_, imported any) any { return imported },
	})
}

// inspectionsToRows emits one row per church, repeating the district id on
// every row; the remaining district columns appear on the first row only.
// A district without churches still emits exactly one row so it survives a
// round trip.
func inspectionsToRows(domain any) []tabular.Row {
	dir := domain.(*InspectionDirectory)
	var rows []tabular.Row
	for _, d := range dir.Districts {
		n := len(d.Churches)
		if n == 0 {
			n = 1
		}
		for i := 0; i < n; i++ {
			row := tabular.Row{"시찰ID": d.ID}
			for _, h := range inspectionHeaders[1:] {
				row[h] = ""
			}
			if i == 0 {
				row["시찰명"] = d.Name
				row["시찰장"] = d.LeaderName
				row["시찰장직분"] = d.LeaderTitle
				row["서기"] = d.SecretaryName
				row["서기직분"] = d.SecretaryTitle
				row["소개"] = d.Description
			}
			if i < len(d.Churches) {
				c := d.Churches[i]
				row["교회"] = c.Name
				row["담임교역자"] = c.Pastor
				row["주소"] = c.Address
				row["전화"] = optString(c.Phone)
				row["휴대폰"] = optString(c.Mobile)
				row["이메일"] = optString(c.Email)
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// inspectionsFromRows scans rows in order, opening a new district whenever
// the id column changes to a new non-empty value and attaching church rows
// to the district currently open. A row whose church column is blank
// contributes no child, so an id-only row yields a district with zero
// churches.
func inspectionsFromRows(rows []tabular.Row) (any, error) {
	if err := requireHeaders("inspections", inspectionHeaders, rows); err != nil {
		return nil, err
	}

	dir := &InspectionDirectory{}
	var open *InspectionRecord
	for _, row := range rows {
		id := cell(row, "시찰ID")
		if id != "" && (open == nil || open.ID != id) {
			dir.Districts = append(dir.Districts, InspectionRecord{
				ID:             id,
				Name:           cell(row, "시찰명"),
				LeaderName:     cell(row, "시찰장"),
				LeaderTitle:    cell(row, "시찰장직분"),
				SecretaryName:  cell(row, "서기"),
				SecretaryTitle: cell(row, "서기직분"),
				Description:    cell(row, "소개"),
			})
			open = &dir.Districts[len(dir.Districts)-1]
		}
		if open == nil {
			// Child data before any district id has nothing to attach to.
			continue
		}
		if church := cell(row, "교회"); church != "" {
			open.Churches = append(open.Churches, ChurchRecord{
				Name:    church,
				Pastor:  cell(row, "담임교역자"),
				Address: cell(row, "주소"),
				Phone:   optCell(row, "전화"),
				Mobile:  optCell(row, "휴대폰"),
				Email:   optCell(row, "이메일"),
			})
		}
	}
	return dir, nil
}
