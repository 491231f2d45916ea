package schema

import (
	"strconv"

	"github.com/sunghokim-dev/presbytery-site/internal/tabular"
)

func init() {
	registerCommittees()
}

var committeeHeaders = []string{
	"부서명", "부장직책", "부장", "부장역할", "서기", "서기역할", "부원", "회기", "순서",
}

func registerCommittees() {
	Register(Definition{
		Info: TargetInfo{
			Key:        "committees",
			Label:      "부서 조직",
			Kind:       KindFlat,
			Collection: CollectionCommittees,
		},
		Headers:  committeeHeaders,
		ToRows:   committeesToRows,
		FromRows: committeesFromRows,
		Sample: func() any {
			return []FlatRecord{CommitteeRecord{
				Name:          "전도부",
				HeadTitle:     "장로",
				HeadName:      "홍길동",
				HeadRole:      "부장",
				SecretaryName: "김철수",
				SecretaryRole: "서기",
				Members:       "이영희, 박민수",
				Term:          "제85회",
				Order:         1,
			}}
		},
	})
}

func committeesToRows(domain any) []tabular.Row {
	records := domain.([]FlatRecord)
	rows := make([]tabular.Row, 0, len(records))
	for _, fr := range records {
		r := fr.(CommitteeRecord)
		rows = append(rows, tabular.Row{
			"부서명":  r.Name,
			"부장직책": r.HeadTitle,
			"부장":   r.HeadName,
			"부장역할": r.HeadRole,
			"서기":   r.SecretaryName,
			"서기역할": r.SecretaryRole,
			"부원":   r.Members,
			"회기":   r.Term,
			"순서":   strconv.Itoa(r.Order),
		})
	}
	return rows
}

func committeesFromRows(rows []tabular.Row) (any, error) {
	if err := requireHeaders("committees", committeeHeaders, rows); err != nil {
		return nil, err
	}

	records := make([]FlatRecord, 0, len(rows))
	for i, row := range rows {
		order, err := cellInt(row, "순서")
		if err != nil {
			// A blank or garbled order falls back to sheet position so the
			// display sort stays stable.
			order = i + 1
		}
		records = append(records, CommitteeRecord{
			Name:          cell(row, "부서명"),
			HeadTitle:     cell(row, "부장직책"),
			HeadName:      cell(row, "부장"),
			HeadRole:      cell(row, "부장역할"),
			SecretaryName: cell(row, "서기"),
			SecretaryRole: cell(row, "서기역할"),
			Members:       cell(row, "부원"),
			Term:          cell(row, "회기"),
			Order:         order,
		})
	}
	return records, nil
}
