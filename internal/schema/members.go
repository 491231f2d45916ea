package schema

import (
	"github.com/sunghokim-dev/presbytery-site/internal/tabular"
)

func init() {
	registerMembers()
}

var memberHeaders = []string{"이름", "교회", "직분"}

func registerMembers() {
	Register(Definition{
		Info: TargetInfo{
			Key:        "members",
			Label:      "회원 명단",
			Kind:       KindFlat,
			Collection: CollectionMembers,
		},
		Headers:  memberHeaders,
		ToRows:   membersToRows,
		FromRows: membersFromRows,
		Sample: func() any {
			return []FlatRecord{MemberRecord{
				Name:     "홍길동",
				Church:   "은혜교회",
				Position: "담임목사",
				Role:     RoleLeader,
				Username: "홍길동",
				Password: DefaultPassword,
			}}
		},
	})
}

func membersToRows(domain any) []tabular.Row {
	records := domain.([]FlatRecord)
	rows := make([]tabular.Row, 0, len(records))
	for _, fr := range records {
		r := fr.(MemberRecord)
		// Credentials are server-generated and never leave through the
		// tabular form.
		rows = append(rows, tabular.Row{
			"이름": r.Name,
			"교회": r.Church,
			"직분": r.Position,
		})
	}
	return rows
}

func membersFromRows(rows []tabular.Row) (any, error) {
	if err := requireHeaders("members", memberHeaders, rows); err != nil {
		return nil, err
	}

	records := make([]FlatRecord, 0, len(rows))
	for _, row := range rows {
		name := cell(row, "이름")
		position := cell(row, "직분")
		records = append(records, MemberRecord{
			Name:     name,
			Church:   cell(row, "교회"),
			Position: position,
			Role:     InferRole(position),
			Username: DefaultUsername(name),
			Password: DefaultPassword,
		})
	}
	return records, nil
}
