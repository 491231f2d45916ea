package schema

import (
	"strconv"

	"github.com/sunghokim-dev/presbytery-site/internal/tabular"
)

func init() {
	registerFees()
}

var feeHeaders = []string{"시찰", "교회", "담임교역자", "상회비", "결산액"}

func registerFees() {
	Register(Definition{
		Info: TargetInfo{
			Key:        "fees-status",
			Label:      "상회비 현황",
			Kind:       KindFlat,
			Collection: CollectionFees,
		},
		Headers:  feeHeaders,
		ToRows:   feesToRows,
		FromRows: feesFromRows,
		Sample: func() any {
			return []FlatRecord{FeeRecord{
				District:   "남부",
				Church:     "은혜교회",
				Pastor:     "홍길동",
				Assessment: 1200000,
				Settlement: 1150000,
			}}
		},
	})
}

func feesToRows(domain any) []tabular.Row {
	records := domain.([]FlatRecord)
	rows := make([]tabular.Row, 0, len(records))
	for _, fr := range records {
		r := fr.(FeeRecord)
		rows = append(rows, tabular.Row{
			"시찰":    r.District,
			"교회":    r.Church,
			"담임교역자": r.Pastor,
			"상회비":   strconv.Itoa(r.Assessment),
			"결산액":   strconv.Itoa(r.Settlement),
		})
	}
	return rows
}

func feesFromRows(rows []tabular.Row) (any, error) {
	if err := requireHeaders("fees-status", feeHeaders, rows); err != nil {
		return nil, err
	}

	records := make([]FlatRecord, 0, len(rows))
	for _, row := range rows {
		assessment, _ := cellInt(row, "상회비")
		settlement, _ := cellInt(row, "결산액")
		records = append(records, FeeRecord{
			District:   NormalizeDistrict(cell(row, "시찰")),
			Church:     cell(row, "교회"),
			Pastor:     cell(row, "담임교역자"),
			Assessment: assessment,
			Settlement: settlement,
		})
	}
	return records, nil
}
