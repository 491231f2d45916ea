package schema

import (
	"encoding/json"

	"github.com/sunghokim-dev/presbytery-site/internal/tabular"
)

func init() {
	registerHistoricalOfficers()
}

var historyHeaders = []string{
	"회기", "교회", "회장", "부회장", "서기", "부서기", "회록서기", "부회록서기", "회계", "부회계",
}

func registerHistoricalOfficers() {
	Register(Definition{
		Info: TargetInfo{
			Key:        "historical-officers",
			Label:      "역대 임원",
			Kind:       KindDocument,
			Collection: DocHistoricalOfficers,
		},
		Headers:  historyHeaders,
		ToRows:   historyToRows,
		FromRows: historyFromRows,
		Sample: func() any {
			return &OfficerHistory{Years: []HistoricalOfficerRecord{{
				Term:             "제1회",
				Church:           "은혜교회",
				Chair:            "홍길동",
				ViceChair:        "김철수",
				Secretary:        "이영희",
				ViceSecretary:    "박민수",
				MinutesSecretary: "정수진",
				ViceMinutesSec:   "최지훈",
				Treasurer:        "강민지",
				ViceTreasurer:    "윤서연",
			}}}
		},
		DecodeDoc: func(raw []byte) (any, error) {
			history := &OfficerHistory{}
			if err := decodeDocInto(raw, history); err != nil {
				return nil, err
			}
			return history, nil
		},
		EncodeDoc: func(domain any) ([]byte, error) {
			return json.MarshalIndent(domain.(*OfficerHistory), "", "  ")
		},
		// The tabular form carries everything this document holds, so an
		// import replaces it outright.
		MergeDoc: func(_, imported any) any { return imported },
	})
}

func historyToRows(domain any) []tabular.Row {
	history := domain.(*OfficerHistory)
	rows := make([]tabular.Row, 0, len(history.Years))
	for _, y := range history.Years {
		rows = append(rows, tabular.Row{
			"회기":    y.Term,
			"교회":    y.Church,
			"회장":    y.Chair,
			"부회장":   y.ViceChair,
			"서기":    y.Secretary,
			"부서기":   y.ViceSecretary,
			"회록서기":  y.MinutesSecretary,
			"부회록서기": y.ViceMinutesSec,
			"회계":    y.Treasurer,
			"부회계":   y.ViceTreasurer,
		})
	}
	return rows
}

func historyFromRows(rows []tabular.Row) (any, error) {
	if err := requireHeaders("historical-officers", historyHeaders, rows); err != nil {
		return nil, err
	}

	history := &OfficerHistory{}
	for _, row := range rows {
		history.Years = append(history.Years, HistoricalOfficerRecord{
			Term:             cell(row, "회기"),
			Church:           cell(row, "교회"),
			Chair:            cell(row, "회장"),
			ViceChair:        cell(row, "부회장"),
			Secretary:        cell(row, "서기"),
			ViceSecretary:    cell(row, "부서기"),
			MinutesSecretary: cell(row, "회록서기"),
			ViceMinutesSec:   cell(row, "부회록서기"),
			Treasurer:        cell(row, "회계"),
			ViceTreasurer:    cell(row, "부회계"),
		})
	}
	return history, nil
}
