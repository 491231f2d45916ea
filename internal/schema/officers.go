package schema

import (
	"encoding/json"

	"github.com/sunghokim-dev/presbytery-site/internal/tabular"
)

func init() {
	registerCurrentOfficers()
}

var officerHeaders = []string{"직책", "이름", "직분", "교회", "사진"}

func registerCurrentOfficers() {
	Register(Definition{
		Info: TargetInfo{
			Key:        "current-officers",
			Label:      "현 임원",
			Kind:       KindDocument,
			Collection: DocCurrentOfficers,
		},
		Headers:  officerHeaders,
		ToRows:   officersToRows,
		FromRows: officersFromRows,
		Sample: func() any {
			return &OfficerBoard{
				Term: "제85회",
				Officers: []OfficerRecord{{
					Position: "노회장",
					Name:     "홍길동",
					Title:    "목사",
					Church:   "은혜교회",
					Photo:    "officers/hong.jpg",
				}},
			}
		},
		DecodeDoc: func(raw []byte) (any, error) {
			board := &OfficerBoard{}
			if err := decodeDocInto(raw, board); err != nil {
				return nil, err
			}
			return board, nil
		},
		EncodeDoc: func(domain any) ([]byte, error) {
			return json.MarshalIndent(domain.(*OfficerBoard), "", "  ")
		},
		// The term label has no tabular column; an import replaces the
		// officer list but keeps the stored term.
		MergeDoc: func(existing, imported any) any {
			cur := existing.(*OfficerBoard)
			next := imported.(*OfficerBoard)
			next.Term = cur.Term
			return next
		},
	})
}

func officersToRows(domain any) []tabular.Row {
	board := domain.(*OfficerBoard)
	rows := make([]tabular.Row, 0, len(board.Officers))
	for _, o := range board.Officers {
		rows = append(rows, tabular.Row{
			"직책": o.Position,
			"이름": o.Name,
			"직분": o.Title,
			"교회": o.Church,
			"사진": o.Photo,
		})
	}
	return rows
}

func officersFromRows(rows []tabular.Row) (any, error) {
	if err := requireHeaders("current-officers", officerHeaders, rows); err != nil {
		return nil, err
	}

	board := &OfficerBoard{}
	for _, row := range rows {
		board.Officers = append(board.Officers, OfficerRecord{
			Position: cell(row, "직책"),
			Name:     cell(row, "이름"),
			Title:    cell(row, "직분"),
			Church:   cell(row, "교회"),
			Photo:    cell(row, "사진"),
		})
	}
	return board, nil
}
